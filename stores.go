package sctree

import (
	"context"
	"fmt"
	"net/http"

	"github.com/npillmayer/sctree/config"
	"github.com/npillmayer/sctree/loader"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/traverse"
	"github.com/redis/go-redis/v9"
)

// Stores opens the chunk source and sink selected by a configuration. The
// HTTP source has no sink. The returned function releases connections.
func Stores(ctx context.Context, cfg *config.Config) (loader.ChunkSource, loader.ChunkSink, func() error, error) {
	nop := func() error { return nil }
	switch cfg.Loader.Source {
	case "file":
		return loader.FileSource{Dir: cfg.Loader.Dir}, loader.DirSink{Dir: cfg.Loader.Dir}, nop, nil
	case "http":
		client := &http.Client{Timeout: cfg.HTTP.Timeout}
		return loader.HTTPSource{Base: cfg.HTTP.BaseURL, Client: client}, nil, nop, nil
	case "redis":
		store, err := loader.NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, cfg.Redis.Prefix)
		if err != nil {
			return nil, nil, nil, err
		}
		store.TTL = cfg.Redis.TTL
		return store, store, store.Client.(*redis.Client).Close, nil
	case "postgres":
		db, err := loader.OpenPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, nil, err
		}
		store := &loader.PostgresStore{DB: db, Table: cfg.Postgres.Table}
		if err := store.CreateTable(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return store, store, db.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown chunk source %q", cfg.Loader.Source)
}

// LoaderOptions derives loader options from a configuration.
func LoaderOptions(cfg *config.Config) ([]loader.Option, error) {
	codec, err := sparse.CodecByName(cfg.Codec.Format)
	if err != nil {
		return nil, err
	}
	return []loader.Option{loader.WithWorkers(cfg.Loader.MaxWorkers), loader.WithCodec(codec)}, nil
}

// PublishOptions derives chunking options from a configuration.
func PublishOptions(cfg *config.Config) (loader.PublishOptions, error) {
	codec, err := sparse.CodecByName(cfg.Codec.Format)
	if err != nil {
		return loader.PublishOptions{}, err
	}
	return loader.PublishOptions{
		Codec:            codec,
		MinBlockSize:     cfg.Codec.MinBlockSize,
		MinChunkElements: cfg.Codec.MinChunkElements,
	}, nil
}

// Accelerator returns the accelerator selected by a configuration, or nil
// for the CPU executor.
func Accelerator(cfg *config.Config) traverse.Accelerator {
	if !cfg.Traversal.Accelerator {
		return nil
	}
	return traverse.NewParallel(cfg.Traversal.Workers)
}
