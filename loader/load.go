package loader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/metrics"
	"github.com/npillmayer/sctree/result"
	"github.com/npillmayer/sctree/sparse"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of concurrent chunk loads if not configured
// otherwise.
const DefaultWorkers = 4

// Loader loads published trees from a chunk source.
type Loader struct {
	source  ChunkSource
	codec   sparse.Codec
	workers int
	metrics *metrics.Metrics
}

// Option configures a Loader.
type Option func(*Loader)

// WithWorkers bounds the number of chunks loaded concurrently.
func WithWorkers(n int) Option {
	return func(ld *Loader) {
		if n > 0 {
			ld.workers = n
		}
	}
}

// WithCodec sets the chunk codec. It is overridden by a codec named in a
// manifest.
func WithCodec(c sparse.Codec) Option {
	return func(ld *Loader) {
		if c != nil {
			ld.codec = c
		}
	}
}

// WithMetrics reports chunk loads to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ld *Loader) {
		ld.metrics = m
	}
}

// New creates a loader for a source.
func New(src ChunkSource, opts ...Option) *Loader {
	ld := &Loader{source: src, codec: sparse.JSON, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load fetches the manifest at root and loads the tree it describes,
// blocking until all chunks are in place. A manifest without a chunk
// summary is loaded as a non-chunked payload.
func (ld *Loader) Load(ctx context.Context, root string) (*flat.Layout, error) {
	data, err := ld.source.Fetch(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", root, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	if len(m.Summary) == 0 && len(m.Buffers) > 0 {
		return LoadFlat(m)
	}
	done := make(chan result.Result[*flat.Layout], 1)
	if err := ld.InflateMT(ctx, root, m, func(r result.Result[*flat.Layout]) {
		done <- r
	}); err != nil {
		return nil, err
	}
	return (<-done).Value()
}

// InflateMT allocates the buffers declared by a chunked manifest and
// fills them from the chunks listed in its summary. It returns an error
// for inconsistent manifests, before allocating anything. Otherwise it
// returns immediately and calls done exactly once, either with the
// completed layout or with the first error encountered. The first error
// cancels all outstanding chunk loads.
func (ld *Loader) InflateMT(ctx context.Context, root string, m *Manifest,
	done func(result.Result[*flat.Layout])) error {
	//
	if err := m.Check(true); err != nil {
		return err
	}
	codec := ld.codec
	if m.Codec != "" {
		c, err := sparse.CodecByName(m.Codec)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrManifest, err)
		}
		codec = c
	}
	l, err := m.allocate()
	if err != nil {
		return err
	}
	var once sync.Once
	fire := func(r result.Result[*flat.Layout]) {
		once.Do(func() { done(r) })
	}
	total := int64(len(m.Summary))
	var ready atomic.Int64
	start := time.Now()
	tracer().Debugf("loading %d chunks of %s with %d workers", total, root, ld.workers)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ld.workers)
	go func() {
		for _, nfo := range m.Summary {
			if gctx.Err() != nil {
				break
			}
			nfo := nfo
			g.Go(func() error {
				if err := ld.chunk(gctx, codec, root, nfo, l); err != nil {
					return err
				}
				if ready.Add(1) == total {
					if err := l.Check(); err != nil {
						return err
					}
					ld.metrics.ObserveLoad(time.Since(start))
					tracer().Debugf("loaded %s in %v", root, time.Since(start))
					fire(result.Ok(l))
				}
				return nil
			})
		}
		err := g.Wait()
		if err == nil && ready.Load() != total {
			err = fmt.Errorf("load of %s interrupted: %w", root, ctx.Err())
		}
		if err != nil {
			tracer().Errorf("loading %s failed: %v", root, err)
			fire(result.Err[*flat.Layout](err))
		}
	}()
	return nil
}

// chunk fetches, decodes and scatters a single chunk.
func (ld *Loader) chunk(ctx context.Context, codec sparse.Codec, root string,
	nfo sparse.ChunkInfo, l *flat.Layout) error {
	//
	fail := func(stage string, err error) error {
		ld.metrics.ChunkFailed(stage)
		return &ChunkError{Label: nfo.Label, UniqueID: nfo.UniqueID, Stage: stage, Err: err}
	}
	data, err := ld.source.Fetch(ctx, Locator(root, nfo.UniqueID))
	if err != nil {
		return fail(StageFetch, err)
	}
	c, err := codec.Decode(data)
	if err != nil {
		return fail(StageDecode, err)
	}
	dst := l.Buffers[nfo.Label]
	switch {
	case c.Label != "" && c.Label != nfo.Label:
		err = fmt.Errorf("%w: chunk belongs to buffer %s", sparse.ErrCorrupt, c.Label)
	case c.Type != dst.Type() || c.Len != dst.Len():
		err = fmt.Errorf("%w: chunk is %v[%d], buffer is %v[%d]",
			sparse.ErrCorrupt, c.Type, c.Len, dst.Type(), dst.Len())
	case c.Min != nfo.Min || c.Max != nfo.Max:
		err = fmt.Errorf("%w: chunk covers [%d,%d), summary says [%d,%d)",
			sparse.ErrCorrupt, c.Min, c.Max, nfo.Min, nfo.Max)
	default:
		err = c.ScatterInto(dst, 0)
	}
	if err != nil {
		return fail(StageScatter, err)
	}
	ld.metrics.ChunkLoaded(nfo.Label)
	return nil
}

// LoadFlat inflates the buffers carried by a non-chunked manifest.
func LoadFlat(m *Manifest) (*flat.Layout, error) {
	if err := m.Check(false); err != nil {
		return nil, err
	}
	l := m.layout()
	for _, label := range m.BufferLabels {
		b, err := sparse.Inflate(m.Buffers[label])
		if err != nil {
			return nil, fmt.Errorf("buffer %s: %w", label, err)
		}
		if err := l.SetBuffer(label, b); err != nil {
			return nil, err
		}
	}
	if err := l.Check(); err != nil {
		return nil, err
	}
	tracer().Debugf("inflated %d buffers for tree of size %d", len(m.BufferLabels), m.TreeSize)
	return l, nil
}
