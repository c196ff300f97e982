package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// ChunkSource fetches manifests and chunk payloads by locator.
type ChunkSource interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// ChunkSink stores manifests and chunk payloads by locator.
type ChunkSink interface {
	Store(ctx context.Context, locator string, payload []byte) error
}

// Locator derives the locator of a chunk from the locator of its manifest.
func Locator(root, uniqueID string) string {
	base, _, _ := strings.Cut(root, ".json")
	return base + uniqueID + ".json"
}

// --- Memory ----------------------------------------------------------------

// MemStore keeps payloads in memory. It is both a source and a sink.
type MemStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{payloads: make(map[string][]byte)}
}

// Fetch returns a stored payload.
func (s *MemStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payloads[locator]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	return p, nil
}

// Store keeps a copy of a payload.
func (s *MemStore) Store(ctx context.Context, locator string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[locator] = append([]byte(nil), payload...)
	return nil
}

// Len returns the number of stored payloads.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payloads)
}

// --- Files -----------------------------------------------------------------

// FileSource reads payloads from files below a directory. Locators are
// slash-separated paths relative to Dir.
type FileSource struct {
	Dir string
}

func (s FileSource) path(locator string) (string, error) {
	p := filepath.FromSlash(locator)
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("locator %q leaves directory %s", locator, s.Dir)
	}
	return filepath.Join(s.Dir, p), nil
}

// Fetch reads a file.
func (s FileSource) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(locator)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	return data, err
}

// DirSink writes payloads to files below a directory, creating
// sub-directories as needed.
type DirSink struct {
	Dir string
}

// Store writes a file.
func (s DirSink) Store(ctx context.Context, locator string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := FileSource(s).path(locator)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, payload, 0o644)
}

// --- HTTP ------------------------------------------------------------------

// HTTPSource GETs payloads from Base + locator.
type HTTPSource struct {
	Base   string
	Client *http.Client // http.DefaultClient if nil
}

// Fetch issues a GET request. Any status but 200 fails.
func (s HTTPSource) Fetch(ctx context.Context, locator string) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	url := strings.TrimSuffix(s.Base, "/") + "/" + strings.TrimPrefix(locator, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// --- Redis -----------------------------------------------------------------

// RedisStore keeps payloads in Redis under Prefix + locator. It is both a
// source and a sink.
type RedisStore struct {
	Client redis.Cmdable
	Prefix string
	TTL    time.Duration // 0 means no expiry
}

// NewRedisStore connects to a Redis server and verifies the connection
// with a PING.
func NewRedisStore(ctx context.Context, opts *redis.Options, prefix string) (*RedisStore, error) {
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{Client: rdb, Prefix: prefix}, nil
}

// Fetch gets a payload.
func (s *RedisStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	data, err := s.Client.Get(ctx, s.Prefix+locator).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	return data, err
}

// Store sets a payload.
func (s *RedisStore) Store(ctx context.Context, locator string, payload []byte) error {
	return s.Client.Set(ctx, s.Prefix+locator, payload, s.TTL).Err()
}

// --- PostgreSQL ------------------------------------------------------------

// PostgresStore keeps payloads in a table with columns locator (primary
// key) and payload. It is both a source and a sink.
type PostgresStore struct {
	DB    *sql.DB
	Table string
}

// OpenPostgres opens a database with the lib/pq driver and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) table() string {
	return pq.QuoteIdentifier(s.Table)
}

// CreateTable creates the chunk table if it does not exist.
func (s *PostgresStore) CreateTable(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table()+
		` (locator TEXT PRIMARY KEY, payload BYTEA NOT NULL)`)
	return err
}

// Fetch selects a payload.
func (s *PostgresStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	var data []byte
	err := s.DB.QueryRowContext(ctx, `SELECT payload FROM `+s.table()+` WHERE locator = $1`,
		locator).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	return data, err
}

// Store inserts or replaces a payload.
func (s *PostgresStore) Store(ctx context.Context, locator string, payload []byte) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO `+s.table()+` (locator, payload) VALUES ($1, $2)
		ON CONFLICT (locator) DO UPDATE SET payload = EXCLUDED.payload`, locator, payload)
	return err
}
