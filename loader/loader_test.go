package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/sctree/dom"
	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/metrics"
	"github.com/npillmayer/sctree/result"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/tokens"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "trees/boxes.json"

// testLayout flattens a box with n children, some of them carrying a width.
func testLayout(t *testing.T, n int) *flat.Layout {
	sch := schema.New()
	sch.DeclareClass("box", "")
	sch.DeclareField(schema.FieldName("box", "w"), sparse.Float32)
	sch.DeclareField(schema.RelationField("box", "kids"), sparse.Int32)
	kids := make([]*dom.Node, n)
	for i := range kids {
		kids[i] = dom.NewNode("box")
		if i%50 < 20 {
			kids[i].Set("w", float64(i%7+1))
		}
		if i%97 == 0 {
			kids[i].WithID(fmt.Sprintf("k%d", i))
		}
	}
	doc := dom.NewNode("box").WithID("root").Append("kids", kids...)
	l, err := flat.Flatten(doc, sch, tokens.NewIDs())
	require.NoError(t, err)
	return l
}

func assertSameLayout(t *testing.T, expected, actual *flat.Layout) {
	require.Equal(t, expected.Size, actual.Size)
	assert.Equal(t, expected.Levels, actual.Levels)
	assert.Equal(t, expected.IDs.Strings(), actual.IDs.Strings())
	require.Equal(t, expected.BufferNames(), actual.BufferNames())
	for _, name := range expected.BufferNames() {
		e, a := expected.Buffers[name], actual.Buffers[name]
		require.Equal(t, e.Type(), a.Type(), name)
		for i := 0; i < e.Len(); i++ {
			if e.At(i) != a.At(i) {
				t.Fatalf("buffer %s differs at %d: %v != %v", name, i, e.At(i), a.At(i))
			}
		}
	}
}

func TestLocator(t *testing.T) {
	assert.Equal(t, "data/treeabc.json", Locator("data/tree.json", "abc"))
	assert.Equal(t, "treeabc.json", Locator("tree", "abc"))
}

func TestPublishAndLoadChunks(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	l := testLayout(t, 1500)
	store := NewMemStore()
	m, err := Publish(context.Background(), l, root, store, PublishOptions{
		MinBlockSize:     8,
		MinChunkElements: 100,
	})
	require.NoError(t, err)
	assert.Greater(t, len(m.Summary), len(m.BufferLabels))
	assert.Equal(t, len(m.Summary)+1, store.Len())
	//
	reg := prometheus.NewRegistry()
	ld := New(store, WithWorkers(3), WithMetrics(metrics.New(reg)))
	loaded, err := ld.Load(context.Background(), root)
	require.NoError(t, err)
	assertSameLayout(t, l, loaded)
	//
	families, err := reg.Gather()
	require.NoError(t, err)
	n := 0.0
	for _, mf := range families {
		if mf.GetName() == "sctree_chunks_loaded_total" {
			for _, s := range mf.GetMetric() {
				n += s.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(len(m.Summary)), n)
}

func TestPublishIsDeterministic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	l := testLayout(t, 300)
	m1, err := Publish(context.Background(), l, root, NewMemStore(), PublishOptions{})
	require.NoError(t, err)
	m2, err := Publish(context.Background(), l, root, NewMemStore(), PublishOptions{})
	require.NoError(t, err)
	assert.Equal(t, m1.Summary, m2.Summary)
}

func TestLoadBinaryChunksFromFiles(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	dir := t.TempDir()
	l := testLayout(t, 700)
	m, err := Publish(context.Background(), l, root, DirSink{Dir: dir}, PublishOptions{
		Codec:            sparse.Binary,
		MinChunkElements: 64,
	})
	require.NoError(t, err)
	assert.Equal(t, "binary", m.Codec)
	loaded, err := New(FileSource{Dir: dir}, WithWorkers(2)).Load(context.Background(), root)
	require.NoError(t, err)
	assertSameLayout(t, l, loaded)
}

func TestLoadOverHTTP(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	dir := t.TempDir()
	l := testLayout(t, 400)
	_, err := Publish(context.Background(), l, root, DirSink{Dir: dir}, PublishOptions{MinChunkElements: 50})
	require.NoError(t, err)
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()
	loaded, err := New(HTTPSource{Base: srv.URL}).Load(context.Background(), root)
	require.NoError(t, err)
	assertSameLayout(t, l, loaded)
	//
	_, err = HTTPSource{Base: srv.URL}.Fetch(context.Background(), "trees/none.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileSourceStaysInDirectory(t *testing.T) {
	_, err := FileSource{Dir: t.TempDir()}.Fetch(context.Background(), "../etc/passwd")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

// failing fails fetching a single locator.
type failing struct {
	ChunkSource
	locator string
	calls   atomic.Int32
}

func (f *failing) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if locator == f.locator {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	f.calls.Add(1)
	return f.ChunkSource.Fetch(ctx, locator)
}

func TestFailingChunkFailsLoadOnce(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	l := testLayout(t, 1000)
	store := NewMemStore()
	m, err := Publish(context.Background(), l, root, store, PublishOptions{MinChunkElements: 50})
	require.NoError(t, err)
	missing := m.Summary[len(m.Summary)/2]
	src := &failing{ChunkSource: store, locator: Locator(root, missing.UniqueID)}
	//
	var calls atomic.Int32
	done := make(chan result.Result[*flat.Layout], 2)
	err = New(src).InflateMT(context.Background(), root, m, func(r result.Result[*flat.Layout]) {
		calls.Add(1)
		done <- r
	})
	require.NoError(t, err)
	var layout *flat.Layout
	var e error
	switch m := (<-done).Match(); m {
	case m.Ok(&layout):
		t.Fatalf("expected load to fail")
	case m.Err(&e):
		t.Logf("load failed: %v", e)
	}
	var cerr *ChunkError
	require.True(t, errors.As(e, &cerr))
	assert.Equal(t, StageFetch, cerr.Stage)
	assert.Equal(t, missing.UniqueID, cerr.UniqueID)
	assert.True(t, errors.Is(e, ErrNotFound))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCorruptChunk(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	l := testLayout(t, 200)
	store := NewMemStore()
	m, err := Publish(context.Background(), l, root, store, PublishOptions{})
	require.NoError(t, err)
	bad := Locator(root, m.Summary[0].UniqueID)
	require.NoError(t, store.Store(context.Background(), bad, []byte(`{"len":3,"optTypeName":"Complex64Array","dense":{}}`)))
	_, err = New(store).Load(context.Background(), root)
	var cerr *ChunkError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, StageDecode, cerr.Stage)
}

func TestMismatchingChunk(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	l := testLayout(t, 200)
	store := NewMemStore()
	m, err := Publish(context.Background(), l, root, store, PublishOptions{})
	require.NoError(t, err)
	// replace the first chunk by a chunk of a buffer with a different type
	c := sparse.DeflateMT(sparse.Wrap(make([]float64, l.Size)), 0, 0)[0]
	c.Label = m.Summary[0].Label
	payload, err := sparse.JSON.Encode(c)
	require.NoError(t, err)
	require.NoError(t, store.Store(context.Background(), Locator(root, m.Summary[0].UniqueID), payload))
	_, err = New(store).Load(context.Background(), root)
	var cerr *ChunkError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, StageScatter, cerr.Stage)
	assert.True(t, errors.Is(err, sparse.ErrCorrupt))
}

func TestChunkOutsideEmptyRange(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	l := testLayout(t, 200)
	_, err := l.Alloc("box_h", sparse.Float32)
	require.NoError(t, err)
	store := NewMemStore()
	m, err := Publish(context.Background(), l, root, store, PublishOptions{})
	require.NoError(t, err)
	var nfo *sparse.ChunkInfo
	for i := range m.Summary {
		if m.Summary[i].Label == "box_h" {
			nfo = &m.Summary[i]
		}
	}
	require.NotNil(t, nfo)
	require.Equal(t, nfo.Min, nfo.Max)
	// a chunk for the all-zero buffer must not carry values
	b, err := sparse.Alloc(sparse.Float32, l.Size)
	require.NoError(t, err)
	for i := 10; i < 20; i++ {
		b.Set(i, 1)
	}
	c := sparse.DeflateMT(b, 0, 0)[0]
	c.Label = nfo.Label
	payload, err := sparse.JSON.Encode(c)
	require.NoError(t, err)
	require.NoError(t, store.Store(context.Background(), Locator(root, nfo.UniqueID), payload))
	_, err = New(store).Load(context.Background(), root)
	var cerr *ChunkError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, StageScatter, cerr.Stage)
	assert.Equal(t, "box_h", cerr.Label)
	assert.True(t, errors.Is(err, sparse.ErrCorrupt))
}

func TestCancelledLoad(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	l := testLayout(t, 300)
	store := NewMemStore()
	m, err := Publish(context.Background(), l, root, store, PublishOptions{MinChunkElements: 20})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan result.Result[*flat.Layout], 1)
	require.NoError(t, New(store).InflateMT(ctx, root, m, func(r result.Result[*flat.Layout]) {
		done <- r
	}))
	_, err = (<-done).Value()
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestManifestMetadata(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	_, err := ParseManifest([]byte(`{"tree_size": 3}`))
	assert.True(t, errors.Is(err, ErrManifest))
	_, err = ParseManifest([]byte(`{"tree_size": 0, "levels": [], "tokens": [], "bufferLabels": ["parent"]}`))
	assert.True(t, errors.Is(err, ErrManifest))
	_, err = ParseManifest([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrManifest))
	//
	m := NewManifest(testLayout(t, 10))
	assert.True(t, errors.Is(m.Check(false), ErrManifest), "non-chunked check needs payloads")
	assert.True(t, errors.Is(m.Check(true), ErrManifest), "chunked check needs a summary")
	called := false
	err = New(NewMemStore()).InflateMT(context.Background(), root, m, func(result.Result[*flat.Layout]) {
		called = true
	})
	assert.True(t, errors.Is(err, ErrManifest))
	assert.False(t, called)
	//
	m.Summary = []sparse.ChunkInfo{{UniqueID: "x", Label: "nonsense"}}
	assert.True(t, errors.Is(m.Check(true), ErrManifest))
	m.Summary[0].Label = "parent"
	assert.NoError(t, m.Check(true))
	m.TreeSize++
	assert.True(t, errors.Is(m.Check(true), ErrManifest))
}

func TestLoadFlat(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	l := testLayout(t, 250)
	m, err := Flat(l, 16)
	require.NoError(t, err)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	parsed, err := ParseManifest(data)
	require.NoError(t, err)
	loaded, err := LoadFlat(parsed)
	require.NoError(t, err)
	assertSameLayout(t, l, loaded)
	//
	store := NewMemStore()
	require.NoError(t, store.Store(context.Background(), "flat.json", data))
	loaded, err = New(store).Load(context.Background(), "flat.json")
	require.NoError(t, err)
	assertSameLayout(t, l, loaded)
	//
	delete(parsed.Buffers, flat.BufParent)
	_, err = LoadFlat(parsed)
	assert.True(t, errors.Is(err, ErrManifest))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SCTREE_TEST_REDIS")
	if addr == "" {
		t.Skip("SCTREE_TEST_REDIS not set")
	}
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	ctx := context.Background()
	store, err := NewRedisStore(ctx, &redis.Options{Addr: addr}, "sctree-test:")
	require.NoError(t, err)
	store.TTL = time.Minute
	l := testLayout(t, 500)
	_, err = Publish(ctx, l, root, store, PublishOptions{MinChunkElements: 100})
	require.NoError(t, err)
	loaded, err := New(store).Load(ctx, root)
	require.NoError(t, err)
	assertSameLayout(t, l, loaded)
	_, err = store.Fetch(ctx, "no/such/chunk.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("SCTREE_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("SCTREE_TEST_POSTGRES not set")
	}
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	ctx := context.Background()
	db, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	store := &PostgresStore{DB: db, Table: "sctree_chunks_test"}
	require.NoError(t, store.CreateTable(ctx))
	l := testLayout(t, 500)
	_, err = Publish(ctx, l, root, store, PublishOptions{Codec: sparse.Binary, MinChunkElements: 100})
	require.NoError(t, err)
	loaded, err := New(store).Load(ctx, root)
	require.NoError(t, err)
	assertSameLayout(t, l, loaded)
	_, err = store.Fetch(ctx, "no/such/chunk.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}
