package sctree

import (
	"context"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/sctree/config"
	"github.com/npillmayer/sctree/dom"
	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/loader"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/traverse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rules = `box { w: 10 } #top > box { w: 20 } #mid box { w: 30 }`

func boxes() (*schema.Schema, *dom.Node) {
	sch := schema.New()
	sch.DeclareClass("box", "")
	sch.DeclareField("w", sparse.Float32)
	sch.DeclareField(schema.RelationField("box", "kids"), sparse.Int32)
	doc := dom.NewNode("box").WithID("top").Append("kids",
		dom.NewNode("box"),
		dom.NewNode("box").WithID("mid").Append("kids", dom.NewNode("box")),
	)
	return sch, doc
}

func widths(t *testing.T, l *flat.Layout) []float64 {
	b, ok := l.Buffer("w")
	require.True(t, ok)
	w := make([]float64, b.Len())
	for i := range w {
		w[i] = b.At(i)
	}
	return w
}

func TestSessionStyle(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.match")
	defer teardown()
	//
	sch, doc := boxes()
	sess := NewSession(sch, WithAccelerator(traverse.NewParallel(2)))
	l, err := sess.Flatten(doc)
	require.NoError(t, err)
	idx, err := sess.Compile(rules)
	require.NoError(t, err)
	m, err := sess.Style(context.Background(), idx, l)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 20, 30}, widths(t, l))
	assert.Equal(t, []int32{1, 2, 2, 2}, m.Selectors())
	//
	var src strings.Builder
	require.NoError(t, sess.Kernel(&src, idx, "style", "restyle"))
	assert.Contains(t, src.String(), "__kernel void restyle(")
}

func TestSessionLoadsPublishedTree(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.loader")
	defer teardown()
	//
	ctx := context.Background()
	sch, doc := boxes()
	l, err := NewSession(sch).Flatten(doc)
	require.NoError(t, err)
	//
	cfg := config.Default()
	cfg.Loader.Dir = t.TempDir()
	src, sink, release, err := Stores(ctx, cfg)
	require.NoError(t, err)
	defer release()
	popts, err := PublishOptions(cfg)
	require.NoError(t, err)
	_, err = loader.Publish(ctx, l, "boxes.json", sink, popts)
	require.NoError(t, err)
	//
	sess := NewSession(sch)
	lopts, err := LoaderOptions(cfg)
	require.NoError(t, err)
	loaded, err := sess.Load(ctx, src, "boxes.json", lopts...)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, widths(t, loaded))
	//
	idx, err := sess.Compile(rules)
	require.NoError(t, err)
	_, err = sess.Style(ctx, idx, loaded)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 20, 30}, widths(t, loaded))
}

func TestSessionRejectsForeignLayout(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.match")
	defer teardown()
	//
	sch, doc := boxes()
	l, err := NewSession(sch).Flatten(doc)
	require.NoError(t, err)
	sess := NewSession(sch)
	idx, err := sess.Compile(rules)
	require.NoError(t, err)
	_, err = sess.Style(context.Background(), idx, l)
	assert.Error(t, err)
}

func TestAcceleratorFromConfig(t *testing.T) {
	cfg := config.Default()
	assert.Nil(t, Accelerator(cfg))
	cfg.Traversal.Accelerator = true
	cfg.Traversal.Workers = 2
	a := Accelerator(cfg)
	require.NotNil(t, a)
	assert.Equal(t, "parallel", a.Name())
}
