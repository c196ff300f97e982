package kernel

import (
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/selector"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emit(t *testing.T, rules string, passes ...string) string {
	sch := schema.New()
	sch.DeclareClass("a", "")
	sch.DeclareClass("b", "")
	sch.DeclareField("x", sparse.Float32)
	sch.DeclareField("y", sparse.Uint32)
	idx, err := selector.Compile(rules, sch, tokens.NewIDs())
	require.NoError(t, err)
	var b strings.Builder
	require.NoError(t, Emit(&b, idx, "style", Options{Schema: sch, Passes: passes}))
	t.Logf("\n%s", b.String())
	return b.String()
}

func TestEmitFunctionsPerCandidate(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.match")
	defer teardown()
	//
	src := emit(t, `a { x: 1; } a#foo { x: 2.5; } a + * { y: #fff; }`)
	for _, fn := range []string{
		"unsigned int matchSelectorTag_1_0(",
		"unsigned int applySelectorTag_1_0(",
		"unsigned int matchSelectorId_1_0(",
		"unsigned int matchSelectorStar_0(",
		"unsigned int getNumSelId(unsigned int token)",
		"unsigned long getSpecTag(unsigned int token, unsigned int offset)",
		"unsigned long getSpecStar(unsigned int offset)",
		"unsigned int matchSelectorStar(",
	} {
		assert.Contains(t, src, fn)
	}
	assert.Contains(t, src, "#define x(i) (buf_x[i])")
	assert.Contains(t, src, "#define selectors_buffer(i) (buf_selectors_buffer[i])")
	assert.Contains(t, src, "__global float* buf_x")
	assert.Contains(t, src, "__global uint* buf_y")
	assert.Contains(t, src, "__global uchar* buf_left_siblings")
}

func TestEmitWritesAndSpecificities(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.match")
	defer teardown()
	//
	src := emit(t, `a { x: 1; } a#foo { x: 2.5; } a + * { y: #fff; }`)
	assert.Contains(t, src, "x(nodeindex) = 1;")
	assert.Contains(t, src, "x(nodeindex) = 2.5f;")
	assert.Contains(t, src, "y(nodeindex) = 4294967295;")
	assert.Contains(t, src, "return 4096UL;")
	assert.Contains(t, src, "return 1073745920UL;")
	assert.Contains(t, src, "if (left_siblings(cur) == 0) return 0;")
}

func TestEmitCombinators(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.match")
	defer teardown()
	//
	src := emit(t, `a b { x: 1; } a > b { x: 2; }`)
	assert.Contains(t, src, "    cur = parent(cur);\n    matched = matchPredicate(")
	assert.Contains(t, src, "  if (cur == 0) return 0;\n  cur = parent(cur);\n  if (!matchPredicate(")
	assert.Equal(t, strings.Count(src, "{"), strings.Count(src, "}"))
}

func TestEmitEntryPoints(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.match")
	defer teardown()
	//
	src := emit(t, `* { x: 0; }`, "restyle")
	assert.Equal(t, 2, strings.Count(src, "__kernel void "))
	assert.Contains(t, src, "__kernel void style(unsigned int start_idx, unsigned int tree_size, ")
	assert.Contains(t, src, "__kernel void restyle(unsigned int start_idx, ")
	assert.Contains(t, src, "unsigned int nodeindex = get_global_id(0) + start_idx;")
	assert.Contains(t, src, "unsigned int nodeindex = get_global_id(0) + start_idx;\n  if (nodeindex >= tree_size) return;")
	assert.Equal(t, 2, strings.Count(src, "if (nodeindex >= tree_size) return;"))
	assert.Contains(t, src, "selectors_buffer(nodeindex) = matches;")
	assert.Contains(t, src, "unsigned int numSelStar = 1;")
	assert.Contains(t, src, "getSpecTag(tagid, curTag) <= getSpecId(nodeid, curId)")
}

func TestEmitRejectsBadPassName(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.match")
	defer teardown()
	//
	idx, err := selector.Compile(`* { x: 0; }`, schemaWithX(), tokens.NewIDs())
	require.NoError(t, err)
	var b strings.Builder
	err = Emit(&b, idx, "style", Options{Passes: []string{"1st"}})
	assert.True(t, errors.Is(err, ErrName))
	assert.Zero(t, b.Len())
}

func schemaWithX() *schema.Schema {
	sch := schema.New()
	sch.DeclareField("x", sparse.Float32)
	return sch
}
