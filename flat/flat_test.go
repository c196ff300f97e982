package flat

import (
	"math/rand"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/sctree/dom"
	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlab/treeprint"
)

func boxSchema() *schema.Schema {
	s := schema.New()
	s.DeclareClass("root", "node")
	s.DeclareClass("box", "node")
	s.DeclareField(schema.FieldName("box", "w"), sparse.Float32)
	s.DeclareField(schema.FieldName("node", "h"), sparse.Float32)
	s.DeclareField(schema.RelationField("root", "top"), sparse.Int32)
	s.DeclareField(schema.RelationField("root", "kids"), sparse.Int32)
	s.DeclareField(schema.RelationField("box", "kids"), sparse.Int32)
	return s
}

func boxDocument() *dom.Node {
	kid := dom.NewNode("box").Append("kids", dom.NewNode("box"))
	return dom.NewNode("root").
		Child("top", dom.NewNode("box").WithID("Top")).
		Append("kids", kid, dom.NewNode("box").Set("w", 3).Set("H_", 2).Set("zzz", 1), dom.NewNode("box"))
}

func printTree(n *dom.Node, tree treeprint.Tree) {
	for _, r := range n.Relations {
		for _, c := range r.Children {
			printTree(c, tree.AddBranch(r.Label+": "+c.Class))
		}
	}
}

func TestFlattenBoxes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.flat")
	defer teardown()
	//
	doc := boxDocument()
	tree := treeprint.NewWithRoot(doc.Class)
	printTree(doc, tree)
	t.Logf("document:\n%s", tree.String())
	//
	ids := tokens.NewIDs()
	l, err := Flatten(doc, boxSchema(), ids)
	require.NoError(t, err)
	require.NoError(t, l.Check())
	assert.Equal(t, 6, l.Size)
	assert.Equal(t, 6, TreeSize(doc))
	assert.Equal(t, []Level{{0, 1}, {1, 4}, {5, 1}}, l.Levels)
	assert.Equal(t, []int32{-1, 0, 0, 0, 0, 2}, l.Parent())
	assert.Equal(t, []uint8{0, 0, 1, 1, 1, 0}, l.LeftSiblings())
	assert.Equal(t, []int32{0, 0, 1, 1, 0, 0}, l.RightSiblings())
	//
	top, ok := ids.Lookup("top")
	require.True(t, ok, "expected id to be entered lower-cased")
	assert.Equal(t, int32(top), l.IDTokens()[1])
	assert.Equal(t, int32(ids.NoID()), l.IDTokens()[2])
	boxTok, _ := l.Schema.ClassToken("box")
	assert.Equal(t, int32(boxTok), l.Tags()[5])
	//
	at := func(name string, i int) float64 {
		b, ok := l.Buffer(name)
		require.True(t, ok, name)
		return b.At(i)
	}
	assert.Equal(t, 1.0, at("fld_root_child_top_leftmost_child", 0))
	assert.Equal(t, 2.0, at("fld_root_child_kids_leftmost_child", 0))
	assert.Equal(t, 3.0, at("fld_box_child_kids_leftmost_child", 2))
	assert.Equal(t, 0.0, at("fld_box_child_kids_leftmost_child", 3))
	assert.Equal(t, 3.0, at("fld_box_w", 3))
	assert.Equal(t, 2.0, at("fld_node_h", 3), "expected attribute to fall back to interface field")
	assert.Equal(t, 0, l.LevelOf(0))
	assert.Equal(t, 1, l.LevelOf(4))
	assert.Equal(t, 2, l.LevelOf(5))
}

func TestFlattenIsLenient(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.flat")
	defer teardown()
	//
	doc := dom.NewNode("root").Append("unknown", dom.NewNode("ghost"), dom.NewNode("ghost"))
	l, err := Flatten(doc, boxSchema(), tokens.NewIDs())
	require.NoError(t, err)
	require.NoError(t, l.Check())
	assert.Equal(t, []int32{0, 0}, l.Tags()[1:])
	//
	_, err = Flatten(doc, nil, tokens.NewIDs())
	assert.ErrorIs(t, err, ErrNoSchema)
	_, err = Flatten(doc, boxSchema(), nil)
	assert.ErrorIs(t, err, ErrNoTokens)
}

func randomDocument(rnd *rand.Rand, depth int) *dom.Node {
	n := dom.NewNode("box")
	if depth == 0 {
		return n
	}
	for r := rnd.Intn(3); r > 0; r-- {
		if rnd.Intn(2) == 0 {
			n.Child("top", randomDocument(rnd, depth-1))
			continue
		}
		for k := rnd.Intn(4); k > 0; k-- {
			n.Append("kids", randomDocument(rnd, depth-1))
		}
	}
	return n
}

func TestFlattenInvariants(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.flat")
	defer teardown()
	//
	rnd := rand.New(rand.NewSource(4711))
	for run := 0; run < 50; run++ {
		doc := randomDocument(rnd, 5)
		l, err := Flatten(doc, boxSchema(), tokens.NewIDs())
		require.NoError(t, err)
		require.NoError(t, l.Check())
		parent, left, right := l.Parent(), l.LeftSiblings(), l.RightSiblings()
		assert.Equal(t, int32(-1), parent[0])
		for i := 1; i < l.Size; i++ {
			if parent[i] >= int32(i) {
				t.Fatalf("run %d: parent[%d] = %d", run, i, parent[i])
			}
			first := parent[i-1] != parent[i]
			if first != (left[i] == 0) {
				t.Fatalf("run %d: left sibling flag of %d is %d", run, i, left[i])
			}
			if right[i] == 1 && (i+1 >= l.Size || parent[i+1] != parent[i]) {
				t.Fatalf("run %d: right sibling of %d does not exist", run, i)
			}
		}
	}
}

func TestCheckDetectsBrokenLayouts(t *testing.T) {
	l, err := Flatten(boxDocument(), boxSchema(), tokens.NewIDs())
	require.NoError(t, err)
	l.Parent()[5] = 0
	assert.ErrorIs(t, l.Check(), ErrLayout)
	l.Parent()[5] = 2
	l.Levels[1].Length = 3
	assert.ErrorIs(t, l.Check(), ErrLayout)
}
