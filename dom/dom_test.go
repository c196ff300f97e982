package dom

import (
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const boxes = `{
  "class": "Root", "id": "R", "w": 100, "visible": true, "fill": "#ff0000",
  "children": {
    "top":  { "class": "Box", "h": "12pt" },
    "kids": [ { "class": "Box", "id": 7 }, { "class": "Box", "junk": "x", "deep": [1] } ],
    "aside": { "class": "Box" }
  }
}`

func TestDecodeKeepsRelationOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.dom")
	defer teardown()
	//
	doc, err := Decode(strings.NewReader(boxes))
	require.NoError(t, err)
	assert.Equal(t, "Root", doc.Class)
	assert.Equal(t, "R", doc.ID)
	require.Len(t, doc.Relations, 3)
	assert.Equal(t, "top", doc.Relations[0].Label)
	assert.False(t, doc.Relations[0].Multi)
	assert.Equal(t, "kids", doc.Relations[1].Label)
	assert.True(t, doc.Relations[1].Multi)
	assert.Len(t, doc.Relations[1].Children, 2)
	assert.Equal(t, "aside", doc.Relations[2].Label)
	assert.Equal(t, 4, doc.ChildCount())
	//
	w, _ := doc.Attr("w")
	assert.Equal(t, 100.0, w)
	vis, _ := doc.Attr("visible")
	assert.Equal(t, 1.0, vis)
	fill, _ := doc.Attr("fill")
	assert.Equal(t, float64(0xffff0000), fill)
	h, _ := doc.Relations[0].Children[0].Attr("h")
	assert.Equal(t, 12.0, h)
	assert.Equal(t, "7", doc.Relations[1].Children[0].ID)
	second := doc.Relations[1].Children[1]
	_, ok := second.Attr("junk")
	assert.False(t, ok, "expected unparseable attribute to be dropped")
	_, ok = second.Attr("deep")
	assert.False(t, ok, "expected structured attribute to be dropped")
}

func TestDecodeRejectsMalformedRelations(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.dom")
	defer teardown()
	//
	_, err := Decode(strings.NewReader(`{"class":"A","children":{"x":3}}`))
	assert.ErrorIs(t, err, ErrDocument)
	_, err = Decode(strings.NewReader(`[1,2]`))
	assert.Error(t, err)
}

func TestBuilder(t *testing.T) {
	n := NewNode("a").WithID("foo").Set("x", 1).Set("x", 2)
	n.Append("kids", NewNode("b")).Append("kids", NewNode("c")).Child("head", NewNode("d"))
	assert.Len(t, n.Attrs, 1)
	assert.Len(t, n.Relations, 2)
	assert.Len(t, n.Relation("KIDS").Children, 2)
	cnt := 0
	n.Walk(func(*Node) bool { cnt++; return true })
	assert.Equal(t, 4, cnt)
}

func TestFromHTML(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.dom")
	defer teardown()
	//
	h, err := html.Parse(strings.NewReader(`<html><head><style>p{x:1}</style></head>
<body><p id="First" width="3">Hello <b>World</b></p><p></p></body></html>`))
	require.NoError(t, err)
	doc := FromHTML(h)
	require.NotNil(t, doc)
	assert.Equal(t, "html", doc.Class)
	head := doc.Relation(HTMLChildren).Children[0]
	assert.Equal(t, "head", head.Class)
	assert.Equal(t, 0, head.ChildCount(), "expected <style> to be skipped")
	body := doc.Relation(HTMLChildren).Children[1]
	p := body.Relation(HTMLChildren).Children[0]
	assert.Equal(t, "First", p.ID)
	wd, _ := p.Attr("width")
	assert.Equal(t, 3.0, wd)
	assert.Equal(t, "b", p.Relation(HTMLChildren).Children[0].Class)
}
