package schema

import (
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/sctree/sparse"
)

const boxes = `
interfaces:
  node:
    fields: { x: Float32, y: Float32 }
classes:
  root: { interface: node, children: [ top ] }
  box:  { interface: node, fields: { w: Float32, h: Float64Array }, children: [ kids ] }
properties:
  color: Int32
  opacity: Float32
`

func TestLoadSchema(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.dom")
	defer teardown()
	//
	s, err := Load(strings.NewReader(boxes))
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("fields = %v", s.Fields())
	if tok, ok := s.ClassToken("Box"); !ok || tok != 1 {
		t.Errorf("expected BOX to be tag token 1, is %d", tok)
	}
	if tok, _ := s.ClassToken("*"); tok != 0 {
		t.Errorf("expected wildcard to be tag token 0, is %d", tok)
	}
	if iface, _ := s.Interface("root"); iface != "node" {
		t.Errorf("expected ROOT to implement node, is %q", iface)
	}
	expect := map[string]sparse.ElemType{
		"fld_node_x":                        sparse.Float32,
		"fld_box_h":                         sparse.Float64,
		"fld_box_child_kids_leftmost_child": sparse.Int32,
		"fld_root_child_top_leftmost_child": sparse.Int32,
		"color":                             sparse.Int32,
	}
	for name, typ := range expect {
		if have, ok := s.Field(name); !ok || have != typ {
			t.Errorf("expected field %s of type %v, have %v (%v)", name, typ, have, ok)
		}
	}
}

func TestLoadSchemaRejectsUnknownTypes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.dom")
	defer teardown()
	//
	_, err := Load(strings.NewReader("properties: { x: Complex }"))
	if err == nil {
		t.Errorf("expected unknown element type to be rejected")
	}
}
