package flat

import (
	"errors"
	"strings"

	"github.com/npillmayer/sctree/dom"
	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/tokens"
)

// Errors for missing collaborators.
var (
	ErrNoSchema   = errors.New("flattening needs a schema")
	ErrNoTokens   = errors.New("flattening needs an id token table")
	ErrNoDocument = errors.New("no document to flatten")
)

// TreeSize counts the nodes of a document.
func TreeSize(doc *dom.Node) int {
	if doc == nil {
		return 0
	}
	size := 0
	doc.Walk(func(*dom.Node) bool {
		size++
		return true
	})
	return size
}

// Flatten flattens a document. Buffers are allocated for all structural
// fields and all fields declared in sch. Ids are entered into ids.
//
// Flatten is lenient about documents not matching the schema: unknown
// classes get tag token 0, attributes and relations without a field are
// dropped. Each such problem is traced once per flattening.
func Flatten(doc *dom.Node, sch *schema.Schema, ids *tokens.Table) (*Layout, error) {
	if sch == nil {
		return nil, ErrNoSchema
	}
	if ids == nil {
		return nil, ErrNoTokens
	}
	if doc == nil {
		return nil, ErrNoDocument
	}
	f := &flattener{
		layout: NewLayout(TreeSize(doc), ids),
		schema: sch,
		warned: make(map[string]bool),
	}
	f.layout.Schema = sch
	for _, name := range sch.Fields() {
		typ, _ := sch.Field(name)
		if _, err := f.layout.Alloc(name, typ); err != nil {
			return nil, err
		}
	}
	f.parent = f.layout.Parent()
	f.left = f.layout.LeftSiblings()
	f.right = f.layout.RightSiblings()
	f.ids = f.layout.IDTokens()
	f.tags = f.layout.Tags()
	f.noID = int32(ids.NoID())
	f.run(doc)
	tracer().Debugf("flattened tree of %d nodes into %d levels", f.layout.Size, len(f.layout.Levels))
	return f.layout, nil
}

type flattener struct {
	layout *Layout
	schema *schema.Schema
	parent []int32
	left   []uint8
	right  []int32
	ids    []int32
	tags   []int32
	noID   int32
	warned map[string]bool
}

// run assigns indices level by level. While a level is processed, the
// children of its nodes are collected as the next level.
func (f *flattener) run(root *dom.Node) {
	level := []*dom.Node{root}
	f.parent[0] = -1
	abs := 0
	for len(level) > 0 {
		f.layout.Levels = append(f.layout.Levels, Level{Start: abs, Length: len(level)})
		leftmost := abs + len(level)
		var next []*dom.Node
		for _, node := range level {
			f.edges(node, abs, leftmost)
			f.node(node, abs)
			for _, r := range node.Relations {
				next = append(next, r.Children...)
				leftmost += len(r.Children)
			}
			abs++
		}
		level = next
	}
}

// edges sets the structural fields of the children of node, which will be
// located at leftmost and following indices.
func (f *flattener) edges(node *dom.Node, abs, leftmost int) {
	roll := 0
	for _, r := range node.Relations {
		fld := schema.RelationField(node.Class, r.Label)
		if b, ok := f.layout.Buffers[fld]; ok {
			if len(r.Children) > 0 {
				b.Set(abs, float64(leftmost+roll-abs))
			}
		} else {
			f.warnOnce(fld, "relation %s of class %s has no field %s, dropped", r.Label, node.Class, fld)
		}
		for ci := range r.Children {
			child := leftmost + roll + ci
			f.parent[child] = int32(abs)
			if roll+ci > 0 {
				f.left[child] = 1
			}
			if r.Multi && ci < len(r.Children)-1 {
				f.right[child] = 1
			}
		}
		roll += len(r.Children)
	}
}

// node sets class, id and attributes of a node.
func (f *flattener) node(node *dom.Node, abs int) {
	if tok, ok := f.schema.ClassToken(node.Class); ok && node.Class != schema.Wildcard {
		f.tags[abs] = int32(tok)
	} else {
		f.warnOnce("class "+node.Class, "class %q unknown to schema, using tag token 0", node.Class)
	}
	f.ids[abs] = f.noID
	if node.ID != "" {
		f.ids[abs] = int32(f.layout.IDs.Intern(strings.ToLower(node.ID)))
	}
	iface, _ := f.schema.Interface(node.Class)
	for _, a := range node.Attrs {
		name := strings.ToLower(a.Name)
		if strings.Contains(name, "_") {
			f.warnOnce("_"+a.Name, "stripping '_' from attribute %s", a.Name)
			name = strings.ReplaceAll(name, "_", "")
		}
		if b := f.field(node.Class, iface, name); b != nil {
			b.Set(abs, a.Value)
			continue
		}
		f.warnOnce(name, "no field for attribute %s in schema, tried class %s and interface %q", name, node.Class, iface)
	}
}

func (f *flattener) field(class, iface, attr string) sparse.Buffer {
	if b, ok := f.layout.Buffers[schema.FieldName(class, attr)]; ok {
		return b
	}
	if iface != "" {
		if b, ok := f.layout.Buffers[schema.FieldName(iface, attr)]; ok {
			return b
		}
	}
	return nil
}

func (f *flattener) warnOnce(key, format string, args ...interface{}) {
	if f.warned[key] {
		return
	}
	f.warned[key] = true
	tracer().Infof("flattener: "+format, args...)
}
