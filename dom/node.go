package dom

import "strings"

// Node is a node of an input document.
type Node struct {
	Class     string
	ID        string
	Attrs     []Attr
	Relations []Relation
}

// Attr is a numeric attribute of a node.
type Attr struct {
	Name  string
	Value float64
}

// Relation is a named edge from a node to its children. A single relation
// (Multi == false) holds exactly one child.
type Relation struct {
	Label    string
	Children []*Node
	Multi    bool
}

// NewNode creates a node of a class.
func NewNode(class string) *Node {
	return &Node{Class: class}
}

// WithID sets the id of a node.
func (n *Node) WithID(id string) *Node {
	n.ID = id
	return n
}

// Set sets an attribute, replacing an attribute of the same name.
func (n *Node) Set(name string, value float64) *Node {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// Attr returns the value of an attribute.
func (n *Node) Attr(name string) (float64, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return 0, false
}

// Child adds a single relation to n.
func (n *Node) Child(label string, child *Node) *Node {
	n.Relations = append(n.Relations, Relation{Label: label, Children: []*Node{child}})
	return n
}

// Append appends children to the list relation label, creating the relation
// if n does not have one.
func (n *Node) Append(label string, children ...*Node) *Node {
	for i := range n.Relations {
		if n.Relations[i].Label == label && n.Relations[i].Multi {
			n.Relations[i].Children = append(n.Relations[i].Children, children...)
			return n
		}
	}
	n.Relations = append(n.Relations, Relation{Label: label, Children: children, Multi: true})
	return n
}

// Relation returns the relation with a label, or nil.
func (n *Node) Relation(label string) *Relation {
	for i := range n.Relations {
		if strings.EqualFold(n.Relations[i].Label, label) {
			return &n.Relations[i]
		}
	}
	return nil
}

// ChildCount is the number of children across all relations.
func (n *Node) ChildCount() int {
	cnt := 0
	for _, r := range n.Relations {
		cnt += len(r.Children)
	}
	return cnt
}

// Walk calls f for n and all of its descendents, depth first, in relation
// order. Walk stops if f returns false.
func (n *Node) Walk(f func(*Node) bool) bool {
	if !f(n) {
		return false
	}
	for _, r := range n.Relations {
		for _, c := range r.Children {
			if !c.Walk(f) {
				return false
			}
		}
	}
	return true
}
