package dom

import (
	"strings"

	"github.com/npillmayer/sctree/css"
	"github.com/npillmayer/sctree/dom/style"
	"golang.org/x/net/html"
)

// HTMLChildren is the relation label of element children in documents
// derived from HTML.
const HTMLChildren = "children"

// FromHTML converts the elements of an HTML parse tree to a document.
// The tag name becomes the class, the "id" attribute the id. Other
// attributes are kept if they have a numeric reading. Element children
// go into a single list relation HTMLChildren; text, comments and the
// content of <style> and <script> are skipped.
//
// If h is a document node, its root element is converted. FromHTML returns
// nil if there is no element to convert.
func FromHTML(h *html.Node) *Node {
	for h != nil && h.Type != html.ElementNode {
		h = firstElement(h.FirstChild)
	}
	if h == nil {
		return nil
	}
	return fromElement(h)
}

func fromElement(h *html.Node) *Node {
	n := NewNode(h.Data)
	for _, a := range h.Attr {
		key := strings.ToLower(a.Key)
		if key == "id" {
			n.ID = a.Val
			continue
		}
		if v, err := css.ParseValue(style.Property(a.Val)); err == nil {
			n.Set(key, v.Float())
		}
	}
	var children []*Node
	for ch := firstElement(h.FirstChild); ch != nil; ch = firstElement(ch.NextSibling) {
		if ch.Data == "style" || ch.Data == "script" {
			continue
		}
		children = append(children, fromElement(ch))
	}
	if len(children) > 0 {
		n.Append(HTMLChildren, children...)
	}
	return n
}

// firstElement returns h or its first following sibling which is an element.
func firstElement(h *html.Node) *html.Node {
	for h != nil && h.Type != html.ElementNode {
		h = h.NextSibling
	}
	return h
}
