/*
Package dom holds the nested input documents which are flattened for
styling and layout.

A document is a tree of nodes. Every node has a class, an optional id,
numeric attributes and an ordered list of named child relations. A relation
either holds a single child or an ordered list of children. Relation order
is significant: it determines the breadth-first order of the flattened
tree, which is why decoding from JSON keeps the order of keys as they
appear in the input:

    { "class": "Root", "id": "r", "w": 100,
      "children": {
        "top":  { "class": "Box" },
        "kids": [ { "class": "Box" }, { "class": "Box", "h": "12pt" } ] } }

Attribute values are numbers. JSON strings are read through package css,
so colors and point dimensions are accepted; booleans read as 0 and 1.
Values without a numeric reading are dropped with a trace message.

Documents may also be derived from HTML, see FromHTML.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package dom

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'sctree.dom'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.dom")
}
