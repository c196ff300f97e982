/*
Package flat flattens documents into a structure-of-arrays layout.

Every node of a document gets an index in [0, Size), assigned in
breadth-first order, starting with the root at 0. Node data lives in
parallel buffers, one per attribute, all indexed by node index:

    parent          Int32   index of the parent; -1 for the root
    left_siblings   Uint8   1 if the node is not the first child of its parent
    right_siblings  Int32   1 if the next node continues the same list relation, else 0
    id              Int32   id token
    displayname     Int32   tag token of the node's class

Further buffers are declared by the schema, see package dom/schema. A
node's attribute is stored in fld_<class>_<attr> or, if the class does not
declare it, in fld_<interface>_<attr>. Attributes for which neither field
exists are dropped, with a single trace message per attribute name. For
every relation of a node, field fld_<class>_child_<relation>_leftmost_child
holds the offset from the node to the first child of that relation.

The breadth-first tiers of the tree form levels. Levels partition
[0, Size); for each node but the root, parent[i] < i and the parent is
located in the preceding level.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package flat

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'sctree.flat'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.flat")
}
