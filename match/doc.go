/*
Package match applies a compiled selector index to a flattened tree.

A Matcher binds the property writes of every candidate of an index to the
buffers of a layout. Step(n) then runs the merged candidate stream for
node n: every candidate whose selector matches n writes its properties,
candidates later in the stream overwriting values of earlier ones. The
number of matching candidates is stored in buffer "selectors_buffer".

Selectors are matched right to left. Descendant combinators follow the
parent chain up to the root, child combinators step to the parent once,
adjacent sibling combinators step to the preceding node if it is a sibling.
A selector with more than one predicate never matches the root.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package match

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'sctree.match'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.match")
}
