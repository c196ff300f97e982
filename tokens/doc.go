/*
Package tokens provides token tables: bidirectional mappings between strings
and small dense integers.

Token tables are used for tag names and for id strings of document nodes.
Both the tree flattener and the selector compiler translate names into
tokens, and they have to agree on the numbering. A table is therefore owned
by the calling session and handed to every component explicitly; there is
no process-wide table.

Tables grow monotonically. Tokens, once handed out, are never re-assigned.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package tokens

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'sctree.tokens'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.tokens")
}
