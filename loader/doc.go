/*
Package loader transfers flattened trees as chunked sparse buffers.

A published tree consists of a manifest and a set of chunks. The manifest
names the tree size, its levels, the id token table and the buffers with
their lengths and element types; for chunked transfer it lists a summary
entry per chunk. Chunks are located relative to the manifest: the
manifest's locator without its ".json" suffix, followed by the chunk's
unique id and ".json".

    tree.json  →  tree<uniqueID>.json

Loading allocates every buffer up front and then fetches, decodes and
scatters chunks with a bounded number of workers. Chunks of a buffer cover
disjoint ranges, so workers write into the shared buffers without locks.
A load reports its outcome exactly once; the first failure cancels all
outstanding work.

Chunks may come from a directory, an HTTP server, Redis or a PostgreSQL
table. Publish writes a layout to a matching sink.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package loader

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'sctree.loader'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.loader")
}
