/*
Package sparse implements a codec for mostly-zero numeric buffers.

Flattened trees carry one buffer per attribute, and most attributes are
unset for most nodes. Deflate scans a buffer and records long runs of
zeros by their length only, everything else as dense runs of literal
values. DeflateMT re-partitions the dense runs of a deflated buffer into
chunks of bounded size, so that chunks may be transferred and decoded
independently and in any order. Chunks of a buffer never overlap.

Buffers are typed. The element types mirror the typed arrays of the
payloads we exchange with clients:

    Int8Array  Uint8Array  Int16Array  Uint16Array
    Int32Array Uint32Array Float32Array Float64Array

Two wire formats are supported for sparse buffers and chunks: JSON, which
is what clients usually produce, and a compact binary format using
protobuf wire encoding.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package sparse

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'sctree.sparse'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.sparse")
}
