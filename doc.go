/*
Package sctree matches CSS-like selectors against large trees and applies
property values to the matching nodes, level by level.

Trees are flattened into a structure-of-arrays layout (package flat):
nodes are numbered breadth-first, and every structural relation and every
attribute lives in a typed buffer indexed by node number. Selector rules
are compiled into a bucketed index (package selector), which either drives
a direct matcher (package match) or is emitted as kernel source for an
accelerator (package match/kernel). Flattened trees may be published as
chunked sparse buffers and loaded in parallel (packages sparse and loader).
Traversals run a step function over all nodes of a level before the next
level starts (package traverse).

A Session bundles the schema and the id token table all of these steps
have to agree on.

    sess := sctree.NewSession(schema)
    layout, _ := sess.Flatten(doc)
    idx, _ := sess.Compile(`box { w: 10 } box#top > box { w: 20 }`)
    _, err := sess.Style(ctx, idx, layout)

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package sctree
