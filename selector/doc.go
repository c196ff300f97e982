/*
Package selector compiles style rules into a bucketed rule index.

Rule text has the form

    group, group { property: value; … }

repeated. A group is a sequence of predicates, joined by combinators:

    a b      descendant
    a > b    child
    a + b    adjacent sibling

A predicate is "tag#id", "#id" or "tag". Tag "*" matches any class, a
predicate without id matches any id. Tags are looked up in a schema,
upper-cased; ids are lower-cased and entered into an id token table.

Compiling yields an Index. Every group (an Alternative) is entered exactly
once, keyed by its rightmost predicate: into the id bucket if that predicate
has an id, else into the tag bucket if it has a tag, else into the universal
bucket. Each alternative carries a specificity

    (ids << 30) + (classes << 24) + (tags << 12) + definition index

where the definition index counts alternatives across the whole rule text.
Class selectors are not supported; the class term is always 0. Buckets are
sorted by ascending specificity.

The index is the common representation for matching backends, see packages
match and match/kernel. For a node, the candidates of its id bucket, its tag
bucket and the universal bucket are merged by ascending specificity; on
equal specificity tag candidates go first, then id candidates, then
universal ones. Later candidates overwrite property values of earlier
ones.

Errors found during compilation are reported as *Error, before any bucket
is built.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package selector

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'sctree.selector'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.selector")
}
