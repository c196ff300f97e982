package match

import (
	"errors"
	"fmt"

	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/selector"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/tokens"
	"github.com/npillmayer/sctree/traverse"
)

// ErrNoField is returned if a property written by a rule has no buffer.
var ErrNoField = errors.New("no buffer for property")

// Matcher matches the selectors of an index against the nodes of a
// layout. Steps for different nodes may run concurrently.
type Matcher struct {
	idx       *selector.Index
	parent    []int32
	left      []uint8
	ids       []int32
	tags      []int32
	selectors []int32
	apply     map[*selector.Candidate]func(n int)
}

// New binds an index to a layout.
func New(idx *selector.Index, l *flat.Layout) (*Matcher, error) {
	if err := l.Check(); err != nil {
		return nil, err
	}
	m := &Matcher{
		idx:    idx,
		parent: l.Parent(),
		left:   l.LeftSiblings(),
		ids:    l.IDTokens(),
		tags:   l.Tags(),
		apply:  make(map[*selector.Candidate]func(int), idx.Len()),
	}
	sel, err := l.Alloc(flat.BufSelectors, sparse.Int32)
	if err != nil {
		return nil, err
	}
	m.selectors, _ = sparse.Slice[int32](sel)
	for _, c := range idx.All() {
		writers := make([]func(int), len(c.Writes))
		for i, w := range c.Writes {
			b, ok := l.Buffer(w.Property)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNoField, w.Property)
			}
			writers[i] = writer(b, w.Value.Float())
		}
		m.apply[c] = func(n int) {
			for _, write := range writers {
				write(n)
			}
		}
	}
	tracer().Debugf("matcher for %d selectors bound to tree of size %d", idx.Len(), l.Size)
	return m, nil
}

// writer creates a closure setting a constant, with fast paths for the
// common buffer types.
func writer(b sparse.Buffer, x float64) func(int) {
	if s, ok := sparse.Slice[float32](b); ok {
		v := float32(x)
		return func(n int) { s[n] = v }
	}
	if s, ok := sparse.Slice[int32](b); ok {
		v := int32(int64(x))
		return func(n int) { s[n] = v }
	}
	return func(n int) { b.Set(n, x) }
}

// Step matches all candidates of node n and applies their writes. It
// returns the number of matching candidates.
func (m *Matcher) Step(n int) int {
	matches := 0
	m.idx.Each(tokens.Token(m.ids[n]), tokens.Token(m.tags[n]), func(c *selector.Candidate) {
		if m.Match(&c.Alternative, n) {
			m.apply[c](n)
			matches++
		}
	})
	m.selectors[n] = int32(matches)
	return matches
}

// Sweep adapts Step for traversal.
func (m *Matcher) Sweep() traverse.Step {
	return func(n int) error {
		m.Step(n)
		return nil
	}
}

// Run matches all nodes, in index order.
func (m *Matcher) Run() {
	for n := range m.ids {
		m.Step(n)
	}
}

// Selectors is the number of matching candidates per node, as of the last
// step for each node.
func (m *Matcher) Selectors() []int32 {
	return m.selectors
}

// Match tests a selector against node n, right to left.
func (m *Matcher) Match(alt *selector.Alternative, n int) bool {
	k := len(alt.Predicates) - 1
	if !m.test(alt.Predicates[k], n) {
		return false
	}
	if k == 0 {
		return true
	}
	if n == 0 {
		return false
	}
	cur := n
	for k--; k >= 0; k-- {
		pred := alt.Predicates[k]
		switch alt.Combinators[k] {
		case selector.Descendant:
			for {
				if cur == 0 {
					return false
				}
				cur = int(m.parent[cur])
				if m.test(pred, cur) {
					break
				}
			}
		case selector.Child:
			if cur == 0 {
				return false
			}
			cur = int(m.parent[cur])
			if !m.test(pred, cur) {
				return false
			}
		case selector.Adjacent:
			if m.left[cur] == 0 {
				return false
			}
			cur--
			if !m.test(pred, cur) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (m *Matcher) test(p selector.Predicate, n int) bool {
	return m.idx.Matches(p, tokens.Token(m.tags[n]), tokens.Token(m.ids[n]))
}
