package flat

import (
	"errors"
	"fmt"
	"sort"

	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/tokens"
)

// Names of structural buffers.
const (
	BufParent        = "parent"
	BufLeftSiblings  = "left_siblings"
	BufRightSiblings = "right_siblings"
	BufID            = "id"
	BufDisplayName   = "displayname"
	BufSelectors     = "selectors_buffer"
)

// Structural lists the structural buffers and their element types.
var Structural = []struct {
	Name string
	Type sparse.ElemType
}{
	{BufParent, sparse.Int32},
	{BufLeftSiblings, sparse.Uint8},
	{BufRightSiblings, sparse.Int32},
	{BufID, sparse.Int32},
	{BufDisplayName, sparse.Int32},
}

// ErrLayout is returned by Check for layouts violating the structural
// invariants.
var ErrLayout = errors.New("inconsistent layout")

// Level is a breadth-first tier of a flattened tree.
type Level struct {
	Start  int `json:"start_idx"`
	Length int `json:"length"`
}

// End is the index following the level.
func (lv Level) End() int {
	return lv.Start + lv.Length
}

// Layout is a flattened tree. Buffers are allocated once and mutated in
// place by traversals.
type Layout struct {
	Size    int
	Levels  []Level
	Buffers map[string]sparse.Buffer
	IDs     *tokens.Table  // id tokens
	Schema  *schema.Schema // may be nil for loaded layouts
}

// NewLayout creates a layout for size nodes with zeroed structural
// buffers.
func NewLayout(size int, ids *tokens.Table) *Layout {
	l := &Layout{
		Size:    size,
		Buffers: make(map[string]sparse.Buffer),
		IDs:     ids,
	}
	for _, s := range Structural {
		l.Alloc(s.Name, s.Type) // cannot fail for structural types
	}
	return l
}

// Alloc returns the buffer of a name. If it does not exist or has a
// different element type, a zeroed buffer is allocated.
func (l *Layout) Alloc(name string, typ sparse.ElemType) (sparse.Buffer, error) {
	if b, ok := l.Buffers[name]; ok && b.Type() == typ && b.Len() == l.Size {
		return b, nil
	}
	b, err := sparse.Alloc(typ, l.Size)
	if err != nil {
		return nil, fmt.Errorf("buffer %s: %w", name, err)
	}
	l.Buffers[name] = b
	return b, nil
}

// SetBuffer replaces a buffer. The buffer must have Size elements.
func (l *Layout) SetBuffer(name string, b sparse.Buffer) error {
	if b.Len() != l.Size {
		return fmt.Errorf("%w: buffer %s has %d elements, tree has %d", ErrLayout, name, b.Len(), l.Size)
	}
	l.Buffers[name] = b
	return nil
}

// Buffer returns a buffer by name.
func (l *Layout) Buffer(name string) (sparse.Buffer, bool) {
	b, ok := l.Buffers[name]
	return b, ok
}

// BufferNames returns the names of all buffers, sorted.
func (l *Layout) BufferNames() []string {
	names := make([]string, 0, len(l.Buffers))
	for n := range l.Buffers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func int32s(l *Layout, name string) []int32 {
	s, _ := sparse.Slice[int32](l.Buffers[name])
	return s
}

// Parent is the parent buffer.
func (l *Layout) Parent() []int32 { return int32s(l, BufParent) }

// RightSiblings is the right sibling offset buffer.
func (l *Layout) RightSiblings() []int32 { return int32s(l, BufRightSiblings) }

// IDTokens is the id token buffer.
func (l *Layout) IDTokens() []int32 { return int32s(l, BufID) }

// Tags is the tag token buffer.
func (l *Layout) Tags() []int32 { return int32s(l, BufDisplayName) }

// LeftSiblings is the left sibling flag buffer.
func (l *Layout) LeftSiblings() []uint8 {
	s, _ := sparse.Slice[uint8](l.Buffers[BufLeftSiblings])
	return s
}

// Check verifies the structural invariants of a layout: structural buffers
// are present with their proper types, all buffers have Size elements,
// levels partition [0,Size) and every node but the root has its parent in
// the preceding level.
func (l *Layout) Check() error {
	for _, s := range Structural {
		b, ok := l.Buffers[s.Name]
		if !ok || b.Type() != s.Type {
			return fmt.Errorf("%w: structural buffer %s missing or not of type %v", ErrLayout, s.Name, s.Type)
		}
	}
	for name, b := range l.Buffers {
		if b.Len() != l.Size {
			return fmt.Errorf("%w: buffer %s has %d elements, tree has %d", ErrLayout, name, b.Len(), l.Size)
		}
	}
	if l.Size == 0 {
		if len(l.Levels) != 0 {
			return fmt.Errorf("%w: levels for empty tree", ErrLayout)
		}
		return nil
	}
	next := 0
	for k, lv := range l.Levels {
		if lv.Start != next || lv.Length <= 0 {
			return fmt.Errorf("%w: level %d is [%d,%d), expected start %d", ErrLayout, k, lv.Start, lv.End(), next)
		}
		next = lv.End()
	}
	if next != l.Size || l.Levels[0].Length != 1 {
		return fmt.Errorf("%w: levels do not partition tree of size %d", ErrLayout, l.Size)
	}
	parent := l.Parent()
	if parent[0] != -1 {
		return fmt.Errorf("%w: root has parent %d", ErrLayout, parent[0])
	}
	for k := 1; k < len(l.Levels); k++ {
		prev, lv := l.Levels[k-1], l.Levels[k]
		for i := lv.Start; i < lv.End(); i++ {
			p := int(parent[i])
			if p < prev.Start || p >= prev.End() {
				return fmt.Errorf("%w: parent %d of node %d not in level %d", ErrLayout, p, i, k-1)
			}
			if i > lv.Start && p < int(parent[i-1]) {
				return fmt.Errorf("%w: node %d out of breadth-first order", ErrLayout, i)
			}
		}
	}
	return nil
}

// Depth is the number of levels.
func (l *Layout) Depth() int {
	return len(l.Levels)
}

// LevelOf returns the level of a node.
func (l *Layout) LevelOf(n int) int {
	return sort.Search(len(l.Levels), func(k int) bool { return l.Levels[k].End() > n })
}
