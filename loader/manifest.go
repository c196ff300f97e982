package loader

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/tokens"
	"github.com/xeipuuv/gojsonschema"
)

// BufferInfo declares a buffer of a manifest.
type BufferInfo struct {
	Len  int    `json:"len"`
	Type string `json:"optTypeName"`
}

// Manifest describes a published tree.
//
// For chunked transfer, BuffersInfo declares every buffer and Summary lists
// the chunks. A non-chunked payload carries the deflated buffers in
// Buffers instead.
type Manifest struct {
	TreeSize     int                       `json:"tree_size"`
	Levels       []flat.Level              `json:"levels"`
	Tokens       []string                  `json:"tokens"`
	BufferLabels []string                  `json:"bufferLabels"`
	BuffersInfo  map[string]BufferInfo     `json:"buffersInfo,omitempty"`
	Summary      []sparse.ChunkInfo        `json:"summary,omitempty"`
	Codec        string                    `json:"codec,omitempty"`
	Buffers      map[string]*sparse.Sparse `json:"buffers,omitempty"`
}

//go:embed manifest.schema.json
var manifestSchemaJSON []byte

var manifestSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(manifestSchemaJSON))
})

// ParseManifest validates a manifest against the manifest schema and
// decodes it. It does not check consistency, see Check.
func ParseManifest(data []byte) (*Manifest, error) {
	sch, err := manifestSchema()
	if err != nil {
		return nil, err
	}
	res, err := sch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	if !res.Valid() {
		msgs := make([]string, len(res.Errors()))
		for i, e := range res.Errors() {
			msgs[i] = e.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrManifest, strings.Join(msgs, "; "))
	}
	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	return m, nil
}

// Check verifies that a manifest carries everything needed for loading,
// in chunked or non-chunked form.
func (m *Manifest) Check(chunked bool) error {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrManifest, fmt.Sprintf(format, args...))
	}
	switch {
	case len(m.BufferLabels) == 0:
		return fail("received no buffers")
	case m.TreeSize <= 0:
		return fail("no tree size")
	case len(m.Levels) == 0:
		return fail("no tree level info")
	case m.Tokens == nil:
		return fail("no tree token info")
	case chunked && len(m.Summary) == 0:
		return fail("no tree summary info")
	}
	n := 0
	for _, lv := range m.Levels {
		n += lv.Length
	}
	if n != m.TreeSize {
		return fail("levels cover %d nodes, tree has %d", n, m.TreeSize)
	}
	labels := make(map[string]bool, len(m.BufferLabels))
	for _, label := range m.BufferLabels {
		labels[label] = true
		if chunked {
			info, ok := m.BuffersInfo[label]
			if !ok {
				return fail("no info for buffer %s", label)
			}
			if info.Len != m.TreeSize {
				return fail("buffer %s has %d elements, tree has %d", label, info.Len, m.TreeSize)
			}
			if _, err := sparse.ParseElemType(info.Type); err != nil {
				return fail("buffer %s: %v", label, err)
			}
			continue
		}
		sp, ok := m.Buffers[label]
		if !ok || sp == nil {
			return fail("no payload for buffer %s", label)
		}
		if sp.Len != m.TreeSize {
			return fail("buffer %s has %d elements, tree has %d", label, sp.Len, m.TreeSize)
		}
	}
	if !chunked {
		return nil
	}
	seen := make(map[string]bool, len(m.Summary))
	for _, nfo := range m.Summary {
		if !labels[nfo.Label] {
			return fail("chunk %s targets unknown buffer %s", nfo.UniqueID, nfo.Label)
		}
		if seen[nfo.UniqueID] {
			return fail("duplicate chunk id %s", nfo.UniqueID)
		}
		seen[nfo.UniqueID] = true
	}
	return nil
}

// allocate creates a layout with zeroed buffers as declared in a chunked
// manifest.
func (m *Manifest) allocate() (*flat.Layout, error) {
	l := m.layout()
	for _, label := range m.BufferLabels {
		typ, _ := sparse.ParseElemType(m.BuffersInfo[label].Type) // checked
		if _, err := l.Alloc(label, typ); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (m *Manifest) layout() *flat.Layout {
	l := flat.NewLayout(m.TreeSize, tokens.NewIDs(m.Tokens...))
	l.Levels = append([]flat.Level(nil), m.Levels...)
	return l
}

// NewManifest describes the buffers of a layout. Chunk summary and
// payloads are left empty.
func NewManifest(l *flat.Layout) *Manifest {
	m := &Manifest{
		TreeSize:     l.Size,
		Levels:       append([]flat.Level(nil), l.Levels...),
		Tokens:       l.IDs.Strings(),
		BufferLabels: l.BufferNames(),
		BuffersInfo:  make(map[string]BufferInfo, len(l.Buffers)),
	}
	for _, label := range m.BufferLabels {
		b := l.Buffers[label]
		m.BuffersInfo[label] = BufferInfo{Len: b.Len(), Type: b.Type().String()}
	}
	return m
}
