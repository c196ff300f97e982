package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/sparse"
)

// Namespace is the default name space for chunk unique ids.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/npillmayer/sctree/chunks"))

// PublishOptions control how a layout is cut into chunks.
type PublishOptions struct {
	Codec            sparse.Codec // sparse.JSON if nil
	MinBlockSize     int          // zero selects sparse.DefaultMinBlockSize
	MinChunkElements int          // zero selects sparse.DefaultMinChunkElements
	Namespace        uuid.UUID    // name space for chunk ids; Namespace if zero
}

// Publish deflates all buffers of a layout into chunks and stores the
// chunks and the manifest describing them. The manifest is stored at root,
// chunks at their derived locators. Chunk ids are name-based UUIDs, so
// re-publishing a tree under the same root overwrites its chunks.
func Publish(ctx context.Context, l *flat.Layout, root string, sink ChunkSink,
	opts PublishOptions) (*Manifest, error) {
	//
	if err := l.Check(); err != nil {
		return nil, err
	}
	codec := opts.Codec
	if codec == nil {
		codec = sparse.JSON
	}
	ns := opts.Namespace
	if ns == uuid.Nil {
		ns = Namespace
	}
	m := NewManifest(l)
	m.Codec = codec.Name()
	for _, label := range m.BufferLabels {
		chunks := sparse.DeflateMT(l.Buffers[label], opts.MinBlockSize, opts.MinChunkElements)
		for _, c := range chunks {
			c.Label = label
			c.UniqueID = uuid.NewSHA1(ns, []byte(root+"/"+label+"/"+strconv.Itoa(c.Index))).String()
			payload, err := codec.Encode(c)
			if err != nil {
				return nil, fmt.Errorf("chunk %d of buffer %s: %w", c.Index, label, err)
			}
			if err := sink.Store(ctx, Locator(root, c.UniqueID), payload); err != nil {
				return nil, &ChunkError{Label: label, UniqueID: c.UniqueID, Stage: StageStore, Err: err}
			}
			m.Summary = append(m.Summary, c.Info())
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := sink.Store(ctx, root, data); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", root, err)
	}
	tracer().Debugf("published %d buffers in %d chunks at %s", len(m.BufferLabels), len(m.Summary), root)
	return m, nil
}

// Flat creates a non-chunked manifest carrying the deflated buffers of a
// layout.
func Flat(l *flat.Layout, minBlockSize int) (*Manifest, error) {
	if err := l.Check(); err != nil {
		return nil, err
	}
	m := NewManifest(l)
	m.BuffersInfo = nil
	m.Buffers = make(map[string]*sparse.Sparse, len(m.BufferLabels))
	for _, label := range m.BufferLabels {
		m.Buffers[label] = sparse.Deflate(l.Buffers[label], minBlockSize)
	}
	return m, nil
}
