package sparse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ChunkInfo identifies a chunk and its destination buffer on the wire.
type ChunkInfo struct {
	UniqueID string `json:"uniqueID"`
	Label    string `json:"bufferLabel"`
	Index    int    `json:"index"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
}

// jsonSparse is the JSON shape of sparse buffers and chunks. Runs are
// keyed by their offset.
type jsonSparse struct {
	Len   int                  `json:"len"`
	Type  string               `json:"optTypeName"`
	Zeros map[string]int       `json:"zeros,omitempty"`
	Dense map[string][]float64 `json:"dense"`
	Min   *int                 `json:"min,omitempty"`
	Max   *int                 `json:"max,omitempty"`
	Info  *ChunkInfo           `json:"nfo,omitempty"`
}

func (sp *Sparse) toJSON() jsonSparse {
	js := jsonSparse{
		Len:   sp.Len,
		Type:  sp.Type.String(),
		Dense: make(map[string][]float64, len(sp.Dense)),
	}
	if len(sp.Zeros) > 0 {
		js.Zeros = make(map[string]int, len(sp.Zeros))
		for _, z := range sp.Zeros {
			js.Zeros[strconv.Itoa(z.Offset)] = z.Length
		}
	}
	for _, d := range sp.Dense {
		js.Dense[strconv.Itoa(d.Offset)] = d.Values
	}
	return js
}

func (sp *Sparse) fromJSON(js *jsonSparse) error {
	typ, err := ParseElemType(js.Type)
	if err != nil {
		return err
	}
	if js.Len < 0 {
		return fmt.Errorf("%w: negative length %d", ErrCorrupt, js.Len)
	}
	sp.Len, sp.Type = js.Len, typ
	sp.Zeros, sp.Dense = nil, nil
	for k, n := range js.Zeros {
		off, err := offset(k)
		if err != nil {
			return err
		}
		sp.Zeros = append(sp.Zeros, Run{Offset: off, Length: n})
	}
	for k, v := range js.Dense {
		off, err := offset(k)
		if err != nil {
			return err
		}
		if off+len(v) > sp.Len {
			return fmt.Errorf("%w: dense run at %d exceeds length %d", ErrCorrupt, off, sp.Len)
		}
		sp.Dense = append(sp.Dense, DenseRun{Offset: off, Values: v})
	}
	sort.Slice(sp.Zeros, func(i, j int) bool { return sp.Zeros[i].Offset < sp.Zeros[j].Offset })
	sort.Slice(sp.Dense, func(i, j int) bool { return sp.Dense[i].Offset < sp.Dense[j].Offset })
	return nil
}

func offset(key string) (int, error) {
	off, err := strconv.Atoi(key)
	if err != nil || off < 0 {
		return 0, fmt.Errorf("%w: bad run offset %q", ErrCorrupt, key)
	}
	return off, nil
}

// MarshalJSON encodes a sparse buffer.
func (sp *Sparse) MarshalJSON() ([]byte, error) {
	return json.Marshal(sp.toJSON())
}

// UnmarshalJSON decodes a sparse buffer.
func (sp *Sparse) UnmarshalJSON(data []byte) error {
	var js jsonSparse
	if err := json.Unmarshal(data, &js); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return sp.fromJSON(&js)
}

// Info returns the wire identification of a chunk.
func (c *Chunk) Info() ChunkInfo {
	return ChunkInfo{UniqueID: c.UniqueID, Label: c.Label, Index: c.Index, Min: c.Min, Max: c.Max}
}

// MarshalJSON encodes a chunk.
func (c *Chunk) MarshalJSON() ([]byte, error) {
	js := c.Sparse.toJSON()
	info := c.Info()
	js.Min, js.Max, js.Info = &info.Min, &info.Max, &info
	return json.Marshal(js)
}

// UnmarshalJSON decodes a chunk. The covered range is re-computed from
// the dense runs; a payload claiming a different range is corrupt.
func (c *Chunk) UnmarshalJSON(data []byte) error {
	var js jsonSparse
	if err := json.Unmarshal(data, &js); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := c.Sparse.fromJSON(&js); err != nil {
		return err
	}
	c.Min, c.Max = c.Bounds()
	if js.Min != nil && len(c.Dense) > 0 && (*js.Min != c.Min || *js.Max != c.Max) {
		return fmt.Errorf("%w: chunk claims range [%d,%d), covers [%d,%d)",
			ErrCorrupt, *js.Min, *js.Max, c.Min, c.Max)
	}
	if js.Info != nil {
		c.UniqueID, c.Label, c.Index = js.Info.UniqueID, js.Info.Label, js.Info.Index
	}
	return nil
}

// --- Codecs ----------------------------------------------------------------

// Codec encodes and decodes chunks for transfer.
type Codec interface {
	Name() string
	Encode(*Chunk) ([]byte, error)
	Decode([]byte) (*Chunk, error)
}

// JSON is the JSON chunk codec.
var JSON Codec = jsonCodec{}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(c *Chunk) ([]byte, error) {
	return json.Marshal(c)
}

func (jsonCodec) Decode(data []byte) (*Chunk, error) {
	c := &Chunk{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CodecByName returns the codec for "json" or "binary".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "binary", "protowire":
		return Binary, nil
	}
	return nil, fmt.Errorf("sparse: no codec named %q", name)
}
