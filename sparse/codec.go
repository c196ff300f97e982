package sparse

import (
	"errors"
	"fmt"
)

// Defaults for the block and chunk thresholds.
const (
	DefaultMinBlockSize     = 64
	DefaultMinChunkElements = 1000
)

// ErrCorrupt flags a sparse payload which does not fit its declared
// shape.
var ErrCorrupt = errors.New("corrupt sparse payload")

// Run is a run of zeros.
type Run struct {
	Offset int
	Length int
}

// DenseRun is a run of literal values.
type DenseRun struct {
	Offset int
	Values []float64
}

// End is the offset following the run.
func (d DenseRun) End() int {
	return d.Offset + len(d.Values)
}

// Sparse is a deflated buffer. Zero runs and dense runs are ordered by
// offset. Zero runs are informational: inflating writes dense runs into
// zeroed storage.
type Sparse struct {
	Len   int
	Type  ElemType
	Zeros []Run
	Dense []DenseRun
}

// Deflate compresses a buffer. Runs of at least minBlockSize zeros are
// recorded as zero runs, everything else goes into dense runs of at most
// minBlockSize elements. A dense run stops early where a qualifying zero
// run starts. minBlockSize <= 0 selects DefaultMinBlockSize.
func Deflate(b Buffer, minBlockSize int) *Sparse {
	if minBlockSize <= 0 {
		minBlockSize = DefaultMinBlockSize
	}
	n := b.Len()
	sp := &Sparse{Len: n, Type: b.Type()}
	zeros := zeroRuns(b)
	for i := 0; i < n; {
		if zeros[i] >= minBlockSize {
			sp.Zeros = append(sp.Zeros, Run{Offset: i, Length: zeros[i]})
			i += zeros[i]
			continue
		}
		end := min(n, i+minBlockSize)
		j := i + 1
		for ; j < end; j++ {
			if zeros[j] >= minBlockSize {
				break
			}
		}
		values := make([]float64, j-i)
		for k := range values {
			values[k] = b.At(i + k)
		}
		sp.Dense = append(sp.Dense, DenseRun{Offset: i, Values: values})
		i = j
	}
	tracer().Debugf("deflated %d elements into %d dense and %d zero runs", n, len(sp.Dense), len(sp.Zeros))
	return sp
}

// zeroRuns returns for every position the length of the zero run starting
// there.
func zeroRuns(b Buffer) []int {
	n := b.Len()
	runs := make([]int, n+1)
	for i := n - 1; i >= 0; i-- {
		if b.At(i) == 0 {
			runs[i] = runs[i+1] + 1
		}
	}
	return runs
}

// Inflate allocates a zeroed buffer of the declared length and type and
// copies the dense runs into it.
func Inflate(sp *Sparse) (Buffer, error) {
	b, err := Alloc(sp.Type, sp.Len)
	if err != nil {
		return nil, err
	}
	if err := sp.ScatterInto(b, 0); err != nil {
		return nil, err
	}
	return b, nil
}

// ScatterInto writes the dense runs into dst. offset is the buffer position
// corresponding to dst[0]; for whole buffers it is 0. Runs which do not fit
// into dst are reported as ErrCorrupt, before anything is written.
func (sp *Sparse) ScatterInto(dst Buffer, offset int) error {
	for _, d := range sp.Dense {
		if d.Offset-offset < 0 || d.End()-offset > dst.Len() {
			return fmt.Errorf("%w: run [%d,%d) outside of buffer of length %d",
				ErrCorrupt, d.Offset, d.End(), dst.Len())
		}
	}
	for _, d := range sp.Dense {
		start := d.Offset - offset
		for k, x := range d.Values {
			dst.Set(start+k, x)
		}
	}
	return nil
}

// Bounds returns the range [min,max) covered by the dense runs.
// An empty Sparse has bounds [0,0).
func (sp *Sparse) Bounds() (lo, hi int) {
	if len(sp.Dense) == 0 {
		return 0, 0
	}
	lo, hi = sp.Dense[0].Offset, sp.Dense[0].End()
	for _, d := range sp.Dense[1:] {
		lo = min(lo, d.Offset)
		hi = max(hi, d.End())
	}
	return
}

// --- Chunks ----------------------------------------------------------------

// Chunk is a fragment of a deflated buffer. Only the first chunk of a
// buffer carries the zero runs; every chunk knows the length and type of
// the whole buffer and the range [Min,Max) its dense runs cover.
type Chunk struct {
	Sparse
	Index    int    // position in the sequence of chunks of a buffer
	Label    string // name of the destination buffer
	UniqueID string // identifies the chunk for transfer
	Min, Max int
}

// DeflateMT deflates a buffer and re-partitions the dense runs into
// chunks. A chunk accumulates runs until it holds minChunkElements values;
// a run straddling this boundary is split at the exact cut point. The
// first chunk is always present, even for an all-zero buffer.
// minChunkElements <= 0 selects DefaultMinChunkElements.
func DeflateMT(b Buffer, minBlockSize, minChunkElements int) []*Chunk {
	if minChunkElements <= 0 {
		minChunkElements = DefaultMinChunkElements
	}
	sp := Deflate(b, minBlockSize)
	newChunk := func(i int) *Chunk {
		return &Chunk{Sparse: Sparse{Len: sp.Len, Type: sp.Type}, Index: i}
	}
	chunk := newChunk(0)
	chunk.Zeros = sp.Zeros
	chunks := []*Chunk{chunk}
	count := 0
	queue := append([]DenseRun(nil), sp.Dense...)
	for len(queue) > 0 {
		run := queue[0]
		queue = queue[1:]
		if count+len(run.Values) < minChunkElements {
			count += len(run.Values)
			chunk.Dense = append(chunk.Dense, run)
			continue
		}
		cut := minChunkElements - count
		chunk.Dense = append(chunk.Dense, DenseRun{Offset: run.Offset, Values: run.Values[:cut]})
		if cut < len(run.Values) {
			post := DenseRun{Offset: run.Offset + cut, Values: run.Values[cut:]}
			queue = append([]DenseRun{post}, queue...)
		}
		count = 0
		if len(queue) > 0 {
			chunk = newChunk(len(chunks))
			chunks = append(chunks, chunk)
		}
	}
	for _, c := range chunks {
		c.Min, c.Max = c.Bounds()
	}
	tracer().Debugf("buffer of %d elements split into %d chunks", sp.Len, len(chunks))
	return chunks
}

// Assemble allocates a buffer for the chunks of one deflated buffer and
// scatters all chunks into it. Chunks may come in any order.
func Assemble(chunks []*Chunk) (Buffer, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks", ErrCorrupt)
	}
	b, err := Alloc(chunks[0].Type, chunks[0].Len)
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		if c.Type != b.Type() || c.Len != b.Len() {
			return nil, fmt.Errorf("%w: chunk %d does not belong to buffer", ErrCorrupt, c.Index)
		}
		if err := c.ScatterInto(b, 0); err != nil {
			return nil, err
		}
	}
	return b, nil
}
