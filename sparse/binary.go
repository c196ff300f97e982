package sparse

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Binary is the compact chunk codec. It uses protobuf wire encoding
// without a generated message type:
//
//	1 len        varint
//	2 type       varint (ElemType)
//	3 zeros      repeated message { 1 offset varint, 2 length varint }
//	4 dense      repeated message { 1 offset varint, 2 values packed fixed64 }
//	5 index      varint
//	6 label      string
//	7 uniqueID   string
//
// Values are stored as IEEE-754 float64 bits.
var Binary Codec = binaryCodec{}

type binaryCodec struct{}

func (binaryCodec) Name() string { return "binary" }

func (binaryCodec) Encode(c *Chunk) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Len))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Type))
	for _, z := range c.Zeros {
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(z.Offset))
		m = protowire.AppendTag(m, 2, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(z.Length))
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	for _, d := range c.Dense {
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(d.Offset))
		packed := make([]byte, 0, 8*len(d.Values))
		for _, x := range d.Values {
			packed = protowire.AppendFixed64(packed, math.Float64bits(x))
		}
		m = protowire.AppendTag(m, 2, protowire.BytesType)
		m = protowire.AppendBytes(m, packed)
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Index))
	b = protowire.AppendTag(b, 6, protowire.BytesType)
	b = protowire.AppendString(b, c.Label)
	b = protowire.AppendTag(b, 7, protowire.BytesType)
	b = protowire.AppendString(b, c.UniqueID)
	return b, nil
}

func (binaryCodec) Decode(b []byte) (*Chunk, error) {
	c := &Chunk{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, corrupt(protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, corrupt(protowire.ParseError(n))
			}
			c.Len, b = int(v), b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, corrupt(protowire.ParseError(n))
			}
			c.Type, b = ElemType(v), b[n:]
		case num == 3 && typ == protowire.BytesType:
			m, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, corrupt(protowire.ParseError(n))
			}
			fields, err := consumeVarints(m)
			if err != nil {
				return nil, err
			}
			c.Zeros, b = append(c.Zeros, Run{Offset: int(fields[1]), Length: int(fields[2])}), b[n:]
		case num == 4 && typ == protowire.BytesType:
			m, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, corrupt(protowire.ParseError(n))
			}
			d, err := consumeDense(m)
			if err != nil {
				return nil, err
			}
			c.Dense, b = append(c.Dense, d), b[n:]
		case num == 5 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, corrupt(protowire.ParseError(n))
			}
			c.Index, b = int(v), b[n:]
		case (num == 6 || num == 7) && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, corrupt(protowire.ParseError(n))
			}
			if num == 6 {
				c.Label = s
			} else {
				c.UniqueID = s
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, corrupt(protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if c.Type == Invalid || c.Type > Float64 {
		return nil, fmt.Errorf("%w: %v", ErrUnknownType, c.Type)
	}
	for _, d := range c.Dense {
		if d.End() > c.Len {
			return nil, fmt.Errorf("%w: dense run at %d exceeds length %d", ErrCorrupt, d.Offset, c.Len)
		}
	}
	c.Min, c.Max = c.Bounds()
	return c, nil
}

func consumeVarints(m []byte) (map[protowire.Number]uint64, error) {
	fields := make(map[protowire.Number]uint64, 2)
	for len(m) > 0 {
		num, typ, n := protowire.ConsumeTag(m)
		if n < 0 {
			return nil, corrupt(protowire.ParseError(n))
		}
		if typ != protowire.VarintType {
			return nil, corrupt(fmt.Errorf("unexpected wire type %d in zero run", typ))
		}
		m = m[n:]
		v, n := protowire.ConsumeVarint(m)
		if n < 0 {
			return nil, corrupt(protowire.ParseError(n))
		}
		fields[num], m = v, m[n:]
	}
	return fields, nil
}

func consumeDense(m []byte) (DenseRun, error) {
	var d DenseRun
	for len(m) > 0 {
		num, typ, n := protowire.ConsumeTag(m)
		if n < 0 {
			return d, corrupt(protowire.ParseError(n))
		}
		m = m[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(m)
			if n < 0 {
				return d, corrupt(protowire.ParseError(n))
			}
			d.Offset, m = int(v), m[n:]
		case num == 2 && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(m)
			if n < 0 || len(packed)%8 != 0 {
				return d, corrupt(fmt.Errorf("packed values of %d bytes", len(packed)))
			}
			d.Values = make([]float64, 0, len(packed)/8)
			for len(packed) > 0 {
				bits, k := protowire.ConsumeFixed64(packed)
				if k < 0 {
					return d, corrupt(protowire.ParseError(k))
				}
				d.Values, packed = append(d.Values, math.Float64frombits(bits)), packed[k:]
			}
			m = m[n:]
		default:
			return d, corrupt(fmt.Errorf("unexpected field %d in dense run", num))
		}
	}
	return d, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", ErrCorrupt, err)
}
