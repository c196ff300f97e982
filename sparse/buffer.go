package sparse

import (
	"errors"
	"fmt"
)

// ErrUnknownType is returned for element type names we cannot allocate.
var ErrUnknownType = errors.New("unknown element type")

// ElemType is the element type of a buffer.
type ElemType uint8

// Supported element types.
const (
	Invalid ElemType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

var typeNames = [...]string{
	Invalid: "",
	Int8:    "Int8Array",
	Uint8:   "Uint8Array",
	Int16:   "Int16Array",
	Uint16:  "Uint16Array",
	Int32:   "Int32Array",
	Uint32:  "Uint32Array",
	Float32: "Float32Array",
	Float64: "Float64Array",
}

func (t ElemType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("ElemType(%d)", t)
}

// IsFloat is true for floating point element types.
func (t ElemType) IsFloat() bool {
	return t == Float32 || t == Float64
}

// ParseElemType returns the element type for a typed array name, e.g.
// "Float32Array". "Uint8ClampedArray" is accepted as Uint8.
func ParseElemType(name string) (ElemType, error) {
	if name == "Uint8ClampedArray" {
		return Uint8, nil
	}
	for t, n := range typeNames {
		if n != "" && n == name {
			return ElemType(t), nil
		}
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Number is the set of Go types backing a buffer.
type Number interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | float32 | float64
}

// Buffer is a typed, fixed-length numeric array.
//
// Element access goes through float64, which represents every value of
// every element type exactly. Writing to an integer buffer truncates and
// wraps like a C assignment, so a color 0xffrrggbb written to an Int32
// buffer keeps its bit pattern.
type Buffer interface {
	Type() ElemType
	Len() int
	At(i int) float64
	Set(i int, x float64)
}

// Array is the Buffer implementation for Go slices.
type Array[T Number] struct {
	Data []T
	typ  ElemType
}

// Make allocates a zeroed Array of length n.
func Make[T Number](n int) *Array[T] {
	return &Array[T]{Data: make([]T, n), typ: typeOf[T]()}
}

// Wrap makes an Array from a slice, without copying.
func Wrap[T Number](data []T) *Array[T] {
	return &Array[T]{Data: data, typ: typeOf[T]()}
}

// Type is part of interface Buffer.
func (a *Array[T]) Type() ElemType { return a.typ }

// Len is part of interface Buffer.
func (a *Array[T]) Len() int { return len(a.Data) }

// At is part of interface Buffer.
func (a *Array[T]) At(i int) float64 { return float64(a.Data[i]) }

// Set is part of interface Buffer.
func (a *Array[T]) Set(i int, x float64) {
	if a.typ.IsFloat() {
		a.Data[i] = T(x)
		return
	}
	a.Data[i] = T(int64(x))
}

func typeOf[T Number]() ElemType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Invalid
}

// Alloc allocates a zeroed buffer of a given element type and length.
func Alloc(typ ElemType, n int) (Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("sparse: negative buffer length %d", n)
	}
	switch typ {
	case Int8:
		return Make[int8](n), nil
	case Uint8:
		return Make[uint8](n), nil
	case Int16:
		return Make[int16](n), nil
	case Uint16:
		return Make[uint16](n), nil
	case Int32:
		return Make[int32](n), nil
	case Uint32:
		return Make[uint32](n), nil
	case Float32:
		return Make[float32](n), nil
	case Float64:
		return Make[float64](n), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownType, typ)
}

// Slice returns the backing slice of a buffer, if the buffer is an
// Array of element type T.
func Slice[T Number](b Buffer) ([]T, bool) {
	if a, ok := b.(*Array[T]); ok {
		return a.Data, true
	}
	return nil, false
}
