package css

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/npillmayer/sctree/dom/style"
)

// ErrBadValue is returned for property values without numeric reading.
var ErrBadValue = errors.New("bad property value")

// Kind tells how a value was written.
type Kind uint8

// Kinds of property values.
const (
	Number Kind = iota
	Color
	Dimension
)

// Value is a parsed property value.
type Value struct {
	Kind  Kind
	Raw   style.Property
	num   float64
	dimen DimenT
}

// ParseValue parses a raw property value.
func ParseValue(p style.Property) (Value, error) {
	s := strings.ToLower(strings.TrimSpace(string(p)))
	v := Value{Raw: p}
	if s == "" {
		return v, fmt.Errorf("%w: value is empty", ErrBadValue)
	}
	switch {
	case s[0] == '#':
		c, err := parseHex(s)
		if err != nil {
			return v, fmt.Errorf("%w: %v", ErrBadValue, err)
		}
		v.Kind, v.num = Color, float64(c)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		c, err := parseRGB(s)
		if err != nil {
			return v, fmt.Errorf("%w: %v", ErrBadValue, err)
		}
		v.Kind, v.num = Color, float64(c)
	case strings.HasSuffix(s, "pt"):
		x, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "pt")), 64)
		if err != nil {
			return v, fmt.Errorf("%w: dimension %q", ErrBadValue, s)
		}
		// the numeric reading is snapped to the DU grid of the dimension
		v.Kind, v.dimen = Dimension, Points(x)
		v.num, _ = v.dimen.InPoints()
	default:
		if c, ok := namedColors[s]; ok {
			v.Kind, v.num = Color, float64(c)
			break
		}
		x, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return v, fmt.Errorf("%w: %q is not a number", ErrBadValue, s)
		}
		v.Kind, v.num = Number, x
	}
	return v, nil
}

// Float is the numeric reading of a value.
func (v Value) Float() float64 {
	return v.num
}

// Dimen returns the dimension of a Dimension value.
func (v Value) Dimen() DimenT {
	return v.dimen
}

// IsIntegral is true if the value has no fractional part.
func (v Value) IsIntegral() bool {
	return v.num == math.Trunc(v.num)
}

// Largest magnitude for which every integer is exact in a float64.
const maxExactInt = 1 << 53

// Literal formats the value as a constant for C-like kernel source.
// Integral values of moderate magnitude print as integers, others as float
// literals with an 'f' suffix.
func (v Value) Literal() string {
	if v.IsIntegral() && math.Abs(v.num) < maxExactInt {
		return strconv.FormatInt(int64(v.num), 10)
	}
	return strconv.FormatFloat(v.num, 'g', -1, 32) + "f"
}

func (v Value) String() string {
	if v.Kind == Color {
		return ColorString(uint32(v.num))
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}
