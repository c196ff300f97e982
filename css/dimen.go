package css

import (
	"github.com/npillmayer/tyse/core/dimen"
)

const (
	dimenNone uint32 = 0

	dimenAbsolute uint32 = 0x0001
	dimenAuto     uint32 = 0x0002
	dimenInherit  uint32 = 0x0003
	dimenInitial  uint32 = 0x0004
	kindMask      uint32 = 0x000f
)

// DimenT is an option type for CSS dimensions.
type DimenT struct {
	d     dimen.DU
	flags uint32
}

/*
type DimenT
	= Auto
	| Inherit
	| Initial
	| JustDimen dimen
*/

func Auto() DimenT {
	return DimenT{flags: dimenAuto}
}

func Inherit() DimenT {
	return DimenT{flags: dimenInherit}
}

func Initial() DimenT {
	return DimenT{flags: dimenInitial}
}

// JustDimen creates a CSS dimension with a fixed value of x.
func JustDimen(x dimen.DU) DimenT {
	return DimenT{d: x, flags: dimenAbsolute}
}

// Points creates a fixed dimension from a value in points.
func Points(pt float64) DimenT {
	return JustDimen(dimen.DU(pt * float64(dimen.PT)))
}

// IsNone is true for the zero value.
func (d DimenT) IsNone() bool {
	return d.flags == dimenNone
}

// InPoints returns a fixed dimension in points. It is false for
// non-fixed dimensions.
func (d DimenT) InPoints() (float64, bool) {
	var du dimen.DU
	if m := d.Match(); m.Just(&du) != nil {
		return float64(du) / float64(dimen.PT), true
	}
	return 0, false
}

// ---------------------------------------------------------------------------

func (d DimenT) Match() *Matcher {
	return &Matcher{dimen: d}
}

type Matcher struct {
	dimen DimenT
}

func (m *Matcher) IsKind(d DimenT) *Matcher {
	if (m.dimen.flags & kindMask) == (d.flags & kindMask) {
		return m
	}
	return nil
}

func (m *Matcher) Just(du *dimen.DU) *Matcher {
	if m.dimen.flags&dimenAbsolute > 0 {
		if du != nil {
			*du = m.dimen.d
		}
		return m
	}
	return nil
}
