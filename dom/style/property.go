package style

/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/

import (
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"
)

// tracer will return a tracer. We are tracing to 'sctree.dom'
func tracer() tracing.Trace {
	return tracing.Select("sctree.dom")
}

// Property is a raw value for a style property. For example, with
//
//     x: 12.5
//
// a property value of "12.5" is set. Conversion to numbers is done by
// package css.
type Property string

// NullStyle is an empty property value.
const NullStyle Property = ""

func (p Property) String() string {
	return string(p)
}

// IsInitial denotes if a property is of inheritence-type "initial"
func (p Property) IsInitial() bool {
	return p == "initial"
}

// IsInherit denotes if a property is of inheritence-type "inherit"
func (p Property) IsInherit() bool {
	return p == "inherit"
}

// IsEmpty checks wether a property is empty, i.e. the null-string.
func (p Property) IsEmpty() bool {
	return strings.TrimSpace(string(p)) == ""
}

// KeyValue is a container for a style property.
type KeyValue struct {
	Key   string
	Value Property
}

// --- Declarations ----------------------------------------------------------

// Declarations is the ordered list of property settings of a rule.
// Keys are lower-cased. Setting a key twice keeps the position of the first
// setting and the value of the last one, as CSS does for repeated
// declarations within a block.
type Declarations struct {
	keys  []string
	props map[string]Property
}

// Len is the number of distinct keys.
func (d *Declarations) Len() int {
	return len(d.keys)
}

// Get a property's value.
func (d *Declarations) Get(key string) (Property, bool) {
	if d.props == nil {
		return NullStyle, false
	}
	p, ok := d.props[strings.ToLower(key)]
	return p, ok
}

// Set a property's value. Overwrites an existing value, if present.
func (d *Declarations) Set(key string, p Property) {
	key = strings.ToLower(strings.TrimSpace(key))
	if d.props == nil {
		d.props = make(map[string]Property)
	}
	if _, exists := d.props[key]; !exists {
		d.keys = append(d.keys, key)
	} else {
		tracer().Debugf("property %s set twice, last value wins", key)
	}
	d.props[key] = Property(strings.TrimSpace(string(p)))
}

// Add a property's value. Does not overwrite an existing value, i.e., does nothing
// if a value is already set.
func (d *Declarations) Add(key string, p Property) {
	if _, exists := d.Get(key); !exists {
		d.Set(key, p)
	}
}

// Properties returns all properties in declaration order.
func (d *Declarations) Properties() []KeyValue {
	r := make([]KeyValue, len(d.keys))
	for i, k := range d.keys {
		r[i] = KeyValue{k, d.props[k]}
	}
	return r
}

// Stringer for declarations; used for debugging.
func (d *Declarations) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, kv := range d.Properties() {
		if i > 0 {
			b.WriteString(";")
		}
		fmt.Fprintf(&b, " %s: %s", kv.Key, kv.Value)
	}
	b.WriteString(" }")
	return b.String()
}
