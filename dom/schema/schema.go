/*
Package schema describes the grammar of input documents: which classes
(node types) exist, which interface a class implements, and which field
buffers are declared.

The schema is the collaborator both the tree flattener and the selector
compiler consult for tag tokens. Tag names are case-insensitive and are
looked up upper-cased. Token 0 is reserved for the wildcard tag "*".

Field buffers are named by convention:

    fld_<class>_<attribute>                     attribute of a class
    fld_<interface>_<attribute>                 attribute shared by an interface
    fld_<class>_child_<relation>_leftmost_child relative offset of a relation's first child

Property buffers written by style rules carry the plain property name.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package schema

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/tokens"
	"gopkg.in/yaml.v3"
)

// tracer traces with key 'sctree.dom'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.dom")
}

// Wildcard is the tag name matching every class. It always has token 0.
const Wildcard = "*"

// Schema holds classes and declared fields.
type Schema struct {
	tags   *tokens.Table
	ifaces map[string]string // CLASS → interface, lower-case
	fields map[string]sparse.ElemType
}

// New creates an empty schema.
func New() *Schema {
	return &Schema{
		tags:   tokens.New(tokens.Upper, Wildcard),
		ifaces: make(map[string]string),
		fields: make(map[string]sparse.ElemType),
	}
}

// DeclareClass enters a class and returns its tag token. iface may be empty.
func (s *Schema) DeclareClass(name, iface string) tokens.Token {
	tok := s.tags.Intern(name)
	if iface != "" {
		s.ifaces[strings.ToUpper(name)] = strings.ToLower(iface)
	}
	return tok
}

// DeclareField declares a field buffer.
func (s *Schema) DeclareField(name string, typ sparse.ElemType) {
	s.fields[strings.ToLower(name)] = typ
}

// Tags is the tag token table.
func (s *Schema) Tags() *tokens.Table {
	return s.tags
}

// ClassToken returns the tag token for a class name, case-insensitively.
func (s *Schema) ClassToken(class string) (tokens.Token, bool) {
	return s.tags.Lookup(class)
}

// Interface returns the interface of a class.
func (s *Schema) Interface(class string) (string, bool) {
	iface, ok := s.ifaces[strings.ToUpper(class)]
	return iface, ok
}

// Field returns the element type of a declared field.
func (s *Schema) Field(name string) (sparse.ElemType, bool) {
	typ, ok := s.fields[strings.ToLower(name)]
	return typ, ok
}

// Fields returns the names of all declared fields, sorted.
func (s *Schema) Fields() []string {
	names := make([]string, 0, len(s.fields))
	for n := range s.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FieldName is the buffer name of an attribute of a class or interface.
func FieldName(owner, attr string) string {
	return "fld_" + strings.ToLower(owner) + "_" + strings.ToLower(attr)
}

// RelationField is the buffer name holding the relative offset from a node
// of class to the first child of a relation.
func RelationField(class, relation string) string {
	return "fld_" + strings.ToLower(class) + "_child_" + strings.ToLower(relation) + "_leftmost_child"
}

// --- YAML ------------------------------------------------------------------

// declaration is the YAML shape of a schema:
//
//	interfaces:
//	  node: { fields: { x: Float32 } }
//	classes:
//	  box: { interface: node, fields: { w: Float32 }, children: [ kids ] }
//	properties:
//	  color: Int32
type declaration struct {
	Interfaces map[string]struct {
		Fields map[string]string `yaml:"fields"`
	} `yaml:"interfaces"`
	Classes map[string]struct {
		Interface string            `yaml:"interface"`
		Fields    map[string]string `yaml:"fields"`
		Children  []string          `yaml:"children"`
	} `yaml:"classes"`
	Properties map[string]string `yaml:"properties"`
}

// Load reads a schema from YAML. Classes get tag tokens in alphabetical
// order, so equal schema files always produce equal token tables.
func Load(r io.Reader) (*Schema, error) {
	var decl declaration
	if err := yaml.NewDecoder(r).Decode(&decl); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	s := New()
	declare := func(name, typename string) error {
		typ, err := sparse.ParseElemType(typename)
		if err != nil {
			typ, err = sparse.ParseElemType(typename + "Array")
		}
		if err != nil {
			return fmt.Errorf("schema: field %s: %w", name, err)
		}
		s.DeclareField(name, typ)
		return nil
	}
	for _, iface := range sortedKeys(decl.Interfaces) {
		for attr, typ := range decl.Interfaces[iface].Fields {
			if err := declare(FieldName(iface, attr), typ); err != nil {
				return nil, err
			}
		}
	}
	for _, class := range sortedKeys(decl.Classes) {
		c := decl.Classes[class]
		s.DeclareClass(class, c.Interface)
		for attr, typ := range c.Fields {
			if err := declare(FieldName(class, attr), typ); err != nil {
				return nil, err
			}
		}
		for _, rel := range c.Children {
			s.DeclareField(RelationField(class, rel), sparse.Int32)
		}
	}
	for prop, typ := range decl.Properties {
		if err := declare(prop, typ); err != nil {
			return nil, err
		}
	}
	tracer().Debugf("schema with %d classes and %d fields loaded", s.tags.Len()-1, len(s.fields))
	return s, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
