/*
Package kernel emits OpenCL-style kernel source for a selector index.

The generated source does what a match.Matcher does, for targets without
associative containers: buckets become switch statements over tokens,
every candidate gets a pair of functions matchSelector<Bucket>_<token>_<j>
and applySelector<Bucket>_<token>_<j>, and an entry point per pass merges
the candidate streams of a node by specificity:

    __kernel void style(unsigned int start_idx, unsigned int tree_size, …)

One work item handles node get_global_id(0) + start_idx; work items past
tree_size return at once. Buffers are passed as arguments buf_<name> and
accessed through macros <name>(i).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package kernel

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"

	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/selector"
	"github.com/npillmayer/sctree/sparse"
	"github.com/npillmayer/sctree/tokens"
)

// tracer traces with key 'sctree.match'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.match")
}

// ErrName is returned for pass names which are not identifiers.
var ErrName = errors.New("pass name is not an identifier")

// Options for kernel emission.
type Options struct {
	Schema *schema.Schema // element types of property buffers; Float32 if undeclared
	Passes []string       // further entry points
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Emit writes kernel source for an index, with an entry point name and an
// entry point for every pass in opts.
func Emit(w io.Writer, idx *selector.Index, name string, opts Options) error {
	passes := append([]string{name}, opts.Passes...)
	for _, p := range passes {
		if !identifier.MatchString(p) {
			return fmt.Errorf("%w: %q", ErrName, p)
		}
	}
	m := newModel(idx, opts.Schema)
	m.Passes = passes
	if err := kernelTemplate.Execute(w, m); err != nil {
		return err
	}
	tracer().Debugf("kernel source for %d selectors and %d passes emitted", idx.Len(), len(passes))
	return nil
}

// --- Model -----------------------------------------------------------------

type buffer struct {
	Ident string
	CType string
}

type write struct {
	Ident   string
	Literal string
}

type step struct {
	Comb    string // "desc", "child" or "adj"
	Tag, ID tokens.Token
}

type cand struct {
	Func   string
	Spec   uint64
	Last   selector.Predicate
	Steps  []step // right to left, without the rightmost predicate
	Writes []write
}

type bucket struct {
	Token tokens.Token
	Cands []*cand
}

type hash struct {
	Name    string
	Buckets []bucket
}

type model struct {
	Params  string
	Args    string
	Buffers []buffer
	NoID    tokens.Token
	Hashes  []hash
	Star    []*cand
	All     []*cand
	Passes  []string
}

var ctypes = map[sparse.ElemType]string{
	sparse.Int8:    "char",
	sparse.Uint8:   "uchar",
	sparse.Int16:   "short",
	sparse.Uint16:  "ushort",
	sparse.Int32:   "int",
	sparse.Uint32:  "uint",
	sparse.Float32: "float",
	sparse.Float64: "double",
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// ident makes a buffer name usable as a C identifier.
func ident(name string) string {
	return nonIdent.ReplaceAllString(name, "_")
}

func newModel(idx *selector.Index, sch *schema.Schema) *model {
	m := &model{NoID: idx.NoID}
	for _, s := range flat.Structural {
		if s.Name != flat.BufRightSiblings {
			m.Buffers = append(m.Buffers, buffer{ident(s.Name), ctypes[s.Type]})
		}
	}
	for _, p := range idx.Properties {
		typ := sparse.Float32
		if sch != nil {
			if t, ok := sch.Field(p); ok {
				typ = t
			}
		}
		m.Buffers = append(m.Buffers, buffer{ident(p), ctypes[typ]})
	}
	m.Buffers = append(m.Buffers, buffer{flat.BufSelectors, "int"})
	params, args := []string{"unsigned int tree_size"}, []string{"tree_size"}
	for _, b := range m.Buffers {
		params = append(params, "__global "+b.CType+"* buf_"+b.Ident)
		args = append(args, "buf_"+b.Ident)
	}
	m.Params, m.Args = strings.Join(params, ", "), strings.Join(args, ", ")
	//
	buckets := func(name string, byToken map[tokens.Token][]*selector.Candidate) hash {
		h := hash{Name: name}
		for _, tok := range selector.SortedKeys(byToken) {
			b := bucket{Token: tok}
			for j, c := range byToken[tok] {
				b.Cands = append(b.Cands, m.candidate(fmt.Sprintf("%s_%d_%d", name, tok, j), c))
			}
			h.Buckets = append(h.Buckets, b)
		}
		return h
	}
	m.Hashes = []hash{buckets("Id", idx.ByID), buckets("Tag", idx.ByTag)}
	for j, c := range idx.Universal {
		m.Star = append(m.Star, m.candidate(fmt.Sprintf("Star_%d", j), c))
	}
	return m
}

func (m *model) candidate(fn string, c *selector.Candidate) *cand {
	k := &cand{Func: fn, Spec: c.Specificity, Last: c.Rightmost()}
	for i := len(c.Predicates) - 2; i >= 0; i-- {
		s := step{Tag: c.Predicates[i].Tag, ID: c.Predicates[i].ID}
		switch c.Combinators[i] {
		case selector.Child:
			s.Comb = "child"
		case selector.Adjacent:
			s.Comb = "adj"
		default:
			s.Comb = "desc"
		}
		k.Steps = append(k.Steps, s)
	}
	for _, w := range c.Writes {
		k.Writes = append(k.Writes, write{ident(w.Property), w.Value.Literal()})
	}
	m.All = append(m.All, k)
	return k
}

// --- Templates -------------------------------------------------------------

var kernelTemplate = template.Must(template.New("kernel").Parse(kernelTmpl))

const kernelTmpl = `// Selector engine for {{ len .All }} selectors.
// Code generated by sctree; DO NOT EDIT.

{{ range .Buffers }}#define {{ .Ident }}(i) (buf_{{ .Ident }}[i])
{{ end }}
unsigned int matchPredicate({{ .Params }}, unsigned int tagTok, unsigned int idTok, unsigned int nodeindex) {
  if (idTok != {{ .NoID }}) {
    if (idTok != id(nodeindex)) return 0;
  }
  if (tagTok != 0) {
    if (tagTok != displayname(nodeindex)) return 0;
  }
  return 1;
}
{{ range .Hashes }}
unsigned int getNumSel{{ .Name }}(unsigned int token) {
  switch (token) {
{{- range .Buckets }}
    case {{ .Token }}:
      return {{ len .Cands }};
{{- end }}
    default:
      return 0;
  }
}

unsigned long getSpec{{ .Name }}(unsigned int token, unsigned int offset) {
  switch (token) {
{{- range .Buckets }}
    case {{ .Token }}:
      switch (offset) {
{{- range $j, $c := .Cands }}
        case {{ $j }}:
          return {{ $c.Spec }}UL;
{{- end }}
        default:
          return 0;
      }
{{- end }}
    default:
      return 0;
  }
}
{{ end }}
unsigned long getSpecStar(unsigned int offset) {
  switch (offset) {
{{- range $j, $c := .Star }}
    case {{ $j }}:
      return {{ $c.Spec }}UL;
{{- end }}
    default:
      return 0;
  }
}
{{ range .All }}
unsigned int matchSelector{{ .Func }}({{ $.Params }}, unsigned int nodeindex) {
  if (!matchPredicate({{ $.Args }}, {{ .Last.Tag }}, {{ .Last.ID }}, nodeindex)) return 0;
{{- if .Steps }}
  if (nodeindex == 0) return 0;
  unsigned int cur = nodeindex;
  unsigned int matched = 0;
{{- range .Steps }}
{{- if eq .Comb "desc" }}
  // ' '
  matched = 0;
  while (!matched) {
    if (cur == 0) return 0;
    cur = parent(cur);
    matched = matchPredicate({{ $.Args }}, {{ .Tag }}, {{ .ID }}, cur);
  }
{{- else if eq .Comb "child" }}
  // '>'
  if (cur == 0) return 0;
  cur = parent(cur);
  if (!matchPredicate({{ $.Args }}, {{ .Tag }}, {{ .ID }}, cur)) return 0;
{{- else }}
  // '+'
  if (left_siblings(cur) == 0) return 0;
  cur = cur - 1;
  if (!matchPredicate({{ $.Args }}, {{ .Tag }}, {{ .ID }}, cur)) return 0;
{{- end }}
{{- end }}
{{- end }}
  return 1;
}

unsigned int applySelector{{ .Func }}({{ $.Params }}, unsigned int nodeindex) {
{{- range .Writes }}
  {{ .Ident }}(nodeindex) = {{ .Literal }};
{{- end }}
  return {{ len .Writes }};
}
{{ end }}
{{- range .Hashes }}
unsigned int matchSelector{{ .Name }}({{ $.Params }}, unsigned int token, unsigned int offset, unsigned int nodeindex) {
  switch (token) {
{{- range .Buckets }}
    case {{ .Token }}:
      switch (offset) {
{{- range $j, $c := .Cands }}
        case {{ $j }}:
          if (!matchSelector{{ $c.Func }}({{ $.Args }}, nodeindex)) return 0;
          applySelector{{ $c.Func }}({{ $.Args }}, nodeindex);
          return 1;
{{- end }}
        default:
          return 0;
      }
{{- end }}
    default:
      return 0;
  }
}
{{ end }}
unsigned int matchSelectorStar({{ .Params }}, unsigned int offset, unsigned int nodeindex) {
  switch (offset) {
{{- range $j, $c := .Star }}
    case {{ $j }}:
      if (!matchSelector{{ $c.Func }}({{ $.Args }}, nodeindex)) return 0;
      applySelector{{ $c.Func }}({{ $.Args }}, nodeindex);
      return 1;
{{- end }}
    default:
      return 0;
  }
}
{{ range .Passes }}
__kernel void {{ . }}(unsigned int start_idx, {{ $.Params }}) {
  unsigned int nodeindex = get_global_id(0) + start_idx;
  if (nodeindex >= tree_size) return;
  unsigned int nodeid = id(nodeindex);
  unsigned int tagid = displayname(nodeindex);
  unsigned int numSelId = getNumSelId(nodeid);
  unsigned int numSelTag = getNumSelTag(tagid);
  unsigned int numSelStar = {{ len $.Star }};
  unsigned int curId = 0;
  unsigned int curTag = 0;
  unsigned int curStar = 0;
  unsigned int matches = 0;
  while (curId != numSelId || curTag != numSelTag || curStar != numSelStar) {
    unsigned int tryTag = (curTag != numSelTag)
        && (curId == numSelId || getSpecTag(tagid, curTag) <= getSpecId(nodeid, curId))
        && (curStar == numSelStar || getSpecTag(tagid, curTag) <= getSpecStar(curStar));
    unsigned int tryId = !tryTag && (curId != numSelId)
        && (curStar == numSelStar || getSpecId(nodeid, curId) <= getSpecStar(curStar));
    if (tryTag) {
      matches += matchSelectorTag({{ $.Args }}, tagid, curTag, nodeindex);
      curTag++;
    } else if (tryId) {
      matches += matchSelectorId({{ $.Args }}, nodeid, curId, nodeindex);
      curId++;
    } else {
      matches += matchSelectorStar({{ $.Args }}, curStar, nodeindex);
      curStar++;
    }
  }
  selectors_buffer(nodeindex) = matches;
}
{{ end }}`
