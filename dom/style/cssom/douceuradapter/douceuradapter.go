/*
Package douceuradapter is a concrete implementation of interface cssom.StyleSheet.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package douceuradapter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/sctree/dom/style"
	"github.com/npillmayer/sctree/dom/style/cssom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tracer traces with key 'sctree.selector'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.selector")
}

// ErrAtRule is returned for rule text containing at-rules or nested blocks,
// which are not supported for selector compilation.
var ErrAtRule = errors.New("at-rules are not supported")

// CSSStyles is an adapter for interface cssom.StyleSheet.
type CSSStyles struct {
	css css.Stylesheet
}

// Parse parses rule text into a style sheet.
func Parse(text string) (*CSSStyles, error) {
	sheet, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	for _, r := range sheet.Rules {
		if r.Kind == css.AtRule || len(r.Rules) > 0 {
			return nil, fmt.Errorf("%w: %s %s", ErrAtRule, r.Name, r.Prelude)
		}
	}
	tracer().Debugf("parsed style sheet with %d rules", len(sheet.Rules))
	return Wrap(sheet), nil
}

// Wrap a douceur.css.Stylesheet into CssStyles.
// The stylesheet is now managed by the wrapper.
func Wrap(css *css.Stylesheet) *CSSStyles {
	sheet := &CSSStyles{*css}
	return sheet
}

// Empty checks if this stylesheet contains any rules.
//
// Interface cssom.StyleSheet
func (sheet *CSSStyles) Empty() bool {
	return len(sheet.css.Rules) == 0
}

// AppendRules appends rules from another stylesheet.
//
// Interface cssom.StyleSheet
func (sheet *CSSStyles) AppendRules(other cssom.StyleSheet) {
	for _, r := range other.Rules() {
		if rule, ok := r.(Rule); ok {
			cp := css.Rule(rule)
			sheet.css.Rules = append(sheet.css.Rules, &cp)
		}
	}
}

// Rules returns all the rules of a stylesheet.
//
// Interface style.StyleSheet
func (sheet *CSSStyles) Rules() []cssom.Rule {
	rules := make([]cssom.Rule, len(sheet.css.Rules))
	for i := range sheet.css.Rules {
		r := sheet.css.Rules[i]
		rules[i] = Rule(*r)
	}
	return rules
}

var _ cssom.StyleSheet = &CSSStyles{}

// Rule is an adapter for interface cssom.Rule.
type Rule css.Rule

// Selector returns the prelude / selectors of the rule.
func (r Rule) Selector() string {
	return r.Prelude
}

// Selectors returns the comma-separated groups of the prelude, trimmed.
// Empty groups are kept, so that "a,,b" is detectable as malformed.
func (r Rule) Selectors() []string {
	groups := strings.Split(r.Prelude, ",")
	for i := range groups {
		groups[i] = strings.TrimSpace(groups[i])
	}
	return groups
}

// Properties returns the property keys of a rule,
// e.g. "fill"
func (r Rule) Properties() []string {
	decl := r.Declarations()
	props := make([]string, 0, decl.Len())
	for _, kv := range decl.Properties() {
		props = append(props, kv.Key)
	}
	return props
}

// Value returns the property values for given key with this rule, e.g. "12pt"
func (r Rule) Value(key string) style.Property {
	p, _ := r.Declarations().Get(key)
	return p
}

// IsImportant returns true if a style key is marked as important ("!").
func (r Rule) IsImportant(key string) bool {
	for _, d := range r.Rule().Declarations {
		if strings.EqualFold(d.Property, key) {
			return d.Important
		}
	}
	return false
}

// Declarations returns the properties of a rule in declaration order.
// Property keys are lower-cased.
func (r Rule) Declarations() *style.Declarations {
	decl := &style.Declarations{}
	for _, d := range r.Rule().Declarations {
		decl.Set(d.Property, style.Property(d.Value))
	}
	return decl
}

// Rule returns the underlying douceur rule.
func (r Rule) Rule() *css.Rule {
	cr := css.Rule(r)
	return &cr
}

var _ cssom.Rule = &Rule{}

// ExtractStyleElements visits <head> and <body> elements in an HTML parse
// tree and searches for embedded <style>s. It returns the content of
// style-elements as style sheets. Style elements which do not parse are
// skipped.
func ExtractStyleElements(htmldoc *html.Node) []*CSSStyles {
	head := findElement(atom.Head, htmldoc)
	body := findElement(atom.Body, htmldoc)
	css := extractStyles(head)
	css = append(css, extractStyles(body)...)
	return css
}

func extractStyles(h *html.Node) []*CSSStyles {
	if h == nil {
		return nil
	}
	var css []*CSSStyles
	for ch := h.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.DataAtom == atom.Style && ch.FirstChild != nil {
			c, err := Parse(ch.FirstChild.Data)
			if err != nil {
				tracer().Errorf("<style> element skipped: %v", err)
				continue
			}
			css = append(css, c)
		}
	}
	return css
}

func findElement(a atom.Atom, h *html.Node) *html.Node {
	if h == nil {
		return nil
	}
	if h.DataAtom == a {
		return h
	}
	ch := h.FirstChild
	for ch != nil {
		r := findElement(a, ch)
		if r != nil && r.DataAtom == a {
			return r
		}
		ch = ch.NextSibling
	}
	return nil
}
