package cssom

import "github.com/npillmayer/sctree/dom/style"

// StyleSheet is an interface to abstract away a stylesheet-implementation.
// Selector compilation consumes rules in sheet order; the position of a
// rule's selectors in this order becomes part of their specificity.
//
// See interface Rule.
type StyleSheet interface {
	AppendRules(StyleSheet) // append rules from another stylesheet
	Empty() bool            // does this stylesheet contain any rules?
	Rules() []Rule          // all the rules of a stylesheet
}

// Rule is the type stylesheets consists of.
//
// See interface StyleSheet.
type Rule interface {
	Selector() string                  // the prelude / selectors of the rule
	Selectors() []string               // the comma-separated groups of the prelude
	Properties() []string              // property keys, e.g. "fill"
	Value(string) style.Property       // property value for key, e.g. "#ff0000"
	IsImportant(string) bool           // is property key marked as important?
	Declarations() *style.Declarations // properties in declaration order
}
