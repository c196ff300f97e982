package selector

import (
	"fmt"
	"strings"
)

// Combinator relates two predicates of a selector.
type Combinator uint8

// Combinators, numbered as in kernel source.
const (
	Descendant Combinator = iota // whitespace
	Child                        // '>'
	Adjacent                     // '+'
)

func (c Combinator) String() string {
	switch c {
	case Descendant:
		return " "
	case Child:
		return " > "
	case Adjacent:
		return " + "
	}
	return fmt.Sprintf(" ?%d? ", uint8(c))
}

// rawPredicate is a predicate before tokenization.
type rawPredicate struct {
	tag string // "*" for wildcard
	id  string // "" if unconstrained
}

// rawSelector is a parsed group, predicates and combinators left to right.
type rawSelector struct {
	text  string
	preds []rawPredicate
	combs []Combinator // combs[i] joins preds[i] and preds[i+1]
}

// syntaxError carries the offending token and the reason.
type syntaxError struct {
	token string
	msg   string
	err   error
}

func (e *syntaxError) Error() string {
	return e.msg
}

// parseGroup parses a single comma-free selector group.
func parseGroup(group string) (*rawSelector, error) {
	sel := &rawSelector{text: strings.TrimSpace(group)}
	p := &groupParser{input: sel.text}
	if p.input == "" {
		return nil, &syntaxError{msg: "empty selector", err: ErrSyntax}
	}
	for {
		pred, err := p.predicate()
		if err != nil {
			return nil, err
		}
		sel.preds = append(sel.preds, pred)
		if p.done() {
			return sel, nil
		}
		comb, err := p.combinator()
		if err != nil {
			return nil, err
		}
		sel.combs = append(sel.combs, comb)
	}
}

type groupParser struct {
	input string
	pos   int
}

func (p *groupParser) done() bool {
	return p.pos >= len(p.input)
}

func (p *groupParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.input[p.pos]
}

func (p *groupParser) skipSpace() bool {
	start := p.pos
	for !p.done() && isSpace(p.peek()) {
		p.pos++
	}
	return p.pos > start
}

func (p *groupParser) ident() string {
	start := p.pos
	for !p.done() && isIdentChar(p.peek()) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// predicate parses tag#id, #id, tag or *.
func (p *groupParser) predicate() (rawPredicate, error) {
	pred := rawPredicate{tag: "*"}
	start := p.pos
	if p.peek() == '*' {
		p.pos++
	} else if tag := p.ident(); tag != "" {
		pred.tag = tag
	}
	if p.peek() == '#' {
		p.pos++
		if pred.id = p.ident(); pred.id == "" {
			return pred, p.errorAt(p.pos, "id expected after '#'", ErrSyntax)
		}
	}
	if p.pos == start {
		if p.done() {
			return pred, p.errorAt(p.pos, "predicate expected at end of selector", ErrSyntax)
		}
		return pred, p.errorAt(p.pos, "predicate expected", ErrSyntax)
	}
	if !p.done() && !isSpace(p.peek()) && !isCombinator(p.peek()) {
		return pred, p.errorAt(p.pos, "unsupported predicate", ErrSyntax)
	}
	return pred, nil
}

// combinator parses the combinator between two predicates. Whitespace
// alone is a descendant combinator.
func (p *groupParser) combinator() (Combinator, error) {
	space := p.skipSpace()
	var comb Combinator
	switch c := p.peek(); {
	case c == '>':
		comb = Child
		p.pos++
	case c == '+':
		comb = Adjacent
		p.pos++
	case c == '~':
		return comb, p.errorAt(p.pos, "general sibling combinator", ErrCombinator)
	case space:
		comb = Descendant
	default:
		return comb, p.errorAt(p.pos, "combinator expected", ErrSyntax)
	}
	p.skipSpace()
	return comb, nil
}

func (p *groupParser) errorAt(pos int, msg string, err error) *syntaxError {
	end := pos + 1
	if end > len(p.input) {
		end = len(p.input)
	}
	return &syntaxError{token: p.input[pos:end], msg: msg, err: err}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isCombinator(c byte) bool {
	return c == '>' || c == '+' || c == '~'
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c >= 0x80
}
