package selector

import (
	"errors"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/npillmayer/sctree/css"
	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/dom/style/cssom"
	"github.com/npillmayer/sctree/dom/style/cssom/douceuradapter"
	"github.com/npillmayer/sctree/tokens"
)

// Compile compiles rule text. Tags are resolved with sch, ids are entered
// into ids. On error, no index is returned and ids is left unchanged.
func Compile(text string, sch *schema.Schema, ids *tokens.Table) (*Index, error) {
	sheet, err := douceuradapter.Parse(text)
	if err != nil {
		return nil, &Error{Phase: PhaseParse, Rule: -1, Msg: err.Error(), Err: ErrSyntax}
	}
	return CompileSheet(sheet, sch, ids)
}

// CompileSheet compiles the rules of a style sheet.
func CompileSheet(sheet cssom.StyleSheet, sch *schema.Schema, ids *tokens.Table) (*Index, error) {
	if sch == nil {
		return nil, ErrNoSchema
	}
	if ids == nil {
		return nil, ErrNoTokens
	}
	type pending struct {
		sel  *rawSelector
		tags []tokens.Token
		rule int
	}
	var sels []pending
	var writes [][]Write
	for r, rule := range sheet.Rules() {
		for _, group := range rule.Selectors() {
			sel, err := parseGroup(group)
			if err != nil {
				return nil, groupError(err, group, r)
			}
			tags := make([]tokens.Token, len(sel.preds))
			for i, pred := range sel.preds {
				if pred.tag == "*" {
					tags[i] = Wildcard
					continue
				}
				tok, ok := sch.ClassToken(pred.tag)
				if !ok {
					return nil, &Error{Phase: PhaseTokenize, Token: pred.tag, Rule: r,
						Msg: "tag is not a class of the schema", Err: ErrUnknownTag}
				}
				tags[i] = tok
			}
			sels = append(sels, pending{sel: sel, tags: tags, rule: r})
		}
		ws, err := ruleWrites(rule, sch, r)
		if err != nil {
			return nil, err
		}
		writes = append(writes, ws)
	}
	// everything is valid, now ids may be entered into the id table
	noID := ids.NoID()
	cands := make([]*Candidate, len(sels))
	for def, p := range sels {
		c := &Candidate{
			Alternative: Alternative{
				Text:        p.sel.text,
				Predicates:  make([]Predicate, len(p.sel.preds)),
				Combinators: p.sel.combs,
			},
			Rule:       p.rule,
			Definition: def,
			Writes:     writes[p.rule],
		}
		nids, ntags := 0, 0
		for i, pred := range p.sel.preds {
			c.Predicates[i] = Predicate{Tag: p.tags[i], ID: noID}
			if pred.id != "" {
				c.Predicates[i].ID = ids.Intern(strings.ToLower(pred.id))
				nids++
			}
			if p.tags[i] != Wildcard {
				ntags++
			}
		}
		c.Specificity = Specificity(nids, 0, ntags, def)
		cands[def] = c
	}
	idx := build(cands, noID)
	tracer().Debugf("compiled %d selectors into %d id, %d tag buckets and %d universal selectors",
		len(cands), len(idx.ByID), len(idx.ByTag), len(idx.Universal))
	return idx, nil
}

// groupError converts a syntax error of the selector grammar. If the group
// is not valid CSS either, the CSS selector parser's message is used.
func groupError(err error, group string, rule int) *Error {
	e := &Error{Phase: PhaseParse, Token: group, Rule: rule, Msg: err.Error(), Err: ErrSyntax}
	var serr *syntaxError
	if errors.As(err, &serr) {
		if serr.token != "" {
			e.Token = serr.token
		}
		e.Err = serr.err
	}
	if e.Err == ErrSyntax && strings.TrimSpace(group) != "" {
		if _, cerr := cascadia.Compile(group); cerr != nil {
			e.Msg = cerr.Error()
		} else {
			e.Msg += " (valid CSS, but not supported)"
		}
	}
	return e
}

// ruleWrites checks the declarations of a rule.
func ruleWrites(rule cssom.Rule, sch *schema.Schema, r int) ([]Write, error) {
	decl := rule.Declarations()
	ws := make([]Write, 0, decl.Len())
	for _, kv := range decl.Properties() {
		if _, ok := sch.Field(kv.Key); !ok {
			return nil, &Error{Phase: PhaseProperty, Token: kv.Key, Rule: r,
				Msg: "property has no field in the schema", Err: ErrUnknownProperty}
		}
		v, err := css.ParseValue(kv.Value)
		if err != nil {
			return nil, &Error{Phase: PhaseValue, Token: kv.Key + ": " + kv.Value.String(), Rule: r,
				Msg: err.Error(), Err: ErrBadValue}
		}
		ws = append(ws, Write{Property: kv.Key, Value: v})
	}
	return ws, nil
}
