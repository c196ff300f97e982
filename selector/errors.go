package selector

import (
	"errors"
	"fmt"

	"github.com/npillmayer/sctree/css"
)

// Phase is the compilation phase an error occurred in.
type Phase string

// Phases of compilation.
const (
	PhaseParse    Phase = "parse"
	PhaseTokenize Phase = "tokenize"
	PhaseProperty Phase = "property"
	PhaseValue    Phase = "value"
)

// Errors to be checked with errors.Is.
var (
	ErrSyntax          = errors.New("selector syntax error")
	ErrCombinator      = errors.New("unknown combinator")
	ErrUnknownTag      = errors.New("unknown tag")
	ErrUnknownProperty = errors.New("unknown property")
	ErrBadValue        = css.ErrBadValue
	ErrNoSchema        = errors.New("selector compilation needs a schema")
	ErrNoTokens        = errors.New("selector compilation needs an id token table")
)

// Error is a compilation diagnostic. Rule is the position of the rule in
// the rule text, starting at 0, or -1 if the rule text could not be split
// into rules. Token is the offending piece of input.
type Error struct {
	Phase Phase
	Token string
	Rule  int
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Rule < 0 {
		return fmt.Sprintf("%s error: %s", e.Phase, e.Msg)
	}
	if e.Token == "" {
		return fmt.Sprintf("%s error in rule #%d: %s", e.Phase, e.Rule, e.Msg)
	}
	return fmt.Sprintf("%s error in rule #%d at %q: %s", e.Phase, e.Rule, e.Token, e.Msg)
}

// Unwrap returns one of the sentinel errors of this package.
func (e *Error) Unwrap() error {
	return e.Err
}
