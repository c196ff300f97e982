package tokens

import (
	"strings"
	"sync"
)

// Token is a dense integer standing for a string in a Table.
type Token int32

// NoID is the reserved id string for nodes without an id. Every id table
// contains it.
const NoID = ""

// Fold normalizes strings before they are entered into or looked up in a
// table.
type Fold func(string) string

// Predefined folds.
var (
	Verbatim Fold = func(s string) string { return s }
	Lower    Fold = strings.ToLower
	Upper    Fold = strings.ToUpper
)

// Table maps strings to tokens and back. It is append-only and safe for
// concurrent use.
type Table struct {
	mu     sync.RWMutex
	fold   Fold
	byName map[string]Token
	byID   []string
}

// New creates a token table, seeded with an ordered list of strings.
// Seed strings receive tokens in list order; duplicates (after folding)
// keep their first token.
func New(fold Fold, seed ...string) *Table {
	if fold == nil {
		fold = Verbatim
	}
	t := &Table{
		fold:   fold,
		byName: make(map[string]Token, len(seed)+16),
		byID:   make([]string, 0, len(seed)+16),
	}
	for _, s := range seed {
		t.Intern(s)
	}
	return t
}

// NewIDs creates a table for id strings. Ids are lower-cased. A fresh table
// starts with the NoID sentinel as token 0; a seed list without the sentinel
// gets it appended.
func NewIDs(seed ...string) *Table {
	if len(seed) == 0 {
		return New(Lower, NoID)
	}
	t := New(Lower, seed...)
	if _, ok := t.Lookup(NoID); !ok {
		tracer().Debugf("id table seed without sentinel, appending it")
		t.Intern(NoID)
	}
	return t
}

// Intern returns the token for s, entering s into the table if necessary.
func (t *Table) Intern(s string) Token {
	s = t.fold(s)
	t.mu.RLock()
	tok, ok := t.byName[s]
	t.mu.RUnlock()
	if ok {
		return tok
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if tok, ok = t.byName[s]; ok {
		return tok
	}
	tok = Token(len(t.byID))
	t.byName[s] = tok
	t.byID = append(t.byID, s)
	return tok
}

// Lookup returns the token for s without growing the table.
func (t *Table) Lookup(s string) (Token, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tok, ok := t.byName[t.fold(s)]
	return tok, ok
}

// String returns the string for a token.
func (t *Table) String(tok Token) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if tok < 0 || int(tok) >= len(t.byID) {
		return "", false
	}
	return t.byID[tok], true
}

// NoID returns the token of the NoID sentinel. For tables created by NewIDs
// this is always defined; other tables return -1 if they lack the sentinel.
func (t *Table) NoID() Token {
	if tok, ok := t.Lookup(NoID); ok {
		return tok
	}
	return -1
}

// Len is the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// Strings returns a snapshot of the entries, ordered by token. The snapshot
// may be used as a seed list to re-create an equivalent table.
func (t *Table) Strings() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := make([]string, len(t.byID))
	copy(s, t.byID)
	return s
}
