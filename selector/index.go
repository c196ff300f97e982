package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/npillmayer/sctree/css"
	"github.com/npillmayer/sctree/tokens"
)

// Wildcard is the tag token matching any class.
const Wildcard tokens.Token = 0

// Predicate tests a single node. Tag == Wildcard matches any class, ID
// equal to the index's NoID token matches any id.
type Predicate struct {
	Tag tokens.Token
	ID  tokens.Token
}

// Alternative is one comma-separated group of a rule. Predicates are in
// source order, Combinators[i] joins Predicates[i] and Predicates[i+1].
// Matching reads them right to left.
type Alternative struct {
	Text        string
	Predicates  []Predicate
	Combinators []Combinator
}

// Rightmost is the predicate tested against the node itself.
func (alt *Alternative) Rightmost() Predicate {
	return alt.Predicates[len(alt.Predicates)-1]
}

// Write sets a property to a value.
type Write struct {
	Property string
	Value    css.Value
}

// Candidate is an alternative entered into the index, together with the
// property writes of its rule.
type Candidate struct {
	Alternative
	Rule        int    // position of the rule in rule text
	Definition  int    // position among all alternatives
	Specificity uint64
	Writes      []Write
}

func (c *Candidate) String() string {
	return fmt.Sprintf("%s [%d]", c.Text, c.Specificity)
}

// Specificity terms.
const (
	idShift    = 30
	classShift = 24
	tagShift   = 12
)

// Specificity computes the specificity of a selector with ids id-qualified
// predicates, classes class predicates and tags non-wildcard tags, defined
// at position def.
func Specificity(ids, classes, tags, def int) uint64 {
	return uint64(ids)<<idShift + uint64(classes)<<classShift + uint64(tags)<<tagShift + uint64(def)
}

// Index is the compiled form of rule text. It is immutable after
// compilation.
type Index struct {
	ByID       map[tokens.Token][]*Candidate
	ByTag      map[tokens.Token][]*Candidate
	Universal  []*Candidate
	NoID       tokens.Token // id token of nodes without an id
	Properties []string     // properties written by any candidate, sorted
	all        []*Candidate
}

// Len is the number of candidates.
func (idx *Index) Len() int {
	return len(idx.all)
}

// All returns the candidates in definition order.
func (idx *Index) All() []*Candidate {
	return idx.all
}

// Matches tests a predicate against a node's tag and id.
func (idx *Index) Matches(p Predicate, tag, id tokens.Token) bool {
	return (p.Tag == Wildcard || p.Tag == tag) && (p.ID == idx.NoID || p.ID == id)
}

// Candidates returns the merged candidate stream for a node with id token
// id and tag token tag.
func (idx *Index) Candidates(id, tag tokens.Token) []*Candidate {
	var cands []*Candidate
	idx.Each(id, tag, func(c *Candidate) {
		cands = append(cands, c)
	})
	return cands
}

// Merge merges three candidate streams, each sorted by ascending
// specificity, into one. On equal specificity the tag candidate goes first,
// then the id candidate, then the universal one.
func Merge(byID, byTag, universal []*Candidate) []*Candidate {
	merged := make([]*Candidate, 0, len(byID)+len(byTag)+len(universal))
	MergeEach(byID, byTag, universal, func(c *Candidate) {
		merged = append(merged, c)
	})
	return merged
}

// MergeEach calls yield for the candidates of three streams in the order
// of Merge, without collecting them.
func MergeEach(byID, byTag, universal []*Candidate, yield func(*Candidate)) {
	i, t, u := 0, 0, 0
	for i < len(byID) || t < len(byTag) || u < len(universal) {
		if t < len(byTag) &&
			(i == len(byID) || byTag[t].Specificity <= byID[i].Specificity) &&
			(u == len(universal) || byTag[t].Specificity <= universal[u].Specificity) {
			yield(byTag[t])
			t++
		} else if i < len(byID) &&
			(u == len(universal) || byID[i].Specificity <= universal[u].Specificity) {
			yield(byID[i])
			i++
		} else {
			yield(universal[u])
			u++
		}
	}
}

// Each calls yield for the merged candidates of a node with id token id
// and tag token tag.
func (idx *Index) Each(id, tag tokens.Token, yield func(*Candidate)) {
	var byID []*Candidate
	if id != idx.NoID {
		byID = idx.ByID[id]
	}
	MergeEach(byID, idx.ByTag[tag], idx.Universal, yield)
}

// build distributes candidates into buckets.
func build(cands []*Candidate, noID tokens.Token) *Index {
	idx := &Index{
		ByID:  make(map[tokens.Token][]*Candidate),
		ByTag: make(map[tokens.Token][]*Candidate),
		NoID:  noID,
		all:   cands,
	}
	props := make(map[string]struct{})
	for _, c := range cands {
		r := c.Rightmost()
		switch {
		case r.ID != noID:
			idx.ByID[r.ID] = append(idx.ByID[r.ID], c)
		case r.Tag != Wildcard:
			idx.ByTag[r.Tag] = append(idx.ByTag[r.Tag], c)
		default:
			idx.Universal = append(idx.Universal, c)
		}
		for _, w := range c.Writes {
			props[w.Property] = struct{}{}
		}
	}
	for _, bucket := range idx.ByID {
		sortBySpecificity(bucket)
	}
	for _, bucket := range idx.ByTag {
		sortBySpecificity(bucket)
	}
	sortBySpecificity(idx.Universal)
	for p := range props {
		idx.Properties = append(idx.Properties, p)
	}
	sort.Strings(idx.Properties)
	return idx
}

func sortBySpecificity(bucket []*Candidate) {
	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].Specificity < bucket[j].Specificity
	})
}

// SortedKeys returns the tokens of a bucket map in ascending order.
func SortedKeys(buckets map[tokens.Token][]*Candidate) []tokens.Token {
	keys := make([]tokens.Token, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Dump lists the buckets of an index; used for debugging.
func (idx *Index) Dump() string {
	var b strings.Builder
	dumpBucket := func(name string, bucket []*Candidate) {
		fmt.Fprintf(&b, "%s:\n", name)
		for _, c := range bucket {
			fmt.Fprintf(&b, "    %-30s %12d  %s\n", c.Text, c.Specificity, writes(c.Writes))
		}
	}
	for _, tok := range SortedKeys(idx.ByID) {
		dumpBucket(fmt.Sprintf("id %d", tok), idx.ByID[tok])
	}
	for _, tok := range SortedKeys(idx.ByTag) {
		dumpBucket(fmt.Sprintf("tag %d", tok), idx.ByTag[tok])
	}
	dumpBucket("*", idx.Universal)
	return b.String()
}

func writes(ws []Write) string {
	s := make([]string, len(ws))
	for i, w := range ws {
		s[i] = w.Property + ": " + w.Value.String()
	}
	return "{ " + strings.Join(s, "; ") + " }"
}
