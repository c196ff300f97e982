package sctree

import (
	"context"
	"fmt"
	"io"

	"github.com/npillmayer/sctree/dom"
	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/dom/style/cssom"
	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/loader"
	"github.com/npillmayer/sctree/match"
	"github.com/npillmayer/sctree/match/kernel"
	"github.com/npillmayer/sctree/metrics"
	"github.com/npillmayer/sctree/selector"
	"github.com/npillmayer/sctree/tokens"
	"github.com/npillmayer/sctree/traverse"
)

// Session holds the schema and the id token table shared by compiling,
// flattening and loading. Rules have to be compiled with the id table of
// the layout they are applied to.
type Session struct {
	Schema  *schema.Schema
	IDs     *tokens.Table
	metrics *metrics.Metrics
	accel   traverse.Accelerator
}

// Option configures a session.
type Option func(*Session)

// WithIDs seeds a session with an existing id table.
func WithIDs(ids *tokens.Table) Option {
	return func(s *Session) {
		if ids != nil {
			s.IDs = ids
		}
	}
}

// WithMetrics reports loads and sweeps of a session to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithAccelerator runs style sweeps on an accelerator.
func WithAccelerator(a traverse.Accelerator) Option {
	return func(s *Session) {
		s.accel = a
	}
}

// NewSession creates a session for a schema with a fresh id table.
func NewSession(sch *schema.Schema, opts ...Option) *Session {
	s := &Session{Schema: sch, IDs: tokens.NewIDs()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile compiles rule text against the session's schema and id table.
func (s *Session) Compile(rules string) (*selector.Index, error) {
	return selector.Compile(rules, s.Schema, s.IDs)
}

// CompileSheet compiles a parsed style sheet.
func (s *Session) CompileSheet(sheet cssom.StyleSheet) (*selector.Index, error) {
	return selector.CompileSheet(sheet, s.Schema, s.IDs)
}

// Flatten flattens a document.
func (s *Session) Flatten(doc *dom.Node) (*flat.Layout, error) {
	return flat.Flatten(doc, s.Schema, s.IDs)
}

// Load loads a published tree and adopts its id table, so that rules
// compiled afterwards match its ids.
func (s *Session) Load(ctx context.Context, src loader.ChunkSource, root string,
	opts ...loader.Option) (*flat.Layout, error) {
	//
	opts = append([]loader.Option{loader.WithMetrics(s.metrics)}, opts...)
	l, err := loader.New(src, opts...).Load(ctx, root)
	if err != nil {
		return nil, err
	}
	l.Schema = s.Schema
	s.IDs = l.IDs
	return l, nil
}

// Style matches the rules of idx against every node of a layout, writing
// property values and match counts into the layout's buffers. Nodes are
// styled level by level, top down.
func (s *Session) Style(ctx context.Context, idx *selector.Index, l *flat.Layout) (*match.Matcher, error) {
	if l.IDs != s.IDs {
		return nil, fmt.Errorf("layout and session use different id tables")
	}
	m, err := match.New(idx, l)
	if err != nil {
		return nil, err
	}
	sched := traverse.New(l.Levels, traverse.WithAccelerator(s.accel), traverse.WithMetrics(s.metrics))
	err = sched.Run(ctx, traverse.Sweep{Name: "style", Direction: traverse.TopDown, Step: m.Sweep()})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Kernel writes kernel source for idx with an entry point name and
// optional further passes.
func (s *Session) Kernel(w io.Writer, idx *selector.Index, name string, passes ...string) error {
	return kernel.Emit(w, idx, name, kernel.Options{Schema: s.Schema, Passes: passes})
}
