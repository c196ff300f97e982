package traverse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/metrics"
)

// Direction of a sweep.
type Direction uint8

// Sweep directions.
const (
	TopDown  Direction = iota // ascending levels, root first
	BottomUp                  // descending levels, leaves first
)

func (d Direction) String() string {
	if d == BottomUp {
		return "bottom-up"
	}
	return "top-down"
}

// ErrNoStep is returned for sweeps without a step function.
var ErrNoStep = errors.New("sweep has no step function")

// Step processes a single node.
type Step func(n int) error

// Sweep is a named step function, applied in a direction.
type Sweep struct {
	Name      string
	Direction Direction
	Step      Step
}

// SweepError reports a failing sweep. Node is -1 if the failing node is
// not known, as with accelerators.
type SweepError struct {
	Sweep string
	Level int
	Node  int
	Err   error
}

func (e *SweepError) Error() string {
	if e.Node < 0 {
		return fmt.Sprintf("sweep %s failed at level %d: %v", e.Sweep, e.Level, e.Err)
	}
	return fmt.Sprintf("sweep %s failed at level %d, node %d: %v", e.Sweep, e.Level, e.Node, e.Err)
}

func (e *SweepError) Unwrap() error {
	return e.Err
}

// Accelerator executes the nodes of a level as parallel work items.
// Launch may return before all work items are done; Finish waits for
// them and reports the first error of a work item, or the error of a
// cancelled launch context.
type Accelerator interface {
	Name() string
	Available() bool
	Launch(ctx context.Context, start, length int, step Step) error
	Finish() error
}

// Scheduler runs sweeps over the levels of a tree.
type Scheduler struct {
	levels  []flat.Level
	accel   Accelerator
	metrics *metrics.Metrics
}

// Option configures a scheduler.
type Option func(*Scheduler)

// WithAccelerator sets an accelerator. A nil accelerator selects the CPU.
func WithAccelerator(a Accelerator) Option {
	return func(s *Scheduler) {
		s.accel = a
	}
}

// WithMetrics sets collectors for sweep counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// New creates a scheduler for a level table.
func New(levels []flat.Level, opts ...Option) *Scheduler {
	s := &Scheduler{levels: levels}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Executor returns the name of the executor sweeps will run on.
func (s *Scheduler) Executor() string {
	if s.useAccelerator() {
		return s.accel.Name()
	}
	return "cpu"
}

func (s *Scheduler) useAccelerator() bool {
	return s.accel != nil && s.accel.Available()
}

// Run runs a single sweep.
func (s *Scheduler) Run(ctx context.Context, sw Sweep) error {
	if sw.Step == nil {
		return &SweepError{Sweep: sw.Name, Level: -1, Node: -1, Err: ErrNoStep}
	}
	accel := s.useAccelerator()
	if s.accel != nil && !accel {
		tracer().Infof("accelerator %s not available, sweep %s runs on CPU", s.accel.Name(), sw.Name)
	}
	s.metrics.Fallback(s.accel != nil && !accel)
	start := time.Now()
	for i := range s.levels {
		k := i
		if sw.Direction == BottomUp {
			k = len(s.levels) - 1 - i
		}
		if err := ctx.Err(); err != nil {
			return &SweepError{Sweep: sw.Name, Level: k, Node: -1, Err: err}
		}
		var err error
		if accel {
			err = s.launch(ctx, sw, k)
		} else {
			err = s.loop(sw, k)
		}
		if err != nil {
			tracer().Errorf("%v", err)
			return err
		}
	}
	s.metrics.ObserveSweep(sw.Name, s.Executor(), time.Since(start))
	tracer().Debugf("sweep %s (%v) done on %s", sw.Name, sw.Direction, s.Executor())
	return nil
}

// loop is the CPU executor.
func (s *Scheduler) loop(sw Sweep, k int) error {
	lv := s.levels[k]
	for n := lv.Start; n < lv.End(); n++ {
		if err := sw.Step(n); err != nil {
			return &SweepError{Sweep: sw.Name, Level: k, Node: n, Err: err}
		}
	}
	return nil
}

// launch runs a level on the accelerator, including the barrier.
func (s *Scheduler) launch(ctx context.Context, sw Sweep, k int) error {
	lv := s.levels[k]
	err := s.accel.Launch(ctx, lv.Start, lv.Length, sw.Step)
	if ferr := s.accel.Finish(); err == nil {
		err = ferr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return &SweepError{Sweep: sw.Name, Level: k, Node: -1, Err: err}
	}
	return nil
}

// Pipeline is a sequence of sweeps followed by a render sweep.
type Pipeline struct {
	Sweeps []Sweep
	Render Sweep
}

// Run runs the sweeps of a pipeline in order, then the render sweep, if it
// has a step function. The first error aborts the pipeline.
func (p *Pipeline) Run(ctx context.Context, s *Scheduler) error {
	for _, sw := range p.Sweeps {
		if err := s.Run(ctx, sw); err != nil {
			return err
		}
	}
	if p.Render.Step == nil {
		return nil
	}
	return s.Run(ctx, p.Render)
}
