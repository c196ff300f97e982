package traverse

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Minimum number of nodes a work item covers.
const minGrain = 64

// Parallel is an accelerator running the nodes of a level on a bounded
// number of goroutines. A Parallel must not be shared between concurrent
// sweeps.
type Parallel struct {
	Workers  int  // maximum number of concurrent work items; 0 selects the number of CPUs
	Disabled bool // report as not available
	mx       sync.Mutex
	group    *errgroup.Group
	ctx      context.Context
}

var _ Accelerator = &Parallel{}

// NewParallel creates an accelerator with a number of workers.
func NewParallel(workers int) *Parallel {
	return &Parallel{Workers: workers}
}

// Name is "parallel".
func (p *Parallel) Name() string {
	return "parallel"
}

// Available is true unless the accelerator is disabled.
func (p *Parallel) Available() bool {
	return p != nil && !p.Disabled
}

func (p *Parallel) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// Launch starts work items for the nodes [start, start+length). Nodes are
// handed out in blocks; Launch blocks while all workers are busy. The first
// error, or cancellation of ctx, stops the remaining blocks from starting.
func (p *Parallel) Launch(ctx context.Context, start, length int, step Step) error {
	p.mx.Lock()
	defer p.mx.Unlock()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	p.group, p.ctx = g, ctx
	grain := length / p.workers()
	if grain < minGrain {
		grain = minGrain
	}
	end := start + length
	for lo := start; lo < end; lo += grain {
		lo, hi := lo, lo+grain
		if hi > end {
			hi = end
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			for n := lo; n < hi; n++ {
				if err := step(n); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return nil
}

// Finish waits for the work items of the last launch. If the context of
// the launch has been cancelled, some blocks may not have run and Finish
// reports the context's error.
func (p *Parallel) Finish() error {
	p.mx.Lock()
	g, ctx := p.group, p.ctx
	p.group, p.ctx = nil, nil
	p.mx.Unlock()
	if g == nil {
		return nil
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
