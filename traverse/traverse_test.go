package traverse

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// levels of a tree with 1, 3, 200 and 1000 nodes; parents are spread
// evenly over the preceding level.
func testLevels() ([]flat.Level, []int32) {
	levels := []flat.Level{{Start: 0, Length: 1}, {Start: 1, Length: 3}, {Start: 4, Length: 200}, {Start: 204, Length: 1000}}
	parent := make([]int32, 1204)
	parent[0] = -1
	for k := 1; k < len(levels); k++ {
		prev, lv := levels[k-1], levels[k]
		for i := 0; i < lv.Length; i++ {
			parent[lv.Start+i] = int32(prev.Start + i*prev.Length/lv.Length)
		}
	}
	return levels, parent
}

func TestLevelBarrier(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.traverse")
	defer teardown()
	//
	levels, parent := testLevels()
	for _, accel := range []Accelerator{nil, NewParallel(4)} {
		depth := make([]int32, len(parent))
		topDown := func(n int) error {
			if n > 0 {
				if p := parent[n]; p > 0 && depth[p] == 0 {
					return errors.New("parent not yet visited")
				}
				depth[n] = depth[parent[n]] + 1
			}
			return nil
		}
		count := make([]int32, len(parent))
		bottomUp := func(n int) error {
			if n > 0 {
				atomic.AddInt32(&count[parent[n]], atomic.LoadInt32(&count[n])+1)
			}
			return nil
		}
		s := New(levels, WithAccelerator(accel))
		t.Logf("executor = %s", s.Executor())
		require.NoError(t, s.Run(context.Background(), Sweep{"depth", TopDown, topDown}))
		require.NoError(t, s.Run(context.Background(), Sweep{"count", BottomUp, bottomUp}))
		assert.Equal(t, int32(3), depth[1203])
		assert.Equal(t, int32(1203), count[0], "expected root to count all descendents")
	}
}

func TestPipelineAborts(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.traverse")
	defer teardown()
	//
	levels, _ := testLevels()
	boom := errors.New("boom")
	var rendered, after bool
	p := &Pipeline{
		Sweeps: []Sweep{
			{"ok", TopDown, func(int) error { return nil }},
			{"fail", BottomUp, func(n int) error {
				if n == 7 {
					return boom
				}
				return nil
			}},
			{"after", TopDown, func(int) error { after = true; return nil }},
		},
		Render: Sweep{"render", TopDown, func(int) error { rendered = true; return nil }},
	}
	for _, accel := range []Accelerator{nil, NewParallel(2)} {
		err := p.Run(context.Background(), New(levels, WithAccelerator(accel)))
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		var serr *SweepError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "fail", serr.Sweep)
		assert.Equal(t, 2, serr.Level)
		assert.False(t, rendered || after, "expected pipeline to stop")
		t.Logf("error: %v", err)
	}
}

func TestRenderRunsLast(t *testing.T) {
	levels, _ := testLevels()
	var order []string
	mark := func(name string) Step {
		return func(n int) error {
			if n == 0 {
				order = append(order, name)
			}
			return nil
		}
	}
	p := &Pipeline{
		Sweeps: []Sweep{{"a", TopDown, mark("a")}, {"b", BottomUp, mark("b")}},
		Render: Sweep{"render", TopDown, mark("render")},
	}
	require.NoError(t, p.Run(context.Background(), New(levels)))
	assert.Equal(t, []string{"a", "b", "render"}, order)
}

func TestFallbackToCPU(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.traverse")
	defer teardown()
	//
	levels, _ := testLevels()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	accel := &Parallel{Disabled: true}
	s := New(levels, WithAccelerator(accel), WithMetrics(m))
	assert.Equal(t, "cpu", s.Executor())
	visited := 0
	require.NoError(t, s.Run(context.Background(), Sweep{"v", TopDown, func(int) error { visited++; return nil }}))
	assert.Equal(t, 1204, visited)
	//
	err := s.Run(context.Background(), Sweep{Name: "empty"})
	assert.ErrorIs(t, err, ErrNoStep)
}

func TestCancelledSweep(t *testing.T) {
	levels, _ := testLevels()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(levels).Run(ctx, Sweep{"c", TopDown, func(int) error { return nil }})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCancelDuringLastLevel(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.traverse")
	defer teardown()
	//
	levels := []flat.Level{{Start: 0, Length: 1}, {Start: 1, Length: 1000}}
	for _, workers := range []int{1, 2} {
		ctx, cancel := context.WithCancel(context.Background())
		var stepped atomic.Int32
		step := func(n int) error {
			stepped.Add(1)
			if n == 1 {
				cancel()
			}
			return nil
		}
		s := New(levels, WithAccelerator(NewParallel(workers)))
		err := s.Run(ctx, Sweep{"last", TopDown, step})
		require.Error(t, err, "workers = %d", workers)
		assert.ErrorIs(t, err, context.Canceled)
		var serr *SweepError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, 1, serr.Level)
		t.Logf("workers = %d: %d of 1001 nodes stepped", workers, stepped.Load())
		cancel()
	}
}

func TestParallelFinishReportsCancel(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.traverse")
	defer teardown()
	//
	ctx, cancel := context.WithCancel(context.Background())
	p := NewParallel(2)
	var stepped atomic.Int32
	require.NoError(t, p.Launch(ctx, 0, 1000, func(n int) error {
		if stepped.Add(1) == 1 {
			cancel()
		}
		return nil
	}))
	assert.ErrorIs(t, p.Finish(), context.Canceled)
	assert.NoError(t, p.Finish())
}
