/*
Package traverse drives level-synchronous sweeps over flattened trees.

A sweep applies a step function to every node of a tree, level by level:
top-down sweeps visit levels root first, bottom-up sweeps leaves first.
All nodes of a level are done before any node of the next level is
started, as steps may read values written at the adjacent level in the
same sweep. Within a level, there is no ordering.

Sweeps run on an executor. The CPU executor loops over the indices of a
level. An Accelerator launches one batch of work items per level and waits
for its completion before the next launch. Type Parallel is an
accelerator which runs work items as goroutines. If no accelerator is
configured, or the accelerator reports itself as not available, the CPU
executor is used.

A Pipeline is an ordered list of sweeps, finished by a render sweep. The
first failing step aborts the pipeline; the error is a *SweepError naming
sweep and level.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package traverse

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'sctree.traverse'.
func tracer() tracing.Trace {
	return tracing.Select("sctree.traverse")
}
