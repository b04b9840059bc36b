// Package fence implements the CPU/GPU synchronization fence that gates
// reuse of the command allocator and every other GPU-visible resource.
package fence

import (
	"fmt"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
)

// Submitter is the part of the device context the fence drives.
type Submitter interface {
	Queue() gpucore.Queue
	Submissions() uint64
}

// Fence pairs the GPU fence object with the CPU-held next value.
//
// next starts at 1 and grows by one per WaitForIdle. signaled is the
// highest completed value observed and never decreases.
type Fence struct {
	ctx   Submitter
	fence gpucore.Fence

	next     uint64
	signaled uint64

	// covered is the submission count the last retired signal covers.
	covered uint64
}

// New creates the fence on dev with a completed value of zero.
func New(ctx Submitter, dev gpucore.Device) (*Fence, error) {
	f, err := dev.CreateFence(0)
	if err != nil {
		return nil, fmt.Errorf("fence: create: %w", err)
	}
	return &Fence{ctx: ctx, fence: f, next: 1}, nil
}

// WaitForIdle signals next on the queue and blocks until the GPU reaches
// it, retiring every submission made so far.
func (f *Fence) WaitForIdle() error {
	submitted := f.ctx.Submissions()
	target := f.next
	if err := f.ctx.Queue().Signal(f.fence, target); err != nil {
		return fmt.Errorf("fence: signal %d: %w", target, err)
	}
	f.next++

	if f.observe() < target {
		if err := f.fence.Wait(target); err != nil {
			return fmt.Errorf("fence: wait %d: %w", target, err)
		}
		if f.observe() < target {
			return fmt.Errorf("fence: woke at %d before target %d", f.signaled, target)
		}
	}
	f.covered = submitted
	logging.Logger().Debug("fence: idle", "value", target, "submissions", submitted)
	return nil
}

func (f *Fence) observe() uint64 {
	if v := f.fence.Completed(); v > f.signaled {
		f.signaled = v
	}
	return f.signaled
}

// Retired reports whether every one of the first submissions has been
// covered by a signal the GPU has reached.
func (f *Fence) Retired(submissions uint64) bool {
	return submissions <= f.covered
}

// Signaled returns the highest completed value observed.
func (f *Fence) Signaled() uint64 { return f.signaled }

// Next returns the value the next WaitForIdle will signal.
func (f *Fence) Next() uint64 { return f.next }

// Destroy releases the GPU fence.
func (f *Fence) Destroy() { f.fence.Destroy() }
