package native

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mirror/gpucore"
)

// waitTimeout bounds a single fence wait.
const waitTimeout = 5 * time.Second

var errListOpen = errors.New("native: submit of a command list that is still recording")

// Queue is the device's HAL queue. It tracks the last submission index so
// fence signals can be resolved against PollCompleted.
type Queue struct {
	dev   *Device
	queue hal.Queue
	last  uint64
}

var _ gpucore.Queue = (*Queue)(nil)

// Submit flushes the list's uniform shadow and submits its command buffer.
func (q *Queue) Submit(list gpucore.CommandList) error {
	l, ok := list.(*CommandList)
	if !ok {
		return fmt.Errorf("native: foreign command list %T", list)
	}
	if !l.closed || l.buffer == nil {
		return errListOpen
	}
	if l.uniform != nil {
		if err := l.uniform.flush(); err != nil {
			return fmt.Errorf("native: flush uniforms: %w", err)
		}
	}
	idx, err := q.queue.Submit([]hal.CommandBuffer{l.buffer})
	if err != nil {
		return fmt.Errorf("native: submit: %w", mapError(err))
	}
	l.buffer = nil
	q.last = idx
	return nil
}

// Signal records that f reaches value once the last submission completes.
func (q *Queue) Signal(f gpucore.Fence, value uint64) error {
	nf, ok := f.(*Fence)
	if !ok {
		return fmt.Errorf("native: foreign fence %T", f)
	}
	nf.marks = append(nf.marks, mark{value: value, submission: q.last})
	return nil
}

// mark is a pending fence value and the submission that completes it.
type mark struct {
	value      uint64
	submission uint64
}

// Fence resolves signaled values against the queue's completed
// submission index.
type Fence struct {
	dev       *Device
	completed uint64
	marks     []mark
}

var _ gpucore.Fence = (*Fence)(nil)

// Completed returns the highest value whose submission has completed.
func (f *Fence) Completed() uint64 {
	done := f.dev.queue.queue.PollCompleted()
	n := 0
	for _, m := range f.marks {
		if m.submission > done {
			break
		}
		f.completed = max(f.completed, m.value)
		n++
	}
	f.marks = f.marks[n:]
	return f.completed
}

// Wait blocks until Completed reaches value.
func (f *Fence) Wait(value uint64) error {
	deadline := time.Now().Add(waitTimeout)
	for f.Completed() < value {
		if time.Now().After(deadline) {
			return fmt.Errorf("native: fence wait for %d: %w", value, gpucore.ErrWaitTimeout)
		}
		if err := f.dev.device.WaitIdle(); err != nil {
			return fmt.Errorf("native: fence wait for %d: %w", value, mapError(err))
		}
	}
	return nil
}

// Destroy drops pending marks.
func (f *Fence) Destroy() { f.marks = nil }

// mapError translates HAL errors into gpucore sentinels.
func mapError(err error) error {
	switch {
	case errors.Is(err, hal.ErrDeviceLost):
		return fmt.Errorf("%w: %w", gpucore.ErrDeviceLost, err)
	case errors.Is(err, hal.ErrTimeout):
		return fmt.Errorf("%w: %w", gpucore.ErrWaitTimeout, err)
	default:
		return err
	}
}
