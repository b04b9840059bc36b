package fence

import (
	"errors"
	"testing"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/gfxtest"
)

type submitter struct {
	queue gpucore.Queue
	n     uint64
}

func (s *submitter) Queue() gpucore.Queue { return s.queue }
func (s *submitter) Submissions() uint64  { return s.n }

func newFence(t *testing.T, lag bool) (*Fence, *submitter, *gfxtest.Device) {
	t.Helper()
	dev := gfxtest.NewDevice()
	dev.FenceLag = lag
	s := &submitter{queue: dev.Queue()}
	f, err := New(s, dev)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(f.Destroy)
	return f, s, dev
}

func TestWaitForIdleMonotonic(t *testing.T) {
	for _, lag := range []bool{false, true} {
		f, s, dev := newFence(t, lag)
		if f.Next() != 1 {
			t.Fatalf("Next() = %d, want 1", f.Next())
		}
		prev := f.Signaled()
		for i := uint64(1); i <= 5; i++ {
			s.n++
			if err := f.WaitForIdle(); err != nil {
				t.Fatalf("WaitForIdle() #%d error = %v", i, err)
			}
			if f.Signaled() < prev {
				t.Fatalf("signaled went backwards: %d -> %d", prev, f.Signaled())
			}
			if f.Signaled() < i {
				t.Fatalf("signaled = %d after wait for %d", f.Signaled(), i)
			}
			if f.Next() != i+1 {
				t.Fatalf("Next() = %d, want %d", f.Next(), i+1)
			}
			prev = f.Signaled()
		}
		waits := dev.Fences[0].Waits
		if lag && waits != 5 {
			t.Errorf("lagging fence: waits = %d, want 5", waits)
		}
		if !lag && waits != 0 {
			t.Errorf("immediate fence: waits = %d, want 0", waits)
		}
	}
}

func TestRetired(t *testing.T) {
	f, s, _ := newFence(t, true)

	if !f.Retired(0) {
		t.Error("Retired(0) = false before any submission")
	}
	s.n = 1
	if f.Retired(1) {
		t.Error("Retired(1) = true before WaitForIdle")
	}
	if err := f.WaitForIdle(); err != nil {
		t.Fatal(err)
	}
	if !f.Retired(1) {
		t.Error("Retired(1) = false after WaitForIdle")
	}
	s.n = 2
	if f.Retired(2) {
		t.Error("Retired(2) = true for a submission after the last signal")
	}
}

func TestSignalFailureIsFatal(t *testing.T) {
	f, _, dev := newFence(t, false)
	dev.FakeQueue.SignalErr = gfxtest.ErrInjected

	if err := f.WaitForIdle(); !errors.Is(err, gfxtest.ErrInjected) {
		t.Fatalf("WaitForIdle() error = %v, want injected failure", err)
	}
}
