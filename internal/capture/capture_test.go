package capture

import (
	"errors"
	"testing"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/gfxtest"
)

func newSession(t *testing.T, legacy *gfxtest.Legacy) *Session {
	t.Helper()
	s, err := New(legacy, gfxtest.Window{Handle: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAcquireOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		step  gfxtest.Step
		want  Kind
		frame bool
	}{
		{"updated", gfxtest.Updated(1920, 1080), Updated, true},
		{"unchanged", gfxtest.Unchanged(1920, 1080), Unchanged, false},
		{"timeout", gfxtest.Timeout(), TimedOut, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, gfxtest.NewLegacy(tt.step))
			res, err := s.Acquire(0)
			if err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}
			if res.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", res.Kind, tt.want)
			}
			if (res.Frame != nil) != tt.frame {
				t.Errorf("Frame = %v, want present=%v", res.Frame, tt.frame)
			}
		})
	}
}

func TestAcquireReleasesPreviousFrame(t *testing.T) {
	legacy := gfxtest.NewLegacy(gfxtest.Updated(8, 8), gfxtest.Unchanged(8, 8), gfxtest.Updated(8, 8))
	s := newSession(t, legacy)

	for i := 0; i < 3; i++ {
		if _, err := s.Acquire(0); err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
	}
	dup := legacy.Duplications[0]
	if dup.Acquires != 3 || dup.Releases != 2 {
		t.Errorf("acquires = %d, releases = %d, want 3 and 2", dup.Acquires, dup.Releases)
	}
	if !dup.Held() {
		t.Error("last frame should still be held")
	}
}

func TestAcquireLossRecovery(t *testing.T) {
	legacy := gfxtest.NewLegacy(gfxtest.Lost(), gfxtest.Updated(1920, 1080))
	s := newSession(t, legacy)

	res, err := s.Acquire(0)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if res.Kind != Updated {
		t.Errorf("Kind = %v, want Updated", res.Kind)
	}
	if s.Retries() != 0 {
		t.Errorf("Retries() = %d, want 0", s.Retries())
	}
	if s.Recreations() != 1 || len(legacy.Duplications) != 2 {
		t.Errorf("recreations = %d, duplications = %d", s.Recreations(), len(legacy.Duplications))
	}
	if s.State() != Active {
		t.Errorf("State() = %v, want Active", s.State())
	}
}

func TestAcquireSecondLossIsFatal(t *testing.T) {
	legacy := gfxtest.NewLegacy(gfxtest.Lost(), gfxtest.Lost(), gfxtest.Updated(8, 8))
	s := newSession(t, legacy)

	_, err := s.Acquire(0)
	if !errors.Is(err, ErrCaptureLost) {
		t.Fatalf("Acquire() error = %v, want ErrCaptureLost", err)
	}
	if s.Retries() != 0 {
		t.Errorf("Retries() = %d after fatal loss, want 0", s.Retries())
	}
	if s.State() != Lost {
		t.Errorf("State() = %v, want Lost", s.State())
	}
}

func TestAcquireRetryBudgetIsPerCall(t *testing.T) {
	legacy := gfxtest.NewLegacy(
		gfxtest.Lost(), gfxtest.Updated(8, 8),
		gfxtest.Lost(), gfxtest.Updated(8, 8),
	)
	s := newSession(t, legacy)

	for i := 0; i < 2; i++ {
		res, err := s.Acquire(0)
		if err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
		if res.Kind != Updated {
			t.Errorf("Acquire() #%d Kind = %v, want Updated", i, res.Kind)
		}
	}
	if s.Recreations() != 2 {
		t.Errorf("Recreations() = %d, want 2", s.Recreations())
	}
}

func TestReleaseLossRecreates(t *testing.T) {
	legacy := gfxtest.NewLegacy(gfxtest.Updated(8, 8), gfxtest.Updated(8, 8))
	legacy.ReleaseErrs = []error{gpucore.ErrAccessLost}
	s := newSession(t, legacy)

	if _, err := s.Acquire(0); err != nil {
		t.Fatal(err)
	}
	res, err := s.Acquire(0)
	if err != nil {
		t.Fatalf("Acquire() after release loss error = %v", err)
	}
	if res.Kind != Updated || s.Recreations() != 1 {
		t.Errorf("Kind = %v, recreations = %d", res.Kind, s.Recreations())
	}
}

func TestReleaseWithoutFrameIgnored(t *testing.T) {
	legacy := gfxtest.NewLegacy(gfxtest.Timeout(), gfxtest.Updated(8, 8))
	s := newSession(t, legacy)

	for i := 0; i < 2; i++ {
		if _, err := s.Acquire(0); err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
	}
	if s.Recreations() != 0 {
		t.Errorf("Recreations() = %d, want 0", s.Recreations())
	}
}

func TestOtherFailuresAreFatal(t *testing.T) {
	legacy := gfxtest.NewLegacy(gfxtest.Step{Err: gfxtest.ErrInjected})
	s := newSession(t, legacy)

	res, err := s.Acquire(0)
	if !errors.Is(err, gfxtest.ErrInjected) {
		t.Fatalf("Acquire() error = %v, want injected failure", err)
	}
	if res.Kind == Updated || res.Frame != nil {
		t.Errorf("failed Acquire() = %+v, want no outcome", res)
	}
}

func TestZeroKindIsNotAnOutcome(t *testing.T) {
	var res Result
	for _, k := range []Kind{Updated, Unchanged, TimedOut} {
		if res.Kind == k {
			t.Errorf("zero Result has Kind %v", k)
		}
	}
	if got := res.Kind.String(); got != "Kind(0)" {
		t.Errorf("zero Kind String() = %q, want Kind(0)", got)
	}
}

func TestUnchangedIsIdempotent(t *testing.T) {
	legacy := gfxtest.NewLegacy(
		gfxtest.Unchanged(8, 8), gfxtest.Unchanged(8, 8), gfxtest.Unchanged(8, 8),
	)
	s := newSession(t, legacy)

	for i := 0; i < 3; i++ {
		res, err := s.Acquire(0)
		if err != nil {
			t.Fatal(err)
		}
		if res.Kind != Unchanged || res.Frame != nil {
			t.Errorf("Acquire() #%d = %+v, want Unchanged without frame", i, res)
		}
	}
}
