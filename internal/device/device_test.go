package device

import (
	"errors"
	"testing"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/gfxtest"
)

type gateFunc func(uint64) bool

func (f gateFunc) Retired(n uint64) bool { return f(n) }

func TestSelectAdapter(t *testing.T) {
	hw11 := gpucore.AdapterInfo{Index: 1, Name: "hw11", FeatureLevel: gpucore.FeatureLevel11_0}
	hw10 := gpucore.AdapterInfo{Index: 2, Name: "hw10", FeatureLevel: gpucore.FeatureLevel10_1}
	warp := gpucore.AdapterInfo{Index: 0, Name: "warp", Software: true, FeatureLevel: gpucore.FeatureLevel12_1}
	hw12 := gpucore.AdapterInfo{Index: 3, Name: "hw12", FeatureLevel: gpucore.FeatureLevel12_0}

	tests := []struct {
		name     string
		adapters []gpucore.AdapterInfo
		min      gpucore.FeatureLevel
		want     string
		ok       bool
	}{
		{"first hardware wins", []gpucore.AdapterInfo{warp, hw11, hw12}, 0, "hw11", true},
		{"software skipped", []gpucore.AdapterInfo{warp}, 0, "", false},
		{"below floor skipped", []gpucore.AdapterInfo{hw10, hw12}, 0, "hw12", true},
		{"custom floor", []gpucore.AdapterInfo{hw11, hw12}, gpucore.FeatureLevel12_0, "hw12", true},
		{"empty", nil, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectAdapter(tt.adapters, tt.min)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got.Name != tt.want {
				t.Errorf("adapter = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestCreateNoHardwareAdapter(t *testing.T) {
	b := gfxtest.NewBackend()
	b.AdapterList = []gpucore.AdapterInfo{{Name: "warp", Software: true, FeatureLevel: gpucore.FeatureLevel12_0}}

	_, err := Create(b, Config{})
	if !errors.Is(err, ErrNoHardwareAdapter) {
		t.Fatalf("Create() error = %v, want ErrNoHardwareAdapter", err)
	}
	if b.Opened != nil {
		t.Error("device opened on a software adapter")
	}
}

func TestCreateValidation(t *testing.T) {
	t.Run("release warns", func(t *testing.T) {
		b := gfxtest.NewBackend()
		b.ValidationErr = gfxtest.ErrInjected
		ctx, err := create(b, Config{Validation: true}, false)
		if err != nil {
			t.Fatalf("create() error = %v, want nil in release builds", err)
		}
		ctx.Close()
	})

	t.Run("debug fails", func(t *testing.T) {
		b := gfxtest.NewBackend()
		b.ValidationErr = gfxtest.ErrInjected
		_, err := create(b, Config{}, true)
		if !errors.Is(err, ErrValidationUnavailable) {
			t.Fatalf("create() error = %v, want ErrValidationUnavailable", err)
		}
	})

	t.Run("debug forces gpu validation", func(t *testing.T) {
		b := gfxtest.NewBackend()
		ctx, err := create(b, Config{}, true)
		if err != nil {
			t.Fatalf("create() error = %v", err)
		}
		defer ctx.Close()
		if !b.Validation || !b.GPUValidation {
			t.Errorf("validation = %v, gpu = %v, want both", b.Validation, b.GPUValidation)
		}
	})

	t.Run("release opt-out", func(t *testing.T) {
		b := gfxtest.NewBackend()
		ctx, err := create(b, Config{}, false)
		if err != nil {
			t.Fatalf("create() error = %v", err)
		}
		defer ctx.Close()
		if b.Validation {
			t.Error("validation enabled without being requested")
		}
	})
}

func TestResetAllocatorGate(t *testing.T) {
	b := gfxtest.NewBackend()
	ctx, err := Create(b, Config{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer ctx.Close()

	list := ctx.List()
	if err := list.Reset(ctx.Allocator(), nil); err != nil {
		t.Fatal(err)
	}
	if err := list.Close(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Submit(list); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := ctx.Submissions(); got != 1 {
		t.Fatalf("Submissions() = %d, want 1", got)
	}

	var asked uint64
	busy := gateFunc(func(n uint64) bool { asked = n; return false })
	if err := ctx.ResetAllocator(busy); !errors.Is(err, ErrAllocatorBusy) {
		t.Fatalf("ResetAllocator(busy) = %v, want ErrAllocatorBusy", err)
	}
	if asked != 1 {
		t.Errorf("gate asked about %d submissions, want 1", asked)
	}

	idle := gateFunc(func(uint64) bool { return true })
	if err := ctx.ResetAllocator(idle); err != nil {
		t.Fatalf("ResetAllocator(idle) = %v", err)
	}
	if got := b.Opened.Allocators[0].Resets; got != 1 {
		t.Errorf("allocator resets = %d, want 1", got)
	}
}

func TestCloseReleasesDevice(t *testing.T) {
	b := gfxtest.NewBackend()
	ctx, err := Create(b, Config{})
	if err != nil {
		t.Fatal(err)
	}
	ctx.Close()
	ctx.Close()

	if !b.Opened.Destroyed || !b.Closed {
		t.Error("Close() did not destroy device and backend")
	}
	if err := ctx.Submit(nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close = %v, want ErrClosed", err)
	}
}
