package surface

import (
	"errors"
	"testing"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/gfxtest"
)

func newSurface(t *testing.T, dev *gfxtest.Device, w, h uint32) *Surface {
	t.Helper()
	s, err := Create(dev, gfxtest.Window{Handle: 1}, w, h)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	t.Cleanup(s.Destroy)
	return s
}

func TestCreate(t *testing.T) {
	dev := gfxtest.NewDevice()
	s := newSurface(t, dev, 1920, 1080)

	if dev.Swapchain.BufferCount() != BufferCount {
		t.Errorf("buffers = %d, want %d", dev.Swapchain.BufferCount(), BufferCount)
	}
	if dev.Swapchain.Refs() != BufferCount {
		t.Errorf("refs = %d, want %d", dev.Swapchain.Refs(), BufferCount)
	}
	if w, h := s.Size(); w != 1920 || h != 1080 {
		t.Errorf("Size() = %dx%d, want 1920x1080", w, h)
	}
	vp := s.Viewport()
	if vp.Width != 1920 || vp.Height != 1080 || vp.MaxDepth != 1 {
		t.Errorf("Viewport() = %+v", vp)
	}
	if r := s.Scissor(); r.Width() != 1920 || r.Height() != 1080 {
		t.Errorf("Scissor() = %+v", r)
	}
	if s.CurrentState() != gpucore.ResourceStatePresent {
		t.Errorf("initial state = %v, want Present", s.CurrentState())
	}
}

func TestResize(t *testing.T) {
	tests := []struct {
		name         string
		reported     func(w, h uint32) (uint32, uint32)
		w, h         uint32
		wantW, wantH uint32
	}{
		{"exact", nil, 1280, 720, 1280, 720},
		{"clamped to 1x1", nil, 0, 0, 1, 1},
		{"zero width", nil, 0, 480, 1, 480},
		{"actual size wins", func(w, h uint32) (uint32, uint32) { return w - 1, h }, 800, 600, 799, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gfxtest.NewDevice()
			s := newSurface(t, dev, 1920, 1080)
			dev.Swapchain.Reported = tt.reported

			if err := s.Resize(tt.w, tt.h); err != nil {
				t.Fatalf("Resize() error = %v", err)
			}
			if w, h := s.Size(); w != tt.wantW || h != tt.wantH {
				t.Errorf("Size() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
			rt, err := s.Current()
			if err != nil {
				t.Fatal(err)
			}
			if w, h := rt.Size(); w < 1 || h < 1 {
				t.Errorf("render target %dx%d below minimum", w, h)
			}
			if vp := s.Viewport(); vp.Width != float32(tt.wantW) || vp.Height != float32(tt.wantH) {
				t.Errorf("Viewport() = %+v", vp)
			}
		})
	}
}

func TestResizeFailsWithOutstandingReference(t *testing.T) {
	dev := gfxtest.NewDevice()
	s := newSurface(t, dev, 640, 480)

	extra, err := dev.Swapchain.Buffer(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Resize(320, 240); !errors.Is(err, gpucore.ErrBuffersReferenced) {
		t.Fatalf("Resize() error = %v, want ErrBuffersReferenced", err)
	}
	if _, err := s.Current(); !errors.Is(err, ErrReleased) {
		t.Errorf("Current() after failed resize = %v, want ErrReleased", err)
	}
	extra.Release()
	if err := s.Resize(320, 240); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
}

func TestIndexFollowsSwapchain(t *testing.T) {
	dev := gfxtest.NewDevice()
	dev.IndexSequence = []int{1, 1, 0}
	s := newSurface(t, dev, 64, 64)

	want := []int{1, 1, 0, 1}
	for i, w := range want {
		if err := s.Present(); err != nil {
			t.Fatalf("Present() #%d error = %v", i, err)
		}
		if s.Index() != w {
			t.Errorf("after present #%d: Index() = %d, want %d", i, s.Index(), w)
		}
	}
}

func TestTransition(t *testing.T) {
	dev := gfxtest.NewDevice()
	s := newSurface(t, dev, 64, 64)
	list, _ := dev.CreateCommandList(nil)
	fake := list.(*gfxtest.CommandList)
	if err := list.Reset(nil, nil); err != nil {
		t.Fatal(err)
	}

	steps := []gpucore.ResourceState{
		gpucore.ResourceStateRenderTarget,
		gpucore.ResourceStateRenderTarget,
		gpucore.ResourceStatePresent,
	}
	for _, to := range steps {
		if err := s.Transition(list, to); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"barrier 0 Present->RenderTarget", "barrier 0 RenderTarget->Present"}
	if len(fake.Commands) != len(want) {
		t.Fatalf("commands = %v, want %v", fake.Commands, want)
	}
	for i := range want {
		if fake.Commands[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, fake.Commands[i], want[i])
		}
	}
}

func TestPresentRequiresPresentState(t *testing.T) {
	dev := gfxtest.NewDevice()
	s := newSurface(t, dev, 64, 64)
	list, _ := dev.CreateCommandList(nil)
	_ = list.Reset(nil, nil)

	if err := s.Transition(list, gpucore.ResourceStateRenderTarget); err != nil {
		t.Fatal(err)
	}
	if err := s.Present(); !errors.Is(err, ErrNotPresentable) {
		t.Fatalf("Present() error = %v, want ErrNotPresentable", err)
	}
}
