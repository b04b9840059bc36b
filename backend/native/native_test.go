package native

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/mirror/backend"
	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/gfxtest"
)

func newTestDevice(t *testing.T) (*Backend, *Device) {
	t.Helper()
	b := NewWithAPI(noop.API{})
	adapters, err := b.Adapters()
	if err != nil {
		t.Fatalf("Adapters() error = %v", err)
	}
	if len(adapters) == 0 {
		t.Fatal("noop backend reported no adapters")
	}
	dev, err := b.Open(adapters[0])
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		dev.Destroy()
		b.Close()
	})
	return b, dev.(*Device)
}

func newTestSwapchain(t *testing.T, dev *Device, w, h uint32) *Swapchain {
	t.Helper()
	sc, err := dev.CreateSwapchain(gfxtest.Window{Handle: 1}, w, h, 2)
	if err != nil {
		t.Fatalf("CreateSwapchain() error = %v", err)
	}
	t.Cleanup(sc.Destroy)
	return sc.(*Swapchain)
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(Name) {
		t.Fatalf("%q not registered", Name)
	}
}

func TestAdapters(t *testing.T) {
	b := NewWithAPI(noop.API{})
	defer b.Close()

	adapters, err := b.Adapters()
	if err != nil {
		t.Fatalf("Adapters() error = %v", err)
	}
	if len(adapters) != 1 {
		t.Fatalf("adapters = %d, want 1", len(adapters))
	}
	a := adapters[0]
	if a.Index != 0 || a.Name == "" {
		t.Errorf("adapter = %+v", a)
	}
	if a.Software {
		t.Error("noop adapter reported as software")
	}
	if a.FeatureLevel != gpucore.FeatureLevel11_0 {
		t.Errorf("FeatureLevel = %s, want 11_0", a.FeatureLevel)
	}
}

func TestFeatureLevel(t *testing.T) {
	tests := []struct {
		dim  uint32
		want gpucore.FeatureLevel
	}{
		{2048, gpucore.FeatureLevel10_0},
		{8192, gpucore.FeatureLevel11_0},
		{16384, gpucore.FeatureLevel12_0},
		{32768, gpucore.FeatureLevel12_0},
	}
	for _, tt := range tests {
		got := featureLevel(gputypes.Limits{MaxTextureDimension2D: tt.dim})
		if got != tt.want {
			t.Errorf("featureLevel(%d) = %s, want %s", tt.dim, got, tt.want)
		}
	}
}

func TestEnableValidation(t *testing.T) {
	b := NewWithAPI(noop.API{})
	defer b.Close()

	if err := b.EnableValidation(true); err != nil {
		t.Fatalf("EnableValidation() error = %v", err)
	}
	want := gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation | gputypes.InstanceFlagsGPUBasedValidation
	if b.flags != want {
		t.Errorf("flags = %v, want %v", b.flags, want)
	}
	if _, err := b.Adapters(); err != nil {
		t.Fatal(err)
	}
	if err := b.EnableValidation(false); !errors.Is(err, ErrInitialized) {
		t.Errorf("EnableValidation() after Adapters = %v, want ErrInitialized", err)
	}
}

func TestOpenUnknownAdapter(t *testing.T) {
	b := NewWithAPI(noop.API{})
	defer b.Close()

	if _, err := b.Open(gpucore.AdapterInfo{Index: 3}); !errors.Is(err, ErrBadAdapter) {
		t.Errorf("Open() = %v, want ErrBadAdapter", err)
	}
}

func TestProvider(t *testing.T) {
	_, dev := newTestDevice(t)
	p := dev.Provider()
	if p.Device() == nil || p.Queue() == nil {
		t.Error("provider returned nil device or queue")
	}
	if p.SurfaceFormat() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("SurfaceFormat() = %v", p.SurfaceFormat())
	}
	if p.AdapterInfo().Name == "" {
		t.Error("AdapterInfo().Name is empty")
	}
}

func TestSwapchainIndexAdvancesOnPresent(t *testing.T) {
	_, dev := newTestDevice(t)
	sc := newTestSwapchain(t, dev, 640, 480)

	if sc.BufferCount() != 2 {
		t.Fatalf("BufferCount() = %d", sc.BufferCount())
	}
	if w, h := sc.Size(); w != 640 || h != 480 {
		t.Errorf("Size() = %dx%d", w, h)
	}
	want := []int{0, 1, 0, 1}
	for i, idx := range want {
		if got := sc.CurrentBackBufferIndex(); got != idx {
			t.Fatalf("frame %d: index = %d, want %d", i, got, idx)
		}
		if err := sc.Present(1); err != nil {
			t.Fatalf("Present() error = %v", err)
		}
	}
	if sc.Presents() != 4 {
		t.Errorf("Presents() = %d", sc.Presents())
	}
}

func TestSwapchainResizeNeedsReleasedBuffers(t *testing.T) {
	_, dev := newTestDevice(t)
	sc := newTestSwapchain(t, dev, 640, 480)

	if err := sc.Present(1); err != nil {
		t.Fatal(err)
	}
	rt, err := sc.Buffer(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := sc.ResizeBuffers(2, 800, 600); !errors.Is(err, gpucore.ErrBuffersReferenced) {
		t.Fatalf("ResizeBuffers() with reference = %v, want ErrBuffersReferenced", err)
	}
	rt.Release()
	rt.Release()
	if err := sc.ResizeBuffers(2, 800, 600); err != nil {
		t.Fatalf("ResizeBuffers() error = %v", err)
	}
	if w, h := sc.Size(); w != 800 || h != 600 {
		t.Errorf("Size() = %dx%d, want 800x600", w, h)
	}
	if got := sc.CurrentBackBufferIndex(); got != 0 {
		t.Errorf("index after resize = %d, want 0", got)
	}
	if _, err := sc.Buffer(2); !errors.Is(err, gpucore.ErrInvalidCall) {
		t.Errorf("Buffer(2) = %v, want ErrInvalidCall", err)
	}
}

func TestFenceFollowsSubmissions(t *testing.T) {
	_, dev := newTestDevice(t)
	f, err := dev.CreateFence(0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Destroy()

	alloc, err := dev.CreateCommandAllocator()
	if err != nil {
		t.Fatal(err)
	}
	defer alloc.Destroy()
	list, err := dev.CreateCommandList(alloc)
	if err != nil {
		t.Fatal(err)
	}

	for v := uint64(1); v <= 3; v++ {
		if err := alloc.Reset(); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		if err := list.Reset(alloc, nil); err != nil {
			t.Fatalf("list Reset() error = %v", err)
		}
		if err := list.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := dev.Queue().Submit(list); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if err := dev.Queue().Signal(f, v); err != nil {
			t.Fatal(err)
		}
		if err := f.Wait(v); err != nil {
			t.Fatalf("Wait(%d) error = %v", v, err)
		}
		if got := f.Completed(); got != v {
			t.Errorf("Completed() = %d, want %d", got, v)
		}
	}
}

func TestCommandListStates(t *testing.T) {
	_, dev := newTestDevice(t)
	alloc, err := dev.CreateCommandAllocator()
	if err != nil {
		t.Fatal(err)
	}
	defer alloc.Destroy()
	list, err := dev.CreateCommandList(alloc)
	if err != nil {
		t.Fatal(err)
	}

	if err := list.Close(); err == nil {
		t.Error("Close() on a closed list succeeded")
	}
	if err := list.Reset(alloc, nil); err != nil {
		t.Fatal(err)
	}
	if err := dev.Queue().Submit(list); err == nil {
		t.Error("Submit() of a recording list succeeded")
	}
	if err := alloc.Reset(); !errors.Is(err, gpucore.ErrInvalidCall) {
		t.Errorf("allocator Reset() while recording = %v, want ErrInvalidCall", err)
	}
	if err := list.Reset(alloc, nil); !errors.Is(err, gpucore.ErrInvalidCall) {
		t.Errorf("Reset() of a recording list = %v, want ErrInvalidCall", err)
	}
	list.DrawIndexed(6)
	if err := list.Close(); err == nil || !strings.Contains(err.Error(), "pipeline state") {
		t.Errorf("Close() after invalid draw = %v", err)
	}
}

func TestClearOnlyFrameRecordsOnePass(t *testing.T) {
	_, dev := newTestDevice(t)
	sc := newTestSwapchain(t, dev, 64, 64)
	alloc, err := dev.CreateCommandAllocator()
	if err != nil {
		t.Fatal(err)
	}
	defer alloc.Destroy()
	l, err := dev.CreateCommandList(alloc)
	if err != nil {
		t.Fatal(err)
	}
	list := l.(*CommandList)

	rt, err := sc.Buffer(sc.CurrentBackBufferIndex())
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Release()

	if err := list.Reset(alloc, nil); err != nil {
		t.Fatal(err)
	}
	list.ResourceBarrier(rt, gpucore.ResourceStatePresent, gpucore.ResourceStateRenderTarget)
	list.SetRenderTarget(rt)
	list.ClearRenderTarget(rt, gpucore.Color{})
	list.ResourceBarrier(rt, gpucore.ResourceStateRenderTarget, gpucore.ResourceStatePresent)
	if err := list.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if list.Passes() != 1 {
		t.Errorf("Passes() = %d, want 1", list.Passes())
	}
	if err := dev.Queue().Submit(list); err != nil {
		t.Fatal(err)
	}
	if err := sc.Present(1); err != nil {
		t.Fatal(err)
	}
}

func TestShaderSource(t *testing.T) {
	src := ShaderSource()
	for _, want := range []string{
		"@vertex", "@fragment", "vs_main", "fs_main",
		"@binding(0) var<uniform>",
		"@binding(1) var desktop: texture_2d<f32>",
		"@binding(2) var desktop_sampler: sampler",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("shader source lacks %q", want)
		}
	}
}

func TestShaderCompiles(t *testing.T) {
	words, err := compileShader(ShaderSource())
	if err != nil {
		t.Fatalf("compileShader() error = %v", err)
	}
	if len(words) == 0 {
		t.Fatal("compileShader() returned no words")
	}
	if words[0] != 0x07230203 {
		t.Errorf("output is not SPIR-V (first word %#x)", words[0])
	}
}

func TestPipelineStateTargetsSwapchainFormat(t *testing.T) {
	_, dev := newTestDevice(t)
	sc := newTestSwapchain(t, dev, 64, 64)

	pso, err := dev.CreatePipelineState()
	if err != nil {
		t.Fatalf("CreatePipelineState() error = %v", err)
	}
	defer pso.Destroy()
	if got := pso.(*PipelineState).format; got != sc.Format() {
		t.Errorf("pipeline format = %v, swap chain format = %v", got, sc.Format())
	}
}
