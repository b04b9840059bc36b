package mirror

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/gfxtest"
)

type testRig struct {
	p       *Pipeline
	backend *gfxtest.Backend
	legacy  *gfxtest.Legacy
}

func (r *testRig) device() *gfxtest.Device { return r.backend.Opened }

func newRig(t *testing.T, w, h uint32, script ...gfxtest.Step) *testRig {
	t.Helper()
	b := gfxtest.NewBackend()
	l := gfxtest.NewLegacy(script...)
	p, err := New(gfxtest.Window{Handle: 0x1234}, w, h, WithBackend(b), WithCapture(l))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return &testRig{p: p, backend: b, legacy: l}
}

func render(t *testing.T, p *Pipeline) {
	t.Helper()
	if err := p.OnRender(); err != nil {
		t.Fatalf("OnRender() error = %v", err)
	}
}

func TestNewBuildsResources(t *testing.T) {
	r := newRig(t, 1920, 1080)
	dev := r.device()

	if dev.Swapchain.BufferCount() != 2 {
		t.Errorf("buffer count = %d, want 2", dev.Swapchain.BufferCount())
	}
	if len(dev.Geometries) != 1 || !slices.Equal(dev.Geometries[0].Indices, quadIndices) {
		t.Errorf("quad indices = %v", dev.Geometries[0].Indices)
	}
	if dev.Pipelines != 1 || len(dev.Uniforms) != 1 {
		t.Errorf("pipelines = %d, uniforms = %d", dev.Pipelines, len(dev.Uniforms))
	}
	if w, h := r.p.SharedTextureSize(); w != 1920 || h != 1080 {
		t.Errorf("shared texture = %dx%d, want window size", w, h)
	}
	if len(r.legacy.Duplications) != 1 {
		t.Errorf("duplications = %d, want 1", len(r.legacy.Duplications))
	}
}

func TestNewWithoutBackends(t *testing.T) {
	_, err := New(gfxtest.Window{}, 8, 8, WithBackendName("missing"), WithCapture(gfxtest.NewLegacy()))
	if !errors.Is(err, ErrNoBackend) {
		t.Errorf("New() error = %v, want ErrNoBackend", err)
	}
	_, err = New(gfxtest.Window{}, 8, 8, WithBackend(gfxtest.NewBackend()), WithCaptureName("missing"))
	if !errors.Is(err, ErrNoCapture) {
		t.Errorf("New() error = %v, want ErrNoCapture", err)
	}
}

func TestNewFailureReleasesResources(t *testing.T) {
	b := gfxtest.NewBackend()
	l := gfxtest.NewLegacy()
	l.DuplicateErr = gfxtest.ErrInjected

	_, err := New(gfxtest.Window{}, 8, 8, WithBackend(b), WithCapture(l))
	if !errors.Is(err, gfxtest.ErrInjected) {
		t.Fatalf("New() error = %v, want injected failure", err)
	}
	if !b.Opened.Destroyed || !b.Opened.Swapchain.Destroyed || !l.Closed {
		t.Error("partially built pipeline leaked resources")
	}
}

func TestNoHardwareAdapter(t *testing.T) {
	b := gfxtest.NewBackend()
	b.AdapterList[0].Software = true
	_, err := New(gfxtest.Window{}, 8, 8, WithBackend(b), WithCapture(gfxtest.NewLegacy()))
	if !errors.Is(err, ErrNoHardwareAdapter) {
		t.Errorf("New() error = %v, want ErrNoHardwareAdapter", err)
	}
}

func TestRenderRecordsFrame(t *testing.T) {
	r := newRig(t, 1920, 1080, gfxtest.Updated(1920, 1080))
	render(t, r.p)

	dev := r.device()
	if len(dev.FakeQueue.Submitted) != 1 {
		t.Fatalf("submissions = %d, want 1", len(dev.FakeQueue.Submitted))
	}
	got := dev.FakeQueue.Submitted[0].Submissions[0]
	want := []string{
		"bind slot=1 1920x1080",
		"viewport 1920x1080",
		"scissor 1920x1080",
		"barrier 0 Present->RenderTarget",
		"target 0",
		"clear 0 0,0,0,0",
		"geometry 6",
		"draw 6",
		"barrier 0 RenderTarget->Present",
	}
	if !slices.Equal(got, want) {
		t.Errorf("recorded commands:\n got %v\nwant %v", got, want)
	}
	if r.legacy.Copies != 1 {
		t.Errorf("copies = %d, want 1", r.legacy.Copies)
	}

	events := dev.Log.Events()
	order := []string{"signal 1", "allocator reset", "submit", "present 0"}
	i := 0
	for _, e := range events {
		if i < len(order) && e == order[i] {
			i++
		}
	}
	if i != len(order) {
		t.Errorf("events %v do not contain %v in order", events, order)
	}
}

func TestRenderFollowsSwapchainIndex(t *testing.T) {
	b := gfxtest.NewBackend()
	p, err := New(gfxtest.Window{}, 64, 64, WithBackend(b), WithCapture(gfxtest.NewLegacy()))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	for i := 0; i < 4; i++ {
		idx := p.BackBufferIndex()
		if idx != 0 && idx != 1 {
			t.Fatalf("index = %d, want 0 or 1", idx)
		}
		render(t, p)
		want := fmt.Sprintf("present %d", idx)
		events := b.Opened.Log.Events()
		if events[len(events)-1] != want {
			t.Errorf("frame %d: last event %q, want %q", i, events[len(events)-1], want)
		}
	}
}

func TestScenario(t *testing.T) {
	r := newRig(t, 1920, 1080,
		gfxtest.Updated(2560, 1440),
		gfxtest.Unchanged(2560, 1440),
		gfxtest.Updated(2560, 1440),
	)
	p := r.p

	render(t, p)
	if idx := p.BackBufferIndex(); idx != 0 && idx != 1 {
		t.Fatalf("index = %d", idx)
	}
	if w, h := p.SharedTextureSize(); w != 2560 || h != 1440 {
		t.Fatalf("shared texture = %dx%d, want capture size", w, h)
	}

	if err := p.OnResize(1280, 720); err != nil {
		t.Fatalf("OnResize() error = %v", err)
	}
	if w, h := p.SurfaceSize(); w != 1280 || h != 720 {
		t.Errorf("surface = %dx%d, want 1280x720", w, h)
	}
	if w, h := p.SharedTextureSize(); w != 2560 || h != 1440 {
		t.Errorf("shared texture = %dx%d after resize, want last frame size", w, h)
	}

	render(t, p)

	u := Uniform{ApexX: 640, ApexY: 360, SideLength: 200}
	p.OnUpdate(u)
	render(t, p)

	dev := r.device()
	last := dev.FakeQueue.Submitted[len(dev.FakeQueue.Submitted)-1]
	if last.Uniform == nil {
		t.Fatal("no uniform bound")
	}
	want, _ := u.MarshalBinary()
	if !bytes.Equal(last.Uniform.Data[:UniformSize], want) {
		t.Errorf("uniform bytes = % x, want % x", last.Uniform.Data[:UniformSize], want)
	}
	if last.Viewport.Width != 1280 || last.Viewport.Height != 720 {
		t.Errorf("viewport = %+v, want 1280x720", last.Viewport)
	}

	st := p.Stats()
	if st.Frames != 3 || st.Updated != 2 || st.Unchanged != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.BridgeRecreations != 2 {
		t.Errorf("bridge recreations = %d, want 2 (window size, then capture size)", st.BridgeRecreations)
	}
}

func TestResizeBeforeAnyFrameUsesWindowSize(t *testing.T) {
	r := newRig(t, 1920, 1080)
	if err := r.p.OnResize(800, 600); err != nil {
		t.Fatal(err)
	}
	if w, h := r.p.SharedTextureSize(); w != 800 || h != 600 {
		t.Errorf("shared texture = %dx%d, want 800x600", w, h)
	}
}

func TestResizeIgnoresZero(t *testing.T) {
	r := newRig(t, 640, 480)
	r.device().Log.Reset()

	for _, sz := range [][2]uint32{{0, 480}, {640, 0}, {0, 0}} {
		if err := r.p.OnResize(sz[0], sz[1]); err != nil {
			t.Fatalf("OnResize(%d, %d) error = %v", sz[0], sz[1], err)
		}
	}
	if events := r.device().Log.Events(); len(events) != 0 {
		t.Errorf("zero-size resize did work: %v", events)
	}
	if w, h := r.p.SurfaceSize(); w != 640 || h != 480 {
		t.Errorf("surface = %dx%d", w, h)
	}
}

func TestResizeWaitsForIdleFirst(t *testing.T) {
	r := newRig(t, 640, 480)
	render(t, r.p)
	r.device().Log.Reset()

	if err := r.p.OnResize(320, 240); err != nil {
		t.Fatal(err)
	}
	events := r.device().Log.Events()
	if len(events) < 2 || events[0] != "signal 2" || events[1] != "resize 320x240" {
		t.Errorf("events = %v, want signal before resize", events)
	}
	if r.device().Swapchain.Refs() != 2 {
		t.Errorf("buffer refs = %d, want 2 after rebuild", r.device().Swapchain.Refs())
	}
}

func TestRenderRecoversFromCaptureLoss(t *testing.T) {
	r := newRig(t, 64, 64, gfxtest.Lost(), gfxtest.Updated(64, 64))
	render(t, r.p)

	st := r.p.Stats()
	if st.CaptureRecreations != 1 || st.Updated != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRenderFailsOnRepeatedLoss(t *testing.T) {
	r := newRig(t, 64, 64, gfxtest.Lost(), gfxtest.Lost())
	err := r.p.OnRender()
	if !errors.Is(err, ErrCaptureLost) {
		t.Fatalf("OnRender() error = %v, want ErrCaptureLost", err)
	}
	if n := len(r.device().FakeQueue.Submitted); n != 0 {
		t.Errorf("submissions = %d after fatal capture error, want 0", n)
	}
}

func TestUnchangedFramesLeaveBridgeAlone(t *testing.T) {
	r := newRig(t, 64, 64,
		gfxtest.Updated(32, 32),
		gfxtest.Unchanged(32, 32), gfxtest.Unchanged(32, 32), gfxtest.Timeout(),
	)
	render(t, r.p)
	textures, copies := len(r.legacy.Textures), r.legacy.Copies

	for i := 0; i < 3; i++ {
		render(t, r.p)
	}
	if len(r.legacy.Textures) != textures || r.legacy.Copies != copies {
		t.Errorf("bridge changed on unchanged frames: textures %d->%d, copies %d->%d",
			textures, len(r.legacy.Textures), copies, r.legacy.Copies)
	}
	if st := r.p.Stats(); st.TimedOut != 1 || st.Unchanged != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestUniformRoundTrip(t *testing.T) {
	r := newRig(t, 64, 64)
	u := Uniform{ApexX: 12.5, ApexY: -3, SideLength: 1e6}
	r.p.OnUpdate(u)

	var got Uniform
	if err := got.UnmarshalBinary(r.device().Uniforms[0].Data); err != nil {
		t.Fatal(err)
	}
	if got != u {
		t.Errorf("uniform = %+v, want %+v", got, u)
	}
}

func TestClose(t *testing.T) {
	r := newRig(t, 64, 64, gfxtest.Updated(64, 64))
	render(t, r.p)

	if err := r.p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(r.legacy.OpenHandles) != 0 {
		t.Errorf("open handles = %d after Close", len(r.legacy.OpenHandles))
	}
	if !r.device().Destroyed {
		t.Error("device not destroyed")
	}
	if err := r.p.OnRender(); !errors.Is(err, ErrClosed) {
		t.Errorf("OnRender() after Close = %v, want ErrClosed", err)
	}
	if err := r.p.OnResize(8, 8); !errors.Is(err, ErrClosed) {
		t.Errorf("OnResize() after Close = %v, want ErrClosed", err)
	}
	r.p.OnUpdate(Uniform{})
	if err := r.p.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestClearColorOption(t *testing.T) {
	b := gfxtest.NewBackend()
	p, err := New(gfxtest.Window{}, 8, 8,
		WithBackend(b), WithCapture(gfxtest.NewLegacy()),
		WithClearColor(gpucore.Color{R: 0.5, A: 0.5}))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	render(t, p)

	cmds := b.Opened.FakeQueue.Submitted[0].Submissions[0]
	if !slices.Contains(cmds, "clear 0 0.5,0,0,0.5") {
		t.Errorf("commands = %v, want custom clear", cmds)
	}
}
