//go:build linux || darwin || windows

package native

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/shm"
)

func newRegion(t *testing.T, w, h uint32) (*shm.Region, gpucore.SharedHandle) {
	t.Helper()
	r, err := shm.Create(w, h, gpucore.PixelFormatBGRA8)
	if err != nil {
		t.Fatalf("shm.Create() error = %v", err)
	}
	handle, err := r.Export()
	if err != nil {
		_ = r.Close()
		t.Fatalf("Export() error = %v", err)
	}
	t.Cleanup(func() {
		_ = shm.CloseHandle(handle)
		_ = r.Close()
	})
	return r, handle
}

func TestImportShared(t *testing.T) {
	_, dev := newTestDevice(t)
	_, handle := newRegion(t, 32, 16)

	imp, err := dev.ImportShared(gpucore.SharedDesc{
		Handle: handle, Width: 32, Height: 16, Format: gpucore.PixelFormatBGRA8,
	}, textureBinding)
	if err != nil {
		t.Fatalf("ImportShared() error = %v", err)
	}
	defer imp.Destroy()

	if w, h := imp.Size(); w != 32 || h != 16 {
		t.Errorf("Size() = %dx%d", w, h)
	}
	if imp.Slot() != 1 {
		t.Errorf("Slot() = %d, want 1", imp.Slot())
	}
}

func TestImportSharedRejects(t *testing.T) {
	_, dev := newTestDevice(t)
	_, handle := newRegion(t, 32, 16)

	tests := []struct {
		name string
		desc gpucore.SharedDesc
		slot uint32
		want error
	}{
		{"slot", gpucore.SharedDesc{Handle: handle, Width: 32, Height: 16, Format: gpucore.PixelFormatBGRA8}, 0, ErrSlot},
		{"format", gpucore.SharedDesc{Handle: handle, Width: 32, Height: 16}, 1, gpucore.ErrUnsupported},
		{"size", gpucore.SharedDesc{Handle: handle, Width: 64, Height: 16, Format: gpucore.PixelFormatBGRA8}, 1, shm.ErrBadRegion},
		{"region format", gpucore.SharedDesc{Handle: handle, Width: 32, Height: 16, Format: gpucore.PixelFormatRGBA8}, 1, shm.ErrBadRegion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp, err := dev.ImportShared(tt.desc, tt.slot)
			if err != nil && errors.Is(tt.want, shm.ErrBadRegion) && !strings.Contains(err.Error(), "region is 32x16") {
				t.Errorf("ImportShared() error %q lacks the region size", err)
			}
			if !errors.Is(err, tt.want) {
				if imp != nil {
					imp.Destroy()
				}
				t.Errorf("ImportShared() = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestFrameUploadsOnlyPublishedFrames records full frames and checks the
// desktop texture is uploaded once per published generation.
func TestFrameUploadsOnlyPublishedFrames(t *testing.T) {
	_, dev := newTestDevice(t)
	sc := newTestSwapchain(t, dev, 64, 32)
	region, handle := newRegion(t, 8, 8)

	pso, err := dev.CreatePipelineState()
	if err != nil {
		t.Fatal(err)
	}
	defer pso.Destroy()
	quad, err := dev.CreateGeometry([]gpucore.Vertex{
		{X: -1, Y: 1}, {X: 1, Y: 1, U: 1}, {X: 1, Y: -1, U: 1, V: 1}, {X: -1, Y: -1, V: 1},
	}, []uint32{0, 1, 2, 0, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	defer quad.Destroy()
	uniform, err := dev.CreateUniformBuffer(256)
	if err != nil {
		t.Fatal(err)
	}
	defer uniform.Destroy()
	imp, err := dev.ImportShared(gpucore.SharedDesc{
		Handle: handle, Width: 8, Height: 8, Format: gpucore.PixelFormatBGRA8,
	}, textureBinding)
	if err != nil {
		t.Fatal(err)
	}
	defer imp.Destroy()

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

	frame := func() {
		t.Helper()
		rt, err := sc.Buffer(sc.CurrentBackBufferIndex())
		if err != nil {
			t.Fatal(err)
		}
		defer rt.Release()
		if err := alloc.Reset(); err != nil {
			t.Fatal(err)
		}
		if err := list.Reset(alloc, pso); err != nil {
			t.Fatal(err)
		}
		list.SetBindings(uniform, imp)
		list.SetViewport(gpucore.Viewport{Width: 64, Height: 32, MaxDepth: 1})
		list.SetScissorRect(gpucore.Rect{Right: 64, Bottom: 32})
		list.ResourceBarrier(rt, gpucore.ResourceStatePresent, gpucore.ResourceStateRenderTarget)
		list.SetRenderTarget(rt)
		list.ClearRenderTarget(rt, gpucore.Color{})
		list.SetGeometry(quad)
		list.DrawIndexed(quad.IndexCount())
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

	native := imp.(*ImportedTexture)
	frame()
	if native.Uploads() != 0 {
		t.Fatalf("uploads before any publish = %d", native.Uploads())
	}
	region.Pixels()[0] = 0xff
	region.Publish()
	frame()
	frame()
	if native.Uploads() != 1 {
		t.Errorf("uploads after one publish = %d, want 1", native.Uploads())
	}
	region.Publish()
	frame()
	if native.Uploads() != 2 {
		t.Errorf("uploads after two publishes = %d, want 2", native.Uploads())
	}
	if sc.CurrentBackBufferIndex() != 0 {
		t.Errorf("index after four presents = %d, want 0", sc.CurrentBackBufferIndex())
	}
}
