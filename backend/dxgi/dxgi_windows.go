//go:build windows

package dxgi

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"
	"unsafe"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"

	"github.com/gogpu/mirror/backend"
	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
	"github.com/gogpu/mirror/internal/shm"
)

// Name is the registry name of this backend.
const Name = backend.CaptureDXGI

// ErrNoOutput is returned when the adapter drives no monitor.
var ErrNoOutput = errors.New("dxgi: adapter has no outputs")

// Legacy is a D3D11 device on the default hardware adapter.
type Legacy struct {
	device  *ole.IUnknown // ID3D11Device
	context *ole.IUnknown // ID3D11DeviceContext
	adapter *ole.IUnknown // IDXGIAdapter

	mu      sync.Mutex
	outputs []*Output
	handles map[gpucore.SharedHandle]struct{}
}

var _ gpucore.Legacy = (*Legacy)(nil)

// New creates the D3D11 device.
func New() (*Legacy, error) {
	if err := procD3D11CreateDevice.Find(); err != nil {
		return nil, fmt.Errorf("dxgi: %w: %w", gpucore.ErrUnsupported, err)
	}
	var device, context *ole.IUnknown
	level := uint32(d3dFeatureLevel11_0)
	var actual uint32
	hr, _, _ := procD3D11CreateDevice.Call(
		0,
		d3dDriverTypeHardware,
		0,
		d3d11CreateDeviceBGRASupport,
		uintptr(unsafe.Pointer(&level)),
		1,
		d3d11SDKVersion,
		outPtr(&device),
		uintptr(unsafe.Pointer(&actual)),
		outPtr(&context),
	)
	if err := checkHRESULT("create device", hr); err != nil {
		return nil, err
	}

	dxgiDevice, err := queryInterface(device, iidIDXGIDevice)
	if err != nil {
		release(context)
		release(device)
		return nil, fmt.Errorf("dxgi: query IDXGIDevice: %w", err)
	}
	defer release(dxgiDevice)

	var adapter *ole.IUnknown
	if err := checkHRESULT("get adapter", comCall(dxgiDevice, dxgiDeviceGetAdapter, outPtr(&adapter))); err != nil {
		release(context)
		release(device)
		return nil, err
	}
	logging.Logger().Debug("dxgi: device created", "feature_level", fmt.Sprintf("%#x", actual))
	return &Legacy{
		device:  device,
		context: context,
		adapter: adapter,
		handles: make(map[gpucore.SharedHandle]struct{}),
	}, nil
}

// Name returns "dxgi".
func (l *Legacy) Name() string { return Name }

// Output is an IDXGIOutput1 and its description.
type Output struct {
	output *ole.IUnknown
	desc   dxgiOutputDesc
}

// Info returns the GDI device name and desktop rectangle.
func (o *Output) Info() gpucore.OutputInfo {
	r := o.desc.DesktopCoordinates
	return gpucore.OutputInfo{
		Name:   windows.UTF16ToString(o.desc.DeviceName[:]),
		Bounds: image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)),
	}
}

// OutputForWindow returns the output showing the monitor nearest to the
// window, or the adapter's first output.
func (l *Legacy) OutputForWindow(win gpucore.Window) (gpucore.Output, error) {
	_, hwnd := win.NativeHandle()
	monitor, _, _ := procMonitorFromWindow.Call(hwnd, monitorDefaultToNearest)

	var first, match *Output
	for i := uintptr(0); ; i++ {
		var raw *ole.IUnknown
		hr := comCall(l.adapter, dxgiAdapterEnumOutputs, i, outPtr(&raw))
		if uint32(hr) == errNotFound { //nolint:gosec // HRESULT is 32 bits
			break
		}
		if err := checkHRESULT("enum outputs", hr); err != nil {
			release(first.unknown())
			return nil, err
		}
		o, err := newOutput(raw)
		release(raw)
		if err != nil {
			release(first.unknown())
			return nil, err
		}
		switch {
		case o.desc.Monitor == monitor && match == nil:
			match = o
		case first == nil:
			first = o
		default:
			release(o.output)
		}
		if match != nil {
			break
		}
	}
	chosen := match
	if chosen == nil {
		chosen = first
	} else {
		release(first.unknown())
	}
	if chosen == nil {
		return nil, ErrNoOutput
	}
	l.mu.Lock()
	l.outputs = append(l.outputs, chosen)
	l.mu.Unlock()
	return chosen, nil
}

func newOutput(raw *ole.IUnknown) (*Output, error) {
	o := &Output{}
	if err := checkHRESULT("output desc", comCall(raw, dxgiOutputGetDesc, uintptr(unsafe.Pointer(&o.desc)))); err != nil {
		return nil, err
	}
	output1, err := queryInterface(raw, iidIDXGIOutput1)
	if err != nil {
		return nil, fmt.Errorf("dxgi: query IDXGIOutput1: %w", err)
	}
	o.output = output1
	return o, nil
}

func (o *Output) unknown() *ole.IUnknown {
	if o == nil {
		return nil
	}
	return o.output
}

// DuplicateOutput starts desktop duplication on out.
func (l *Legacy) DuplicateOutput(out gpucore.Output) (gpucore.Duplication, error) {
	o, ok := out.(*Output)
	if !ok {
		return nil, fmt.Errorf("dxgi: foreign output %T", out)
	}
	var dup *ole.IUnknown
	hr := comCall(o.output, dxgiOutput1DuplicateOutput, uintptr(unsafe.Pointer(l.device)), outPtr(&dup))
	if err := checkHRESULT("duplicate output", hr); err != nil {
		return nil, err
	}
	var desc dxgiOutDuplDesc
	comCall(dup, dxgiDuplGetDesc, uintptr(unsafe.Pointer(&desc)))
	logging.Logger().Debug("dxgi: duplication started",
		"width", desc.ModeDesc.Width, "height", desc.ModeDesc.Height,
		"rotation", desc.Rotation)
	return &Duplication{dup: dup}, nil
}

// CreateSharedTexture creates a BGRA staging texture and the shared memory
// region it is published to.
func (l *Legacy) CreateSharedTexture(width, height uint32) (gpucore.SharedTexture, error) {
	region, err := shm.Create(width, height, gpucore.PixelFormatBGRA8)
	if err != nil {
		return nil, fmt.Errorf("dxgi: %w", err)
	}
	desc := d3d11Texture2DDesc{
		Width:          width,
		Height:         height,
		MipLevels:      1,
		ArraySize:      1,
		Format:         dxgiFormatB8G8R8A8,
		SampleCount:    1,
		Usage:          d3d11UsageStaging,
		CPUAccessFlags: d3d11CPUAccessRead,
	}
	var staging *ole.IUnknown
	hr := comCall(l.device, d3d11DeviceCreateTexture2D, uintptr(unsafe.Pointer(&desc)), 0, outPtr(&staging))
	if err := checkHRESULT("create staging texture", hr); err != nil {
		_ = region.Close()
		return nil, err
	}
	return &SharedTexture{legacy: l, region: region, staging: staging}, nil
}

// CopyResource copies the frame into the staging texture, reads it back
// and publishes it to the shared region.
func (l *Legacy) CopyResource(dst gpucore.SharedTexture, src gpucore.CaptureTexture) error {
	st, ok := dst.(*SharedTexture)
	if !ok {
		return fmt.Errorf("dxgi: foreign shared texture %T", dst)
	}
	f, ok := src.(*Frame)
	if !ok {
		return fmt.Errorf("dxgi: foreign capture texture %T", src)
	}
	if st.region == nil || f.texture == nil {
		return fmt.Errorf("dxgi: copy with released texture: %w", gpucore.ErrInvalidCall)
	}
	w, h := st.Size()
	if fw, fh := f.Size(); fw != w || fh != h {
		return fmt.Errorf("dxgi: copy %dx%d into %dx%d: %w", fw, fh, w, h, gpucore.ErrInvalidCall)
	}

	comCall(l.context, d3d11CtxCopyResource, uintptr(unsafe.Pointer(st.staging)), uintptr(unsafe.Pointer(f.texture)))

	var mapped d3d11MappedSubresource
	hr := comCall(l.context, d3d11CtxMap, uintptr(unsafe.Pointer(st.staging)), 0, d3d11MapRead, 0, uintptr(unsafe.Pointer(&mapped)))
	if err := checkHRESULT("map staging texture", hr); err != nil {
		return err
	}
	rowBytes := int(w) * 4
	pitch := int(mapped.RowPitch)
	srcPix := unsafe.Slice((*byte)(unsafe.Pointer(mapped.Data)), pitch*int(h)) //nolint:govet // mapped GPU memory
	dstPix := st.region.Pixels()
	stride := int(st.region.Stride())
	for y := range int(h) {
		copy(dstPix[y*stride:y*stride+rowBytes], srcPix[y*pitch:y*pitch+rowBytes])
	}
	comCall(l.context, d3d11CtxUnmap, uintptr(unsafe.Pointer(st.staging)), 0)
	st.region.Publish()
	return nil
}

// CloseSharedHandle closes an exported handle.
func (l *Legacy) CloseSharedHandle(h gpucore.SharedHandle) error {
	l.mu.Lock()
	_, ok := l.handles[h]
	delete(l.handles, h)
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("dxgi: close unknown handle %d: %w", h, gpucore.ErrInvalidCall)
	}
	return shm.CloseHandle(h)
}

// Close releases the outputs, the device and any handle still exported.
func (l *Legacy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for h := range l.handles {
		errs = append(errs, shm.CloseHandle(h))
	}
	clear(l.handles)
	for _, o := range l.outputs {
		release(o.output)
	}
	l.outputs = nil
	release(l.adapter)
	release(l.context)
	release(l.device)
	l.adapter, l.context, l.device = nil, nil, nil
	return errors.Join(errs...)
}

// Duplication is an IDXGIOutputDuplication.
type Duplication struct {
	dup   *ole.IUnknown
	frame *Frame
}

var _ gpucore.Duplication = (*Duplication)(nil)

// ReleaseFrame drops the held frame texture and releases the frame.
func (d *Duplication) ReleaseFrame() error {
	if d.frame != nil {
		d.frame.release()
		d.frame = nil
	}
	return checkHRESULT("release frame", comCall(d.dup, dxgiDuplReleaseFrame))
}

// AcquireNextFrame waits up to timeout for a desktop update.
func (d *Duplication) AcquireNextFrame(timeout time.Duration) (gpucore.FrameInfo, gpucore.CaptureTexture, error) {
	var info dxgiOutDuplFrameInfo
	var resource *ole.IUnknown
	ms := uintptr(max(timeout.Milliseconds(), 0))
	hr := comCall(d.dup, dxgiDuplAcquireNextFrame, ms, uintptr(unsafe.Pointer(&info)), outPtr(&resource))
	if err := checkHRESULT("acquire next frame", hr); err != nil {
		return gpucore.FrameInfo{}, nil, err
	}
	defer release(resource)

	tex, err := queryInterface(resource, iidID3D11Texture2D)
	if err != nil {
		return gpucore.FrameInfo{}, nil, fmt.Errorf("dxgi: query ID3D11Texture2D: %w", err)
	}
	f := &Frame{texture: tex}
	comCall(tex, d3d11Texture2DGetDesc, uintptr(unsafe.Pointer(&f.desc)))
	d.frame = f
	return gpucore.FrameInfo{
		LastPresentTime:   info.LastPresentTime,
		AccumulatedFrames: info.AccumulatedFrames,
	}, f, nil
}

// Close releases the duplication.
func (d *Duplication) Close() error {
	if d.frame != nil {
		d.frame.release()
		d.frame = nil
	}
	release(d.dup)
	d.dup = nil
	return nil
}

// Frame is the acquired desktop texture.
type Frame struct {
	texture *ole.IUnknown
	desc    d3d11Texture2DDesc
}

var _ gpucore.CaptureTexture = (*Frame)(nil)

// Size returns the texture size.
func (f *Frame) Size() (width, height uint32) { return f.desc.Width, f.desc.Height }

// Format returns BGRA8.
func (f *Frame) Format() gpucore.PixelFormat { return gpucore.PixelFormatBGRA8 }

func (f *Frame) release() {
	release(f.texture)
	f.texture = nil
}

// SharedTexture is a staging texture and the region it publishes to.
type SharedTexture struct {
	legacy  *Legacy
	region  *shm.Region
	staging *ole.IUnknown
}

var _ gpucore.SharedTexture = (*SharedTexture)(nil)

// Size returns the texture size.
func (t *SharedTexture) Size() (width, height uint32) {
	if t.region == nil {
		return 0, 0
	}
	return t.region.Width(), t.region.Height()
}

// Format returns BGRA8.
func (t *SharedTexture) Format() gpucore.PixelFormat { return gpucore.PixelFormatBGRA8 }

// CreateSharedHandle exports a new handle to the region.
func (t *SharedTexture) CreateSharedHandle() (gpucore.SharedHandle, error) {
	if t.region == nil {
		return 0, fmt.Errorf("dxgi: export released texture: %w", gpucore.ErrInvalidCall)
	}
	h, err := t.region.Export()
	if err != nil {
		return 0, fmt.Errorf("dxgi: %w", err)
	}
	t.legacy.mu.Lock()
	t.legacy.handles[h] = struct{}{}
	t.legacy.mu.Unlock()
	return h, nil
}

// Release frees the staging texture and unmaps the region.
func (t *SharedTexture) Release() error {
	if t.region == nil {
		return nil
	}
	release(t.staging)
	t.staging = nil
	err := t.region.Close()
	t.region = nil
	return err
}
