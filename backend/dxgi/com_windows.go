//go:build windows

package dxgi

import (
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

var (
	d3d11  = windows.NewLazySystemDLL("d3d11.dll")
	user32 = windows.NewLazySystemDLL("user32.dll")

	procD3D11CreateDevice = d3d11.NewProc("D3D11CreateDevice")
	procMonitorFromWindow = user32.NewProc("MonitorFromWindow")
)

var (
	iidIDXGIDevice     = ole.NewGUID("{54ec77fa-1377-44e6-8c32-88fd5f44c84c}")
	iidIDXGIOutput1    = ole.NewGUID("{00cddea8-939b-4b83-a340-a685226666cc}")
	iidID3D11Texture2D = ole.NewGUID("{6f15aaf2-d208-4e89-9ab4-489535d34f9c}")
)

const (
	d3dDriverTypeHardware        = 1
	d3dFeatureLevel11_0          = 0xb000
	d3d11SDKVersion              = 7
	d3d11CreateDeviceBGRASupport = 0x20

	d3d11UsageStaging  = 3
	d3d11CPUAccessRead = 0x20000
	d3d11MapRead       = 1
	dxgiFormatB8G8R8A8 = 87

	monitorDefaultToNearest = 2
)

// Vtable slots. IUnknown takes 0-2, IDXGIObject 3-6, ID3D11DeviceChild 3-6.
const (
	dxgiDeviceGetAdapter       = 7
	dxgiAdapterEnumOutputs     = 7
	dxgiOutputGetDesc          = 7
	dxgiOutput1DuplicateOutput = 22
	dxgiDuplGetDesc            = 7
	dxgiDuplAcquireNextFrame   = 8
	dxgiDuplReleaseFrame       = 14
	d3d11DeviceCreateTexture2D = 5
	d3d11Texture2DGetDesc      = 10
	d3d11CtxMap                = 14
	d3d11CtxUnmap              = 15
	d3d11CtxCopyResource       = 47
)

// d3d11Texture2DDesc is D3D11_TEXTURE2D_DESC.
type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// d3d11MappedSubresource is D3D11_MAPPED_SUBRESOURCE.
type d3d11MappedSubresource struct {
	Data       uintptr
	RowPitch   uint32
	DepthPitch uint32
}

type dxgiRect struct {
	Left, Top, Right, Bottom int32
}

// dxgiOutputDesc is DXGI_OUTPUT_DESC.
type dxgiOutputDesc struct {
	DeviceName         [32]uint16
	DesktopCoordinates dxgiRect
	AttachedToDesktop  int32
	Rotation           uint32
	Monitor            uintptr
}

type dxgiRational struct {
	Numerator   uint32
	Denominator uint32
}

type dxgiModeDesc struct {
	Width            uint32
	Height           uint32
	RefreshRate      dxgiRational
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

// dxgiOutDuplDesc is DXGI_OUTDUPL_DESC.
type dxgiOutDuplDesc struct {
	ModeDesc                   dxgiModeDesc
	Rotation                   uint32
	DesktopImageInSystemMemory int32
}

// dxgiOutDuplFrameInfo is DXGI_OUTDUPL_FRAME_INFO.
type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPositionX          int32
	PointerPositionY          int32
	PointerVisible            int32
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}

// comCall invokes vtable slot index of obj and returns the raw result.
func comCall(obj *ole.IUnknown, index int, args ...uintptr) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Pointer(vtbl + uintptr(index)*unsafe.Sizeof(uintptr(0))))
	all := make([]uintptr, 0, 1+len(args))
	all = append(all, uintptr(unsafe.Pointer(obj)))
	all = append(all, args...)
	ret, _, _ := syscall.SyscallN(fn, all...)
	return ret
}

// queryInterface returns obj as the interface iid.
func queryInterface(obj *ole.IUnknown, iid *ole.GUID) (*ole.IUnknown, error) {
	disp, err := obj.QueryInterface(iid)
	if err != nil {
		return nil, err
	}
	return (*ole.IUnknown)(unsafe.Pointer(disp)), nil
}

// outPtr returns the address COM writes an interface pointer to.
func outPtr(p **ole.IUnknown) uintptr { return uintptr(unsafe.Pointer(p)) }

// release drops a reference and tolerates nil.
func release(obj *ole.IUnknown) {
	if obj != nil {
		obj.Release()
	}
}
