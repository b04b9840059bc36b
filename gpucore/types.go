package gpucore

import (
	"fmt"
	"image"
	"time"
)

// FeatureLevel is a hardware capability tier, encoded the way Direct3D
// encodes D3D_FEATURE_LEVEL (major in bits 12-15, minor in bits 8-11).
type FeatureLevel uint32

// Feature levels.
const (
	FeatureLevel10_0 FeatureLevel = 0xa000
	FeatureLevel10_1 FeatureLevel = 0xa100
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel11_1 FeatureLevel = 0xb100
	FeatureLevel12_0 FeatureLevel = 0xc000
	FeatureLevel12_1 FeatureLevel = 0xc100
)

// String returns the level as "major_minor", e.g. "11_0".
func (l FeatureLevel) String() string {
	return fmt.Sprintf("%d_%d", uint32(l)>>12, (uint32(l)>>8)&0xf)
}

// AdapterInfo describes one adapter enumerated by a [Backend].
type AdapterInfo struct {
	// Index is the enumeration order, used to open the adapter.
	Index int

	// Name is the human readable adapter name.
	Name string

	// Driver describes the driver, when the backend reports it.
	Driver string

	// Software is true for software rasterizers (WARP, llvmpipe, ...).
	Software bool

	// FeatureLevel is the highest feature level the adapter supports.
	FeatureLevel FeatureLevel
}

// ResourceState is the usage role a back buffer is in.
type ResourceState uint8

const (
	// ResourceStatePresent is the presentable state. Back buffers are in
	// this state after creation, resize and present.
	ResourceStatePresent ResourceState = iota

	// ResourceStateRenderTarget is the state required for clears and draws.
	ResourceStateRenderTarget
)

// String returns the state name.
func (s ResourceState) String() string {
	switch s {
	case ResourceStatePresent:
		return "Present"
	case ResourceStateRenderTarget:
		return "RenderTarget"
	default:
		return fmt.Sprintf("ResourceState(%d)", uint8(s))
	}
}

// Viewport maps normalized device coordinates to the render target.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// Rect is a clip rectangle in pixels.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Width returns the rectangle width.
func (r Rect) Width() int32 { return r.Right - r.Left }

// Height returns the rectangle height.
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// Color is a linear RGBA color. The pipeline clears with premultiplied
// values, so {0, 0, 0, 0} is fully transparent.
type Color struct {
	R, G, B, A float64
}

// Vertex is one vertex of the full-screen quad: clip-space position and
// texture coordinate.
type Vertex struct {
	X, Y float32
	U, V float32
}

// PixelFormat is the memory layout of shared and captured textures.
type PixelFormat uint32

// Pixel formats.
const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatBGRA8
	PixelFormatRGBA8
)

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatBGRA8:
		return "BGRA8"
	case PixelFormatRGBA8:
		return "RGBA8"
	default:
		return "Unknown"
	}
}

// BytesPerPixel returns the pixel size of the format, 0 when unknown.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatBGRA8, PixelFormatRGBA8:
		return 4
	default:
		return 0
	}
}

// FrameInfo is the metadata returned with a duplicated frame.
type FrameInfo struct {
	// LastPresentTime is the time of the last desktop present folded into
	// this frame. Zero means the desktop image did not change since the
	// previous acquisition (only pointer metadata may have).
	LastPresentTime int64

	// AccumulatedFrames counts desktop presents folded into this frame.
	AccumulatedFrames uint32
}

// SharedHandle is an OS handle that names a shared texture across
// graphics contexts (an NT handle on Windows, a file descriptor elsewhere).
type SharedHandle uintptr

// SharedDesc describes a shared texture for import into the primary
// context.
type SharedDesc struct {
	Handle SharedHandle
	Width  uint32
	Height uint32
	Format PixelFormat
}

// Window exposes the native handles a surface is created from.
type Window interface {
	// NativeHandle returns the platform display connection (0 where the
	// platform has none) and the window handle.
	NativeHandle() (display, window uintptr)
}

// OutputInfo describes a monitor output.
type OutputInfo struct {
	Name   string
	Bounds image.Rectangle
}

// DefaultCaptureTimeout is the acquisition timeout used by the render
// tick: a zero-timeout poll so a missing frame never stalls rendering.
const DefaultCaptureTimeout time.Duration = 0

// ScreenWindow is implemented by windows that know where they are on the
// virtual desktop. Capture backends use it to pick the nearest output.
type ScreenWindow interface {
	Window

	// ScreenBounds returns the window rectangle in desktop coordinates.
	ScreenBounds() image.Rectangle
}
