package backend

import (
	"errors"

	"github.com/gogpu/mirror/gpucore"
)

// Backend names.
const (
	// BackendNative is the gogpu/wgpu HAL primary backend.
	BackendNative = "native"

	// CaptureDXGI is the Windows desktop duplication capture backend.
	CaptureDXGI = "dxgi"

	// CaptureScreen is the portable screenshot capture backend.
	CaptureScreen = "screen"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// BackendFactory creates a primary backend instance.
type BackendFactory func() (gpucore.Backend, error)

// CaptureFactory creates a legacy capture backend instance.
type CaptureFactory func() (gpucore.Legacy, error)
