// Package backend provides name-keyed registries of primary rendering and
// legacy capture backends.
//
// # Backend Registration
//
// Backends register themselves from init() functions and are selected at
// runtime. Import the backend packages you want available:
//
//	import (
//		_ "github.com/gogpu/mirror/backend/native"
//		_ "github.com/gogpu/mirror/backend/screen"
//		_ "github.com/gogpu/mirror/backend/dxgi" // Windows only
//	)
//
// # Backend Selection
//
// Use Default() and DefaultCapture() to get the best available backends,
// or Get() and GetCapture() to request one by name:
//
//	b, err := backend.Default()
//	l, err := backend.GetCapture(backend.CaptureScreen)
//
// # Available Backends
//
// Primary:
//   - "native": gogpu/wgpu HAL (Vulkan, DirectX 12, Metal, GLES)
//
// Capture:
//   - "dxgi": D3D11 + DXGI output duplication (Windows)
//   - "screen": portable screenshot capture (Windows, macOS, Linux X11)
package backend
