package gpucore

import "time"

// Legacy is the secondary graphics context used for screen capture. The
// primary context cannot duplicate outputs itself, so capture goes through
// an older API and reaches the renderer through a shared texture.
type Legacy interface {
	// Name returns the backend identifier (e.g. "dxgi").
	Name() string

	// OutputForWindow returns the monitor output nearest to the window.
	OutputForWindow(win Window) (Output, error)

	// DuplicateOutput starts a duplication session on out.
	DuplicateOutput(out Output) (Duplication, error)

	// CreateSharedTexture creates a shareable texture in a
	// capture-compatible format.
	CreateSharedTexture(width, height uint32) (SharedTexture, error)

	// CopyResource copies a captured frame into dst on the legacy device.
	// Both must have the same dimensions.
	CopyResource(dst SharedTexture, src CaptureTexture) error

	// CloseSharedHandle closes a handle returned by
	// SharedTexture.CreateSharedHandle.
	CloseSharedHandle(h SharedHandle) error

	// Close releases the legacy device.
	Close() error
}

// Output is one monitor attached to the legacy device.
type Output interface {
	Info() OutputInfo
}

// Duplication is an OS desktop-duplication session bound to one output.
type Duplication interface {
	// ReleaseFrame releases the frame returned by the last successful
	// AcquireNextFrame. Returns ErrInvalidCall when no frame is held and
	// ErrAccessLost when the session was invalidated.
	ReleaseFrame() error

	// AcquireNextFrame waits up to timeout for a new desktop image.
	// Returns ErrWaitTimeout when none arrived and ErrAccessLost when the
	// session was invalidated. The texture stays valid until ReleaseFrame.
	AcquireNextFrame(timeout time.Duration) (FrameInfo, CaptureTexture, error)

	// Close ends the session.
	Close() error
}

// CaptureTexture is a desktop image held by a [Duplication].
type CaptureTexture interface {
	Size() (width, height uint32)
	Format() PixelFormat
}

// SharedTexture is a legacy-context texture that can be exported.
type SharedTexture interface {
	Size() (width, height uint32)
	Format() PixelFormat

	// CreateSharedHandle exports a new OS handle naming the texture. The
	// caller owns the handle and closes it with Legacy.CloseSharedHandle.
	CreateSharedHandle() (SharedHandle, error)

	// Release frees the texture. Imports stay valid until destroyed.
	Release() error
}
