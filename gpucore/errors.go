package gpucore

import "errors"

// Backend conditions the pipeline reacts to. Backends wrap or return these
// so callers can match with errors.Is.
var (
	// ErrAccessLost reports that a duplication session was invalidated by
	// a mode change, a desktop switch or a device reset.
	ErrAccessLost = errors.New("gpucore: duplication access lost")

	// ErrWaitTimeout reports that no new frame arrived within the timeout.
	ErrWaitTimeout = errors.New("gpucore: wait timeout")

	// ErrInvalidCall reports a call made in the wrong state, e.g.
	// releasing a frame when none is held.
	ErrInvalidCall = errors.New("gpucore: invalid call")

	// ErrDeviceLost reports that the GPU device was removed or reset.
	ErrDeviceLost = errors.New("gpucore: device lost")

	// ErrUnsupported reports a feature the backend cannot provide.
	ErrUnsupported = errors.New("gpucore: unsupported")

	// ErrBuffersReferenced reports a swap chain resize attempted while
	// back buffer references are outstanding.
	ErrBuffersReferenced = errors.New("gpucore: back buffers still referenced")
)
