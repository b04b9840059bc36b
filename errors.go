package mirror

import (
	"errors"

	"github.com/gogpu/mirror/internal/bridge"
	"github.com/gogpu/mirror/internal/capture"
	"github.com/gogpu/mirror/internal/device"
)

// Errors returned by the pipeline. Match them with errors.Is.
var (
	// ErrNoHardwareAdapter is returned by New when no hardware adapter
	// supports the minimum feature level.
	ErrNoHardwareAdapter = device.ErrNoHardwareAdapter

	// ErrValidationUnavailable is returned by New in debug builds when
	// the validation layer cannot be enabled.
	ErrValidationUnavailable = device.ErrValidationUnavailable

	// ErrAllocatorBusy reports a command allocator reset while GPU work
	// recorded from it may still run.
	ErrAllocatorBusy = device.ErrAllocatorBusy

	// ErrCaptureLost is returned by OnRender when the duplication session
	// is lost again right after being recreated.
	ErrCaptureLost = capture.ErrCaptureLost

	// ErrSizeMismatch reports a captured frame that does not fit the
	// shared texture.
	ErrSizeMismatch = bridge.ErrSizeMismatch

	// ErrClosed is returned by operations on a closed pipeline.
	ErrClosed = errors.New("mirror: pipeline closed")

	// ErrNoBackend is returned by New when no primary backend is given
	// or registered.
	ErrNoBackend = errors.New("mirror: no primary backend available")

	// ErrNoCapture is returned by New when no capture backend is given
	// or registered.
	ErrNoCapture = errors.New("mirror: no capture backend available")
)
