package dxgi

import (
	"fmt"

	"github.com/go-ole/go-ole"

	"github.com/gogpu/mirror/gpucore"
)

// DXGI status codes the capture path distinguishes.
const (
	errInvalidCall           = 0x887A0001
	errNotFound              = 0x887A0002
	errDeviceRemoved         = 0x887A0005
	errDeviceReset           = 0x887A0007
	errNotCurrentlyAvailable = 0x887A0022
	errAccessLost            = 0x887A0026
	errWaitTimeout           = 0x887A0027
)

// checkHRESULT turns a failed HRESULT into an error, mapping the codes the
// pipeline reacts to onto the gpucore sentinels.
func checkHRESULT(op string, hr uintptr) error {
	if int32(hr) >= 0 { //nolint:gosec // HRESULT is 32 bits
		return nil
	}
	var sentinel error
	switch uint32(hr) { //nolint:gosec // HRESULT is 32 bits
	case errAccessLost:
		sentinel = gpucore.ErrAccessLost
	case errWaitTimeout:
		sentinel = gpucore.ErrWaitTimeout
	case errInvalidCall:
		sentinel = gpucore.ErrInvalidCall
	case errDeviceRemoved, errDeviceReset:
		sentinel = gpucore.ErrDeviceLost
	case errNotCurrentlyAvailable:
		sentinel = gpucore.ErrUnsupported
	default:
		return fmt.Errorf("dxgi: %s: %w", op, ole.NewError(hr))
	}
	return fmt.Errorf("dxgi: %s: 0x%08X: %w", op, uint32(hr), sentinel) //nolint:gosec // HRESULT is 32 bits
}
