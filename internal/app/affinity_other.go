//go:build !windows

package app

import (
	"fmt"

	"github.com/gogpu/mirror/gpucore"
)

// setExcludeFromCapture is only honored on Windows. Turning it off always
// succeeds.
func setExcludeFromCapture(_ *Window, on bool) error {
	if !on {
		return nil
	}
	return fmt.Errorf("exclude from capture: %w", gpucore.ErrUnsupported)
}
