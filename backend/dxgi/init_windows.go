//go:build windows

package dxgi

import (
	"github.com/gogpu/mirror/backend"
	"github.com/gogpu/mirror/gpucore"
)

func init() {
	backend.RegisterCapture(Name, func() (gpucore.Legacy, error) {
		return New()
	})
}
