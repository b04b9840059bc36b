package native

import (
	"github.com/gogpu/mirror/backend"
	"github.com/gogpu/mirror/gpucore"
)

func init() {
	backend.Register(backend.BackendNative, func() (gpucore.Backend, error) {
		return New()
	})
}
