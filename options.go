package mirror

import (
	"time"

	"github.com/gogpu/mirror/gpucore"
)

// Option configures a Pipeline during creation.
// Use functional options to customize Pipeline behavior.
//
// Example:
//
//	// Registered default backends
//	p, err := mirror.New(win, 1920, 1080)
//
//	// Explicit backends with validation
//	p, err := mirror.New(win, 1920, 1080,
//	    mirror.WithBackend(native.New()),
//	    mirror.WithCapture(screen.New()),
//	    mirror.WithValidation(true),
//	)
type Option func(*options)

// options holds optional configuration for Pipeline creation.
type options struct {
	backend        gpucore.Backend
	backendName    string
	capture        gpucore.Legacy
	captureName    string
	validation     bool
	gpuValidation  bool
	clearColor     gpucore.Color
	captureTimeout time.Duration
	minLevel       gpucore.FeatureLevel
}

// defaultOptions returns the default pipeline options.
func defaultOptions() options {
	return options{
		clearColor:     gpucore.Color{}, // transparent black
		captureTimeout: gpucore.DefaultCaptureTimeout,
		minLevel:       gpucore.FeatureLevel11_0,
	}
}

// WithBackend sets the primary backend. Without it the registered default
// is used.
func WithBackend(b gpucore.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithBackendName selects a registered primary backend by name.
func WithBackendName(name string) Option {
	return func(o *options) {
		o.backendName = name
	}
}

// WithCapture sets the legacy capture backend. Without it the registered
// default is used.
func WithCapture(l gpucore.Legacy) Option {
	return func(o *options) {
		o.capture = l
	}
}

// WithCaptureName selects a registered capture backend by name.
func WithCaptureName(name string) Option {
	return func(o *options) {
		o.captureName = name
	}
}

// WithValidation enables the graphics API validation layer in release
// builds. Debug builds (the mirrordebug tag) always enable it.
func WithValidation(enabled bool) Option {
	return func(o *options) {
		o.validation = enabled
	}
}

// WithGPUValidation additionally enables GPU-based validation. Implies
// WithValidation(true).
func WithGPUValidation(enabled bool) Option {
	return func(o *options) {
		o.gpuValidation = enabled
		if enabled {
			o.validation = true
		}
	}
}

// WithClearColor sets the color back buffers are cleared to before the
// quad is drawn. Components are premultiplied.
func WithClearColor(c gpucore.Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithCaptureTimeout sets how long OnRender waits for a new desktop frame.
// The default zero polls.
func WithCaptureTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.captureTimeout = d
		}
	}
}

// WithMinFeatureLevel raises the adapter feature level floor.
func WithMinFeatureLevel(l gpucore.FeatureLevel) Option {
	return func(o *options) {
		if l > o.minLevel {
			o.minLevel = l
		}
	}
}
