package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/mirror/gpucore"
	"github.com/gogpu/mirror/internal/logging"
)

// registry maps names to factories. The priority list decides Default;
// unlisted names follow in sorted order.
type registry[T any] struct {
	mu        sync.RWMutex
	factories map[string]func() (T, error)
	priority  []string
}

func newRegistry[T any](priority ...string) *registry[T] {
	return &registry[T]{
		factories: make(map[string]func() (T, error)),
		priority:  priority,
	}
}

func (r *registry[T]) register(name string, f func() (T, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *registry[T]) unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
}

func (r *registry[T]) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *registry[T]) has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

func (r *registry[T]) get(name string) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	return f()
}

// first returns the first backend in priority order whose factory
// succeeds.
func (r *registry[T]) first() (T, error) {
	order := r.order()
	for _, name := range order {
		b, err := r.get(name)
		if err == nil {
			return b, nil
		}
		logging.Logger().Debug("backend: skipped", "name", name, "err", err)
	}
	var zero T
	return zero, ErrBackendNotAvailable
}

func (r *registry[T]) order() []string {
	registered := r.names()
	order := make([]string, 0, len(registered))
	for _, name := range r.priority {
		if slices.Contains(registered, name) {
			order = append(order, name)
		}
	}
	for _, name := range registered {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	return order
}

var (
	// Native is the only primary backend today.
	primaries = newRegistry[gpucore.Backend](BackendNative)

	// DXGI duplication beats screenshot polling where it exists.
	captures = newRegistry[gpucore.Legacy](CaptureDXGI, CaptureScreen)
)

// Register registers a primary backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory BackendFactory) {
	primaries.register(name, factory)
}

// Unregister removes a primary backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	primaries.unregister(name)
}

// Available returns the registered primary backend names, sorted.
func Available() []string {
	return primaries.names()
}

// IsRegistered checks if a primary backend with the given name is registered.
func IsRegistered(name string) bool {
	return primaries.has(name)
}

// Get creates the primary backend registered under name.
func Get(name string) (gpucore.Backend, error) {
	return primaries.get(name)
}

// Default returns the best available primary backend based on priority.
func Default() (gpucore.Backend, error) {
	return primaries.first()
}

// RegisterCapture registers a capture backend factory with the given name.
func RegisterCapture(name string, factory CaptureFactory) {
	captures.register(name, factory)
}

// UnregisterCapture removes a capture backend from the registry.
func UnregisterCapture(name string) {
	captures.unregister(name)
}

// AvailableCapture returns the registered capture backend names, sorted.
func AvailableCapture() []string {
	return captures.names()
}

// IsCaptureRegistered checks if a capture backend with the given name is
// registered.
func IsCaptureRegistered(name string) bool {
	return captures.has(name)
}

// GetCapture creates the capture backend registered under name.
func GetCapture(name string) (gpucore.Legacy, error) {
	return captures.get(name)
}

// DefaultCapture returns the best available capture backend: dxgi, then
// screen, then anything else registered. Backends whose factory fails (no
// desktop session, no D3D11 device) are skipped.
func DefaultCapture() (gpucore.Legacy, error) {
	return captures.first()
}
