// Package registry provides the in-memory store of devices eligible for access.
//
// The registry maps an identity (for the appliance, a Bluetooth address) to
// an opaque device payload. It is populated once at startup from a bulk
// source and read concurrently by the manager and detector backends.
//
// All methods are safe for concurrent use.
package registry

import (
	"fmt"
	"iter"
	"sync"

	"github.com/nerrad567/doorman/internal/access"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

// Keyed is implemented by devices that can derive their own identity.
type Keyed[K comparable] interface {
	Key() K
}

// Entry is one (identity, device) pair of a bulk source.
type Entry[K comparable, D any] struct {
	Key    K
	Device D
}

// Registry holds known devices keyed by identity.
// Re-registering an identity replaces the previous device.
type Registry[K comparable, D any] struct {
	mu      sync.RWMutex
	devices map[K]D
	logger  Logger
}

var _ access.Registry[string, struct{}] = (*Registry[string, struct{}])(nil)

// New creates an empty registry.
func New[K comparable, D any]() *Registry[K, D] {
	return &Registry[K, D]{
		devices: make(map[K]D),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry[K, D]) SetLogger(logger Logger) {
	r.logger = logger
}

// Register inserts or replaces the device stored under key. It always succeeds.
func (r *Registry[K, D]) Register(key K, device D) {
	r.mu.Lock()
	_, replaced := r.devices[key]
	r.devices[key] = device
	r.mu.Unlock()

	r.logger.Debug("device registered", "key", key, "replaced", replaced)
}

// RegisterFrom registers a device under the identity it derives itself.
// It has the same semantics as Register.
func RegisterFrom[K comparable, D Keyed[K]](r *Registry[K, D], device D) {
	r.Register(device.Key(), device)
}

// Unregister removes the device stored under key.
// Returns access.ErrNotFound if no such device exists; the registry is left unchanged.
func (r *Registry[K, D]) Unregister(key K) error {
	r.mu.Lock()
	if _, ok := r.devices[key]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", access.ErrNotFound, key)
	}
	delete(r.devices, key)
	r.mu.Unlock()

	r.logger.Debug("device unregistered", "key", key)
	return nil
}

// Check looks up the device stored under key.
func (r *Registry[K, D]) Check(key K) (D, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[key]
	return d, ok
}

// Registered reports whether a device is stored under key.
func (r *Registry[K, D]) Registered(key K) bool {
	_, ok := r.Check(key)
	return ok
}

// List returns a snapshot of all registered devices in unspecified order.
func (r *Registry[K, D]) List() []D {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]D, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	return devices
}

// Len returns the number of registered devices.
func (r *Registry[K, D]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Load registers every entry yielded by seq.
//
// Loading stops at the first error the source yields. Entries applied before
// the error stay registered; there is no rollback.
//
// Returns the number of entries applied.
func (r *Registry[K, D]) Load(seq iter.Seq2[Entry[K, D], error]) (int, error) {
	applied := 0
	for entry, err := range seq {
		if err != nil {
			return applied, fmt.Errorf("loading registry entry %d: %w", applied+1, err)
		}
		r.Register(entry.Key, entry.Device)
		applied++
	}

	r.logger.Info("registry loaded", "entries", applied, "devices", r.Len())
	return applied, nil
}

// LoadMap registers every pair of devices.
func (r *Registry[K, D]) LoadMap(devices map[K]D) {
	for k, d := range devices {
		r.Register(k, d)
	}
}

// Entries adapts a plain slice of keyed devices into a bulk source.
func Entries[K comparable, D Keyed[K]](devices []D) iter.Seq2[Entry[K, D], error] {
	return func(yield func(Entry[K, D], error) bool) {
		for _, d := range devices {
			if !yield(Entry[K, D]{Key: d.Key(), Device: d}, nil) {
				return
			}
		}
	}
}
