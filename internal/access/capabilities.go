package access

import (
	"context"
	"time"
)

// NoTimeout passed to Authenticate means the backend may wait for a decision
// indefinitely.
const NoTimeout time.Duration = 0

// Detector waits for a device that satisfies the detection policy.
//
// WaitForDevice blocks until a matching device is found and returns an owned
// copy of it. It never reports "not found": it either yields a device that is
// a member of the registry or fails. Polling, rescanning and backoff are the
// backend's own concern.
type Detector[D any] interface {
	WaitForDevice(ctx context.Context) (D, error)
}

// Authenticator requests an access decision for a candidate device.
//
// When timeout is greater than zero the backend must resolve to Deny once it
// expires rather than block. A timeout of NoTimeout leaves the wait unbounded.
type Authenticator[D any] interface {
	Authenticate(ctx context.Context, device D, timeout time.Duration) (Result, error)
}

// Actuator drives the opening mechanism.
//
// Open is synchronous and performs the physical action exactly once per call.
// It must return within a bounded hardware window and leave the mechanism in
// a safe resting state whatever the outcome.
type Actuator interface {
	Open() error
}

// Locker waits for the user to signal that the door should be locked again
// and acknowledges it.
//
// WaitForLock fails on malformed input instead of looping silently.
type Locker interface {
	WaitForLock(ctx context.Context) error
	ConfirmLock(ctx context.Context) error
}

// Registry is the read/write contract over the known-device store.
type Registry[K comparable, D any] interface {
	Register(key K, device D)
	Unregister(key K) error
	Check(key K) (D, bool)
	List() []D
}

// Lookup is the read-only subset of Registry used by detector backends.
type Lookup[K comparable, D any] interface {
	Check(key K) (D, bool)
}
