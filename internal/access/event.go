package access

import (
	"context"
	"time"
)

// EventKind identifies a step of the access protocol.
type EventKind string

const (
	EventDetected      EventKind = "detected"
	EventAllowed       EventKind = "allowed"
	EventDenied        EventKind = "denied"
	EventOpened        EventKind = "opened"
	EventLockRequested EventKind = "lock_requested"
	EventLocked        EventKind = "locked"
	EventFailed        EventKind = "failed"
)

// Event is a single observation emitted while the protocol runs.
//
// Device is the display form of the device involved, empty for lock events.
// Stage and Err are only set for EventFailed.
type Event struct {
	Kind   EventKind
	Device string
	Stage  string
	Err    error
	At     time.Time
}

// Recorder receives protocol events for audit trails, metrics or the bus.
//
// Record must not block for long. Failures are the recorder's own concern
// and never change the outcome of the protocol.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Recorders fans an event out to several recorders in order.
type Recorders []Recorder

// Record implements Recorder.
func (rs Recorders) Record(ctx context.Context, event Event) {
	for _, r := range rs {
		if r != nil {
			r.Record(ctx, event)
		}
	}
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, event Event)

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event Event) {
	f(ctx, event)
}
