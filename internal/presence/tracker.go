// Package presence turns raw Bluetooth sightings into detected devices.
//
// Scanners (a BLE scan subprocess, remote scanners on MQTT) report every
// advertisement they hear as a Sighting. The Tracker keeps the sightings of
// registered devices in a TTL table and implements the Detector capability
// over it: WaitForDevice returns the strongest registered device currently
// in range, blocking until one is seen.
//
// A sighting stays valid for the TTL, so a device that is still nearby after
// a denied attempt is detected again straight away.
package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nerrad567/doorman/internal/access"
	"github.com/nerrad567/doorman/internal/device"
)

// DefaultTTL is how long a sighting counts as presence.
const DefaultTTL = 10 * time.Second

// Sighting is one advertisement heard by a scanner.
type Sighting struct {
	Address string    `json:"address"`
	RSSI    int       `json:"rssi,omitempty"`
	Scanner string    `json:"scanner,omitempty"`
	At      time.Time `json:"at,omitzero"`
}

// Logger defines the logging interface used by the Tracker.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

// Tracker is a Detector fed by sightings.
type Tracker struct {
	lookup access.Lookup[device.Address, device.Device]
	seen   *gocache.Cache
	logger Logger

	mu      sync.Mutex
	changed chan struct{}
	failure error
}

var _ access.Detector[device.Device] = (*Tracker)(nil)

// NewTracker creates a tracker matching sightings against lookup.
// A ttl of zero selects DefaultTTL.
func NewTracker(lookup access.Lookup[device.Address, device.Device], ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		lookup:  lookup,
		seen:    gocache.New(ttl, 2*ttl),
		logger:  noopLogger{},
		changed: make(chan struct{}),
	}
}

// SetLogger sets the logger for the tracker.
func (t *Tracker) SetLogger(logger Logger) {
	t.logger = logger
}

// Observe records a sighting. It reports whether the sighting belongs to a
// registered device within its RSSI reference; other sightings are dropped.
func (t *Tracker) Observe(s Sighting) bool {
	addr, err := device.NormalizeAddress(s.Address)
	if err != nil {
		t.logger.Debug("ignoring sighting", "address", s.Address, "error", err)
		return false
	}

	d, ok := t.lookup.Check(addr)
	if !ok {
		return false
	}
	if !d.InRange(s.RSSI) {
		t.logger.Debug("registered device out of range",
			"device", d.String(), "rssi", s.RSSI, "reference", d.RSSIReference)
		return false
	}

	s.Address = addr
	if s.At.IsZero() {
		s.At = time.Now()
	}
	t.seen.SetDefault(addr, s)
	t.logger.Debug("registered device sighted", "device", d.String(), "rssi", s.RSSI, "scanner", s.Scanner)

	t.broadcast()
	return true
}

// Fail stops the tracker: pending and future WaitForDevice calls return err
// wrapped with ErrFeedFailed. Feeds call it when they cannot recover.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	if t.failure == nil {
		t.failure = err
	}
	t.mu.Unlock()
	t.broadcast()
}

// WaitForDevice blocks until a registered device is in range and returns it.
// When several are present the one with the strongest signal wins.
func (t *Tracker) WaitForDevice(ctx context.Context) (device.Device, error) {
	for {
		t.mu.Lock()
		changed, failure := t.changed, t.failure
		t.mu.Unlock()

		if failure != nil {
			return device.Device{}, fmt.Errorf("%w: %w", ErrFeedFailed, failure)
		}
		if d, ok := t.strongest(); ok {
			return d, nil
		}

		select {
		case <-ctx.Done():
			return device.Device{}, ctx.Err()
		case <-changed:
		}
	}
}

// Present returns the registered devices sighted within the TTL.
func (t *Tracker) Present() []Sighting {
	items := t.seen.Items()
	out := make([]Sighting, 0, len(items))
	for _, item := range items {
		if s, ok := item.Object.(Sighting); ok {
			out = append(out, s)
		}
	}
	return out
}

// Forget drops the sighting of addr, if any.
func (t *Tracker) Forget(addr device.Address) {
	t.seen.Delete(addr)
}

func (t *Tracker) strongest() (device.Device, bool) {
	var (
		best     device.Device
		bestRSSI int
		found    bool
	)

	for _, s := range t.Present() {
		// The registry may have changed since the sighting was stored.
		d, ok := t.lookup.Check(s.Address)
		if !ok || !d.InRange(s.RSSI) {
			t.seen.Delete(s.Address)
			continue
		}
		if !found || stronger(s.RSSI, bestRSSI) {
			best, bestRSSI, found = d, s.RSSI, true
		}
	}
	return best, found
}

// stronger compares RSSI readings where 0 means "no reading".
func stronger(a, b int) bool {
	switch {
	case b == 0:
		return a != 0
	case a == 0:
		return false
	default:
		return a > b
	}
}

func (t *Tracker) broadcast() {
	t.mu.Lock()
	close(t.changed)
	t.changed = make(chan struct{})
	t.mu.Unlock()
}
