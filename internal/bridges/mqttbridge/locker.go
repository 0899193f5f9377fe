package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/doorman/internal/access"
)

// LockSignal is expected on lock/signal.
type LockSignal struct {
	Action string `json:"action"`
}

type lockStatus struct {
	Site   string    `json:"site"`
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

// Locker waits for a lock request published on the bus, typically by a
// button next to the door or a phone app.
type Locker struct {
	bus    Bus
	site   string
	logger Logger
}

var _ access.Locker = (*Locker)(nil)

// NewLocker creates an MQTT locker.
func NewLocker(bus Bus, site string) *Locker {
	return &Locker{bus: bus, site: site, logger: noopLogger{}}
}

// SetLogger sets the logger for the locker.
func (l *Locker) SetLogger(logger Logger) {
	l.logger = orNoop(logger)
}

// WaitForLock publishes a retained prompt and blocks for the next lock
// signal. A signal that is not {"action":"lock"} fails with
// ErrMalformedLockSignal.
func (l *Locker) WaitForLock(ctx context.Context) error {
	topics := l.bus.Topics()
	signals := make(chan []byte, 1)

	signalTopic := topics.LockSignal()
	err := l.bus.Subscribe(signalTopic, l.bus.QoS(), func(_ string, payload []byte) error {
		select {
		case signals <- payload:
		default:
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to lock signal: %w", err)
	}
	defer unsubscribe(l.bus, signalTopic, l.logger)

	if err := l.publishStatus(topics.LockPrompt(), "waiting", true); err != nil {
		return err
	}

	select {
	case payload := <-signals:
		return parseLockSignal(payload)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConfirmLock announces the lock and clears the retained prompt.
func (l *Locker) ConfirmLock(context.Context) error {
	topics := l.bus.Topics()
	if err := l.publishStatus(topics.LockConfirmed(), "locked", false); err != nil {
		return err
	}
	// An empty retained message removes the prompt from the broker.
	if err := l.bus.Publish(topics.LockPrompt(), nil, l.bus.QoS(), true); err != nil {
		return fmt.Errorf("clearing lock prompt: %w", err)
	}
	return nil
}

func (l *Locker) publishStatus(topic, status string, retained bool) error {
	payload, err := json.Marshal(lockStatus{Site: l.site, Status: status, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding lock status: %w", err)
	}
	if err := l.bus.Publish(topic, payload, l.bus.QoS(), retained); err != nil {
		return fmt.Errorf("publishing lock status: %w", err)
	}
	return nil
}

func parseLockSignal(payload []byte) error {
	var sig LockSignal
	if err := json.Unmarshal(payload, &sig); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedLockSignal, err)
	}
	if sig.Action != "lock" {
		return fmt.Errorf("%w: action %q", ErrMalformedLockSignal, sig.Action)
	}
	return nil
}
