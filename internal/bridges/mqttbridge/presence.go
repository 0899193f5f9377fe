package mqttbridge

import (
	"fmt"
	"time"

	"github.com/nerrad567/doorman/internal/infrastructure/mqtt"
	"github.com/nerrad567/doorman/internal/presence"
)

// Observer receives sightings. *presence.Tracker implements it.
type Observer interface {
	Observe(s presence.Sighting) bool
}

// Presence feeds sightings published by remote scanners into an Observer.
type Presence struct {
	bus      Bus
	observer Observer
	logger   Logger
}

// NewPresence creates a presence feed.
func NewPresence(bus Bus, observer Observer) *Presence {
	return &Presence{bus: bus, observer: observer, logger: noopLogger{}}
}

// SetLogger sets the logger for the feed.
func (p *Presence) SetLogger(logger Logger) {
	p.logger = orNoop(logger)
}

// Start subscribes to the sightings of every scanner. The subscription is
// restored by the client after a reconnect.
func (p *Presence) Start() error {
	topic := p.bus.Topics().AllPresence()
	if err := p.bus.Subscribe(topic, p.bus.QoS(), p.handle); err != nil {
		return fmt.Errorf("subscribing to presence: %w", err)
	}
	p.logger.Info("presence feed started", "topic", topic)
	return nil
}

// Stop drops the subscription.
func (p *Presence) Stop() error {
	return p.bus.Unsubscribe(p.bus.Topics().AllPresence())
}

func (p *Presence) handle(topic string, payload []byte) error {
	s, err := presence.ParseSighting(payload)
	if err != nil {
		return err
	}
	if s.Scanner == "" {
		s.Scanner = mqtt.LastSegment(topic)
	}
	if s.At.IsZero() {
		s.At = time.Now()
	}
	p.observer.Observe(s)
	return nil
}
