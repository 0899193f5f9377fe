package mqttbridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/doorman/internal/access"
)

type eventPayload struct {
	Site   string    `json:"site"`
	Kind   string    `json:"kind"`
	Device string    `json:"device,omitempty"`
	Stage  string    `json:"stage,omitempty"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// Events publishes protocol events on event/{kind}.
type Events struct {
	bus    Bus
	site   string
	logger Logger
}

var _ access.Recorder = (*Events)(nil)

// NewEvents creates an MQTT event recorder.
func NewEvents(bus Bus, site string) *Events {
	return &Events{bus: bus, site: site, logger: noopLogger{}}
}

// SetLogger sets the logger for the recorder.
func (e *Events) SetLogger(logger Logger) {
	e.logger = orNoop(logger)
}

// Record implements access.Recorder. Publish failures are logged.
func (e *Events) Record(_ context.Context, ev access.Event) {
	p := eventPayload{
		Site:   e.site,
		Kind:   string(ev.Kind),
		Device: ev.Device,
		Stage:  ev.Stage,
		At:     ev.At.UTC(),
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		e.logger.Warn("encoding event failed", "kind", ev.Kind, "error", err)
		return
	}
	if err := e.bus.Publish(e.bus.Topics().Event(string(ev.Kind)), payload, e.bus.QoS(), false); err != nil {
		e.logger.Warn("publishing event failed", "kind", ev.Kind, "error", err)
	}
}
