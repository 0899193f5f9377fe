package mqttbridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/doorman/internal/access"
)

// RelayCommand is published on actuator/command.
type RelayCommand struct {
	ID     string    `json:"id"`
	Site   string    `json:"site"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// RelayAck is expected on actuator/ack/{id}.
type RelayAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Relay opens the door through a networked relay.
type Relay struct {
	bus        Bus
	site       string
	ackTimeout time.Duration
	logger     Logger
}

var _ access.Actuator = (*Relay)(nil)

// NewRelay creates an MQTT actuator. With an ackTimeout of zero the command
// is sent without waiting for an acknowledgement.
func NewRelay(bus Bus, site string, ackTimeout time.Duration) *Relay {
	return &Relay{bus: bus, site: site, ackTimeout: ackTimeout, logger: noopLogger{}}
}

// SetLogger sets the logger for the relay.
func (r *Relay) SetLogger(logger Logger) {
	r.logger = orNoop(logger)
}

// Open sends one open command and waits for the relay to acknowledge it.
func (r *Relay) Open() error {
	id := uuid.NewString()
	topics := r.bus.Topics()

	acks := make(chan RelayAck, 1)
	if r.ackTimeout > 0 {
		ackTopic := topics.ActuatorAck(id)
		err := r.bus.Subscribe(ackTopic, r.bus.QoS(), func(_ string, payload []byte) error {
			var ack RelayAck
			if err := json.Unmarshal(payload, &ack); err != nil {
				return fmt.Errorf("decoding relay ack: %w", err)
			}
			select {
			case acks <- ack:
			default:
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribing to relay ack: %w", err)
		}
		defer unsubscribe(r.bus, ackTopic, r.logger)
	}

	payload, err := json.Marshal(RelayCommand{ID: id, Site: r.site, Action: "open", At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding relay command: %w", err)
	}
	if err := r.bus.Publish(topics.ActuatorCommand(), payload, r.bus.QoS(), false); err != nil {
		return fmt.Errorf("publishing relay command: %w", err)
	}
	if r.ackTimeout <= 0 {
		return nil
	}

	timer := time.NewTimer(r.ackTimeout)
	defer timer.Stop()
	select {
	case ack := <-acks:
		if !ack.OK {
			return fmt.Errorf("%w: %s", ErrRelayFailed, ack.Error)
		}
		r.logger.Debug("relay acknowledged", "command_id", id)
		return nil
	case <-timer.C:
		return fmt.Errorf("%w within %v", ErrAckTimeout, r.ackTimeout)
	}
}
