package mqtt

import "strings"

// DefaultPrefix is the topic root when none is configured.
const DefaultPrefix = "doorman"

// Topics builds Doorman MQTT topics under a common prefix.
//
//	t := mqtt.NewTopics("doorman")
//	t.AuthResponse("9f1c")  // doorman/auth/response/9f1c
//	t.AllPresence()         // doorman/presence/+
type Topics struct {
	prefix string
}

// NewTopics returns topic builders rooted at prefix. Trailing slashes are
// dropped; an empty prefix selects DefaultPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	return t.root()
}

func (t Topics) root() string {
	if t.prefix == "" {
		return DefaultPrefix
	}
	return t.prefix
}

func (t Topics) join(parts ...string) string {
	return t.root() + "/" + strings.Join(parts, "/")
}

// Presence is where scanner publishes its sightings.
//
// Example: doorman/presence/hallway
func (t Topics) Presence(scanner string) string { return t.join("presence", scanner) }

// AllPresence matches the sightings of every scanner.
func (t Topics) AllPresence() string { return t.join("presence", "+") }

// AuthRequest carries an approval request.
//
// Example: doorman/auth/request/9f1c...
func (t Topics) AuthRequest(id string) string { return t.join("auth", "request", id) }

// AuthResponse carries the decision for request id.
func (t Topics) AuthResponse(id string) string { return t.join("auth", "response", id) }

// ActuatorCommand is where open commands for the relay are published.
func (t Topics) ActuatorCommand() string { return t.join("actuator", "command") }

// ActuatorAck is where the relay acknowledges command id.
func (t Topics) ActuatorAck(id string) string { return t.join("actuator", "ack", id) }

// LockPrompt announces that the door waits for a lock signal.
func (t Topics) LockPrompt() string { return t.join("lock", "prompt") }

// LockSignal carries lock requests.
func (t Topics) LockSignal() string { return t.join("lock", "signal") }

// LockConfirmed announces that the door is locked.
func (t Topics) LockConfirmed() string { return t.join("lock", "confirmed") }

// Event carries protocol events of the given kind.
//
// Example: doorman/event/opened
func (t Topics) Event(kind string) string { return t.join("event", kind) }

// AllEvents matches every protocol event.
func (t Topics) AllEvents() string { return t.join("event", "#") }

// SystemStatus carries the retained online/offline status and the LWT.
func (t Topics) SystemStatus() string { return t.join("system", "status") }

// LastSegment returns the final level of a topic, e.g. the request id of an
// auth response or the scanner of a sighting.
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
