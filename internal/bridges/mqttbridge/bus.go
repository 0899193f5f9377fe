package mqttbridge

import (
	"github.com/nerrad567/doorman/internal/infrastructure/mqtt"
)

// Bus is the subset of the MQTT client used by the bridge.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Topics() mqtt.Topics
	QoS() byte
}

var _ Bus = (*mqtt.Client)(nil)

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

func orNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}

// unsubscribe drops a per-request subscription. Failures only leak a
// handler that will never fire again.
func unsubscribe(bus Bus, topic string, logger Logger) {
	if err := bus.Unsubscribe(topic); err != nil {
		logger.Debug("unsubscribe failed", "topic", topic, "error", err)
	}
}
