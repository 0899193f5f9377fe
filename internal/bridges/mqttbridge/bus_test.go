package mqttbridge

import (
	"errors"
	"strings"
	"sync"

	"github.com/nerrad567/doorman/internal/infrastructure/mqtt"
)

type message struct {
	topic    string
	payload  []byte
	retained bool
}

// fakeBus is an in-memory broker. Handlers run synchronously on Publish.
type fakeBus struct {
	mu         sync.Mutex
	handlers   map[string]mqtt.MessageHandler
	published  []message
	publishErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBus) Topics() mqtt.Topics { return mqtt.NewTopics("doorman") }

func (b *fakeBus) QoS() byte { return 1 }

func (b *fakeBus) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[topic]; !ok {
		return errors.New("not subscribed")
	}
	delete(b.handlers, topic)
	return nil
}

func (b *fakeBus) Publish(topic string, payload []byte, _ byte, retained bool) error {
	b.mu.Lock()
	if b.publishErr != nil {
		b.mu.Unlock()
		return b.publishErr
	}
	b.published = append(b.published, message{topic: topic, payload: payload, retained: retained})
	var matched []mqtt.MessageHandler
	for filter, h := range b.handlers {
		if topicMatches(filter, topic) {
			matched = append(matched, h)
		}
	}
	b.mu.Unlock()

	for _, h := range matched {
		_ = h(topic, payload) //nolint:errcheck // the real client only logs handler errors
	}
	return nil
}

func (b *fakeBus) subscribed(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.handlers[topic]
	return ok
}

func (b *fakeBus) subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

func (b *fakeBus) messages(prefix string) []message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []message
	for _, m := range b.published {
		if strings.HasPrefix(m.topic, prefix) {
			out = append(out, m)
		}
	}
	return out
}

func topicMatches(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
