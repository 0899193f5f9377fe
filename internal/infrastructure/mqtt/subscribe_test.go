package mqtt

import (
	"errors"
	"testing"
)

func TestUnsubscribe_WhileDisconnectedForgetsTopic(t *testing.T) {
	topic := NewTopics("doorman").AuthResponse("req-1")
	c := &Client{
		subscriptions: map[string]subscription{
			topic: {topic: topic, qos: 1, handler: func(string, []byte) error { return nil }},
		},
	}

	err := c.Unsubscribe(topic)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
	if n := c.SubscriptionCount(); n != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0 so the topic is not restored on reconnect", n)
	}
}

func TestUnsubscribe_EmptyTopic(t *testing.T) {
	c := &Client{subscriptions: map[string]subscription{}}
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
}
