//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/doorman/internal/infrastructure/config"
)

// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...
func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Prefix:  "doorman-test",
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: time.Second,
			MaxDelay:     5 * time.Second,
		},
	}
}

func TestIntegration_PublishSubscribeRoundtrip(t *testing.T) {
	client, err := Connect(integrationConfig("doorman-int-roundtrip"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	var (
		mu       sync.Mutex
		received []string
		done     = make(chan struct{}, 1)
	)
	err = client.Subscribe(client.Topics().AllPresence(), 1, func(topic string, _ []byte) error {
		mu.Lock()
		received = append(received, LastSegment(topic))
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if client.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", client.SubscriptionCount())
	}

	if err := client.Publish(client.Topics().Presence("hall"), []byte(`{"address":"AA:BB:CC:DD:EE:FF"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != "hall" {
		t.Errorf("received = %v, want [hall]", received)
	}
}

func TestIntegration_HandlerPanicRecovered(t *testing.T) {
	client, err := Connect(integrationConfig("doorman-int-panic"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	topic := client.Topics().Event("panic")
	if err := client.Subscribe(topic, 1, func(string, []byte) error { panic("boom") }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := client.Publish(topic, []byte("x"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if !client.IsConnected() {
		t.Error("client disconnected after handler panic")
	}
}

func TestIntegration_PublishValidation(t *testing.T) {
	client, err := Connect(integrationConfig("doorman-int-validate"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	if err := client.Publish("", nil, 1, false); err != ErrInvalidTopic {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("x", nil, 3, false); err != ErrInvalidQoS {
		t.Errorf("Publish(qos 3) error = %v, want ErrInvalidQoS", err)
	}
}
