//go:build integration

package mqtt

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/salted-labs/control-loop-core/internal/infrastructure/config"
)

// Integration tests for MQTT connectivity and round-trip delivery.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "controlloop-integration-test",
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_ConnectAndClose(t *testing.T) {
	client, err := Connect(integrationConfig(), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
}

func TestIntegration_PublishSubscribeRoundTrip(t *testing.T) {
	client, err := Connect(integrationConfig(), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var received atomic.Int64
	err = client.Subscribe("controlloop-test/+", 1, func(topic string, payload []byte) error {
		if string(payload) == "ping" {
			received.Add(1)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.Publish("controlloop-test/req1", []byte("ping"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for received.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("message not delivered within 5s")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestIntegration_CredentialsProviderInvoked(t *testing.T) {
	var calls atomic.Int64
	cfg := integrationConfig()
	cfg.Broker.ClientID = "controlloop-creds-test"

	client, err := Connect(cfg, func() (string, string) {
		calls.Add(1)
		return "", ""
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if calls.Load() == 0 {
		t.Error("credentials provider not consulted on connect")
	}
}
