package influxdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/salted-labs/control-loop-core/internal/infrastructure/config"
	"github.com/salted-labs/control-loop-core/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.HistoryConfig {
	return config.HistoryConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "controlloop-dev-token",
		Org:           "salted",
		Bucket:        "history",
		BatchSize:     100,
		FlushInterval: 1, // 1 second for faster test feedback
	}
}

// skipIfNoInfluxDB skips the test when no local InfluxDB is running.
func skipIfNoInfluxDB(t *testing.T) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	return client
}

// TestConnectDisabled verifies disabled config is rejected up front.
func TestConnectDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

// TestConnectUnreachable verifies connection failures are reported.
func TestConnectUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1" // Nothing listens here

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// TestConnect verifies connection establishment against a live server.
func TestConnect(t *testing.T) {
	client := skipIfNoInfluxDB(t)
	defer client.Close() //nolint:errcheck // Test cleanup

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

// TestRecordChange verifies history writes against a live server.
func TestRecordChange(t *testing.T) {
	client := skipIfNoInfluxDB(t)
	defer client.Close() //nolint:errcheck // Test cleanup

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	client.RecordChange("boiler-7", "target_temp", 65.5)
	client.RecordChange("boiler-7", "mode", "eco")
	client.RecordChange("boiler-7", "enabled", true)
	client.WritePoint("session_stats",
		map[string]string{"component": "boiler-7"},
		map[string]interface{}{"requests": 3})
	client.Flush()

	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
}

// TestCloseIdempotent verifies writes after Close are dropped quietly.
func TestCloseIdempotent(t *testing.T) {
	client := skipIfNoInfluxDB(t)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Must not panic or block.
	client.RecordChange("boiler-7", "target_temp", 66.0)
	client.Flush()
}
