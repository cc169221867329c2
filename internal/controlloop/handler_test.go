package controlloop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/salted-labs/control-loop-core/internal/infrastructure/config"
	"github.com/salted-labs/control-loop-core/internal/params"
)

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "controlloop-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := New(testMQTTConfig(), "sensor1", map[string]params.Value{
		"threshold": params.Integer(5),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func TestNew_ComponentIDValidation(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "reserved info", id: "info", wantErr: ErrReservedComponentID},
		{name: "empty", id: "", wantErr: ErrInvalidComponentID},
		{name: "wildcard", id: "sensor+", wantErr: ErrInvalidComponentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(testMQTTConfig(), tt.id, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New(%q) error = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestNew_ClientIDDefaultsToComponentID(t *testing.T) {
	cfg := testMQTTConfig()
	cfg.Broker.ClientID = ""

	h, err := New(cfg, "sensor1", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if h.cfg.Broker.ClientID != "sensor1" {
		t.Errorf("ClientID = %q, want %q", h.cfg.Broker.ClientID, "sensor1")
	}
}

func TestHandler_InitialState(t *testing.T) {
	h := newTestHandler(t)

	if h.State() != StateIdle {
		t.Errorf("State() = %s, want idle", h.State())
	}
	if h.ComponentID() != "sensor1" {
		t.Errorf("ComponentID() = %q, want sensor1", h.ComponentID())
	}
}

func TestHandler_StoreOperations(t *testing.T) {
	h := newTestHandler(t)

	v, err := h.Get("threshold")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !v.Equal(params.Integer(5)) {
		t.Errorf("Get(threshold) = %v, want 5", v)
	}

	if err := h.Set("threshold", params.Integer(10)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := h.Set("missing", params.Integer(1)); !errors.Is(err, params.ErrNotFound) {
		t.Errorf("Set(missing) error = %v, want ErrNotFound", err)
	}

	if err := h.Add("offset", params.Float(0.5)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := h.Add("offset", params.Float(1.0)); !errors.Is(err, params.ErrAlreadyExists) {
		t.Errorf("Add(offset) again error = %v, want ErrAlreadyExists", err)
	}

	snapshot := h.Snapshot()
	if len(snapshot) != 2 {
		t.Errorf("Snapshot() len = %d, want 2", len(snapshot))
	}
}

func TestHandler_StopIdempotent(t *testing.T) {
	h := newTestHandler(t)

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.State() != StateStopped {
		t.Errorf("State() = %s, want stopped", h.State())
	}

	// Second stop is a no-op, not an error
	if err := h.Stop(); err != nil {
		t.Errorf("second Stop() error = %v, want nil", err)
	}
}

func TestHandler_StartAfterStop(t *testing.T) {
	h := newTestHandler(t)

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	err := h.Start(context.Background())
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Start() after Stop() error = %v, want ErrStopped", err)
	}
}

// TestHandler_StopDuringStart exercises the transitions Start performs
// while it is connecting: once Stop has run, none of them may leave the
// terminal state, or a later Stop would close the quit channel twice.
func TestHandler_StopDuringStart(t *testing.T) {
	h := newTestHandler(t)

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// Start's failure path transition must not resurrect the session.
	if h.transition(StateIdle) {
		t.Error("transition(idle) succeeded after Stop")
	}
	// Neither must its post-connect transition.
	if h.transition(StateConnected) {
		t.Error("transition(connected) succeeded after Stop")
	}
	if h.State() != StateStopped {
		t.Fatalf("State() = %s, want stopped", h.State())
	}

	// The idempotency guard must still hold: no panic, no error.
	if err := h.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

// waitForMessages polls until the publisher has seen n messages.
func waitForMessages(t *testing.T, pub *fakePublisher, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for pub.count() < n {
		select {
		case <-deadline:
			t.Fatalf("published messages = %d, want %d", pub.count(), n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHandler_DispatchLoop(t *testing.T) {
	h := newTestHandler(t)
	pub := &fakePublisher{}
	h.router = NewRouter(h.componentID, h.store, pub)

	h.wg.Add(1)
	go h.dispatchLoop()

	if err := h.enqueue("sensor1/app1", []byte(`{"threshold": 10}`)); err != nil {
		t.Fatalf("enqueue() error = %v", err)
	}
	waitForMessages(t, pub, 1)

	v, err := h.Get("threshold")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !v.Equal(params.Integer(10)) {
		t.Errorf("Get(threshold) = %v, want 10", v)
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// After Stop returns, no further dispatch happens
	if err := h.enqueue("sensor1/app1", []byte(`{"threshold": 99}`)); err != nil {
		t.Fatalf("enqueue() after Stop error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if pub.count() != 1 {
		t.Errorf("published messages after Stop = %d, want 1", pub.count())
	}

	v, _ = h.Get("threshold")
	if !v.Equal(params.Integer(10)) {
		t.Errorf("parameter mutated after Stop: %v", v)
	}
}

func TestHandler_DispatchOrder(t *testing.T) {
	h := newTestHandler(t)
	pub := &fakePublisher{}
	h.router = NewRouter(h.componentID, h.store, pub)

	h.wg.Add(1)
	go h.dispatchLoop()
	defer h.Stop() //nolint:errcheck

	// Sequential sets dispatched in arrival order: the final value wins.
	h.enqueue("sensor1/app1", []byte(`{"threshold": 1}`)) //nolint:errcheck
	h.enqueue("sensor1/app1", []byte(`{"threshold": 2}`)) //nolint:errcheck
	h.enqueue("sensor1/app1", []byte(`{"threshold": 3}`)) //nolint:errcheck
	waitForMessages(t, pub, 3)

	v, err := h.Get("threshold")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !v.Equal(params.Integer(3)) {
		t.Errorf("Get(threshold) = %v, want 3 (last message wins)", v)
	}
}
