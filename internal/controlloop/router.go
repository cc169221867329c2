package controlloop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/salted-labs/control-loop-core/internal/params"
)

// Logger defines the logging interface used by the Router and Handler.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher emits reply payloads to a requester topic. Satisfied by
// mqtt.Client.PublishJSON.
type Publisher interface {
	PublishJSON(topic string, payload []byte) error
}

// Recorder receives the outcome of each routed request, e.g. the SQLite
// audit trail. Implementations must not block the dispatch loop for
// extended periods.
type Recorder interface {
	RecordReconfiguration(ctx context.Context, requester string, applied map[string]any, errText string) error
	RecordDiscovery(ctx context.Context, requester string) error
}

// ChangeSink receives each applied parameter change, e.g. the InfluxDB
// reconfiguration history. Calls must be non-blocking.
type ChangeSink interface {
	RecordChange(component, name string, value any)
}

// Router classifies inbound messages by topic and dispatches them to the
// reconfiguration or discovery path.
//
// The router itself holds no locks: it is driven by a single dispatch
// goroutine, one message at a time, in arrival order. All shared state
// lives in the parameter store, which synchronizes internally.
type Router struct {
	componentID string
	store       *params.Store
	publisher   Publisher
	logger      Logger

	recorder Recorder   // optional
	changes  ChangeSink // optional
}

// NewRouter creates a router for the given component and store.
func NewRouter(componentID string, store *params.Store, publisher Publisher) *Router {
	return &Router{
		componentID: componentID,
		store:       store,
		publisher:   publisher,
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// SetRecorder sets an optional audit recorder.
func (r *Router) SetRecorder(recorder Recorder) {
	r.recorder = recorder
}

// SetChangeSink sets an optional parameter-change sink.
func (r *Router) SetChangeSink(sink ChangeSink) {
	r.changes = sink
}

// Route processes one inbound message. Topics outside the two recognized
// shapes are discarded without side effects; this path must never panic or
// terminate the session.
func (r *Router) Route(ctx context.Context, topic string, payload []byte) {
	kind, requester := parseTopic(r.componentID, topic)

	switch kind {
	case topicReconfigure:
		r.handleReconfiguration(ctx, requester, payload)
	case topicDiscovery:
		r.handleDiscovery(ctx, requester)
	default:
		r.logger.Debug("discarding message on unrecognized topic", "topic", topic)
	}
}

// handleReconfiguration applies a reconfiguration request and publishes
// the ack: either {"error": ...} for a malformed payload, or the map of
// applied parameters (possibly empty) on success.
//
// Unknown parameter names and values outside the supported kinds are
// silently skipped: absent from the ack, no store mutation.
func (r *Router) handleReconfiguration(ctx context.Context, requester string, payload []byte) {
	request, err := decodeRequest(payload)
	if err != nil {
		r.logger.Debug("rejecting malformed reconfiguration request",
			"requester", requester,
			"error", err,
		)
		r.publishAck(requester, ErrorAck{
			Error: fmt.Sprintf("reconfiguration not applied: %v", err),
		})
		r.record(ctx, requester, nil, err.Error())
		return
	}

	applied := make(map[string]params.Value)
	for name, raw := range request {
		value, err := params.FromAny(raw)
		if err != nil {
			r.logger.Debug("skipping parameter with unsupported value",
				"parameter", name,
				"error", err,
			)
			continue
		}
		if err := r.store.Set(name, value); err != nil {
			// Unknown name: not an error, not part of the ack.
			continue
		}
		applied[name] = value
		if r.changes != nil {
			r.changes.RecordChange(r.componentID, name, value.Any())
		}
	}

	r.logger.Info("reconfiguration applied",
		"requester", requester,
		"applied", len(applied),
		"requested", len(request),
	)
	r.publishAck(requester, applied)
	r.record(ctx, requester, applied, "")
}

// handleDiscovery publishes this component's identity and a point-in-time
// parameter snapshot. The request payload is deliberately ignored.
func (r *Router) handleDiscovery(ctx context.Context, requester string) {
	reply := DiscoveryReply{
		ComponentID: r.componentID,
		Params:      r.store.Snapshot(),
	}

	r.logger.Debug("answering discovery request", "requester", requester)
	r.publishAck(requester, reply)

	if r.recorder != nil {
		if err := r.recorder.RecordDiscovery(ctx, requester); err != nil {
			r.logger.Warn("recording discovery request failed", "error", err)
		}
	}
}

// publishAck serializes a reply and hands it to the publisher. Publication
// is fire-and-forget: failures are logged, never propagated.
func (r *Router) publishAck(requester string, reply any) {
	data, err := json.Marshal(reply)
	if err != nil {
		r.logger.Error("marshalling reply failed", "requester", requester, "error", err)
		return
	}
	if err := r.publisher.PublishJSON(requester, data); err != nil {
		r.logger.Warn("publishing reply failed", "requester", requester, "error", err)
	}
}

// record forwards a reconfiguration outcome to the audit recorder, if set.
func (r *Router) record(ctx context.Context, requester string, applied map[string]params.Value, errText string) {
	if r.recorder == nil {
		return
	}

	var appliedAny map[string]any
	if applied != nil {
		appliedAny = make(map[string]any, len(applied))
		for name, v := range applied {
			appliedAny[name] = v.Any()
		}
	}

	if err := r.recorder.RecordReconfiguration(ctx, requester, appliedAny, errText); err != nil {
		r.logger.Warn("recording reconfiguration failed", "error", err)
	}
}

// decodeRequest parses a reconfiguration payload into a JSON object.
// Numbers decode as json.Number so integer values keep their kind.
func decodeRequest(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var request map[string]any
	if err := dec.Decode(&request); err != nil {
		return nil, fmt.Errorf("payload is not a valid JSON object: %w", err)
	}
	if request == nil {
		// "null" decodes without error but is not an object.
		return nil, fmt.Errorf("payload is not a valid JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("payload has trailing data after JSON object")
	}
	return request, nil
}
