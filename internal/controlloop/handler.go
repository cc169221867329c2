package controlloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/salted-labs/control-loop-core/internal/infrastructure/config"
	"github.com/salted-labs/control-loop-core/internal/infrastructure/mqtt"
	"github.com/salted-labs/control-loop-core/internal/params"
	"github.com/salted-labs/control-loop-core/internal/tokens"
)

// State describes the connection session lifecycle.
type State int32

// Session states. Stopped is terminal and reachable only via Stop.
const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateSubscribed
	StateDisconnected
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateDisconnected:
		return "disconnected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// inboxSize bounds the dispatch queue between the transport callbacks and
// the dispatch loop. A full inbox applies backpressure to the transport.
const inboxSize = 64

// inbound is one message handed from the transport to the dispatch loop.
type inbound struct {
	topic   string
	payload []byte
}

// Handler exposes a set of named runtime parameters for remote
// reconfiguration and discovery over MQTT.
//
// It owns the connection session (connect, authenticate, subscribe,
// reconnect, disconnect), a single dispatch loop that routes inbound
// messages in arrival order, and the parameter store shared with the
// hosting application.
//
// Thread Safety:
//   - Get, Set, Add, Snapshot and ForceTokenRefresh are safe to call from
//     any goroutine at any time, including while messages are dispatched.
//   - Start and Stop may block on network I/O and must not be called from
//     the dispatch path.
type Handler struct {
	componentID string
	cfg         config.MQTTConfig

	store  *params.Store
	tokens *tokens.Manager
	router *Router
	logger Logger

	recorder Recorder
	changes  ChangeSink

	inbox chan inbound
	quit  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	state  State
	client *mqtt.Client
}

// New creates a handler for the given component and its initial parameters.
//
// The component ID becomes the root of the reconfiguration topic; "info"
// is reserved for discovery and rejected, as are IDs containing topic
// separators or wildcards. An empty broker client ID defaults to the
// component ID.
//
// Parameters:
//   - cfg: MQTT configuration (broker, auth endpoint, QoS, reconnect)
//   - componentID: Identifier of this component instance
//   - initial: Starting parameter set (name -> value)
//
// Returns:
//   - *Handler: Handler ready for Start
//   - error: ErrReservedComponentID or ErrInvalidComponentID
func New(cfg config.MQTTConfig, componentID string, initial map[string]params.Value) (*Handler, error) {
	if err := validateComponentID(componentID); err != nil {
		return nil, err
	}
	if cfg.Broker.ClientID == "" {
		cfg.Broker.ClientID = componentID
	}

	h := &Handler{
		componentID: componentID,
		cfg:         cfg,
		store:       params.NewStore(initial),
		tokens:      tokens.NewManager(cfg.Auth),
		logger:      noopLogger{},
		inbox:       make(chan inbound, inboxSize),
		quit:        make(chan struct{}),
		state:       StateIdle,
	}
	return h, nil
}

// SetLogger sets the logger for the handler and its router.
// Call before Start.
func (h *Handler) SetLogger(logger Logger) {
	h.logger = logger
}

// SetRecorder sets an optional audit recorder for routed requests.
// Call before Start.
func (h *Handler) SetRecorder(recorder Recorder) {
	h.recorder = recorder
}

// SetChangeSink sets an optional sink receiving applied parameter changes.
// Call before Start.
func (h *Handler) SetChangeSink(sink ChangeSink) {
	h.changes = sink
}

// Start connects to the broker, authenticates, subscribes to the
// reconfiguration and discovery filters, and starts the dispatch loop.
//
// When a token endpoint is configured, a credential is acquired first;
// reconnects fetch a fresh credential automatically through the client's
// credentials provider. After a successful Start, transient connection
// drops are retried with capped exponential backoff by the transport and
// never surface here.
//
// Returns:
//   - error: Token acquisition failure (check tokens.ErrUnauthorized),
//     connection failure (check mqtt.ErrConnectionFailed), or
//     ErrAlreadyStarted / ErrStopped for lifecycle misuse. ErrStopped is
//     also returned when Stop runs while Start is connecting; the
//     session then stays stopped and the connection is closed.
func (h *Handler) Start(ctx context.Context) error {
	h.mu.Lock()
	switch h.state {
	case StateStopped:
		h.mu.Unlock()
		return ErrStopped
	case StateIdle, StateDisconnected:
		h.state = StateConnecting
	default:
		h.mu.Unlock()
		return ErrAlreadyStarted
	}
	h.mu.Unlock()

	var creds mqtt.CredentialsProvider
	if h.cfg.Auth.TokenEndpoint != "" {
		// Fail fast on bad credentials before touching the broker.
		if _, err := h.tokens.Token(ctx); err != nil {
			h.transition(StateIdle)
			return fmt.Errorf("acquiring credential: %w", err)
		}
		creds = h.credentialsProvider()
	}

	client, err := mqtt.Connect(h.cfg, creds)
	if err != nil {
		h.transition(StateIdle)
		return fmt.Errorf("connecting to broker: %w", err)
	}
	if !h.transition(StateConnected) {
		// Stop ran while we were connecting; the session stays stopped.
		_ = client.Close() //nolint:errcheck
		return ErrStopped
	}

	client.SetLogger(h.logger)
	client.SetOnConnect(func() {
		// Reconnect path: the client has restored subscriptions.
		h.mu.Lock()
		if h.state == StateDisconnected {
			h.state = StateSubscribed
		}
		h.mu.Unlock()
		h.logger.Info("session reconnected", "component_id", h.componentID)
	})
	client.SetOnDisconnect(func(err error) {
		h.mu.Lock()
		if h.state != StateStopped {
			h.state = StateDisconnected
		}
		h.mu.Unlock()
		h.logger.Warn("session disconnected", "error", err)
	})

	h.router = NewRouter(h.componentID, h.store, client)
	h.router.SetLogger(h.logger)
	if h.recorder != nil {
		h.router.SetRecorder(h.recorder)
	}
	if h.changes != nil {
		h.router.SetChangeSink(h.changes)
	}

	qos := byte(h.cfg.QoS)
	for _, filter := range []string{reconfigureFilter(h.componentID), discoveryFilter()} {
		if err := client.Subscribe(filter, qos, h.enqueue); err != nil {
			client.Close() //nolint:errcheck // Best effort cleanup on error path
			h.transition(StateIdle)
			return fmt.Errorf("subscribing to %q: %w", filter, err)
		}
	}

	h.mu.Lock()
	if h.state == StateStopped {
		// Stop ran between connect and subscribe; Stop never saw this
		// client, so close it here and keep the session stopped.
		h.mu.Unlock()
		_ = client.Close() //nolint:errcheck
		return ErrStopped
	}
	h.client = client
	h.state = StateSubscribed
	h.mu.Unlock()

	h.wg.Add(1)
	go h.dispatchLoop()

	h.logger.Info("handler started",
		"component_id", h.componentID,
		"broker", fmt.Sprintf("%s:%d", h.cfg.Broker.Host, h.cfg.Broker.Port),
	)
	return nil
}

// Stop unsubscribes (best effort), closes the transport and stops the
// dispatch loop.
//
// Stop is idempotent: a second call is a no-op. Once Stop returns, no
// further ack or discovery reply is emitted for this session; a message
// racing with Stop either completes dispatch before Stop returns or is
// dropped.
func (h *Handler) Stop() error {
	h.mu.Lock()
	if h.state == StateStopped {
		h.mu.Unlock()
		return nil
	}
	h.state = StateStopped
	client := h.client
	h.client = nil
	h.mu.Unlock()

	if client != nil {
		// Best-effort unsubscribe; the broker drops the session anyway.
		_ = client.Unsubscribe(reconfigureFilter(h.componentID)) //nolint:errcheck
		_ = client.Unsubscribe(discoveryFilter())                //nolint:errcheck
		_ = client.Close()                                       //nolint:errcheck
	}

	close(h.quit)
	h.wg.Wait()

	h.logger.Info("handler stopped", "component_id", h.componentID)
	return nil
}

// transition moves the session to the given state unless Stop has made
// it terminal. Reports whether the transition happened. Start's error
// and success paths go through here so that a Stop racing Start can
// never be clobbered, which would let a later Stop close the quit
// channel twice.
func (h *Handler) transition(to State) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateStopped {
		return false
	}
	h.state = to
	return true
}

// State returns the current session state.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ComponentID returns the identifier of this component instance.
func (h *Handler) ComponentID() string {
	return h.componentID
}

// Get returns the current value of a parameter.
// Returns params.ErrNotFound if the name is absent.
func (h *Handler) Get(name string) (params.Value, error) {
	return h.store.Get(name)
}

// Set replaces the value of an existing parameter from the hosting
// application. Returns params.ErrNotFound if the name is absent.
func (h *Handler) Set(name string, v params.Value) error {
	return h.store.Set(name, v)
}

// Add inserts a new parameter.
// Returns params.ErrAlreadyExists if the name is already present.
func (h *Handler) Add(name string, v params.Value) error {
	return h.store.Add(name, v)
}

// Snapshot returns an independent copy of the current parameter set.
func (h *Handler) Snapshot() map[string]params.Value {
	return h.store.Snapshot()
}

// ForceTokenRefresh acquires a fresh access credential immediately,
// without tearing down an open session. The new credential takes effect
// on the next (re)connect.
func (h *Handler) ForceTokenRefresh(ctx context.Context) error {
	_, err := h.tokens.ForceRefresh(ctx)
	return err
}

// credentialsProvider returns the provider consulted by the transport on
// every connection attempt. Acquisition failures fall back to the last
// known credential so the retry loop keeps going until the endpoint
// recovers.
func (h *Handler) credentialsProvider() mqtt.CredentialsProvider {
	return func() (string, string) {
		cred, err := h.tokens.Token(context.Background())
		if err != nil {
			h.logger.Error("token refresh for reconnect failed", "error", err)
			cred = h.tokens.Current()
		}
		return cred.AccessToken, ""
	}
}

// enqueue hands an inbound message from the transport callback to the
// dispatch loop. The payload is copied because the transport may reuse
// its buffer. Messages racing with Stop are dropped.
func (h *Handler) enqueue(topic string, payload []byte) error {
	msg := inbound{
		topic:   topic,
		payload: append([]byte(nil), payload...),
	}

	select {
	case <-h.quit:
		return nil
	default:
	}

	select {
	case h.inbox <- msg:
	case <-h.quit:
	}
	return nil
}

// dispatchLoop is the sole consumer of the inbox. It runs the router
// synchronously per message, in arrival order, giving deterministic
// per-session ordering without locking the router itself.
func (h *Handler) dispatchLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.quit:
			return
		case msg := <-h.inbox:
			h.router.Route(context.Background(), msg.topic, msg.payload)
		}
	}
}
