package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnectionState tracks the client's position in its lifecycle.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateJoined
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	default:
		return "error"
	}
}

// JoinError reports a group join attempted while the transport was not
// usable. The caller recovers with Reconnect.
type JoinError struct {
	TripID string
	State  ConnectionState
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("cannot join trip %s while %s", e.TripID, e.State)
}

// Callbacks deliver stream events to the owning screen. OnPosition
// fires once per received sample with no deduplication.
// OnConnectionStateChanged fires only when the connected/disconnected
// boundary is crossed, never on same-side transitions. All callbacks
// run outside the client's internal lock, so they may call back into
// the client.
type Callbacks struct {
	OnPosition               func(PositionSample)
	OnConnectionStateChanged func(connected bool)
	OnError                  func(error)
}

// Client owns one persistent websocket connection to the location push
// channel and at most one joined trip group. Structural operations
// (Initialize, JoinGroup, LeaveGroup, Disconnect, Reconnect) are
// serialized on an internal mutex.
type Client struct {
	endpoint  string
	callbacks Callbacks

	mu          sync.Mutex
	conn        *websocket.Conn
	state       ConnectionState
	initialized bool
	tripID      string
	lastTripID  string
	wasNotified bool
	lastErr     string
}

func NewClient(endpoint string, callbacks Callbacks) *Client {
	return &Client{
		endpoint:  endpoint,
		callbacks: callbacks,
		state:     StateDisconnected,
	}
}

// Initialize dials the push channel. Only the first call per lifetime
// does anything; further calls before Disconnect are no-ops. Dial
// failure never returns an error here: the client lands in the Error
// state and OnError fires, leaving Reconnect as the retry path.
func (c *Client) Initialize(ctx context.Context) {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return
	}
	c.initialized = true
	c.state = StateConnecting
	c.mu.Unlock()

	c.connect(ctx)
}

func (c *Client) connect(ctx context.Context) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint, nil)

	c.mu.Lock()
	if err != nil {
		c.state = StateError
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.emitError(fmt.Errorf("stream connect: %w", err))
		return
	}
	c.conn = conn
	c.state = StateConnecting
	c.lastErr = ""
	notify := c.boundaryLocked(true)
	c.mu.Unlock()

	notify()
	go c.readLoop(conn)
}

// JoinGroup subscribes to the trip's position broadcasts. Joining the
// already-joined trip is a no-op; joining a different trip leaves the
// old group first. At most one group is joined at a time.
func (c *Client) JoinGroup(tripID string) error {
	c.mu.Lock()
	if c.state == StateJoined && c.tripID == tripID {
		c.mu.Unlock()
		return nil
	}
	if c.conn == nil || (c.state != StateConnecting && c.state != StateJoined) {
		err := &JoinError{TripID: tripID, State: c.state}
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.emitError(err)
		return err
	}

	if c.tripID != "" && c.tripID != tripID {
		// best effort, the server drops the old membership anyway
		_ = c.conn.WriteJSON(command{Action: actionLeave, TripID: c.tripID})
	}
	if err := c.conn.WriteJSON(command{Action: actionJoin, TripID: tripID}); err != nil {
		c.state = StateError
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.emitError(fmt.Errorf("stream join: %w", err))
		return err
	}
	c.tripID = tripID
	c.lastTripID = tripID
	c.state = StateJoined
	c.mu.Unlock()
	return nil
}

// LeaveGroup drops the trip group membership. Leaving a group that is
// not joined, or leaving while disconnected, is not a failure.
func (c *Client) LeaveGroup(tripID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.tripID != tripID {
		return
	}
	_ = c.conn.WriteJSON(command{Action: actionLeave, TripID: tripID})
	c.tripID = ""
	c.state = StateConnecting
}

// Disconnect tears the connection down entirely. Initialize must be
// called again before any group operation.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.tripID = ""
	c.initialized = false
	c.state = StateDisconnected
	notify := c.boundaryLocked(false)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}
	notify()
}

// Reconnect forces a full teardown, redial and rejoin of the last
// active trip group. This is the manual retry the UI exposes after an
// Error or Disconnected state; the client performs no unbounded
// automatic retry loop of its own.
func (c *Client) Reconnect(ctx context.Context) {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.tripID = ""
	c.initialized = true
	c.state = StateConnecting
	lastTrip := c.lastTripID
	notify := c.boundaryLocked(false)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	notify()

	c.connect(ctx)
	if lastTrip != "" {
		_ = c.JoinGroup(lastTrip)
	}
}

func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// LastError is the most recent transport or join failure, empty after a
// successful connect.
func (c *Client) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn != conn {
				// superseded by Disconnect or Reconnect
				c.mu.Unlock()
				return
			}
			c.conn = nil
			c.tripID = ""
			c.state = StateError
			c.lastErr = err.Error()
			notify := c.boundaryLocked(false)
			c.mu.Unlock()

			notify()
			c.emitError(fmt.Errorf("stream read: %w", err))
			return
		}

		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil || env.Type != envelopePosition {
			continue
		}

		// drop stragglers from a group left moments ago
		c.mu.Lock()
		current := c.tripID
		c.mu.Unlock()
		if env.TripID != "" && env.TripID != current {
			continue
		}

		sample := env.Data
		if sample.UpdatedAt.IsZero() {
			sample.UpdatedAt = time.Now()
		}
		if cb := c.callbacks.OnPosition; cb != nil {
			cb(sample)
		}
	}
}

// boundaryLocked records a connected/disconnected transition and
// returns the notification to fire after the lock is released.
// Same-side transitions return a no-op.
func (c *Client) boundaryLocked(connected bool) func() {
	if c.wasNotified == connected {
		return func() {}
	}
	c.wasNotified = connected
	cb := c.callbacks.OnConnectionStateChanged
	if cb == nil {
		return func() {}
	}
	return func() { cb(connected) }
}

func (c *Client) emitError(err error) {
	if cb := c.callbacks.OnError; cb != nil {
		cb(err)
	}
}
