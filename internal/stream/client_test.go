package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// pushServer is a minimal push-channel peer that records the commands
// it receives, so tests can assert on the client's wire behavior.
type pushServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  []*websocket.Conn
	joins  []string
	leaves []string
	dials  int
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ps.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.mu.Lock()
		ps.conns = append(ps.conns, conn)
		ps.dials++
		ps.mu.Unlock()

		for {
			var cmd command
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			ps.mu.Lock()
			switch cmd.Action {
			case actionJoin:
				ps.joins = append(ps.joins, cmd.TripID)
			case actionLeave:
				ps.leaves = append(ps.leaves, cmd.TripID)
			}
			ps.mu.Unlock()
		}
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) url() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http")
}

func (ps *pushServer) push(env Envelope) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, conn := range ps.conns {
		_ = conn.WriteJSON(env)
	}
}

func (ps *pushServer) dropConnections() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, conn := range ps.conns {
		_ = conn.Close()
	}
	ps.conns = nil
}

func (ps *pushServer) joinCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.joins)
}

func (ps *pushServer) leaveCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.leaves)
}

func (ps *pushServer) dialCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.dials
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

type recordedCallbacks struct {
	positions chan PositionSample
	states    chan bool
	errs      chan error
}

func newRecordedCallbacks() (*recordedCallbacks, Callbacks) {
	rec := &recordedCallbacks{
		positions: make(chan PositionSample, 16),
		states:    make(chan bool, 16),
		errs:      make(chan error, 16),
	}
	return rec, Callbacks{
		OnPosition:               func(s PositionSample) { rec.positions <- s },
		OnConnectionStateChanged: func(c bool) { rec.states <- c },
		OnError:                  func(err error) { rec.errs <- err },
	}
}

func TestClientInitializeAndJoin(t *testing.T) {
	ps := newPushServer(t)
	rec, cb := newRecordedCallbacks()
	client := NewClient(ps.url(), cb)
	defer client.Disconnect()

	client.Initialize(context.Background())
	if client.State() != StateConnecting {
		t.Fatalf("expected connecting after dial, got %s", client.State())
	}

	select {
	case connected := <-rec.states:
		if !connected {
			t.Fatalf("expected connected notification")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for connected notification")
	}

	if err := client.JoinGroup("T1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if client.State() != StateJoined {
		t.Fatalf("expected joined state, got %s", client.State())
	}
	waitUntil(t, "join command", func() bool { return ps.joinCount() == 1 })

	ps.push(Envelope{Type: envelopePosition, TripID: "T1", Data: PositionSample{
		Lat: 10.77, Lng: 106.70, Bearing: 90, SpeedMps: 11.1, DriverName: "Minh",
	}})

	select {
	case sample := <-rec.positions:
		if sample.Lat != 10.77 || sample.SpeedMps != 11.1 {
			t.Fatalf("unexpected sample: %+v", sample)
		}
		if sample.UpdatedAt.IsZero() {
			t.Fatalf("expected receive-time default for missing updated_at")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for position")
	}
}

func TestClientInitializeIdempotent(t *testing.T) {
	ps := newPushServer(t)
	_, cb := newRecordedCallbacks()
	client := NewClient(ps.url(), cb)
	defer client.Disconnect()

	client.Initialize(context.Background())
	client.Initialize(context.Background())
	client.Initialize(context.Background())

	waitUntil(t, "single dial", func() bool { return ps.dialCount() == 1 })
	time.Sleep(50 * time.Millisecond)
	if ps.dialCount() != 1 {
		t.Fatalf("expected exactly one dial, got %d", ps.dialCount())
	}
}

func TestClientJoinIdempotent(t *testing.T) {
	ps := newPushServer(t)
	_, cb := newRecordedCallbacks()
	client := NewClient(ps.url(), cb)
	defer client.Disconnect()

	client.Initialize(context.Background())
	if err := client.JoinGroup("T1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := client.JoinGroup("T1"); err != nil {
		t.Fatalf("second join: %v", err)
	}

	waitUntil(t, "join command", func() bool { return ps.joinCount() >= 1 })
	time.Sleep(50 * time.Millisecond)
	if ps.joinCount() != 1 {
		t.Fatalf("expected exactly one join on the wire, got %d", ps.joinCount())
	}
}

func TestClientJoinSwitchesTrips(t *testing.T) {
	ps := newPushServer(t)
	_, cb := newRecordedCallbacks()
	client := NewClient(ps.url(), cb)
	defer client.Disconnect()

	client.Initialize(context.Background())
	if err := client.JoinGroup("T1"); err != nil {
		t.Fatalf("join T1: %v", err)
	}
	if err := client.JoinGroup("T2"); err != nil {
		t.Fatalf("join T2: %v", err)
	}

	waitUntil(t, "leave of old trip", func() bool { return ps.leaveCount() == 1 })
	waitUntil(t, "both joins", func() bool { return ps.joinCount() == 2 })

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.leaves[0] != "T1" || ps.joins[1] != "T2" {
		t.Fatalf("unexpected command order: joins=%v leaves=%v", ps.joins, ps.leaves)
	}
}

func TestClientJoinWithoutConnection(t *testing.T) {
	rec, cb := newRecordedCallbacks()
	client := NewClient("ws://127.0.0.1:1/stream/ws", cb)

	err := client.JoinGroup("T1")
	if err == nil {
		t.Fatalf("expected join error")
	}
	var joinErr *JoinError
	if !errors.As(err, &joinErr) {
		t.Fatalf("expected JoinError, got %T", err)
	}
	if joinErr.TripID != "T1" {
		t.Fatalf("unexpected trip in error: %s", joinErr.TripID)
	}

	select {
	case <-rec.errs:
	case <-time.After(time.Second):
		t.Fatalf("expected error callback")
	}
}

func TestClientDialFailure(t *testing.T) {
	rec, cb := newRecordedCallbacks()
	client := NewClient("ws://127.0.0.1:1/stream/ws", cb)

	client.Initialize(context.Background())
	if client.State() != StateError {
		t.Fatalf("expected error state, got %s", client.State())
	}
	if client.LastError() == "" {
		t.Fatalf("expected last error to be recorded")
	}

	select {
	case <-rec.errs:
	case <-time.After(time.Second):
		t.Fatalf("expected error callback")
	}
	// never connected, so no boundary crossing to report
	select {
	case s := <-rec.states:
		t.Fatalf("unexpected state notification: %v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClientLeaveGroup(t *testing.T) {
	ps := newPushServer(t)
	_, cb := newRecordedCallbacks()
	client := NewClient(ps.url(), cb)
	defer client.Disconnect()

	client.Initialize(context.Background())
	_ = client.JoinGroup("T1")

	client.LeaveGroup("T9") // not joined, swallowed
	client.LeaveGroup("T1")
	if client.State() != StateConnecting {
		t.Fatalf("expected connecting after leave, got %s", client.State())
	}
	waitUntil(t, "leave command", func() bool { return ps.leaveCount() == 1 })

	// leaving again while no group is joined is a no-op
	client.LeaveGroup("T1")
	time.Sleep(50 * time.Millisecond)
	if ps.leaveCount() != 1 {
		t.Fatalf("expected one leave on the wire, got %d", ps.leaveCount())
	}
}

func TestClientDisconnectRequiresReinitialize(t *testing.T) {
	ps := newPushServer(t)
	rec, cb := newRecordedCallbacks()
	client := NewClient(ps.url(), cb)

	client.Initialize(context.Background())
	<-rec.states // connected

	client.Disconnect()
	if client.State() != StateDisconnected {
		t.Fatalf("expected disconnected state")
	}
	select {
	case connected := <-rec.states:
		if connected {
			t.Fatalf("expected disconnected notification")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for disconnect notification")
	}

	if err := client.JoinGroup("T1"); err == nil {
		t.Fatalf("expected join failure after disconnect")
	}

	// initialize works again after teardown
	client.Initialize(context.Background())
	defer client.Disconnect()
	waitUntil(t, "redial", func() bool { return ps.dialCount() == 2 })
}

func TestClientServerDropThenReconnect(t *testing.T) {
	ps := newPushServer(t)
	rec, cb := newRecordedCallbacks()
	client := NewClient(ps.url(), cb)
	defer client.Disconnect()

	client.Initialize(context.Background())
	<-rec.states // connected
	_ = client.JoinGroup("T1")
	waitUntil(t, "join command", func() bool { return ps.joinCount() == 1 })

	ps.dropConnections()

	select {
	case connected := <-rec.states:
		if connected {
			t.Fatalf("expected disconnected notification")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for drop notification")
	}
	waitUntil(t, "error state", func() bool { return client.State() == StateError })
	select {
	case <-rec.errs:
	case <-time.After(time.Second):
		t.Fatalf("expected read error callback")
	}

	client.Reconnect(context.Background())

	select {
	case connected := <-rec.states:
		if !connected {
			t.Fatalf("expected reconnected notification")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for reconnect notification")
	}
	if client.State() != StateJoined {
		t.Fatalf("expected rejoin of last trip, state %s", client.State())
	}
	waitUntil(t, "rejoin command", func() bool { return ps.joinCount() == 2 })

	ps.mu.Lock()
	rejoined := ps.joins[1]
	ps.mu.Unlock()
	if rejoined != "T1" {
		t.Fatalf("expected rejoin of T1, got %s", rejoined)
	}
}

func TestClientStateStrings(t *testing.T) {
	cases := map[ConnectionState]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateJoined:       "joined",
		StateError:        "error",
	}
	for state, want := range cases {
		if state.String() != want {
			t.Fatalf("state %d: got %s", state, state.String())
		}
	}
}
