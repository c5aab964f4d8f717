package tracking

import (
	"context"
	"log"
	"sync"
	"time"

	"backend-driveshare/internal/eta"
	"backend-driveshare/internal/motion"
	"backend-driveshare/internal/navsession"
	"backend-driveshare/internal/shared/geo"
	"backend-driveshare/internal/stream"
)

// Tracker is one screen's live view of a trip. It owns the stream
// client, a speed history scoped to the tracked trip, and the persisted
// navigation session, and folds incoming samples into a LiveView the
// map layer can render directly.
type Tracker struct {
	client   *stream.Client
	sessions *navsession.Store

	mu          sync.Mutex
	tripID      string
	route       []geo.Point
	destination *geo.Point
	last        *stream.PositionSample
	smoothed    float64
	connected   bool
	lastErr     string
	history     *motion.History
}

func NewTracker(endpoint string, sessions *navsession.Store) *Tracker {
	t := &Tracker{
		sessions: sessions,
		history:  motion.NewHistory(motion.DefaultHistorySize),
	}
	t.client = stream.NewClient(endpoint, stream.Callbacks{
		OnPosition:               t.handlePosition,
		OnConnectionStateChanged: t.handleConnection,
		OnError:                  t.handleError,
	})
	return t
}

// Track starts (or resumes) tracking a trip. Tracking the already
// tracked trip is a no-op; switching trips discards the speed history
// so samples never leak across trips. The route polyline arrives
// already decoded from the routing provider; its last point is the
// destination used for ETA.
func (t *Tracker) Track(ctx context.Context, tripID string, route []geo.Point) error {
	t.mu.Lock()
	fresh := t.tripID != tripID
	if fresh {
		t.tripID = tripID
		t.route = route
		t.destination = nil
		if len(route) > 0 {
			dest := route[len(route)-1]
			t.destination = &dest
		}
		t.last = nil
		t.smoothed = 0
		t.history.Reset()
	}
	t.mu.Unlock()

	t.client.Initialize(ctx)
	if err := t.client.JoinGroup(tripID); err != nil {
		return err
	}

	if fresh && t.sessions != nil {
		// resume an interrupted session rather than restarting the clock
		if existing := t.sessions.Load(ctx, tripID); existing == nil {
			record := navsession.Record{StartedAtMs: time.Now().UnixMilli()}
			if len(route) > 0 {
				record.RouteSummary = &navsession.RouteSummary{PointCount: len(route)}
			}
			if err := t.sessions.Save(ctx, tripID, record); err != nil {
				log.Printf("nav session save error: %v", err)
			}
		}
	}
	return nil
}

// Stop leaves the trip group and clears the persisted session. The
// connection itself stays up for the next Track call.
func (t *Tracker) Stop(ctx context.Context) {
	t.mu.Lock()
	tripID := t.tripID
	t.tripID = ""
	t.route = nil
	t.destination = nil
	t.last = nil
	t.smoothed = 0
	t.history.Reset()
	t.mu.Unlock()

	if tripID == "" {
		return
	}
	t.client.LeaveGroup(tripID)
	if t.sessions != nil {
		t.sessions.Clear(ctx, tripID)
	}
}

// Reconnect is the manual retry surfaced to the UI after a
// disconnected indicator.
func (t *Tracker) Reconnect(ctx context.Context) {
	t.client.Reconnect(ctx)
}

// Close tears down the underlying connection.
func (t *Tracker) Close() {
	t.client.Disconnect()
}

// Snapshot renders the current tracking state. Derived metrics use the
// rolling average speed when available and fall back to the urban
// default inside the eta package otherwise.
func (t *Tracker) Snapshot() LiveView {
	t.mu.Lock()
	defer t.mu.Unlock()

	view := LiveView{
		TripID:      t.tripID,
		Connected:   t.connected,
		LastError:   t.lastErr,
		RouteBounds: geo.ComputeBounds(t.route),
	}
	if t.last == nil {
		return view
	}

	view.HasPosition = true
	view.Lat = t.last.Lat
	view.Lng = t.last.Lng
	view.Bearing = t.last.Bearing
	view.SpeedMps = t.last.SpeedMps
	view.DriverName = t.last.DriverName
	view.UpdatedAt = t.last.UpdatedAt
	view.SmoothedSpeedMps = t.smoothed
	view.AverageSpeedMps = motion.AverageSpeed(t.history.Samples())

	if t.destination != nil {
		remainingM := geo.DistanceM(t.last.Lat, t.last.Lng, t.destination.Lat, t.destination.Lng)
		speedKmh := view.AverageSpeedMps * 3.6
		view.EtaLabel = eta.RemainingTimeLabel(remainingM, speedKmh)
		view.ArrivalTime = eta.ArrivalClockTime(remainingM, speedKmh)
	}
	return view
}

func (t *Tracker) handlePosition(sample stream.PositionSample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// last-write-wins: the transport guarantees no ordering, so every
	// sample becomes the new current state
	t.last = &sample
	t.smoothed = motion.Smooth(sample.SpeedMps, t.smoothed, motion.DefaultAlpha)
	t.history.Add(motion.Sample{
		Lat:         sample.Lat,
		Lng:         sample.Lng,
		TimestampMs: sample.UpdatedAt.UnixMilli(),
	})
}

func (t *Tracker) handleConnection(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = connected
	if connected {
		t.lastErr = ""
	}
}

func (t *Tracker) handleError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErr = err.Error()
}
