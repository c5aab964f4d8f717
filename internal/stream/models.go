package stream

import "time"

// PositionSample is one driver position as pushed over the trip group.
// Samples carry no sequence number; consumers treat each one as the new
// current state and tolerate duplicates and reordering.
type PositionSample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Bearing    float64   `json:"bearing"`
	SpeedMps   float64   `json:"speed"`
	DriverName string    `json:"driver_name,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Envelope wraps server-to-client messages on the push channel.
type Envelope struct {
	Type   string         `json:"type"`
	TripID string         `json:"trip_id"`
	Data   PositionSample `json:"data"`
}

const envelopePosition = "position"

// command is the client-to-server side of the protocol.
type command struct {
	Action string `json:"action"`
	TripID string `json:"trip_id"`
}

const (
	actionJoin  = "join"
	actionLeave = "leave"
)
