package tracking

import (
	"time"

	"backend-driveshare/internal/shared/geo"
)

// Position is one archived driver position report.
type Position struct {
	ID         string    `json:"id"`
	TripID     string    `json:"trip_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Bearing    float64   `json:"bearing"`
	SpeedMps   float64   `json:"speed_mps"`
	DriverName string    `json:"driver_name,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// LiveView is the display-ready tuple handed to the map layer: the
// last known position with derived metrics, the connection flag and
// the last transport error, if any.
type LiveView struct {
	TripID           string      `json:"trip_id"`
	Lat              float64     `json:"lat"`
	Lng              float64     `json:"lng"`
	Bearing          float64     `json:"bearing"`
	SpeedMps         float64     `json:"speed_mps"`
	SmoothedSpeedMps float64     `json:"smoothed_speed_mps"`
	AverageSpeedMps  float64     `json:"average_speed_mps"`
	DriverName       string      `json:"driver_name,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`
	HasPosition      bool        `json:"has_position"`
	Connected        bool        `json:"connected"`
	LastError        string      `json:"last_error,omitempty"`
	EtaLabel         string      `json:"eta_label,omitempty"`
	ArrivalTime      string      `json:"arrival_time,omitempty"`
	RouteBounds      *geo.Bounds `json:"route_bounds,omitempty"`
}
