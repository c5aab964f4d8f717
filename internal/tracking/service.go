package tracking

import (
	"context"
	"encoding/json"
	"time"

	"backend-driveshare/internal/db"
	"backend-driveshare/internal/stream"

	"github.com/google/uuid"
)

// Service archives driver position reports and pushes them into the
// trip's broadcast group.
type Service struct {
	db  db.Querier
	hub *stream.Hub
}

func NewService(querier db.Querier, hub *stream.Hub) *Service {
	return &Service{db: querier, hub: hub}
}

// Ingest stores one driver report and broadcasts it to the trip group.
// A missing observed_at defaults to receive time.
func (s *Service) Ingest(ctx context.Context, tripID string, sample stream.PositionSample) (Position, error) {
	if sample.UpdatedAt.IsZero() {
		sample.UpdatedAt = time.Now()
	}

	pos := Position{
		ID:         uuid.NewString(),
		TripID:     tripID,
		Lat:        sample.Lat,
		Lng:        sample.Lng,
		Bearing:    sample.Bearing,
		SpeedMps:   sample.SpeedMps,
		DriverName: sample.DriverName,
		ObservedAt: sample.UpdatedAt,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO trip_positions (id, trip_id, lat, lng, bearing, speed_mps, driver_name, observed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, pos.ID, pos.TripID, pos.Lat, pos.Lng, pos.Bearing, pos.SpeedMps, pos.DriverName, pos.ObservedAt)
	if err := row.Scan(&pos.CreatedAt); err != nil {
		return Position{}, err
	}

	if s.hub != nil {
		payload, _ := json.Marshal(stream.Envelope{
			Type:   "position",
			TripID: tripID,
			Data:   sample,
		})
		s.hub.Broadcast(tripID, payload)
	}

	return pos, nil
}

// Latest returns the most recently observed position for a trip.
func (s *Service) Latest(ctx context.Context, tripID string) (Position, error) {
	var p Position
	row := s.db.QueryRow(ctx, `
		SELECT id, trip_id, lat, lng, bearing, speed_mps, COALESCE(driver_name,''), observed_at, created_at
		FROM trip_positions WHERE trip_id=$1
		ORDER BY observed_at DESC
		LIMIT 1
	`, tripID)
	if err := row.Scan(&p.ID, &p.TripID, &p.Lat, &p.Lng, &p.Bearing, &p.SpeedMps, &p.DriverName, &p.ObservedAt, &p.CreatedAt); err != nil {
		return Position{}, err
	}
	return p, nil
}

// Positions lists a trip's archived positions in observation order.
func (s *Service) Positions(ctx context.Context, tripID string) ([]Position, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, trip_id, lat, lng, bearing, speed_mps, COALESCE(driver_name,''), observed_at, created_at
		FROM trip_positions WHERE trip_id=$1
		ORDER BY observed_at
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.TripID, &p.Lat, &p.Lng, &p.Bearing, &p.SpeedMps, &p.DriverName, &p.ObservedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, nil
}
