package navsession

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "nav_session:"

// RouteSummary is the slim route descriptor kept alongside a session.
type RouteSummary struct {
	PointCount int `json:"point_count"`
}

// Record is one in-progress navigation session, persisted so tracking
// can resume after the app process is killed and restarted.
type Record struct {
	StartedAtMs  int64         `json:"started_at_ms"`
	RouteSummary *RouteSummary `json:"route_summary,omitempty"`
}

// Store persists Records in redis under nav_session:{cacheKey}. All
// read failures degrade to "no session found": the caller starts fresh
// either way, so a broken read and a missing record are equivalent.
type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

// Save replaces whatever was stored under cacheKey. No merge.
func (s *Store) Save(ctx context.Context, cacheKey string, record Record) error {
	if s.redis == nil {
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, keyPrefix+cacheKey, payload, 0).Err()
}

// Load returns the stored record, or nil when nothing usable exists.
func (s *Store) Load(ctx context.Context, cacheKey string) *Record {
	if s.redis == nil {
		return nil
	}

	payload, err := s.redis.Get(ctx, keyPrefix+cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("nav session read error: %v", err)
		}
		return nil
	}

	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		log.Printf("nav session decode error: %v", err)
		return nil
	}
	return &record
}

// Clear deletes the record. Absence is not an error.
func (s *Store) Clear(ctx context.Context, cacheKey string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, keyPrefix+cacheKey).Err(); err != nil {
		log.Printf("nav session clear error: %v", err)
	}
}
