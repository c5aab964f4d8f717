package stream

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans position payloads out to the subscribers of each trip group.
// With redis configured, broadcasts travel through pub/sub so every
// node serving websocket connections sees them; without redis the hub
// delivers locally only.
type Hub struct {
	redis  *redis.Client
	groups map[string]map[*Subscriber]struct{}
	mu     sync.RWMutex
}

// Subscriber is one websocket connection's outbound queue. A subscriber
// belongs to at most one trip group at a time.
type Subscriber struct {
	Send   chan []byte
	tripID string
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:  redisClient,
		groups: map[string]map[*Subscriber]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func NewSubscriber() *Subscriber {
	return &Subscriber{Send: make(chan []byte, 64)}
}

// Join moves the subscriber into the trip group, leaving any previous
// group first. Joining the current group again is a no-op.
func (h *Hub) Join(sub *Subscriber, tripID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.tripID == tripID {
		return
	}
	h.leaveLocked(sub)

	if h.groups[tripID] == nil {
		h.groups[tripID] = map[*Subscriber]struct{}{}
	}
	h.groups[tripID][sub] = struct{}{}
	sub.tripID = tripID
}

// Leave removes the subscriber from its group. The Send channel stays
// open so the subscriber can join another trip.
func (h *Hub) Leave(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(sub)
}

// Close removes the subscriber and closes its queue. Called when the
// owning connection goes away.
func (h *Hub) Close(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(sub)
	close(sub.Send)
}

func (h *Hub) leaveLocked(sub *Subscriber) {
	if sub.tripID == "" {
		return
	}
	if members, ok := h.groups[sub.tripID]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.groups, sub.tripID)
		}
	}
	sub.tripID = ""
}

// Broadcast delivers a payload to every subscriber of the trip group.
// Slow subscribers are skipped rather than blocking the ingest path.
func (h *Hub) Broadcast(tripID string, payload []byte) {
	if h.redis != nil {
		// pub/sub echoes back to this node, which fans out locally
		err := h.redis.Publish(context.Background(), tripChannel(tripID), payload).Err()
		if err != nil {
			log.Printf("redis publish error: %v", err)
		}
		return
	}
	h.deliver(tripID, payload)
}

func (h *Hub) deliver(tripID string, payload []byte) {
	h.mu.RLock()
	members := h.groups[tripID]
	h.mu.RUnlock()

	for sub := range members {
		select {
		case sub.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "trips:*:positions")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		tripID := tripIDFromChannel(msg.Channel)
		if tripID == "" {
			continue
		}
		h.deliver(tripID, []byte(msg.Payload))
	}
}

func tripChannel(tripID string) string {
	return "trips:" + tripID + ":positions"
}

func tripIDFromChannel(ch string) string {
	const prefix = "trips:"
	const suffix = ":positions"
	if !strings.HasPrefix(ch, prefix) || !strings.HasSuffix(ch, suffix) {
		return ""
	}
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
