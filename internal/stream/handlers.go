package stream

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mounts the push channel endpoint. Clients speak the
// join/leave command envelope and receive position envelopes for the
// trip group they joined.
func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		sub := NewSubscriber()

		done := make(chan struct{})
		go func() {
			for msg := range sub.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			_, payload, err := c.ReadMessage()
			if err != nil {
				break
			}

			var cmd command
			if err := json.Unmarshal(payload, &cmd); err != nil {
				continue
			}
			switch cmd.Action {
			case actionJoin:
				if cmd.TripID != "" {
					hub.Join(sub, cmd.TripID)
				}
			case actionLeave:
				hub.Leave(sub)
			}
		}

		// closing the queue unblocks the writer goroutine
		hub.Close(sub)
		<-done
	}))
}
