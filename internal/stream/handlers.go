package stream

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// IntentHandler applies client intents to a topic. It may be nil.
type IntentHandler interface {
	Intent(ctx context.Context, topic, name string) error
}

type clientMessage struct {
	Intent string `json:"intent"`
}

type intentError struct {
	Error  string `json:"error"`
	Intent string `json:"intent"`
}

func RegisterRoutes(r fiber.Router, hub *Hub, intents IntentHandler) {
	r.Get("/ws/:jobID", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobID")
		client := hub.Register(jobID)
		defer hub.Unregister(client)

		replies := make(chan []byte, 4)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var msg []byte
				var ok bool
				select {
				case msg, ok = <-client.Send:
				case msg, ok = <-replies:
				}
				if !ok {
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			var msg clientMessage
			if err := json.Unmarshal(raw, &msg); err != nil || msg.Intent == "" || intents == nil {
				continue
			}
			if err := intents.Intent(context.Background(), jobID, msg.Intent); err != nil {
				log.Printf("stream intent %q on %s: %v", msg.Intent, jobID, err)
				reply, _ := json.Marshal(intentError{Error: err.Error(), Intent: msg.Intent})
				select {
				case replies <- reply:
				default:
				}
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
