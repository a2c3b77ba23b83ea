package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "live:"
	channelSuffix = ":frames"
	sendBuffer    = 64
)

// Hub fans frames out to websocket clients by topic (a job id). With Redis
// configured, frames are mirrored to other nodes; each node tags what it
// publishes so it never re-delivers its own frames.
type Hub struct {
	redis   *redis.Client
	origin  string
	clients map[string]map[*Client]struct{}
	latest  map[string][]byte
	mu      sync.RWMutex

	cancel context.CancelFunc
	done   chan struct{}
	ready  chan struct{}
}

type Client struct {
	Topic string
	Send  chan []byte
}

type mirrored struct {
	Origin string          `json:"origin"`
	Frame  json.RawMessage `json:"frame"`
}

func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		redis:   redisClient,
		origin:  uuid.NewString(),
		clients: map[string]map[*Client]struct{}{},
		latest:  map[string][]byte{},
		cancel:  cancel,
		done:    make(chan struct{}),
		ready:   make(chan struct{}),
	}

	if redisClient != nil {
		go h.subscribeRedis(ctx)
	} else {
		close(h.ready)
		close(h.done)
	}
	return h
}

// Register adds a client. The topic's latest frame, if any, is queued first.
func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	if frame, ok := h.latest[topic]; ok {
		client.Send <- frame
	}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if topicClients, ok := h.clients[client.Topic]; ok {
		if _, ok := topicClients[client]; !ok {
			return
		}
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.clients, client.Topic)
		}
		close(client.Send)
	}
}

// Latest returns the last frame seen for topic.
func (h *Hub) Latest(topic string) ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	frame, ok := h.latest[topic]
	return frame, ok
}

func (h *Hub) Broadcast(topic string, payload []byte) {
	h.deliver(topic, payload)

	if h.redis != nil {
		msg, err := json.Marshal(mirrored{Origin: h.origin, Frame: payload})
		if err != nil {
			log.Printf("stream encode error: %v", err)
			return
		}
		if err := h.redis.Publish(context.Background(), redisChannel(topic), msg).Err(); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

// Close stops mirroring.
func (h *Hub) Close() {
	h.cancel()
	<-h.done
}

func (h *Hub) deliver(topic string, payload []byte) {
	h.mu.Lock()
	h.latest[topic] = payload
	clients := make([]*Client, 0, len(h.clients[topic]))
	for client := range h.clients[topic] {
		clients = append(clients, client)
	}
	// Sends happen under the lock so Unregister cannot close a channel mid-send.
	for _, client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	defer close(h.done)
	pubsub := h.redis.PSubscribe(ctx, channelPrefix+"*"+channelSuffix)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("redis subscribe error: %v", err)
		close(h.ready)
		return
	}
	close(h.ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m mirrored
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				log.Printf("stream drop mirrored frame on %s: %v", msg.Channel, err)
				continue
			}
			if m.Origin == h.origin {
				continue
			}
			if topic := topicFromChannel(msg.Channel); topic != "" {
				h.deliver(topic, m.Frame)
			}
		}
	}
}

func redisChannel(topic string) string {
	return channelPrefix + topic + channelSuffix
}

func topicFromChannel(ch string) string {
	// live:{job}:frames
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
