package realtime

import "context"

type Message struct {
	Channel string
	Payload []byte
}

// Conn is one subscriber connection. Messages delivers in transport order and
// closes after Close.
type Conn interface {
	Subscribe(ctx context.Context, channels ...string) error
	Unsubscribe(ctx context.Context, channels ...string) error
	Messages() <-chan Message
	Close() error
}

// Broker is the push-channel provider. Delivery is best effort, at most once.
type Broker interface {
	Connect(ctx context.Context) (Conn, error)
	Publish(ctx context.Context, channel string, payload []byte) error
}

// ChannelName is the per-technician channel, e.g. "tech.42".
func ChannelName(prefix, technicianID string) string {
	return prefix + technicianID
}
