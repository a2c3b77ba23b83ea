package realtime

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroker carries technician channels over Redis pub/sub. Each Conn owns
// one *redis.PubSub.
type RedisBroker struct {
	client *redis.Client
}

var _ Broker = (*RedisBroker)(nil)

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Connect(ctx context.Context) (Conn, error) {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	ps := b.client.Subscribe(ctx)
	c := &redisConn{
		pubsub: ps,
		msgs:   make(chan Message, memoryBuffer),
	}
	go c.forward(ps.Channel())
	return c, nil
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

type redisConn struct {
	pubsub    *redis.PubSub
	msgs      chan Message
	closeOnce sync.Once
}

func (c *redisConn) Subscribe(ctx context.Context, channels ...string) error {
	return c.pubsub.Subscribe(ctx, channels...)
}

func (c *redisConn) Unsubscribe(ctx context.Context, channels ...string) error {
	return c.pubsub.Unsubscribe(ctx, channels...)
}

func (c *redisConn) Messages() <-chan Message {
	return c.msgs
}

func (c *redisConn) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.pubsub.Close() })
	return err
}

func (c *redisConn) forward(in <-chan *redis.Message) {
	defer close(c.msgs)
	for msg := range in {
		c.msgs <- Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}
	}
}
