package realtime

import (
	"context"
	"errors"
	"sync"
)

// ErrConnClosed is returned by operations on a closed Conn.
var ErrConnClosed = errors.New("realtime connection closed")

const memoryBuffer = 64

// MemoryBroker is a single-process broker. Messages to a full subscriber
// buffer are dropped, matching the at-most-once contract of the Redis broker.
type MemoryBroker struct {
	mu    sync.RWMutex
	conns map[*memoryConn]struct{}
}

var _ Broker = (*MemoryBroker)(nil)

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{conns: map[*memoryConn]struct{}{}}
}

func (b *MemoryBroker) Connect(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &memoryConn{
		broker:   b,
		channels: map[string]struct{}{},
		msgs:     make(chan Message, memoryBuffer),
	}
	b.mu.Lock()
	b.conns[c] = struct{}{}
	b.mu.Unlock()
	return c, nil
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.conns {
		c.offer(Message{Channel: channel, Payload: payload})
	}
	return nil
}

// Subscribers reports how many connections are subscribed to channel.
func (b *MemoryBroker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for c := range b.conns {
		if c.subscribed(channel) {
			n++
		}
	}
	return n
}

func (b *MemoryBroker) remove(c *memoryConn) {
	b.mu.Lock()
	delete(b.conns, c)
	b.mu.Unlock()
}

type memoryConn struct {
	broker   *MemoryBroker
	mu       sync.Mutex
	channels map[string]struct{}
	msgs     chan Message
	closed   bool
}

func (c *memoryConn) Subscribe(ctx context.Context, channels ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	for _, ch := range channels {
		c.channels[ch] = struct{}{}
	}
	return nil
}

func (c *memoryConn) Unsubscribe(ctx context.Context, channels ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	for _, ch := range channels {
		delete(c.channels, ch)
	}
	return nil
}

func (c *memoryConn) Messages() <-chan Message {
	return c.msgs
}

func (c *memoryConn) Close() error {
	c.broker.remove(c)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.msgs)
	return nil
}

func (c *memoryConn) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.channels[channel]
	return ok && !c.closed
}

func (c *memoryConn) offer(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.channels[msg.Channel]; !ok {
		return
	}
	select {
	case c.msgs <- msg:
	default:
	}
}
