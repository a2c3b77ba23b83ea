package realtime

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"backend-livetrack/internal/tracking"
)

// ErrNoTechnician is returned when subscribing without a technician id.
var ErrNoTechnician = errors.New("technician id is required")

const unsubscribeTimeout = 2 * time.Second

// Handle is a disposable subscription. Its callback never runs after
// Ingestor.Unsubscribe returns.
type Handle struct {
	channel string
	onPoint func(tracking.LocationSample)

	mu     sync.Mutex
	closed bool
}

func (h *Handle) Channel() string {
	return h.channel
}

func (h *Handle) deliver(sample tracking.LocationSample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.onPoint(sample)
	}
}

// close waits for an in-flight delivery to finish.
func (h *Handle) close() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.closed = true
	return true
}

// Ingestor decodes location events from one Conn and dispatches them, one at
// a time in transport order, to the handles registered for each channel.
type Ingestor struct {
	conn   Conn
	prefix string
	now    func() time.Time

	subMu    sync.Mutex
	mu       sync.Mutex
	handles  map[string]map[*Handle]struct{}
	dropped  atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
}

func NewIngestor(conn Conn, prefix string) *Ingestor {
	in := &Ingestor{
		conn:    conn,
		prefix:  prefix,
		now:     time.Now,
		handles: map[string]map[*Handle]struct{}{},
		done:    make(chan struct{}),
	}
	go in.dispatch()
	return in
}

// Subscribe registers onPoint for the technician's channel. onPoint must not
// call Unsubscribe on its own handle.
func (in *Ingestor) Subscribe(ctx context.Context, technicianID string, onPoint func(tracking.LocationSample)) (*Handle, error) {
	if technicianID == "" {
		return nil, ErrNoTechnician
	}
	h := &Handle{channel: ChannelName(in.prefix, technicianID), onPoint: onPoint}

	in.subMu.Lock()
	defer in.subMu.Unlock()

	in.mu.Lock()
	set := in.handles[h.channel]
	first := len(set) == 0
	if set == nil {
		set = map[*Handle]struct{}{}
		in.handles[h.channel] = set
	}
	set[h] = struct{}{}
	in.mu.Unlock()

	if first {
		if err := in.conn.Subscribe(ctx, h.channel); err != nil {
			in.remove(h)
			return nil, err
		}
	}
	return h, nil
}

// Unsubscribe is idempotent and accepts nil.
func (in *Ingestor) Unsubscribe(h *Handle) {
	if h == nil || !h.close() {
		return
	}

	in.subMu.Lock()
	defer in.subMu.Unlock()

	if in.remove(h) {
		ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
		defer cancel()
		if err := in.conn.Unsubscribe(ctx, h.channel); err != nil && !errors.Is(err, ErrConnClosed) {
			log.Printf("realtime unsubscribe %s: %v", h.channel, err)
		}
	}
}

// Dropped counts payloads that could not be decoded.
func (in *Ingestor) Dropped() int64 {
	return in.dropped.Load()
}

// Close releases the Conn and waits for the dispatch loop to exit.
func (in *Ingestor) Close() error {
	var err error
	in.stopOnce.Do(func() {
		in.mu.Lock()
		var all []*Handle
		for _, set := range in.handles {
			for h := range set {
				all = append(all, h)
			}
		}
		in.handles = map[string]map[*Handle]struct{}{}
		in.mu.Unlock()
		for _, h := range all {
			h.close()
		}
		err = in.conn.Close()
		<-in.done
	})
	return err
}

// remove reports whether h was the last handle on its channel.
func (in *Ingestor) remove(h *Handle) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	set, ok := in.handles[h.channel]
	if !ok {
		return false
	}
	if _, ok := set[h]; !ok {
		return false
	}
	delete(set, h)
	if len(set) == 0 {
		delete(in.handles, h.channel)
		return true
	}
	return false
}

func (in *Ingestor) dispatch() {
	defer close(in.done)
	for msg := range in.conn.Messages() {
		env, err := DecodeEnvelope(msg.Payload)
		if err != nil {
			in.drop(msg.Channel, err)
			continue
		}
		if env.Event != EventLocationUpdated {
			continue
		}
		sample, err := DecodeLocation(env.Data, in.now())
		if err != nil {
			in.drop(msg.Channel, err)
			continue
		}

		in.mu.Lock()
		targets := make([]*Handle, 0, len(in.handles[msg.Channel]))
		for h := range in.handles[msg.Channel] {
			targets = append(targets, h)
		}
		in.mu.Unlock()

		for _, h := range targets {
			h.deliver(sample)
		}
	}
}

func (in *Ingestor) drop(channel string, err error) {
	in.dropped.Add(1)
	log.Printf("realtime drop payload on %s: %v", channel, err)
}
