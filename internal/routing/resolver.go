package routing

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"backend-livetrack/internal/shared/geo"
)

const (
	DefaultDebounce    = 750 * time.Millisecond
	DefaultSnapTimeout = 5 * time.Second
)

// ErrNoRoute is returned when the provider finds no road geometry.
var ErrNoRoute = errors.New("no route found")

// Snapper resolves a request into road geometry.
type Snapper interface {
	Snap(ctx context.Context, req Request) ([]geo.Point, error)
}

type Options struct {
	WaypointCap int
	Debounce    time.Duration
	Timeout     time.Duration
	RawOnly     bool
}

func (o Options) withDefaults() Options {
	if o.WaypointCap <= 0 {
		o.WaypointCap = DefaultWaypointCap
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultSnapTimeout
	}
	return o
}

// Resolver keeps the route for a growing path. Update never blocks on the
// provider: snapping runs after a debounce window and only results newer than
// the last applied pass are kept.
type Resolver struct {
	snapper Snapper
	opts    Options

	mu       sync.Mutex
	route    Route
	gen      uint64
	applied  uint64
	pending  bool
	timer    *time.Timer
	onUpdate func(Route)
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewResolver returns a resolver. A nil snapper renders raw paths only.
func NewResolver(snapper Snapper, opts Options) *Resolver {
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		snapper: snapper,
		opts:    opts.withDefaults(),
		route:   Route{Mode: ModeNone},
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnUpdate registers fn for every change of representation. Calls may
// interleave; Route always returns the latest state.
func (r *Resolver) OnUpdate(fn func(Route)) {
	r.mu.Lock()
	r.onUpdate = fn
	r.mu.Unlock()
}

func (r *Resolver) Route() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route.clone()
}

// Update replaces the path. path is copied before returning.
func (r *Resolver) Update(path []geo.Point) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.gen++
	r.route.Raw = append([]geo.Point(nil), path...)

	switch {
	case len(path) <= 1:
		r.route.Mode = ModeNone
		r.route.Snapped = nil
		r.applied = r.gen
	case len(path) == 2 || r.opts.RawOnly || r.snapper == nil:
		r.route.Mode = ModeRaw
		r.route.Snapped = nil
		r.applied = r.gen
	default:
		if r.route.Mode != ModeSnapped {
			r.route.Mode = ModeRaw
		}
		if !r.pending {
			r.pending = true
			r.timer = time.AfterFunc(r.opts.Debounce, r.resolve)
		}
	}
	route := r.route.clone()
	fn := r.onUpdate
	r.mu.Unlock()

	if fn != nil {
		fn(route)
	}
}

// Close stops pending timers and waits for an in-flight pass to return.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Resolver) resolve() {
	r.mu.Lock()
	r.pending = false
	if r.closed {
		r.mu.Unlock()
		return
	}
	gen := r.gen
	req, ok := BuildRequest(r.route.Raw, r.opts.WaypointCap)
	if !ok || gen <= r.applied {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(r.ctx, r.opts.Timeout)
	snapped, err := r.snapper.Snap(ctx, req)
	cancel()
	if err == nil && len(snapped) < 2 {
		err = ErrNoRoute
	}

	r.mu.Lock()
	if r.closed || gen <= r.applied {
		r.mu.Unlock()
		return
	}
	if err != nil {
		if gen != r.gen {
			r.mu.Unlock()
			return
		}
		log.Printf("route snap failed, rendering raw path: %v", err)
		r.route.Mode = ModeRaw
		r.route.Snapped = nil
	} else {
		r.route.Mode = ModeSnapped
		r.route.Snapped = append([]geo.Point(nil), snapped...)
	}
	r.applied = gen
	route := r.route.clone()
	fn := r.onUpdate
	r.mu.Unlock()

	if fn != nil {
		fn(route)
	}
}
