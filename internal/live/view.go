package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"backend-livetrack/internal/fleet"
	"backend-livetrack/internal/realtime"
	"backend-livetrack/internal/routing"
	"backend-livetrack/internal/shared/geo"
	"backend-livetrack/internal/tracking"
)

const (
	IntentToggleSnapped = "toggle_snapped"
	IntentRefocus       = "refocus"

	persistBuffer  = 256
	persistTimeout = 5 * time.Second
)

var (
	// ErrUnknownIntent is returned for intents the view does not handle.
	ErrUnknownIntent = errors.New("unknown intent")

	// ErrViewClosed is returned by operations on a closed view.
	ErrViewClosed = errors.New("live view closed")

	// ErrNoSession is returned when the view has no track session.
	ErrNoSession = errors.New("live view has no track session")
)

// MarkerSource supplies technician markers.
type MarkerSource interface {
	Markers(ctx context.Context) ([]fleet.Marker, error)
}

// Sink receives encoded frames keyed by job id.
type Sink interface {
	Broadcast(topic string, payload []byte)
}

// Presence forgets a technician's live position once their track ends.
type Presence interface {
	Remove(ctx context.Context, technicianID string) error
}

type Deps struct {
	Backend  tracking.Backend
	Broker   realtime.Broker
	Snapper  routing.Snapper
	Markers  MarkerSource
	Sink     Sink
	Presence Presence
}

type Options struct {
	ChannelPrefix string
	Route         routing.Options
}

// View binds one job's track session to the realtime channel, the route
// resolver and the frame sink. All mutation flows in through the session;
// intents only change presentation.
type View struct {
	jobID string
	deps  Deps
	opts  Options

	mu          sync.Mutex
	ready       bool
	err         error
	session     *tracking.Session
	resolver    *routing.Resolver
	ingestor    *realtime.Ingestor
	handle      *realtime.Handle
	stopObserve func()
	markers     []fleet.Marker
	showSnapped bool
	focus       int
	bounds      *geo.Bounds
	closed      bool

	emitMu    sync.Mutex
	dirty     chan struct{}
	pathDirty chan struct{}
	persist   chan tracking.LocationSample
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open resolves the job's track and starts following it. When the track
// cannot be established the returned view is in the error state and the
// error is returned alongside it.
func Open(ctx context.Context, deps Deps, opts Options, jobID string) (*View, error) {
	v := &View{
		jobID:       jobID,
		deps:        deps,
		opts:        opts,
		showSnapped: true,
		dirty:       make(chan struct{}, 1),
		pathDirty:   make(chan struct{}, 1),
		persist:     make(chan tracking.LocationSample, persistBuffer),
		done:        make(chan struct{}),
	}
	v.resolver = routing.NewResolver(deps.Snapper, opts.Route)
	v.resolver.OnUpdate(func(routing.Route) { v.markDirty() })

	v.wg.Add(1)
	go v.emitLoop()
	v.emit()

	session, err := tracking.ResolveForJob(ctx, deps.Backend, jobID)
	if err != nil {
		log.Printf("live view %s: %v", jobID, err)
		v.mu.Lock()
		v.err = err
		v.mu.Unlock()
		v.emit()
		return v, err
	}
	track := session.Track()

	if history, err := deps.Backend.Points(ctx, track.ID); err != nil {
		log.Printf("live view %s: load history for track %s: %v", jobID, track.ID, err)
	} else {
		session.Seed(history)
	}

	v.mu.Lock()
	v.session = session
	v.stopObserve = session.Observe(v.onChange)
	v.mu.Unlock()

	v.resolver.Update(session.Path())
	v.refreshMarkers(ctx)
	v.fitBounds()

	if session.Live() {
		v.connect(ctx, track)
	}

	v.wg.Add(1)
	go v.persistLoop(track.ID)

	v.mu.Lock()
	v.ready = true
	v.mu.Unlock()
	v.markDirty()
	return v, nil
}

// connect subscribes to the technician channel. Failures leave the view
// showing history only.
func (v *View) connect(ctx context.Context, track tracking.Track) {
	if v.deps.Broker == nil {
		return
	}
	conn, err := v.deps.Broker.Connect(ctx)
	if err != nil {
		log.Printf("live view %s: realtime connect: %v", v.jobID, err)
		return
	}
	ingestor := realtime.NewIngestor(conn, v.opts.ChannelPrefix)
	handle, err := ingestor.Subscribe(ctx, track.TechnicianID, v.ingest)
	if err != nil {
		log.Printf("live view %s: subscribe technician %q: %v", v.jobID, track.TechnicianID, err)
		_ = ingestor.Close()
		return
	}
	v.mu.Lock()
	v.ingestor = ingestor
	v.handle = handle
	v.mu.Unlock()
}

func (v *View) ingest(sample tracking.LocationSample) {
	v.mu.Lock()
	session := v.session
	v.mu.Unlock()
	if session == nil {
		return
	}
	if !session.Append(sample) {
		log.Printf("live view %s: sample rejected (seq=%q lat=%v lng=%v)", v.jobID, sample.SequenceID, sample.Latitude, sample.Longitude)
	}
}

// onChange runs on the delivery path and must not block.
func (v *View) onChange(change tracking.Change) {
	select {
	case v.persist <- change.Sample:
	default:
		log.Printf("live view %s: persist queue full, sample %q not stored", v.jobID, change.Sample.SequenceID)
	}
	select {
	case v.pathDirty <- struct{}{}:
	default:
	}
	v.markDirty()
}

func (v *View) markDirty() {
	select {
	case v.dirty <- struct{}{}:
	default:
	}
}

// emitLoop serializes resolver updates and coalesces frame emission.
func (v *View) emitLoop() {
	defer v.wg.Done()
	for {
		select {
		case <-v.done:
			return
		case <-v.pathDirty:
			v.mu.Lock()
			session := v.session
			v.mu.Unlock()
			if session != nil {
				v.resolver.Update(session.Path())
				v.fitBoundsIfUnset()
			}
		case <-v.dirty:
			v.emit()
		}
	}
}

// emit snapshots and broadcasts under emitMu so frames leave in state order.
func (v *View) emit() {
	if v.deps.Sink == nil {
		return
	}
	v.emitMu.Lock()
	defer v.emitMu.Unlock()
	payload, err := json.Marshal(v.Frame())
	if err != nil {
		log.Printf("live view %s: encode frame: %v", v.jobID, err)
		return
	}
	v.deps.Sink.Broadcast(v.jobID, payload)
}

func (v *View) persistLoop(trackID string) {
	defer v.wg.Done()
	for {
		select {
		case <-v.done:
			for {
				select {
				case sample := <-v.persist:
					v.store(trackID, sample)
				default:
					return
				}
			}
		case sample := <-v.persist:
			v.store(trackID, sample)
		}
	}
}

func (v *View) store(trackID string, sample tracking.LocationSample) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := v.deps.Backend.AddPoint(ctx, trackID, sample); err != nil {
		log.Printf("live view %s: persist sample %q: %v", v.jobID, sample.SequenceID, err)
	}
}

func (v *View) refreshMarkers(ctx context.Context) {
	if v.deps.Markers == nil {
		return
	}
	markers, err := v.deps.Markers.Markers(ctx)
	if err != nil {
		log.Printf("live view %s: load markers: %v", v.jobID, err)
		return
	}
	v.mu.Lock()
	v.markers = markers
	v.mu.Unlock()
}

func (v *View) fitBounds() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bounds = v.boundsLocked()
}

func (v *View) fitBoundsIfUnset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.bounds == nil {
		v.bounds = v.boundsLocked()
	}
}

func (v *View) boundsLocked() *geo.Bounds {
	var points []geo.Point
	if v.session != nil {
		points = append(points, v.session.Path()...)
	}
	points = append(points, fleet.Points(v.markers)...)
	b, ok := geo.BoundsOf(points...)
	if !ok {
		return nil
	}
	return &b
}

func (v *View) JobID() string {
	return v.jobID
}

// Session is nil when the view is in the error state.
func (v *View) Session() *tracking.Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Intent applies a presentation intent. Tracking state is never touched.
func (v *View) Intent(ctx context.Context, name string) error {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return ErrViewClosed
	}

	switch name {
	case IntentToggleSnapped:
		v.mu.Lock()
		v.showSnapped = !v.showSnapped
		v.mu.Unlock()
	case IntentRefocus:
		v.refreshMarkers(ctx)
		v.mu.Lock()
		v.bounds = v.boundsLocked()
		v.focus++
		v.mu.Unlock()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIntent, name)
	}
	v.markDirty()
	return nil
}

// End closes the track in the backend and then marks the session ended.
// Late samples are still accepted afterwards.
func (v *View) End(ctx context.Context) (tracking.Track, error) {
	session := v.Session()
	if session == nil {
		return tracking.Track{}, ErrNoSession
	}
	ended, err := v.deps.Backend.EndTrack(ctx, session.Track().ID)
	if err != nil {
		return tracking.Track{}, err
	}
	session.End(ended.EndedAt)
	if v.deps.Presence != nil {
		if err := v.deps.Presence.Remove(ctx, ended.TechnicianID); err != nil {
			log.Printf("live view %s: clear position of %s: %v", v.jobID, ended.TechnicianID, err)
		}
	}
	v.markDirty()
	return session.Track(), nil
}

// Close releases the subscription, stops the resolver and the workers.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		ingestor, handle, stop := v.ingestor, v.handle, v.stopObserve
		v.mu.Unlock()

		if ingestor != nil {
			ingestor.Unsubscribe(handle)
			if err := ingestor.Close(); err != nil {
				log.Printf("live view %s: close realtime: %v", v.jobID, err)
			}
		}
		if stop != nil {
			stop()
		}
		v.resolver.Close()
		close(v.done)
		v.wg.Wait()
	})
}

// Frame is a snapshot of the view.
func (v *View) Frame() Frame {
	route := v.resolver.Route()

	v.mu.Lock()
	defer v.mu.Unlock()

	var snap *tracking.Snapshot
	if v.session != nil {
		s := v.session.Snapshot()
		snap = &s
	}
	f := Frame{
		JobID:       v.jobID,
		State:       v.stateLocked(snap),
		Path:        []geo.Point{},
		Route:       route,
		ShowSnapped: v.showSnapped,
		Bounds:      v.bounds,
		Markers:     append([]fleet.Marker{}, v.markers...),
		Focus:       v.focus,
	}
	if f.State == StateError {
		f.Error = ErrorMessage
	}
	if snap != nil {
		f.TrackID = snap.Track.ID
		f.Status = snap.StatusLabel
		f.Path = snap.Path
		f.Stats = snap.Stats
		if len(f.Path) > 0 {
			start, end := f.Path[0], f.Path[len(f.Path)-1]
			f.Start, f.End = &start, &end
		}
	}
	f.Rendered = route.Rendered(v.showSnapped)
	if f.Rendered == nil {
		f.Rendered = []geo.Point{}
	}
	f.Features = features(f)
	return f
}

func (v *View) stateLocked(snap *tracking.Snapshot) State {
	switch {
	case v.err != nil:
		return StateError
	case !v.ready || snap == nil:
		return StateLoading
	case snap.Status == tracking.StatusEnded:
		return StateCompleted
	case len(snap.Path) == 0:
		return StateNoData
	default:
		return StateLive
	}
}
