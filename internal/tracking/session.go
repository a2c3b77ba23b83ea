package tracking

import (
	"errors"
	"math"
	"sync"
	"time"

	"backend-livetrack/internal/shared/geo"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidSample is returned by Validate for out-of-range or incomplete fixes.
	ErrInvalidSample = errors.New("invalid location sample")

	// ErrSessionStarted is returned when activating a session twice.
	ErrSessionStarted = errors.New("session already started")
)

var validate = validator.New()

// Validate checks coordinate ranges and optional fields.
func (s LocationSample) Validate() error {
	if s.RecordedAt.IsZero() || math.IsNaN(s.Latitude) || math.IsNaN(s.Longitude) {
		return ErrInvalidSample
	}
	if err := validate.Struct(s); err != nil {
		return errors.Join(ErrInvalidSample, err)
	}
	return nil
}

// Change is delivered to observers after every accepted sample.
type Change struct {
	Sample LocationSample
	Path   []geo.Point
	Stats  *DerivedStats
}

// Session owns the samples of one track. Samples only enter through Append
// (or Seed when restoring history); everything handed out is a copy.
type Session struct {
	mu        sync.RWMutex
	jobID     string
	track     Track
	status    Status
	store     *PointStore
	observers map[int]func(Change)
	nextID    int
	now       func() time.Time
}

func NewSession(jobID string) *Session {
	return &Session{
		jobID:     jobID,
		store:     NewPointStore(),
		observers: map[int]func(Change){},
		now:       time.Now,
	}
}

// Activate binds the session to a backend track. A track that is already
// ended moves the session straight to Ended.
func (s *Session) Activate(track Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusNotStarted {
		return ErrSessionStarted
	}
	s.track = track
	if s.jobID == "" {
		s.jobID = track.JobID
	}
	if track.Open() {
		s.status = StatusActive
	} else {
		s.status = StatusEnded
	}
	return nil
}

// Seed restores stored history without notifying observers and returns the
// number of samples kept.
func (s *Session) Seed(samples []LocationSample) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := 0
	for _, sample := range samples {
		if sample.Validate() != nil {
			continue
		}
		if s.store.Add(sample) {
			kept++
		}
	}
	return kept
}

// Append stores a validated sample and notifies observers. Invalid and
// duplicate samples are dropped and reported as false. Samples arriving after
// End are kept but never reopen the session.
func (s *Session) Append(sample LocationSample) bool {
	if sample.Validate() != nil {
		return false
	}

	s.mu.Lock()
	if s.status == StatusNotStarted || !s.store.Add(sample) {
		s.mu.Unlock()
		return false
	}
	sorted := s.store.Sorted()
	change := Change{
		Sample: sample,
		Path:   PathOf(sorted),
		Stats:  ComputeStats(sorted, s.track.StartedAt, s.track.EndedAt, s.now()),
	}
	observers := make([]func(Change), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(change)
	}
	return true
}

// End marks the session ended at the given time. Only an active session can
// end; the first EndedAt wins.
func (s *Session) End(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return false
	}
	if at.IsZero() {
		at = s.now()
	}
	s.track.EndedAt = at
	s.status = StatusEnded
	return true
}

// Observe registers fn for future changes. The returned func removes it.
func (s *Session) Observe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Session) JobID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobID
}

func (s *Session) Track() Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.track
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Live is true only while the session is active.
func (s *Session) Live() bool {
	return s.Status() == StatusActive
}

func (s *Session) StatusLabel() string {
	return statusLabel(s.Status())
}

func statusLabel(status Status) string {
	if status == StatusActive {
		return "Live"
	}
	return "Completed"
}

// Snapshot is a consistent read of a session: Path and Stats come from
// the same sorted samples.
type Snapshot struct {
	Track       Track
	Status      Status
	StatusLabel string
	Path        []geo.Point
	Stats       *DerivedStats
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sorted := s.store.Sorted()
	return Snapshot{
		Track:       s.track,
		Status:      s.status,
		StatusLabel: statusLabel(s.status),
		Path:        PathOf(sorted),
		Stats:       ComputeStats(sorted, s.track.StartedAt, s.track.EndedAt, s.now()),
	}
}

// Stats returns nil until the first sample is stored.
func (s *Session) Stats() *DerivedStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeStats(s.store.Sorted(), s.track.StartedAt, s.track.EndedAt, s.now())
}

func (s *Session) Samples() []LocationSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Sorted()
}

func (s *Session) Path() []geo.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Path()
}

func (s *Session) PointCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Len()
}
