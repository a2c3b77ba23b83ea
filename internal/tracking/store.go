package tracking

import (
	"sort"

	"backend-livetrack/internal/shared/geo"
)

// PointStore keeps samples in arrival order. It is not safe for concurrent
// use; Session serialises access.
type PointStore struct {
	points []LocationSample
	seen   map[string]struct{}
}

func NewPointStore() *PointStore {
	return &PointStore{seen: map[string]struct{}{}}
}

// Add appends a sample unless its SequenceID was already stored.
func (s *PointStore) Add(sample LocationSample) bool {
	if sample.SequenceID != "" {
		if _, dup := s.seen[sample.SequenceID]; dup {
			return false
		}
		s.seen[sample.SequenceID] = struct{}{}
	}
	s.points = append(s.points, sample)
	return true
}

func (s *PointStore) Len() int { return len(s.points) }

// Sorted returns a copy ordered by RecordedAt. Equal timestamps keep arrival order.
func (s *PointStore) Sorted() []LocationSample {
	out := make([]LocationSample, len(s.points))
	copy(out, s.points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out
}

func (s *PointStore) Path() []geo.Point {
	return PathOf(s.Sorted())
}

// PathOf projects already sorted samples onto coordinates.
func PathOf(samples []LocationSample) []geo.Point {
	path := make([]geo.Point, len(samples))
	for i, sample := range samples {
		path[i] = sample.Point()
	}
	return path
}
