package tracking

import (
	"testing"
	"time"
)

func TestPointStoreSuppressesDuplicateSequence(t *testing.T) {
	s := NewPointStore()
	now := time.Now()
	if !s.Add(LocationSample{Latitude: 1, Longitude: 1, RecordedAt: now, SequenceID: "a"}) {
		t.Fatalf("first sample should be stored")
	}
	if s.Add(LocationSample{Latitude: 1, Longitude: 1, RecordedAt: now, SequenceID: "a"}) {
		t.Fatalf("duplicate sequence id should be dropped")
	}
	if !s.Add(LocationSample{Latitude: 1, Longitude: 1, RecordedAt: now}) || !s.Add(LocationSample{Latitude: 1, Longitude: 1, RecordedAt: now}) {
		t.Fatalf("samples without sequence ids are never deduplicated")
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", s.Len())
	}
}

func TestPointStoreSortedByRecordedAt(t *testing.T) {
	s := NewPointStore()
	base := time.Now()
	s.Add(LocationSample{Latitude: 3, RecordedAt: base.Add(2 * time.Second)})
	s.Add(LocationSample{Latitude: 1, RecordedAt: base})
	s.Add(LocationSample{Latitude: 2, RecordedAt: base.Add(time.Second)})
	s.Add(LocationSample{Latitude: 4, RecordedAt: base.Add(time.Second)})

	sorted := s.Sorted()
	got := []float64{sorted[0].Latitude, sorted[1].Latitude, sorted[2].Latitude, sorted[3].Latitude}
	want := []float64{1, 2, 4, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order %v", got)
		}
	}

	path := s.Path()
	if len(path) != 4 || path[0].Lat != 1 || path[3].Lat != 3 {
		t.Fatalf("unexpected path %v", path)
	}

	sorted[0].Latitude = 99
	if s.Sorted()[0].Latitude != 1 {
		t.Fatalf("sorted view must be a copy")
	}
}
