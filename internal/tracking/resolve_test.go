package tracking

import (
	"context"
	"errors"
	"testing"
)

// scriptedBackend wraps MemoryBackend with call counters and injected errors.
type scriptedBackend struct {
	*MemoryBackend
	fetchCalls  int
	createCalls int
	fetchErrs   []error
	createErr   error
	onCreate    func()
}

func (b *scriptedBackend) GetOpenTrackForJob(ctx context.Context, jobID string) (Track, error) {
	b.fetchCalls++
	if len(b.fetchErrs) > 0 {
		err := b.fetchErrs[0]
		b.fetchErrs = b.fetchErrs[1:]
		if err != nil {
			return Track{}, err
		}
	}
	return b.MemoryBackend.GetOpenTrackForJob(ctx, jobID)
}

func (b *scriptedBackend) CreateTrack(ctx context.Context, jobID string) (Track, error) {
	b.createCalls++
	if b.onCreate != nil {
		b.onCreate()
	}
	if b.createErr != nil {
		return Track{}, b.createErr
	}
	return b.MemoryBackend.CreateTrack(ctx, jobID)
}

func newScripted() *scriptedBackend {
	mem := NewMemoryBackend()
	mem.AddJob(Job{ID: "J1", TechnicianID: "tech-7"})
	return &scriptedBackend{MemoryBackend: mem}
}

var errNetwork = errors.New("network down")

func TestResolveReturnsExistingTrack(t *testing.T) {
	b := newScripted()
	existing, _ := b.MemoryBackend.CreateTrack(context.Background(), "J1")

	session, err := ResolveForJob(context.Background(), b, "J1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if session.Track().ID != existing.ID {
		t.Fatalf("expected existing track")
	}
	if b.createCalls != 0 {
		t.Fatalf("create must not be called when a track exists")
	}
	if !session.Live() {
		t.Fatalf("resolved session should be active")
	}
}

func TestResolveCreatesOnce(t *testing.T) {
	b := newScripted()
	session, err := ResolveForJob(context.Background(), b, "J1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.createCalls != 1 {
		t.Fatalf("expected exactly one create, got %d", b.createCalls)
	}
	track := session.Track()
	if track.TechnicianID != "tech-7" || track.StartedAt.IsZero() || session.PointCount() != 0 {
		t.Fatalf("unexpected new track %+v", track)
	}
}

func TestResolveRecoversFromLostRace(t *testing.T) {
	b := newScripted()
	var winner Track
	// another client opens the track between our fetch and our create
	b.onCreate = func() {
		winner, _ = b.MemoryBackend.CreateTrack(context.Background(), "J1")
	}

	session, err := ResolveForJob(context.Background(), b, "J1")
	if err != nil {
		t.Fatalf("lost race must not surface an error: %v", err)
	}
	if session.Track().ID != winner.ID {
		t.Fatalf("expected the winning track")
	}
	if b.fetchCalls != 2 || b.createCalls != 1 {
		t.Fatalf("expected fetch, create, fetch; got %d fetches %d creates", b.fetchCalls, b.createCalls)
	}
}

func TestResolveCreatesAfterFetchFailure(t *testing.T) {
	b := newScripted()
	b.fetchErrs = []error{errNetwork}

	if _, err := ResolveForJob(context.Background(), b, "J1"); err != nil {
		t.Fatalf("create success should recover a failed fetch: %v", err)
	}
}

func TestResolveTerminalFailure(t *testing.T) {
	b := newScripted()
	b.fetchErrs = []error{errNetwork}
	b.createErr = errNetwork

	_, err := ResolveForJob(context.Background(), b, "J1")
	if !errors.Is(err, ErrResolveFailed) {
		t.Fatalf("expected ErrResolveFailed, got %v", err)
	}
	if !errors.Is(err, errNetwork) {
		t.Fatalf("cause should be wrapped")
	}
}

func TestResolveConflictThenFetchFails(t *testing.T) {
	b := newScripted()
	b.fetchErrs = []error{ErrNotFound, errNetwork}
	b.createErr = ErrConflict

	_, err := ResolveForJob(context.Background(), b, "J1")
	if !errors.Is(err, ErrResolveFailed) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected terminal failure wrapping conflict, got %v", err)
	}
}

func TestResolveUnknownJob(t *testing.T) {
	b := newScripted()
	if _, err := ResolveForJob(context.Background(), b, "missing"); !errors.Is(err, ErrResolveFailed) {
		t.Fatalf("expected failure for unknown job, got %v", err)
	}
}
