package tracking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBackend keeps jobs and tracks in process. It backs single-node
// deployments without Postgres and the tests of packages built on Backend.
type MemoryBackend struct {
	mu     sync.Mutex
	jobs   map[string]Job
	tracks map[string]Track
	points map[string][]LocationSample
	now    func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		jobs:   map[string]Job{},
		tracks: map[string]Track{},
		points: map[string][]LocationSample{},
		now:    time.Now,
	}
}

var _ Backend = (*MemoryBackend)(nil)

func (m *MemoryBackend) AddJob(job Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = m.now()
	}
	m.jobs[job.ID] = job
}

func (m *MemoryBackend) ListJobs(_ context.Context) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].ID < jobs[k].ID
		}
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	return jobs, nil
}

func (m *MemoryBackend) GetOpenTrackForJob(_ context.Context, jobID string) (Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.openTrack(jobID); ok {
		return t, nil
	}
	return Track{}, ErrNotFound
}

func (m *MemoryBackend) CreateTrack(_ context.Context, jobID string) (Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return Track{}, ErrNotFound
	}
	if _, open := m.openTrack(jobID); open {
		return Track{}, ErrConflict
	}
	t := Track{ID: uuid.NewString(), JobID: jobID, TechnicianID: job.TechnicianID, StartedAt: m.now()}
	m.tracks[t.ID] = t
	return t, nil
}

func (m *MemoryBackend) GetTrack(_ context.Context, trackID string) (Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tracks[trackID]
	if !ok {
		return Track{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryBackend) EndTrack(_ context.Context, trackID string) (Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tracks[trackID]
	if !ok {
		return Track{}, ErrNotFound
	}
	if t.EndedAt.IsZero() {
		t.EndedAt = m.now()
		m.tracks[trackID] = t
	}
	return t, nil
}

func (m *MemoryBackend) AddPoint(_ context.Context, trackID string, sample LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tracks[trackID]; !ok {
		return ErrNotFound
	}
	if sample.SequenceID != "" {
		for _, p := range m.points[trackID] {
			if p.SequenceID == sample.SequenceID {
				return nil
			}
		}
	}
	m.points[trackID] = append(m.points[trackID], sample)
	return nil
}

func (m *MemoryBackend) Points(_ context.Context, trackID string) ([]LocationSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	points := make([]LocationSample, len(m.points[trackID]))
	copy(points, m.points[trackID])
	sort.SliceStable(points, func(i, k int) bool { return points[i].RecordedAt.Before(points[k].RecordedAt) })
	return points, nil
}

func (m *MemoryBackend) openTrack(jobID string) (Track, bool) {
	for _, t := range m.tracks {
		if t.JobID == jobID && t.Open() {
			return t, true
		}
	}
	return Track{}, false
}
