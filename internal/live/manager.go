package live

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"backend-livetrack/internal/tracking"
)

// ErrNotOpen is returned for jobs without an open view.
var ErrNotOpen = errors.New("no live view open for job")

// Manager keeps at most one view per job.
type Manager struct {
	deps Deps
	opts Options

	group singleflight.Group
	mu    sync.Mutex
	views map[string]*View
}

func NewManager(deps Deps, opts Options) *Manager {
	return &Manager{deps: deps, opts: opts, views: map[string]*View{}}
}

// Open returns the job's view, opening it on first use. Views that fail to
// establish a track are closed and returned with the error so callers can
// still render the error frame.
func (m *Manager) Open(ctx context.Context, jobID string) (*View, error) {
	if v, ok := m.Get(jobID); ok {
		return v, nil
	}
	res, err, _ := m.group.Do(jobID, func() (any, error) {
		if v, ok := m.Get(jobID); ok {
			return v, nil
		}
		v, err := Open(ctx, m.deps, m.opts, jobID)
		if err != nil {
			v.Close()
			return v, err
		}
		m.mu.Lock()
		m.views[jobID] = v
		m.mu.Unlock()
		return v, nil
	})
	v, _ := res.(*View)
	return v, err
}

func (m *Manager) Get(jobID string) (*View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[jobID]
	return v, ok
}

// Close tears down the job's view. It reports whether one was open.
func (m *Manager) Close(jobID string) bool {
	m.mu.Lock()
	v, ok := m.views[jobID]
	delete(m.views, jobID)
	m.mu.Unlock()
	if ok {
		v.Close()
	}
	return ok
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	views := m.views
	m.views = map[string]*View{}
	m.mu.Unlock()
	for _, v := range views {
		v.Close()
	}
}

func (m *Manager) End(ctx context.Context, jobID string) (tracking.Track, error) {
	v, ok := m.Get(jobID)
	if !ok {
		return tracking.Track{}, ErrNotOpen
	}
	return v.End(ctx)
}

// Intent applies a presentation intent to the job's view.
func (m *Manager) Intent(ctx context.Context, jobID, name string) error {
	v, ok := m.Get(jobID)
	if !ok {
		return ErrNotOpen
	}
	return v.Intent(ctx, name)
}
