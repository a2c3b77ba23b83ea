package tracking

import (
	"context"
	"time"
)

// Backend is the track persistence collaborator.
type Backend interface {
	GetOpenTrackForJob(ctx context.Context, jobID string) (Track, error)
	CreateTrack(ctx context.Context, jobID string) (Track, error)
	EndTrack(ctx context.Context, trackID string) (Track, error)
	GetTrack(ctx context.Context, trackID string) (Track, error)
	ListJobs(ctx context.Context) ([]Job, error)
	AddPoint(ctx context.Context, trackID string, sample LocationSample) error
	Points(ctx context.Context, trackID string) ([]LocationSample, error)
}

// Summary computes stats over the stored points of a track.
func Summary(ctx context.Context, backend Backend, trackID string) (Track, *DerivedStats, error) {
	track, err := backend.GetTrack(ctx, trackID)
	if err != nil {
		return Track{}, nil, err
	}
	points, err := backend.Points(ctx, trackID)
	if err != nil {
		return Track{}, nil, err
	}
	return track, ComputeStats(points, track.StartedAt, track.EndedAt, time.Now()), nil
}
