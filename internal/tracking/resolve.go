package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ResolveForJob returns an active session for the job's open track, creating
// the track when none exists. Losing a creation race to another caller is
// recovered by fetching the winner's track.
func ResolveForJob(ctx context.Context, backend Backend, jobID string) (*Session, error) {
	track, err := resolveTrack(ctx, backend, jobID)
	if err != nil {
		return nil, err
	}
	session := NewSession(jobID)
	if err := session.Activate(track); err != nil {
		return nil, err
	}
	return session, nil
}

func resolveTrack(ctx context.Context, backend Backend, jobID string) (Track, error) {
	track, fetchErr := backend.GetOpenTrackForJob(ctx, jobID)
	if fetchErr == nil {
		return track, nil
	}
	if !errors.Is(fetchErr, ErrNotFound) {
		log.Printf("fetch open track for job %s: %v", jobID, fetchErr)
	}

	track, createErr := backend.CreateTrack(ctx, jobID)
	if createErr == nil {
		return track, nil
	}
	if errors.Is(createErr, ErrConflict) {
		track, refetchErr := backend.GetOpenTrackForJob(ctx, jobID)
		if refetchErr == nil {
			return track, nil
		}
		createErr = errors.Join(createErr, refetchErr)
	}
	return Track{}, fmt.Errorf("%w: job %s: %w", ErrResolveFailed, jobID, errors.Join(fetchErr, createErr))
}
