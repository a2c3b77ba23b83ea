package tracking

import (
	"context"
	"time"

	"backend-livetrack/internal/db"

	"github.com/google/uuid"
)

// Service is the Postgres track backend.
type Service struct {
	db  db.Querier
	now func() time.Time
}

func NewService(db db.Querier) *Service {
	return &Service{db: db, now: time.Now}
}

var _ Backend = (*Service)(nil)

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, technician_id, status, created_at
		FROM jobs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.Title, &j.TechnicianID, &j.Status, &j.CreatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *Service) GetOpenTrackForJob(ctx context.Context, jobID string) (Track, error) {
	track := Track{JobID: jobID}
	row := s.db.QueryRow(ctx, `
		SELECT id, technician_id, started_at
		FROM track_sessions
		WHERE job_id=$1 AND ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1
	`, jobID)
	if err := row.Scan(&track.ID, &track.TechnicianID, &track.StartedAt); err != nil {
		return Track{}, classify(err)
	}
	return track, nil
}

// CreateTrack opens a track for the job's assigned technician. The partial
// unique index on open tracks turns a lost race into ErrConflict.
func (s *Service) CreateTrack(ctx context.Context, jobID string) (Track, error) {
	track := Track{ID: uuid.NewString(), JobID: jobID, StartedAt: s.now()}
	row := s.db.QueryRow(ctx, `
		INSERT INTO track_sessions (id, job_id, technician_id, started_at)
		SELECT $1, j.id, j.technician_id, $3
		FROM jobs j WHERE j.id=$2
		RETURNING technician_id, started_at
	`, track.ID, jobID, track.StartedAt)
	if err := row.Scan(&track.TechnicianID, &track.StartedAt); err != nil {
		return Track{}, classify(err)
	}
	return track, nil
}

func (s *Service) GetTrack(ctx context.Context, trackID string) (Track, error) {
	var (
		track   Track
		ended   bool
		endedAt time.Time
	)
	row := s.db.QueryRow(ctx, `
		SELECT id, job_id, technician_id, started_at, ended_at IS NOT NULL, COALESCE(ended_at, started_at)
		FROM track_sessions WHERE id=$1
	`, trackID)
	if err := row.Scan(&track.ID, &track.JobID, &track.TechnicianID, &track.StartedAt, &ended, &endedAt); err != nil {
		return Track{}, classify(err)
	}
	if ended {
		track.EndedAt = endedAt
	}
	return track, nil
}

// EndTrack stamps ended_at once; ending an ended track returns it unchanged.
func (s *Service) EndTrack(ctx context.Context, trackID string) (Track, error) {
	var track Track
	row := s.db.QueryRow(ctx, `
		UPDATE track_sessions
		SET ended_at = COALESCE(ended_at, $2)
		WHERE id=$1
		RETURNING id, job_id, technician_id, started_at, ended_at
	`, trackID, s.now())
	if err := row.Scan(&track.ID, &track.JobID, &track.TechnicianID, &track.StartedAt, &track.EndedAt); err != nil {
		return Track{}, classify(err)
	}
	return track, nil
}

func (s *Service) AddPoint(ctx context.Context, trackID string, sample LocationSample) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO track_points (session_id, location, speed_kmh, battery_percent, accuracy_m, recorded_at, sequence_id)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography, $4, $5, $6, $7, NULLIF($8, ''))
		ON CONFLICT (session_id, sequence_id) DO NOTHING
	`, trackID, sample.Longitude, sample.Latitude, sample.SpeedKmh, sample.BatteryPercent, sample.AccuracyMeters, sample.RecordedAt, sample.SequenceID)
	return err
}

func (s *Service) Points(ctx context.Context, trackID string) ([]LocationSample, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ST_Y(location::geometry), ST_X(location::geometry), COALESCE(speed_kmh,0),
		       COALESCE(battery_percent,-1), COALESCE(accuracy_m,-1), recorded_at, COALESCE(sequence_id,'')
		FROM track_points WHERE session_id=$1
		ORDER BY recorded_at
	`, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []LocationSample
	for rows.Next() {
		var (
			p        LocationSample
			battery  int
			accuracy float64
		)
		if err := rows.Scan(&p.Latitude, &p.Longitude, &p.SpeedKmh, &battery, &accuracy, &p.RecordedAt, &p.SequenceID); err != nil {
			return nil, err
		}
		if battery >= 0 {
			p.BatteryPercent = &battery
		}
		if accuracy >= 0 {
			p.AccuracyMeters = &accuracy
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func classify(err error) error {
	switch {
	case db.IsNoRows(err):
		return ErrNotFound
	case db.IsUniqueViolation(err):
		return ErrConflict
	default:
		return err
	}
}
