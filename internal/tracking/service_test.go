package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

var errTrack = errors.New("track error")

func TestGetOpenTrackForJob(t *testing.T) {
	mock := newMock(t)
	started := time.Now().Add(-time.Minute)

	mock.ExpectQuery(`SELECT id, technician_id, started_at\s+FROM track_sessions\s+WHERE job_id=\$1 AND ended_at IS NULL`).
		WithArgs("J1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "technician_id", "started_at"}).AddRow("T1", "tech-1", started))

	svc := NewService(mock)
	track, err := svc.GetOpenTrackForJob(context.Background(), "J1")
	if err != nil {
		t.Fatalf("get open track: %v", err)
	}
	if track.ID != "T1" || track.JobID != "J1" || track.TechnicianID != "tech-1" || !track.Open() {
		t.Fatalf("unexpected track %+v", track)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOpenTrackForJobNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, technician_id, started_at`).
		WithArgs("J2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "technician_id", "started_at"}))

	_, err := NewService(mock).GetOpenTrackForJob(context.Background(), "J2")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTrack(t *testing.T) {
	mock := newMock(t)
	started := time.Now()

	mock.ExpectQuery(`INSERT INTO track_sessions`).
		WithArgs(pgxmock.AnyArg(), "J1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"technician_id", "started_at"}).AddRow("tech-1", started))

	track, err := NewService(mock).CreateTrack(context.Background(), "J1")
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	if track.ID == "" || track.TechnicianID != "tech-1" || !track.StartedAt.Equal(started) {
		t.Fatalf("unexpected track %+v", track)
	}
}

func TestCreateTrackConflict(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO track_sessions`).
		WithArgs(pgxmock.AnyArg(), "J1", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	_, err := NewService(mock).CreateTrack(context.Background(), "J1")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreateTrackError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO track_sessions`).
		WithArgs(pgxmock.AnyArg(), "J1", pgxmock.AnyArg()).
		WillReturnError(errTrack)

	_, err := NewService(mock).CreateTrack(context.Background(), "J1")
	if !errors.Is(err, errTrack) {
		t.Fatalf("expected raw error, got %v", err)
	}
}

func TestEndTrack(t *testing.T) {
	mock := newMock(t)
	started := time.Now().Add(-time.Hour)
	ended := time.Now()

	mock.ExpectQuery(`UPDATE track_sessions\s+SET ended_at = COALESCE\(ended_at, \$2\)`).
		WithArgs("T1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "job_id", "technician_id", "started_at", "ended_at"}).
			AddRow("T1", "J1", "tech-1", started, ended))

	track, err := NewService(mock).EndTrack(context.Background(), "T1")
	if err != nil {
		t.Fatalf("end track: %v", err)
	}
	if track.Open() || !track.EndedAt.Equal(ended) {
		t.Fatalf("expected ended track %+v", track)
	}
}

func TestGetTrack(t *testing.T) {
	mock := newMock(t)
	started := time.Now().Add(-time.Hour)

	mock.ExpectQuery(`SELECT id, job_id, technician_id, started_at, ended_at IS NOT NULL`).
		WithArgs("T1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "job_id", "technician_id", "started_at", "ended", "ended_at"}).
			AddRow("T1", "J1", "tech-1", started, false, started))

	track, err := NewService(mock).GetTrack(context.Background(), "T1")
	if err != nil {
		t.Fatalf("get track: %v", err)
	}
	if !track.Open() {
		t.Fatalf("open track should have zero EndedAt")
	}
}

func TestAddPoint(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO track_points`).
		WithArgs("T1", 79.8612, 6.9271, 12.0, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "seq-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := NewService(mock).AddPoint(context.Background(), "T1", LocationSample{
		Latitude: 6.9271, Longitude: 79.8612, SpeedKmh: 12, RecordedAt: time.Now(), SequenceID: "seq-1",
	})
	if err != nil {
		t.Fatalf("add point: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPoints(t *testing.T) {
	mock := newMock(t)
	at := time.Now()

	mock.ExpectQuery(`SELECT ST_Y\(location::geometry\), ST_X\(location::geometry\), COALESCE\(speed_kmh,0\)`).
		WithArgs("T1").
		WillReturnRows(pgxmock.NewRows([]string{"lat", "lng", "speed", "battery", "accuracy", "recorded_at", "sequence_id"}).
			AddRow(6.9271, 79.8612, 5.0, 80, -1.0, at, "s1").
			AddRow(6.9280, 79.8625, 0.0, -1, 3.5, at.Add(5*time.Second), ""))

	points, err := NewService(mock).Points(context.Background(), "T1")
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].BatteryPercent == nil || *points[0].BatteryPercent != 80 || points[0].AccuracyMeters != nil {
		t.Fatalf("unexpected optional fields on first point %+v", points[0])
	}
	if points[1].BatteryPercent != nil || points[1].AccuracyMeters == nil || *points[1].AccuracyMeters != 3.5 {
		t.Fatalf("unexpected optional fields on second point %+v", points[1])
	}
}

func TestPointsQueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT ST_Y\(location::geometry\)`).
		WithArgs("T1").
		WillReturnError(errTrack)

	if _, err := NewService(mock).Points(context.Background(), "T1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestListJobs(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, title, technician_id, status, created_at\s+FROM jobs`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "technician_id", "status", "created_at"}).
			AddRow("J2", "Replace compressor", "tech-2", "in_progress", time.Now()).
			AddRow("J1", "Inspect boiler", "tech-1", "assigned", time.Now().Add(-time.Hour)))

	jobs, err := NewService(mock).ListJobs(context.Background())
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "J2" || jobs[1].TechnicianID != "tech-1" {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
}

func TestListJobsError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, title`).WillReturnError(errTrack)

	if _, err := NewService(mock).ListJobs(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
