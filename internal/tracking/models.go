package tracking

import (
	"time"

	"backend-livetrack/internal/shared/geo"
)

type Job struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	TechnicianID string    `json:"technician_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Track is one recording run for a job. A zero EndedAt means the track is open.
type Track struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	TechnicianID string    `json:"technician_id"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at,omitempty"`
}

func (t Track) Open() bool { return t.EndedAt.IsZero() }

// LocationSample is a single GPS fix. RecordedAt is the capture time and the
// only ordering key; arrival order means nothing.
type LocationSample struct {
	Latitude       float64   `json:"lat" validate:"gte=-90,lte=90"`
	Longitude      float64   `json:"lng" validate:"gte=-180,lte=180"`
	SpeedKmh       float64   `json:"speed_kmh" validate:"gte=0"`
	BatteryPercent *int      `json:"battery_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	AccuracyMeters *float64  `json:"accuracy_m,omitempty" validate:"omitempty,gte=0"`
	RecordedAt     time.Time `json:"recorded_at"`
	SequenceID     string    `json:"sequence_id,omitempty"`
}

func (s LocationSample) Point() geo.Point {
	return geo.Point{Lat: s.Latitude, Lng: s.Longitude}
}

// DerivedStats is recomputed from the full sample set on every change.
type DerivedStats struct {
	PointCount            int       `json:"point_count"`
	TotalDistanceKm       float64   `json:"total_distance_km"`
	DurationSec           int64     `json:"duration_sec"`
	DurationLabel         string    `json:"duration_label"`
	ElapsedSec            int64     `json:"elapsed_sec"`
	ElapsedLabel          string    `json:"elapsed_label"`
	AvgSpeedKmh           float64   `json:"avg_speed_kmh"`
	MaxSpeedKmh           float64   `json:"max_speed_kmh"`
	CurrentBatteryPercent *int      `json:"current_battery_percent,omitempty"`
	CurrentAccuracyMeters *float64  `json:"current_accuracy_m,omitempty"`
	FirstSampleAt         time.Time `json:"first_sample_at"`
	LastSampleAt          time.Time `json:"last_sample_at"`
}

type Status int

const (
	StatusNotStarted Status = iota
	StatusActive
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusEnded:
		return "ended"
	default:
		return "not_started"
	}
}
