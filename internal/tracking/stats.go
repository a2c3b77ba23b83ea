package tracking

import (
	"fmt"
	"time"

	"backend-livetrack/internal/shared/geo"
)

// ComputeStats derives trip statistics from samples sorted by RecordedAt.
// It returns nil when there are no samples. Elapsed runs from startedAt to
// endedAt, or to now while the track is open.
func ComputeStats(sorted []LocationSample, startedAt, endedAt, now time.Time) *DerivedStats {
	if len(sorted) == 0 {
		return nil
	}

	first, last := sorted[0], sorted[len(sorted)-1]
	stats := &DerivedStats{
		PointCount:    len(sorted),
		FirstSampleAt: first.RecordedAt,
		LastSampleAt:  last.RecordedAt,
	}

	var span time.Duration
	if len(sorted) > 1 {
		span = last.RecordedAt.Sub(first.RecordedAt)
	}
	stats.DurationSec = int64(span.Seconds())
	stats.DurationLabel = FormatDuration(span)

	if !startedAt.IsZero() {
		until := now
		if !endedAt.IsZero() {
			until = endedAt
		}
		elapsed := until.Sub(startedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		stats.ElapsedSec = int64(elapsed.Seconds())
		stats.ElapsedLabel = FormatDuration(elapsed)
	} else {
		stats.ElapsedLabel = FormatDuration(0)
	}

	var speedSum, maxReported, maxSegment float64
	var reported int
	for i, sample := range sorted {
		if sample.SpeedKmh > 0 {
			speedSum += sample.SpeedKmh
			reported++
			if sample.SpeedKmh > maxReported {
				maxReported = sample.SpeedKmh
			}
		}
		if sample.BatteryPercent != nil {
			battery := *sample.BatteryPercent
			stats.CurrentBatteryPercent = &battery
		}
		if sample.AccuracyMeters != nil {
			accuracy := *sample.AccuracyMeters
			stats.CurrentAccuracyMeters = &accuracy
		}
		if i == 0 {
			continue
		}
		leg := geo.Distance(sorted[i-1].Point(), sample.Point())
		stats.TotalDistanceKm += leg
		if dt := sample.RecordedAt.Sub(sorted[i-1].RecordedAt).Hours(); dt > 0 {
			if v := leg / dt; v > maxSegment {
				maxSegment = v
			}
		}
	}

	if reported > 0 {
		stats.AvgSpeedKmh = speedSum / float64(reported)
		stats.MaxSpeedKmh = maxReported
	} else {
		if hours := span.Hours(); hours > 0 {
			stats.AvgSpeedKmh = stats.TotalDistanceKm / hours
		}
		stats.MaxSpeedKmh = maxSegment
	}
	return stats
}

// FormatDuration renders the short labels shown in the stats panel:
// "45s", "4m 05s", "2h 03m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
