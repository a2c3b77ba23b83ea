package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"backend-livetrack/internal/tracking"
)

// EventLocationUpdated is the only event the ingestor acts on.
const EventLocationUpdated = "location.updated"

var (
	// ErrMalformedPayload is returned for payloads that are not a JSON object.
	ErrMalformedPayload = errors.New("malformed location payload")

	// ErrMissingCoordinates is returned when lat or lng is absent or not numeric.
	ErrMissingCoordinates = errors.New("location payload missing lat/lng")
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, errors.Join(ErrMalformedPayload, err)
	}
	return env, nil
}

// EncodeLocation wraps a sample in a location.updated envelope.
func EncodeLocation(s tracking.LocationSample) ([]byte, error) {
	data := map[string]any{
		"lat":         s.Latitude,
		"lng":         s.Longitude,
		"speed":       s.SpeedKmh,
		"recorded_at": s.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
	if s.BatteryPercent != nil {
		data["battery"] = *s.BatteryPercent
	}
	if s.AccuracyMeters != nil {
		data["accuracy"] = *s.AccuracyMeters
	}
	if s.SequenceID != "" {
		data["sequence_id"] = s.SequenceID
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: EventLocationUpdated, Data: raw})
}

// DecodeLocation coerces a raw location payload. Devices send numbers either
// as JSON numbers or strings, and timestamps as RFC3339 or unix seconds or
// milliseconds. A missing timestamp falls back to received. Range checks are
// left to LocationSample.Validate.
func DecodeLocation(data []byte, received time.Time) (tracking.LocationSample, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return tracking.LocationSample{}, ErrMalformedPayload
	}

	lat, okLat := number(pick(fields, "lat", "latitude"))
	lng, okLng := number(pick(fields, "lng", "lon", "longitude"))
	if !okLat || !okLng {
		return tracking.LocationSample{}, ErrMissingCoordinates
	}

	sample := tracking.LocationSample{Latitude: lat, Longitude: lng, RecordedAt: received}
	if speed, ok := number(pick(fields, "speed", "speed_kmh")); ok {
		sample.SpeedKmh = speed
	}
	if battery, ok := number(pick(fields, "battery", "battery_percent")); ok {
		b := int(math.Round(battery))
		sample.BatteryPercent = &b
	}
	if accuracy, ok := number(pick(fields, "accuracy", "accuracy_m")); ok {
		sample.AccuracyMeters = &accuracy
	}
	if at, ok := timestamp(pick(fields, "recorded_at", "timestamp")); ok {
		sample.RecordedAt = at
	}
	sample.SequenceID = identifier(pick(fields, "sequence_id"))
	return sample, nil
}

func pick(fields map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, k := range keys {
		if raw, ok := fields[k]; ok {
			return raw
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func number(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func timestamp(raw json.RawMessage) (time.Time, bool) {
	if isNull(raw) {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
			return t.UTC(), true
		}
	}
	epoch, ok := number(raw)
	if !ok || epoch <= 0 {
		return time.Time{}, false
	}
	if epoch > 1e12 {
		return time.UnixMilli(int64(epoch)), true
	}
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(frac*1e9)), true
}

func identifier(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(bytes.TrimSpace(raw))
}
