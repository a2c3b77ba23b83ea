package routing

import "backend-livetrack/internal/shared/geo"

type Mode string

const (
	ModeNone    Mode = "none"
	ModeRaw     Mode = "raw"
	ModeSnapped Mode = "snapped"
)

// Route is the current route representation. Snapped may lag Raw while a
// newer snapping pass is pending.
type Route struct {
	Mode    Mode        `json:"mode"`
	Raw     []geo.Point `json:"raw"`
	Snapped []geo.Point `json:"snapped,omitempty"`
}

// Rendered is the geometry to draw.
func (r Route) Rendered(showSnapped bool) []geo.Point {
	if showSnapped && r.Mode == ModeSnapped && len(r.Snapped) > 1 {
		return r.Snapped
	}
	if r.Mode == ModeNone {
		return nil
	}
	return r.Raw
}

func (r Route) clone() Route {
	return Route{
		Mode:    r.Mode,
		Raw:     append([]geo.Point(nil), r.Raw...),
		Snapped: append([]geo.Point(nil), r.Snapped...),
	}
}
