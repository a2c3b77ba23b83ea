package live

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"backend-livetrack/internal/fleet"
	"backend-livetrack/internal/routing"
	"backend-livetrack/internal/shared/geo"
	"backend-livetrack/internal/tracking"
)

type State string

const (
	StateLoading   State = "loading"
	StateNoData    State = "no_data"
	StateError     State = "error"
	StateLive      State = "live"
	StateCompleted State = "completed"
)

// ErrorMessage is shown when no track could be established for a job.
const ErrorMessage = "Failed to load tracking data"

// Frame is everything the map renders for one job.
type Frame struct {
	JobID       string                     `json:"job_id"`
	TrackID     string                     `json:"track_id,omitempty"`
	State       State                      `json:"state"`
	Status      string                     `json:"status,omitempty"`
	Error       string                     `json:"error,omitempty"`
	Path        []geo.Point                `json:"path"`
	Stats       *tracking.DerivedStats     `json:"stats"`
	Route       routing.Route              `json:"route"`
	Rendered    []geo.Point                `json:"rendered"`
	ShowSnapped bool                       `json:"show_snapped"`
	Start       *geo.Point                 `json:"start,omitempty"`
	End         *geo.Point                 `json:"end,omitempty"`
	Bounds      *geo.Bounds                `json:"bounds,omitempty"`
	Markers     []fleet.Marker             `json:"markers"`
	Focus       int                        `json:"focus"`
	Features    *geojson.FeatureCollection `json:"features"`
}

func lineString(points []geo.Point) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lng, p.Lat}
	}
	return ls
}

func pointFeature(p geo.Point, kind string) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{p.Lng, p.Lat})
	f.Properties["kind"] = kind
	return f
}

// features renders the frame as GeoJSON: the drawn route, start and end pins,
// then one point per positioned marker.
func features(f Frame) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(f.Rendered) > 1 {
		route := geojson.NewFeature(lineString(f.Rendered))
		route.Properties["kind"] = "route"
		route.Properties["mode"] = string(f.Route.Mode)
		fc.Append(route)
	}
	if f.Start != nil {
		fc.Append(pointFeature(*f.Start, "start"))
	}
	if f.End != nil {
		fc.Append(pointFeature(*f.End, "end"))
	}
	for _, m := range f.Markers {
		if m.Position == nil {
			continue
		}
		marker := pointFeature(*m.Position, "technician")
		marker.ID = m.ID
		marker.Properties["name"] = m.Name
		marker.Properties["status"] = m.Status
		marker.Properties["online"] = m.Online
		fc.Append(marker)
	}
	return fc
}
