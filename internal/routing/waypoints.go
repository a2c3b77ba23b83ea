package routing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"backend-livetrack/internal/shared/geo"
)

// DefaultWaypointCap is the usual provider limit on intermediate waypoints.
const DefaultWaypointCap = 23

// Request is one directions query. Waypoints excludes origin and destination.
type Request struct {
	Origin      geo.Point   `json:"origin"`
	Destination geo.Point   `json:"destination"`
	Waypoints   []geo.Point `json:"waypoints"`
}

// Points returns origin, waypoints and destination in travel order.
func (r Request) Points() []geo.Point {
	out := make([]geo.Point, 0, len(r.Waypoints)+2)
	out = append(out, r.Origin)
	out = append(out, r.Waypoints...)
	return append(out, r.Destination)
}

// Key identifies the request shape for caching.
func (r Request) Key() string {
	var b strings.Builder
	for _, p := range r.Points() {
		fmt.Fprintf(&b, "%.6f,%.6f;", p.Lat, p.Lng)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Downsample keeps every ceil(n/cap)-th interior point starting at index 0,
// so the selection spans the whole path.
func Downsample(interior []geo.Point, limit int) []geo.Point {
	n := len(interior)
	if limit <= 0 || n == 0 {
		return nil
	}
	if n <= limit {
		return append([]geo.Point(nil), interior...)
	}
	stride := (n + limit - 1) / limit
	out := make([]geo.Point, 0, (n+stride-1)/stride)
	for i := 0; i < n; i += stride {
		out = append(out, interior[i])
	}
	return out
}

// BuildRequest returns false when the path is too short to snap.
func BuildRequest(path []geo.Point, limit int) (Request, bool) {
	if len(path) < 3 {
		return Request{}, false
	}
	return Request{
		Origin:      path[0],
		Destination: path[len(path)-1],
		Waypoints:   Downsample(path[1:len(path)-1], limit),
	}, true
}
