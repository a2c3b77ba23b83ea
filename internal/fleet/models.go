package fleet

import "backend-livetrack/internal/shared/geo"

type Technician struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Status   string     `json:"status"`
	Position *geo.Point `json:"position,omitempty"`
}

// Marker is a point-in-time technician marker for the map.
type Marker struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Position *geo.Point `json:"position,omitempty"`
	Status   string     `json:"status"`
	Online   bool       `json:"online"`
}

type Position struct {
	Point  geo.Point `json:"position"`
	Online bool      `json:"online"`
}
