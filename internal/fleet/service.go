package fleet

import (
	"context"
	"log"

	"backend-livetrack/internal/shared/geo"
)

// Positions reads live positions by technician id.
type Positions interface {
	Positions(ctx context.Context, ids ...string) (map[string]Position, error)
}

type Service struct {
	directory Directory
	positions Positions
}

// NewService merges directory entries with live positions. positions may be nil.
func NewService(directory Directory, positions Positions) *Service {
	return &Service{directory: directory, positions: positions}
}

// Markers lists every technician. A live position overrides the directory's
// last known one. Position lookup failures degrade to directory data.
func (s *Service) Markers(ctx context.Context) ([]Marker, error) {
	techs, err := s.directory.List(ctx)
	if err != nil {
		return nil, err
	}

	live := map[string]Position{}
	if s.positions != nil && len(techs) > 0 {
		ids := make([]string, len(techs))
		for i, t := range techs {
			ids[i] = t.ID
		}
		if got, err := s.positions.Positions(ctx, ids...); err != nil {
			log.Printf("fleet positions lookup failed: %v", err)
		} else {
			live = got
		}
	}

	markers := make([]Marker, 0, len(techs))
	for _, t := range techs {
		m := Marker{ID: t.ID, Name: t.Name, Status: t.Status, Position: t.Position}
		if p, ok := live[t.ID]; ok {
			point := p.Point
			m.Position = &point
			m.Online = p.Online
		}
		markers = append(markers, m)
	}
	return markers, nil
}

// Points returns marker positions, skipping markers without one.
func Points(markers []Marker) []geo.Point {
	out := make([]geo.Point, 0, len(markers))
	for _, m := range markers {
		if m.Position != nil {
			out = append(out, *m.Position)
		}
	}
	return out
}
