package geo

import "github.com/golang/geo/s2"

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HaversineKm returns the great-circle distance between two coordinates in
// kilometres. s2 evaluates the angle with the haversine formula.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

func Distance(a, b Point) float64 {
	return HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// PathLengthKm sums consecutive legs; zero for fewer than two points.
func PathLengthKm(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Bounds is a lat/lng box in degrees. West > East when the box crosses the
// antimeridian.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// BoundsOf returns the smallest box holding every point, false when empty.
func BoundsOf(points ...Point) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(points[0].Lat, points[0].Lng))
	for _, p := range points[1:] {
		rect = rect.AddPoint(s2.LatLngFromDegrees(p.Lat, p.Lng))
	}
	lo, hi := rect.Lo(), rect.Hi()
	return Bounds{
		South: lo.Lat.Degrees(),
		West:  lo.Lng.Degrees(),
		North: hi.Lat.Degrees(),
		East:  hi.Lng.Degrees(),
	}, true
}

func (b Bounds) Center() Point {
	east := b.East
	if b.West > east {
		east += 360
	}
	lng := (b.West + east) / 2
	if lng > 180 {
		lng -= 360
	}
	return Point{Lat: (b.South + b.North) / 2, Lng: lng}
}
