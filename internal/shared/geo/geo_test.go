package geo

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := HaversineKm(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100 || d > 140 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestDistanceSymmetricAndZero(t *testing.T) {
	pairs := [][2]Point{
		{{Lat: 6.9271, Lng: 79.8612}, {Lat: 6.9290, Lng: 79.8650}},
		{{Lat: -89.9, Lng: -179.9}, {Lat: 89.9, Lng: 179.9}},
		{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 180}},
		{{Lat: 51.5, Lng: -0.12}, {Lat: 40.71, Lng: -74.0}},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		if math.Abs(Distance(a, b)-Distance(b, a)) > 1e-9 {
			t.Fatalf("distance not symmetric for %v %v", a, b)
		}
		if Distance(a, a) != 0 {
			t.Fatalf("distance to self not zero for %v", a)
		}
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// quarter of the equator
	d := Distance(Point{Lat: 0, Lng: 0}, Point{Lat: 0, Lng: 90})
	want := math.Pi / 2 * EarthRadiusKm
	if math.Abs(d-want) > 1e-6 {
		t.Fatalf("expected %v got %v", want, d)
	}
}

func TestPathLengthKm(t *testing.T) {
	if PathLengthKm(nil) != 0 {
		t.Fatalf("empty path should be zero")
	}
	if PathLengthKm([]Point{{Lat: 1, Lng: 1}}) != 0 {
		t.Fatalf("single point path should be zero")
	}

	path := []Point{
		{Lat: 6.9271, Lng: 79.8612},
		{Lat: 6.9280, Lng: 79.8625},
		{Lat: 6.9290, Lng: 79.8650},
		{Lat: 6.9350, Lng: 79.8700},
	}
	forward := PathLengthKm(path)
	if forward <= 0 {
		t.Fatalf("expected positive length")
	}

	reversed := make([]Point, len(path))
	for i, p := range path {
		reversed[len(path)-1-i] = p
	}
	if math.Abs(forward-PathLengthKm(reversed)) > 1e-9 {
		t.Fatalf("reverse path length differs: %v vs %v", forward, PathLengthKm(reversed))
	}

	legs := Distance(path[0], path[1]) + Distance(path[1], path[2]) + Distance(path[2], path[3])
	if math.Abs(forward-legs) > 1e-12 {
		t.Fatalf("path length should equal sum of legs")
	}
}

func TestBoundsOf(t *testing.T) {
	if _, ok := BoundsOf(); ok {
		t.Fatalf("expected no bounds for empty input")
	}

	b, ok := BoundsOf(Point{Lat: 6.92, Lng: 79.86}, Point{Lat: 6.95, Lng: 79.84}, Point{Lat: 6.90, Lng: 79.90})
	if !ok {
		t.Fatalf("expected bounds")
	}
	const eps = 1e-9
	if math.Abs(b.South-6.90) > eps || math.Abs(b.North-6.95) > eps {
		t.Fatalf("unexpected latitude bounds %+v", b)
	}
	if math.Abs(b.West-79.84) > eps || math.Abs(b.East-79.90) > eps {
		t.Fatalf("unexpected longitude bounds %+v", b)
	}
	c := b.Center()
	if math.Abs(c.Lat-6.925) > eps || math.Abs(c.Lng-79.87) > eps {
		t.Fatalf("unexpected center %+v", c)
	}
}

func TestBoundsAcrossAntimeridian(t *testing.T) {
	b, _ := BoundsOf(Point{Lat: 0, Lng: 179}, Point{Lat: 1, Lng: -179})
	if b.West <= b.East {
		t.Fatalf("expected wrapped box, got %+v", b)
	}
	c := b.Center()
	if math.Abs(math.Abs(c.Lng)-180) > 1e-9 {
		t.Fatalf("expected center on antimeridian, got %+v", c)
	}
}
