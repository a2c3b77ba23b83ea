package fleet

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"backend-livetrack/internal/shared/geo"
)

// Nearby finds technicians around a point.
type Nearby interface {
	Nearby(ctx context.Context, center geo.Point, radiusKm float64) ([]string, error)
}

// RegisterRoutes mounts the marker routes. nearby may be nil.
func RegisterRoutes(r fiber.Router, svc *Service, nearby Nearby) {
	r.Get("/", func(c *fiber.Ctx) error {
		markers, err := svc.Markers(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to load technicians")
		}
		return c.JSON(markers)
	})

	r.Get("/nearby", func(c *fiber.Ctx) error {
		if nearby == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "positions unavailable")
		}
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid lat/lng")
		}
		radius := 5.0
		if raw := c.Query("radius_km"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid radius_km")
			}
			radius = v
		}
		ids, err := nearby.Nearby(c.UserContext(), geo.Point{Lat: lat, Lng: lng}, radius)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to query positions")
		}
		return c.JSON(fiber.Map{"technicians": ids})
	})
}
