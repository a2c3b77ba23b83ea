package tracking

import (
	"errors"

	"backend-livetrack/internal/shared/page"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc Backend) {
	r.Get("/jobs", func(c *fiber.Ctx) error {
		jobs, err := svc.ListJobs(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(page.Of(jobs, page.Parse(c.Query("page"), c.Query("size"))))
	})

	r.Get("/tracks/:id/points", func(c *fiber.Ctx) error {
		points, err := svc.Points(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(page.Of(points, page.Parse(c.Query("page"), c.Query("size"))))
	})

	r.Get("/tracks/:id/summary", func(c *fiber.Ctx) error {
		track, stats, err := Summary(c.Context(), svc, c.Params("id"))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "track not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"track": track, "stats": stats})
	})
}
