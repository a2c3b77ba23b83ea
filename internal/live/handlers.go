package live

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"backend-livetrack/internal/tracking"
)

type intentRequest struct {
	Intent string `json:"intent"`
}

// FrameCache holds the last frame broadcast for a job, including frames
// mirrored from views open on other nodes.
type FrameCache interface {
	Latest(topic string) ([]byte, bool)
}

// RegisterRoutes mounts the live view routes under a /jobs router. frames
// may be nil.
func RegisterRoutes(r fiber.Router, m *Manager, frames FrameCache) {
	r.Post("/:id/live", func(c *fiber.Ctx) error {
		v, err := m.Open(c.UserContext(), c.Params("id"))
		if err != nil {
			if v == nil {
				return fiber.NewError(fiber.StatusInternalServerError, ErrorMessage)
			}
			return c.Status(fiber.StatusBadGateway).JSON(v.Frame())
		}
		return c.JSON(v.Frame())
	})

	r.Get("/:id/live", func(c *fiber.Ctx) error {
		jobID := c.Params("id")
		if v, ok := m.Get(jobID); ok {
			return c.JSON(v.Frame())
		}
		if frames != nil {
			if frame, ok := frames.Latest(jobID); ok {
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Send(frame)
			}
		}
		return fiber.NewError(fiber.StatusNotFound, ErrNotOpen.Error())
	})

	r.Delete("/:id/live", func(c *fiber.Ctx) error {
		if !m.Close(c.Params("id")) {
			return fiber.NewError(fiber.StatusNotFound, ErrNotOpen.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/live/end", func(c *fiber.Ctx) error {
		jobID := c.Params("id")
		if _, err := m.End(c.UserContext(), jobID); err != nil {
			switch {
			case errors.Is(err, ErrNotOpen), errors.Is(err, tracking.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			case errors.Is(err, ErrNoSession):
				return fiber.NewError(fiber.StatusConflict, err.Error())
			default:
				return fiber.NewError(fiber.StatusBadGateway, "failed to end track")
			}
		}
		v, ok := m.Get(jobID)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, ErrNotOpen.Error())
		}
		return c.JSON(v.Frame())
	})

	r.Post("/:id/live/intents", func(c *fiber.Ctx) error {
		var req intentRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid intent body")
		}
		jobID := c.Params("id")
		if err := m.Intent(c.UserContext(), jobID, req.Intent); err != nil {
			switch {
			case errors.Is(err, ErrNotOpen):
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			case errors.Is(err, ErrUnknownIntent):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			default:
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
		}
		v, ok := m.Get(jobID)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, ErrNotOpen.Error())
		}
		return c.JSON(v.Frame())
	})
}
