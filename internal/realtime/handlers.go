package realtime

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"backend-livetrack/internal/shared/geo"
)

// PositionRecorder keeps the last reported position per technician.
type PositionRecorder interface {
	Record(ctx context.Context, technicianID string, at geo.Point) error
}

// RegisterRoutes mounts the device ingest route. positions may be nil.
func RegisterRoutes(r fiber.Router, broker Broker, prefix string, positions PositionRecorder) {
	r.Post("/:id/locations", func(c *fiber.Ctx) error {
		technicianID := c.Params("id")
		sample, err := DecodeLocation(c.Body(), time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := sample.Validate(); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		payload, err := EncodeLocation(sample)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to encode location")
		}
		channel := ChannelName(prefix, technicianID)
		if err := broker.Publish(c.UserContext(), channel, payload); err != nil {
			log.Printf("realtime publish %s: %v", channel, err)
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fiber.NewError(fiber.StatusBadGateway, "failed to publish location")
		}

		if positions != nil {
			if err := positions.Record(c.UserContext(), technicianID, sample.Point()); err != nil {
				log.Printf("record position %s: %v", technicianID, err)
			}
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"channel": channel})
	})
}
