package tracking

import (
	"backend-driveshare/internal/stream"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/trips/:id/positions", func(c *fiber.Ctx) error {
		var req stream.PositionSample
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		pos, err := svc.Ingest(c.Context(), c.Params("id"), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(pos)
	})

	r.Get("/trips/:id/positions", func(c *fiber.Ctx) error {
		positions, err := svc.Positions(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(positions)
	})

	r.Get("/trips/:id/positions/latest", func(c *fiber.Ctx) error {
		pos, err := svc.Latest(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(pos)
	})
}
