package refund

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app fiber.Router) {
	app.Get("/api/v1/orders/:orderId/refunds", h.listByOrder)
	app.Post("/api/v1/orders/:orderId/refunds", h.create)
	app.Get("/api/v1/stores/:storeId/refunds", h.listByStore)
	app.Get("/api/v1/stores/:storeId/refunds/statistics", h.statistics)
	app.Get("/api/v1/refunds/:id", h.get)
	app.Patch("/api/v1/refunds/:id", h.update)
	app.Delete("/api/v1/refunds/:id", h.remove)
	app.Post("/api/v1/refunds/:id/process", h.process)
	app.Post("/api/v1/refunds/:id/line-items", h.addLine)
	app.Patch("/api/v1/refund-line-items/:id", h.updateLine)
	app.Delete("/api/v1/refund-line-items/:id", h.removeLine)
}

func (h *Handler) listByOrder(c *fiber.Ctx) error {
	out, err := h.service.ListByOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) create(c *fiber.Ctx) error {
	payload := new(CreateInput)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	payload.OrderID = c.Params("orderId")
	out, err := h.service.Create(c.UserContext(), *payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *Handler) listByStore(c *fiber.Ctx) error {
	out, err := h.service.ListByStore(c.UserContext(), c.Params("storeId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

// statistics accepts optional RFC 3339 "from" and "to" query bounds.
func (h *Handler) statistics(c *fiber.Ctx) error {
	var bounds [2]*time.Time
	for i, name := range []string{"from", "to"} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid " + name + " date: " + err.Error()})
		}
		bounds[i] = &t
	}
	out, err := h.service.StatisticsByStore(c.UserContext(), c.Params("storeId"), bounds[0], bounds[1])
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) get(c *fiber.Ctx) error {
	out, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) update(c *fiber.Ctx) error {
	payload := map[string]any{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.Update(c.UserContext(), c.Params("id"), payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) remove(c *fiber.Ctx) error {
	if err := h.service.Remove(c.UserContext(), c.Params("id")); err != nil {
		return apperror.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) process(c *fiber.Ctx) error {
	out, err := h.service.Process(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) addLine(c *fiber.Ctx) error {
	payload := new(LineInput)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.AddLineItem(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *Handler) updateLine(c *fiber.Ctx) error {
	payload := struct {
		Restocked *bool `json:"restocked"`
	}{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.Restocked == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "restocked is required"})
	}
	out, err := h.service.UpdateLineItem(c.UserContext(), c.Params("id"), *payload.Restocked)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) removeLine(c *fiber.Ctx) error {
	out, err := h.service.RemoveLineItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}
