package payment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
)

const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app fiber.Router) {
	app.Get("/api/v1/orders/:orderId/payment-transactions", h.list)
	app.Post("/api/v1/orders/:orderId/payment-transactions", h.create)
	app.Get("/api/v1/payment-transactions/:id", h.get)
	app.Patch("/api/v1/payment-transactions/:id", h.update)
	app.Delete("/api/v1/payment-transactions/:id", h.remove)
}

func (h *Handler) list(c *fiber.Ctx) error {
	out, err := h.service.ListByOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

// create answers 201 for a new transaction and 200 when the
// Idempotency-Key header matched an earlier request.
func (h *Handler) create(c *fiber.Ctx) error {
	payload := new(Transaction)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	payload.OrderID = c.Params("orderId")
	out, replayed, err := h.service.Create(c.UserContext(), *payload, c.Get(IdempotencyHeader))
	if err != nil {
		return apperror.Respond(c, err)
	}
	if replayed {
		return c.JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *Handler) get(c *fiber.Ctx) error {
	out, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) update(c *fiber.Ctx) error {
	payload := new(Patch)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.Update(c.UserContext(), c.Params("id"), *payload)
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
