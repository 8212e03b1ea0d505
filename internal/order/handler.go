package order

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(app fiber.Router) {
	app.Get("/api/v1/stores/:storeId/orders", h.list)
	app.Post("/api/v1/stores/:storeId/orders", h.create)
	app.Get("/api/v1/orders/:id", h.get)
	app.Patch("/api/v1/orders/:id", h.update)
	app.Patch("/api/v1/orders/:id/status", h.updateStatus)
	app.Delete("/api/v1/orders/:id", h.remove)
}

func (h *Handler) list(c *fiber.Ctx) error {
	f := Filter{
		StoreID:           c.Params("storeId"),
		FinancialStatus:   FinancialStatus(c.Query("financialStatus")),
		FulfillmentStatus: FulfillmentStatus(c.Query("fulfillmentStatus")),
		Limit:             c.QueryInt("limit"),
		Offset:            c.QueryInt("offset"),
	}
	out, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) create(c *fiber.Ctx) error {
	payload := new(Order)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	payload.StoreID = c.Params("storeId")
	out, err := h.service.Create(c.UserContext(), *payload)
	if err != nil {
		return apperror.Respond(c, err)
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

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	payload := new(StatusPatch)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), *payload)
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
