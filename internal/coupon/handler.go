package coupon

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
	app.Get("/api/v1/stores/:storeId/coupons", h.list)
	app.Post("/api/v1/stores/:storeId/coupons", h.create)
	app.Post("/api/v1/stores/:storeId/coupons/validate", h.validate)
	app.Get("/api/v1/stores/:storeId/coupons/code/:code", h.getByCode)
	app.Get("/api/v1/coupons/:id", h.get)
	app.Patch("/api/v1/coupons/:id", h.update)
	app.Delete("/api/v1/coupons/:id", h.remove)
	app.Post("/api/v1/coupons/:id/apply", h.apply)
}

func (h *Handler) list(c *fiber.Ctx) error {
	out, err := h.service.ListByStore(c.UserContext(), c.Params("storeId"), c.QueryBool("includeInactive"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) create(c *fiber.Ctx) error {
	payload := Coupon{IsActive: true}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	payload.StoreID = c.Params("storeId")
	out, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *Handler) validate(c *fiber.Ctx) error {
	payload := new(Cart)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	payload.StoreID = c.Params("storeId")
	out, err := h.service.Validate(c.UserContext(), *payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) getByCode(c *fiber.Ctx) error {
	out, err := h.service.GetByCode(c.UserContext(), c.Params("storeId"), c.Params("code"))
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
	deleted, err := h.service.Remove(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	if !deleted {
		return c.JSON(fiber.Map{"message": "coupon is used by orders and was deactivated"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) apply(c *fiber.Ctx) error {
	out, err := h.service.Apply(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}
