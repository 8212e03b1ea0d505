package currency

import (
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
	app.Get("/api/v1/currencies", h.list)
	app.Post("/api/v1/currencies", h.create)
	app.Get("/api/v1/currencies/code/:code", h.getByCode)
	app.Get("/api/v1/currencies/:id", h.get)
	app.Patch("/api/v1/currencies/:id", h.update)
	app.Delete("/api/v1/currencies/:id", h.remove)
}

func (h *Handler) list(c *fiber.Ctx) error {
	out, err := h.service.List(c.UserContext(), c.QueryBool("includeInactive", false))
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

func (h *Handler) getByCode(c *fiber.Ctx) error {
	out, err := h.service.GetByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) create(c *fiber.Ctx) error {
	payload := Currency{IsActive: true, DecimalPlaces: 2}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
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
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return apperror.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
