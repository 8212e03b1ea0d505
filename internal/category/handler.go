package category

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

type nameRequest struct {
	StoreID string `json:"storeId"`
	Name    string `json:"name"`
}

func (h *Handler) RegisterProtectedRoutes(app fiber.Router) {
	app.Get("/api/v1/stores/:storeId/categories", h.listCategories)
	app.Post("/api/v1/stores/:storeId/categories", h.createCategory)
	app.Get("/api/v1/categories/:id", h.getCategory)
	app.Patch("/api/v1/categories/:id", h.renameCategory)
	app.Delete("/api/v1/categories/:id", h.deleteCategory)

	app.Get("/api/v1/stores/:storeId/collections", h.listCollections)
	app.Post("/api/v1/stores/:storeId/collections", h.createCollection)
	app.Get("/api/v1/collections/:id", h.getCollection)
	app.Patch("/api/v1/collections/:id", h.renameCollection)
	app.Delete("/api/v1/collections/:id", h.deleteCollection)
}

func parseName(c *fiber.Ctx) (nameRequest, error) {
	var payload nameRequest
	err := c.BodyParser(&payload)
	return payload, err
}

func (h *Handler) listCategories(c *fiber.Ctx) error {
	out, err := h.service.ListCategories(c.UserContext(), c.Params("storeId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) createCategory(c *fiber.Ctx) error {
	payload, err := parseName(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.CreateCategory(c.UserContext(), c.Params("storeId"), payload.Name)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *Handler) getCategory(c *fiber.Ctx) error {
	out, err := h.service.GetCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) renameCategory(c *fiber.Ctx) error {
	payload, err := parseName(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.RenameCategory(c.UserContext(), c.Params("id"), payload.Name)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) deleteCategory(c *fiber.Ctx) error {
	if err := h.service.DeleteCategory(c.UserContext(), c.Params("id")); err != nil {
		return apperror.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) listCollections(c *fiber.Ctx) error {
	out, err := h.service.ListCollections(c.UserContext(), c.Params("storeId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) createCollection(c *fiber.Ctx) error {
	payload, err := parseName(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.CreateCollection(c.UserContext(), c.Params("storeId"), payload.Name)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *Handler) getCollection(c *fiber.Ctx) error {
	out, err := h.service.GetCollection(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) renameCollection(c *fiber.Ctx) error {
	payload, err := parseName(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.RenameCollection(c.UserContext(), c.Params("id"), payload.Name)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) deleteCollection(c *fiber.Ctx) error {
	if err := h.service.DeleteCollection(c.UserContext(), c.Params("id")); err != nil {
		return apperror.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
