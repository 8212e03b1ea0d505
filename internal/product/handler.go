package product

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
	app.Get("/api/v1/stores/:storeId/products", h.listProducts)
	app.Post("/api/v1/stores/:storeId/products", h.createProduct)
	app.Get("/api/v1/products/:id", h.getProduct)
	app.Patch("/api/v1/products/:id", h.updateProduct)
	app.Delete("/api/v1/products/:id", h.deleteProduct)

	app.Get("/api/v1/products/:id/variants", h.listVariants)
	app.Post("/api/v1/products/:id/variants", h.createVariant)
	app.Get("/api/v1/variants/:id", h.getVariant)
	app.Patch("/api/v1/variants/:id", h.updateVariant)
	app.Delete("/api/v1/variants/:id", h.deleteVariant)
	app.Put("/api/v1/variants/:id/prices", h.setPrice)
}

func (h *Handler) listProducts(c *fiber.Ctx) error {
	out, err := h.service.ListProducts(c.UserContext(), c.Params("storeId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	payload := new(Product)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	payload.StoreID = c.Params("storeId")
	out, err := h.service.CreateProduct(c.UserContext(), *payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	out, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	payload := new(ProductPatch)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.UpdateProduct(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return apperror.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) listVariants(c *fiber.Ctx) error {
	out, err := h.service.ListVariants(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) createVariant(c *fiber.Ctx) error {
	payload := new(Variant)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	payload.ProductID = c.Params("id")
	out, err := h.service.CreateVariant(c.UserContext(), *payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *Handler) getVariant(c *fiber.Ctx) error {
	out, err := h.service.GetVariant(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) updateVariant(c *fiber.Ctx) error {
	payload := new(VariantPatch)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.UpdateVariant(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) deleteVariant(c *fiber.Ctx) error {
	if err := h.service.DeleteVariant(c.UserContext(), c.Params("id")); err != nil {
		return apperror.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) setPrice(c *fiber.Ctx) error {
	payload := new(Price)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	out, err := h.service.SetPrice(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(out)
}
