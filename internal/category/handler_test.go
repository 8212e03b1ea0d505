package category

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/shop-admin-backend/internal/store"
)

func setupApp() *fiber.App {
	stores := store.NewService(store.NewInMemoryRepository(store.Store{ID: "s-1", Name: "Main", Domain: "main.test"}))
	app := fiber.New()
	NewHandler(NewService(NewInMemoryRepository(), stores)).RegisterProtectedRoutes(app)
	return app
}

func TestCategoryRoutes(t *testing.T) {
	app := setupApp()

	req := httptest.NewRequest("POST", "/api/v1/stores/s-1/categories", strings.NewReader(`{"name":"Cat food"}`))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 got %d", res.StatusCode)
	}
	var created Category
	json.NewDecoder(res.Body).Decode(&created)

	res2, _ := app.Test(httptest.NewRequest("GET", "/api/v1/stores/s-1/categories", nil))
	var list []Category
	json.NewDecoder(res2.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	req3 := httptest.NewRequest("POST", "/api/v1/stores/missing/collections", strings.NewReader(`{"name":"Summer"}`))
	req3.Header.Set("Content-Type", "application/json")
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown store, got %d", res3.StatusCode)
	}

	res4, _ := app.Test(httptest.NewRequest("DELETE", "/api/v1/categories/"+created.ID, nil))
	if res4.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 got %d", res4.StatusCode)
	}
}
