package product

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestProductRoutes_CreateAndFetch(t *testing.T) {
	app := fiber.New()
	NewHandler(newService(t)).RegisterProtectedRoutes(app)

	req := httptest.NewRequest("POST", "/api/v1/stores/s-1/products", strings.NewReader(`{"title":"Scratcher","allowBackorder":true}`))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 got %d", res.StatusCode)
	}
	var p Product
	json.NewDecoder(res.Body).Decode(&p)

	req2 := httptest.NewRequest("POST", "/api/v1/products/"+p.ID+"/variants",
		strings.NewReader(`{"sku":"SCR-1","inventoryQuantity":3,"prices":[{"currencyId":"usd","price":"19.90"}]}`))
	req2.Header.Set("Content-Type", "application/json")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 for variant got %d", res2.StatusCode)
	}

	res3, _ := app.Test(httptest.NewRequest("GET", "/api/v1/products/"+p.ID, nil))
	var got Product
	json.NewDecoder(res3.Body).Decode(&got)
	if len(got.Variants) != 1 || got.Variants[0].InventoryQuantity != 3 {
		t.Fatalf("unexpected product %+v", got)
	}

	res4, _ := app.Test(httptest.NewRequest("GET", "/api/v1/variants/missing", nil))
	if res4.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 got %d", res4.StatusCode)
	}
}
