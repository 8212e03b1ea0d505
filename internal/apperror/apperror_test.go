package apperror

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := NotFound("currency %s not found", "c-1")
	wrapped := fmt.Errorf("create order: %w", base)

	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("expected not_found, got %s", KindOf(wrapped))
	}
	if !Is(wrapped, KindNotFound) {
		t.Fatalf("expected Is to match not_found")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("plain errors must be internal")
	}
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause, "load order")
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be unwrappable")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("message should include cause, got %q", err.Error())
	}
}

func TestRespond_Status(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{NotFound("x"), fiber.StatusNotFound},
		{Conflict("x"), fiber.StatusConflict},
		{BadRequest("x"), fiber.StatusBadRequest},
		{errors.New("x"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		app := fiber.New()
		err := tc.err
		app.Get("/", func(c *fiber.Ctx) error { return Respond(c, err) })

		res, e := app.Test(httptest.NewRequest("GET", "/", nil))
		if e != nil {
			t.Fatalf("request failed: %v", e)
		}
		if res.StatusCode != tc.status {
			t.Fatalf("expected %d got %d", tc.status, res.StatusCode)
		}
		b, _ := io.ReadAll(res.Body)
		if !strings.Contains(string(b), `"message"`) {
			t.Fatalf("body missing message: %s", string(b))
		}
	}
}
