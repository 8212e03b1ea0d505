// Package auth is the opaque JWT gate in front of /api/v1. It only decides
// allow or deny and exposes the caller id for logging; it carries no
// permission model.
package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
)

const localsKey = "user"

type actorKey struct{}

// New returns the JWT middleware. Paths that do not start with prefix pass
// through untouched.
func New(secret, prefix string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: []byte(secret),
		ContextKey: localsKey,
		Filter: func(c *fiber.Ctx) bool {
			return !strings.HasPrefix(c.Path(), prefix)
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		},
	})
}

// Actor reads the caller id from the verified token. Both "sub" and the
// older "user_id" claim are accepted.
func Actor(c *fiber.Ctx) (string, error) {
	tok, ok := c.Locals(localsKey).(*jwt.Token)
	if !ok || tok == nil {
		return "", fiber.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	for _, key := range []string{"sub", "user_id"} {
		raw, ok := claims[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return strconv.FormatInt(int64(v), 10), nil
		case int:
			return strconv.Itoa(v), nil
		}
	}
	return "", fiber.ErrUnauthorized
}

// Propagate copies the actor into the request's user context so services
// can log who triggered a state change.
func Propagate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if actor, err := Actor(c); err == nil {
			c.SetUserContext(WithActor(c.UserContext(), actor))
		}
		return c.Next()
	}
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by Propagate, or "anonymous".
func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return "anonymous"
}

// IssueToken signs an HS256 token for subject, used by operators and tests.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is empty")
	}
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
