package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

const userLocal = "auth_user"

// bearerToken pulls the credential from the Authorization header.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// RequireAuth resolves the bearer token into an active user, rejecting the
// request otherwise. The user is stored in locals for handlers.
func RequireAuth(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return errUnauthorized(c, "missing bearer token")
		}

		userID, err := deps.Verifier.Verify(token)
		if err != nil {
			return errUnauthorized(c, "invalid or expired token")
		}

		user, err := deps.Users.GetByID(c.Context(), userID)
		if err != nil {
			return errUnauthorized(c, "unknown user")
		}
		if !user.IsActive {
			return errForbidden(c, "account inactive")
		}

		c.Locals(userLocal, user)
		return c.Next()
	}
}

// OptionalAuth resolves the bearer token when present but lets anonymous
// requests through. Discovery visibility widens for authenticated viewers.
func OptionalAuth(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}
		userID, err := deps.Verifier.Verify(token)
		if err != nil {
			return c.Next()
		}
		if user, err := deps.Users.GetByID(c.Context(), userID); err == nil && user.IsActive {
			c.Locals(userLocal, user)
		}
		return c.Next()
	}
}

// currentUser returns the authenticated user, if any.
func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals(userLocal).(*domain.User)
	return u
}

// viewerID returns the authenticated user's id or "" for anonymous viewers.
func viewerID(c *fiber.Ctx) string {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return ""
}
