package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
)

const identityLocal = "identity"

// IdentityResolver turns an Authorization header into the acting user.
type IdentityResolver interface {
	ResolveBearerToken(ctx context.Context, header string) (*models.Identity, error)
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := resolver.ResolveBearerToken(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return models.RespondWithError(c, models.HTTPStatus(err), err)
		}
		setIdentity(c, identity)
		return c.Next()
	}
}

// OptionalAuth resolves the bearer token when one is sent. Requests without
// a usable token continue anonymously.
func OptionalAuth(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		identity, err := resolver.ResolveBearerToken(c.UserContext(), header)
		if err != nil {
			observability.Logger.DebugContext(c.UserContext(), "ignoring unusable bearer token on optional route")
			return c.Next()
		}
		setIdentity(c, identity)
		return c.Next()
	}
}

// RolesRequired rejects identities holding none of the allowed roles.
// It must run after AuthRequired.
func RolesRequired(allowed ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := IdentityFrom(c)
		if identity == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Authentication required"))
		}
		if !models.HasAnyRole(identity.Roles, allowed...) {
			return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError("Insufficient role"))
		}
		return c.Next()
	}
}

// IdentityFrom returns the identity resolved for this request, or nil.
func IdentityFrom(c *fiber.Ctx) *models.Identity {
	identity, _ := c.Locals(identityLocal).(*models.Identity)
	return identity
}

func setIdentity(c *fiber.Ctx, identity *models.Identity) {
	c.Locals(identityLocal, identity)
	c.Locals("userID", identity.UserID)
	c.SetUserContext(observability.WithUserID(c.UserContext(), identity.UserID))
}
