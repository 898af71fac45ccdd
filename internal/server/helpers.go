package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Joseph-Bethune/Gabble-Live/internal/auth"
	"github.com/Joseph-Bethune/Gabble-Live/internal/middleware"
	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
)

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.HTTPStatus(err), err)
}

// parseBody decodes a JSON body into out. A missing body is a validation error.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return models.NewValidationError("Request is missing body data")
	}
	if err := c.BodyParser(out); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// actingUserID returns the id of the resolved identity, or "".
func actingUserID(c *fiber.Ctx) string {
	if identity := middleware.IdentityFrom(c); identity != nil {
		return identity.UserID
	}
	return ""
}

func (s *Server) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.authConfig.RefreshTTL / time.Second),
		HTTPOnly: true,
		Secure:   s.authConfig.SecureCookies,
		SameSite: s.authConfig.CookieSameSite(),
	})
}

func (s *Server) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.RefreshCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.authConfig.SecureCookies,
		SameSite: s.authConfig.CookieSameSite(),
	})
}
