package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Joseph-Bethune/Gabble-Live/internal/auth"
	"github.com/Joseph-Bethune/Gabble-Live/internal/service"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// email accepts the older "username" field as an alias.
func (r credentialsRequest) email() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

func sessionBody(session *service.Session, message string) fiber.Map {
	return fiber.Map{
		"success":     true,
		"message":     message,
		"userId":      session.UserID,
		"displayName": session.DisplayName,
		"roles":       session.Roles,
		"accessToken": session.AccessToken,
	}
}

// Register handles POST /users/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	session, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Email:       req.email(),
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.setRefreshCookie(c, session.RefreshToken)
	return c.Status(fiber.StatusCreated).JSON(sessionBody(session, "New user "+session.DisplayName+" created."))
}

// Login handles POST /users/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	session, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Email:    req.email(),
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.setRefreshCookie(c, session.RefreshToken)
	return c.JSON(sessionBody(session, session.DisplayName+" is logged in."))
}

// RefreshLogin handles GET and POST /users/refreshLogin
func (s *Server) RefreshLogin(c *fiber.Ctx) error {
	session, err := s.authService.RefreshAccessToken(c.UserContext(), c.Cookies(auth.RefreshCookieName))
	if err != nil {
		if c.Cookies(auth.RefreshCookieName) != "" {
			s.clearRefreshCookie(c)
		}
		return respondError(c, err)
	}

	s.setRefreshCookie(c, session.RefreshToken)
	return c.JSON(sessionBody(session, "Session refreshed."))
}

// Logout handles POST /users/logout. The cookie is cleared even when no
// session matched it.
func (s *Server) Logout(c *fiber.Ctx) error {
	err := s.authService.Logout(c.UserContext(), service.LogoutInput{
		RefreshToken:  c.Cookies(auth.RefreshCookieName),
		Authorization: c.Get(fiber.HeaderAuthorization),
	})
	s.clearRefreshCookie(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Successfully logged out.",
	})
}

// TestAccessToken handles GET /users/testAccessToken
func (s *Server) TestAccessToken(c *fiber.Ctx) error {
	identity, err := s.authService.CheckAccessToken(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Access token is valid.",
		"userId":  identity.UserID,
	})
}

// TestRefreshToken handles GET /users/testRefreshToken
func (s *Server) TestRefreshToken(c *fiber.Ctx) error {
	identity, err := s.authService.CheckRefreshToken(c.UserContext(), c.Cookies(auth.RefreshCookieName))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Refresh token is valid.",
		"userId":  identity.UserID,
	})
}
