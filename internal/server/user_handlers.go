package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/service"
)

// ChangeDisplayName handles POST /users/changeDisplayName
func (s *Server) ChangeDisplayName(c *fiber.Ctx) error {
	var req struct {
		NewDisplayName string `json:"newDisplayName"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.NewDisplayName == "" {
		return respondError(c, models.NewValidationError("No new display name given"))
	}

	user, err := s.userService.ChangeDisplayName(c.UserContext(), service.ChangeDisplayNameInput{
		UserID:         actingUserID(c),
		NewDisplayName: req.NewDisplayName,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":              true,
		"newDisplayName":       user.DisplayName,
		"previousDisplayNames": user.PreviousDisplayNames,
		"message":              "Display name updated to " + user.DisplayName + ".",
	})
}

// GetUserInfo handles GET and POST /users/getUserInfo. Selectors may come
// from the JSON body or the query string.
func (s *Server) GetUserInfo(c *fiber.Ctx) error {
	var req struct {
		UserID      string `json:"userId" query:"userId"`
		DisplayName string `json:"displayName" query:"displayName"`
		SendAllData bool   `json:"sendAllData" query:"sendAllData"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, models.NewValidationError("Invalid request body"))
		}
	}
	if req.UserID == "" && req.DisplayName == "" {
		if err := c.QueryParser(&req); err != nil {
			return respondError(c, models.NewValidationError("Invalid query parameters"))
		}
	}

	info, err := s.userService.GetUserInfo(c.UserContext(), service.UserInfoInput{
		ViewerID:    actingUserID(c),
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		SendAllData: req.SendAllData,
	})
	if err != nil {
		return respondError(c, err)
	}

	body := fiber.Map{
		"success":  true,
		"userData": info,
	}
	if info.Message != "" {
		body["message"] = info.Message
	}
	return c.JSON(body)
}

// ListUsers handles GET /users/ (admin only)
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext(), c.QueryInt("limit", 100), c.QueryInt("offset", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
	})
}
