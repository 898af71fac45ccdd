package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Joseph-Bethune/Gabble-Live/internal/service"
	"github.com/Joseph-Bethune/Gabble-Live/internal/validation"
)

// FindPosts handles POST /posts/find
func (s *Server) FindPosts(c *fiber.Ctx) error {
	var req struct {
		PostIDs     validation.TagInput `json:"postIds"`
		IncludeTags validation.TagInput `json:"includeTags"`
		ExcludeTags validation.TagInput `json:"excludeTags"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	posts, err := s.postService.FindPosts(c.UserContext(), service.FindPostsInput{
		ViewerID:    actingUserID(c),
		PostIDs:     validation.NormalizeTags(req.PostIDs),
		IncludeTags: req.IncludeTags,
		ExcludeTags: req.ExcludeTags,
	})
	if errors.Is(err, service.ErrNoSearchCriteria) {
		return c.JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"posts":   posts,
	})
}

// CreatePost handles POST /posts/create
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Message              string              `json:"message"`
		Tags                 validation.TagInput `json:"tags"`
		ResponseTo           string              `json:"responseTo"`
		AcceptsDirectReplies *bool               `json:"acceptsDirectReplies"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:               actingUserID(c),
		Message:              req.Message,
		Tags:                 req.Tags,
		ResponseTo:           req.ResponseTo,
		AcceptsDirectReplies: req.AcceptsDirectReplies,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"newPost": post,
	})
}

// ChangeLikeStatus handles POST /posts/changeLikeStatus
func (s *Server) ChangeLikeStatus(c *fiber.Ctx) error {
	var req struct {
		PostID    string `json:"postId"`
		NewStatus string `json:"newStatus"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.ChangeReaction(c.UserContext(), service.ChangeReactionInput{
		UserID:   actingUserID(c),
		PostID:   req.PostID,
		NewState: req.NewStatus,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Status updated.",
		"updatedPost": post,
	})
}

// ChangeTags handles POST /posts/changeTags
func (s *Server) ChangeTags(c *fiber.Ctx) error {
	var req struct {
		PostID  string              `json:"postId"`
		NewTags validation.TagInput `json:"newTags"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.ChangeTags(c.UserContext(), service.ChangeTagsInput{
		UserID:  actingUserID(c),
		PostID:  req.PostID,
		NewTags: req.NewTags,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"updatedPost": post,
	})
}
