package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
	"github.com/Joseph-Bethune/Gabble-Live/internal/repository"
	"github.com/Joseph-Bethune/Gabble-Live/internal/validation"
)

// ErrNoSearchCriteria is returned by FindPosts when neither ids nor tags were given.
var ErrNoSearchCriteria = errors.New("provide postIds, includeTags or excludeTags to search posts")

type PostService struct {
	postRepo repository.PostRepository
}

type CreatePostInput struct {
	UserID               string
	Message              string
	Tags                 []string
	ResponseTo           string
	AcceptsDirectReplies *bool
}

// FindPostsInput selects posts by id list or, when PostIDs is empty, by tags.
type FindPostsInput struct {
	ViewerID    string
	PostIDs     []string
	IncludeTags []string
	ExcludeTags []string
}

type ChangeReactionInput struct {
	UserID   string
	PostID   string
	NewState string
}

type ChangeTagsInput struct {
	UserID  string
	PostID  string
	NewTags []string
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (view *models.PostView, err error) {
	span, ctx := observability.NewSpan(ctx, "post.create")
	defer func() { span.End(err) }()

	if in.UserID == "" {
		return nil, models.NewValidationError("A poster is required")
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, models.NewValidationError("Message is required")
	}
	if utf8.RuneCountInString(in.Message) > models.MaxMessageLength {
		return nil, models.NewValidationError("Message is too long (max 10000 characters)")
	}
	tags := validation.NormalizeTags(in.Tags)
	if err := validation.ValidateTags(tags); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{
		Message:              in.Message,
		PosterID:             in.UserID,
		AcceptsDirectReplies: true,
	}
	if in.AcceptsDirectReplies != nil {
		post.AcceptsDirectReplies = *in.AcceptsDirectReplies
	}

	kind := "root"
	if parentID := strings.TrimSpace(in.ResponseTo); parentID != "" {
		parent, err := s.postRepo.GetByID(ctx, parentID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return nil, models.NewValidationError("responseTo does not reference an existing post")
			}
			return nil, err
		}
		if !parent.AcceptsDirectReplies {
			return nil, models.NewForbiddenError("This post does not accept direct replies")
		}
		post.ResponseTo = &parent.ID
		kind = "reply"
	}

	if err := s.postRepo.Create(ctx, post, tags); err != nil {
		return nil, err
	}
	observability.PostsCreated.WithLabelValues(kind).Inc()
	span.AddAttributes(attribute.String("post.id", post.ID), attribute.String("post.kind", kind))

	return s.view(ctx, post.ID, in.UserID)
}

// FindPosts returns posts by id in request order, or by tag criteria
// ordered by creation time.
func (s *PostService) FindPosts(ctx context.Context, in FindPostsInput) (views []models.PostView, err error) {
	span, ctx := observability.NewSpan(ctx, "post.find")
	defer func() { span.End(err) }()

	if len(in.PostIDs) > 0 {
		return s.findByIDs(ctx, in.PostIDs, in.ViewerID)
	}

	include := validation.NormalizeTags(in.IncludeTags)
	exclude := validation.NormalizeTags(in.ExcludeTags)
	if len(include) == 0 && len(exclude) == 0 {
		return nil, ErrNoSearchCriteria
	}
	span.AddAttributes(
		attribute.Int("tags.include", len(include)),
		attribute.Int("tags.exclude", len(exclude)),
	)

	posts, err := s.postRepo.FindByTags(ctx, include, exclude)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, posts, in.ViewerID)
}

func (s *PostService) findByIDs(ctx context.Context, ids []string, viewerID string) ([]models.PostView, error) {
	wanted := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		wanted = append(wanted, id)
	}

	found, err := s.postRepo.GetByIDs(ctx, wanted)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]models.Post, 0, len(found))
	for _, id := range wanted {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return s.views(ctx, ordered, viewerID)
}

func (s *PostService) ChangeReaction(ctx context.Context, in ChangeReactionInput) (view *models.PostView, err error) {
	span, ctx := observability.NewSpan(ctx, "post.change_reaction",
		attribute.String("post.id", in.PostID))
	defer func() { span.End(err) }()

	if in.UserID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	state, ok := models.ParseReactionState(in.NewState)
	if !ok {
		return nil, models.NewValidationError("newStatus must be one of like, dislike or neutral")
	}
	if in.PostID == "" {
		return nil, models.NewValidationError("postId is required")
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	if state == models.ReactionNeutral {
		err = s.postRepo.ClearReaction(ctx, in.PostID, in.UserID)
	} else {
		err = s.postRepo.SetReaction(ctx, in.PostID, in.UserID, state)
	}
	if err != nil {
		return nil, err
	}
	observability.ReactionTransitions.WithLabelValues(string(state)).Inc()

	return s.view(ctx, in.PostID, in.UserID)
}

func (s *PostService) ChangeTags(ctx context.Context, in ChangeTagsInput) (view *models.PostView, err error) {
	span, ctx := observability.NewSpan(ctx, "post.change_tags",
		attribute.String("post.id", in.PostID))
	defer func() { span.End(err) }()

	if in.UserID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	tags := validation.NormalizeEditedTags(in.NewTags)
	if len(tags) == 0 {
		return nil, models.NewValidationError("At least one tag is required")
	}
	if err := validation.ValidateTags(tags); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.PostID == "" {
		return nil, models.NewValidationError("postId is required")
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.PosterID != in.UserID {
		return nil, models.NewForbiddenError("Only the author can change a post's tags")
	}
	if err := s.postRepo.ReplaceTags(ctx, post.ID, tags); err != nil {
		return nil, err
	}
	return s.view(ctx, post.ID, in.UserID)
}

func (s *PostService) view(ctx context.Context, postID, viewerID string) (*models.PostView, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []models.Post{*post}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views builds the display form of posts, keeping their order.
func (s *PostService) views(ctx context.Context, posts []models.Post, viewerID string) ([]models.PostView, error) {
	out := make([]models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	summaries, err := s.postRepo.ReactionSummaries(ctx, ids, viewerID)
	if err != nil {
		return nil, err
	}
	replies, err := s.postRepo.ReplyIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range posts {
		p := &posts[i]
		summary := summaries[p.ID]
		out = append(out, models.PostView{
			ID:                   p.ID,
			Message:              p.Message,
			Tags:                 p.TagNames(),
			Poster:               p.Poster.DisplayName,
			Likes:                summary.Likes,
			Dislikes:             summary.Dislikes,
			Liked:                summary.ViewerKind == models.ReactionLike,
			Disliked:             summary.ViewerKind == models.ReactionDislike,
			ResponseTo:           p.ResponseTo,
			Responses:            replies[p.ID],
			CreatedAt:            p.CreatedAt,
			UpdatedAt:            p.UpdatedAt,
			AcceptsDirectReplies: p.AcceptsDirectReplies,
		})
	}
	return out, nil
}
