package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
	"github.com/Joseph-Bethune/Gabble-Live/internal/repository"
	"github.com/Joseph-Bethune/Gabble-Live/internal/validation"
)

const restrictedInfoMessage = "Full account details are only shared with the account owner."

type UserService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
}

type ChangeDisplayNameInput struct {
	UserID         string
	NewDisplayName string
}

// UserInfoInput selects a user by id or by display name. ViewerID is the
// acting user, if any.
type UserInfoInput struct {
	ViewerID    string
	UserID      string
	DisplayName string
	SendAllData bool
}

func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository) *UserService {
	return &UserService{userRepo: userRepo, postRepo: postRepo}
}

func (s *UserService) ChangeDisplayName(ctx context.Context, in ChangeDisplayNameInput) (user *models.User, err error) {
	span, ctx := observability.NewSpan(ctx, "user.change_display_name",
		attribute.String("user.id", in.UserID))
	defer func() { span.End(err) }()

	if in.UserID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	newName := strings.TrimSpace(in.NewDisplayName)
	if err := validation.ValidateDisplayName(newName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user, err = s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if validation.SameDisplayName(user.DisplayName, newName) {
		return nil, models.NewValidationError("New display name must differ from the current one")
	}

	newKey := validation.DisplayNameKey(newName)
	claimed, err := s.userRepo.IsDisplayNameClaimed(ctx, newKey)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, models.NewConflictError("Display name is already taken")
	}

	history, dropped := validation.PushDisplayNameHistory(
		user.PreviousDisplayNames, user.DisplayName, newName, models.MaxPreviousDisplayNames)
	released := make([]string, 0, len(dropped))
	for _, name := range dropped {
		released = append(released, validation.DisplayNameKey(name))
	}

	if err := s.userRepo.ChangeDisplayName(ctx, repository.DisplayNameChange{
		UserID:   user.ID,
		OldKey:   user.DisplayNameKey,
		NewName:  newName,
		NewKey:   newKey,
		History:  history,
		Released: released,
	}); err != nil {
		return nil, err
	}

	user.DisplayName = newName
	user.DisplayNameKey = newKey
	user.PreviousDisplayNames = history
	return user, nil
}

func (s *UserService) GetUserInfo(ctx context.Context, in UserInfoInput) (*models.UserInfo, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case in.UserID != "":
		user, err = s.userRepo.GetByID(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
	case in.DisplayName != "":
		user, err = s.userRepo.GetByDisplayNameKey(ctx, validation.DisplayNameKey(in.DisplayName))
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, models.NewNotFoundError("User", in.DisplayName)
		}
	default:
		return nil, models.NewValidationError("userId or displayName is required")
	}

	info := &models.UserInfo{UserID: user.ID, DisplayName: user.DisplayName}
	if !in.SendAllData {
		return info, nil
	}
	if in.ViewerID != user.ID {
		info.Message = restrictedInfoMessage
		return info, nil
	}

	liked, err := s.postRepo.ListReactedBy(ctx, user.ID, models.ReactionLike)
	if err != nil {
		return nil, err
	}
	disliked, err := s.postRepo.ListReactedBy(ctx, user.ID, models.ReactionDislike)
	if err != nil {
		return nil, err
	}
	made, err := s.postRepo.ListByPoster(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	repliedTo, err := s.postRepo.ListRepliedToBy(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	activity := &models.UserActivity{
		PreviousDisplayNames: append([]string{}, user.PreviousDisplayNames...),
		PostsLiked:           summarize(liked),
		PostsDisliked:        summarize(disliked),
		OriginalPostsMade:    []models.PostSummary{},
		ReplyPostsMade:       []models.PostSummary{},
		PostsRepliedTo:       summarize(repliedTo),
	}
	for _, p := range made {
		if p.ResponseTo == nil {
			activity.OriginalPostsMade = append(activity.OriginalPostsMade, summaryOf(p))
		} else {
			activity.ReplyPostsMade = append(activity.ReplyPostsMade, summaryOf(p))
		}
	}
	info.UserActivity = activity
	return info, nil
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.UserListing, error) {
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	listing := make([]models.UserListing, 0, len(users))
	for i := range users {
		u := &users[i]
		listing = append(listing, models.UserListing{
			UserID:      u.ID,
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Roles:       u.RoleList(),
			CreatedAt:   u.CreatedAt,
		})
	}
	return listing, nil
}

// GrantRole adds role to the user. Granting a held role is a no-op.
func (s *UserService) GrantRole(ctx context.Context, userID string, role models.Role) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if models.HasAnyRole(user.RoleList(), role) {
		return user, nil
	}
	roles := append(user.RoleList(), role)
	if err := s.userRepo.UpdateRoles(ctx, user.ID, roles); err != nil {
		return nil, err
	}
	user.Roles = roles
	return user, nil
}

// RevokeRole removes role from the user. A user always keeps at least one role.
func (s *UserService) RevokeRole(ctx context.Context, userID string, role models.Role) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles := make([]models.Role, 0, len(user.Roles))
	for _, r := range user.Roles {
		if r != role {
			roles = append(roles, r)
		}
	}
	if len(roles) == len(user.Roles) {
		return user, nil
	}
	if len(roles) == 0 {
		return nil, models.NewValidationError("Cannot revoke the last role of a user")
	}
	if err := s.userRepo.UpdateRoles(ctx, user.ID, roles); err != nil {
		return nil, err
	}
	user.Roles = roles
	return user, nil
}

func summarize(posts []models.Post) []models.PostSummary {
	out := make([]models.PostSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, summaryOf(p))
	}
	return out
}

func summaryOf(p models.Post) models.PostSummary {
	return models.PostSummary{
		ID:         p.ID,
		Message:    p.Message,
		ResponseTo: p.ResponseTo,
		CreatedAt:  p.CreatedAt,
	}
}
