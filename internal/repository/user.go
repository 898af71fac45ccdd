package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
)

// DisplayNameChange describes one display-name change computed by the caller.
type DisplayNameChange struct {
	UserID   string
	OldKey   string
	NewName  string
	NewKey   string
	History  []string
	Released []string // case-folded keys of names that left the history
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByDisplayNameKey(ctx context.Context, key string) (*models.User, error)
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)
	IsDisplayNameClaimed(ctx context.Context, key string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error)
	ClearRefreshToken(ctx context.Context, userID, token string) (bool, error)
	ChangeDisplayName(ctx context.Context, change DisplayNameChange) error
	UpdateRoles(ctx context.Context, userID string, roles []models.Role) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// findOne returns nil, nil when nothing matches.
func (r *userRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *userRepository) GetByDisplayNameKey(ctx context.Context, key string) (*models.User, error) {
	return r.findOne(ctx, "display_name_key = ?", key)
}

func (r *userRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	return r.findOne(ctx, "refresh_token = ?", token)
}

func (r *userRepository) IsDisplayNameClaimed(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DisplayNameClaim{}).
		Where("name_key = ?", key).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Create stores the user together with the claim on its display name.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("create", "users")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.DisplayNameClaim{
			Key:    user.DisplayNameKey,
			UserID: user.ID,
			Name:   user.DisplayName,
		}).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Email or display name already in use")
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"user_id": user.ID})
	return nil
}

func (r *userRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token", token)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}

// RotateRefreshToken swaps the stored token only if it still equals oldToken.
func (r *userRepository) RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error) {
	if oldToken == "" {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", userID, oldToken).
		Update("refresh_token", newToken)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClearRefreshToken ends the session only if token is still the stored one.
func (r *userRepository) ClearRefreshToken(ctx context.Context, userID, token string) (bool, error) {
	return r.RotateRefreshToken(ctx, userID, token, "")
}

func (r *userRepository) ChangeDisplayName(ctx context.Context, change DisplayNameChange) error {
	defer observability.TrackQuery("change_display_name", "users")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.DisplayNameClaim{
			Key:    change.NewKey,
			UserID: change.UserID,
			Name:   change.NewName,
		}).Error; err != nil {
			return err
		}

		if len(change.Released) > 0 {
			if err := tx.Where("user_id = ? AND name_key IN ?", change.UserID, change.Released).
				Delete(&models.DisplayNameClaim{}).Error; err != nil {
				return err
			}
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND display_name_key = ?", change.UserID, change.OldKey).
			Updates(map[string]interface{}{
				"display_name":           change.NewName,
				"display_name_key":       change.NewKey,
				"previous_display_names": historyColumn(change.History),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("Display name was changed concurrently")
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Display name is already taken")
		}
		r.log.LogError(ctx, err, "change_display_name")
		return models.NewInternalError(err)
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": change.UserID, "field": "display_name"})
	return nil
}

func (r *userRepository) UpdateRoles(ctx context.Context, userID string, roles []models.Role) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("roles", rolesColumn(roles))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", userID)
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": userID, "field": "roles"})
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at ASC").
		Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
