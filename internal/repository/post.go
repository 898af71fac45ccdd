package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
)

// PostRepository defines persistence operations for posts, their tags and reactions.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post, tags []string) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	FindByTags(ctx context.Context, include, exclude []string) ([]models.Post, error)
	ReplaceTags(ctx context.Context, postID string, tags []string) error
	SetReaction(ctx context.Context, postID, userID string, kind models.ReactionState) error
	ClearReaction(ctx context.Context, postID, userID string) error
	ReactionSummaries(ctx context.Context, postIDs []string, viewerID string) (map[string]models.ReactionSummary, error)
	ReplyIDs(ctx context.Context, postIDs []string) (map[string][]string, error)
	ListByPoster(ctx context.Context, userID string) ([]models.Post, error)
	ListReactedBy(ctx context.Context, userID string, kind models.ReactionState) ([]models.Post, error)
	ListRepliedToBy(ctx context.Context, userID string) ([]models.Post, error)
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

// withDetails preloads what the display form needs.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Poster").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

// Create stores the post and its tags in one transaction.
func (r *postRepository) Create(ctx context.Context, post *models.Post, tags []string) error {
	defer observability.TrackQuery("create", "posts")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}
		return tx.Create(models.NewPostTags(post.ID, tags)).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"post_id": post.ID, "tags": len(tags)})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := withDetails(r.db.WithContext(ctx)).Where("posts.id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// GetByIDs returns the posts that exist among ids, in no particular order.
func (r *postRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	var posts []models.Post
	if err := withDetails(r.db.WithContext(ctx)).Where("posts.id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// FindByTags returns posts carrying every include tag and none of the
// exclude tags, oldest first.
func (r *postRepository) FindByTags(ctx context.Context, include, exclude []string) ([]models.Post, error) {
	defer observability.TrackQuery("find_by_tags", "posts")()

	db := r.db.WithContext(ctx)
	q := withDetails(db.Model(&models.Post{}))
	if len(include) > 0 {
		matching := db.Model(&models.PostTag{}).
			Select("post_id").
			Where("tag IN ?", include).
			Group("post_id").
			Having("COUNT(DISTINCT tag) = ?", len(include))
		q = q.Where("posts.id IN (?)", matching)
	}
	if len(exclude) > 0 {
		excluded := db.Model(&models.PostTag{}).
			Select("post_id").
			Where("tag IN ?", exclude)
		q = q.Where("posts.id NOT IN (?)", excluded)
	}

	var posts []models.Post
	if err := q.Order("posts.created_at ASC, posts.id ASC").Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ReplaceTags swaps the whole tag set of a post in one transaction.
func (r *postRepository) ReplaceTags(ctx context.Context, postID string, tags []string) error {
	defer observability.TrackQuery("replace_tags", "post_tags")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		if len(tags) > 0 {
			if err := tx.Create(models.NewPostTags(postID, tags)).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "replace_tags")
		return models.NewInternalError(err)
	}
	r.log.LogUpdate(ctx, map[string]any{"post_id": postID, "tags": len(tags)})
	return nil
}

// SetReaction upserts the (post, user) reaction row in a single statement.
func (r *postRepository) SetReaction(ctx context.Context, postID, userID string, kind models.ReactionState) error {
	now := time.Now()
	reaction := models.PostReaction{
		PostID:    postID,
		UserID:    userID,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"kind":       kind,
			"updated_at": now,
		}),
	}).Create(&reaction).Error
	if err != nil {
		r.log.LogError(ctx, err, "set_reaction")
		return models.NewInternalError(err)
	}
	return nil
}

// ClearReaction removes the (post, user) reaction row if present.
func (r *postRepository) ClearReaction(ctx context.Context, postID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostReaction{}).Error
	if err != nil {
		r.log.LogError(ctx, err, "clear_reaction")
		return models.NewInternalError(err)
	}
	return nil
}

type reactionCount struct {
	PostID string
	Kind   models.ReactionState
	Total  int64
}

// ReactionSummaries counts likes and dislikes per post and reports the
// viewer's own reaction when viewerID is set.
func (r *postRepository) ReactionSummaries(ctx context.Context, postIDs []string, viewerID string) (map[string]models.ReactionSummary, error) {
	summaries := make(map[string]models.ReactionSummary, len(postIDs))
	if len(postIDs) == 0 {
		return summaries, nil
	}
	db := r.db.WithContext(ctx)

	var counts []reactionCount
	if err := db.Model(&models.PostReaction{}).
		Select("post_id, kind, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id, kind").
		Scan(&counts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, c := range counts {
		s := summaries[c.PostID]
		switch c.Kind {
		case models.ReactionLike:
			s.Likes = c.Total
		case models.ReactionDislike:
			s.Dislikes = c.Total
		}
		summaries[c.PostID] = s
	}

	if viewerID == "" {
		return summaries, nil
	}
	var own []models.PostReaction
	if err := db.Where("post_id IN ? AND user_id = ?", postIDs, viewerID).Find(&own).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, reaction := range own {
		s := summaries[reaction.PostID]
		s.ViewerKind = reaction.Kind
		summaries[reaction.PostID] = s
	}
	return summaries, nil
}

// ReplyIDs maps each post id to the ids of its direct replies, oldest first.
func (r *postRepository) ReplyIDs(ctx context.Context, postIDs []string) (map[string][]string, error) {
	replies := make(map[string][]string, len(postIDs))
	if len(postIDs) == 0 {
		return replies, nil
	}
	var rows []models.Post
	if err := r.db.WithContext(ctx).
		Select("id", "response_to").
		Where("response_to IN ?", postIDs).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		if row.ResponseTo != nil {
			replies[*row.ResponseTo] = append(replies[*row.ResponseTo], row.ID)
		}
	}
	return replies, nil
}

func (r *postRepository) ListByPoster(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).Where("poster_id = ?", userID).
		Order("created_at ASC").Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListReactedBy(ctx context.Context, userID string, kind models.ReactionState) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Joins("JOIN post_reactions ON post_reactions.post_id = posts.id").
		Where("post_reactions.user_id = ? AND post_reactions.kind = ?", userID, kind).
		Order("posts.created_at ASC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListRepliedToBy returns the posts userID has replied to.
func (r *postRepository) ListRepliedToBy(ctx context.Context, userID string) ([]models.Post, error) {
	db := r.db.WithContext(ctx)
	parents := db.Model(&models.Post{}).
		Select("response_to").
		Where("poster_id = ? AND response_to IS NOT NULL", userID)

	var posts []models.Post
	if err := db.Where("id IN (?)", parents).
		Order("created_at ASC").Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
