package models

import (
	"strings"
	"time"
)

// ReactionState is a user's stance on a post.
type ReactionState string

// Reaction states. Neutral is the absence of a stored reaction.
const (
	ReactionNeutral ReactionState = "neutral"
	ReactionLike    ReactionState = "like"
	ReactionDislike ReactionState = "dislike"
)

// ParseReactionState normalizes s and reports whether it names a known state.
func ParseReactionState(s string) (ReactionState, bool) {
	switch ReactionState(strings.ToLower(strings.TrimSpace(s))) {
	case ReactionNeutral:
		return ReactionNeutral, true
	case ReactionLike:
		return ReactionLike, true
	case ReactionDislike:
		return ReactionDislike, true
	default:
		return "", false
	}
}

// PostReaction records that a user likes or dislikes a post.
// At most one row exists per (post, user), so a user is never in both sets.
type PostReaction struct {
	ID        uint          `gorm:"primaryKey"`
	PostID    string        `gorm:"type:varchar(36);not null;uniqueIndex:idx_post_reactions_post_user"`
	UserID    string        `gorm:"type:varchar(36);not null;uniqueIndex:idx_post_reactions_post_user;index"`
	Kind      ReactionState `gorm:"type:varchar(8);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReactionSummary aggregates the reactions on one post relative to a viewer.
type ReactionSummary struct {
	Likes      int64
	Dislikes   int64
	ViewerKind ReactionState
}
