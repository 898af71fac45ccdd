package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxMessageLength bounds the size of a post body in characters.
const MaxMessageLength = 10000

// Post is a message on the board, optionally replying to another post.
type Post struct {
	ID                   string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Message              string    `gorm:"type:text;not null" json:"message"`
	PosterID             string    `gorm:"type:varchar(36);not null;index" json:"posterId"`
	Poster               User      `gorm:"foreignKey:PosterID" json:"-"`
	ResponseTo           *string   `gorm:"type:varchar(36);index" json:"responseTo"`
	AcceptsDirectReplies bool      `gorm:"not null" json:"acceptsDirectReplies"`
	Tags                 []PostTag `gorm:"foreignKey:PostID" json:"-"`
	CreatedAt            time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// BeforeCreate assigns an id when the caller has not.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// TagNames returns the post's tags in stored order.
func (p *Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Tag)
	}
	return names
}

// PostTag is one tag of a post. The composite key keeps tags unique per post.
type PostTag struct {
	PostID   string `gorm:"primaryKey;type:varchar(36)"`
	Tag      string `gorm:"primaryKey;type:varchar(128);index"`
	Position int    `gorm:"not null"`
}

// NewPostTags builds tag rows for postID preserving the order of tags.
func NewPostTags(postID string, tags []string) []PostTag {
	rows := make([]PostTag, 0, len(tags))
	for i, tag := range tags {
		rows = append(rows, PostTag{PostID: postID, Tag: tag, Position: i})
	}
	return rows
}
