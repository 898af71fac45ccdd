// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxPreviousDisplayNames bounds the display-name history kept per user.
const MaxPreviousDisplayNames = 5

// User represents a registered account.
type User struct {
	ID                   string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email                string                      `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash         string                      `gorm:"not null" json:"-"`
	DisplayName          string                      `gorm:"not null" json:"displayName"`
	DisplayNameKey       string                      `gorm:"uniqueIndex;not null" json:"-"`
	PreviousDisplayNames datatypes.JSONSlice[string] `gorm:"not null" json:"previousDisplayNames"`
	Roles                datatypes.JSONSlice[Role]   `gorm:"not null" json:"roles"`
	RefreshToken         string                      `gorm:"index" json:"-"`
	CreatedAt            time.Time                   `json:"createdAt"`
	UpdatedAt            time.Time                   `json:"updatedAt"`
}

// BeforeCreate assigns an id and makes sure the JSON columns are never NULL.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.PreviousDisplayNames == nil {
		u.PreviousDisplayNames = datatypes.JSONSlice[string]{}
	}
	if u.Roles == nil {
		u.Roles = datatypes.JSONSlice[Role]{}
	}
	return nil
}

// RoleList returns the user's roles as a plain slice.
func (u *User) RoleList() []Role {
	return append([]Role(nil), u.Roles...)
}

// DisplayNameClaim reserves a case-folded display name for one user.
// A row exists for the current name and for every name still in history.
type DisplayNameClaim struct {
	Key       string    `gorm:"column:name_key;primaryKey;type:varchar(96)"`
	UserID    string    `gorm:"type:varchar(36);not null;index"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
}
