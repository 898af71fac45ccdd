package models

import "time"

// PostView is the client-facing projection of a post.
type PostView struct {
	ID                   string    `json:"id"`
	Message              string    `json:"message"`
	Tags                 []string  `json:"tags"`
	Poster               string    `json:"poster"`
	Likes                int64     `json:"likes"`
	Dislikes             int64     `json:"dislikes"`
	Liked                bool      `json:"liked"`
	Disliked             bool      `json:"disliked"`
	ResponseTo           *string   `json:"responseTo"`
	Responses            []string  `json:"responses"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
	AcceptsDirectReplies bool      `json:"acceptsDirectReplies"`
}

// PostSummary is the short form of a post used in user activity listings.
type PostSummary struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	ResponseTo *string   `json:"responseTo,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Identity is the acting user resolved from an access token.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Roles       []Role `json:"roles"`
}

// UserInfo is the public view of a user. Activity is only attached when
// the viewer asked for it and is the user.
type UserInfo struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	*UserActivity
	Message string `json:"message,omitempty"`
}

// UserActivity is the private part of UserInfo.
type UserActivity struct {
	PreviousDisplayNames []string      `json:"previousDisplayNames"`
	PostsLiked           []PostSummary `json:"postsLiked"`
	PostsDisliked        []PostSummary `json:"postsDisliked"`
	OriginalPostsMade    []PostSummary `json:"originalPostsMade"`
	ReplyPostsMade       []PostSummary `json:"replyPostsMade"`
	PostsRepliedTo       []PostSummary `json:"postsRepliedTo"`
}

// UserListing is one row of the admin user listing.
type UserListing struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Roles       []Role    `json:"roles"`
	CreatedAt   time.Time `json:"createdAt"`
}
