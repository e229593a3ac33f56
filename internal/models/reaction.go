package models

import "time"

// ReactionType identifies the kind of reaction a user left on a post.
type ReactionType string

const (
	ReactionLike       ReactionType = "like"
	ReactionLove       ReactionType = "love"
	ReactionInsightful ReactionType = "insightful"
	ReactionCelebrate  ReactionType = "celebrate"
)

// ReactionTypes lists the accepted reaction kinds in display order.
var ReactionTypes = []ReactionType{ReactionLike, ReactionLove, ReactionInsightful, ReactionCelebrate}

// Valid reports whether t is one of the known reaction kinds.
func (t ReactionType) Valid() bool {
	for _, known := range ReactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Reaction is a user's reaction to a post. A user holds at most one reaction
// per post; reacting again changes its kind.
type Reaction struct {
	ID             string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID         string       `json:"post_id" gorm:"index;uniqueIndex:idx_post_user_reaction"`
	UserID         uint         `json:"user_id" gorm:"index;uniqueIndex:idx_post_user_reaction"`
	ReactionTypeID ReactionType `json:"reaction_type_id" gorm:"type:varchar(32)"`
	Created        bool         `json:"created" gorm:"-"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// CreateReactionRequest is the body of POST /reactions.
type CreateReactionRequest struct {
	PostID         string       `json:"post_id" validate:"required"`
	ReactionTypeID ReactionType `json:"reaction_type_id" validate:"required,reaction_type"`
}
