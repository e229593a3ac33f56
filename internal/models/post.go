package models

import "time"

// MediaKind is the type of the single media attachment a post may carry.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaPDF   MediaKind = "pdf"
)

// Media is an opaque reference to an uploaded file.
type Media struct {
	Kind MediaKind `json:"kind" bson:"kind" validate:"required,oneof=image video pdf"`
	URL  string    `json:"url" bson:"url" validate:"required,url"`
}

// Post represents a feed post stored in MongoDB. Comments are never embedded;
// clients load them on demand.
type Post struct {
	ID             string      `json:"id" bson:"_id,omitempty"`
	UserID         uint        `json:"user_id" bson:"user_id"`
	Author         UserCompact `json:"author" bson:"-"`
	Title          string      `json:"title" bson:"title"`
	Body           string      `json:"body" bson:"body"`
	Media          *Media      `json:"media,omitempty" bson:"media,omitempty"`
	ReactionsCount int         `json:"reactions_count" bson:"reactions_count"`
	CommentsCount  int         `json:"comments_number" bson:"comments_count"`
	Rating         float64     `json:"rating" bson:"rating"`
	// ViewerReaction is the requesting user's reaction, empty when none.
	ViewerReaction ReactionType `json:"viewer_reaction,omitempty" bson:"-"`
	CreatedAt      time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
	Body  string `json:"body" validate:"max=5000"`
	Media *Media `json:"media,omitempty" validate:"omitempty"`
}
