package models

import "time"

// CommentLike represents a like on a comment
type CommentLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CommentID string    `json:"comment_id" gorm:"type:varchar(36);index;uniqueIndex:idx_comment_user_like"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_comment_user_like"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLikeStatus is returned by the comment like endpoints.
type CommentLikeStatus struct {
	CommentID  string `json:"comment_id"`
	Liked      bool   `json:"liked"`
	LikesCount int    `json:"likes_count"`
}
