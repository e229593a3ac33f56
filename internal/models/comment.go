package models

import "time"

// Comment is one node of a post's comment tree. Roots have a nil ParentID.
type Comment struct {
	ID         string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID     string      `json:"post_id" gorm:"index;not null"`
	ParentID   *string     `json:"parent_comment_id" gorm:"index;type:varchar(36)"`
	UserID     uint        `json:"user_id" gorm:"index"`
	Author     UserCompact `json:"author" gorm:"-"`
	Body       string      `json:"body" gorm:"type:text;not null"`
	LikesCount int         `json:"likes_count" gorm:"not null;default:0"`
	CreatedAt  time.Time   `json:"created_at"`
	Replies    []Comment   `json:"replies" gorm:"-"`
}

// IsRoot reports whether the comment is attached directly to its post.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// CreateCommentRequest is the body of POST /comments. A nil ParentCommentID
// creates a root comment.
type CreateCommentRequest struct {
	Body            string  `json:"body" validate:"required,notblank,max=2000"`
	PostID          string  `json:"post_id" validate:"required"`
	ParentCommentID *string `json:"parent_comment_id"`
}
