package repositories

import (
	"github.com/anonto42/nano-midea/campus/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentLikeRepository defines the interface for comment like operations.
// Both calls are idempotent and return the resulting state.
type CommentLikeRepository interface {
	LikeComment(commentID string, userID uint) (*models.CommentLikeStatus, error)
	UnlikeComment(commentID string, userID uint) (*models.CommentLikeStatus, error)
}

type postgresCommentLikeRepository struct {
	db *gorm.DB
}

func NewPostgresCommentLikeRepository(db *gorm.DB) CommentLikeRepository {
	return &postgresCommentLikeRepository{db: db}
}

// LikeComment records the like and bumps the comment's counter in one
// transaction. Liking twice leaves the counter unchanged.
func (r *postgresCommentLikeRepository) LikeComment(commentID string, userID uint) (*models.CommentLikeStatus, error) {
	return r.apply(commentID, func(tx *gorm.DB) (int64, error) {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CommentLike{CommentID: commentID, UserID: userID})
		return res.RowsAffected, res.Error
	}, 1, true)
}

func (r *postgresCommentLikeRepository) UnlikeComment(commentID string, userID uint) (*models.CommentLikeStatus, error) {
	return r.apply(commentID, func(tx *gorm.DB) (int64, error) {
		res := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&models.CommentLike{})
		return res.RowsAffected, res.Error
	}, -1, false)
}

func (r *postgresCommentLikeRepository) apply(commentID string, change func(tx *gorm.DB) (int64, error), delta int, liked bool) (*models.CommentLikeStatus, error) {
	status := &models.CommentLikeStatus{CommentID: commentID, Liked: liked}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id", "likes_count").Where("id = ?", commentID).First(&comment).Error; err != nil {
			return err
		}
		affected, err := change(tx)
		if err != nil {
			return err
		}
		if affected > 0 {
			if err := tx.Model(&models.Comment{}).
				Where("id = ?", commentID).
				Update("likes_count", gorm.Expr("GREATEST(likes_count + ?, 0)", delta)).Error; err != nil {
				return err
			}
			comment.LikesCount = max(comment.LikesCount+delta, 0)
		}
		status.LikesCount = comment.LikesCount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}
