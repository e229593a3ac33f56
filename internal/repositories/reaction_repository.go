package repositories

import (
	"errors"

	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReactionRepository defines the interface for post reaction operations
type ReactionRepository interface {
	UpsertReaction(reaction *models.Reaction) error
	GetReaction(postID string, userID uint) (*models.Reaction, error)
	GetUserReactions(userID uint, postIDs []string) (map[string]models.ReactionType, error)
}

// PostgresReactionRepository implements ReactionRepository for PostgreSQL
type PostgresReactionRepository struct {
	db *gorm.DB
}

// NewPostgresReactionRepository creates a new PostgresReactionRepository
func NewPostgresReactionRepository(db *gorm.DB) *PostgresReactionRepository {
	return &PostgresReactionRepository{db: db}
}

// UpsertReaction stores the user's reaction to a post. A user has at most one
// reaction per post: when one exists its kind is replaced and Created is set
// to false, otherwise a new row is inserted and Created is true.
func (r *PostgresReactionRepository) UpsertReaction(reaction *models.Reaction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Reaction
		err := tx.Where("post_id = ? AND user_id = ?", reaction.PostID, reaction.UserID).First(&existing).Error
		switch {
		case err == nil:
			existing.ReactionTypeID = reaction.ReactionTypeID
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*reaction = existing
			reaction.Created = false
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			reaction.ID = uuid.NewString()
			if err := tx.Create(reaction).Error; err != nil {
				return err
			}
			reaction.Created = true
			return nil
		default:
			return err
		}
	})
}

// GetReaction retrieves the reaction of a user on a post
func (r *PostgresReactionRepository) GetReaction(postID string, userID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	if err := r.db.Where("post_id = ? AND user_id = ?", postID, userID).First(&reaction).Error; err != nil {
		return nil, err
	}
	return &reaction, nil
}

// GetUserReactions returns the kind of the user's reaction for each of
// postIDs the user reacted to.
func (r *PostgresReactionRepository) GetUserReactions(userID uint, postIDs []string) (map[string]models.ReactionType, error) {
	out := make(map[string]models.ReactionType, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var reactions []models.Reaction
	if err := r.db.Where("user_id = ? AND post_id IN ?", userID, postIDs).Find(&reactions).Error; err != nil {
		return nil, err
	}
	for _, re := range reactions {
		out[re.PostID] = re.ReactionTypeID
	}
	return out, nil
}
