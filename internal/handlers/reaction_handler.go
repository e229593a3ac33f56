package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/anonto42/nano-midea/campus/internal/events"
	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/anonto42/nano-midea/campus/internal/repositories"
	"github.com/labstack/echo/v4"
)

// ReactionHandler handles reactions to posts
type ReactionHandler struct {
	reactionRepository repositories.ReactionRepository
	postRepository     repositories.PostRepository
	publisher          events.Publisher
}

// NewReactionHandler creates a new ReactionHandler
func NewReactionHandler(reactionRepo repositories.ReactionRepository, postRepo repositories.PostRepository, publisher events.Publisher) *ReactionHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ReactionHandler{
		reactionRepository: reactionRepo,
		postRepository:     postRepo,
		publisher:          publisher,
	}
}

// RegisterReactionRoutes registers reaction-related routes
func (h *ReactionHandler) RegisterReactionRoutes(g *echo.Group) {
	g.POST("/reactions", h.CreateReaction)
}

// CreateReaction stores the caller's reaction to a post. The response is 201
// with created=true for a first reaction and 200 with created=false when an
// existing reaction changed its kind; only the former counts towards the
// post's reactions.
func (h *ReactionHandler) CreateReaction(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.CreateReactionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.postRepository.GetPostByID(c.Request().Context(), req.PostID); err != nil {
		return postLookupError(err)
	}

	reaction := &models.Reaction{
		PostID:         req.PostID,
		UserID:         userID,
		ReactionTypeID: req.ReactionTypeID,
	}
	if err := h.reactionRepository.UpsertReaction(reaction); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	saved := *reaction
	go h.afterReact(saved)

	if reaction.Created {
		return c.JSON(http.StatusCreated, reaction)
	}
	return c.JSON(http.StatusOK, reaction)
}

func (h *ReactionHandler) afterReact(reaction models.Reaction) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()
	if reaction.Created {
		if err := h.postRepository.IncrementReactionsCount(ctx, reaction.PostID); err != nil {
			slog.Error("failed to increment reactions count", "post_id", reaction.PostID, "error", err)
		}
	}
	if err := h.publisher.PublishReactionCreated(ctx, &reaction); err != nil {
		slog.Error("failed to publish reaction.created", "reaction_id", reaction.ID, "error", err)
	}
}
