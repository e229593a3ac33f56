package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/campus/internal/comments"
	"github.com/anonto42/nano-midea/campus/internal/events"
	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/anonto42/nano-midea/campus/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// backgroundTimeout bounds the counter updates and event publishing that
// outlive a request.
const backgroundTimeout = 5 * time.Second

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository     repositories.CommentRepository
	postRepository        repositories.PostRepository
	userRepository        repositories.UserRepository
	commentLikeRepository repositories.CommentLikeRepository
	publisher             events.Publisher
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	commentLikeRepo repositories.CommentLikeRepository,
	publisher events.Publisher,
) *CommentHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &CommentHandler{
		commentRepository:     commentRepo,
		postRepository:        postRepo,
		userRepository:        userRepo,
		commentLikeRepository: commentLikeRepo,
		publisher:             publisher,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/comments/:post_id", h.GetCommentsByPostID)
	g.POST("/comments", h.CreateComment)
	g.POST("/comments/:id/likes", h.LikeComment)
	g.DELETE("/comments/:id/likes", h.UnlikeComment)
}

// GetCommentsByPostID returns the root comments of a post, newest first,
// each carrying its replies oldest first.
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	postID := c.Param("post_id")

	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		return postLookupError(err)
	}

	flat, err := h.commentRepository.GetCommentsByPostID(postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.fillAuthors(flat)

	return c.JSON(http.StatusOK, comments.BuildTree(flat))
}

// CreateComment creates a root comment or, with parent_comment_id, a reply.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.postRepository.GetPostByID(c.Request().Context(), req.PostID); err != nil {
		return postLookupError(err)
	}

	if req.ParentCommentID != nil {
		parent, err := h.commentRepository.GetCommentByID(*req.ParentCommentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "Parent comment not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if parent.PostID != req.PostID {
			return echo.NewHTTPError(http.StatusBadRequest, "Parent comment belongs to another post")
		}
	}

	comment := &models.Comment{
		PostID:   req.PostID,
		ParentID: req.ParentCommentID,
		UserID:   userID,
		Body:     strings.TrimSpace(req.Body),
	}
	if err := h.commentRepository.CreateComment(comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	comment.Replies = []models.Comment{}
	if author, err := h.userRepository.GetUserByID(userID); err == nil {
		comment.Author = author.ToCompact()
	}

	created := *comment
	go h.afterCreate(created)

	return c.JSON(http.StatusCreated, comment)
}

// afterCreate bumps the post's comment count and announces the comment. It
// runs after the response so its failures only get logged.
func (h *CommentHandler) afterCreate(comment models.Comment) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()
	if err := h.postRepository.IncrementCommentsCount(ctx, comment.PostID); err != nil {
		slog.Error("failed to increment comments count", "post_id", comment.PostID, "error", err)
	}
	if err := h.publisher.PublishCommentCreated(ctx, &comment); err != nil {
		slog.Error("failed to publish comment.created", "comment_id", comment.ID, "error", err)
	}
}

// LikeComment handles liking a comment
func (h *CommentHandler) LikeComment(c echo.Context) error {
	return h.changeLike(c, h.commentLikeRepository.LikeComment)
}

// UnlikeComment handles removing a like from a comment
func (h *CommentHandler) UnlikeComment(c echo.Context) error {
	return h.changeLike(c, h.commentLikeRepository.UnlikeComment)
}

func (h *CommentHandler) changeLike(c echo.Context, change func(commentID string, userID uint) (*models.CommentLikeStatus, error)) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	status, err := change(c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}

func (h *CommentHandler) fillAuthors(flat []models.Comment) {
	seen := make(map[uint]bool)
	ids := make([]uint, 0)
	for _, cm := range flat {
		if !seen[cm.UserID] {
			seen[cm.UserID] = true
			ids = append(ids, cm.UserID)
		}
	}
	authors, err := h.userRepository.GetUsersByIDs(ids)
	if err != nil {
		slog.Warn("failed to load comment authors", "error", err)
		return
	}
	for i := range flat {
		flat[i].Author = authors[flat[i].UserID]
	}
}

func postLookupError(err error) error {
	if errors.Is(err, repositories.ErrPostNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
