package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/anonto42/nano-midea/campus/internal/repositories"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository     repositories.PostRepository
	userRepository     repositories.UserRepository
	reactionRepository repositories.ReactionRepository
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, userRepo repositories.UserRepository, reactionRepo repositories.ReactionRepository) *PostHandler {
	return &PostHandler{
		postRepository:     postRepo,
		userRepository:     userRepo,
		reactionRepository: reactionRepo,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.GET("/posts", h.GetPosts)
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post := &models.Post{
		UserID: userID,
		Title:  req.Title,
		Body:   req.Body,
		Media:  req.Media,
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	enriched := []models.Post{*post}
	h.enrich(userID, enriched)
	return c.JSON(http.StatusCreated, enriched[0])
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	enriched := []models.Post{*post}
	h.enrich(getUserIDFromContext(c), enriched)
	return c.JSON(http.StatusOK, enriched[0])
}

// GetPosts returns the feed newest first, optionally restricted to one
// author with ?user_id=. Without ?limit= the whole feed is returned; ?skip=
// and ?limit= page through it.
func (h *PostHandler) GetPosts(c echo.Context) error {
	skip, limit := pageParams(c)

	ctx := c.Request().Context()
	var posts []models.Post
	var err error
	if raw := c.QueryParam("user_id"); raw != "" {
		authorID, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
		}
		posts, err = h.postRepository.GetPostsByUserID(ctx, uint(authorID), skip, limit)
	} else {
		posts, err = h.postRepository.GetAllPosts(ctx, skip, limit)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.enrich(getUserIDFromContext(c), posts)
	return c.JSON(http.StatusOK, posts)
}

// enrich fills in the author of every post and the viewer's reaction in
// place. Lookup failures are logged and leave the fields empty.
func (h *PostHandler) enrich(viewerID uint, posts []models.Post) {
	if len(posts) == 0 {
		return
	}

	seen := make(map[uint]bool, len(posts))
	authorIDs := make([]uint, 0, len(posts))
	postIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			authorIDs = append(authorIDs, p.UserID)
		}
		postIDs = append(postIDs, p.ID)
	}

	authors, err := h.userRepository.GetUsersByIDs(authorIDs)
	if err != nil {
		slog.Warn("failed to load post authors", "error", err)
	}
	var reactions map[string]models.ReactionType
	if viewerID != 0 && h.reactionRepository != nil {
		if reactions, err = h.reactionRepository.GetUserReactions(viewerID, postIDs); err != nil {
			slog.Warn("failed to load viewer reactions", "error", err)
		}
	}

	for i := range posts {
		posts[i].Author = authors[posts[i].UserID]
		posts[i].ViewerReaction = reactions[posts[i].ID]
	}
}

// pageParams reads ?skip= and ?limit=. A zero limit means no limit; an
// explicit limit is clamped to maxPageSize.
func pageParams(c echo.Context) (skip, limit int64) {
	skip, _ = strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	if skip < 0 {
		skip = 0
	}
	raw := c.QueryParam("limit")
	if raw == "" {
		return skip, 0
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return skip, defaultPageSize
	}
	return skip, min(limit, maxPageSize)
}
