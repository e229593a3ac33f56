package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/nano-midea/campus/internal/middleware"
	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/anonto42/nano-midea/campus/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPostRepo struct{ mock.Mock }

func (m *mockPostRepo) CreatePost(ctx context.Context, post *models.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *mockPostRepo) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Post)
	return p, args.Error(1)
}

func (m *mockPostRepo) GetPostsByUserID(ctx context.Context, userID uint, skip, limit int64) ([]models.Post, error) {
	args := m.Called(ctx, userID, skip, limit)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *mockPostRepo) GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	args := m.Called(ctx, skip, limit)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *mockPostRepo) IncrementCommentsCount(ctx context.Context, postID string) error {
	return m.Called(ctx, postID).Error(0)
}

func (m *mockPostRepo) IncrementReactionsCount(ctx context.Context, postID string) error {
	return m.Called(ctx, postID).Error(0)
}

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *mockUserRepo) GetUserByID(id uint) (*models.User, error) {
	args := m.Called(id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetUserByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetUserByFirebaseUID(uid string) (*models.User, error) {
	args := m.Called(uid)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetUsersByIDs(ids []uint) (map[uint]models.UserCompact, error) {
	args := m.Called(ids)
	users, _ := args.Get(0).(map[uint]models.UserCompact)
	return users, args.Error(1)
}

func (m *mockUserRepo) UpdateUser(user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *mockUserRepo) SearchUsers(query string, limit int) ([]models.User, error) {
	args := m.Called(query, limit)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

type mockCommentRepo struct{ mock.Mock }

func (m *mockCommentRepo) CreateComment(comment *models.Comment) error {
	return m.Called(comment).Error(0)
}

func (m *mockCommentRepo) GetCommentByID(id string) (*models.Comment, error) {
	args := m.Called(id)
	c, _ := args.Get(0).(*models.Comment)
	return c, args.Error(1)
}

func (m *mockCommentRepo) GetCommentsByPostID(postID string) ([]models.Comment, error) {
	args := m.Called(postID)
	cs, _ := args.Get(0).([]models.Comment)
	return cs, args.Error(1)
}

type mockCommentLikeRepo struct{ mock.Mock }

func (m *mockCommentLikeRepo) LikeComment(commentID string, userID uint) (*models.CommentLikeStatus, error) {
	args := m.Called(commentID, userID)
	s, _ := args.Get(0).(*models.CommentLikeStatus)
	return s, args.Error(1)
}

func (m *mockCommentLikeRepo) UnlikeComment(commentID string, userID uint) (*models.CommentLikeStatus, error) {
	args := m.Called(commentID, userID)
	s, _ := args.Get(0).(*models.CommentLikeStatus)
	return s, args.Error(1)
}

type mockReactionRepo struct{ mock.Mock }

func (m *mockReactionRepo) UpsertReaction(reaction *models.Reaction) error {
	return m.Called(reaction).Error(0)
}

func (m *mockReactionRepo) GetReaction(postID string, userID uint) (*models.Reaction, error) {
	args := m.Called(postID, userID)
	r, _ := args.Get(0).(*models.Reaction)
	return r, args.Error(1)
}

func (m *mockReactionRepo) GetUserReactions(userID uint, postIDs []string) (map[string]models.ReactionType, error) {
	args := m.Called(userID, postIDs)
	r, _ := args.Get(0).(map[string]models.ReactionType)
	return r, args.Error(1)
}

// chanPublisher hands every published event to the test.
type chanPublisher struct {
	comments  chan models.Comment
	reactions chan models.Reaction
}

func newChanPublisher() *chanPublisher {
	return &chanPublisher{
		comments:  make(chan models.Comment, 4),
		reactions: make(chan models.Reaction, 4),
	}
}

func (p *chanPublisher) PublishCommentCreated(_ context.Context, c *models.Comment) error {
	p.comments <- *c
	return nil
}

func (p *chanPublisher) PublishReactionCreated(_ context.Context, r *models.Reaction) error {
	p.reactions <- *r
	return nil
}

// newContext builds an echo context for a request made by userID; 0 means
// anonymous.
func newContext(t *testing.T, method, target, body string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = validators.NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set(middleware.UserIDKey, userID)
	}
	return c, rec
}

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	require.Equal(t, code, he.Code)
}
