package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/anonto42/nano-midea/campus/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct{ mock.Mock }

func (m *mockGateway) ListPosts(ctx context.Context) ([]models.Post, error) {
	args := m.Called(ctx)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *mockGateway) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	args := m.Called(ctx, postID)
	roots, _ := args.Get(0).([]models.Comment)
	return roots, args.Error(1)
}

func (m *mockGateway) CreateComment(ctx context.Context, req models.CreateCommentRequest) (*models.Comment, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*models.Comment)
	return c, args.Error(1)
}

func (m *mockGateway) CreateReaction(ctx context.Context, req models.CreateReactionRequest) (*models.Reaction, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*models.Reaction)
	return r, args.Error(1)
}

func postIDs(posts []*Post) []string {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID())
	}
	return ids
}

func TestFeed_LoadPreservesServerOrderAndFetchesOnce(t *testing.T) {
	gw := &mockGateway{}
	gw.On("ListPosts", mock.Anything).Return([]models.Post{
		{ID: "p3", Title: "c"}, {ID: "p1", Title: "a"}, {ID: "p2", Title: "b"},
	}, nil).Once()
	f := New(gw)

	require.NoError(t, f.Load(context.Background()))
	require.NoError(t, f.Load(context.Background()))

	assert.Equal(t, Loaded, f.State())
	assert.Equal(t, []string{"p3", "p1", "p2"}, postIDs(f.Posts()))
	p, ok := f.Post("p1")
	require.True(t, ok)
	assert.Equal(t, "a", p.Snapshot().Post.Title)
	gw.AssertNumberOfCalls(t, "ListPosts", 1)
}

func TestFeed_ConcurrentLoadIssuesOneCall(t *testing.T) {
	gw := &mockGateway{}
	started := make(chan struct{})
	release := make(chan struct{})
	gw.On("ListPosts", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]models.Post{{ID: "p1"}}, nil).Once()
	f := New(gw)

	done := make(chan error, 1)
	go func() { done <- f.Load(context.Background()) }()
	<-started

	assert.Equal(t, Loading, f.State())
	require.NoError(t, f.Load(context.Background()))
	close(release)
	require.NoError(t, <-done)

	gw.AssertNumberOfCalls(t, "ListPosts", 1)
	assert.Len(t, f.Posts(), 1)
}

func TestFeed_LoadFailureAllowsRetry(t *testing.T) {
	gw := &mockGateway{}
	gw.On("ListPosts", mock.Anything).Return(nil, errors.New("connection refused")).Once()
	gw.On("ListPosts", mock.Anything).Return([]models.Post{{ID: "p1"}}, nil).Once()
	f := New(gw)

	require.Error(t, f.Load(context.Background()))
	assert.Equal(t, Unloaded, f.State())
	assert.Empty(t, f.Posts())

	require.NoError(t, f.Load(context.Background()))
	assert.Equal(t, Loaded, f.State())
	assert.Len(t, f.Posts(), 1)
}

func TestFeed_DuplicateIDsKeepFirstPositionAndLastData(t *testing.T) {
	gw := &mockGateway{}
	gw.On("ListPosts", mock.Anything).Return([]models.Post{
		{ID: "p1", Title: "old"},
		{ID: "p2", Title: "other"},
		{ID: "p1", Title: "new", CommentsCount: 3},
	}, nil).Once()
	f := New(gw)

	require.NoError(t, f.Load(context.Background()))

	assert.Equal(t, []string{"p1", "p2"}, postIDs(f.Posts()))
	p, _ := f.Post("p1")
	view := p.Snapshot()
	assert.Equal(t, "new", view.Post.Title)
	assert.Equal(t, 3, view.CommentCount)
}

func TestFeed_SkipsPostsWithoutID(t *testing.T) {
	gw := &mockGateway{}
	gw.On("ListPosts", mock.Anything).Return([]models.Post{{Title: "ghost"}, {ID: "p1"}}, nil).Once()
	f := New(gw)

	require.NoError(t, f.Load(context.Background()))
	assert.Equal(t, []string{"p1"}, postIDs(f.Posts()))
}

func TestFeed_RefreshKeepsAggregateIdentity(t *testing.T) {
	gw := &mockGateway{}
	gw.On("ListPosts", mock.Anything).Return([]models.Post{{ID: "p1", CommentsCount: 1}, {ID: "p2"}}, nil).Once()
	gw.On("ListPosts", mock.Anything).Return([]models.Post{{ID: "p3"}, {ID: "p1", CommentsCount: 2}}, nil).Once()
	gw.On("ListComments", mock.Anything, "p1").Return([]models.Comment{{ID: "c1", PostID: "p1"}}, nil).Once()
	f := New(gw)
	ctx := context.Background()

	require.NoError(t, f.Load(ctx))
	p1, _ := f.Post("p1")
	p2, _ := f.Post("p2")
	require.NoError(t, p1.RequestComments(ctx))

	require.NoError(t, f.Refresh(ctx))

	assert.Equal(t, []string{"p3", "p1"}, postIDs(f.Posts()))
	again, _ := f.Post("p1")
	assert.Same(t, p1, again)
	view := again.Snapshot()
	assert.Equal(t, Loaded, view.CommentState)
	assert.Equal(t, 2, view.CommentCount)
	assert.Equal(t, 1, again.Comments().Len())

	_, ok := f.Post("p2")
	assert.False(t, ok)
	assert.ErrorIs(t, p2.RequestComments(ctx), ErrClosed)
	gw.AssertNumberOfCalls(t, "ListComments", 1)
}

func TestFeed_Bookmarks(t *testing.T) {
	ctx := context.Background()
	bookmarks := store.NewBookmarks(store.NewMemoryStore(), "ada")
	require.NoError(t, bookmarks.Add(ctx, "p2"))
	gw := &mockGateway{}
	gw.On("ListPosts", mock.Anything).Return([]models.Post{{ID: "p1"}, {ID: "p2"}}, nil).Once()
	f := New(gw, WithBookmarks(bookmarks))

	require.NoError(t, f.Load(ctx))
	assert.False(t, f.IsBookmarked("p1"))
	assert.True(t, f.IsBookmarked("p2"))

	saved, err := f.ToggleBookmark(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, saved)
	saved, err = f.ToggleBookmark(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, saved)

	ids, _ := bookmarks.List(ctx)
	assert.Equal(t, []string{"p1"}, ids)

	_, err = f.ToggleBookmark(ctx, "nope")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestFeed_CloseCancelsInFlightLoad(t *testing.T) {
	gw := &mockGateway{}
	started := make(chan struct{})
	gw.On("ListPosts", mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()
	f := New(gw)

	done := make(chan error, 1)
	go func() { done <- f.Load(context.Background()) }()
	<-started
	f.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("load was not cancelled by Close")
	}
	assert.ErrorIs(t, f.Load(context.Background()), ErrClosed)
}

func TestFeed_ViewerReactionSeedsReactedState(t *testing.T) {
	gw := &mockGateway{}
	gw.On("ListPosts", mock.Anything).Return([]models.Post{
		{ID: "p1", ReactionsCount: 4, ViewerReaction: models.ReactionLove},
		{ID: "p2"},
	}, nil).Once()
	f := New(gw)

	require.NoError(t, f.Load(context.Background()))

	p1, _ := f.Post("p1")
	view := p1.Snapshot()
	assert.True(t, view.Reacted)
	assert.Equal(t, models.ReactionLove, view.ReactionKind)
	assert.Equal(t, 4, view.ReactionCount)

	p2, _ := f.Post("p2")
	assert.False(t, p2.Snapshot().Reacted)
}

func TestFeed_RefreshDuringReactionDoesNotDoubleCount(t *testing.T) {
	gw := &mockGateway{}
	gw.On("ListPosts", mock.Anything).Return([]models.Post{{ID: "p1", ReactionsCount: 2}}, nil).Once()
	gw.On("ListPosts", mock.Anything).Return([]models.Post{{ID: "p1", ReactionsCount: 3}}, nil).Once()
	started := make(chan struct{})
	release := make(chan struct{})
	gw.On("CreateReaction", mock.Anything, models.CreateReactionRequest{PostID: "p1", ReactionTypeID: models.ReactionLike}).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&models.Reaction{ID: "r1", Created: true}, nil).Once()
	f := New(gw)
	ctx := context.Background()
	require.NoError(t, f.Load(ctx))
	p1, _ := f.Post("p1")

	done := make(chan error, 1)
	go func() { done <- p1.React(ctx, models.ReactionLike) }()
	<-started
	require.NoError(t, f.Refresh(ctx))
	assert.Equal(t, 2, p1.Snapshot().ReactionCount)
	close(release)
	require.NoError(t, <-done)

	view := p1.Snapshot()
	assert.Equal(t, 3, view.ReactionCount)
	assert.True(t, view.Reacted)
	assert.Equal(t, models.ReactionLike, view.ReactionKind)
}
