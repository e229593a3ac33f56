package comments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCreator struct{ mock.Mock }

func (m *mockCreator) CreateComment(ctx context.Context, req models.CreateCommentRequest) (*models.Comment, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*models.Comment)
	return c, args.Error(1)
}

type mockLiker struct{ mock.Mock }

func (m *mockLiker) LikeComment(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockLiker) UnlikeComment(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func rowIDs(rows []Row) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Comment.ID)
	}
	return ids
}

func TestTree_InitialVisibilityExpandsFirstTwoLevels(t *testing.T) {
	tree := NewTree("p1", chain(5), &mockCreator{})

	rows := tree.Rows()

	assert.Equal(t, []string{"r0", "c1", "c2"}, rowIDs(rows))
	assert.True(t, rows[0].State.ShowReplies)
	assert.True(t, rows[1].State.ShowReplies)
	assert.False(t, rows[2].State.ShowReplies)
	assert.Equal(t, 1, rows[2].ReplyCount)
}

func TestTree_DepthClampOnFiveReplyChain(t *testing.T) {
	tree := NewTree("p1", chain(5), &mockCreator{})
	for _, id := range []string{"c2", "c3", "c4"} {
		require.NoError(t, tree.ToggleReplies(id))
	}

	rows := tree.Rows()

	require.Equal(t, []string{"r0", "c1", "c2", "c3", "c4", "c5"}, rowIDs(rows))
	levels := make([]int, 0, len(rows))
	for _, r := range rows {
		levels = append(levels, r.Level)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 3, 3}, levels)

	for _, id := range []string{"c3", "c4", "c5"} {
		level, err := tree.Level(id)
		require.NoError(t, err)
		assert.Equal(t, MaxLevel, level, id)
	}
}

func TestTree_ToggleRepliesIsInvolution(t *testing.T) {
	tree := NewTree("p1", chain(3), &mockCreator{})

	for _, id := range []string{"r0", "c1", "c2", "c3"} {
		before, err := tree.State(id)
		require.NoError(t, err)

		require.NoError(t, tree.ToggleReplies(id))
		mid, _ := tree.State(id)
		assert.NotEqual(t, before.ShowReplies, mid.ShowReplies)

		require.NoError(t, tree.ToggleReplies(id))
		after, _ := tree.State(id)
		assert.Equal(t, before, after, id)
	}
}

func TestTree_ToggleReplyForm(t *testing.T) {
	tree := NewTree("p1", chain(1), &mockCreator{})

	require.NoError(t, tree.ToggleReplyForm("c1"))
	st, _ := tree.State("c1")
	assert.True(t, st.IsReplying)
	assert.Equal(t, NodeState{IsReplying: true, ShowReplies: true}, st)

	require.NoError(t, tree.ToggleReplyForm("c1"))
	st, _ = tree.State("c1")
	assert.False(t, st.IsReplying)
}

func TestTree_UnknownComment(t *testing.T) {
	tree := NewTree("p1", chain(1), &mockCreator{})

	assert.ErrorIs(t, tree.ToggleReplies("zzz"), ErrCommentNotFound)
	assert.ErrorIs(t, tree.ToggleReplyForm("zzz"), ErrCommentNotFound)
	assert.ErrorIs(t, tree.ToggleLike(context.Background(), "zzz"), ErrCommentNotFound)
	_, err := tree.SubmitReply(context.Background(), "zzz", "hi")
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestTree_ToggleLikeIsInvolution(t *testing.T) {
	roots := chain(1)
	roots[0].LikesCount = 7
	tree := NewTree("p1", roots, &mockCreator{})
	ctx := context.Background()

	require.NoError(t, tree.ToggleLike(ctx, "r0"))
	st, _ := tree.State("r0")
	assert.True(t, st.Liked)
	assert.Equal(t, 8, st.LikeCount)

	require.NoError(t, tree.ToggleLike(ctx, "r0"))
	st, _ = tree.State("r0")
	assert.False(t, st.Liked)
	assert.Equal(t, 7, st.LikeCount)
}

func TestTree_ToggleLikeSendsThroughLiker(t *testing.T) {
	liker := &mockLiker{}
	liker.On("LikeComment", mock.Anything, "c1").Return(nil).Once()
	liker.On("UnlikeComment", mock.Anything, "c1").Return(nil).Once()
	tree := NewTree("p1", chain(1), &mockCreator{}, WithLiker(liker))

	require.NoError(t, tree.ToggleLike(context.Background(), "c1"))
	require.NoError(t, tree.ToggleLike(context.Background(), "c1"))

	liker.AssertExpectations(t)
	st, _ := tree.State("c1")
	assert.False(t, st.Liked)
	assert.Equal(t, 0, st.LikeCount)
}

func TestTree_ToggleLikeRollsBackOnFailure(t *testing.T) {
	liker := &mockLiker{}
	liker.On("LikeComment", mock.Anything, "r0").Return(errors.New("boom"))
	roots := chain(0)
	roots[0].LikesCount = 2
	tree := NewTree("p1", roots, &mockCreator{}, WithLiker(liker))

	err := tree.ToggleLike(context.Background(), "r0")

	require.Error(t, err)
	st, _ := tree.State("r0")
	assert.False(t, st.Liked)
	assert.Equal(t, 2, st.LikeCount)
}

func TestTree_SubmitReplyBlankIsNoop(t *testing.T) {
	creator := &mockCreator{}
	tree := NewTree("p1", chain(1), creator)

	for _, text := range []string{"", "   ", "\n\t "} {
		created, err := tree.SubmitReply(context.Background(), "c1", text)
		assert.NoError(t, err)
		assert.Nil(t, created)
	}

	creator.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything)
	st, _ := tree.State("c1")
	assert.False(t, st.IsSubmitting)
}

func TestTree_SubmitReplyMergesEcho(t *testing.T) {
	creator := &mockCreator{}
	echo := &models.Comment{ID: "new", PostID: "p1", ParentID: ptr("r0"), Body: "thanks"}
	creator.On("CreateComment", mock.Anything, models.CreateCommentRequest{
		Body:            "thanks",
		PostID:          "p1",
		ParentCommentID: ptr("r0"),
	}).Return(echo, nil).Once()
	tree := NewTree("p1", chain(1), creator)
	before := tree.Roots()
	require.NoError(t, tree.ToggleReplies("r0"))
	require.NoError(t, tree.ToggleReplyForm("r0"))

	created, err := tree.SubmitReply(context.Background(), "r0", "  thanks ")

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "new", created.ID)
	creator.AssertExpectations(t)

	st, _ := tree.State("r0")
	assert.Equal(t, "", st.Draft)
	assert.True(t, st.ShowReplies)
	assert.False(t, st.IsReplying)
	assert.False(t, st.IsSubmitting)

	roots := tree.Roots()
	require.Len(t, roots[0].Replies, 2)
	assert.Equal(t, "new", roots[0].Replies[1].ID)
	assert.Len(t, before[0].Replies, 1, "earlier snapshot must not change")
	assert.Equal(t, 3, tree.Len())
}

func TestTree_SubmitReplyFailureKeepsDraft(t *testing.T) {
	creator := &mockCreator{}
	creator.On("CreateComment", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	tree := NewTree("p1", chain(1), creator)
	require.NoError(t, tree.ToggleReplyForm("c1"))

	created, err := tree.SubmitReply(context.Background(), "c1", "draft text")

	require.Error(t, err)
	assert.Nil(t, created)
	st, _ := tree.State("c1")
	assert.Equal(t, "draft text", st.Draft)
	assert.False(t, st.IsSubmitting)
	assert.True(t, st.IsReplying)
	assert.Equal(t, 2, tree.Len())
}

func TestTree_SubmitReplyIgnoredWhileInFlight(t *testing.T) {
	creator := &mockCreator{}
	started := make(chan struct{})
	release := make(chan struct{})
	creator.On("CreateComment", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&models.Comment{ID: "r1"}, nil).Once()
	tree := NewTree("p1", chain(0), creator)

	done := make(chan error, 1)
	go func() {
		_, err := tree.SubmitReply(context.Background(), "r0", "first")
		done <- err
	}()
	<-started

	st, _ := tree.State("r0")
	assert.True(t, st.IsSubmitting)
	created, err := tree.SubmitReply(context.Background(), "r0", "second")
	assert.NoError(t, err)
	assert.Nil(t, created)

	close(release)
	require.NoError(t, <-done)
	creator.AssertNumberOfCalls(t, "CreateComment", 1)
}

func TestTree_CloseDiscardsLateCompletion(t *testing.T) {
	creator := &mockCreator{}
	started := make(chan struct{})
	creator.On("CreateComment", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()
	tree := NewTree("p1", chain(0), creator)

	done := make(chan error, 1)
	go func() {
		_, err := tree.SubmitReply(context.Background(), "r0", "late")
		done <- err
	}()
	<-started
	tree.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("submission was not cancelled by Close")
	}
	assert.Equal(t, 1, tree.Len())
}

func TestTree_Prepend(t *testing.T) {
	tree := NewTree("p1", nil, &mockCreator{})
	tree.Prepend(models.Comment{ID: "a", Body: "first"})
	tree.Prepend(models.Comment{ID: "b", Body: "second"})

	assert.Equal(t, []string{"b", "a"}, rowIDs(tree.Rows()))
}
