package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/anonto42/nano-midea/campus/internal/models"
)

var (
	// ErrCommentNotFound is returned for an id that is not part of the tree.
	ErrCommentNotFound = errors.New("comments: comment not found")
	// ErrClosed is returned once the tree has been torn down.
	ErrClosed = errors.New("comments: tree closed")
)

// Creator submits new comments and returns the server's echo of them.
type Creator interface {
	CreateComment(ctx context.Context, req models.CreateCommentRequest) (*models.Comment, error)
}

// Liker persists comment likes. A Tree without one keeps likes local.
type Liker interface {
	LikeComment(ctx context.Context, commentID string) error
	UnlikeComment(ctx context.Context, commentID string) error
}

// NodeState is the local interaction state of one comment.
type NodeState struct {
	Liked        bool
	LikeCount    int
	ShowReplies  bool
	IsReplying   bool
	Draft        string
	IsSubmitting bool
}

// Row is one visible comment as produced by Rows.
type Row struct {
	Comment    models.Comment
	Level      int
	ReplyCount int
	State      NodeState
}

// Option configures a Tree.
type Option func(*Tree)

// WithLiker sends like toggles through l, rolling them back on failure.
func WithLiker(l Liker) Option {
	return func(t *Tree) { t.liker = l }
}

// WithLogger sets the logger used for failed submissions.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.logger = l
		}
	}
}

// Tree is the comment tree of a single post. The comment values are never
// mutated in place: a merged reply replaces the path to its parent. Per-node
// interaction state lives beside the tree, keyed by comment id.
type Tree struct {
	mu      sync.Mutex
	postID  string
	roots   []models.Comment
	state   map[string]*NodeState
	creator Creator
	liker   Liker
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewTree returns a controller over roots for postID.
func NewTree(postID string, roots []models.Comment, creator Creator, opts ...Option) *Tree {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tree{
		postID:  postID,
		roots:   roots,
		state:   make(map[string]*NodeState),
		creator: creator,
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PostID returns the post the tree belongs to.
func (t *Tree) PostID() string {
	return t.postID
}

// Roots returns the current root comments.
func (t *Tree) Roots() []models.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.roots)
}

// Len returns the number of comments held, replies included.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Count(t.roots)
}

// Prepend puts c in front of the root comments.
func (t *Tree) Prepend(c models.Comment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	roots := make([]models.Comment, 0, len(t.roots)+1)
	t.roots = append(append(roots, c), t.roots...)
}

// State returns a copy of the interaction state of id.
func (t *Tree) State(id string) (NodeState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _, st, err := t.nodeLocked(id)
	if err != nil {
		return NodeState{}, err
	}
	return *st, nil
}

// Level returns the display level of id.
func (t *Tree) Level(id string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, level, _, err := t.nodeLocked(id)
	return level, err
}

// Rows walks the tree depth first and returns the visible comments. Replies
// of a node are included only while its ShowReplies is set.
func (t *Tree) Rows() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()

	var rows []Row
	var visit func(nodes []models.Comment, level int)
	visit = func(nodes []models.Comment, level int) {
		for i := range nodes {
			c := &nodes[i]
			st := t.stateLocked(c, level)
			rows = append(rows, Row{
				Comment:    *c,
				Level:      level,
				ReplyCount: len(c.Replies),
				State:      *st,
			})
			if st.ShowReplies && len(c.Replies) > 0 {
				visit(c.Replies, ChildLevel(level))
			}
		}
	}
	visit(t.roots, 0)
	return rows
}

// ToggleReplies flips whether the replies of id are shown. It never fetches.
func (t *Tree) ToggleReplies(id string) error {
	return t.update(id, func(st *NodeState) { st.ShowReplies = !st.ShowReplies })
}

// ToggleReplyForm flips the inline reply form of id.
func (t *Tree) ToggleReplyForm(id string) error {
	return t.update(id, func(st *NodeState) { st.IsReplying = !st.IsReplying })
}

// SetDraft stores the reply text being typed under id.
func (t *Tree) SetDraft(id, text string) error {
	return t.update(id, func(st *NodeState) { st.Draft = text })
}

// ToggleLike flips the like on id and moves its counter with it. The change
// is applied before any network call; when a Liker is set and the call fails
// the flip is undone.
func (t *Tree) ToggleLike(ctx context.Context, id string) error {
	t.mu.Lock()
	if t.ctx.Err() != nil {
		t.mu.Unlock()
		return ErrClosed
	}
	_, _, st, err := t.nodeLocked(id)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	flipLike(st)
	liked := st.Liked
	liker := t.liker
	t.mu.Unlock()

	if liker == nil {
		return nil
	}

	ctx, done := t.bind(ctx)
	defer done()
	if liked {
		err = liker.LikeComment(ctx, id)
	} else {
		err = liker.UnlikeComment(ctx, id)
	}
	if err == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx.Err() != nil {
		return ErrClosed
	}
	t.logger.Error("failed to send comment like", "comment_id", id, "liked", liked, "error", err)
	// a later toggle already moved the state on
	if st.Liked == liked {
		flipLike(st)
	}
	return fmt.Errorf("comments: like %s: %w", id, err)
}

// SubmitReply sends text as a reply to id. Blank text, or a reply already in
// flight for id, makes it a no-op returning (nil, nil). On success the echoed
// reply is appended under id, the draft is cleared, the reply form closes and
// the replies of id are shown. On failure the draft is kept.
func (t *Tree) SubmitReply(ctx context.Context, id, text string) (*models.Comment, error) {
	body := strings.TrimSpace(text)
	if body == "" {
		return nil, nil
	}

	t.mu.Lock()
	if t.ctx.Err() != nil {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	_, _, st, err := t.nodeLocked(id)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if st.IsSubmitting {
		t.mu.Unlock()
		return nil, nil
	}
	st.IsSubmitting = true
	st.Draft = text
	t.mu.Unlock()

	ctx, done := t.bind(ctx)
	defer done()
	parentID := id
	created, err := t.creator.CreateComment(ctx, models.CreateCommentRequest{
		Body:            body,
		PostID:          t.postID,
		ParentCommentID: &parentID,
	})
	if err == nil && created == nil {
		err = errors.New("empty response")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx.Err() != nil {
		return nil, ErrClosed
	}
	st.IsSubmitting = false
	if err != nil {
		t.logger.Error("failed to submit reply", "post_id", t.postID, "parent_id", id, "error", err)
		return nil, fmt.Errorf("comments: reply to %s: %w", id, err)
	}

	reply := *created
	if reply.ParentID == nil {
		reply.ParentID = &parentID
	}
	if reply.PostID == "" {
		reply.PostID = t.postID
	}
	if roots, ok := appendReply(t.roots, id, reply); ok {
		t.roots = roots
	}
	st.Draft = ""
	st.IsReplying = false
	st.ShowReplies = true
	return &reply, nil
}

// Close tears the tree down. Requests in flight are cancelled and their
// completions no longer touch the state.
func (t *Tree) Close() {
	t.cancel()
}

func (t *Tree) update(id string, fn func(st *NodeState)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _, st, err := t.nodeLocked(id)
	if err != nil {
		return err
	}
	fn(st)
	return nil
}

func (t *Tree) nodeLocked(id string) (*models.Comment, int, *NodeState, error) {
	c, level, ok := find(t.roots, id, 0)
	if !ok {
		return nil, 0, nil, fmt.Errorf("%w: %s", ErrCommentNotFound, id)
	}
	return c, level, t.stateLocked(c, level), nil
}

func (t *Tree) stateLocked(c *models.Comment, level int) *NodeState {
	st, ok := t.state[c.ID]
	if !ok {
		st = &NodeState{
			LikeCount:   c.LikesCount,
			ShowReplies: level < 2,
		}
		t.state[c.ID] = st
	}
	return st
}

// bind derives a request context that is also cancelled by Close.
func (t *Tree) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(t.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func flipLike(st *NodeState) {
	st.Liked = !st.Liked
	if st.Liked {
		st.LikeCount++
	} else if st.LikeCount > 0 {
		st.LikeCount--
	}
}
