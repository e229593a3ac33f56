// Package feed keeps the list of posts a client has mounted and the local
// state layered on each of them: lazily loaded comments, drafts, reactions.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/anonto42/nano-midea/campus/internal/comments"
	"github.com/anonto42/nano-midea/campus/internal/models"
)

var (
	// ErrClosed is returned once a post or feed has been torn down.
	ErrClosed = errors.New("feed: closed")
	// ErrCommentsNotLoaded is returned for reply operations before the
	// comments of a post were loaded.
	ErrCommentsNotLoaded = errors.New("feed: comments not loaded")
	// ErrPostNotFound is returned for an id the feed does not hold.
	ErrPostNotFound = errors.New("feed: post not found")
	// ErrUnknownReaction is returned for a reaction kind outside the catalogue.
	ErrUnknownReaction = errors.New("feed: unknown reaction type")
)

// Gateway is the slice of the feed API used by this package.
type Gateway interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	CreateComment(ctx context.Context, req models.CreateCommentRequest) (*models.Comment, error)
	CreateReaction(ctx context.Context, req models.CreateReactionRequest) (*models.Reaction, error)
}

// LoadState tracks a one-shot fetch.
type LoadState int

const (
	Unloaded LoadState = iota
	Loading
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// PostView is a point-in-time copy of a post and its local state.
type PostView struct {
	Post            models.Post
	CommentState    LoadState
	CommentsVisible bool
	CommentCount    int
	ReactionCount   int
	Reacted         bool
	ReactionKind    models.ReactionType
	Reacting        bool
	Draft           string
	Submitting      bool
	Bookmarked      bool
}

// Post is the client-side aggregate of one feed post.
type Post struct {
	mu      sync.Mutex
	id      string
	data    models.Post
	gateway Gateway
	opts    *options

	commentState    LoadState
	commentsVisible bool
	tree            *comments.Tree

	draft      string
	submitting bool

	reacting      bool
	reacted       bool
	reactionKind  models.ReactionType
	reactionCount int
	commentCount  int
	bookmarked    bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPost wraps data. The post is torn down when parent is cancelled or
// Close is called.
func NewPost(parent context.Context, data models.Post, gw Gateway, opts ...Option) *Post {
	return newPost(parent, data, gw, newOptions(opts))
}

func newPost(parent context.Context, data models.Post, gw Gateway, o *options) *Post {
	ctx, cancel := context.WithCancel(parent)
	return &Post{
		id:            data.ID,
		data:          data,
		gateway:       gw,
		opts:          o,
		reacted:       data.ViewerReaction != "",
		reactionKind:  data.ViewerReaction,
		reactionCount: data.ReactionsCount,
		commentCount:  data.CommentsCount,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// ID returns the post id.
func (p *Post) ID() string {
	return p.id
}

// Snapshot returns a copy of the post and its local state.
func (p *Post) Snapshot() PostView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PostView{
		Post:            p.data,
		CommentState:    p.commentState,
		CommentsVisible: p.commentsVisible,
		CommentCount:    p.commentCount,
		ReactionCount:   p.reactionCount,
		Reacted:         p.reacted,
		ReactionKind:    p.reactionKind,
		Reacting:        p.reacting,
		Draft:           p.draft,
		Submitting:      p.submitting,
		Bookmarked:      p.bookmarked,
	}
}

// CommentCount is the server-reported comment count plus the comments this
// client created since. It does not depend on how many comments are loaded.
func (p *Post) CommentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commentCount
}

// Comments returns the loaded comment tree, or nil before the first
// successful RequestComments.
func (p *Post) Comments() *comments.Tree {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tree
}

// RequestComments loads the comments of the post on first use. While a load
// is in flight further calls do nothing; once loaded, calls only toggle the
// visibility of the list. A failed load returns to Unloaded so the next call
// retries.
func (p *Post) RequestComments(ctx context.Context) error {
	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return ErrClosed
	}
	switch p.commentState {
	case Loading:
		p.mu.Unlock()
		return nil
	case Loaded:
		p.commentsVisible = !p.commentsVisible
		p.mu.Unlock()
		return nil
	}
	p.commentState = Loading
	p.mu.Unlock()

	ctx, done := p.bind(ctx)
	defer done()
	roots, err := p.gateway.ListComments(ctx, p.id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx.Err() != nil {
		return ErrClosed
	}
	if err != nil {
		p.commentState = Unloaded
		p.opts.logger.Error("failed to load comments", "post_id", p.id, "error", err)
		return fmt.Errorf("feed: load comments of %s: %w", p.id, err)
	}
	if roots == nil {
		roots = []models.Comment{}
	}
	p.tree = comments.NewTree(p.id, roots, p.gateway, p.opts.treeOptions()...)
	p.commentState = Loaded
	p.commentsVisible = true
	return nil
}

// SetDraft stores the top-level comment being typed.
func (p *Post) SetDraft(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft = text
}

// SubmitTopLevelComment posts text as a root comment. Blank text, or a
// submission already in flight, makes it a no-op returning (nil, nil). The
// created comment is put in front of the loaded root comments; when comments
// were never loaded it is left for the first load to bring in.
func (p *Post) SubmitTopLevelComment(ctx context.Context, text string) (*models.Comment, error) {
	body := strings.TrimSpace(text)
	if body == "" {
		return nil, nil
	}

	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if p.submitting {
		p.mu.Unlock()
		return nil, nil
	}
	p.submitting = true
	p.draft = text
	p.mu.Unlock()

	ctx, done := p.bind(ctx)
	defer done()
	created, err := p.gateway.CreateComment(ctx, models.CreateCommentRequest{
		Body:   body,
		PostID: p.id,
	})
	if err == nil && created == nil {
		err = errors.New("empty response")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx.Err() != nil {
		return nil, ErrClosed
	}
	p.submitting = false
	if err != nil {
		p.opts.logger.Error("failed to submit comment", "post_id", p.id, "error", err)
		return nil, fmt.Errorf("feed: comment on %s: %w", p.id, err)
	}

	p.draft = ""
	p.commentCount++
	if p.commentState == Loaded && p.tree != nil {
		p.tree.Prepend(*created)
	}
	return created, nil
}

// SubmitReply sends a reply to commentID through the loaded comment tree and
// counts it on success.
func (p *Post) SubmitReply(ctx context.Context, commentID, text string) (*models.Comment, error) {
	tree := p.Comments()
	if tree == nil {
		return nil, ErrCommentsNotLoaded
	}
	ctx, done := p.bind(ctx)
	defer done()
	created, err := tree.SubmitReply(ctx, commentID, text)
	if err != nil || created == nil {
		return created, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx.Err() != nil {
		return nil, ErrClosed
	}
	p.commentCount++
	return created, nil
}

// React sends a reaction of the given kind. Local state only changes after
// the API accepted it: the post is marked as reacted and the count grows by
// one when the reaction is new rather than a change of kind.
func (p *Post) React(ctx context.Context, kind models.ReactionType) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownReaction, kind)
	}

	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.reacting {
		p.mu.Unlock()
		return nil
	}
	p.reacting = true
	p.mu.Unlock()

	ctx, done := p.bind(ctx)
	defer done()
	reaction, err := p.gateway.CreateReaction(ctx, models.CreateReactionRequest{
		PostID:         p.id,
		ReactionTypeID: kind,
	})
	if err == nil && reaction == nil {
		err = errors.New("empty response")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx.Err() != nil {
		return ErrClosed
	}
	p.reacting = false
	if err != nil {
		p.opts.logger.Error("failed to react", "post_id", p.id, "reaction", kind, "error", err)
		return fmt.Errorf("feed: react to %s: %w", p.id, err)
	}
	if reaction.Created {
		p.reactionCount++
	}
	p.reacted = true
	p.reactionKind = kind
	return nil
}

// Close tears the post down. In-flight requests are cancelled and their
// completions are discarded.
func (p *Post) Close() {
	p.cancel()
	p.mu.Lock()
	tree := p.tree
	p.mu.Unlock()
	if tree != nil {
		tree.Close()
	}
}

// refresh replaces the server data of the post, keeping local state.
func (p *Post) refresh(data models.Post) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = data
	// counts are left alone while a request is in flight; its completion
	// applies the local increment and the next refresh settles the total
	if !p.reacting {
		p.reactionCount = data.ReactionsCount
	}
	if !p.submitting {
		p.commentCount = data.CommentsCount
	}
	if data.ViewerReaction != "" && !p.reacting {
		p.reacted = true
		p.reactionKind = data.ViewerReaction
	}
}

func (p *Post) setBookmarked(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bookmarked = v
}

// bind derives a request context that is also cancelled by Close.
func (p *Post) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(p.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

type options struct {
	logger    *slog.Logger
	liker     comments.Liker
	bookmarks Bookmarks
}

// Option configures a Feed and the posts it creates.
type Option func(*options)

// WithLogger sets the logger for failed calls.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCommentLiker persists comment likes through l.
func WithCommentLiker(l comments.Liker) Option {
	return func(o *options) { o.liker = l }
}

// WithBookmarks keeps saved posts in b.
func WithBookmarks(b Bookmarks) Option {
	return func(o *options) { o.bookmarks = b }
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) treeOptions() []comments.Option {
	out := []comments.Option{comments.WithLogger(o.logger)}
	if o.liker != nil {
		out = append(out, comments.WithLiker(o.liker))
	}
	return out
}
