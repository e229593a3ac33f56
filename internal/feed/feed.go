package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/anonto42/nano-midea/campus/internal/models"
)

// Bookmarks persists the ids of saved posts.
type Bookmarks interface {
	Add(ctx context.Context, postID string) error
	Remove(ctx context.Context, postID string) error
	List(ctx context.Context) ([]string, error)
}

// Feed holds the posts of the feed in server order, one Post per id.
type Feed struct {
	mu      sync.Mutex
	gateway Gateway
	opts    *options

	state LoadState
	order []string
	posts map[string]*Post

	ctx    context.Context
	cancel context.CancelFunc
}

// New returns an empty feed backed by gw.
func New(gw Gateway, opts ...Option) *Feed {
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed{
		gateway: gw,
		opts:    newOptions(opts),
		posts:   make(map[string]*Post),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// State reports whether the feed has been fetched.
func (f *Feed) State() LoadState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Load fetches the feed once. Calls while a fetch is in flight, or after it
// succeeded, do nothing; a failed fetch can be retried.
func (f *Feed) Load(ctx context.Context) error {
	f.mu.Lock()
	if f.ctx.Err() != nil {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.state != Unloaded {
		f.mu.Unlock()
		return nil
	}
	f.state = Loading
	f.mu.Unlock()

	return f.fetch(ctx, Unloaded)
}

// Refresh fetches the feed again. Posts whose id is still present keep their
// aggregate, and with it loaded comments and reaction state.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	if f.ctx.Err() != nil {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.state == Loading {
		f.mu.Unlock()
		return nil
	}
	prev := f.state
	f.state = Loading
	f.mu.Unlock()

	return f.fetch(ctx, prev)
}

func (f *Feed) fetch(ctx context.Context, onFailure LoadState) error {
	ctx, cancel := context.WithCancel(ctx)
	defer context.AfterFunc(f.ctx, cancel)()
	defer cancel()

	records, err := f.gateway.ListPosts(ctx)
	var saved []string
	if err == nil && f.opts.bookmarks != nil {
		var bmErr error
		if saved, bmErr = f.opts.bookmarks.List(ctx); bmErr != nil {
			f.opts.logger.Warn("failed to read bookmarks", "error", bmErr)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ctx.Err() != nil {
		return ErrClosed
	}
	if err != nil {
		f.state = onFailure
		f.opts.logger.Error("failed to load feed", "error", err)
		return fmt.Errorf("feed: load posts: %w", err)
	}
	f.mergeLocked(records)
	if saved != nil {
		savedSet := make(map[string]bool, len(saved))
		for _, id := range saved {
			savedSet[id] = true
		}
		for id, p := range f.posts {
			p.setBookmarked(savedSet[id])
		}
	}
	f.state = Loaded
	return nil
}

// mergeLocked installs records in order. A repeated id keeps the position of
// its first occurrence and takes the data of its last one.
func (f *Feed) mergeLocked(records []models.Post) {
	order := make([]string, 0, len(records))
	next := make(map[string]*Post, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			f.opts.logger.Warn("skipping post without id", "title", rec.Title)
			continue
		}
		if p, seen := next[rec.ID]; seen {
			f.opts.logger.Warn("duplicate post id in feed", "post_id", rec.ID)
			p.refresh(rec)
			continue
		}
		p, ok := f.posts[rec.ID]
		if ok {
			p.refresh(rec)
		} else {
			p = newPost(f.ctx, rec, f.gateway, f.opts)
		}
		next[rec.ID] = p
		order = append(order, rec.ID)
	}
	for id, p := range f.posts {
		if _, kept := next[id]; !kept {
			p.Close()
		}
	}
	f.order = order
	f.posts = next
}

// Posts returns the mounted posts in server order.
func (f *Feed) Posts() []*Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Post, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.posts[id])
	}
	return out
}

// Post returns the aggregate for id.
func (f *Feed) Post(id string) (*Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	return p, ok
}

// ToggleBookmark saves or unsaves a post and returns the new state.
func (f *Feed) ToggleBookmark(ctx context.Context, id string) (bool, error) {
	p, ok := f.Post(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	if f.opts.bookmarks == nil {
		return false, fmt.Errorf("feed: bookmarks are not configured")
	}

	saved := !p.Snapshot().Bookmarked
	var err error
	if saved {
		err = f.opts.bookmarks.Add(ctx, id)
	} else {
		err = f.opts.bookmarks.Remove(ctx, id)
	}
	if err != nil {
		f.opts.logger.Error("failed to update bookmark", "post_id", id, "error", err)
		return !saved, fmt.Errorf("feed: bookmark %s: %w", id, err)
	}
	p.setBookmarked(saved)
	return saved, nil
}

// Close tears down the feed and every post in it.
func (f *Feed) Close() {
	f.cancel()
	f.mu.Lock()
	posts := make([]*Post, 0, len(f.posts))
	for _, p := range f.posts {
		posts = append(posts, p)
	}
	f.mu.Unlock()
	for _, p := range posts {
		p.Close()
	}
}

// IsBookmarked reports whether the post id is saved.
func (f *Feed) IsBookmarked(id string) bool {
	p, ok := f.Post(id)
	return ok && p.Snapshot().Bookmarked
}
