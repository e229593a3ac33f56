package store

import "context"

// Bookmarks is the saved-posts set of one user.
type Bookmarks struct {
	store Store
	key   string
}

// NewBookmarks returns the saved posts of user kept in s.
func NewBookmarks(s Store, user string) *Bookmarks {
	return &Bookmarks{store: s, key: "bookmarks:" + user}
}

func (b *Bookmarks) Add(ctx context.Context, postID string) error {
	return b.store.Add(ctx, b.key, postID)
}

func (b *Bookmarks) Remove(ctx context.Context, postID string) error {
	return b.store.Remove(ctx, b.key, postID)
}

func (b *Bookmarks) List(ctx context.Context) ([]string, error) {
	return b.store.Members(ctx, b.key)
}
