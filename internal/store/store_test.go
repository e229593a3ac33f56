package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	members, err := s.Members(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, s.Add(ctx, "k", "b"))
	require.NoError(t, s.Add(ctx, "k", "a"))
	require.NoError(t, s.Add(ctx, "k", "a"))
	members, _ = s.Members(ctx, "k")
	assert.Equal(t, []string{"a", "b"}, members)

	require.NoError(t, s.Remove(ctx, "k", "a"))
	require.NoError(t, s.Remove(ctx, "other", "a"))
	members, _ = s.Members(ctx, "k")
	assert.Equal(t, []string{"b"}, members)
}

func TestBookmarks_AreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ada := NewBookmarks(s, "ada")
	bob := NewBookmarks(s, "bob")

	require.NoError(t, ada.Add(ctx, "p1"))
	require.NoError(t, bob.Add(ctx, "p2"))

	saved, err := ada.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, saved)

	require.NoError(t, ada.Remove(ctx, "p1"))
	saved, _ = ada.List(ctx)
	assert.Empty(t, saved)
	saved, _ = bob.List(ctx)
	assert.Equal(t, []string{"p2"}, saved)
}

func TestBookmarks_KeyLayout(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, NewBookmarks(s, "ada").Add(ctx, "p1"))

	members, err := s.Members(ctx, "bookmarks:ada")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, members)
	assert.Equal(t, "campus:", DefaultRedisPrefix)
}
