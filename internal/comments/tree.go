// Package comments holds the nested comment tree of a post and the per-node
// interaction state layered on top of it.
package comments

import (
	"slices"

	"github.com/anonto42/nano-midea/campus/internal/models"
)

// MaxLevel is the deepest indentation level a comment is rendered at.
// Descendants below it keep this level.
const MaxLevel = 3

// ChildLevel returns the display level of a child of a node rendered at level.
func ChildLevel(level int) int {
	return min(level+1, MaxLevel)
}

// BuildTree assembles root comments with nested replies from a flat list.
// Roots are ordered newest first, replies oldest first. A comment whose
// parent chain does not reach a root is dropped, which also excludes cycles.
func BuildTree(flat []models.Comment) []models.Comment {
	byParent := make(map[string][]models.Comment)
	roots := make([]models.Comment, 0)
	for _, c := range flat {
		c.Replies = nil
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}

	slices.SortStableFunc(roots, func(a, b models.Comment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	for _, replies := range byParent {
		slices.SortStableFunc(replies, func(a, b models.Comment) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	}

	var attach func(c models.Comment) models.Comment
	attach = func(c models.Comment) models.Comment {
		children, ok := byParent[c.ID]
		if !ok {
			c.Replies = []models.Comment{}
			return c
		}
		// consumed once, so a repeated id cannot adopt the same replies twice
		delete(byParent, c.ID)
		c.Replies = make([]models.Comment, 0, len(children))
		for _, child := range children {
			c.Replies = append(c.Replies, attach(child))
		}
		return c
	}

	out := make([]models.Comment, 0, len(roots))
	for _, r := range roots {
		out = append(out, attach(r))
	}
	return out
}

// Count returns the number of comments in the tree, replies included.
func Count(nodes []models.Comment) int {
	n := len(nodes)
	for i := range nodes {
		n += Count(nodes[i].Replies)
	}
	return n
}

// find locates id in a depth-first walk and reports the level it is rendered at.
func find(nodes []models.Comment, id string, level int) (*models.Comment, int, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i], level, true
		}
		if c, l, ok := find(nodes[i].Replies, id, ChildLevel(level)); ok {
			return c, l, true
		}
	}
	return nil, 0, false
}

// appendReply returns a copy of nodes with reply appended to the replies of
// parentID. Only the path to the parent is copied; nodes itself is untouched.
func appendReply(nodes []models.Comment, parentID string, reply models.Comment) ([]models.Comment, bool) {
	for i := range nodes {
		if nodes[i].ID == parentID {
			out := slices.Clone(nodes)
			replies := make([]models.Comment, 0, len(nodes[i].Replies)+1)
			out[i].Replies = append(append(replies, nodes[i].Replies...), reply)
			return out, true
		}
		if children, ok := appendReply(nodes[i].Replies, parentID, reply); ok {
			out := slices.Clone(nodes)
			out[i].Replies = children
			return out, true
		}
	}
	return nodes, false
}
