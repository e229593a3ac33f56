package tui

import (
	"fmt"
	"strings"

	"github.com/anonto42/nano-midea/campus/internal/comments"
	"github.com/anonto42/nano-midea/campus/internal/feed"
	"github.com/anonto42/nano-midea/campus/internal/models"
)

type rowKind int

const (
	postRow rowKind = iota
	commentRow
	statusRow
)

// row is one selectable line of the feed view.
type row struct {
	kind      rowKind
	postID    string
	commentID string
	level     int
	post      feed.PostView
	comment   comments.Row
	note      string
}

// buildRows flattens the feed into display order: each post followed by its
// visible comments when they are shown.
func buildRows(posts []*feed.Post) []row {
	var rows []row
	for _, p := range posts {
		view := p.Snapshot()
		rows = append(rows, row{kind: postRow, postID: p.ID(), post: view})
		switch {
		case view.CommentState == feed.Loading:
			rows = append(rows, row{kind: statusRow, postID: p.ID(), level: 1, note: "loading comments..."})
		case view.CommentState == feed.Loaded && view.CommentsVisible:
			tree := p.Comments()
			if tree == nil {
				continue
			}
			crs := tree.Rows()
			if len(crs) == 0 {
				rows = append(rows, row{kind: statusRow, postID: p.ID(), level: 1, note: "no comments yet"})
			}
			for _, cr := range crs {
				rows = append(rows, row{
					kind:      commentRow,
					postID:    p.ID(),
					commentID: cr.Comment.ID,
					level:     cr.Level + 1,
					comment:   cr,
				})
			}
		}
	}
	return rows
}

func (r row) render(selected bool) string {
	var line string
	switch r.kind {
	case postRow:
		line = renderPost(r.post)
	case commentRow:
		line = renderComment(r.comment)
	default:
		line = metaStyle.Render(r.note)
	}
	indent := strings.Repeat("  ", r.level)
	if selected {
		return selectedStyle.Render("›") + " " + indent + line
	}
	return "  " + indent + line
}

func renderPost(v feed.PostView) string {
	var b strings.Builder
	title := v.Post.Title
	if title == "" {
		title = "(untitled)"
	}
	b.WriteString(titleStyle.Render(title))
	if name := v.Post.Author.Name; name != "" {
		b.WriteString(metaStyle.Render(" · " + name))
		if v.Post.Author.Verified {
			b.WriteString(metaStyle.Render(" ✓"))
		}
	}
	if v.Post.Media != nil {
		b.WriteString(metaStyle.Render(fmt.Sprintf(" [%s]", v.Post.Media.Kind)))
	}
	if v.Bookmarked {
		b.WriteString(reactionStyle.Render(" ★"))
	}

	reaction := fmt.Sprintf("%d reactions", v.ReactionCount)
	if v.Reacted {
		reaction = fmt.Sprintf("%s %d", reactionGlyph(v.ReactionKind), v.ReactionCount)
	}
	if v.Reacting {
		reaction += "…"
	}
	stats := fmt.Sprintf("  %s · %d comments", reaction, v.CommentCount)
	if v.Post.Rating > 0 {
		stats += fmt.Sprintf(" · %.1f★", v.Post.Rating)
	}
	if v.Submitting {
		stats += " · sending…"
	}
	b.WriteString(metaStyle.Render(stats))
	return b.String()
}

func renderComment(cr comments.Row) string {
	var b strings.Builder
	name := cr.Comment.Author.Name
	if name == "" {
		name = "anonymous"
	}
	b.WriteString(userStyle.Render(name))
	b.WriteString(": ")
	b.WriteString(textStyle.Render(cr.Comment.Body))

	like := fmt.Sprintf("♡ %d", cr.State.LikeCount)
	if cr.State.Liked {
		like = reactionStyle.Render(fmt.Sprintf("♥ %d", cr.State.LikeCount))
	}
	meta := "  " + like
	if cr.ReplyCount > 0 {
		verb := "show"
		if cr.State.ShowReplies {
			verb = "hide"
		}
		meta += fmt.Sprintf(" · %d replies (t to %s)", cr.ReplyCount, verb)
	}
	if cr.State.IsReplying {
		meta += " · replying"
	}
	if cr.State.IsSubmitting {
		meta += " · sending…"
	}
	b.WriteString(metaStyle.Render(meta))
	return b.String()
}

func reactionGlyph(kind models.ReactionType) string {
	switch kind {
	case models.ReactionLike:
		return "👍"
	case models.ReactionLove:
		return "❤"
	case models.ReactionInsightful:
		return "💡"
	case models.ReactionCelebrate:
		return "🎉"
	default:
		return string(kind)
	}
}
