// Package tui is a terminal front end for the feed controllers.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/campus/internal/comments"
	"github.com/anonto42/nano-midea/campus/internal/feed"
	"github.com/anonto42/nano-midea/campus/internal/gateway"
	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	inputHeight    = 3
	requestTimeout = 15 * time.Second
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("249")).Bold(true)
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	reactionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

const helpLine = "j/k move · enter comments · r react · l like · t replies · R reply · c comment · b save · ctrl+r refresh · q quit"

type inputMode int

const (
	modeBrowse inputMode = iota
	modePickReaction
	modeComment
	modeReply
)

// Options configure the terminal front end.
type Options struct {
	Feed   *feed.Feed
	Logger *slog.Logger
}

// Run starts the program and blocks until the user quits.
func Run(opts Options) error {
	model := NewModel(opts)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	model.Close()
	return err
}

// Model is the bubbletea model of the feed screen.
type Model struct {
	feed   *feed.Feed
	logger *slog.Logger

	viewport viewport.Model
	input    textarea.Model

	rows   []row
	cursor int
	mode   inputMode
	target row

	status  string
	failed  bool
	width   int
	height  int
	loading bool
}

// feedMsg reports the completion of a feed load or refresh.
type feedMsg struct{ err error }

// doneMsg reports the completion of an action on a post or comment.
type doneMsg struct {
	status string
	err    error
}

// NewModel returns a model over f. Nothing is fetched until Init.
func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	input := textarea.New()
	input.ShowLineNumbers = false
	input.CharLimit = 2000
	input.SetHeight(inputHeight)
	input.Placeholder = "Write something…"
	input.Blur()

	return &Model{
		feed:     opts.Feed,
		logger:   logger,
		viewport: viewport.New(0, 0),
		input:    input,
		loading:  true,
	}
}

func (m *Model) Init() tea.Cmd {
	return m.loadCmd(false)
}

// Close tears down the feed and any request still in flight.
func (m *Model) Close() {
	if m.feed != nil {
		m.feed.Close()
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case feedMsg:
		m.loading = false
		if msg.err != nil {
			m.setError("load feed", msg.err)
		} else {
			m.setStatus(fmt.Sprintf("%d posts", len(m.feed.Posts())))
		}
		m.refresh()
		return m, nil
	case doneMsg:
		if msg.err != nil {
			m.setError(msg.status, msg.err)
		} else if msg.status != "" {
			m.setStatus(msg.status)
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch m.mode {
	case modeComment, modeReply:
		return m.handleInputKey(msg)
	case modePickReaction:
		return m, m.handleReactionKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		m.move(1)
	case "k", "up":
		m.move(-1)
	case "f5", "ctrl+r":
		m.setStatus("refreshing…")
		return m, m.loadCmd(true)
	case "enter":
		return m, m.commentsCmd()
	case "r":
		if p := m.selectedPost(); p != nil {
			m.mode = modePickReaction
			m.target = m.selected()
			m.setStatus("react: 1 like · 2 love · 3 insightful · 4 celebrate · esc cancel")
		}
	case "l":
		return m, m.likeCmd()
	case "t":
		m.toggleReplies()
	case "R":
		m.openReplyForm()
	case "c":
		m.openCommentForm()
	case "b":
		return m, m.bookmarkCmd()
	}
	m.refresh()
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		m.refresh()
		return m, nil
	case tea.KeyEnter:
		text := m.input.Value()
		var cmd tea.Cmd
		if m.mode == modeReply {
			cmd = m.replyCmd(m.target, text)
		} else {
			cmd = m.commentCmd(m.target, text)
		}
		if cmd == nil {
			return m, nil
		}
		m.input.Reset()
		m.input.Blur()
		m.mode = modeBrowse
		m.resize()
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.saveDraft()
	return m, cmd
}

func (m *Model) handleReactionKey(msg tea.KeyMsg) tea.Cmd {
	target := m.target
	m.mode = modeBrowse
	m.setStatus("")
	key := msg.String()
	if len(key) != 1 || key[0] < '1' || int(key[0]-'1') >= len(models.ReactionTypes) {
		m.refresh()
		return nil
	}
	kind := models.ReactionTypes[key[0]-'1']
	p, ok := m.feed.Post(target.postID)
	if !ok {
		return nil
	}
	m.refresh()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := p.React(ctx, kind); err != nil {
			return doneMsg{status: "react", err: err}
		}
		return doneMsg{status: "reacted " + string(kind)}
	}
}

func (m *Model) View() string {
	lines := []string{m.viewport.View()}
	if m.mode == modeComment || m.mode == modeReply {
		lines = append(lines, m.input.View())
	}
	lines = append(lines, m.statusLine())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) statusLine() string {
	if m.status == "" {
		return statusStyle.Render(helpLine)
	}
	if m.failed {
		return errorStyle.Render(m.status)
	}
	return statusStyle.Render(m.status)
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.failed = false
}

// setError puts a one-line description of err in the status line.
func (m *Model) setError(op string, err error) {
	if errors.Is(err, feed.ErrClosed) || errors.Is(err, comments.ErrClosed) {
		return
	}
	msg := err.Error()
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		switch gwErr.Kind {
		case gateway.KindAuthExpired:
			msg = "session expired, sign in again"
		case gateway.KindTimeout:
			msg = "request timed out"
		case gateway.KindNetwork:
			msg = "cannot reach the server"
		default:
			if gwErr.Message != "" {
				msg = gwErr.Message
			}
		}
	}
	if op != "" {
		msg = op + ": " + msg
	}
	m.status = msg
	m.failed = true
	m.logger.Debug("action failed", "op", op, "error", err)
}

func (m *Model) resize() {
	h := m.height - 1
	if m.mode == modeComment || m.mode == modeReply {
		h -= inputHeight
	}
	if h < 1 {
		h = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.input.SetWidth(m.width)
}

// refresh rebuilds the rows from the controllers and keeps the cursor on the
// same post or comment when it is still visible.
func (m *Model) refresh() {
	prev := m.selected()
	m.rows = buildRows(m.feed.Posts())
	m.cursor = 0
	for i, r := range m.rows {
		if r.kind == prev.kind && r.postID == prev.postID && r.commentID == prev.commentID {
			m.cursor = i
			break
		}
	}

	var b strings.Builder
	switch {
	case m.loading && len(m.rows) == 0:
		b.WriteString(metaStyle.Render("loading feed…"))
	case len(m.rows) == 0:
		b.WriteString(metaStyle.Render("the feed is empty"))
	}
	for i, r := range m.rows {
		if i > 0 && r.kind == postRow {
			b.WriteString("\n")
		}
		b.WriteString(r.render(i == m.cursor))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

func (m *Model) move(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if m.cursor >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func (m *Model) selected() row {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{kind: -1}
	}
	return m.rows[m.cursor]
}

func (m *Model) selectedPost() *feed.Post {
	r := m.selected()
	if r.postID == "" {
		return nil
	}
	p, _ := m.feed.Post(r.postID)
	return p
}

func (m *Model) toggleReplies() {
	r := m.selected()
	if r.kind != commentRow {
		return
	}
	if p := m.selectedPost(); p != nil && p.Comments() != nil {
		if err := p.Comments().ToggleReplies(r.commentID); err != nil {
			m.setError("toggle replies", err)
		}
	}
}

func (m *Model) openReplyForm() {
	r := m.selected()
	p := m.selectedPost()
	if r.kind != commentRow || p == nil || p.Comments() == nil {
		return
	}
	tree := p.Comments()
	st, err := tree.State(r.commentID)
	if err != nil {
		m.setError("reply", err)
		return
	}
	// a failed send leaves the form open on the node; reopen it with the kept draft
	if !st.IsReplying {
		if err := tree.ToggleReplyForm(r.commentID); err != nil {
			m.setError("reply", err)
			return
		}
		if st, err = tree.State(r.commentID); err != nil || !st.IsReplying {
			return
		}
	}
	m.mode = modeReply
	m.target = r
	m.input.SetValue(st.Draft)
	m.input.Focus()
	m.resize()
}

func (m *Model) openCommentForm() {
	r := m.selected()
	p := m.selectedPost()
	if p == nil {
		return
	}
	m.mode = modeComment
	m.target = r
	m.input.SetValue(p.Snapshot().Draft)
	m.input.Focus()
	m.resize()
}

func (m *Model) closeInput() {
	m.saveDraft()
	if m.mode == modeReply {
		if p, ok := m.feed.Post(m.target.postID); ok && p.Comments() != nil {
			_ = p.Comments().ToggleReplyForm(m.target.commentID)
		}
	}
	m.mode = modeBrowse
	m.input.Reset()
	m.input.Blur()
	m.resize()
}

func (m *Model) saveDraft() {
	p, ok := m.feed.Post(m.target.postID)
	if !ok {
		return
	}
	switch m.mode {
	case modeComment:
		p.SetDraft(m.input.Value())
	case modeReply:
		if tree := p.Comments(); tree != nil {
			_ = tree.SetDraft(m.target.commentID, m.input.Value())
		}
	}
}

func (m *Model) loadCmd(refresh bool) tea.Cmd {
	f := m.feed
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if refresh {
			return feedMsg{err: f.Refresh(ctx)}
		}
		return feedMsg{err: f.Load(ctx)}
	}
}

func (m *Model) commentsCmd() tea.Cmd {
	p := m.selectedPost()
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := p.RequestComments(ctx); err != nil {
			return doneMsg{status: "load comments", err: err}
		}
		return doneMsg{}
	}
}

func (m *Model) likeCmd() tea.Cmd {
	r := m.selected()
	p := m.selectedPost()
	if r.kind != commentRow || p == nil || p.Comments() == nil {
		return nil
	}
	tree := p.Comments()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := tree.ToggleLike(ctx, r.commentID); err != nil {
			return doneMsg{status: "like", err: err}
		}
		return doneMsg{}
	}
}

func (m *Model) bookmarkCmd() tea.Cmd {
	p := m.selectedPost()
	if p == nil {
		return nil
	}
	f := m.feed
	id := p.ID()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		saved, err := f.ToggleBookmark(ctx, id)
		if err != nil {
			return doneMsg{status: "bookmark", err: err}
		}
		if saved {
			return doneMsg{status: "saved"}
		}
		return doneMsg{status: "removed from saved"}
	}
}

func (m *Model) commentCmd(target row, text string) tea.Cmd {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	p, ok := m.feed.Post(target.postID)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := p.SubmitTopLevelComment(ctx, text); err != nil {
			return doneMsg{status: "comment", err: err}
		}
		return doneMsg{status: "comment posted"}
	}
}

func (m *Model) replyCmd(target row, text string) tea.Cmd {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	p, ok := m.feed.Post(target.postID)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := p.SubmitReply(ctx, target.commentID, text); err != nil {
			return doneMsg{status: "reply", err: err}
		}
		return doneMsg{status: "reply posted"}
	}
}
