// Package gateway is the client side of the feed REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/campus/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token attached to requests. Invalidate is
// called when the API answers 401; what happens next is up to the source.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Config holds the settings of a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client calls the feed API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// New creates a Client for cfg. tokens may be nil for anonymous access.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base URL %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListPosts fetches the feed in server order.
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, "list posts", http.MethodGet, "/posts", nil, &posts, true); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListComments fetches the root comments of a post with their replies nested.
func (c *Client) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var roots []models.Comment
	path := "/comments/" + url.PathEscape(postID)
	if err := c.do(ctx, "list comments", http.MethodGet, path, nil, &roots, true); err != nil {
		return nil, err
	}
	return roots, nil
}

// CreateComment submits a root comment or, with ParentCommentID set, a reply.
func (c *Client) CreateComment(ctx context.Context, req models.CreateCommentRequest) (*models.Comment, error) {
	var created models.Comment
	if err := c.do(ctx, "create comment", http.MethodPost, "/comments", req, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateReaction reacts to a post.
func (c *Client) CreateReaction(ctx context.Context, req models.CreateReactionRequest) (*models.Reaction, error) {
	var reaction models.Reaction
	if err := c.do(ctx, "create reaction", http.MethodPost, "/reactions", req, &reaction, true); err != nil {
		return nil, err
	}
	return &reaction, nil
}

// LikeComment likes a comment.
func (c *Client) LikeComment(ctx context.Context, commentID string) error {
	path := "/comments/" + url.PathEscape(commentID) + "/likes"
	return c.do(ctx, "like comment", http.MethodPost, path, nil, nil, true)
}

// UnlikeComment removes the like from a comment.
func (c *Client) UnlikeComment(ctx context.Context, commentID string) error {
	path := "/comments/" + url.PathEscape(commentID) + "/likes"
	return c.do(ctx, "unlike comment", http.MethodDelete, path, nil, nil, true)
}

// SignIn exchanges credentials for a bearer token.
func (c *Client) SignIn(ctx context.Context, email, password string) (string, error) {
	var resp models.TokenResponse
	req := models.SignInRequest{Email: email, Password: password}
	if err := c.do(ctx, "sign in", http.MethodPost, "/auth/signin", req, &resp, false); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &Error{Kind: KindMalformed, Op: "sign in", Err: errors.New("empty token")}
	}
	return resp.Token, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any, auth bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("gateway: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return &Error{Kind: KindAuthExpired, Op: op, Err: err}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := statusError(op, resp.StatusCode, readMessage(resp.Body))
		if gwErr.Kind == KindAuthExpired && auth && c.tokens != nil {
			c.tokens.Invalidate()
		}
		c.logger.Debug("gateway call rejected", "op", op, "status", resp.StatusCode)
		return gwErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindMalformed, Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// readMessage extracts the "message" field of an echo error body.
func readMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}
