// Package events announces feed activity to other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	SubjectCommentCreated  = "comment.created"
	SubjectReactionCreated = "reaction.created"
)

// Publisher is implemented by every event sink used by the handlers.
type Publisher interface {
	PublishCommentCreated(ctx context.Context, c *models.Comment) error
	PublishReactionCreated(ctx context.Context, r *models.Reaction) error
}

// CommentCreatedEvent is the payload of comment.created.
type CommentCreatedEvent struct {
	ID              string    `json:"id"`
	PostID          string    `json:"post_id"`
	ParentCommentID *string   `json:"parent_comment_id"`
	AuthorID        uint      `json:"author_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// ReactionCreatedEvent is the payload of reaction.created. Created is false
// when an existing reaction only changed its kind.
type ReactionCreatedEvent struct {
	ID             string              `json:"id"`
	PostID         string              `json:"post_id"`
	UserID         uint                `json:"user_id"`
	ReactionTypeID models.ReactionType `json:"reaction_type_id"`
	Created        bool                `json:"created"`
}

// NatsPublisher publishes events as JSON on a NATS connection.
type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) PublishCommentCreated(ctx context.Context, c *models.Comment) error {
	return p.publish(ctx, SubjectCommentCreated, CommentCreatedEvent{
		ID:              c.ID,
		PostID:          c.PostID,
		ParentCommentID: c.ParentID,
		AuthorID:        c.UserID,
		CreatedAt:       c.CreatedAt,
	})
}

func (p *NatsPublisher) PublishReactionCreated(ctx context.Context, r *models.Reaction) error {
	return p.publish(ctx, SubjectReactionCreated, ReactionCreatedEvent{
		ID:             r.ID,
		PostID:         r.PostID,
		UserID:         r.UserID,
		ReactionTypeID: r.ReactionTypeID,
		Created:        r.Created,
	})
}

func (p *NatsPublisher) publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", subject, err)
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	// carry the trace of the HTTP request into the message headers
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	slog.Debug("publishing event", "subject", subject)
	return p.nc.PublishMsg(msg)
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishCommentCreated(context.Context, *models.Comment) error   { return nil }
func (NopPublisher) PublishReactionCreated(context.Context, *models.Reaction) error { return nil }
