package events

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Channel names for domain events.
const (
	ChannelPostCreated  = "post.created"
	ChannelPostDeleted  = "post.deleted"
	ChannelCommentAdded = "comment.added"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// PostEvent is the payload published on post lifecycle channels.
type PostEvent struct {
	PostID     int       `json:"post_id"`
	AuthorID   int       `json:"author_id"`
	Title      string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits domain events through a backend. A nil Publisher is valid
// and publishes nothing, so callers never need to branch on whether events
// are configured. Publishing is best-effort: broker failures are logged and
// never fail the request that triggered them.
type Publisher struct {
	backend Backend
}

// NewPublisher constructs a Publisher for the provided backend.
func NewPublisher(backend Backend) *Publisher {
	return &Publisher{backend: backend}
}

// PostCreated publishes a post.created event.
func (p *Publisher) PostCreated(ctx context.Context, event PostEvent) {
	p.publish(ctx, ChannelPostCreated, event)
}

// PostDeleted publishes a post.deleted event.
func (p *Publisher) PostDeleted(ctx context.Context, event PostEvent) {
	p.publish(ctx, ChannelPostDeleted, event)
}

// CommentAdded publishes a comment.added event.
func (p *Publisher) CommentAdded(ctx context.Context, event PostEvent) {
	p.publish(ctx, ChannelCommentAdded, event)
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}

func (p *Publisher) publish(ctx context.Context, channel string, event PostEvent) {
	if p == nil || p.backend == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: marshal %s: %v", channel, err)
		return
	}
	if _, err := p.backend.Publish(ctx, channel, data, map[string]string{"event": channel}); err != nil {
		log.Printf("events: publish %s: %v", channel, err)
	}
}
