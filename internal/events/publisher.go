// Package events publishes render notifications to NATS JetStream so other
// homelab services (search indexers, notifiers) can react to page updates.
package events

import (
	"context"
	"time"
)

// PageRendered is the published event payload.
type PageRendered struct {
	Slug        string    `json:"slug"`
	Cached      bool      `json:"cached"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher emits render events. The Noop implementation keeps the engine
// decoupled from whether eventing is configured.
type Publisher interface {
	PublishPageRendered(ctx context.Context, event PageRendered) error
	Close() error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishPageRendered(context.Context, PageRendered) error { return nil }
func (NoopPublisher) Close() error                                            { return nil }
