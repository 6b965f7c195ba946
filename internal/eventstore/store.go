// Package eventstore records render activity for the admin surface: which
// slugs rendered, whether the cache served them, and how long they took.
package eventstore

import (
	"context"
	"time"
)

// RenderEvent is one recorded render.
type RenderEvent struct {
	ID        int64         `json:"id"`
	Slug      string        `json:"slug"`
	Outcome   string        `json:"outcome"`
	Cached    bool          `json:"cached"`
	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// Store persists render events.
type Store interface {
	Append(ctx context.Context, event RenderEvent) error
	Recent(ctx context.Context, limit int) ([]RenderEvent, error)
	Close() error
}
