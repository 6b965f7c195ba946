package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/trellis/internal/config"
)

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	require.NoError(t, p.PublishPageRendered(context.Background(), PageRendered{Slug: "x"}))
	require.NoError(t, p.Close())
}

func TestNewNATSPublisher_DisabledConfig(t *testing.T) {
	_, err := NewNATSPublisher(config.EventsConfig{Enabled: false}, nil)
	require.Error(t, err)
}
