package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder_ImplementsRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveRenderDuration(time.Second)
	r.IncRenderOutcome(OutcomeFresh)
	r.IncCacheWriteFailure()
	r.IncBundleRebuild("mermaid")
	r.IncStylesRebuild()
}

func TestPrometheusRecorder_RegistersAndCounts(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveRenderDuration(25 * time.Millisecond)
	pr.IncRenderOutcome(OutcomeCached)
	pr.IncRenderOutcome(OutcomeCached)
	pr.IncCacheWriteFailure()
	pr.IncBundleRebuild("callouts")
	pr.IncStylesRebuild()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["trellis_render_duration_seconds"])
	require.True(t, names["trellis_render_outcomes_total"])
	require.True(t, names["trellis_cache_write_failures_total"])
	require.True(t, names["trellis_bundle_rebuilds_total"])
	require.True(t, names["trellis_styles_rebuilds_total"])
}
