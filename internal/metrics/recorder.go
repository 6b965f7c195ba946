package metrics

import "time"

// OutcomeLabel enumerates render outcome categories for counters.
type OutcomeLabel string

const (
	OutcomeFresh    OutcomeLabel = "fresh"
	OutcomeCached   OutcomeLabel = "cached"
	OutcomeFiltered OutcomeLabel = "filtered"
	OutcomeNotFound OutcomeLabel = "not_found"
	OutcomeError    OutcomeLabel = "error"
)

// Recorder defines observability hooks for the render engine and the asset
// caches. Implementations may forward to Prometheus, OpenTelemetry, etc.
// The NoopRecorder allows optional injection.
type Recorder interface {
	ObserveRenderDuration(d time.Duration)
	IncRenderOutcome(outcome OutcomeLabel)
	IncCacheWriteFailure()
	IncBundleRebuild(kind string)
	IncStylesRebuild()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRenderDuration(time.Duration) {}
func (NoopRecorder) IncRenderOutcome(OutcomeLabel)       {}
func (NoopRecorder) IncCacheWriteFailure()               {}
func (NoopRecorder) IncBundleRebuild(string)             {}
func (NoopRecorder) IncStylesRebuild()                   {}
