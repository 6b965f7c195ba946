package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once               sync.Once
	renderDuration     prom.Histogram
	renderOutcomes     *prom.CounterVec
	cacheWriteFailures prom.Counter
	bundleRebuilds     *prom.CounterVec
	stylesRebuilds     prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.renderDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "trellis",
			Name:      "render_duration_seconds",
			Help:      "Duration of single page renders",
			Buckets:   prom.DefBuckets,
		})
		pr.renderOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "trellis",
			Name:      "render_outcomes_total",
			Help:      "Render outcomes by result (fresh, cached, filtered, not_found, error)",
		}, []string{"outcome"})
		pr.cacheWriteFailures = prom.NewCounter(prom.CounterOpts{
			Namespace: "trellis",
			Name:      "cache_write_failures_total",
			Help:      "Failed page cache persists (render still served uncached)",
		})
		pr.bundleRebuilds = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "trellis",
			Name:      "bundle_rebuilds_total",
			Help:      "Script bundle cache rebuilds by bundle kind",
		}, []string{"kind"})
		pr.stylesRebuilds = prom.NewCounter(prom.CounterOpts{
			Namespace: "trellis",
			Name:      "styles_rebuilds_total",
			Help:      "Stylesheet cache rebuilds",
		})
		reg.MustRegister(pr.renderDuration, pr.renderOutcomes, pr.cacheWriteFailures, pr.bundleRebuilds, pr.stylesRebuilds)
	})
	return pr
}

func (pr *PrometheusRecorder) ObserveRenderDuration(d time.Duration) {
	pr.renderDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncRenderOutcome(outcome OutcomeLabel) {
	pr.renderOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (pr *PrometheusRecorder) IncCacheWriteFailure() {
	pr.cacheWriteFailures.Inc()
}

func (pr *PrometheusRecorder) IncBundleRebuild(kind string) {
	pr.bundleRebuilds.WithLabelValues(kind).Inc()
}

func (pr *PrometheusRecorder) IncStylesRebuild() {
	pr.stylesRebuilds.Inc()
}
