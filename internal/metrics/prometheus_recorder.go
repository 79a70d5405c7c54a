package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	eventDuration    *prom.HistogramVec
	eventOutcomes    *prom.CounterVec
	cacheResults     *prom.CounterVec
	renderDuration   prom.Histogram
	subscriberCount  *prom.GaugeVec
	published        *prom.CounterVec
	gcRemoved        *prom.CounterVec
	gcDuration       prom.Histogram
	watcherPending   prom.Gauge
}

// NewPrometheusRecorder constructs pankat's Prometheus metrics and registers
// them on reg (a fresh registry when reg is nil). Each call registers a new
// set, so a second call with the same registry panics on the duplicates.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.eventDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "pankat",
			Name:      "event_duration_seconds",
			Help:      "Duration of one compile-pipeline event by kind (create|modify|remove)",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"})
		pr.eventOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pankat",
			Name:      "event_outcomes_total",
			Help:      "Pipeline event outcomes",
		}, []string{"outcome"})
		pr.cacheResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pankat",
			Name:      "cache_results_total",
			Help:      "Render cache probe results (hit/miss)",
		}, []string{"result"})
		pr.renderDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pankat",
			Name:      "render_duration_seconds",
			Help:      "Duration of external renderer invocations on cache miss",
			Buckets:   prom.DefBuckets,
		})
		pr.subscriberCount = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "pankat",
			Name:      "pubsub_subscribers",
			Help:      "Current subscriber count per topic",
		}, []string{"topic"})
		pr.published = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pankat",
			Name:      "pubsub_published_total",
			Help:      "Messages published per topic",
		}, []string{"topic"})
		pr.gcRemoved = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pankat",
			Name:      "gc_removed_total",
			Help:      "Entries removed by garbage-collector pass",
		}, []string{"pass"})
		pr.gcDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pankat",
			Name:      "gc_duration_seconds",
			Help:      "Duration of a full garbage-collection run",
			Buckets:   prom.DefBuckets,
		})
		pr.watcherPending = prom.NewGauge(prom.GaugeOpts{
			Namespace: "pankat",
			Name:      "watcher_pending_events",
			Help:      "Debounced filesystem events waiting to be drained by the pipeline worker",
		})
		reg.MustRegister(
			pr.eventDuration, pr.eventOutcomes, pr.cacheResults, pr.renderDuration,
			pr.subscriberCount, pr.published, pr.gcRemoved, pr.gcDuration, pr.watcherPending,
		)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveEventDuration(kind string, d time.Duration) {
	if p == nil || p.eventDuration == nil {
		return
	}
	p.eventDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncEventOutcome(outcome EventOutcomeLabel) {
	if p == nil || p.eventOutcomes == nil {
		return
	}
	p.eventOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncCacheResult(result CacheResultLabel) {
	if p == nil || p.cacheResults == nil {
		return
	}
	p.cacheResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRenderDuration(d time.Duration) {
	if p == nil || p.renderDuration == nil {
		return
	}
	p.renderDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetSubscriberCount(topic string, n int) {
	if p == nil || p.subscriberCount == nil {
		return
	}
	p.subscriberCount.WithLabelValues(topic).Set(float64(n))
}

func (p *PrometheusRecorder) IncPublished(topic string) {
	if p == nil || p.published == nil {
		return
	}
	p.published.WithLabelValues(topic).Inc()
}

func (p *PrometheusRecorder) IncGCRemoved(pass string) {
	if p == nil || p.gcRemoved == nil {
		return
	}
	p.gcRemoved.WithLabelValues(pass).Inc()
}

func (p *PrometheusRecorder) ObserveGCDuration(d time.Duration) {
	if p == nil || p.gcDuration == nil {
		return
	}
	p.gcDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetWatcherPendingEvents(n int) {
	if p == nil || p.watcherPending == nil {
		return
	}
	p.watcherPending.Set(float64(n))
}
