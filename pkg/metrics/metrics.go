// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eventfeeds"

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fetch",
		Name:      "requests_total",
		Help:      "Fetches by resulting status class.",
	}, []string{"class"})

	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fetch",
		Name:      "retries_total",
		Help:      "Retry attempts after retryable statuses or transport errors.",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fetch",
		Name:      "cache_hits_total",
		Help:      "Conditional GETs answered with 304 Not Modified.",
	})

	politenessSleep = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fetch",
		Name:      "politeness_sleep_seconds_total",
		Help:      "Total seconds spent in politeness delays.",
	})

	robotsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fetch",
		Name:      "robots_denied_total",
		Help:      "Fetches refused by the robots policy gate.",
	})

	sourceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "events_total",
		Help:      "Raw events collected, by source name.",
	}, []string{"source"})

	sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "failures_total",
		Help:      "Source runs that ended in a fatal adapter condition.",
	}, []string{"source"})

	sourceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "duration_seconds",
		Help:      "Wall time of one adapter run.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"source"})

	normalizeRejects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "normalize_rejects_total",
		Help:      "Raw events dropped for missing title or start after fallbacks.",
	})

	duplicates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "duplicates_total",
		Help:      "Canonical events overwritten by a later record with the same id.",
	})

	ruleDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "rule_drops_total",
		Help:      "Events removed by configured drop rules.",
	})

	windowDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "window_drops_total",
		Help:      "Events outside the grace/horizon time window.",
	})

	emitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "emitted_total",
		Help:      "Events handed to the calendar writer, by category.",
	}, []string{"category"})
)

func RecordFetch(class string)            { fetchTotal.WithLabelValues(class).Inc() }
func RecordFetchRetry()                   { fetchRetries.Inc() }
func RecordCacheHit()                     { cacheHits.Inc() }
func RecordPolitenessSleep(secs float64)  { politenessSleep.Add(secs) }
func RecordRobotsDenied()                 { robotsDenied.Inc() }
func RecordSourceEvents(src string, n int) {
	sourceEvents.WithLabelValues(src).Add(float64(n))
}
func RecordSourceFailure(src string)           { sourceFailures.WithLabelValues(src).Inc() }
func ObserveSourceDuration(src string, s float64) {
	sourceDuration.WithLabelValues(src).Observe(s)
}
func RecordNormalizeReject()          { normalizeRejects.Inc() }
func RecordDuplicate()                { duplicates.Inc() }
func RecordRuleDrop()                 { ruleDrops.Inc() }
func RecordWindowDrop()               { windowDrops.Inc() }
func RecordEmitted(category string)   { emitted.WithLabelValues(category).Inc() }
