// Package metrics provides Prometheus metrics for the tipio prediction service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tipio"

var (
	// Core business metrics.
	predictionsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_generated_total",
		Help:      "Predictions produced, partitioned by origin (model or fallback).",
	}, []string{"origin"})

	quotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_rejections_total",
		Help:      "Prediction requests rejected by the daily quota check.",
	})

	votesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_recorded_total",
		Help:      "Community votes recorded, including re-votes.",
	})

	achievementsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "achievements_awarded_total",
		Help:      "Achievements unlocked across all users.",
	})

	// Provider / collection metrics.
	providerResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_results_total",
		Help:      "Per-provider collection outcomes.",
	}, []string{"provider", "result"})

	collectionCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "collection_cache_total",
		Help:      "Collector cache lookups by outcome (hit or miss).",
	}, []string{"outcome"})

	collectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "collection_duration_seconds",
		Help:      "Wall time of a full provider fan-out.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// Generation metrics.
	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "Latency of one generative backend attempt.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 90},
	})

	generationRateLimits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_rate_limits_total",
		Help:      "Rate-limit signals that advanced the model chain.",
	})

	predictionCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prediction_cache_total",
		Help:      "Prediction cache lookups by outcome (hit or miss).",
	}, []string{"outcome"})

	// Persistence / notification metrics.
	storeWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_write_errors_total",
		Help:      "Failed document writes, partitioned by store.",
	}, []string{"store"})

	noticesQueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notices_queued_total",
		Help:      "Notices accepted into the delivery queue.",
	})

	noticesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notices_dropped_total",
		Help:      "Notices dropped on queue backpressure or dedupe.",
	})

	queueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notice_queue_size",
		Help:      "Current depth of the notice queue.",
	})

	profilesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "profiles_total",
		Help:      "User profiles tracked by the ledger.",
	})

	// HTTP metrics.
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint and status class.",
	}, []string{"endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP handler latency by endpoint.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
)

func RecordPrediction(origin string) { predictionsGenerated.WithLabelValues(origin).Inc() }

func RecordQuotaRejection() { quotaRejections.Inc() }

func RecordVote() { votesRecorded.Inc() }

func RecordAchievement() { achievementsAwarded.Inc() }

func RecordGenerationRateLimit() { generationRateLimits.Inc() }

func RecordNoticeQueued() { noticesQueued.Inc() }

func RecordNoticeDropped() { noticesDropped.Inc() }

func UpdateNoticeQueueSize(n int) { queueSize.Set(float64(n)) }

func UpdateProfilesTotal(n int) { profilesTotal.Set(float64(n)) }

func ObserveCollectionDuration(s float64) { collectionDuration.Observe(s) }

func ObserveGenerationDuration(s float64) { generationDuration.Observe(s) }

// RecordProviderResult tracks one provider attempt; result is "success",
// "failure", or "skipped" (unconfigured).
func RecordProviderResult(provider, result string) {
	providerResults.WithLabelValues(provider, result).Inc()
}

// RecordCollectionCache tracks collector cache lookups; outcome is "hit" or "miss".
func RecordCollectionCache(outcome string) { collectionCache.WithLabelValues(outcome).Inc() }

// RecordPredictionCache tracks prediction cache lookups; outcome is "hit" or "miss".
func RecordPredictionCache(outcome string) { predictionCache.WithLabelValues(outcome).Inc() }

// RecordStoreWriteError tracks a failed document write for one logical store.
func RecordStoreWriteError(store string) { storeWriteErrors.WithLabelValues(store).Inc() }

// RecordHTTPRequest tracks one served request.
func RecordHTTPRequest(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// ObserveHTTPRequestDuration tracks handler latency in seconds.
func ObserveHTTPRequestDuration(endpoint string, seconds float64) {
	httpRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}
