package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "movies"

// Outcome labels.
const (
	RatingInserted = "inserted"
	RatingUpdated  = "updated"

	NotifySent    = "sent"
	NotifyFailed  = "failed"
	NotifySkipped = "skipped"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics groups the service's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ratingsSubmitted *prometheus.CounterVec
	ratingConflicts  prometheus.Counter
	movieOpens       prometheus.Counter
	notifications    *prometheus.CounterVec
	popularCache     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ratingsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_submitted_total",
			Help:      "Rating submissions by whether a new record was created.",
		}, []string{"result"}),
		ratingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_aggregate_conflicts_total",
			Help:      "Cached rating writes that lost a version race and were retried.",
		}),
		movieOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opens_total",
			Help:      "Movie detail views counted.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Publish notifications by outcome.",
		}, []string{"outcome"}),
		popularCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "popular_cache_requests_total",
			Help:      "Most-popular cache lookups by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.ratingsSubmitted, m.ratingConflicts, m.movieOpens, m.notifications, m.popularCache)
	}
	return m
}

// RatingSubmitted counts a successful rating upsert.
func (m *Metrics) RatingSubmitted(inserted bool) {
	if m == nil {
		return
	}
	result := RatingUpdated
	if inserted {
		result = RatingInserted
	}
	m.ratingsSubmitted.WithLabelValues(result).Inc()
}

// RatingConflict counts a lost compare-and-set on the cached rating.
func (m *Metrics) RatingConflict() {
	if m == nil {
		return
	}
	m.ratingConflicts.Inc()
}

// MovieOpened counts a detail view.
func (m *Metrics) MovieOpened() {
	if m == nil {
		return
	}
	m.movieOpens.Inc()
}

// Notification counts a notification attempt by outcome.
func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// PopularCache counts a cache lookup by result.
func (m *Metrics) PopularCache(result string) {
	if m == nil {
		return
	}
	m.popularCache.WithLabelValues(result).Inc()
}
