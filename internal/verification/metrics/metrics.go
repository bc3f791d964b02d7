package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Document and selfie submissions by type and outcome
	Submissions *prometheus.CounterVec

	// Status transitions by from/to/trigger
	Transitions *prometheus.CounterVec

	// Admin review decisions by action
	AdminReviews *prometheus.CounterVec

	// Upload rejections due to rate limiting
	RateLimited prometheus.Counter

	// Optimistic-lock retries during record mutation
	ConflictRetries prometheus.Counter

	// Adapter call latencies by adapter name
	AdapterLatency *prometheus.HistogramVec

	// End-to-end submission processing latency
	SubmitLatency prometheus.Histogram
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "basera_verification_submissions_total",
			Help: "Total document and selfie submissions by kind and outcome",
		}, []string{"kind", "outcome"}), // kind: "document", "selfie"

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "basera_verification_transitions_total",
			Help: "Total verification status transitions",
		}, []string{"from", "to", "trigger"}), // trigger: "upload", "auto", "admin"

		AdminReviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "basera_verification_admin_reviews_total",
			Help: "Total admin review decisions by action",
		}, []string{"action"}), // action: "approve", "reject", "reset"

		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "basera_verification_rate_limited_total",
			Help: "Total uploads rejected by the per-user rate limit",
		}),

		ConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "basera_verification_conflict_retries_total",
			Help: "Total optimistic-lock retries while saving verification records",
		}),

		AdapterLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "basera_verification_adapter_duration_seconds",
			Help:    "Duration of external adapter calls by adapter",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"adapter"}), // adapter: "blob", "ocr", "face", "notify"

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "basera_verification_submit_duration_seconds",
			Help:    "Duration of full submission processing including adapters",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncrementSubmission records a submission attempt and its outcome.
func (m *Metrics) IncrementSubmission(kind, outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(kind, outcome).Inc()
	}
}

// IncrementTransition records a status transition.
func (m *Metrics) IncrementTransition(from, to, trigger string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to, trigger).Inc()
	}
}

// IncrementAdminReview records an admin review decision.
func (m *Metrics) IncrementAdminReview(action string) {
	if m != nil {
		m.AdminReviews.WithLabelValues(action).Inc()
	}
}

// IncrementRateLimited records an upload rejected by the rate limiter.
func (m *Metrics) IncrementRateLimited() {
	if m != nil {
		m.RateLimited.Inc()
	}
}

// IncrementConflictRetry records an optimistic-lock retry.
func (m *Metrics) IncrementConflictRetry() {
	if m != nil {
		m.ConflictRetries.Inc()
	}
}

// ObserveAdapterLatency records the duration of an external adapter call.
func (m *Metrics) ObserveAdapterLatency(adapter string, d time.Duration) {
	if m != nil {
		m.AdapterLatency.WithLabelValues(adapter).Observe(d.Seconds())
	}
}

// ObserveSubmitLatency records the total submission processing duration.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
