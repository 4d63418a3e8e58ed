package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the token and key paths.
type Metrics struct {
	TokenIssued        *prometheus.CounterVec
	TokenVerified      *prometheus.CounterVec
	TokenIssueLatency  *prometheus.HistogramVec
	TokenVerifyLatency *prometheus.HistogramVec
	KMSCalls           *prometheus.CounterVec
	KeyCacheLookups    *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry; the service passes prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokenIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envseal_tokens_issued_total",
				Help: "Token issuance attempts by client application and result.",
			},
			[]string{"app_id", "result"},
		),
		TokenVerified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envseal_tokens_verified_total",
				Help: "Token verification attempts by result.",
			},
			[]string{"result"},
		),
		TokenIssueLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "envseal_token_issue_duration_seconds",
				Help:    "Latency of token issuance.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"app_id"},
		),
		TokenVerifyLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "envseal_token_verify_duration_seconds",
				Help:    "Latency of token verification.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		KMSCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envseal_kms_calls_total",
				Help: "Round trips to the key management service by operation and result.",
			},
			[]string{"operation", "result"},
		),
		KeyCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envseal_key_cache_lookups_total",
				Help: "Plaintext key cache lookups by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordIssue records one issuance attempt.
func (m *Metrics) RecordIssue(appID, result string, d time.Duration) {
	m.TokenIssued.WithLabelValues(appID, result).Inc()
	m.TokenIssueLatency.WithLabelValues(appID).Observe(d.Seconds())
}

// RecordVerify records one verification attempt.
func (m *Metrics) RecordVerify(result string, d time.Duration) {
	m.TokenVerified.WithLabelValues(result).Inc()
	m.TokenVerifyLatency.WithLabelValues(result).Observe(d.Seconds())
}

// RecordKMSCall records one generate or decrypt round trip.
func (m *Metrics) RecordKMSCall(operation, result string) {
	m.KMSCalls.WithLabelValues(operation, result).Inc()
}

// RecordCacheLookup records a key cache hit, miss, or error.
func (m *Metrics) RecordCacheLookup(outcome string) {
	m.KeyCacheLookups.WithLabelValues(outcome).Inc()
}
