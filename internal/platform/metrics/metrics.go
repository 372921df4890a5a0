package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	CredentialsIssued      prometheus.Counter
	CredentialsRevoked     prometheus.Counter
	ChallengesIssued       prometheus.Counter
	ChallengesConsumed     *prometheus.CounterVec
	PresentationsVerified  prometheus.Counter
	PresentationsRejected  *prometheus.CounterVec
	ActiveSessions         prometheus.Gauge
	LedgerTransactions     *prometheus.CounterVec
	LedgerTransactionError *prometheus.CounterVec
	EndpointLatency        *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caritas_credentials_issued_total",
			Help: "Total number of verifiable credentials issued",
		}),
		CredentialsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caritas_credentials_revoked_total",
			Help: "Total number of verifiable credentials revoked",
		}),
		ChallengesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caritas_challenges_issued_total",
			Help: "Total number of presentation challenges issued",
		}),
		ChallengesConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caritas_challenges_consumed_total",
			Help: "Challenge consumption attempts by outcome",
		}, []string{"outcome"}),
		PresentationsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caritas_presentations_verified_total",
			Help: "Total number of presentations that passed full verification",
		}),
		PresentationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caritas_presentations_rejected_total",
			Help: "Presentations rejected during verification by reason",
		}, []string{"reason"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "caritas_active_sessions",
			Help: "Current number of live presentation sessions",
		}),
		LedgerTransactions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caritas_ledger_transactions_total",
			Help: "Ledger transactions submitted by operation",
		}, []string{"operation"}),
		LedgerTransactionError: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caritas_ledger_transaction_errors_total",
			Help: "Ledger transaction failures by operation",
		}, []string{"operation"}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caritas_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
