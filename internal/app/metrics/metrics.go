package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "insurance_dao",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insurance_dao",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "insurance_dao",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	proposalOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insurance_dao",
			Subsystem: "governance",
			Name:      "proposal_outcomes_total",
			Help:      "Total proposal executions by outcome.",
		},
		[]string{"outcome"},
	)

	payoutClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insurance_dao",
			Subsystem: "annuity",
			Name:      "payout_claims_total",
			Help:      "Total payout claims by outcome.",
		},
		[]string{"outcome"},
	)

	shareTrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insurance_dao",
			Subsystem: "treasury",
			Name:      "share_trades_total",
			Help:      "Total share purchases and redemptions.",
		},
		[]string{"direction"},
	)

	ledgerEntries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "insurance_dao",
			Subsystem: "ledger",
			Name:      "journal_entries_total",
			Help:      "Total journal entries applied.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		proposalOutcomes,
		payoutClaims,
		shareTrades,
		ledgerEntries,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordProposalOutcome counts an executed, rejected or failed proposal.
func RecordProposalOutcome(outcome string) {
	proposalOutcomes.WithLabelValues(outcome).Inc()
}

// RecordPayoutClaim counts a payout claim by its outcome.
func RecordPayoutClaim(outcome string) {
	payoutClaims.WithLabelValues(outcome).Inc()
}

// RecordShareTrade counts a share purchase ("buy") or redemption ("redeem").
func RecordShareTrade(direction string) {
	shareTrades.WithLabelValues(direction).Inc()
}

// RecordLedgerEntry counts one applied journal entry.
func RecordLedgerEntry() {
	ledgerEntries.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "organizations":
		if len(parts) == 1 {
			return "/organizations"
		}
		if len(parts) == 2 {
			return "/organizations/:org"
		}
		return "/organizations/:org/" + parts[2]
	case "annuities":
		if len(parts) == 1 {
			return "/annuities"
		}
		if len(parts) == 2 {
			return "/annuities/:annuity"
		}
		return "/annuities/:annuity/" + parts[2]
	case "members":
		if len(parts) <= 2 {
			return "/members/:member"
		}
		return "/members/:member/" + parts[2]
	default:
		return "/" + parts[0]
	}
}
