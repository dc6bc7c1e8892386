package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Inbound Telegram updates by kind (message/callback/command).",
		},
		[]string{"kind"},
	)

	sheetsCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheets_api_calls_total",
			Help: "Sheets API calls by operation and result (ok/rate_limited/error).",
		},
		[]string{"op", "result"},
	)

	sheetsRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheets_api_retries_total",
			Help: "Retries performed after a rate-limit response.",
		},
	)

	sheetsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheets_api_latency_ms",
			Help:    "Sheets API call latency distribution in milliseconds.",
			Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"op"},
	)

	flowOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_outcomes_total",
			Help: "Completed flows by flow (intake/withdrawal) and outcome (saved/cancelled/failed).",
		},
		[]string{"flow", "outcome"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Sessions currently inside a flow (memory backend only).",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			updatesTotal, sheetsCalls, sheetsRetries, sheetsLatencyMs,
			flowOutcomes, activeSessions,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncUpdate(kind string) { updatesTotal.WithLabelValues(norm(kind)).Inc() }

func ObserveSheetsCall(op, result string, latencyMs float64) {
	sheetsCalls.WithLabelValues(norm(op), norm(result)).Inc()
	sheetsLatencyMs.WithLabelValues(norm(op)).Observe(latencyMs)
}

func IncSheetsRetry() { sheetsRetries.Inc() }

func IncFlowOutcome(flow, outcome string) {
	flowOutcomes.WithLabelValues(norm(flow), norm(outcome)).Inc()
}

func SetActiveSessions(n int) { activeSessions.Set(float64(n)) }
