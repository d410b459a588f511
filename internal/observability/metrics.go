package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activitiesLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "altitude",
		Subsystem: "ledger",
		Name:      "activities_logged_total",
		Help:      "Number of activities committed to the ledger, labeled by category.",
	}, []string{"category"})

	bonusRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "altitude",
		Subsystem: "ledger",
		Name:      "bonus_requests_total",
		Help:      "Number of bonus requests, labeled by whether the grant was applied.",
	}, []string{"outcome"})

	ledgerFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "altitude",
		Subsystem: "ledger",
		Name:      "transaction_failures_total",
		Help:      "Number of ledger transactions rolled back, labeled by operation.",
	}, []string{"operation"})

	altitudeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "altitude",
		Subsystem: "ledger",
		Name:      "current_height",
		Help:      "Cumulative height observed after the most recent ledger read or write.",
	})

	lastWriteGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "altitude",
		Subsystem: "persistence",
		Name:      "last_ledger_commit_timestamp_seconds",
		Help:      "Unix timestamp of the most recent committed ledger transaction.",
	})
)

func init() {
	prometheus.MustRegister(activitiesLogged, bonusRequests, ledgerFailures, altitudeGauge, lastWriteGauge)
}

// RecordActivityLogged counts a committed activity and tracks the new height.
func RecordActivityLogged(category string, height int) {
	activitiesLogged.WithLabelValues(category).Inc()
	altitudeGauge.Set(float64(height))
}

// RecordBonus counts a bonus request by outcome.
func RecordBonus(applied bool, height int) {
	outcome := "already_given"
	if applied {
		outcome = "applied"
	}
	bonusRequests.WithLabelValues(outcome).Inc()
	altitudeGauge.Set(float64(height))
}

// RecordAltitude updates the height gauge.
func RecordAltitude(height int) {
	altitudeGauge.Set(float64(height))
}

// RecordLedgerFailure counts a rolled back operation.
func RecordLedgerFailure(operation string) {
	ledgerFailures.WithLabelValues(operation).Inc()
}

// RecordLedgerCommit updates the commit watermark gauge.
func RecordLedgerCommit(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastWriteGauge.Set(float64(ts.Unix()))
}
