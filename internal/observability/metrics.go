// Package observability registers Prometheus metrics for the pipeline.
// Recording happens only after the relevant transaction commits, so metric
// emission can never affect an outcome.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	verificationsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pact_service",
		Subsystem: "verify",
		Name:      "verifications_total",
		Help:      "Verification results by status.",
	}, []string{"status"})

	auditVerdictCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pact_service",
		Subsystem: "audit",
		Name:      "verdicts_total",
		Help:      "Audit gate verdicts by outcome.",
	}, []string{"verdict"})

	moneyMovedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pact_service",
		Subsystem: "enforce",
		Name:      "money_moved_usd_total",
		Help:      "Simulated dollars moved by donation penalties.",
	})

	stakeEarnedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pact_service",
		Subsystem: "stake",
		Name:      "earned_total",
		Help:      "Stake points earned across all users.",
	})

	stakeBurnedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pact_service",
		Subsystem: "stake",
		Name:      "burned_total",
		Help:      "Stake points burned across all users.",
	})

	burnBlockedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pact_service",
		Subsystem: "stake",
		Name:      "burns_blocked_total",
		Help:      "Burn attempts refused by the governance gate.",
	})

	reapedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pact_service",
		Subsystem: "reaper",
		Name:      "contracts_reaped_total",
		Help:      "Contracts converted to Failed by the deadline sweep.",
	})

	sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pact_service",
		Subsystem: "reaper",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of one full reaper sweep.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		verificationsCounter,
		auditVerdictCounter,
		moneyMovedCounter,
		stakeEarnedCounter,
		stakeBurnedCounter,
		burnBlockedCounter,
		reapedCounter,
		sweepDuration,
	)
}

// RecordVerification counts one verification result.
func RecordVerification(status string) {
	verificationsCounter.WithLabelValues(status).Inc()
}

// RecordAuditVerdict counts one audit gate decision.
func RecordAuditVerdict(verdict string) {
	auditVerdictCounter.WithLabelValues(verdict).Inc()
}

// RecordMoneyMoved tracks simulated donation charges.
func RecordMoneyMoved(amountUSD float64) {
	if amountUSD > 0 {
		moneyMovedCounter.Add(amountUSD)
	}
}

// RecordStakeEarned tracks awarded stake.
func RecordStakeEarned(amount int64) {
	stakeEarnedCounter.Add(float64(amount))
}

// RecordStakeBurned tracks burned stake.
func RecordStakeBurned(amount int64) {
	stakeBurnedCounter.Add(float64(amount))
}

// RecordBurnBlocked counts governance-blocked burn attempts.
func RecordBurnBlocked() {
	burnBlockedCounter.Inc()
}

// RecordReaped counts contracts resolved by the sweep.
func RecordReaped(n int) {
	if n > 0 {
		reapedCounter.Add(float64(n))
	}
}

// ObserveSweepDuration records one sweep's wall time in seconds.
func ObserveSweepDuration(seconds float64) {
	sweepDuration.Observe(seconds)
}
