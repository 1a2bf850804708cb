package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pact_service",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Outbox events delivered to Kafka.",
	})
	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pact_service",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Outbox events that failed delivery and will be retried.",
	})
	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pact_service",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Duration of one outbox dispatch batch.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, batchDuration)
}
