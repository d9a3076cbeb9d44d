package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters. Registered on the default registry, exposed by the same
// listener as the HTTP metrics.
var (
	BillingRecordsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_records_created_total",
		Help: "Billing records generated by due-billing runs.",
	})

	BillingProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_processed_total",
		Help: "Billing processing outcomes partitioned by result.",
	}, []string{"result"})

	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Channel job deliveries partitioned by channel and status.",
	}, []string{"channel", "status"})

	TriggerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trigger_runs_total",
		Help: "Scheduled trigger executions partitioned by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	SideEffectErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "side_effect_errors_total",
		Help: "Swallowed side-effect dispatch failures partitioned by event.",
	}, []string{"event"})
)
