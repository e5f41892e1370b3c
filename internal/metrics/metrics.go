package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RecipientsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_recipients_sent_total",
			Help: "Total campaign recipients delivered",
		},
	)

	RecipientFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_recipient_failures_total",
			Help: "Total campaign recipients whose delivery failed",
		},
	)

	CampaignsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaigns_finalized_total",
			Help: "Campaigns finalized, by terminal status",
		},
		[]string{"status"},
	)

	Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_classifications_total",
			Help: "Task classifications, by outcome (ok, fallback, error)",
		},
		[]string{"outcome"},
	)

	TasksDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_dispatched_total",
			Help: "Tasks dispatched, by kind",
		},
		[]string{"kind"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "task_dispatch_duration_seconds",
			Help:    "Time spent in a dispatched task handler",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"kind"},
	)
)

func Init() {
	prometheus.MustRegister(RecipientsSent)
	prometheus.MustRegister(RecipientFailures)
	prometheus.MustRegister(CampaignsFinalized)
	prometheus.MustRegister(Classifications)
	prometheus.MustRegister(TasksDispatched)
	prometheus.MustRegister(DispatchDuration)
}
