package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visionchat_submissions_total",
		Help: "Form submissions by app and outcome",
	}, []string{"app", "outcome"})

	ModelLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "visionchat_model_call_seconds",
		Help:    "Latency of remote model calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"app", "mode"})

	QueuedJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "visionchat_dispatcher_queued_jobs",
		Help: "Jobs waiting in per-session queues",
	})

	RunningWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "visionchat_dispatcher_workers",
		Help: "Live dispatcher workers",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "visionchat_sessions_live",
		Help: "Sessions held by the in-memory store",
	})
)
