package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Event bus metrics (§6: queued, scheduled, done, failed per topic).
	// These track cumulative, monotone counters maintained by pkg/events;
	// they are exposed as gauges here because the collector polls and sets
	// the latest cumulative value rather than observing deltas.
	EventsQueued = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "repmgr_events_queued_total",
			Help: "Total number of messages enqueued, by topic",
		},
		[]string{"topic"},
	)

	EventsScheduled = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "repmgr_events_scheduled_total",
			Help: "Total number of messages dequeued for execution, by topic",
		},
		[]string{"topic"},
	)

	EventsDone = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "repmgr_events_done_total",
			Help: "Total number of handler invocations that completed successfully, by topic",
		},
		[]string{"topic"},
	)

	EventsFailed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "repmgr_events_failed_total",
			Help: "Total number of handler invocations that returned an error or panicked, by topic",
		},
		[]string{"topic"},
	)

	// Replication manager metrics
	ContainersUnderReplicated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "repmgr_containers_under_replicated",
			Help: "Number of containers classified as under-replicated in the last cycle",
		},
	)

	ContainersOverReplicated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "repmgr_containers_over_replicated",
			Help: "Number of containers classified as over-replicated in the last cycle",
		},
	)

	ContainersUnrecoverable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "repmgr_containers_unrecoverable",
			Help: "Number of containers with no usable replication source in the last cycle",
		},
	)

	CommandsIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repmgr_commands_issued_total",
			Help: "Total number of commands dispatched to datanodes, by kind",
		},
		[]string{"kind"},
	)

	CycleLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repmgr_cycle_latency_seconds",
			Help:    "Time taken for one replication manager cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "repmgr_cycles_total",
			Help: "Total number of replication manager cycles completed",
		},
	)

	ThreadWaiting = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "repmgr_thread_waiting",
			Help: "1 if the replication manager loop is currently waiting for its next tick or notify, 0 if running",
		},
	)

	// Reconciler metrics
	ResurrectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "repmgr_resurrections_total",
			Help: "Total number of DELETING/DELETED containers transitioned back to CLOSED by the reconciler",
		},
	)

	ReportsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repmgr_reports_dropped_total",
			Help: "Total number of container reports dropped, by reason",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsQueued,
		EventsScheduled,
		EventsDone,
		EventsFailed,
		ContainersUnderReplicated,
		ContainersOverReplicated,
		ContainersUnrecoverable,
		CommandsIssuedTotal,
		CycleLatency,
		CyclesTotal,
		ThreadWaiting,
		ResurrectionsTotal,
		ReportsDroppedTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
