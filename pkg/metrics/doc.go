/*
Package metrics exposes the replication control plane's Prometheus metrics:
the event bus counters from §6 (queued, scheduled, done, failed per topic),
the per-cycle replication manager gauges (containers under/over-replicated,
commands issued, cycle latency, thread-waiting), and reconciler counters
(resurrections, dropped reports by reason).

Metrics are registered at package init time via prometheus.MustRegister and
served with the standard promhttp.Handler(). Timer is a small helper for
recording operation durations into a histogram, used the same way across
every component that times a cycle or a handler invocation.

Collector polls an events.Bus's per-topic Stats() on an interval and mirrors
them into the registered gauges; this is the only metrics component that
runs its own goroutine; all other metrics here are updated inline by the
component that owns the measurement.

A minimal health/readiness HTTP surface (HealthHandler, ReadyHandler,
LivenessHandler) is also provided for use behind a process supervisor or
load balancer; it does not depend on Prometheus.
*/
package metrics
