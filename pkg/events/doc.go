/*
Package events provides the control plane's event bus: a set of named
topics, each served by exactly one worker goroutine, so that handlers
registered on the same topic are strictly serialized and never need their
own locking.

# Architecture

	┌─────────────────────── EVENT BUS ────────────────────────┐
	│                                                            │
	│   Publish(topic, payload)                                 │
	│          │                                                 │
	│          ▼                                                 │
	│   ┌─────────────┐   FIFO queue    ┌──────────────────┐    │
	│   │   Topic A   │ ───────────────▶│  single worker    │    │
	│   └─────────────┘                 │  runs handler(s)  │    │
	│                                    └──────────────────┘    │
	│   ┌─────────────┐   FIFO queue    ┌──────────────────┐    │
	│   │   Topic B   │ ───────────────▶│  single worker    │    │
	│   └─────────────┘                 └──────────────────┘    │
	│                                                            │
	│  each topic tracks: queued, scheduled, done, failed        │
	└────────────────────────────────────────────────────────────┘

A topic is a SingleThreadExecutor: handler invocations enqueue in FIFO
order and run to completion one at a time. A handler panic or returned
error is caught, logged, and counted as failed — it never reaches the
caller of Publish and never stops the worker from draining the rest of
the queue.

# Use in the replication control plane

cmd/replicationd registers three topics. "container-report" feeds the
container-report reconciler (pkg/reconciler), so reports are applied one at
a time in publish order and a report for one container never interleaves
with another report for the same container. "node-state-change" updates the
node registry, and "notify" wakes the replication manager loop
(pkg/repmanager); neither waits behind report processing, since each topic
has its own worker.
*/
package events
