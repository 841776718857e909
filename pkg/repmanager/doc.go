/*
Package repmanager implements §4.6: the replication manager loop that ties
together pkg/counter, pkg/evaluator, pkg/planner, and pkg/dispatch.

State machine: INIT -> RUNNING -> WAITING -> RUNNING ... -> STOPPED.
Start() moves INIT to RUNNING and launches the single loop goroutine
(§5's single-threaded-cooperative model: one goroutine owns classification,
both work-list drains, and the in-flight command map — no locking between
them). Classification happens on a fixed interval (default 1s,
config.Replication.Interval); the under- and over-replication work lists
drain on their own, shorter intervals so that a large classification batch
doesn't block dispatch behind a slow cycle.

Notify coalesces per §9: a single-slot channel, multiple notify() calls
between two loop iterations collapse into one extra classification pass.

Safe mode: while time.Now() is before the configured exit-wait deadline,
over-replication deletes are computed but not dispatched (deferred, not
dropped); replication for under-replicated containers is never gated.

IsThreadWaiting reports whether the loop is currently parked on its select
with nothing queued — the property §8/§4.6 call out as needing to be
observable for tests.
*/
package repmanager
