/*
Package counter implements the replica counter: given the replicas reported
for one container, decide which origin groups (Ratis) or EC indices are
under- or over-replicated.

Two Counter implementations share one interface so pkg/evaluator and
pkg/repmanager stay scheme-agnostic:

  - RatisCounter classifies by origin, applying the closed single-origin
    rule (target: 3 in-service copies) or the quasi-closed-stuck
    multi-origin rule (target: 2 in-service copies per origin) depending on
    Container.MultiOrigin.
  - ECCounter classifies by EC index: every one of the k+m indices of an
    EC(k,m) container must be covered by exactly one healthy, in-service
    replica.

Both counters ignore maintenance copies when computing over-replication and
both produce a stable, origin-id-sorted (or index-sorted) result so that
re-running the counter on an unchanged replica set is idempotent (§8 P7).
*/
package counter
