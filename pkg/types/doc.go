/*
Package types defines the core data model of the replication control plane:
containers, replicas, datanodes, and the commands issued to bring a
container back to its desired replication state.

# Architecture

The types package is deliberately inert: it holds no behavior beyond small
predicates on its own fields. All classification logic lives in pkg/counter
and pkg/evaluator; all placement logic lives in pkg/planner. This keeps the
data model safe to pass across goroutine boundaries without synchronization.

# Core Types

  - Container: the replication unit; owns a lifecycle state and a
    replication scheme (Ratis-3 or EC(k,m)).
  - Replica: one physical copy of a container on one datanode, reported by
    that datanode.
  - Datanode: a storage node with an operational state (in service,
    decommissioning, ...) and a health state (healthy, stale, dead).
  - Origin: the grouping key for quasi-closed-stuck classification — the
    datanode that first accepted writes for a given replica lineage.
  - Command: the three outbound actions the control plane can emit
    (replicate, delete, close).

# Thread safety

Every type here is treated as an immutable value once constructed. Mutating
a Container or Replica means building a new value and replacing it in the
owning collaborator (the container manager); nothing in this package
mutates a Container or Replica in place.
*/
package types
