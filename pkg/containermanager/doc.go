/*
Package containermanager is the read-only collaborator the replication
manager loop and the reconciler use to learn which containers exist and what
replicas have been reported for them.

§9 flags a cyclic-reference problem in the source system: the container
manager and the replication manager referenced each other directly. This
package breaks that cycle by publishing immutable snapshots (Snapshot,
ReplicasFor) instead of exposing a mutable handle; the replication loop never
locks this collaborator, it just reads a point-in-time copy (§5).

Store is the in-memory reference implementation. A real deployment would
back this with Ozone's container metadata store; that storage engine is an
explicit non-goal here (see DESIGN.md), so Store is intentionally the only
implementation.
*/
package containermanager
