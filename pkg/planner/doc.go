/*
Package planner implements §4.5: turning a MisReplicatedOrigin into concrete
datanode targets (for under-replication) or victims (for over-replication).

It never touches the network or the dispatcher; Plan returns a Move value the
caller (pkg/repmanager) turns into dispatcher commands. Running the planner
twice against the same NodeSnapshot and the same MisReplicatedOrigin produces
the same Move — the tie-break on utilization then datanode ID is deterministic
so that idempotent retries (§8 P7) don't thrash.
*/
package planner
