/*
Package nodemanager tracks datanode operational and health state and
publishes the read-only snapshot pkg/planner and pkg/evaluator consume
(planner.NodeSnapshot, evaluator.NodeLookup).

Health transitions (HEALTHY/STALE/DEAD) are driven by heartbeat age, not
pushed directly — see MarkHeartbeat and the staleness thresholds in
pkg/config. Operational state (IN_SERVICE/MAINTENANCE/DECOMMISSIONED) is set
by administrative action via SetOpState and is independent of liveness: a
DECOMMISSIONED node can still be HEALTHY right up until it is drained.
*/
package nodemanager
