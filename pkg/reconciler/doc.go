/*
Package reconciler implements §4.7: applying one datanode's container
report to the container/replica ledger.

Unlike the replication manager loop, the reconciler is report-driven, not
interval-driven — ProcessReport is called synchronously from the
CONTAINER_REPORT / INCREMENTAL_CONTAINER_REPORT event handlers (pkg/events),
so the "once per interval" ticker here only drives node heartbeat
staleness recomputation (pkg/nodemanager.RecomputeHealth), the one piece of
§4.7 that is time-driven rather than report-driven.

The resurrection rule is the one genuinely subtle piece of behavior: a
datanode that still has data for a container the control plane gave up on
(DELETING/DELETED) wins the argument. The scheduler must not fight a
datanode that still has data.
*/
package reconciler
