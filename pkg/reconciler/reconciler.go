package reconciler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ozone/repmgr/pkg/containermanager"
	"github.com/ozone/repmgr/pkg/log"
	"github.com/ozone/repmgr/pkg/metrics"
	"github.com/ozone/repmgr/pkg/nodemanager"
	"github.com/ozone/repmgr/pkg/types"
)

// Sentinel errors for the §7 report error kinds, classified by callers with
// errors.Is rather than string matching.
var (
	ErrInvalidReport = errors.New("reconciler: invalid report")
	ErrStaleReport   = errors.New("reconciler: stale report")
)

// ReplicaReport is one (containerID, replicaState, ...) tuple from a
// datanode's full or incremental container report (§6).
type ReplicaReport struct {
	ContainerID types.ContainerID
	State       types.ReplicaState
	OriginID    types.DatanodeID
	OpState     types.OpState
	SequenceID  int64
	KeyCount    int64
	BytesUsed   int64
	ECIndex     int
}

var validStates = map[types.ReplicaState]bool{
	types.ReplicaOpen:        true,
	types.ReplicaClosing:     true,
	types.ReplicaQuasiClosed: true,
	types.ReplicaClosed:      true,
	types.ReplicaUnhealthy:   true,
	types.ReplicaInvalid:     true,
}

// Reconciler applies container reports to the container/replica ledger
// (§4.7) and, on its own interval, recomputes datanode health from
// heartbeat age (the one part of node tracking that is time-driven rather
// than report-driven).
type Reconciler struct {
	containers *containermanager.Store
	nodes      *nodemanager.Registry
	logger     zerolog.Logger

	healthInterval time.Duration
	stopCh         chan struct{}
	stopOnce       sync.Once
	doneCh         chan struct{}

	mu          sync.Mutex
	sequenceIDs map[sequenceKey]int64
}

type sequenceKey struct {
	containerID types.ContainerID
	datanodeID  types.DatanodeID
	ecIndex     int
}

// New builds a Reconciler over the given ledger and node registry.
func New(containers *containermanager.Store, nodes *nodemanager.Registry, healthInterval time.Duration) *Reconciler {
	return &Reconciler{
		containers:     containers,
		nodes:          nodes,
		logger:         log.WithComponent("reconciler"),
		healthInterval: healthInterval,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
		sequenceIDs:    make(map[sequenceKey]int64),
	}
}

// Start launches the node-health recomputation loop.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop signals the health loop to exit and waits for it to do so.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

func (r *Reconciler) run() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.nodes.RecomputeHealth(time.Now())
		case <-r.stopCh:
			return
		}
	}
}

// ProcessReport applies a batch of replica reports from one datanode
// (§4.7, §6 CONTAINER_REPORT / INCREMENTAL_CONTAINER_REPORT). It is called
// synchronously from the report event handler, not from Reconciler's own
// ticker — reports arrive on their own schedule, driven by the datanode.
//
// It returns the joined drop errors (ErrInvalidReport / ErrStaleReport) for
// every report it dropped, so a caller that wants to react — rather than
// just have it logged and counted — can classify with errors.Is instead of
// string-matching.
func (r *Reconciler) ProcessReport(datanodeID types.DatanodeID, reports []ReplicaReport) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CycleLatency)

	var errs []error
	for _, report := range reports {
		if err := r.processOne(datanodeID, report); err != nil {
			r.recordDrop(datanodeID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Reconciler) processOne(datanodeID types.DatanodeID, report ReplicaReport) error {
	if report.KeyCount < 0 || report.BytesUsed < 0 || !validStates[report.State] {
		return fmt.Errorf("container %d: %w", report.ContainerID, ErrInvalidReport)
	}

	key := sequenceKey{containerID: report.ContainerID, datanodeID: datanodeID, ecIndex: report.ECIndex}
	r.mu.Lock()
	if recorded, ok := r.sequenceIDs[key]; ok && report.SequenceID < recorded {
		r.mu.Unlock()
		return fmt.Errorf("container %d: %w", report.ContainerID, ErrStaleReport)
	}
	r.sequenceIDs[key] = report.SequenceID
	r.mu.Unlock()

	r.applyResurrection(report)

	// Reports from DECOMMISSIONED nodes still count for replica presence
	// (they still serve reads); they are simply excluded from future
	// placement by the planner's IN_SERVICE-only candidate filter.
	r.containers.UpsertReplica(types.Replica{
		ContainerID: report.ContainerID,
		DatanodeID:  datanodeID,
		OriginID:    report.OriginID,
		State:       report.State,
		OpState:     report.OpState,
		SequenceID:  report.SequenceID,
		BytesUsed:   report.BytesUsed,
		KeyCount:    report.KeyCount,
		ECIndex:     report.ECIndex,
	})
	return nil
}

// recordDrop classifies a drop error via errors.Is and applies §7's
// per-kind handling: invalid reports are logged at WARN, stale reports are
// dropped silently — both are counted either way.
func (r *Reconciler) recordDrop(datanodeID types.DatanodeID, err error) {
	switch {
	case errors.Is(err, ErrInvalidReport):
		r.logger.Warn().Str("datanode_id", string(datanodeID)).Err(err).Msg("dropping malformed container report")
		metrics.ReportsDroppedTotal.WithLabelValues("invalid").Inc()
	case errors.Is(err, ErrStaleReport):
		metrics.ReportsDroppedTotal.WithLabelValues("stale").Inc()
	}
}

// applyResurrection implements §4.7's resurrection rule: a datanode that
// still holds data for a container the control plane gave up on pulls that
// container back to CLOSED rather than being fought.
func (r *Reconciler) applyResurrection(report ReplicaReport) {
	container, ok := r.containers.Container(report.ContainerID)
	if !ok {
		return
	}
	if container.State != types.LifecycleDeleting && container.State != types.LifecycleDeleted {
		return
	}

	hasData := report.KeyCount > 0
	reportedLive := report.State == types.ReplicaClosed || report.State == types.ReplicaQuasiClosed
	if !hasData && !reportedLive {
		return
	}

	if r.containers.UpdateLifecycle(report.ContainerID, types.LifecycleClosed) {
		r.logger.Info().
			Uint64("container_id", uint64(report.ContainerID)).
			Msg("resurrected container: datanode still holds data, reverting to CLOSED")
		metrics.ResurrectionsTotal.Inc()
	}
}
