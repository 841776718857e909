package nodemanager

import (
	"sync"
	"time"

	"github.com/ozone/repmgr/pkg/types"
)

// Registry is the in-memory datanode ledger. It implements
// pkg/planner.NodeSnapshot and pkg/evaluator.NodeLookup directly.
type Registry struct {
	mu         sync.RWMutex
	nodes      map[types.DatanodeID]types.Datanode
	staleAfter time.Duration
	deadAfter  time.Duration
}

// NewRegistry builds a registry that marks a node STALE after staleAfter
// without a heartbeat and DEAD after deadAfter.
func NewRegistry(staleAfter, deadAfter time.Duration) *Registry {
	return &Registry{
		nodes:      make(map[types.DatanodeID]types.Datanode),
		staleAfter: staleAfter,
		deadAfter:  deadAfter,
	}
}

// Put registers or updates a node's static info and operational state. It
// does not touch Health; call RecomputeHealth (or MarkHeartbeat) for that.
func (r *Registry) Put(dn types.Datanode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.nodes[dn.ID]; ok {
		dn.Health = existing.Health
		if dn.LastHeartbeat.IsZero() {
			dn.LastHeartbeat = existing.LastHeartbeat
		}
	}
	r.nodes[dn.ID] = dn
}

// MarkHeartbeat records a liveness signal and immediately marks the node
// HEALTHY; staleness is only ever discovered by RecomputeHealth walking
// forward from the last heartbeat, never by the heartbeat path itself.
func (r *Registry) MarkHeartbeat(id types.DatanodeID, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dn, ok := r.nodes[id]
	if !ok {
		return
	}
	dn.LastHeartbeat = at
	dn.Health = types.HealthHealthy
	r.nodes[id] = dn
}

// SetOpState changes a node's administrative operational state
// (IN_SERVICE/MAINTENANCE/DECOMMISSIONED), independent of liveness.
func (r *Registry) SetOpState(id types.DatanodeID, state types.OpState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dn, ok := r.nodes[id]
	if !ok {
		return
	}
	dn.OpState = state
	r.nodes[id] = dn
}

// RecomputeHealth walks every registered node and reclassifies its Health
// from heartbeat age as of now. The reconciler calls this on its own
// ticker, independently of the replication manager's classification cycles.
func (r *Registry) RecomputeHealth(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, dn := range r.nodes {
		age := now.Sub(dn.LastHeartbeat)
		switch {
		case dn.LastHeartbeat.IsZero():
			// never heard from; leave classification to the caller's
			// initial registration, not a heartbeat-age guess.
		case age >= r.deadAfter:
			dn.Health = types.HealthDead
		case age >= r.staleAfter:
			dn.Health = types.HealthStale
		default:
			dn.Health = types.HealthHealthy
		}
		r.nodes[id] = dn
	}
}

// Datanode returns a copy of one node's record.
func (r *Registry) Datanode(id types.DatanodeID) (types.Datanode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dn, ok := r.nodes[id]
	return dn, ok
}

// InServiceHealthy returns a snapshot of every node eligible to receive new
// replicas.
func (r *Registry) InServiceHealthy() []types.Datanode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.Datanode
	for _, dn := range r.nodes {
		if dn.Usable() {
			out = append(out, dn)
		}
	}
	return out
}

// All returns a snapshot of every registered node.
func (r *Registry) All() []types.Datanode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Datanode, 0, len(r.nodes))
	for _, dn := range r.nodes {
		out = append(out, dn)
	}
	return out
}
