// Package counter classifies container replication health. See doc.go.
package counter

import (
	"sort"

	"github.com/ozone/repmgr/pkg/types"
)

// Counter classifies a single container's replicas into a list of
// MisReplicatedOrigins. The input replicas must all belong to container.ID;
// callers (pkg/evaluator) are responsible for that partitioning.
type Counter interface {
	Count(container types.Container, replicas []types.Replica, minHealthyForMaintenance int) []types.MisReplicatedOrigin
}

// HasHealthyReplicas reports whether any replica in the set has a non-UNHEALTHY state.
func HasHealthyReplicas(replicas []types.Replica) bool {
	for _, r := range replicas {
		if r.State != types.ReplicaUnhealthy {
			return true
		}
	}
	return false
}

// HasOutOfServiceReplicas reports whether any replica is hosted on a
// non-IN_SERVICE datanode.
func HasOutOfServiceReplicas(replicas []types.Replica) bool {
	for _, r := range replicas {
		if !r.InService() {
			return true
		}
	}
	return false
}

func partitionInServiceMaintenance(replicas []types.Replica) (inService, maintenance []types.Replica) {
	for _, r := range replicas {
		if !r.Healthy() {
			continue
		}
		switch {
		case r.InService():
			inService = append(inService, r)
		case r.OpState.InMaintenance():
			maintenance = append(maintenance, r)
		}
	}
	return inService, maintenance
}

// RatisCounter implements §4.2: the closed single-origin rule and the
// quasi-closed-stuck multi-origin rule, selected by Container.MultiOrigin.
type RatisCounter struct{}

func (RatisCounter) Count(container types.Container, replicas []types.Replica, minHealthyForMaintenance int) []types.MisReplicatedOrigin {
	groups := groupByOrigin(replicas)

	origins := make([]types.DatanodeID, 0, len(groups))
	for origin := range groups {
		origins = append(origins, origin)
	}
	sort.Slice(origins, func(i, j int) bool { return origins[i] < origins[j] })

	var results []types.MisReplicatedOrigin
	for _, origin := range origins {
		group := groups[origin]
		inService, maintenance := partitionInServiceMaintenance(group)

		var delta int
		if container.MultiOrigin {
			delta = quasiClosedStuckDelta(inService, maintenance)
		} else {
			delta = closedSingleOriginDelta(inService, maintenance, minHealthyForMaintenance)
		}
		if delta == 0 {
			continue
		}

		results = append(results, types.MisReplicatedOrigin{
			OriginID:     origin,
			Index:        types.NoECIndex,
			Sources:      sourcesFor(delta, inService, maintenance),
			ReplicaDelta: delta,
		})
	}
	return results
}

// closedSingleOriginDelta implements §4.2's closed single-origin rule.
func closedSingleOriginDelta(inService, maintenance []types.Replica, minHealthyForMaintenance int) int {
	switch {
	case len(maintenance) > 0 && len(inService) < minHealthyForMaintenance:
		return minHealthyForMaintenance - len(inService)
	case len(maintenance) == 0 && len(inService) < 3:
		return 3 - len(inService)
	case len(inService) > 3:
		return -(len(inService) - 3)
	default:
		return 0
	}
}

// quasiClosedStuckDelta implements §4.2's multi-origin (quasi-closed-stuck) rule.
func quasiClosedStuckDelta(inService, maintenance []types.Replica) int {
	switch {
	case len(inService) < 2 && len(maintenance) > 0 && len(inService) == 0:
		return 1
	case len(inService) < 2 && len(maintenance) == 0:
		return 2 - len(inService)
	case len(inService) > 2:
		return -(len(inService) - 2)
	default:
		return 0
	}
}

// sourcesFor picks the replica pool a planner draws from: copy sources for
// under-replication (preferring in-service, falling back to maintenance per
// §4.5), victim candidates for over-replication (in-service only, §4.2's
// "ignore maintenance copies" rule extended to victim selection).
func sourcesFor(delta int, inService, maintenance []types.Replica) []types.Replica {
	if delta < 0 {
		return inService
	}
	if len(inService) > 0 {
		return inService
	}
	return maintenance
}

func groupByOrigin(replicas []types.Replica) map[types.DatanodeID][]types.Replica {
	groups := make(map[types.DatanodeID][]types.Replica)
	for _, r := range replicas {
		groups[r.OriginID] = append(groups[r.OriginID], r)
	}
	return groups
}
