package counter

import (
	"github.com/ozone/repmgr/pkg/types"
)

// ECCounter implements §4.3: classification by EC index rather than by
// origin. Every one of the k+m indices of an EC(k,m) container must be
// covered by exactly one healthy, in-service replica.
//
// Open question (spec §9): the relationship between minHealthyForMaintenance
// and EC containers is not exercised by the source extract. This
// implementation treats a maintenance-only index the same way the
// multi-origin Ratis rule treats a maintenance-only origin: zero in-service
// copies plus a maintenance copy is under-replicated by exactly 1, not by
// the full expected count, since the maintenance copy will return to
// service rather than having been lost. See DESIGN.md.
type ECCounter struct{}

func (ECCounter) Count(container types.Container, replicas []types.Replica, minHealthyForMaintenance int) []types.MisReplicatedOrigin {
	expected := container.Scheme.Data + container.Scheme.Parity
	byIndex := groupByIndex(replicas)

	var results []types.MisReplicatedOrigin
	for idx := 0; idx < expected; idx++ {
		group := byIndex[idx]
		inService, maintenance := partitionInServiceMaintenance(group)

		switch {
		case len(inService) == 0 && len(maintenance) == 0:
			results = append(results, types.MisReplicatedOrigin{
				Index:        idx,
				Sources:      allOtherUsable(byIndex, idx),
				ReplicaDelta: 1,
			})
		case len(inService) == 0 && len(maintenance) > 0:
			results = append(results, types.MisReplicatedOrigin{
				Index:        idx,
				Sources:      maintenance,
				ReplicaDelta: 1,
			})
		case len(inService) > 1:
			results = append(results, types.MisReplicatedOrigin{
				Index:        idx,
				Sources:      inService,
				ReplicaDelta: -(len(inService) - 1),
			})
		}
	}
	return results
}

func groupByIndex(replicas []types.Replica) map[int][]types.Replica {
	groups := make(map[int][]types.Replica)
	for _, r := range replicas {
		groups[r.ECIndex] = append(groups[r.ECIndex], r)
	}
	return groups
}

// allOtherUsable gathers the healthy in-service replicas at every index
// except the one being reconstructed; EC reconstruction reads the
// surviving indices to rebuild the missing one.
func allOtherUsable(byIndex map[int][]types.Replica, exclude int) []types.Replica {
	var sources []types.Replica
	for idx, group := range byIndex {
		if idx == exclude {
			continue
		}
		for _, r := range group {
			if r.Healthy() && r.InService() {
				sources = append(sources, r)
			}
		}
	}
	return sources
}
