package planner

import (
	"sort"

	"github.com/ozone/repmgr/pkg/types"
)

// NodeSnapshot is the narrow read-only view of cluster topology the planner
// needs; pkg/nodemanager provides the real implementation, an in-memory map
// backs it in tests.
type NodeSnapshot interface {
	InServiceHealthy() []types.Datanode
	Datanode(id types.DatanodeID) (types.Datanode, bool)
}

// Replicate is a planned copy: read the container from Source, write it to Target.
type Replicate struct {
	ContainerID types.ContainerID
	Index       int // EC index; types.NoECIndex for Ratis
	Source      types.DatanodeID
	Target      types.DatanodeID
}

// Delete is a planned removal of one surplus in-service copy.
type Delete struct {
	ContainerID types.ContainerID
	Index       int
	Target      types.DatanodeID
}

// Move is the output of one Plan call: zero or more replicates (delta > 0)
// xor zero or more deletes (delta < 0), never both for the same origin.
type Move struct {
	Replicates []Replicate
	Deletes    []Delete
}

// Plan implements §4.5 for a single MisReplicatedOrigin. existingHosts is the
// set of datanodes already hosting a replica of this container (any origin),
// used to exclude co-location; utilizationThreshold excludes nodes past
// capacity (0 disables the check).
func Plan(containerID types.ContainerID, origin types.MisReplicatedOrigin, existingHosts []types.Datanode, nodes NodeSnapshot, utilizationThreshold float64) Move {
	if origin.ReplicaDelta > 0 {
		return planReplication(containerID, origin, existingHosts, nodes, utilizationThreshold)
	}
	if origin.ReplicaDelta < 0 {
		return planDeletion(containerID, origin, nodes)
	}
	return Move{}
}

func planReplication(containerID types.ContainerID, origin types.MisReplicatedOrigin, existingHosts []types.Datanode, nodes NodeSnapshot, utilizationThreshold float64) Move {
	if len(origin.Sources) == 0 {
		return Move{}
	}
	source := origin.Sources[0].DatanodeID

	occupiedHost := make(map[types.DatanodeID]bool, len(existingHosts))
	occupiedRack := make(map[string]bool, len(existingHosts))
	for _, dn := range existingHosts {
		occupiedHost[dn.ID] = true
		occupiedRack[dn.Rack] = true
	}

	var candidates []types.Datanode
	for _, dn := range nodes.InServiceHealthy() {
		if occupiedHost[dn.ID] || occupiedRack[dn.Rack] {
			continue
		}
		if utilizationThreshold > 0 && dn.UtilizedRatio >= utilizationThreshold {
			continue
		}
		candidates = append(candidates, dn)
	}
	sortByUtilizationThenID(candidates)

	need := origin.ReplicaDelta
	if len(candidates) < need {
		need = len(candidates)
	}

	move := Move{}
	for i := 0; i < need; i++ {
		move.Replicates = append(move.Replicates, Replicate{
			ContainerID: containerID,
			Index:       origin.Index,
			Source:      source,
			Target:      candidates[i].ID,
		})
	}
	return move
}

func planDeletion(containerID types.ContainerID, origin types.MisReplicatedOrigin, nodes NodeSnapshot) Move {
	victimCount := -origin.ReplicaDelta
	// Never delete the sole remaining replica of an origin.
	if victimCount >= len(origin.Sources) {
		victimCount = len(origin.Sources) - 1
	}
	if victimCount <= 0 {
		return Move{}
	}

	utilization := func(r types.Replica) float64 {
		if nodes == nil {
			return 0
		}
		if dn, ok := nodes.Datanode(r.DatanodeID); ok {
			return dn.UtilizedRatio
		}
		return 0
	}

	candidates := make([]types.Replica, len(origin.Sources))
	copy(candidates, origin.Sources)
	sort.Slice(candidates, func(i, j int) bool {
		ui, uj := utilization(candidates[i]), utilization(candidates[j])
		if ui != uj {
			return ui > uj
		}
		return candidates[i].DatanodeID < candidates[j].DatanodeID
	})

	move := Move{}
	for i := 0; i < victimCount; i++ {
		move.Deletes = append(move.Deletes, Delete{
			ContainerID: containerID,
			Index:       origin.Index,
			Target:      candidates[i].DatanodeID,
		})
	}
	return move
}

func sortByUtilizationThenID(nodes []types.Datanode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].UtilizedRatio != nodes[j].UtilizedRatio {
			return nodes[i].UtilizedRatio < nodes[j].UtilizedRatio
		}
		return nodes[i].ID < nodes[j].ID
	})
}
