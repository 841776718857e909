package planner

import (
	"testing"

	"github.com/ozone/repmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshot struct {
	nodes map[types.DatanodeID]types.Datanode
}

func (f fakeSnapshot) InServiceHealthy() []types.Datanode {
	var out []types.Datanode
	for _, dn := range f.nodes {
		if dn.Usable() {
			out = append(out, dn)
		}
	}
	return out
}

func (f fakeSnapshot) Datanode(id types.DatanodeID) (types.Datanode, bool) {
	dn, ok := f.nodes[id]
	return dn, ok
}

func usableNode(id types.DatanodeID, rack string, util float64) types.Datanode {
	return types.Datanode{ID: id, Rack: rack, OpState: types.OpInService, Health: types.HealthHealthy, UtilizedRatio: util}
}

func TestPlanReplicationExcludesOccupiedHostsAndRacks(t *testing.T) {
	nodes := fakeSnapshot{nodes: map[types.DatanodeID]types.Datanode{
		"DN1": usableNode("DN1", "rack-a", 0.1), // already hosting
		"DN2": usableNode("DN2", "rack-a", 0.2), // same rack as DN1
		"DN3": usableNode("DN3", "rack-b", 0.3), // eligible
	}}
	existingHosts := []types.Datanode{nodes.nodes["DN1"]}

	origin := types.MisReplicatedOrigin{
		OriginID:     "O1",
		Index:        types.NoECIndex,
		Sources:      []types.Replica{{DatanodeID: "DN1"}},
		ReplicaDelta: 1,
	}
	move := Plan(1, origin, existingHosts, nodes, 0)
	require.Len(t, move.Replicates, 1)
	assert.Equal(t, types.DatanodeID("DN3"), move.Replicates[0].Target)
}

func TestPlanReplicationExcludesOverUtilizedNodes(t *testing.T) {
	nodes := fakeSnapshot{nodes: map[types.DatanodeID]types.Datanode{
		"DN2": usableNode("DN2", "rack-b", 0.95),
		"DN3": usableNode("DN3", "rack-c", 0.1),
	}}
	origin := types.MisReplicatedOrigin{
		Sources:      []types.Replica{{DatanodeID: "DN1"}},
		ReplicaDelta: 1,
	}
	move := Plan(1, origin, nil, nodes, 0.9)
	require.Len(t, move.Replicates, 1)
	assert.Equal(t, types.DatanodeID("DN3"), move.Replicates[0].Target)
}

func TestPlanReplicationPicksLowestUtilizationThenLowestID(t *testing.T) {
	nodes := fakeSnapshot{nodes: map[types.DatanodeID]types.Datanode{
		"DNZ": usableNode("DNZ", "rack-a", 0.1),
		"DNA": usableNode("DNA", "rack-b", 0.1),
	}}
	origin := types.MisReplicatedOrigin{
		Sources:      []types.Replica{{DatanodeID: "DN1"}},
		ReplicaDelta: 1,
	}
	move := Plan(1, origin, nil, nodes, 0)
	require.Len(t, move.Replicates, 1)
	assert.Equal(t, types.DatanodeID("DNA"), move.Replicates[0].Target)
}

func TestPlanReplicationCapsAtAvailableCandidates(t *testing.T) {
	nodes := fakeSnapshot{nodes: map[types.DatanodeID]types.Datanode{
		"DN2": usableNode("DN2", "rack-b", 0.1),
	}}
	origin := types.MisReplicatedOrigin{
		Sources:      []types.Replica{{DatanodeID: "DN1"}},
		ReplicaDelta: 3,
	}
	move := Plan(1, origin, nil, nodes, 0)
	assert.Len(t, move.Replicates, 1)
}

func TestPlanDeletionNeverRemovesSoleReplica(t *testing.T) {
	origin := types.MisReplicatedOrigin{
		Sources:      []types.Replica{{DatanodeID: "DN1"}},
		ReplicaDelta: -1,
	}
	move := Plan(1, origin, nil, fakeSnapshot{}, 0)
	assert.Empty(t, move.Deletes)
}

func TestPlanDeletionPrefersMostUtilizedVictim(t *testing.T) {
	nodes := fakeSnapshot{nodes: map[types.DatanodeID]types.Datanode{
		"DN1": usableNode("DN1", "rack-a", 0.2),
		"DN2": usableNode("DN2", "rack-a", 0.9),
		"DN3": usableNode("DN3", "rack-a", 0.5),
	}}
	origin := types.MisReplicatedOrigin{
		Sources: []types.Replica{
			{DatanodeID: "DN1"},
			{DatanodeID: "DN2"},
			{DatanodeID: "DN3"},
		},
		ReplicaDelta: -1,
	}
	move := Plan(1, origin, nil, nodes, 0)
	require.Len(t, move.Deletes, 1)
	assert.Equal(t, types.DatanodeID("DN2"), move.Deletes[0].Target)
}
