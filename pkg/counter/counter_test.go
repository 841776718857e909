package counter

import (
	"testing"

	"github.com/ozone/repmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replica(origin, dn types.DatanodeID, op types.OpState) types.Replica {
	return types.Replica{
		ContainerID: 1,
		DatanodeID:  dn,
		OriginID:    origin,
		State:       types.ReplicaClosed,
		OpState:     op,
		ECIndex:     types.NoECIndex,
	}
}

func singleOriginContainer() types.Container {
	return types.Container{ID: 1, Scheme: types.ReplicationScheme{Kind: types.SchemeRatis}, State: types.LifecycleClosed}
}

func multiOriginContainer() types.Container {
	c := singleOriginContainer()
	c.MultiOrigin = true
	return c
}

// P1: 3 healthy in-service replicas, single origin -> OK.
func TestP1_ThreeInServiceSingleOrigin_OK(t *testing.T) {
	replicas := []types.Replica{
		replica("O1", "DN1", types.OpInService),
		replica("O1", "DN2", types.OpInService),
		replica("O1", "DN3", types.OpInService),
	}
	result := RatisCounter{}.Count(singleOriginContainer(), replicas, 2)
	assert.Empty(t, result)
}

// P2: 2 in-service, 0 maintenance, single origin -> under-replicated delta=1.
func TestP2_TwoInServiceSingleOrigin_Under(t *testing.T) {
	replicas := []types.Replica{
		replica("O1", "DN1", types.OpInService),
		replica("O1", "DN2", types.OpInService),
	}
	result := RatisCounter{}.Count(singleOriginContainer(), replicas, 2)
	require.Len(t, result, 1)
	assert.Equal(t, 1, result[0].ReplicaDelta)
}

// P3: 2 in-service + 1 maintenance, minHealthyForMaintenance=2 -> OK.
func TestP3_TwoInServicePlusMaintenance_OK(t *testing.T) {
	replicas := []types.Replica{
		replica("O1", "DN1", types.OpInService),
		replica("O1", "DN2", types.OpInService),
		replica("O1", "DN3", types.OpInMaintenance),
	}
	result := RatisCounter{}.Count(singleOriginContainer(), replicas, 2)
	assert.Empty(t, result)
}

// P4: two origins, 2 in-service per origin -> OK.
func TestP4_TwoOriginsTwoInServiceEach_OK(t *testing.T) {
	replicas := []types.Replica{
		replica("A", "DN1", types.OpInService),
		replica("A", "DN2", types.OpInService),
		replica("B", "DN3", types.OpInService),
		replica("B", "DN4", types.OpInService),
	}
	result := RatisCounter{}.Count(multiOriginContainer(), replicas, 2)
	assert.Empty(t, result)
}

// P5: two origins, 1 in-service each, no maintenance -> under delta=1 per origin.
func TestP5_TwoOriginsOneInServiceEach_UnderBoth(t *testing.T) {
	replicas := []types.Replica{
		replica("A", "DN1", types.OpInService),
		replica("B", "DN2", types.OpInService),
	}
	result := RatisCounter{}.Count(multiOriginContainer(), replicas, 2)
	require.Len(t, result, 2)
	assert.Equal(t, types.DatanodeID("A"), result[0].OriginID)
	assert.Equal(t, types.DatanodeID("B"), result[1].OriginID)
	assert.Equal(t, 1, result[0].ReplicaDelta)
	assert.Equal(t, 1, result[1].ReplicaDelta)
}

// P6: over-replication ignores maintenance copies.
func TestP6_OverReplicationIgnoresMaintenance(t *testing.T) {
	withMaintenance := []types.Replica{
		replica("O1", "DN1", types.OpInService),
		replica("O1", "DN2", types.OpInService),
		replica("O1", "DN3", types.OpInService),
		replica("O1", "DN4", types.OpInService),
		replica("O1", "DN5", types.OpInMaintenance),
	}
	withoutMaintenance := []types.Replica{
		replica("O1", "DN1", types.OpInService),
		replica("O1", "DN2", types.OpInService),
		replica("O1", "DN3", types.OpInService),
		replica("O1", "DN4", types.OpInService),
	}

	withM := RatisCounter{}.Count(singleOriginContainer(), withMaintenance, 2)
	withoutM := RatisCounter{}.Count(singleOriginContainer(), withoutMaintenance, 2)

	require.Len(t, withM, 1)
	require.Len(t, withoutM, 1)
	assert.Equal(t, withoutM[0].ReplicaDelta, withM[0].ReplicaDelta)
	assert.Equal(t, -1, withM[0].ReplicaDelta)
}

func TestOverReplicationDeltaMagnitude(t *testing.T) {
	replicas := []types.Replica{
		replica("O1", "DN1", types.OpInService),
		replica("O1", "DN2", types.OpInService),
		replica("O1", "DN3", types.OpInService),
		replica("O1", "DN4", types.OpInService),
		replica("O1", "DN5", types.OpInService),
	}
	result := RatisCounter{}.Count(singleOriginContainer(), replicas, 2)
	require.Len(t, result, 1)
	assert.Equal(t, -2, result[0].ReplicaDelta)
}

func TestMultiOriginOverReplication(t *testing.T) {
	replicas := []types.Replica{
		replica("A", "DN1", types.OpInService),
		replica("A", "DN2", types.OpInService),
		replica("A", "DN3", types.OpInService),
	}
	result := RatisCounter{}.Count(multiOriginContainer(), replicas, 2)
	require.Len(t, result, 1)
	assert.Equal(t, -1, result[0].ReplicaDelta)
}

func TestResultOrderingIsStableByOrigin(t *testing.T) {
	replicas := []types.Replica{
		replica("Z", "DN1", types.OpInService),
		replica("A", "DN2", types.OpInService),
	}
	result := RatisCounter{}.Count(multiOriginContainer(), replicas, 2)
	require.Len(t, result, 2)
	assert.Equal(t, types.DatanodeID("A"), result[0].OriginID)
	assert.Equal(t, types.DatanodeID("Z"), result[1].OriginID)
}

func ecReplica(dn types.DatanodeID, idx int, op types.OpState) types.Replica {
	return types.Replica{
		ContainerID: 2,
		DatanodeID:  dn,
		State:       types.ReplicaClosed,
		OpState:     op,
		ECIndex:     idx,
	}
}

func ecContainer() types.Container {
	return types.Container{
		ID:     2,
		Scheme: types.ReplicationScheme{Kind: types.SchemeEC, Data: 3, Parity: 2},
		State:  types.LifecycleClosed,
	}
}

func TestECAllIndicesPresent_OK(t *testing.T) {
	var replicas []types.Replica
	for i := 0; i < 5; i++ {
		replicas = append(replicas, ecReplica(types.DatanodeID("DN"), i, types.OpInService))
	}
	result := ECCounter{}.Count(ecContainer(), replicas, 2)
	assert.Empty(t, result)
}

func TestECMissingIndex_Under(t *testing.T) {
	var replicas []types.Replica
	for i := 0; i < 4; i++ { // index 4 missing
		replicas = append(replicas, ecReplica(types.DatanodeID("DN"), i, types.OpInService))
	}
	result := ECCounter{}.Count(ecContainer(), replicas, 2)
	require.Len(t, result, 1)
	assert.Equal(t, 4, result[0].Index)
	assert.Equal(t, 1, result[0].ReplicaDelta)
}

func TestECDuplicateIndex_Over(t *testing.T) {
	var replicas []types.Replica
	for i := 0; i < 5; i++ {
		replicas = append(replicas, ecReplica(types.DatanodeID("DN"), i, types.OpInService))
	}
	replicas = append(replicas, ecReplica("DN-dup", 0, types.OpInService))
	result := ECCounter{}.Count(ecContainer(), replicas, 2)
	require.Len(t, result, 1)
	assert.Equal(t, 0, result[0].Index)
	assert.Equal(t, -1, result[0].ReplicaDelta)
}

func TestHasHealthyReplicas(t *testing.T) {
	replicas := []types.Replica{
		{State: types.ReplicaUnhealthy},
		{State: types.ReplicaClosed},
	}
	assert.True(t, HasHealthyReplicas(replicas))
	assert.False(t, HasHealthyReplicas(replicas[:1]))
}

func TestHasOutOfServiceReplicas(t *testing.T) {
	replicas := []types.Replica{
		{OpState: types.OpInService},
		{OpState: types.OpDecommissioned},
	}
	assert.True(t, HasOutOfServiceReplicas(replicas))
	assert.False(t, HasOutOfServiceReplicas(replicas[:1]))
}
