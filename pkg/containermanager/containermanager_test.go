package containermanager

import (
	"testing"

	"github.com/ozone/repmgr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertReplicaDoesNotDuplicate(t *testing.T) {
	s := NewStore()
	s.UpsertReplica(types.Replica{ContainerID: 1, DatanodeID: "DN1", State: types.ReplicaClosing, ECIndex: types.NoECIndex})
	s.UpsertReplica(types.Replica{ContainerID: 1, DatanodeID: "DN1", State: types.ReplicaClosed, ECIndex: types.NoECIndex})

	replicas := s.ReplicasFor(1)
	require.Len(t, replicas, 1)
	assert.Equal(t, types.ReplicaClosed, replicas[0].State)
}

func TestContainerIDsAreSorted(t *testing.T) {
	s := NewStore()
	s.PutContainer(types.Container{ID: 5})
	s.PutContainer(types.Container{ID: 1})
	s.PutContainer(types.Container{ID: 3})

	assert.Equal(t, []types.ContainerID{1, 3, 5}, s.ContainerIDs())
}

func TestUpdateLifecycleUnknownContainerIsNoop(t *testing.T) {
	s := NewStore()
	assert.False(t, s.UpdateLifecycle(99, types.LifecycleClosed))
}

func TestRemoveReplica(t *testing.T) {
	s := NewStore()
	s.UpsertReplica(types.Replica{ContainerID: 1, DatanodeID: "DN1", ECIndex: types.NoECIndex})
	s.UpsertReplica(types.Replica{ContainerID: 1, DatanodeID: "DN2", ECIndex: types.NoECIndex})

	s.RemoveReplica(1, "DN1", types.NoECIndex)

	replicas := s.ReplicasFor(1)
	require.Len(t, replicas, 1)
	assert.Equal(t, types.DatanodeID("DN2"), replicas[0].DatanodeID)
}

func TestReplicasForUnknownContainerIsNil(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.ReplicasFor(42))
}
