package containermanager

import (
	"sort"
	"sync"

	"github.com/ozone/repmgr/pkg/types"
)

// Snapshot is the read-only view the replication manager loop consumes: the
// set of known container IDs, plus lookup by ID. Callers never get a handle
// into the live store, only copies.
type Snapshot interface {
	ContainerIDs() []types.ContainerID
	Container(id types.ContainerID) (types.Container, bool)
	ReplicasFor(id types.ContainerID) []types.Replica
}

// Store is the in-memory container/replica ledger. It is the mutation side
// the reconciler writes through (§4.7); the replication manager loop only
// ever sees it via the Snapshot interface.
type Store struct {
	mu         sync.RWMutex
	containers map[types.ContainerID]types.Container
	replicas   map[types.ContainerID][]types.Replica
}

// NewStore returns an empty in-memory container ledger.
func NewStore() *Store {
	return &Store{
		containers: make(map[types.ContainerID]types.Container),
		replicas:   make(map[types.ContainerID][]types.Replica),
	}
}

// PutContainer inserts or replaces a container's lifecycle record.
func (s *Store) PutContainer(c types.Container) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[c.ID] = c
}

// DeleteContainer removes a container and its replica set entirely.
func (s *Store) DeleteContainer(id types.ContainerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.containers, id)
	delete(s.replicas, id)
}

// UpdateLifecycle transitions a known container's lifecycle state in place.
// Reports for unknown containers are a no-op; the reconciler logs that case.
func (s *Store) UpdateLifecycle(id types.ContainerID, state types.LifecycleState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[id]
	if !ok {
		return false
	}
	c.State = state
	s.containers[id] = c
	return true
}

// UpsertReplica records a reported replica, replacing any prior report from
// the same (containerID, datanodeID, ECIndex) rather than duplicating it —
// §4.7's "do not duplicate" rule.
func (s *Store) UpsertReplica(r types.Replica) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.replicas[r.ContainerID]
	for i, e := range existing {
		if e.DatanodeID == r.DatanodeID && e.ECIndex == r.ECIndex {
			existing[i] = r
			s.replicas[r.ContainerID] = existing
			return
		}
	}
	s.replicas[r.ContainerID] = append(existing, r)
}

// RemoveReplica drops a reported replica, e.g. after a confirmed delete.
func (s *Store) RemoveReplica(containerID types.ContainerID, datanodeID types.DatanodeID, ecIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.replicas[containerID]
	for i, e := range existing {
		if e.DatanodeID == datanodeID && e.ECIndex == ecIndex {
			s.replicas[containerID] = append(existing[:i], existing[i+1:]...)
			return
		}
	}
}

// ContainerIDs returns a stable-sorted snapshot of all known container IDs.
func (s *Store) ContainerIDs() []types.ContainerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]types.ContainerID, 0, len(s.containers))
	for id := range s.containers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Container returns a copy of the container record, if known.
func (s *Store) Container(id types.ContainerID) (types.Container, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[id]
	return c, ok
}

// ReplicasFor returns a copy of the replica slice reported for a container;
// nil if none have been reported yet.
func (s *Store) ReplicasFor(id types.ContainerID) []types.Replica {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing := s.replicas[id]
	if existing == nil {
		return nil
	}
	out := make([]types.Replica, len(existing))
	copy(out, existing)
	return out
}
