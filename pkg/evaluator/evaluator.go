package evaluator

import (
	"sort"

	"github.com/ozone/repmgr/pkg/counter"
	"github.com/ozone/repmgr/pkg/types"
)

// OutcomeKind is the classification §4.4 assigns to one container.
type OutcomeKind int

const (
	OK OutcomeKind = iota
	UnderReplicated
	OverReplicated
	MisPlaced
	Unrecoverable
)

func (k OutcomeKind) String() string {
	switch k {
	case OK:
		return "OK"
	case UnderReplicated:
		return "UNDER_REPLICATED"
	case OverReplicated:
		return "OVER_REPLICATED"
	case MisPlaced:
		return "MIS_PLACED"
	case Unrecoverable:
		return "UNRECOVERABLE"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of evaluating one container's replica set.
type Outcome struct {
	Kind    OutcomeKind
	Origins []types.MisReplicatedOrigin
}

// NodeLookup resolves the placement metadata (rack) of a datanode. The
// evaluator depends only on this narrow collaborator, not the full node
// manager, so it can be unit-tested with a map-backed fake.
type NodeLookup interface {
	Datanode(id types.DatanodeID) (types.Datanode, bool)
}

// Evaluate implements §4.4. minHealthyForMaintenance is the configured floor
// (§6) used by the RatisCounter's closed single-origin rule.
func Evaluate(c counter.Counter, container types.Container, replicas []types.Replica, nodes NodeLookup, minHealthyForMaintenance int) Outcome {
	misReplicated := c.Count(container, replicas, minHealthyForMaintenance)

	var under, over []types.MisReplicatedOrigin
	for _, m := range misReplicated {
		if m.ReplicaDelta > 0 {
			under = append(under, m)
		} else {
			over = append(over, m)
		}
	}

	if len(under) > 0 {
		if !hasUsableSource(under) {
			return Outcome{Kind: Unrecoverable, Origins: sortedOrigins(under)}
		}
		return Outcome{Kind: UnderReplicated, Origins: sortedOrigins(under)}
	}

	if len(over) > 0 {
		return Outcome{Kind: OverReplicated, Origins: sortedOrigins(over)}
	}

	if nodes != nil {
		if misplaced := misplacedOrigins(replicas, nodes); len(misplaced) > 0 {
			return Outcome{Kind: MisPlaced, Origins: sortedOrigins(misplaced)}
		}
	}

	return Outcome{Kind: OK}
}

func hasUsableSource(under []types.MisReplicatedOrigin) bool {
	for _, m := range under {
		if len(m.Sources) > 0 {
			return true
		}
	}
	return false
}

// misplacedOrigins finds origins with two or more healthy in-service
// replicas on the same rack — correctly replicated by count, but violating
// the rack failure-domain constraint §4.5 enforces at placement time. The
// reported Sources are the replicas on one such rack. Replica counts are
// already known to be correct here, so a ReplicaDelta of 0 is reported; the
// planner returns an empty Move for a zero delta, and pkg/repmanager does
// not act on a MisPlaced outcome.
func misplacedOrigins(replicas []types.Replica, nodes NodeLookup) []types.MisReplicatedOrigin {
	byOrigin := make(map[types.DatanodeID][]types.Replica)
	for _, r := range replicas {
		if r.Healthy() && r.InService() {
			byOrigin[r.OriginID] = append(byOrigin[r.OriginID], r)
		}
	}

	var results []types.MisReplicatedOrigin
	for origin, group := range byOrigin {
		if len(group) < 2 {
			continue
		}
		racks := make(map[string][]types.Replica)
		for _, r := range group {
			dn, ok := nodes.Datanode(r.DatanodeID)
			if !ok {
				continue
			}
			racks[dn.Rack] = append(racks[dn.Rack], r)
		}
		for _, onRack := range racks {
			if len(onRack) > 1 {
				results = append(results, types.MisReplicatedOrigin{
					OriginID: origin,
					Index:    types.NoECIndex,
					Sources:  onRack,
				})
				break
			}
		}
	}
	return results
}

func sortedOrigins(origins []types.MisReplicatedOrigin) []types.MisReplicatedOrigin {
	sorted := make([]types.MisReplicatedOrigin, len(origins))
	copy(sorted, origins)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].OriginID != sorted[j].OriginID {
			return sorted[i].OriginID < sorted[j].OriginID
		}
		return sorted[i].Index < sorted[j].Index
	})
	return sorted
}
