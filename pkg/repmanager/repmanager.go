package repmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ozone/repmgr/pkg/config"
	"github.com/ozone/repmgr/pkg/containermanager"
	"github.com/ozone/repmgr/pkg/counter"
	"github.com/ozone/repmgr/pkg/dispatch"
	"github.com/ozone/repmgr/pkg/evaluator"
	"github.com/ozone/repmgr/pkg/log"
	"github.com/ozone/repmgr/pkg/metrics"
	"github.com/ozone/repmgr/pkg/planner"
	"github.com/ozone/repmgr/pkg/types"
)

// Sentinel errors for two of the §7 error kinds this loop detects directly
// (the other three — transient source error, invalid input, stale report —
// surface from pkg/dispatch and pkg/reconciler instead). Classified by
// reportClassificationError via errors.Is rather than string matching.
var (
	ErrUnrecoverableContainer = errors.New("repmanager: unrecoverable container")
	ErrInvariantViolation     = errors.New("repmanager: invariant violation")
)

// State is one position in the INIT -> RUNNING -> WAITING -> ... -> STOPPED
// state machine §4.6 describes.
type State int32

const (
	StateInit State = iota
	StateRunning
	StateWaiting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateWaiting:
		return "WAITING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

type workItem struct {
	containerID types.ContainerID
	origin      types.MisReplicatedOrigin
}

type inFlightKey struct {
	containerID types.ContainerID
	kind        types.CommandKind
	originID    types.DatanodeID
	index       int
}

// Manager is the replication manager loop (§4.6). One Manager owns exactly
// one goroutine; every field below except the ones explicitly marked atomic
// is touched only by that goroutine, per §5's single-writer rule.
type Manager struct {
	cfg        config.Replication
	containers containermanager.Snapshot
	nodes      planner.NodeSnapshot
	dispatcher dispatch.Dispatcher
	logger     zerolog.Logger

	state   atomic.Int32
	waiting atomic.Bool

	notifyCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}

	safeModeExitAt time.Time

	underQueue []workItem
	overQueue  []workItem
	inFlight   map[inFlightKey]time.Time

	// limiter enforces max.commands.per.cycle (§6) as a token bucket that
	// refills over the classification interval, rather than a counter reset
	// on each tick — this also smooths dispatch within a cycle instead of
	// bursting the whole budget the instant it refills.
	limiter *rate.Limiter

	drainTimeout time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
}

// New builds a Manager. containers and nodes are the read-only collaborator
// snapshots (§9: no back-reference is ever held into either).
func New(cfg config.Replication, containers containermanager.Snapshot, nodes planner.NodeSnapshot, dispatcher dispatch.Dispatcher) *Manager {
	perCycle := cfg.MaxCommandsPerCycle
	if perCycle <= 0 {
		perCycle = 1
	}
	m := &Manager{
		cfg:          cfg,
		containers:   containers,
		nodes:        nodes,
		dispatcher:   dispatcher,
		logger:       log.WithComponent("repmanager"),
		notifyCh:     make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		inFlight:     make(map[inFlightKey]time.Time),
		limiter:      rate.NewLimiter(rate.Limit(float64(perCycle)/cfg.Interval.Seconds()), perCycle),
		drainTimeout: 60 * time.Second,
	}
	m.state.Store(int32(StateInit))
	return m
}

// Start transitions INIT -> RUNNING and launches the loop goroutine. The
// safe-mode-exit-wait window (§4.6) is measured from this call.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.safeModeExitAt = time.Now().Add(m.cfg.SafeModeExitWait)
		m.state.Store(int32(StateRunning))
		go m.run()
	})
}

// Stop signals the loop to exit and blocks until it does or the drain
// timeout elapses, whichever is first (§4.6, §8 P9). Any plan in flight at
// that point is discarded, never partially dispatched.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	select {
	case <-m.doneCh:
	case <-time.After(m.drainTimeout):
		m.logger.Warn().Msg("stop: drain timeout elapsed, loop goroutine did not exit in time")
	}
}

// Notify requests an extra classification cycle over all containers as soon
// as possible. Multiple calls between two loop iterations coalesce into one
// cycle (§9) — the channel is single-slot and the send is non-blocking.
func (m *Manager) Notify() {
	select {
	case m.notifyCh <- struct{}{}:
	default:
	}
}

// State returns the current position in the state machine.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// IsThreadWaiting reports whether the loop is currently parked with nothing
// queued to do — the property §4.6 calls out as needing to be observable.
func (m *Manager) IsThreadWaiting() bool {
	return m.waiting.Load()
}

func (m *Manager) run() {
	defer close(m.doneCh)

	classifyTicker := time.NewTicker(m.cfg.Interval)
	defer classifyTicker.Stop()
	underTicker := time.NewTicker(m.cfg.UnderInterval)
	defer underTicker.Stop()
	overTicker := time.NewTicker(m.cfg.OverInterval)
	defer overTicker.Stop()

	for {
		idle := len(m.underQueue) == 0 && len(m.overQueue) == 0
		m.waiting.Store(idle)
		if idle {
			m.state.Store(int32(StateWaiting))
			metrics.ThreadWaiting.Set(1)
		} else {
			metrics.ThreadWaiting.Set(0)
		}

		select {
		case <-m.stopCh:
			m.state.Store(int32(StateStopped))
			m.waiting.Store(false)
			return

		case <-classifyTicker.C:
			m.enterRunning()
			m.classify()

		case <-m.notifyCh:
			m.enterRunning()
			m.classify()

		case <-underTicker.C:
			m.enterRunning()
			m.drainUnder()

		case <-overTicker.C:
			m.enterRunning()
			m.drainOver()
		}
	}
}

func (m *Manager) enterRunning() {
	m.waiting.Store(false)
	m.state.Store(int32(StateRunning))
}

// classify performs steps 1-4 of §4.6's per-cycle description: snapshot
// container IDs, read replicas, apply §4.2/§4.3 via the matching Counter,
// apply §4.4, and append work to the two queues.
func (m *Manager) classify() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.CycleLatency)
		metrics.CyclesTotal.Inc()
	}()

	var underCount, overCount int
	metrics.ContainersUnrecoverable.Set(0)
	for _, id := range m.containers.ContainerIDs() {
		container, ok := m.containers.Container(id)
		if !ok {
			continue
		}
		replicas := m.containers.ReplicasFor(id)

		c := counterFor(container)
		outcome := evaluator.Evaluate(c, container, replicas, m.nodes, m.cfg.MinHealthyForMaint)

		switch outcome.Kind {
		case evaluator.UnderReplicated:
			underCount++
			for _, origin := range outcome.Origins {
				if origin.ReplicaDelta <= 0 {
					m.reportClassificationError(fmt.Errorf("container %d origin %s: under-replicated outcome with non-positive delta %d: %w", id, origin.OriginID, origin.ReplicaDelta, ErrInvariantViolation))
					continue
				}
				if m.markInFlight(id, types.CommandReplicate, origin) {
					m.underQueue = append(m.underQueue, workItem{containerID: id, origin: origin})
				}
			}
		case evaluator.OverReplicated:
			overCount++
			for _, origin := range outcome.Origins {
				if origin.ReplicaDelta >= 0 {
					m.reportClassificationError(fmt.Errorf("container %d origin %s: over-replicated outcome with non-negative delta %d: %w", id, origin.OriginID, origin.ReplicaDelta, ErrInvariantViolation))
					continue
				}
				if m.markInFlight(id, types.CommandDeleteReplica, origin) {
					m.overQueue = append(m.overQueue, workItem{containerID: id, origin: origin})
				}
			}
		case evaluator.Unrecoverable:
			m.reportClassificationError(fmt.Errorf("container %d: %w", id, ErrUnrecoverableContainer))
		}
	}

	metrics.ContainersUnderReplicated.Set(float64(underCount))
	metrics.ContainersOverReplicated.Set(float64(overCount))
}

// reportClassificationError applies §7's handling for the two classify-time
// error kinds, picked by errors.Is rather than a type switch: an
// unrecoverable container logs at WARN and counts toward a gauge so it
// stays visible every cycle it persists; an invariant violation logs at
// ERROR and is otherwise skipped — it never reaches either work queue.
func (m *Manager) reportClassificationError(err error) {
	switch {
	case errors.Is(err, ErrUnrecoverableContainer):
		m.logger.Warn().Err(err).Msg("container unrecoverable: no healthy source to copy from")
		metrics.ContainersUnrecoverable.Inc()
	case errors.Is(err, ErrInvariantViolation):
		m.logger.Error().Err(err).Msg("internal invariant violation, skipping container")
	}
}

// markInFlight records that a command is already pending for this
// (container, kind, origin/index) and reports whether a new one should
// still be enqueued. The map is cleared lazily: an entry older than twice
// the classification interval is treated as stale (its command either
// landed, in which case the next report will reflect it, or was lost, in
// which case we want to retry rather than wedge forever).
func (m *Manager) markInFlight(id types.ContainerID, kind types.CommandKind, origin types.MisReplicatedOrigin) bool {
	key := inFlightKey{containerID: id, kind: kind, originID: origin.OriginID, index: origin.Index}
	if issuedAt, ok := m.inFlight[key]; ok {
		if time.Since(issuedAt) < 2*m.cfg.Interval {
			return false
		}
	}
	m.inFlight[key] = time.Now()
	return true
}

func (m *Manager) clearInFlight(id types.ContainerID, kind types.CommandKind, originID types.DatanodeID, index int) {
	delete(m.inFlight, inFlightKey{containerID: id, kind: kind, originID: originID, index: index})
}

// drainUnder dispatches REPLICATE commands from the under-replication work
// list, throttled by the shared command-rate limiter. Never gated by safe
// mode.
func (m *Manager) drainUnder() {
	for len(m.underQueue) > 0 {
		item := m.underQueue[0]
		m.underQueue = m.underQueue[1:]

		existingHosts := m.hostsFor(item.containerID)
		move := planner.Plan(item.containerID, item.origin, existingHosts, m.nodes, 0)
		for _, r := range move.Replicates {
			if !m.limiter.Allow() {
				m.underQueue = append([]workItem{item}, m.underQueue...)
				return
			}
			m.dispatchReplicate(item.containerID, r)
		}
		m.clearInFlight(item.containerID, types.CommandReplicate, item.origin.OriginID, item.origin.Index)
	}
}

// drainOver dispatches DELETE_REPLICA commands from the over-replication
// work list, throttled the same way as drainUnder. While the
// safe-mode-exit-wait window hasn't elapsed, these deletes are deferred —
// left on the queue — rather than dispatched or dropped (§4.6).
func (m *Manager) drainOver() {
	if time.Now().Before(m.safeModeExitAt) {
		return
	}
	for len(m.overQueue) > 0 {
		item := m.overQueue[0]
		m.overQueue = m.overQueue[1:]

		move := planner.Plan(item.containerID, item.origin, nil, m.nodes, 0)
		for _, d := range move.Deletes {
			if !m.limiter.Allow() {
				m.overQueue = append([]workItem{item}, m.overQueue...)
				return
			}
			m.dispatchDelete(item.containerID, d)
		}
		m.clearInFlight(item.containerID, types.CommandDeleteReplica, item.origin.OriginID, item.origin.Index)
	}
}

func (m *Manager) hostsFor(id types.ContainerID) []types.Datanode {
	var hosts []types.Datanode
	for _, r := range m.containers.ReplicasFor(id) {
		if dn, ok := m.nodes.Datanode(r.DatanodeID); ok {
			hosts = append(hosts, dn)
		}
	}
	return hosts
}

func (m *Manager) dispatchReplicate(id types.ContainerID, r planner.Replicate) {
	cmd := types.Command{
		ID:          uuid.New().String(),
		Kind:        types.CommandReplicate,
		ContainerID: id,
		Source:      r.Source,
		Target:      r.Target,
		Compression: types.CompressionNone,
		IssuedAt:    time.Now(),
	}
	m.send(r.Target, cmd)
}

func (m *Manager) dispatchDelete(id types.ContainerID, d planner.Delete) {
	cmd := types.Command{
		ID:          uuid.New().String(),
		Kind:        types.CommandDeleteReplica,
		ContainerID: id,
		Target:      d.Target,
		IssuedAt:    time.Now(),
	}
	m.send(d.Target, cmd)
}

func (m *Manager) send(target types.DatanodeID, cmd types.Command) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.dispatcher.Send(ctx, target, cmd); err != nil {
		m.logger.Error().Err(err).Str("datanode_id", string(target)).Str("kind", string(cmd.Kind)).Msg("dispatch failed, will retry next cycle")
		return
	}
	metrics.CommandsIssuedTotal.WithLabelValues(string(cmd.Kind)).Inc()
}

// counterFor selects the Counter implementation matching a container's
// replication scheme, per §4.2/§4.3.
func counterFor(container types.Container) counter.Counter {
	if container.Scheme.Kind == types.SchemeEC {
		return counter.ECCounter{}
	}
	return counter.RatisCounter{}
}
