package dispatch

import (
	"context"
	"sync"

	"github.com/ozone/repmgr/pkg/types"
)

// Dispatcher is the push API §4.8 describes: fire-and-forget delivery of one
// command to one datanode. Send must not block the caller on end-to-end
// confirmation; back-pressure (if any) is the only thing it may block on.
type Dispatcher interface {
	Send(ctx context.Context, datanodeID types.DatanodeID, cmd types.Command) error
}

// FanOut is an in-memory Dispatcher: it records every command it is handed
// and never fails. It is the reference implementation used in tests and as
// the default before a real datanode-facing transport is wired in; the core
// only depends on the Dispatcher interface, never on FanOut directly.
type FanOut struct {
	mu   sync.Mutex
	sent []Sent
}

// Sent is one recorded dispatch, for test assertions and introspection.
type Sent struct {
	DatanodeID types.DatanodeID
	Command    types.Command
}

// NewFanOut returns an empty in-memory dispatcher.
func NewFanOut() *FanOut {
	return &FanOut{}
}

// Send records the command. Duplicate (datanodeID, Command.ID) pairs are
// recorded each time they're sent — deduplication is the manager loop's
// responsibility (§5's in-flight command map), not the dispatcher's.
func (f *FanOut) Send(_ context.Context, datanodeID types.DatanodeID, cmd types.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Sent{DatanodeID: datanodeID, Command: cmd})
	return nil
}

// Sent returns a copy of every command recorded so far, in dispatch order.
func (f *FanOut) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sent, len(f.sent))
	copy(out, f.sent)
	return out
}
