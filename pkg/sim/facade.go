package sim

import (
	"context"
	"fmt"

	"github.com/jihwankim/dst-sim/pkg/async"
	"github.com/jihwankim/dst-sim/pkg/determinism"
)

// Sim is the surface a scenario uses to populate the topology (§4.6). In
// worker-threaded mode, names are suffixed with the worker id so that
// concurrently running topologies never collide on a host name.
type Sim struct {
	topo     Topology
	workerID int
	suffixed bool
	runTok   *determinism.CancelToken
}

func newSim(topo Topology, workerID int, suffixed bool, runTok *determinism.CancelToken) *Sim {
	return &Sim{topo: topo, workerID: workerID, suffixed: suffixed, runTok: runTok}
}

func (s *Sim) qualify(name string) string {
	if !s.suffixed {
		return name
	}
	return fmt.Sprintf("%s_%d", name, s.workerID)
}

// Host registers a long-lived task; factory may be invoked again on Bounce.
func (s *Sim) Host(name string, factory func(context.Context) error) error {
	return s.topo.Host(s.qualify(name), factory)
}

// Client registers a one-shot task.
func (s *Sim) Client(name string, fn func(context.Context) error) error {
	return s.topo.Client(s.qualify(name), fn)
}

// ClientUntilCancelled wraps fn so that per-run cancellation resolves it
// to nil instead of propagating an error.
func (s *Sim) ClientUntilCancelled(name string, fn func(context.Context) error) error {
	return s.topo.Client(s.qualify(name), func(ctx context.Context) error {
		return async.RunUntilCancelled(ctx, s.runTok, fn)
	})
}

// Bounce stops and restarts the named host.
func (s *Sim) Bounce(name string) error {
	return s.topo.Bounce(s.qualify(name))
}

// WorkerID returns the worker this Sim's topology belongs to.
func (s *Sim) WorkerID() int { return s.workerID }
