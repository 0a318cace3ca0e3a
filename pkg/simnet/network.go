// Package simnet implements the concrete Topology engine: the "external
// collaborator" the harness treats as a black box, built on an
// orchestrator-shaped run state and an event-ordered scheduling queue.
//
// Hosts and clients run as goroutines rather than a literal single-threaded
// poll loop — Go has no cooperative green-thread runtime to build on.
// Determinism of everything a run's reproducibility actually depends on —
// message delivery order, RNG draws, wake order, FINISH block content — is
// preserved by serializing all of that through Network's mutex and the
// seeded RNG bound to the run; only the incidental interleaving of
// unrelated goroutine-local computation between suspension points is left
// to the Go scheduler.
package simnet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jihwankim/dst-sim/pkg/config"
	"github.com/jihwankim/dst-sim/pkg/determinism"
)

type task struct {
	name    string
	isHost  bool
	factory func(context.Context) error
	cancel  *determinism.CancelToken
	done    bool
}

// PanicHook is invoked, with the originating task's name and the recovered
// value, when a host or client goroutine panics.
type PanicHook func(name string, recovered interface{})

// Network is the Topology (spec §6.3) for one run.
type Network struct {
	cfg *config.SimConfig
	env *determinism.Env
	hook PanicHook

	mu        sync.Mutex
	tick      uint64
	elapsed   time.Duration
	due       *dueQueue
	tasks     map[string]*task
	listeners map[string]*simListener
	linkBytes map[string]uint64
}

func New(cfg *config.SimConfig, env *determinism.Env, hook PanicHook) *Network {
	return &Network{
		cfg:       cfg,
		env:       env,
		hook:      hook,
		tick:      1,
		due:       newDueQueue(),
		tasks:     make(map[string]*task),
		listeners: make(map[string]*simListener),
		linkBytes: make(map[string]uint64),
	}
}

// Host registers a long-lived task; idempotent by name within a run.
func (n *Network) Host(name string, factory func(context.Context) error) error {
	n.mu.Lock()
	if _, exists := n.tasks[name]; exists {
		n.mu.Unlock()
		return nil
	}
	t := &task{name: name, isHost: true, factory: factory, cancel: determinism.NewCancelToken(n.env.Run)}
	n.tasks[name] = t
	n.mu.Unlock()
	n.startTask(t)
	return nil
}

// Client registers a one-shot task.
func (n *Network) Client(name string, fn func(context.Context) error) error {
	n.mu.Lock()
	if _, exists := n.tasks[name]; exists {
		n.mu.Unlock()
		return fmt.Errorf("simnet: client %q already registered", name)
	}
	t := &task{name: name, factory: fn, cancel: determinism.NewCancelToken(n.env.Run)}
	n.tasks[name] = t
	n.mu.Unlock()
	n.startTask(t)
	return nil
}

func (n *Network) startTask(t *task) {
	ctx := determinism.WithEnv(context.Background(), n.env)
	ctx = withTokenCancel(ctx, t.cancel)
	go func() {
		defer func() {
			if r := recover(); r != nil && n.hook != nil {
				n.hook(t.name, r)
			}
			n.mu.Lock()
			t.done = true
			n.mu.Unlock()
		}()
		_ = t.factory(ctx)
	}()
}

func withTokenCancel(parent context.Context, tok *determinism.CancelToken) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-tok.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}

// Bounce cancels the named host's current task subtree, then invokes its
// factory again.
func (n *Network) Bounce(name string) error {
	n.mu.Lock()
	t, ok := n.tasks[name]
	if !ok || !t.isHost {
		n.mu.Unlock()
		return fmt.Errorf("simnet: no host named %q", name)
	}
	t.cancel.Cancel()
	t.cancel = determinism.NewCancelToken(n.env.Run)
	t.done = false
	n.mu.Unlock()
	n.startTask(t)
	return nil
}

// Step polls every ready task once (by construction, hosts/clients already
// run concurrently as goroutines; Step's job is delivering due messages
// and waking due sleepers in deterministic order), advances virtual time
// by tick_duration, and reports whether every registered task has
// terminated.
func (n *Network) Step() (bool, error) {
	n.mu.Lock()
	n.tick++
	n.elapsed += n.cfg.TickDuration
	tick := n.tick
	n.mu.Unlock()

	n.due.drainDue(tick)

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.tasks) == 0 {
		return false, nil
	}
	for _, t := range n.tasks {
		if !t.done {
			return false, nil
		}
	}
	return true, nil
}

func (n *Network) Elapsed() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.elapsed
}

// SleepUntil implements determinism.Sleeper: block the caller until d of
// simulated time has elapsed, i.e. until Step has been called enough times.
func (n *Network) SleepUntil(ctx context.Context, d time.Duration) error {
	ticks := uint64(d / n.cfg.TickDuration)
	if d%n.cfg.TickDuration != 0 {
		ticks++
	}
	if ticks == 0 {
		ticks = 1
	}
	n.mu.Lock()
	wake := n.tick + ticks
	n.mu.Unlock()

	ch := make(chan struct{})
	n.due.push(wake, func() { close(ch) })
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-n.env.Run.Done():
		return ctx.Err()
	}
}

func (n *Network) latencyTicksLocked() uint64 {
	lo, hi := uint64(n.cfg.MinMessageLatency), uint64(n.cfg.MaxMessageLatency)
	lat := time.Duration(n.env.RNG.GenRange(lo, hi+1))
	ticks := uint64(lat / n.cfg.TickDuration)
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}
