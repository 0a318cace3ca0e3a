// Package determinism provides the per-worker deterministic world — clock,
// RNG, step counter, virtual filesystem, and the three cancellation scopes —
// that every simulator-facing primitive reads from. Go has no language-level
// thread-local storage, so instead of binding these once at worker-thread
// start the way the source design note suggests, an *Env is constructed
// once per worker goroutine and threaded through every call on a
// context.Context, which is the idiomatic Go substitute.
package determinism

import (
	"context"
	"time"
)

type ctxKey struct{}

// Env bundles one run's deterministic world.
type Env struct {
	WorkerID int
	Seed     uint64
	RNG      *RNG
	Step     *StepCounter
	Clock    *Clock
	FS       *FS

	Global *CancelToken // never reset, set on interrupt
	Batch  *CancelToken // set at end of a parallel batch
	Run    *CancelToken // reset at the start of every run, child of Batch

	// Net is the run's Topology, consulted by pkg/async for Sleep and by
	// pkg/nettransport for connect/accept/read/write. Nil until the Runner
	// constructs the topology (step 4 of the run algorithm), so facade
	// calls made from bootstrap.init() see a nil Net and must not block.
	Net Topology
}

// Sleeper is the capability the simulated clock needs from the Topology:
// suspend the calling goroutine until d of simulated time has elapsed.
// Implemented by pkg/simnet.Network; declared here (rather than in
// pkg/async, the caller) so both can depend on determinism without a
// cycle.
type Sleeper interface {
	SleepUntil(ctx context.Context, d time.Duration) error
}

// Topology is the facades' combined view of the Topology contract (§6.3):
// the subset needed to route Sleep, connect, and listen calls.
type Topology interface {
	Sleeper
	Dialer
}

// NewEnv builds a fresh Env for one run. global and batch are shared across
// every worker and run in the process; a fresh Run token is created as a
// child of batch so a batch-wide cancel propagates to every in-flight run.
func NewEnv(workerID int, seed uint64, epochOffsetMs, stepMultiplier uint64, global, batch *CancelToken) *Env {
	step := NewStepCounter()
	return &Env{
		WorkerID: workerID,
		Seed:     seed,
		RNG:      NewRNG(seed),
		Step:     step,
		Clock:    NewClock(step, epochOffsetMs, stepMultiplier),
		FS:       NewFS(),
		Global:   global,
		Batch:    batch,
		Run:      NewCancelToken(batch),
	}
}

func WithEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, ctxKey{}, env)
}

// FromContext returns the Env bound to ctx, or nil if none was bound —
// callers on the real-time backend never bind one and must treat a nil Env
// as "use wall-clock time and OS entropy".
func FromContext(ctx context.Context) *Env {
	env, _ := ctx.Value(ctxKey{}).(*Env)
	return env
}
