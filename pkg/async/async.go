// Package async is the unified spawn/sleep/select/cancellation facade:
// the same calls work whether the caller is running against real time
// (the CLI's own process) or inside a simulated run, by reading the
// *determinism.Env bound to ctx (see determinism.FromContext). Built on
// context.Context, channels and time.Timer, the same primitives the
// teacher's emergency.Controller and orchestrator.interruptibleSleep use
// for real-time cancellable waiting — no third-party scheduler in the
// pack offers a backend pluggable between real and simulated clocks, so
// this stays on the standard library (see DESIGN.md).
package async

import (
	"context"
	"time"

	"github.com/jihwankim/dst-sim/pkg/determinism"
)

// Sleep suspends the calling goroutine until d has elapsed on whichever
// clock ctx is bound to.
func Sleep(ctx context.Context, d time.Duration) error {
	env := determinism.FromContext(ctx)
	if env == nil || env.Net == nil {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return env.Net.SleepUntil(ctx, d)
}

// Spawn runs fn on its own goroutine and returns a channel closed when it
// returns. fn is expected to watch ctx.Done() / the run's cancellation
// token itself; Spawn does not kill goroutines, it only observes them.
func Spawn(ctx context.Context, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()
	return done
}

// RunUntilCancelled resolves fn's result, or nil if tok fires first:
// cancellation is not an error, it is a distinct outcome.
func RunUntilCancelled(ctx context.Context, tok *determinism.CancelToken, fn func(context.Context) error) error {
	done := Spawn(ctx, fn)
	select {
	case err := <-done:
		return err
	case <-tok.Done():
		return nil
	}
}

// Select2 waits on two result channels and a cancellation token, returning
// whichever fires first. Declaration order (a before b) breaks ties when
// both become ready at the same virtual step, enforced by checking a in a
// non-blocking pre-select before the blocking three-way select.
func Select2[A, B any](ctx context.Context, tok *determinism.CancelToken, a <-chan A, b <-chan B) (av A, bv B, which int) {
	select {
	case av = <-a:
		return av, bv, 0
	default:
	}
	select {
	case av = <-a:
		return av, bv, 0
	case bv = <-b:
		return av, bv, 1
	case <-tok.Done():
		return av, bv, -1
	case <-ctx.Done():
		return av, bv, -1
	}
}
