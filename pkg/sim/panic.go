package sim

import (
	"fmt"
	"sync"

	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/simnet"
)

// PanicCapture is a process-wide panic hook written to a thread-local
// slot: one instance per run, closed over by the hook handed to
// simnet.New, so each run's captured panic (there is at most one — the
// first recovered panic wins) never leaks into another run's result.
type PanicCapture struct {
	mu  sync.Mutex
	msg string
	has bool
}

// Hook returns a simnet.PanicHook that records the first panic seen and
// cancels this run (matching §7's Panic taxonomy entry): a host or client
// task panicking ends its own run only, never the rest of a parallel
// batch.
func (p *PanicCapture) Hook(run *determinism.CancelToken) simnet.PanicHook {
	return func(name string, recovered interface{}) {
		p.mu.Lock()
		if !p.has {
			p.msg = fmt.Sprintf("panic in %q: %v", name, recovered)
			p.has = true
		}
		p.mu.Unlock()
		run.Cancel()
	}
}

// Take returns the captured message, if any, clearing the slot.
func (p *PanicCapture) Take() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg, has := p.msg, p.has
	p.msg, p.has = "", false
	return msg, has
}
