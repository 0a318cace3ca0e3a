// Package plan implements the Interaction Plan: a seed-derived, restartable,
// inspectable sequence of protocol actions, generalized over the plan's
// private context type T (e.g. the set of known entity ids) — a sequence
// deterministically constructed from a seeded sampler, the same shape as a
// fault sequence generalized to an arbitrary protocol action.
package plan

import (
	"time"

	"github.com/jihwankim/dst-sim/pkg/determinism"
)

// ActionKind enumerates the sample protocol's action set (spec §4.8),
// plus the fault-injection action set a plan can equally well describe:
// a fault sequence is a sequence of actions over the same Plan[T]
// machinery, generalized to ActionSleep/ActionBounce instead of
// protocol calls.
type ActionKind int

const (
	ActionCreate ActionKind = iota
	ActionGet
	ActionList
	ActionGetBalance
	ActionVoid
	ActionSleep
	ActionBounce
	numActionKinds
)

func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "Create"
	case ActionGet:
		return "Get"
	case ActionList:
		return "List"
	case ActionGetBalance:
		return "GetBalance"
	case ActionVoid:
		return "Void"
	case ActionSleep:
		return "Sleep"
	case ActionBounce:
		return "Bounce"
	default:
		return "Unknown"
	}
}

// Action is one step of a plan. Only the fields relevant to Kind are
// set; ID doubles as the protocol client's entity id for
// ActionGet/ActionVoid and the fault injector's target host name for
// ActionBounce.
type Action struct {
	Kind   ActionKind
	Amount int64
	ID     string
	Sleep  time.Duration
}

// Generator draws the next action given the RNG and the plan's current
// context, without mutating ctx (Plan.AddInteraction does that via the
// plan's Recorder once the action is appended).
type Generator[T any] func(rng *determinism.RNG, ctx *T) Action

// Recorder updates ctx after an action is appended (e.g. a Create adds a
// known entity id).
type Recorder[T any] func(ctx *T, a Action)

// Plan is an ordered, finite, inspectable sequence of actions plus a
// cursor, generic over its private context type T.
type Plan[T any] struct {
	actions []Action
	cursor  int
	ctx     T
	rng     *determinism.RNG
	gen     Generator[T]
	rec     Recorder[T]
}

// New builds an empty plan at cursor 0.
func New[T any](rng *determinism.RNG, initial T, gen Generator[T], rec Recorder[T]) *Plan[T] {
	return &Plan[T]{rng: rng, ctx: initial, gen: gen, rec: rec}
}

// WithGenInteractions is the fluent constructor: New followed by
// GenInteractions(n).
func WithGenInteractions[T any](rng *determinism.RNG, initial T, gen Generator[T], rec Recorder[T], n int) *Plan[T] {
	p := New(rng, initial, gen, rec)
	p.GenInteractions(n)
	return p
}

// Step advances the cursor and returns the next action, or false at the
// end of the plan.
func (p *Plan[T]) Step() (Action, bool) {
	if p.cursor >= len(p.actions) {
		return Action{}, false
	}
	a := p.actions[p.cursor]
	p.cursor++
	return a, true
}

// GenInteractions appends exactly n pseudo-random actions, each drawn by
// the plan's Generator from the plan's RNG and context; the Generator
// decides how kinds are weighted.
func (p *Plan[T]) GenInteractions(n int) {
	for i := 0; i < n; i++ {
		p.AddInteraction(p.gen(p.rng, &p.ctx))
	}
}

// AddInteraction appends a explicitly, updating the plan's context.
func (p *Plan[T]) AddInteraction(a Action) {
	p.actions = append(p.actions, a)
	if p.rec != nil {
		p.rec(&p.ctx, a)
	}
}

// Prefix returns plan[..cursor], the consumed prefix a scenario inspects
// to compute reference expectations.
func (p *Plan[T]) Prefix() []Action {
	return append([]Action(nil), p.actions[:p.cursor]...)
}

// Cursor returns the current cursor position.
func (p *Plan[T]) Cursor() int { return p.cursor }

// Context returns a copy of the plan's private context.
func (p *Plan[T]) Context() T { return p.ctx }

// Reset rebuilds the plan from scratch against a fresh RNG (e.g. one
// re-seeded from the same seed), so that GenInteractions(n) reproduces the
// same sequence element-for-element (§8 property 5).
func (p *Plan[T]) Reset(rng *determinism.RNG, initial T) {
	p.actions = nil
	p.cursor = 0
	p.ctx = initial
	p.rng = rng
}
