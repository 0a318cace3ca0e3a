package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/plan"
)

type countCtx struct {
	creates int
}

func gen(rng *determinism.RNG, ctx *countCtx) plan.Action {
	if rng.Float64() < 0.5 {
		return plan.Action{Kind: plan.ActionCreate, Amount: int64(rng.GenRange(1, 100))}
	}
	return plan.Action{Kind: plan.ActionList}
}

func rec(ctx *countCtx, a plan.Action) {
	if a.Kind == plan.ActionCreate {
		ctx.creates++
	}
}

func TestPlanStepDrainsInOrder(t *testing.T) {
	p := plan.WithGenInteractions(determinism.NewRNG(1), countCtx{}, gen, rec, 5)
	require.Equal(t, 0, p.Cursor())

	var seen []plan.Action
	for {
		a, ok := p.Step()
		if !ok {
			break
		}
		seen = append(seen, a)
	}
	require.Len(t, seen, 5)
	require.Equal(t, 5, p.Cursor())

	_, ok := p.Step()
	require.False(t, ok)
}

func TestPlanReproducesFromSameSeed(t *testing.T) {
	p1 := plan.WithGenInteractions(determinism.NewRNG(99), countCtx{}, gen, rec, 20)
	p2 := plan.WithGenInteractions(determinism.NewRNG(99), countCtx{}, gen, rec, 20)

	for i := 0; i < 20; i++ {
		a1, ok1 := p1.Step()
		a2, ok2 := p2.Step()
		require.Equal(t, ok1, ok2)
		require.Equal(t, a1, a2)
	}
	require.Equal(t, p1.Context(), p2.Context())
}

func TestPlanResetReproducesSameSequence(t *testing.T) {
	p := plan.WithGenInteractions(determinism.NewRNG(7), countCtx{}, gen, rec, 10)
	for _, ok := p.Step(); ok; _, ok = p.Step() {
	}
	first := p.Prefix()
	require.Len(t, first, 10)

	p.Reset(determinism.NewRNG(7), countCtx{})
	p.GenInteractions(10)
	for _, ok := p.Step(); ok; _, ok = p.Step() {
	}
	require.Equal(t, first, p.Prefix())
}

func TestPrefixReflectsOnlyConsumedActions(t *testing.T) {
	p := plan.WithGenInteractions(determinism.NewRNG(3), countCtx{}, gen, rec, 4)
	require.Empty(t, p.Prefix())

	p.Step()
	p.Step()
	require.Len(t, p.Prefix(), 2)
}

func TestAddInteractionUpdatesContextViaRecorder(t *testing.T) {
	p := plan.New(determinism.NewRNG(5), countCtx{}, gen, rec)
	p.AddInteraction(plan.Action{Kind: plan.ActionCreate, Amount: 10})
	p.AddInteraction(plan.Action{Kind: plan.ActionList})
	require.Equal(t, 1, p.Context().creates)
}
