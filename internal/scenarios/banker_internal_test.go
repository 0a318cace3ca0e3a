package scenarios

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/plan"
)

func TestBankerGeneratorVoidsOnlyKnownOrMissingIDs(t *testing.T) {
	rng := determinism.NewRNG(11)
	ctx := &bankerPlanCtx{}

	sawVoid := false
	for i := 0; i < 500; i++ {
		a := bankerGenerator(rng, ctx)
		if a.Kind == plan.ActionVoid {
			sawVoid = true
			require.NotEmpty(t, a.ID)
			if !strings.HasPrefix(a.ID, "missing-") {
				require.Contains(t, ctx.knownIDs, a.ID)
			}
		}
		bankerRecorder(ctx, a)
	}
	require.True(t, sawVoid, "500 draws across 6 equally-weighted kinds should include at least one Void")
}

func TestBankerRecorderForgetsVoidedID(t *testing.T) {
	ctx := &bankerPlanCtx{}
	bankerRecorder(ctx, plan.Action{Kind: plan.ActionCreate, ID: "e0"})
	require.Contains(t, ctx.knownIDs, "e0")

	bankerRecorder(ctx, plan.Action{Kind: plan.ActionVoid, ID: "e0"})
	require.NotContains(t, ctx.knownIDs, "e0")
}

func TestFaultGeneratorProducesSleepAndBounce(t *testing.T) {
	rng := determinism.NewRNG(23)
	ctx := &faultPlanCtx{}

	var kinds []plan.ActionKind
	for i := 0; i < 200; i++ {
		a := faultGenerator(rng, ctx)
		kinds = append(kinds, a.Kind)
		if a.Kind == plan.ActionBounce {
			require.Equal(t, "server", a.ID)
		}
	}
	require.Contains(t, kinds, plan.ActionSleep)
	require.Contains(t, kinds, plan.ActionBounce, "200 draws should include at least one rare bounce")
}

func TestFaultPlanReproducesFromSameSeed(t *testing.T) {
	p1 := plan.WithGenInteractions(determinism.NewRNG(5), faultPlanCtx{}, faultGenerator, noopFaultRecorder, 50)
	p2 := plan.WithGenInteractions(determinism.NewRNG(5), faultPlanCtx{}, faultGenerator, noopFaultRecorder, 50)

	for i := 0; i < 50; i++ {
		a1, ok1 := p1.Step()
		a2, ok2 := p2.Step()
		require.Equal(t, ok1, ok2)
		require.Equal(t, a1, a2)
	}
}
