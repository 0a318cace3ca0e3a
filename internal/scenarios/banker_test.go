package scenarios_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/dst-sim/internal/scenarios"
	"github.com/jihwankim/dst-sim/pkg/config"
	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/sim"
)

func newTestRunner() *sim.Runner {
	global := determinism.NewCancelToken(nil)
	batch := determinism.NewCancelToken(global)
	return sim.NewRunner(1, global, batch, nil)
}

func TestBankerRunSucceedsWithinBoundedDuration(t *testing.T) {
	b := scenarios.NewBanker()
	b.Interactions = 16

	d := 200 * time.Millisecond
	r := newTestRunner()
	res := r.Run(context.Background(), b, 1, 0, &config.EnvOverrides{Seed: 7, Runs: 1, Duration: &d})

	require.True(t, res.Success(), "panic=%q err=%v", res.Panic, res.Error)
	require.Equal(t, 1, res.Props.Extras["banker_count"])
	require.Equal(t, 16, res.Props.Extras["interactions"])
}

// With BrokenList set, the server always answers List with no entities, so
// a protocol client that has already created at least one entity and then
// draws an ActionList is certain to panic on the missing-transaction
// assertion (spec §8's E3). 500 interactions makes the odds of the client
// never drawing both a Create and a later List astronomically small. The
// run also carries a fault injector that may bounce the server first, so
// the run can fail either on that assertion or on a connection error from
// the bounce — both are a correctly-detected regression, so the assertion
// only requires the run to fail.
func TestBankerBrokenListFailsTheRun(t *testing.T) {
	b := scenarios.NewBanker()
	b.Interactions = 500
	b.BrokenList = true

	d := 2 * time.Second
	r := newTestRunner()
	res := r.Run(context.Background(), b, 1, 0, &config.EnvOverrides{Seed: 7, Runs: 1, Duration: &d})

	require.False(t, res.Success(), "broken List endpoint should fail the run")
}

func TestBankerSameSeedProducesSameStepCount(t *testing.T) {
	d := 100 * time.Millisecond
	overrides := &config.EnvOverrides{Seed: 99, Runs: 1, Duration: &d}

	r1 := newTestRunner()
	res1 := r1.Run(context.Background(), scenarios.NewBanker(), 1, 0, overrides)

	r2 := newTestRunner()
	res2 := r2.Run(context.Background(), scenarios.NewBanker(), 1, 0, overrides)

	require.Equal(t, res1.Props.Steps, res2.Props.Steps)
}
