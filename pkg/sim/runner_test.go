package sim_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/dst-sim/pkg/config"
	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/sim"
)

// fnBootstrap is a minimal sim.Bootstrap driven entirely by closures, so
// each test can exercise the Runner's ten-step algorithm without standing
// up a real scenario package.
type fnBootstrap struct {
	onStart func(ctx context.Context, s *sim.Sim) error
}

func (b *fnBootstrap) Init(ctx context.Context) error { return nil }
func (b *fnBootstrap) BuildSim(cfg *config.SimConfig) {}
func (b *fnBootstrap) OnStart(ctx context.Context, s *sim.Sim) error {
	return b.onStart(ctx, s)
}
func (b *fnBootstrap) OnStep(ctx context.Context, s *sim.Sim) error { return nil }
func (b *fnBootstrap) OnEnd(ctx context.Context, s *sim.Sim) error  { return nil }
func (b *fnBootstrap) Props() map[string]interface{}                { return nil }

func newRunner() *sim.Runner {
	global := determinism.NewCancelToken(nil)
	batch := determinism.NewCancelToken(global)
	return sim.NewRunner(1, global, batch, nil)
}

func TestRunnerSuccessfulRun(t *testing.T) {
	bs := &fnBootstrap{onStart: func(ctx context.Context, s *sim.Sim) error {
		return s.Client("noop", func(context.Context) error { return nil })
	}}
	r := newRunner()
	res := r.Run(context.Background(), bs, 1, 0, &config.EnvOverrides{Seed: 1, Runs: 1})
	require.True(t, res.Success())
	require.Empty(t, res.Panic)
	require.Nil(t, res.Error)
}

func TestRunnerCapturesPanicAsFailure(t *testing.T) {
	bs := &fnBootstrap{onStart: func(ctx context.Context, s *sim.Sim) error {
		return s.Client("boom", func(context.Context) error {
			panic("assertion failed: amount mismatch")
		})
	}}
	r := newRunner()
	res := r.Run(context.Background(), bs, 1, 0, &config.EnvOverrides{Seed: 1, Runs: 1})
	require.False(t, res.Success())
	require.Contains(t, res.Panic, "assertion failed: amount mismatch")
	require.Contains(t, res.Panic, `"boom_0"`)
}

func TestRunnerSameSeedReproducesDerivedConfig(t *testing.T) {
	bs := func() *fnBootstrap {
		return &fnBootstrap{onStart: func(ctx context.Context, s *sim.Sim) error {
			return s.Client("noop", func(context.Context) error { return nil })
		}}
	}
	r1 := newRunner()
	res1 := r1.Run(context.Background(), bs(), 1, 0, &config.EnvOverrides{Seed: 55, Runs: 1, SeedFixed: true})

	r2 := newRunner()
	res2 := r2.Run(context.Background(), bs(), 1, 0, &config.EnvOverrides{Seed: 55, Runs: 1, SeedFixed: true})

	require.Equal(t, res1.Config.Seed, res2.Config.Seed)
	require.Equal(t, res1.Config.EpochOffsetMs, res2.Config.EpochOffsetMs)
	require.Equal(t, res1.Config.StepMultiplier, res2.Config.StepMultiplier)
}

func TestRunnerRejectsInvalidBuildSim(t *testing.T) {
	bs := &fnBootstrap{onStart: func(ctx context.Context, s *sim.Sim) error { return nil }}
	r := newRunner()
	overrides := &config.EnvOverrides{Seed: 1, Runs: 1}
	res := r.Run(context.Background(), &invalidConfigBootstrap{fnBootstrap: bs}, 1, 0, overrides)
	require.False(t, res.Success())
	require.Error(t, res.Error)
}

type invalidConfigBootstrap struct{ *fnBootstrap }

func (b *invalidConfigBootstrap) BuildSim(cfg *config.SimConfig) {
	cfg.MinMessageLatency = 2 * cfg.MaxMessageLatency
}
