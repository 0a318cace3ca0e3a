package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/jihwankim/dst-sim/pkg/config"
	"github.com/jihwankim/dst-sim/pkg/determinism"
	"github.com/jihwankim/dst-sim/pkg/reporting"
	"github.com/jihwankim/dst-sim/pkg/simnet"
)

// Runner executes exactly one run from (bootstrap, run_number, worker_id)
// and produces a SimResult, per the ten-step algorithm in §4.4.
type Runner struct {
	initialSeed uint64
	global      *determinism.CancelToken
	batch       *determinism.CancelToken
	logger      *reporting.Logger
}

func NewRunner(initialSeed uint64, global, batch *determinism.CancelToken, logger *reporting.Logger) *Runner {
	return &Runner{initialSeed: initialSeed, global: global, batch: batch, logger: logger}
}

// Run executes run number runNumber on worker workerID against bootstrap.
func (r *Runner) Run(ctx context.Context, bootstrap Bootstrap, runNumber, workerID int, overrides *config.EnvOverrides) SimResult {
	wallStart := time.Now()

	// Step 1: derive this run's seed and reset all thread-local state. In
	// Go there is no real thread-local storage to reset; constructing a
	// fresh Env each call is the reset.
	seed := determinism.EffectiveSeed(r.initialSeed, uint64(runNumber))
	rng := determinism.NewRNG(seed)

	epochOffset := rng.GenRange(1, 100_000_000_000_000)
	if overrides != nil && overrides.EpochOffsetMs != nil {
		epochOffset = *overrides.EpochOffsetMs
	}
	// Biased toward small values: bias > 1 skews gen_range_dist toward hi,
	// bias < 1 toward lo — small-value skew wants bias < 1.
	stepMultiplier := rng.GenRangeDist(1, 1_000_000, 0.25)
	if stepMultiplier == 0 {
		stepMultiplier = 1
	}
	if overrides != nil && overrides.StepMultiplier != nil {
		stepMultiplier = *overrides.StepMultiplier
	}

	env := determinism.NewEnv(workerID, seed, epochOffset, stepMultiplier, r.global, r.batch)
	env.RNG = rng

	props := SimRunProperties{RunNumber: runNumber, WorkerID: workerID}
	baseCfg := config.DefaultSimConfig()
	baseCfg.Seed = seed
	baseCfg.EpochOffsetMs = epochOffset
	baseCfg.StepMultiplier = stepMultiplier
	if overrides != nil && overrides.Duration != nil {
		baseCfg.Duration = *overrides.Duration
		baseCfg.Unbounded = false
	}

	// Step 2.
	if err := bootstrap.Init(ctx); err != nil {
		return SimResult{Class: ClassFail, Error: fmt.Errorf("setup: %w", err), Props: props, Config: baseCfg}
	}

	// Step 3.
	bootstrap.BuildSim(&baseCfg)
	if err := baseCfg.Validate(); err != nil {
		return SimResult{Class: ClassFail, Error: err, Props: props, Config: baseCfg}
	}

	// Step 4.
	panicCap := &PanicCapture{}
	topo := simnet.New(&baseCfg, env, panicCap.Hook(env.Run))
	env.Net = topo
	managed := newSim(topo, workerID, true, env.Run)

	runCtx := determinism.WithEnv(ctx, env)

	var runLog *reporting.Logger
	if r.logger != nil {
		runLog = r.logger.WithRun(runNumber, workerID, seed)
		runLog.Info("run starting", "epoch_offset_ms", epochOffset, "step_multiplier", stepMultiplier)
	}

	// Step 5.
	if err := bootstrap.OnStart(runCtx, managed); err != nil {
		return SimResult{Class: ClassFail, Error: fmt.Errorf("setup: %w", err), Props: props, Config: baseCfg}
	}

	// Step 6: tick loop.
	var tickErr error
tickLoop:
	for !env.Run.Cancelled() && !env.Global.Cancelled() {
		s := env.Step.Next()

		if !baseCfg.Unbounded && time.Duration(s)*baseCfg.TickDuration >= baseCfg.Duration {
			env.Run.Cancel()
			break
		}

		if s%1000 == 0 && runLog != nil {
			progress := float64(time.Duration(s)*baseCfg.TickDuration) / float64(baseCfg.Duration)
			if baseCfg.Unbounded {
				progress = 0
			}
			runLog.Debug("run progress", "step", s, "progress", progress)
		}

		if err := bootstrap.OnStep(runCtx, managed); err != nil {
			tickErr = err
			break tickLoop
		}

		completed, err := topo.Step()
		if err != nil {
			if isRanForDuration(err) {
				break tickLoop
			}
			tickErr = err
			break tickLoop
		}
		if completed {
			break tickLoop
		}
	}

	// Step 7.
	_ = bootstrap.OnEnd(runCtx, managed)
	env.Run.Cancel()

	// Step 8.
	props.Steps = env.Step.Executed()
	props.RealTimeMillis = time.Since(wallStart).Milliseconds()
	props.SimTimeMillis = topo.Elapsed().Milliseconds()
	props.Extras = bootstrap.Props()

	// Step 9.
	if msg, ok := panicCap.Take(); ok {
		return SimResult{Class: ClassFail, Panic: msg, Props: props, Config: baseCfg}
	}
	if tickErr != nil {
		return SimResult{Class: ClassFail, Error: tickErr, Props: props, Config: baseCfg}
	}
	return SimResult{Class: ClassSuccess, Props: props, Config: baseCfg}
}
