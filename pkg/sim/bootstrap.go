// Package sim is the Scenario Protocol surface, the Simulation Runner, and
// the Orchestrator: a TestState-shaped run lifecycle, a fixed sequence of
// per-tick phases, and worker fan-out via errgroup instead of a raw
// sync.WaitGroup.
package sim

import (
	"context"
	"time"

	"github.com/jihwankim/dst-sim/pkg/config"
	"github.com/jihwankim/dst-sim/pkg/determinism"
)

// Topology is the core's view of the external engine (spec §6.3),
// implemented by pkg/simnet.Network.
type Topology interface {
	determinism.Topology
	Host(name string, factory func(context.Context) error) error
	Client(name string, fn func(context.Context) error) error
	Bounce(name string) error
	Step() (bool, error)
	Elapsed() time.Duration
}

// Bootstrap is the scenario author's callback set (GLOSSARY: "Bootstrap").
type Bootstrap interface {
	// Init is called once at the start of every run, before SimConfig is
	// built.
	Init(ctx context.Context) error
	// BuildSim lets the bootstrap mutate the default SimConfig.
	BuildSim(cfg *config.SimConfig)
	// OnStart plants hosts and clients into sim.
	OnStart(ctx context.Context, sim *Sim) error
	// OnStep runs once per tick, after the duration check, before the
	// topology advances.
	OnStep(ctx context.Context, sim *Sim) error
	// OnEnd runs once after the tick loop exits, before the topology is
	// torn down.
	OnEnd(ctx context.Context, sim *Sim) error
	// Props returns scenario-supplied extras recorded on SimRunProperties.
	Props() map[string]interface{}
}
