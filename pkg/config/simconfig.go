package config

import "time"

// SimConfig is the immutable, per-run configuration (spec §3.1). It is
// built once by the Runner from defaults, env overrides, and the
// bootstrap's build_sim hook, then shared by reference for the rest of
// the run.
type SimConfig struct {
	Seed uint64

	FailRate   float64
	RepairRate float64

	TCPCapacity uint64
	UDPCapacity uint64

	EnableRandomOrder bool

	MinMessageLatency time.Duration
	MaxMessageLatency time.Duration

	// Duration is the per-run virtual-time budget. Unbounded is true when
	// SIMULATOR_DURATION was absent (spec's "MAX").
	Duration  time.Duration
	Unbounded bool

	TickDuration time.Duration

	EpochOffsetMs  uint64
	StepMultiplier uint64
}

// DefaultSimConfig returns the harness's baseline before env overrides and
// bootstrap.build_sim are applied.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		FailRate:          0,
		RepairRate:        0,
		TCPCapacity:       1 << 20, // 1 MiB per link
		UDPCapacity:       1 << 16,
		EnableRandomOrder: true,
		MinMessageLatency: time.Millisecond,
		MaxMessageLatency: 20 * time.Millisecond,
		Unbounded:         true,
		TickDuration:      time.Millisecond,
		StepMultiplier:    1,
	}
}

// Validate checks the invariants spec §3.1 requires before a run starts.
func (c *SimConfig) Validate() error {
	if c.MinMessageLatency < 0 {
		return newConfigError("min_message_latency", errNegative)
	}
	if c.MinMessageLatency > c.MaxMessageLatency {
		return newConfigError("min_message_latency/max_message_latency", errLatencyOrder)
	}
	if c.TickDuration <= 0 {
		return newConfigError("tick_duration", errNonPositive)
	}
	if c.StepMultiplier < 1 {
		return newConfigError("step_multiplier", errBelowOne)
	}
	if c.FailRate < 0 || c.FailRate > 1 {
		return newConfigError("fail_rate", errNotUnitInterval)
	}
	if c.RepairRate < 0 || c.RepairRate > 1 {
		return newConfigError("repair_rate", errNotUnitInterval)
	}
	return nil
}
