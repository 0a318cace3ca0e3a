package sim

import "github.com/jihwankim/dst-sim/pkg/config"

// Classification is SimResult's tag (§3.1's "tagged union").
type Classification int

const (
	ClassSuccess Classification = iota
	ClassFail
)

func (c Classification) String() string {
	if c == ClassSuccess {
		return "Success"
	}
	return "Fail"
}

// SimRunProperties is the run-level metadata carried by every SimResult.
type SimRunProperties struct {
	RunNumber      int
	WorkerID       int
	Steps          uint64
	RealTimeMillis int64
	SimTimeMillis  int64
	Extras         map[string]interface{}
}

// SimResult is one run's outcome.
type SimResult struct {
	Class  Classification
	Props  SimRunProperties
	Config config.SimConfig
	Error  error
	Panic  string

	// ReplayCommand and BatchReplayCommand are populated by the
	// Orchestrator for Fail results (§4.5).
	ReplayCommand      string
	BatchReplayCommand string
}

func (r *SimResult) Success() bool { return r.Class == ClassSuccess }
