package reporting

import "time"

// BatchReport is the persisted, JSON-serializable form of one
// orchestrator batch: every run's outcome and effective seed. The runs'
// other SimConfig fields are not stored.
type BatchReport struct {
	BatchID   string      `json:"batch_id"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Scenario  string      `json:"scenario"`
	Runs      []RunRecord `json:"runs"`
}

// RunRecord is one run's entry in a BatchReport — the FINISH block's
// fields flattened for storage and for the batch summary table.
type RunRecord struct {
	RunNumber      int                    `json:"run_number"`
	WorkerID       int                    `json:"worker_id"`
	Seed           uint64                 `json:"seed"`
	Successful     bool                   `json:"successful"`
	Steps          uint64                 `json:"steps"`
	RealTimeMillis int64                  `json:"real_time_millis"`
	SimTimeMillis  int64                  `json:"sim_time_millis"`
	Error          string                 `json:"error,omitempty"`
	Panic          string                 `json:"panic,omitempty"`
	ReplayCommand  string                 `json:"replay_command,omitempty"`
	BatchReplay    string                 `json:"batch_replay_command,omitempty"`
	Extras         map[string]interface{} `json:"extras,omitempty"`
}

// ReportSummary is the lightweight index entry Storage.ListReports
// builds from each report file: run and failure counts in place of the
// full run list.
type ReportSummary struct {
	BatchID   string    `json:"batch_id"`
	Scenario  string    `json:"scenario"`
	StartTime time.Time `json:"start_time"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	Filepath  string    `json:"filepath"`
}
