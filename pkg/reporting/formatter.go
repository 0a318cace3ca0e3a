// Package reporting is the Result & Reporting component (spec §4.4 step
// 10, §6.2): START/FINISH block rendering, the end-of-batch summary
// table, structured logging, TUI progress, and JSON report persistence.
package reporting

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	units "github.com/docker/go-units"
	"github.com/olekukonko/tablewriter"

	"github.com/jihwankim/dst-sim/pkg/config"
)

// Formatter renders the per-run START/FINISH blocks and the end-of-batch
// summary table: N runs' key=value blocks plus a tablewriter table.
type Formatter struct {
	logger *Logger
}

func NewFormatter(logger *Logger) *Formatter {
	return &Formatter{logger: logger}
}

// configSummary renders a SimConfig as the key=value line spec §6.2
// requires on both START and FINISH blocks, using docker/go-units for the
// byte-budget fields so operators reading the console don't have to do
// the division themselves.
func configSummary(cfg config.SimConfig) string {
	duration := "unbounded"
	if !cfg.Unbounded {
		duration = cfg.Duration.String()
	}
	return fmt.Sprintf(
		"seed=%d fail_rate=%.3f repair_rate=%.3f tcp_capacity=%s udp_capacity=%s "+
			"enable_random_order=%t min_message_latency=%s max_message_latency=%s "+
			"duration=%s tick_duration=%s epoch_offset=%d step_multiplier=%d",
		cfg.Seed, cfg.FailRate, cfg.RepairRate,
		units.BytesSize(float64(cfg.TCPCapacity)), units.BytesSize(float64(cfg.UDPCapacity)),
		cfg.EnableRandomOrder, cfg.MinMessageLatency, cfg.MaxMessageLatency,
		duration, cfg.TickDuration, cfg.EpochOffsetMs, cfg.StepMultiplier,
	)
}

// FormatStart renders the START block emitted before a run begins.
func (f *Formatter) FormatStart(runNumber, workerID int, cfg config.SimConfig) string {
	return fmt.Sprintf("START run=%d worker=%d %s", runNumber, workerID, configSummary(cfg))
}

// FormatFinish renders the FINISH block spec §6.2 requires: the START
// block's config summary plus successful/steps/elapsed/ratio and, for a
// failed random-seed run, the replay command(s).
func (f *Formatter) FormatFinish(r RunRecord, cfg config.SimConfig) string {
	ratio := 0.0
	if r.RealTimeMillis > 0 {
		ratio = float64(r.SimTimeMillis) / float64(r.RealTimeMillis)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "FINISH run=%d worker=%d %s successful=%t steps=%d "+
		"real_time_elapsed=%dms simulated_time_elapsed=%dms (x%.2f)",
		r.RunNumber, r.WorkerID, configSummary(cfg), r.Successful, r.Steps,
		r.RealTimeMillis, r.SimTimeMillis, ratio)
	if r.Error != "" {
		fmt.Fprintf(&b, " error=%q", r.Error)
	}
	if r.Panic != "" {
		fmt.Fprintf(&b, " panic=%q", r.Panic)
	}
	if r.ReplayCommand != "" {
		fmt.Fprintf(&b, "\n  replay: %s", r.ReplayCommand)
	}
	if r.BatchReplay != "" {
		fmt.Fprintf(&b, "\n  replay batch: %s", r.BatchReplay)
	}
	return b.String()
}

// FormatFinishJSON renders r as a single-line JSON object, for --format
// json callers that want one parseable record per run instead of the
// key=value FINISH block.
func (f *Formatter) FormatFinishJSON(r RunRecord) (string, error) {
	data, err := jsonAPI.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("format run record: %w", err)
	}
	return string(data), nil
}

// FormatBatchSummary renders the end-of-batch table listing every run's
// number, worker id, effective seed, classification, and step count.
func (f *Formatter) FormatBatchSummary(runs []RunRecord) string {
	sorted := append([]RunRecord(nil), runs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RunNumber < sorted[j].RunNumber })

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Run", "Worker", "Seed", "Result", "Steps", "Sim Time", "Real Time"})
	failures := 0
	for _, r := range sorted {
		result := "SUCCESS"
		if !r.Successful {
			result = "FAIL"
			failures++
		}
		table.Append([]string{
			fmt.Sprintf("%d", r.RunNumber),
			fmt.Sprintf("%d", r.WorkerID),
			fmt.Sprintf("%d", r.Seed),
			result,
			fmt.Sprintf("%d", r.Steps),
			fmt.Sprintf("%dms", r.SimTimeMillis),
			fmt.Sprintf("%dms", r.RealTimeMillis),
		})
	}
	table.Render()

	fmt.Fprintf(&buf, "\n%d runs, %d failed\n", len(sorted), failures)
	return buf.String()
}
