package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jihwankim/dst-sim/internal/scenarios"
	"github.com/jihwankim/dst-sim/pkg/config"
	"github.com/jihwankim/dst-sim/pkg/reporting"
	"github.com/jihwankim/dst-sim/pkg/sim"
)

var (
	scenarioName string
	formatFlag   string
	dryRun       bool
	metricsAddr  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Run a registered scenario for SIMULATOR_RUNS iterations",
	RunE:  runE,
}

func init() {
	runCmd.Flags().StringVar(&scenarioName, "scenario", "", "scenario to run (see list-scenarios)")
	runCmd.Flags().StringVar(&formatFlag, "format", "text", "output format: text|json|tui")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "build the run's SimConfig and print it without executing")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address while the batch runs")
	_ = runCmd.MarkFlagRequired("scenario")
}

// runE is the run command's body: load config, build the orchestrator,
// stream per-run results, then print the batch summary.
func runE(cmd *cobra.Command, args []string) error {
	factory, ok := registry[scenarioName]
	if !ok {
		return fmt.Errorf("unknown scenario %q (see list-scenarios)", scenarioName)
	}

	harnessCfg, err := config.LoadHarnessConfig(cfgFile)
	if err != nil {
		return err
	}
	overrides, err := config.LoadEnv()
	if err != nil {
		return err
	}
	harnessCfg.ApplyEnv(overrides)
	if err := harnessCfg.Validate(); err != nil {
		return err
	}
	if metricsAddr != "" {
		harnessCfg.MetricsAddr = metricsAddr
	}

	if overrides.BankerCount != nil {
		factory = withBankerCount(factory, *overrides.BankerCount)
	}

	logLevel := reporting.LogLevel(harnessCfg.LogLevel)
	if verbose {
		logLevel = reporting.LogLevelDebug
	}
	logger := reporting.NewLogger(reporting.LoggerConfig{
		Level:  logLevel,
		Format: reporting.LogFormat(harnessCfg.LogFormat),
	})

	format := reporting.ResolveFormat(reporting.OutputFormat(formatFlag), overrides.NoTUI, os.Stdout)

	if dryRun {
		return printDryRun(factory, overrides)
	}

	formatter := reporting.NewFormatter(logger)
	dashboard := reporting.NewDashboard(os.Stdout, format)
	metrics := reporting.NewMetrics()

	if harnessCfg.MetricsAddr != "" {
		go serveMetrics(harnessCfg.MetricsAddr, metrics, logger)
	}

	orch := sim.NewOrchestrator(factory, overrides, logger)
	var records []reporting.RunRecord
	orch.OnResult = func(res sim.SimResult) {
		record := toRunRecord(res)
		records = append(records, record)
		metrics.ObserveRun(record.Successful, record.RealTimeMillis, record.SimTimeMillis)

		switch format {
		case reporting.FormatJSON:
			if line, err := formatter.FormatFinishJSON(record); err == nil {
				fmt.Println(line)
			} else {
				logger.Warn("failed to format run record as json", "error", err)
			}
		case reporting.FormatTUI:
			dashboard.Update(reporting.WorkerProgress{
				WorkerID:  record.WorkerID,
				RunNumber: record.RunNumber,
				Step:      record.Steps,
				Done:      len(records),
				Failed:    countFailed(records),
			})
		default:
			fmt.Println(formatter.FormatFinish(record, res.Config))
		}
	}

	batchStart := time.Now()
	batch, err := orch.Run(cmd.Context())
	if err != nil {
		return err
	}
	dashboard.Finish()

	fmt.Print(formatter.FormatBatchSummary(records))

	storage, err := reporting.NewStorage(harnessCfg.ReportDir, harnessCfg.KeepLastN, logger)
	if err != nil {
		return fmt.Errorf("run: init storage: %w", err)
	}
	report := &reporting.BatchReport{
		BatchID:   batch.ID,
		Scenario:  scenarioName,
		StartTime: batchStart,
		EndTime:   time.Now(),
		Runs:      records,
	}
	if path, err := storage.SaveReport(report); err != nil {
		logger.Warn("failed to persist batch report", "error", err)
	} else {
		logger.Info("batch report persisted", "path", path)
	}

	for _, res := range batch.Results {
		if !res.Success() {
			return errRunsFailed
		}
	}
	return nil
}

var errRunsFailed = fmt.Errorf("one or more runs failed")

func toRunRecord(res sim.SimResult) reporting.RunRecord {
	r := reporting.RunRecord{
		RunNumber:      res.Props.RunNumber,
		WorkerID:       res.Props.WorkerID,
		Seed:           res.Config.Seed,
		Successful:     res.Success(),
		Steps:          res.Props.Steps,
		RealTimeMillis: res.Props.RealTimeMillis,
		SimTimeMillis:  res.Props.SimTimeMillis,
		ReplayCommand:  res.ReplayCommand,
		BatchReplay:    res.BatchReplayCommand,
		Extras:         res.Props.Extras,
	}
	if res.Error != nil {
		r.Error = res.Error.Error()
	}
	r.Panic = res.Panic
	return r
}

func countFailed(records []reporting.RunRecord) int {
	n := 0
	for _, r := range records {
		if !r.Successful {
			n++
		}
	}
	return n
}

func printDryRun(factory func() sim.Bootstrap, overrides *config.EnvOverrides) error {
	cfg := config.DefaultSimConfig()
	cfg.Seed = overrides.Seed
	b := factory()
	if err := b.Init(context.Background()); err != nil {
		return err
	}
	b.BuildSim(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("scenario=%s runs=%d seed=%d seed_fixed=%t\n", scenarioName, overrides.Runs, overrides.Seed, overrides.SeedFixed)
	fmt.Printf("tcp_capacity=%d udp_capacity=%d fail_rate=%.3f repair_rate=%.3f\n",
		cfg.TCPCapacity, cfg.UDPCapacity, cfg.FailRate, cfg.RepairRate)
	fmt.Printf("min_message_latency=%s max_message_latency=%s tick_duration=%s\n",
		cfg.MinMessageLatency, cfg.MaxMessageLatency, cfg.TickDuration)
	return nil
}

func serveMetrics(addr string, m *reporting.Metrics, logger *reporting.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", "error", err)
	}
}

// withBankerCount wraps factory so SIMULATOR_BANKER_COUNT (spec §6.1)
// sizes every Banker instance it produces, leaving scenarios that don't
// recognize the override untouched.
func withBankerCount(factory func() sim.Bootstrap, n uint64) func() sim.Bootstrap {
	return func() sim.Bootstrap {
		b := factory()
		if banker, ok := b.(*scenarios.Banker); ok {
			banker.BankerCount = int(n)
		}
		return b
	}
}
