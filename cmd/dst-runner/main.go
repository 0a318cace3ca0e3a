package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jihwankim/dst-sim/pkg/reporting"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "dst-runner",
	Short: "Deterministic simulation testing harness",
	Long: `dst-runner repeatedly executes a registered scenario against a
virtualized clock and virtualized TCP network, using a seeded
pseudo-random generator so every run is exactly reproducible from its
seed. A failing run prints the shell command that replays it verbatim.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "harness config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug) logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listScenariosCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		reporting.Error(err.Error())
		os.Exit(1)
	}
}
