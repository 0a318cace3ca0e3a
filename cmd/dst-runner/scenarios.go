package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jihwankim/dst-sim/internal/scenarios"
	"github.com/jihwankim/dst-sim/pkg/sim"
)

// registry maps a --scenario name to a factory producing a fresh
// Bootstrap for every run: the CLI is driver-agnostic rather than
// hardwired to one bootstrap.
var registry = map[string]func() sim.Bootstrap{
	"banker": func() sim.Bootstrap { return scenarios.NewBanker() },
	"banker-broken-list": func() sim.Bootstrap {
		b := scenarios.NewBanker()
		b.BrokenList = true
		return b
	},
}

var listScenariosCmd = &cobra.Command{
	Use:   "list-scenarios",
	Args:  cobra.NoArgs,
	Short: "List the registered scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := make([]string, 0, len(registry))
		for name := range registry {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}
