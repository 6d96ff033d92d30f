package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cpuschedsim/cpuschedsim/sim"
)

var (
	compareWorkloadPath string
	compareConfigPath   string
	compareDisciplines  []string
	compareJSON         bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Simulate multiple scheduling disciplines over the same workload and tabulate results",
	RunE: func(cmd *cobra.Command, args []string) error {
		workload, err := sim.LoadWorkload(compareWorkloadPath)
		if err != nil {
			return fmt.Errorf("loading workload: %w", err)
		}

		config := sim.DefaultConfig()
		if compareConfigPath != "" {
			config, err = sim.LoadConfig(compareConfigPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}

		disciplines, err := resolveDisciplines(compareDisciplines)
		if err != nil {
			return err
		}

		logrus.Infof("comparing %d disciplines over %d processes", len(disciplines), len(workload.Processes))

		results, err := sim.CompareMany(workload, disciplines, config)
		if err != nil {
			return fmt.Errorf("comparison failed: %w", err)
		}

		if compareJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		printComparisonTable(disciplines, results)
		return nil
	},
}

func resolveDisciplines(raw []string) ([]sim.Discipline, error) {
	if len(raw) == 0 {
		return sim.ValidDisciplines, nil
	}
	out := make([]sim.Discipline, 0, len(raw))
	for _, name := range raw {
		d := sim.Discipline(strings.TrimSpace(name))
		if !sim.IsValidDiscipline(d) {
			return nil, fmt.Errorf("unknown discipline %q (valid: %s)", name, validDisciplineNames())
		}
		out = append(out, d)
	}
	return out, nil
}

func printComparisonTable(disciplines []sim.Discipline, results map[sim.Discipline]sim.Result) {
	ordered := make([]sim.Discipline, len(disciplines))
	copy(ordered, disciplines)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	fmt.Printf("%-14s %10s %10s %10s %8s %12s\n", "DISCIPLINE", "AVG_TURN", "AVG_WAIT", "AVG_RESP", "CTXSW", "CPU_UTIL%")
	for _, d := range ordered {
		m := results[d].Metrics
		fmt.Printf("%-14s %10.2f %10.2f %10.2f %8d %12.2f\n",
			d, m.AvgTurnaround, m.AvgWaiting, m.AvgResponse, m.ContextSwitches, m.CPUUtilization)
	}
}

func init() {
	compareCmd.Flags().StringVar(&compareWorkloadPath, "workload", "", "Path to a workload YAML file (required)")
	compareCmd.Flags().StringVar(&compareConfigPath, "config", "", "Path to a run configuration YAML file (optional)")
	compareCmd.Flags().StringArrayVar(&compareDisciplines, "discipline", nil, "Discipline to include (repeatable; default: all)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "Emit raw Results as JSON instead of a table")
	_ = compareCmd.MarkFlagRequired("workload")

	rootCmd.AddCommand(compareCmd)
}
