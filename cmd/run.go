package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cpuschedsim/cpuschedsim/sim"
)

var (
	runWorkloadPath  string
	runConfigPath    string
	runDiscipline    string
	runContextSwitch int
	runQuantum       int
	runAgingInterval int
	runAgingBoost    int
	runQ1Quantum     int
	runQ2Quantum     int
	runJSON          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one scheduling discipline over a workload",
	RunE: func(cmd *cobra.Command, args []string) error {
		workload, err := sim.LoadWorkload(runWorkloadPath)
		if err != nil {
			return fmt.Errorf("loading workload: %w", err)
		}

		config, err := loadRunConfig()
		if err != nil {
			return err
		}

		discipline := sim.Discipline(runDiscipline)
		if !sim.IsValidDiscipline(discipline) {
			return fmt.Errorf("unknown discipline %q (valid: %s)", runDiscipline, validDisciplineNames())
		}

		logrus.Infof("running discipline=%s workload=%s processes=%d", discipline, runWorkloadPath, len(workload.Processes))

		result, err := sim.RunOnce(workload, discipline, config)
		if err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		result.Metrics.Print()
		return nil
	},
}

// loadRunConfig resolves the base config (from --config if given, else
// DefaultConfig) and then applies any explicit flag overrides on top, since
// flags are more specific than a config file.
func loadRunConfig() (sim.Config, error) {
	config := sim.DefaultConfig()
	if runConfigPath != "" {
		var err error
		config, err = sim.LoadConfig(runConfigPath)
		if err != nil {
			return sim.Config{}, fmt.Errorf("loading config: %w", err)
		}
	}
	applyConfigOverrides(&config)
	return config, nil
}

func applyConfigOverrides(config *sim.Config) {
	fs := runCmd.Flags()
	if fs.Changed("context-switch") {
		config.ContextSwitchTime = runContextSwitch
	}
	if fs.Changed("quantum") {
		config.TimeQuantum = runQuantum
	}
	if fs.Changed("aging-interval") {
		config.AgingInterval = runAgingInterval
	}
	if fs.Changed("aging-boost") {
		config.AgingBoost = runAgingBoost
	}
	if fs.Changed("q1-quantum") {
		config.Q1TimeQuantum = runQ1Quantum
	}
	if fs.Changed("q2-quantum") {
		config.Q2TimeQuantum = runQ2Quantum
	}
}

func validDisciplineNames() string {
	names := make([]string, len(sim.ValidDisciplines))
	for i, d := range sim.ValidDisciplines {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}

func init() {
	runCmd.Flags().StringVar(&runWorkloadPath, "workload", "", "Path to a workload YAML file (required)")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to a run configuration YAML file (optional)")
	runCmd.Flags().StringVar(&runDiscipline, "discipline", string(sim.FCFS), "Scheduling discipline to run")
	runCmd.Flags().IntVar(&runContextSwitch, "context-switch", 1, "Context-switch cost in ticks")
	runCmd.Flags().IntVar(&runQuantum, "quantum", 0, "Time quantum (ROUND-ROBIN)")
	runCmd.Flags().IntVar(&runAgingInterval, "aging-interval", 0, "Aging interval in ticks (0 disables aging)")
	runCmd.Flags().IntVar(&runAgingBoost, "aging-boost", 1, "Priority boost applied per aging interval")
	runCmd.Flags().IntVar(&runQ1Quantum, "q1-quantum", 0, "MLFQ level-0 quantum")
	runCmd.Flags().IntVar(&runQ2Quantum, "q2-quantum", 0, "MLFQ level-1 quantum")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Emit the full Result as JSON instead of a metrics summary")
	_ = runCmd.MarkFlagRequired("workload")

	rootCmd.AddCommand(runCmd)
}
