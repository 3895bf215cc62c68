package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/simulation"
	"github.com/spf13/cobra"
)

var (
	simulateCount    int
	simulateScenario string
	simulateUsage    float64
	simulateCost     float64
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().IntVarP(&simulateCount, "count", "n", 1, "number of consecutive periods to simulate")
	simulateCmd.Flags().StringVar(&simulateScenario, "scenario", "", "pin the demand scenario (low, moderate, above_average, high, very_high, alarming)")
	simulateCmd.Flags().Float64Var(&simulateUsage, "usage", 0, "household usage target in kWh (target strategy)")
	simulateCmd.Flags().Float64Var(&simulateCost, "cost", 0, "household cost target (target strategy)")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate the next period",
	Long:  "Sample every category sensor for the period after the latest stored one, cost the samples and store the readings.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := simulateOptions()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		results := make([]*simulation.Result, 0, simulateCount)
		for i := 0; i < simulateCount; i++ {
			var result *simulation.Result
			err := withProgress(fmt.Sprintf("Simulating period %d/%d", i+1, simulateCount), func() error {
				var err error
				result, err = rt.Service.Simulate(ctx, opts)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to simulate: %w", err)
			}
			results = append(results, result)
		}

		if IsJSONOutput() || IsJSONLOutput() {
			if len(results) == 1 && !IsJSONLOutput() {
				return WriteOutput(os.Stdout, results[0])
			}
			return WriteOutput(os.Stdout, results)
		}

		for i, result := range results {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			if err := printResult(result); err != nil {
				return err
			}
		}
		return nil
	},
}

func simulateOptions() (simulation.CycleOptions, error) {
	var opts simulation.CycleOptions
	if simulateCount < 1 {
		return opts, errors.New("--count must be at least 1")
	}
	if simulateScenario != "" {
		scenario, ok := models.ParseScenario(simulateScenario)
		if !ok {
			return opts, fmt.Errorf("unknown scenario %q", simulateScenario)
		}
		opts.Scenario = scenario
	}
	if simulateUsage != 0 || simulateCost != 0 {
		if simulateUsage <= 0 || simulateCost <= 0 {
			return opts, errors.New("--usage and --cost must both be positive")
		}
		opts.Totals = &simulation.Totals{UsageKWh: simulateUsage, Cost: simulateCost}
	}
	return opts, nil
}

func printResult(result *simulation.Result) error {
	fields := [][2]string{
		{"Period", result.Period},
		{"Strategy", result.Strategy},
		{"Scenario", formatScenario(result.Scenario)},
	}
	if result.Season != "" {
		fields = append(fields, [2]string{"Season", string(result.Season)})
	}
	if err := writeFields(os.Stdout, fields); err != nil {
		return err
	}

	if len(result.Readings) == 0 {
		fmt.Fprintln(os.Stdout, colorize("No readings produced: every sensor malfunctioned.", colorYellow))
		return nil
	}

	fmt.Fprintln(os.Stdout)
	if err := writeReadings(result.Readings); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nTotal: %s, %s\n", formatKWh(result.TotalUsage()), formatMoney(result.TotalCost()))
	if len(result.Skipped) > 0 {
		fmt.Fprintf(os.Stdout, "%s %v\n", colorize("Malfunctioning sensors skipped:", colorYellow), result.Skipped)
	}
	if result.PersistFailures > 0 {
		fmt.Fprintln(os.Stdout, colorize(fmt.Sprintf("%d reading(s) could not be stored", result.PersistFailures), colorRed))
	}
	return nil
}

func writeReadings(readings []models.Reading) error {
	rows := make([][]string, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, []string{r.PeriodKey, r.Category, formatKWh(r.UsageKWh), formatMoney(r.Cost)})
	}
	return writeTable(os.Stdout, []string{"PERIOD", "CATEGORY", "USAGE", "COST"}, rows)
}
