package cli

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/shem-project/shem/internal/forecast"
	"github.com/shem-project/shem/internal/monitor"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(readingsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(breakdownCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(modelCmd)
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show the trend model status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		status := rt.Service.Model()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, status)
		}

		fields := [][2]string{
			{"Fitted", formatYesNo(status.Fitted)},
			{"Periods", strconv.Itoa(status.Periods)},
		}
		if status.Fitted {
			fields = append(fields,
				[2]string{"Earliest", status.Earliest},
				[2]string{"Intercept", formatKWh(status.Intercept)},
				[2]string{"Slope", formatKWh(status.Slope) + "/month"},
			)
		}
		return writeFields(os.Stdout, fields)
	},
}

var readingsCmd = &cobra.Command{
	Use:   "readings [YYYY-MM | YYYY-MM-DD]",
	Short: "Show readings for a period",
	Long:  "Show readings for a day or a month. Without an argument the latest stored period is shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		key := optionalArg(args)
		result, err := rt.Service.Readings(ctx, key)
		if err != nil {
			if errors.Is(err, monitor.ErrNoReadings) {
				return emptyResult(noReadingsMessage(key))
			}
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			if IsJSONLOutput() {
				return WriteOutput(os.Stdout, result.Readings)
			}
			return WriteOutput(os.Stdout, result)
		}
		return writeReadings(result.Readings)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show usage and cost per period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		history, err := rt.Service.History(ctx)
		if err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, history)
		}
		if len(history) == 0 {
			fmt.Fprintln(os.Stdout, "No historical data found.")
			return nil
		}

		rows := make([][]string, 0, len(history))
		for _, h := range history {
			rows = append(rows, []string{h.PeriodKey, formatKWh(h.TotalUsage), formatMoney(h.TotalCost)})
		}
		return writeTable(os.Stdout, []string{"PERIOD", "USAGE", "COST"}, rows)
	},
}

var breakdownCmd = &cobra.Command{
	Use:   "breakdown [YYYY-MM | YYYY-MM-DD]",
	Short: "Break a period down by category",
	Long:  "Show per-category usage and cost shares, an efficiency rating and suggestions for a period.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		key := optionalArg(args)
		report, err := rt.Service.Breakdown(ctx, key)
		if err != nil {
			if errors.Is(err, monitor.ErrNoReadings) {
				return emptyResult(noReadingsMessage(key))
			}
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, report)
		}

		if err := writeFields(os.Stdout, [][2]string{
			{"Period", report.PeriodKey},
			{"Total usage", formatKWh(report.TotalUsage)},
			{"Total cost", formatMoney(report.TotalCost)},
			{"Rating", formatRating(report.Rating)},
		}); err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout)
		rows := make([][]string, 0, len(report.ByCategory))
		for _, name := range report.Categories() {
			share := report.ByCategory[name]
			rows = append(rows, []string{name, formatKWh(share.Usage), formatMoney(share.Cost), formatPercent(share.UsagePercentage)})
		}
		if err := writeTable(os.Stdout, []string{"CATEGORY", "USAGE", "COST", "SHARE"}, rows); err != nil {
			return err
		}

		printSuggestions(report.Suggestions)
		return nil
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict <YYYY-MM-DD>",
	Short: "Forecast total usage for a month",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		prediction, err := rt.Service.Predict(ctx, args[0])
		if err != nil {
			if errors.Is(err, forecast.ErrInsufficientHistory) {
				return &PreflightError{
					Message:  "Insufficient data to generate a prediction.",
					Hint:     fmt.Sprintf("At least %d periods of history are required", forecast.MinPeriods),
					NextStep: "shem simulate --count 2",
				}
			}
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, prediction)
		}
		return writeFields(os.Stdout, [][2]string{
			{"Target month", prediction.TargetMonth},
			{"Month index", strconv.Itoa(prediction.MonthIndex)},
			{"Predicted usage", formatKWh(prediction.PredictedUsageKWh)},
		})
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <usage-kwh>",
	Short: "Suggest savings for a usage figure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		usage, err := strconv.ParseFloat(args[0], 64)
		if err != nil || math.IsNaN(usage) || math.IsInf(usage, 0) {
			return fmt.Errorf("invalid usage %q: must be a number", args[0])
		}

		suggestions := forecast.UsageSuggestions(usage)
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, map[string]interface{}{
				"current_usage": usage,
				"suggestions":   suggestions,
			})
		}

		fmt.Fprintf(os.Stdout, "Current usage: %s\n", formatKWh(usage))
		printSuggestions(suggestions)
		return nil
	},
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func noReadingsMessage(key string) string {
	if key == "" {
		return "No entries available."
	}
	return fmt.Sprintf("No readings for %s.", key)
}

// emptyResult reports an empty query. It is not an error.
func emptyResult(message string) error {
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(os.Stdout, map[string]string{"message": message})
	}
	fmt.Fprintln(os.Stdout, message)
	return nil
}

func printSuggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(os.Stdout, "\nSuggestions:")
	for _, s := range suggestions {
		fmt.Fprintf(os.Stdout, "  - %s\n", s)
	}
}
