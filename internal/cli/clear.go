package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var clearYes bool

func init() {
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored reading",
	Long:  "Delete every stored reading and reset the trend model. The event log is kept.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			if IsNonInteractive() {
				return &PreflightError{
					Message:  "refusing to clear readings without confirmation",
					Hint:     "Pass --yes to confirm in non-interactive mode",
					NextStep: "shem clear --yes",
				}
			}
			if !confirm("Delete all stored readings?") {
				fmt.Fprintln(os.Stdout, "Aborted.")
				return nil
			}
		}

		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		deleted, err := rt.Service.Clear(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear readings: %w", err)
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, map[string]interface{}{
				"message": "All readings have been cleared.",
				"deleted": deleted,
			})
		}
		fmt.Fprintf(os.Stdout, "%s Deleted %d reading(s).\n", colorize("All readings have been cleared.", colorGreen), deleted)
		return nil
	},
}
