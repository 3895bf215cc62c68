package cli

import (
	"os"

	"github.com/shem-project/shem/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(uiCmd)
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the terminal dashboard",
	Long:  "Launch the SHEM dashboard: history, the latest breakdown and the trend model, refreshed periodically.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func runTUI(cmd *cobra.Command) error {
	if err := requireInteractive("The dashboard", "shem history"); err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := GetConfig()
	return tui.RunWithConfig(tui.Config{
		Source:          rt.Service,
		Theme:           cfg.TUI.Theme,
		RefreshInterval: cfg.TUI.RefreshInterval,
	})
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
