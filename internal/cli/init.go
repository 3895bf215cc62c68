package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shem-project/shem/internal/config"
	"github.com/shem-project/shem/internal/db"
	"github.com/spf13/cobra"
)

var (
	initForce bool

	// configDirFunc is swapped in tests.
	configDirFunc = defaultConfigDir
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and database",
	Long:  "Write a commented config file and create the reading database with its schema.",
	RunE: func(cmd *cobra.Command, args []string) error {
		results := []initResult{
			createConfigFile(),
			initDatabase(cmd.Context()),
		}

		if IsJSONOutput() || IsJSONLOutput() {
			out := make([]map[string]string, 0, len(results))
			for _, r := range results {
				out = append(out, map[string]string{"step": r.name, "status": r.status, "message": r.message})
			}
			if err := WriteOutput(os.Stdout, out); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				fmt.Fprintf(os.Stdout, "%-10s %-16s %s\n", formatInitStatus(r.status), r.name, r.message)
			}
		}

		for _, r := range results {
			if r.status == "failed" {
				return fmt.Errorf("init step %q failed", r.name)
			}
		}
		return nil
	},
}

type initResult struct {
	name    string
	status  string // done, skipped, failed
	message string
}

func defaultConfigDir() string {
	return config.ConfigDir()
}

func createConfigFile() initResult {
	result := initResult{name: "Config file"}

	dir := configDirFunc()
	path := filepath.Join(dir, "config.yaml")

	if _, err := os.Stat(path); err == nil && !initForce {
		result.status = "skipped"
		result.message = fmt.Sprintf("%s already exists (use --force to overwrite)", path)
		return result
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.status = "failed"
		result.message = fmt.Sprintf("failed to create %s: %v", dir, err)
		return result
	}
	if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
		result.status = "failed"
		result.message = fmt.Sprintf("failed to write %s: %v", path, err)
		return result
	}

	result.status = "done"
	result.message = path
	return result
}

func initDatabase(ctx context.Context) initResult {
	result := initResult{name: "Database"}
	if ctx == nil {
		ctx = context.Background()
	}

	database, err := openDatabase()
	if err != nil {
		result.status = "failed"
		result.message = err.Error()
		return result
	}
	defer database.Close()

	applied, err := database.MigrateUp(ctx)
	if err != nil {
		result.status = "failed"
		result.message = err.Error()
		return result
	}

	version, _ := database.SchemaVersion(ctx)
	if applied == 0 {
		result.status = "skipped"
		result.message = fmt.Sprintf("schema already at version %d", version)
		return result
	}

	result.status = "done"
	result.message = fmt.Sprintf("applied %d migration(s), schema version %d (%s)", applied, version, describeDatabase(GetConfig().Database))
	return result
}

func describeDatabase(cfg db.Config) string {
	if cfg.Driver == string(db.DialectPostgres) {
		return "postgres"
	}
	return cfg.Path
}

func formatInitStatus(status string) string {
	switch status {
	case "done":
		return colorize("[done]", colorGreen)
	case "skipped":
		return colorize("[skipped]", colorYellow)
	default:
		return colorize("[failed]", colorRed)
	}
}
