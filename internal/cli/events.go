package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/shem-project/shem/internal/db"
	"github.com/shem-project/shem/internal/models"
	"github.com/spf13/cobra"
)

var (
	eventsType   string
	eventsEntity string
	eventsSince  string
	eventsLimit  int
)

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVar(&eventsType, "type", "", "filter by event type (e.g. cycle.completed)")
	eventsCmd.Flags().StringVar(&eventsEntity, "entity", "", "filter by entity type (period, category, store)")
	eventsCmd.Flags().StringVar(&eventsSince, "since", "", "only events since a duration ago (1h, 7d) or a timestamp")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "maximum events to list")
	eventsCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "follow new events (requires --jsonl)")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List or follow the event log",
	Long:  "List simulation and storage events. With --watch --jsonl new events are streamed as they are written.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := MustBeJSONLForWatch(); err != nil {
			return err
		}
		since, err := ParseSince(eventsSince)
		if err != nil {
			return err
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()
		if _, err := database.MigrateUp(cmd.Context()); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		repo := db.NewEventRepository(database)

		if watchMode {
			cfg := DefaultStreamConfig()
			cfg.IncludeExisting = since != nil
			cfg.Since = since
			if eventsType != "" {
				cfg.Types = []models.EventType{models.EventType(eventsType)}
			}
			if eventsEntity != "" {
				cfg.EntityTypes = []models.EntityType{models.EntityType(eventsEntity)}
			}
			return NewEventStreamer(repo, os.Stdout, cfg).Stream(cmd.Context())
		}

		query := db.EventQuery{Since: since, Limit: eventsLimit}
		if eventsType != "" {
			t := models.EventType(eventsType)
			query.Type = &t
		}
		if eventsEntity != "" {
			et := models.EntityType(eventsEntity)
			query.EntityType = &et
		}
		page, err := repo.Query(cmd.Context(), query)
		if err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, page.Events)
		}
		if len(page.Events) == 0 {
			fmt.Fprintln(os.Stdout, "No events found.")
			return nil
		}

		rows := make([][]string, 0, len(page.Events))
		for _, e := range page.Events {
			rows = append(rows, []string{
				e.Timestamp.Local().Format(time.DateTime),
				formatEventType(e.Type),
				string(e.EntityType),
				e.EntityID,
			})
		}
		if err := writeTable(os.Stdout, []string{"TIME", "TYPE", "ENTITY", "ID"}, rows); err != nil {
			return err
		}
		if page.NextCursor != "" {
			fmt.Fprintf(os.Stdout, "\nShowing the first %d events. Narrow with --since or raise --limit.\n", len(page.Events))
		}
		return nil
	},
}
