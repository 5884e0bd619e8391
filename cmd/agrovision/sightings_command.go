package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"agrovision/internal/app"
	"agrovision/internal/dto"
	"agrovision/internal/logger"
	"agrovision/internal/model"
)

func newSightingsCommand(ctx *commandContext) *cobra.Command {
	sightingsCmd := &cobra.Command{
		Use:   "sightings",
		Short: "Inspect stored sightings",
	}

	sightingsCmd.AddCommand(newSightingsListCommand(ctx))

	return sightingsCmd
}

func newSightingsListCommand(ctx *commandContext) *cobra.Command {
	var (
		marker   int
		runID    string
		since    string
		until    string
		limit    int
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sightings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.PersistenceEnabled() {
				return errors.New("no sighting store configured (set SQLITE_PATH or DB_HOST)")
			}

			repo, err := app.OpenStore(cmd.Context(), cfg, logger.NewNop())
			if err != nil {
				return err
			}
			defer repo.Close()

			filter := &dto.SightingFilters{RunID: runID, Limit: limit}
			if cmd.Flags().Changed("marker") {
				filter.MarkerID = &marker
			}
			if filter.Since, err = parseTimeFlag("since", since); err != nil {
				return err
			}
			if filter.Until, err = parseTimeFlag("until", until); err != nil {
				return err
			}

			sightings, err := repo.GetAll(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if jsonMode {
				if sightings == nil {
					sightings = []model.Sighting{}
				}
				return writeJSON(cmd, sightings)
			}

			if len(sightings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sightings found")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSightingsTable(sightings))
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVar(&marker, "marker", 0, "Only sightings of this marker id")
	cmd.Flags().StringVar(&runID, "run", "", "Only sightings written by this run id")
	cmd.Flags().StringVar(&since, "since", "", "Only sightings at or after this time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "Only sightings before this time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of rows, 0 for all")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output JSON instead of a table")

	return cmd
}

func renderSightingsTable(sightings []model.Sighting) string {
	rows := make([][]string, 0, len(sightings))
	for _, s := range sightings {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			strconv.Itoa(s.MarkerID),
			s.DetectedAt.Local().Format("2006-01-02 15:04:05"),
			formatSize(s.SnapshotSize),
			shortRunID(s.RunID),
		})
	}
	return renderTable(
		[]string{"ID", "Marker", "Detected", "Snapshot", "Run"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --%s %q: expected RFC 3339 or YYYY-MM-DD", name, value)
}

func formatSize(n int64) string {
	switch {
	case n <= 0:
		return "-"
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	default:
		return fmt.Sprintf("%.1f KiB", float64(n)/1024)
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
