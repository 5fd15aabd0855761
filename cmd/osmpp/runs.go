package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/cli"
	"github.com/Veraticus/osm-powerplants/internal/export"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/Veraticus/osm-powerplants/internal/storage"
	"github.com/Veraticus/osm-powerplants/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs stored with --db",
	}
	cmd.PersistentFlags().String("db", defaultDatabasePath(), "run database")
	_ = viper.BindPFlag("runs.db", cmd.PersistentFlags().Lookup("db"))

	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	cmd.AddCommand(runsExportCmd())
	cmd.AddCommand(runsBrowseCmd())
	return cmd
}

func openRuns(cmd *cobra.Command) (*storage.SQLiteStorage, error) {
	return initStorage(cmd.Context(), viper.GetString("runs.db"))
}

func runsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openRuns(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No runs stored yet"))
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					r.StartedAt.Local().Format(time.DateTime),
					strings.Join(r.Regions, ", "),
					strconv.Itoa(r.FailedRegions),
					r.Fingerprint[:min(8, len(r.Fingerprint))],
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.Table([]string{"Run", "Started", "Regions", "Failed", "Config"}, rows))
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum runs to list (0 for all)")
	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show units and rejections of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openRuns(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			units, err := store.GetUnits(ctx, run.ID)
			if err != nil {
				return err
			}
			counts, err := store.RejectionCounts(ctx, run.ID)
			if err != nil {
				return err
			}

			duration := time.Duration(0)
			if run.FinishedAt != nil {
				duration = run.FinishedAt.Sub(run.StartedAt)
			}
			stats := model.NewUnits(units...).Statistics()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderSummary(cli.RunSummary{
				Stats:        stats,
				Rejections:   counts,
				Regions:      len(run.Regions),
				NetworkCalls: run.NetworkCalls,
				CacheHits:    run.CacheHits,
				Duration:     duration,
				RunID:        run.ID,
			}))
			if len(stats.CapacityByFuel) > 0 {
				fmt.Fprintln(out, cli.CapacityTable(stats))
			}
			if len(counts) > 0 {
				fmt.Fprintln(out, cli.RejectionTable(counts))
			}
			return nil
		},
	}
}

func runsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export RUN_ID",
		Short: "Write the units of a stored run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRuns(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			units, err := store.GetUnits(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("output")
			if path == "-" {
				return export.WriteCSV(cmd.OutOrStdout(), units)
			}
			if err := export.WriteCSVFile(path, units); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Wrote %d units to %s", len(units), path)))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "-", "CSV file, or - for stdout")
	return cmd
}

func runsBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse RUN_ID",
		Short: "Browse the rejections of a stored run interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openRuns(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			records, err := store.GetRejections(ctx, run.ID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Run has no rejections"))
				return nil
			}
			return tui.Run(ctx, strings.Join(run.Regions, ", "), records)
		},
	}
}
