package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/cache"
	"github.com/Veraticus/osm-powerplants/internal/cli"
	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/Veraticus/osm-powerplants/internal/config"
	"github.com/Veraticus/osm-powerplants/internal/export"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/Veraticus/osm-powerplants/internal/overpass"
	"github.com/Veraticus/osm-powerplants/internal/rejection"
	"github.com/Veraticus/osm-powerplants/internal/service"
	"github.com/Veraticus/osm-powerplants/internal/storage"
	"github.com/Veraticus/osm-powerplants/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// outputOptions says where the results of a run go.
type outputOptions struct {
	CSV           string
	GeoJSON       string
	RejectionsDir string
	Database      string
	TopKeywords   int
	NoProgress    bool
}

func addOutputFlags(cmd *cobra.Command, prefix string) {
	cmd.Flags().StringP("output", "o", "powerplants.csv", "CSV file for the unit records")
	cmd.Flags().String("geojson", "", "also write units as GeoJSON to this file")
	cmd.Flags().String("rejections-dir", "", "write rejection reports (CSV and GeoJSON per reason) to this directory")
	cmd.Flags().String("db", "", "store the run in this SQLite database (\"default\" for "+defaultDatabasePath()+")")
	cmd.Flags().Int("top-keywords", 5, "keywords to show per rejection reason")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")

	_ = viper.BindPFlag(prefix+".output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag(prefix+".geojson", cmd.Flags().Lookup("geojson"))
	_ = viper.BindPFlag(prefix+".rejections_dir", cmd.Flags().Lookup("rejections-dir"))
	_ = viper.BindPFlag(prefix+".db", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag(prefix+".top_keywords", cmd.Flags().Lookup("top-keywords"))
	_ = viper.BindPFlag(prefix+".no_progress", cmd.Flags().Lookup("no-progress"))
}

func readOutputOptions(prefix string) outputOptions {
	db := viper.GetString(prefix + ".db")
	if db == "default" {
		db = defaultDatabasePath()
	}
	return outputOptions{
		CSV:           config.ExpandPath(viper.GetString(prefix + ".output")),
		GeoJSON:       config.ExpandPath(viper.GetString(prefix + ".geojson")),
		RejectionsDir: config.ExpandPath(viper.GetString(prefix + ".rejections_dir")),
		Database:      config.ExpandPath(db),
		TopKeywords:   viper.GetInt(prefix + ".top_keywords"),
		NoProgress:    viper.GetBool(prefix + ".no_progress"),
	}
}

// pipeline wires the cache, the query client and the rejection tracker for
// one command invocation.
type pipeline struct {
	cfg     *config.Config
	store   cache.Store
	client  *overpass.Client
	tracker *rejection.Tracker
	units   *model.Units
}

func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	store, err := cache.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return &pipeline{
		cfg:     cfg,
		store:   store,
		client:  overpass.NewClient(overpass.OptionsFromConfig(cfg), store),
		tracker: rejection.NewTracker(),
		units:   model.NewUnits(),
	}, nil
}

func (p *pipeline) workflow(opts ...workflow.Option) *workflow.Workflow {
	return workflow.New(p.client, p.tracker, p.units, p.cfg, opts...)
}

func (p *pipeline) Close() {
	if err := p.client.Close(); err != nil {
		common.LogError(err, "Failed to close query client", nil)
	}
	if err := p.store.Close(); err != nil {
		common.LogError(err, "Failed to close cache", nil)
	}
}

// run processes regions with a progress bar and interrupt handling.
func (p *pipeline) run(ctx context.Context, regions []model.Region, opts outputOptions) (*workflow.RunResult, error) {
	handler := cli.NewInterruptHandler(os.Stderr)
	ctx, stop := handler.HandleInterrupts(ctx, "Regions fetched so far are cached and reused on the next run.")
	defer stop()

	var wfOpts []workflow.Option
	if !opts.NoProgress {
		progress := cli.NewProgress(os.Stderr, len(regions))
		defer progress.Finish()
		wfOpts = append(wfOpts, workflow.WithProgress(func(region model.Region, _ *workflow.RegionResult, err error) {
			progress.Step(region.Label(), err)
		}))
	}

	return p.workflow(wfOpts...).ProcessRegions(ctx, regions)
}

// finish writes every requested output and prints the summary.
func (p *pipeline) finish(ctx context.Context, out io.Writer, regions []model.Region, result *workflow.RunResult, opts outputOptions, started time.Time) error {
	units := p.units.All()

	if opts.CSV != "" {
		if err := export.WriteCSVFile(opts.CSV, units); err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Wrote %d units to %s", len(units), opts.CSV)))
	}
	if opts.GeoJSON != "" {
		if err := export.WriteGeoJSONFile(opts.GeoJSON, units); err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Wrote GeoJSON to %s", opts.GeoJSON)))
	}
	if opts.RejectionsDir != "" {
		if err := p.writeRejections(out, opts.RejectionsDir); err != nil {
			return err
		}
	}

	stats := p.client.Stats()
	runID := ""
	if opts.Database != "" {
		store, err := initStorage(ctx, opts.Database)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				slog.Warn("Failed to close database", "error", err)
			}
		}()

		runID, err = p.persist(ctx, store, regions, units, service.RunStats{
			NetworkCalls:  stats.NetworkCalls,
			CacheHits:     stats.CacheHits,
			FailedRegions: len(result.Failures),
		})
		if err != nil {
			return err
		}
		slog.Info("Stored run", "run_id", runID, "database", opts.Database, "units", len(units))
	}

	failed := make([]string, 0, len(result.Failures))
	for _, f := range result.Failures {
		failed = append(failed, f.Region.Label())
	}

	unitStats := p.units.Statistics()
	summary := p.tracker.Summary()
	fmt.Fprintln(out, cli.RenderSummary(cli.RunSummary{
		Stats:        unitStats,
		Rejections:   summary,
		Regions:      len(regions),
		Failed:       failed,
		NetworkCalls: stats.NetworkCalls,
		CacheHits:    stats.CacheHits,
		Duration:     time.Since(started),
		RunID:        runID,
	}))
	if len(unitStats.CapacityByFuel) > 0 {
		fmt.Fprintln(out, cli.CapacityTable(unitStats))
	}
	if p.tracker.TotalCount() > 0 {
		fmt.Fprintln(out, cli.RejectionTable(summary))
		for _, reason := range p.tracker.UniqueReasons() {
			top := p.tracker.TopKeywords(reason, opts.TopKeywords)
			if len(top) == 0 || opts.TopKeywords <= 0 {
				continue
			}
			fmt.Fprintln(out, cli.KeywordTable(reason, top))
		}
	}
	return nil
}

func (p *pipeline) writeRejections(out io.Writer, dir string) error {
	dir, err := config.EnsureDir(dir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, "rejections.csv")
	f, err := os.Create(path) //nolint:gosec // path comes from the user
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := p.tracker.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := p.tracker.ExportGeoJSON(filepath.Join(dir, "rejections.geojson")); err != nil {
		return err
	}
	files, err := p.tracker.ExportGeoJSONByReason(dir, "rejected")
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Wrote %d rejections and %d per-reason files to %s",
		p.tracker.TotalCount(), len(files), dir)))
	return nil
}

func (p *pipeline) persist(ctx context.Context, store service.RunStore, regions []model.Region, units []model.Unit, stats service.RunStats) (string, error) {
	labels := make([]string, len(regions))
	for i, r := range regions {
		labels[i] = r.Label()
	}

	runID, err := store.BeginRun(ctx, p.cfg.Fingerprint(), labels)
	if err != nil {
		return "", err
	}
	if err := store.SaveUnits(ctx, runID, units); err != nil {
		return "", err
	}
	if err := store.SaveRejections(ctx, runID, p.tracker.Records()); err != nil {
		return "", err
	}
	if err := store.FinishRun(ctx, runID, stats); err != nil {
		return "", err
	}
	return runID, nil
}

// initStorage opens the run database and migrates it.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}
