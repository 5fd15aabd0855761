// Package workflow classifies the raw power elements of a region into
// units and rejections.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/osm-powerplants/internal/config"
	"github.com/Veraticus/osm-powerplants/internal/countries"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/Veraticus/osm-powerplants/internal/normalize"
	"github.com/Veraticus/osm-powerplants/internal/service"
)

// RegionResult describes what happened to one region. MergedGenerators
// counts every generator folded into a plant; RejectedMembers is the part
// of them whose plant was rejected.
type RegionResult struct {
	Region            model.Region
	Units             []model.Unit
	Elements          int
	Rejected          int
	DroppedGenerators int
	Duplicates        int
	MergedGenerators  int
	RejectedMembers   int
	FromCache         bool
}

// RegionFailure is a region whose elements could not be retrieved.
type RegionFailure struct {
	Err    error
	Region model.Region
}

// RunResult collects the outcome of a multi-region run.
type RunResult struct {
	Regions  []RegionResult
	Failures []RegionFailure
}

// UnitCount returns the number of units emitted across regions.
func (r *RunResult) UnitCount() int {
	n := 0
	for _, rr := range r.Regions {
		n += len(rr.Units)
	}
	return n
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithProgress registers a callback invoked after every region, whether it
// succeeded or not.
func WithProgress(fn func(region model.Region, result *RegionResult, err error)) Option {
	return func(w *Workflow) {
		w.progress = fn
	}
}

// Workflow turns fetched elements into units. Regions are processed one at
// a time; a Workflow must not be used from several goroutines.
type Workflow struct {
	fetcher     service.ElementFetcher
	recorder    service.RejectionRecorder
	units       *model.Units
	cfg         *config.Config
	mapper      *normalize.Mapper
	progress    func(model.Region, *RegionResult, error)
	seen        map[string]string
	fingerprint string
}

// New creates a workflow that appends units to units and rejections to
// recorder. cfg is read but never modified.
func New(fetcher service.ElementFetcher, recorder service.RejectionRecorder, units *model.Units, cfg *config.Config, opts ...Option) *Workflow {
	if cfg == nil {
		cfg = config.Default()
	}
	w := &Workflow{
		fetcher:     fetcher,
		recorder:    recorder,
		units:       units,
		cfg:         cfg,
		mapper:      normalize.NewMapper(cfg),
		seen:        make(map[string]string),
		fingerprint: cfg.Fingerprint(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Units returns the collection the workflow appends to.
func (w *Workflow) Units() *model.Units {
	return w.units
}

// ProcessCountry resolves a country token and processes its region.
func (w *Workflow) ProcessCountry(ctx context.Context, token string) (*RegionResult, error) {
	resolved, err := countries.Validate([]string{token})
	if err != nil {
		return nil, err
	}
	return w.ProcessRegion(ctx, resolved[0].Region())
}

// ProcessCountries validates every token before any fetch, then processes
// the countries in the given order. A region that fails to fetch is
// recorded in the result and the run continues.
func (w *Workflow) ProcessCountries(ctx context.Context, tokens []string) (*RunResult, error) {
	resolved, err := countries.Validate(tokens)
	if err != nil {
		return nil, err
	}

	regions := make([]model.Region, len(resolved))
	for i, c := range resolved {
		regions[i] = c.Region()
	}
	return w.ProcessRegions(ctx, regions)
}

// ProcessRegions processes regions sequentially. Only cancellation of ctx
// stops the run early.
func (w *Workflow) ProcessRegions(ctx context.Context, regions []model.Region) (*RunResult, error) {
	for _, r := range regions {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	run := &RunResult{}
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		result, err := w.ProcessRegion(ctx, region)
		if err != nil {
			slog.Error("Region failed", "region", region.Label(), "error", err)
			run.Failures = append(run.Failures, RegionFailure{Region: region, Err: err})
			continue
		}
		run.Regions = append(run.Regions, *result)
	}
	return run, nil
}

// ProcessRegion fetches and classifies one region.
func (w *Workflow) ProcessRegion(ctx context.Context, region model.Region) (result *RegionResult, err error) {
	if w.progress != nil {
		defer func() { w.progress(region, result, err) }()
	}

	downloadType := model.DownloadBoth
	if w.cfg.PlantsOnly {
		downloadType = model.DownloadPlants
	}

	set, err := w.fetcher.Fetch(ctx, region, downloadType)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", region.Label(), err)
	}

	result = &RegionResult{Region: region, FromCache: set.FromCache, Elements: set.Len()}
	w.classify(region, set, result)

	slog.Info("Processed region",
		"region", region.Label(),
		"elements", result.Elements,
		"units", len(result.Units),
		"rejected", result.Rejected,
		"merged_generators", result.MergedGenerators,
		"rejected_members", result.RejectedMembers,
		"dropped_generators", result.DroppedGenerators,
		"duplicates", result.Duplicates,
		"from_cache", result.FromCache)
	return result, nil
}
