package main

import (
	"time"

	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/Veraticus/osm-powerplants/internal/countries"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/spf13/cobra"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process COUNTRY...",
		Short: "Extract power plant units for one or more countries",
		Long: `Query OpenStreetMap for the power elements of each country, classify them
into unit records and write the results.

Countries may be given by name or ISO 3166-1 alpha-2 code. Every country is
checked before anything is fetched; a single unknown name aborts the run.
A country whose query fails is reported and the run continues.`,
		Example: `  osmpp process Malta Cyprus
  osmpp process DE --geojson plants.geojson --rejections-dir rejected/
  osmpp process Portugal --plants-only=false --db default`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProcess,
	}
	addOutputFlags(cmd, "process")
	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	started := time.Now()
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resolved, err := countries.Validate(args)
	if err != nil {
		return common.NewUserError(err.Error(), err)
	}
	regions := make([]model.Region, len(resolved))
	for i, c := range resolved {
		regions[i] = c.Region()
	}

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	opts := readOutputOptions("process")
	result, err := p.run(ctx, regions, opts)
	if err != nil {
		return err
	}
	return p.finish(ctx, cmd.OutOrStdout(), regions, result, opts, started)
}
