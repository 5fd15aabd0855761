package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/cli"
	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func regionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "region",
		Short: "Extract power plant units for a bounding box or a radius",
		Long: `Process a custom region instead of a country. Give either --bbox or
--center together with --radius-km.`,
		Example: `  osmpp region --bbox 35.8,14.1,36.1,14.6 --name "Malta box"
  osmpp region --center 35.9,14.4 --radius-km 25 --raw`,
		Args: cobra.NoArgs,
		RunE: runRegion,
	}

	cmd.Flags().String("bbox", "", "bounding box as south,west,north,east")
	cmd.Flags().String("center", "", "circle center as lat,lon")
	cmd.Flags().Float64("radius-km", 0, "circle radius in kilometers")
	cmd.Flags().String("name", "", "label for the region")
	cmd.Flags().String("type", "both", "elements to count with --raw (plants, generators, both)")
	cmd.Flags().Bool("raw", false, "only fetch and count raw elements")

	_ = viper.BindPFlag("region.bbox", cmd.Flags().Lookup("bbox"))
	_ = viper.BindPFlag("region.center", cmd.Flags().Lookup("center"))
	_ = viper.BindPFlag("region.radius_km", cmd.Flags().Lookup("radius-km"))
	_ = viper.BindPFlag("region.name", cmd.Flags().Lookup("name"))
	_ = viper.BindPFlag("region.type", cmd.Flags().Lookup("type"))
	_ = viper.BindPFlag("region.raw", cmd.Flags().Lookup("raw"))

	addOutputFlags(cmd, "region")
	return cmd
}

func runRegion(cmd *cobra.Command, _ []string) error {
	started := time.Now()
	ctx := cmd.Context()

	region, err := regionFromFlags(
		viper.GetString("region.name"),
		viper.GetString("region.bbox"),
		viper.GetString("region.center"),
		viper.GetFloat64("region.radius_km"),
	)
	if err != nil {
		return common.NewUserError(err.Error(), err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	if viper.GetBool("region.raw") {
		downloadType, err := model.ParseDownloadType(viper.GetString("region.type"))
		if err != nil {
			return common.NewUserError(err.Error(), err)
		}
		set, err := p.client.Fetch(ctx, region, downloadType)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatRegion(region.Label()))
		fmt.Fprintln(cmd.OutOrStdout(), cli.Table(
			[]string{"Region", "Plants", "Generators", "Cached"},
			[][]string{{
				region.Label(),
				strconv.Itoa(len(set.Plants)),
				strconv.Itoa(len(set.Generators)),
				strconv.FormatBool(set.FromCache),
			}},
		))
		return nil
	}

	opts := readOutputOptions("region")
	regions := []model.Region{region}
	result, err := p.run(ctx, regions, opts)
	if err != nil {
		return err
	}
	return p.finish(ctx, cmd.OutOrStdout(), regions, result, opts, started)
}

// regionFromFlags builds a bbox or radius region from flag values.
func regionFromFlags(name, bbox, center string, radiusKm float64) (model.Region, error) {
	switch {
	case bbox != "" && center != "":
		return model.Region{}, fmt.Errorf("%w: use either --bbox or --center, not both", model.ErrInvalidRegion)
	case bbox != "":
		v, err := parseFloats(bbox, 4)
		if err != nil {
			return model.Region{}, fmt.Errorf("%w: bbox: %v", model.ErrInvalidRegion, err)
		}
		if name == "" {
			name = "bbox " + bbox
		}
		region := model.BBoxRegion(name, v[0], v[1], v[2], v[3])
		return region, region.Validate()
	case center != "":
		v, err := parseFloats(center, 2)
		if err != nil {
			return model.Region{}, fmt.Errorf("%w: center: %v", model.ErrInvalidRegion, err)
		}
		if name == "" {
			name = fmt.Sprintf("%s +%gkm", center, radiusKm)
		}
		region := model.RadiusRegion(name, model.LatLon{Lat: v[0], Lon: v[1]}, radiusKm)
		return region, region.Validate()
	default:
		return model.Region{}, fmt.Errorf("%w: --bbox or --center is required", model.ErrInvalidRegion)
	}
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		out[i] = v
	}
	return out, nil
}
