// Package export writes unit collections in the published schema.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Veraticus/osm-powerplants/internal/geojson"
	"github.com/Veraticus/osm-powerplants/internal/model"
)

// Columns is the unit export schema in column order.
var Columns = []string{
	"projectID", "Name", "Country", "lat", "lon",
	"Fueltype", "Technology", "Set", "Capacity", "DateIn", "Source",
}

// Row renders a unit as CSV cells. Unset values are empty.
func Row(u model.Unit) []string {
	return []string{
		u.ProjectID,
		str(u.Name),
		u.Country,
		float(u.Lat),
		float(u.Lon),
		str(u.Fueltype),
		str(u.Technology),
		str(u.Set),
		float(u.Capacity),
		integer(u.DateIn),
		u.Source,
	}
}

// WriteCSV writes units with a header row.
func WriteCSV(w io.Writer, units []model.Unit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, u := range units {
		if err := cw.Write(Row(u)); err != nil {
			return fmt.Errorf("failed to write unit %s: %w", u.ProjectID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteCSVFile writes units to path.
func WriteCSVFile(path string, units []model.Unit) (err error) {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return WriteCSV(f, units)
}

// FeatureCollection returns one Point feature per unit with coordinates.
// Units without coordinates are skipped.
func FeatureCollection(units []model.Unit) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, u := range units {
		if !u.HasCoordinates() {
			continue
		}
		fc.Add(geojson.NewPoint(*u.Lat, *u.Lon), u.ToMap())
	}
	return fc
}

// WriteGeoJSONFile writes units with coordinates to path.
func WriteGeoJSONFile(path string, units []model.Unit) error {
	return FeatureCollection(units).WriteFile(path)
}

func create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // path comes from the user
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func float(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func integer(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
