package rejection

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/Veraticus/osm-powerplants/internal/geojson"
	"github.com/Veraticus/osm-powerplants/internal/model"
)

// ReportHeader is the column order of the tabular report.
var ReportHeader = []string{"element_id", "element_type", "region", "reason", "keyword", "lat", "lon"}

// ReportRow is one record in tabular form.
type ReportRow struct {
	Lat         *float64
	Lon         *float64
	ElementID   string
	ElementType string
	Region      string
	Reason      string
	Keyword     string
}

// Report returns one row per record in recording order.
func (t *Tracker) Report() []ReportRow {
	return ReportRows(t.Records())
}

// ReportRows converts records to report rows, keeping their order.
func ReportRows(records []model.RejectionRecord) []ReportRow {
	rows := make([]ReportRow, 0, len(records))
	for _, r := range records {
		row := ReportRow{
			ElementID:   r.ElementID,
			ElementType: string(r.ElementKind),
			Region:      r.Region,
			Reason:      r.Reason.Label(),
			Keyword:     r.Keyword,
		}
		if r.Center != nil {
			lat, lon := r.Center.Lat, r.Center.Lon
			row.Lat, row.Lon = &lat, &lon
		}
		rows = append(rows, row)
	}
	return rows
}

// Cells renders the row in ReportHeader order.
func (r ReportRow) Cells() []string {
	return []string{r.ElementID, r.ElementType, r.Region, r.Reason, r.Keyword, formatCoord(r.Lat), formatCoord(r.Lon)}
}

// WriteCSV writes the report with a header row.
func (t *Tracker) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, row := range t.Report() {
		if err := cw.Write(row.Cells()); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

// FeatureCollection builds a collection with one feature per record.
// Records without a center get a null geometry.
func FeatureCollection(records []model.RejectionRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		props := map[string]any{
			"element_id":   r.ElementID,
			"element_type": string(r.ElementKind),
			"region":       r.Region,
			"reason":       r.Reason.Label(),
			"keyword":      r.Keyword,
		}

		var geom *geojson.Geometry
		if r.Center != nil {
			geom = geojson.NewPoint(r.Center.Lat, r.Center.Lon)
			props["lat"] = r.Center.Lat
			props["lon"] = r.Center.Lon
		}
		if len(r.Ring) > 0 {
			ring := make([][2]float64, len(r.Ring))
			for i, p := range r.Ring {
				ring[i] = [2]float64{p.Lon, p.Lat}
			}
			props["ring"] = ring
		}

		fc.Add(geom, props)
	}
	return fc
}

// ExportGeoJSON writes every record to one file.
func (t *Tracker) ExportGeoJSON(path string) error {
	return FeatureCollection(t.Records()).WriteFile(path)
}

// ExportGeoJSONByReason writes one <prefix>_<reason-slug>.geojson file per
// reason that occurred and returns the paths written.
func (t *Tracker) ExportGeoJSONByReason(dir, prefix string) ([]string, error) {
	var paths []string
	for _, reason := range t.UniqueReasons() {
		name := reason.String() + ".geojson"
		if prefix != "" {
			name = prefix + "_" + name
		}
		path := filepath.Join(dir, name)

		if err := FeatureCollection(t.ByReason(reason)).WriteFile(path); err != nil {
			return paths, fmt.Errorf("failed to export %s: %w", reason, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
