package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleUnits() []model.Unit {
	return []model.Unit{
		{
			ProjectID:  "OSM_n1_abcdef12",
			Name:       ptr("Sun Farm"),
			Country:    "Malta",
			Lat:        ptr(35.9),
			Lon:        ptr(14.4),
			Fueltype:   ptr("Solar"),
			Technology: ptr("PV"),
			Set:        ptr("PP"),
			Capacity:   ptr(10.0),
			DateIn:     ptr(2015),
			Source:     model.SourceOSM,
		},
		{
			ProjectID: "OSM_w2_abcdef12",
			Country:   "Malta",
			Fueltype:  ptr("Wind"),
			Source:    model.SourceOSM,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleUnits()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"projectID", "Name", "Country", "lat", "lon", "Fueltype", "Technology", "Set", "Capacity", "DateIn", "Source"}, rows[0])
	assert.Equal(t, []string{"OSM_n1_abcdef12", "Sun Farm", "Malta", "35.9", "14.4", "Solar", "PV", "PP", "10", "2015", "OSM"}, rows[1])
	assert.Equal(t, []string{"OSM_w2_abcdef12", "", "Malta", "", "", "Wind", "", "", "", "", "OSM"}, rows[2])
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "units.csv")
	require.NoError(t, WriteCSVFile(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "projectID,Name,Country,lat,lon,Fueltype,Technology,Set,Capacity,DateIn,Source\n", string(data))
}

func TestFeatureCollection(t *testing.T) {
	fc := FeatureCollection(sampleUnits())
	require.Len(t, fc.Features, 1, "units without coordinates are skipped")

	f := fc.Features[0]
	assert.Equal(t, []float64{14.4, 35.9}, f.Geometry.Coordinates)
	assert.Equal(t, "Sun Farm", f.Properties["Name"])
	assert.Equal(t, 10.0, f.Properties["Capacity"])
	assert.Equal(t, "OSM", f.Properties["Source"])
}

func TestWriteGeoJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.geojson")
	require.NoError(t, WriteGeoJSONFile(path, sampleUnits()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Features, 1)
	assert.Equal(t, "OSM_n1_abcdef12", decoded.Features[0].Properties["projectID"])
	assert.Equal(t, float64(2015), decoded.Features[0].Properties["DateIn"])
}
