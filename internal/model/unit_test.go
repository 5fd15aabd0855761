package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestUnit_ToMap(t *testing.T) {
	unit := Unit{
		ProjectID: "test_123",
		Country:   "Germany",
		Capacity:  floatPtr(10.5),
	}

	data := unit.ToMap()

	assert.Equal(t, "test_123", data["projectID"])
	assert.Equal(t, "Germany", data["Country"])
	assert.Equal(t, 10.5, data["Capacity"])
	assert.NotContains(t, data, "Name")
	assert.NotContains(t, data, "lat")
}

func TestUnits_Add(t *testing.T) {
	units := NewUnits()
	assert.Equal(t, 0, units.Len())

	require.NoError(t, units.Add(Unit{ProjectID: "1", Country: "Germany", Fueltype: strPtr("Solar")}))
	require.NoError(t, units.Add(Unit{ProjectID: "2", Country: "France", Fueltype: strPtr("Wind")}))
	assert.Equal(t, 2, units.Len())

	err := units.Add(Unit{ProjectID: "1", Country: "Germany"})
	assert.ErrorIs(t, err, ErrDuplicateUnit)
	assert.Equal(t, 2, units.Len())

	got, ok := units.Get("2")
	require.True(t, ok)
	assert.Equal(t, "France", got.Country)

	all := units.All()
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ProjectID, "insertion order is preserved")
}

func TestUnits_FilterByCountry(t *testing.T) {
	units := NewUnits(
		Unit{ProjectID: "1", Country: "Germany"},
		Unit{ProjectID: "2", Country: "France"},
		Unit{ProjectID: "3", Country: "Germany"},
	)

	german := units.FilterByCountry("Germany")

	assert.Equal(t, 2, german.Len())
	assert.Equal(t, 3, units.Len())
}

func TestUnits_Statistics(t *testing.T) {
	units := NewUnits(
		Unit{ProjectID: "1", Country: "Germany", Fueltype: strPtr("Solar"), Lat: floatPtr(52.0), Lon: floatPtr(13.0), Capacity: floatPtr(10.0)},
		Unit{ProjectID: "2", Country: "Germany", Fueltype: strPtr("Wind"), Lat: floatPtr(52.1), Lon: floatPtr(13.1), Capacity: floatPtr(20.0)},
		Unit{ProjectID: "3", Country: "France", Fueltype: strPtr("Solar"), Lat: floatPtr(48.0), Lon: floatPtr(2.0), Capacity: floatPtr(15.0)},
	)

	stats := units.Statistics()

	assert.Equal(t, 3, stats.TotalUnits)
	assert.Equal(t, 3, stats.UnitsWithCoordinates)
	assert.InDelta(t, 100.0, stats.CoveragePercentage, 1e-9)
	assert.InDelta(t, 45.0, stats.TotalCapacityMW, 1e-9)
	assert.Equal(t, []string{"France", "Germany"}, stats.Countries)
	assert.Equal(t, []string{"Solar", "Wind"}, stats.FuelTypes)
	assert.InDelta(t, 25.0, stats.CapacityByFuel["Solar"], 1e-9)
}

func TestUnits_EmptyStatistics(t *testing.T) {
	stats := NewUnits().Statistics()

	assert.Equal(t, 0, stats.TotalUnits)
	assert.Zero(t, stats.CoveragePercentage)
	assert.Empty(t, stats.Countries)
}

func TestUnits_PartialCoverage(t *testing.T) {
	units := NewUnits(
		Unit{ProjectID: "1", Country: "Malta", Lat: floatPtr(35.9), Lon: floatPtr(14.5)},
		Unit{ProjectID: "2", Country: "Malta"},
	)

	stats := units.Statistics()
	assert.Equal(t, 1, stats.UnitsWithCoordinates)
	assert.InDelta(t, 50.0, stats.CoveragePercentage, 1e-9)
	assert.Zero(t, stats.TotalCapacityMW)
}
