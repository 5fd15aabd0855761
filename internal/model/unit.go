package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateUnit is returned when a unit with an existing project ID is added.
var ErrDuplicateUnit = errors.New("duplicate unit")

// SourceOSM is the provenance flag for units derived from map data.
const SourceOSM = "OSM"

// Set types.
const (
	SetProduction = "PP"
	SetStorage    = "Store"
)

// Unit is a canonical power unit record.
type Unit struct {
	Name       *string  `json:"Name,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	Fueltype   *string  `json:"Fueltype,omitempty"`
	Technology *string  `json:"Technology,omitempty"`
	Set        *string  `json:"Set,omitempty"`
	Capacity   *float64 `json:"Capacity,omitempty"`
	DateIn     *int     `json:"DateIn,omitempty"`
	ProjectID  string   `json:"projectID"`
	Country    string   `json:"Country"`
	Source     string   `json:"Source,omitempty"`
}

// HasCoordinates reports whether both lat and lon are set.
func (u Unit) HasCoordinates() bool {
	return u.Lat != nil && u.Lon != nil
}

// ToMap returns the unit as a field map, omitting unset values.
func (u Unit) ToMap() map[string]any {
	m := map[string]any{
		"projectID": u.ProjectID,
		"Country":   u.Country,
	}
	if u.Name != nil {
		m["Name"] = *u.Name
	}
	if u.Lat != nil {
		m["lat"] = *u.Lat
	}
	if u.Lon != nil {
		m["lon"] = *u.Lon
	}
	if u.Fueltype != nil {
		m["Fueltype"] = *u.Fueltype
	}
	if u.Technology != nil {
		m["Technology"] = *u.Technology
	}
	if u.Set != nil {
		m["Set"] = *u.Set
	}
	if u.Capacity != nil {
		m["Capacity"] = *u.Capacity
	}
	if u.DateIn != nil {
		m["DateIn"] = *u.DateIn
	}
	if u.Source != "" {
		m["Source"] = u.Source
	}
	return m
}

// Units is an ordered collection of units. Insertion order is discovery order.
// It is not safe for concurrent writers.
type Units struct {
	index map[string]int
	units []Unit
}

// NewUnits creates a collection from the given units, skipping duplicates.
func NewUnits(units ...Unit) *Units {
	c := &Units{index: make(map[string]int, len(units))}
	for _, u := range units {
		_ = c.Add(u)
	}
	return c
}

// Add appends a unit. Project IDs must be unique within the collection.
func (c *Units) Add(u Unit) error {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if u.ProjectID == "" {
		return fmt.Errorf("%w: empty project ID", ErrDuplicateUnit)
	}
	if _, exists := c.index[u.ProjectID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, u.ProjectID)
	}
	c.index[u.ProjectID] = len(c.units)
	c.units = append(c.units, u)
	return nil
}

// Len returns the number of units.
func (c *Units) Len() int {
	if c == nil {
		return 0
	}
	return len(c.units)
}

// All returns a copy of the units in insertion order.
func (c *Units) All() []Unit {
	if c == nil {
		return nil
	}
	out := make([]Unit, len(c.units))
	copy(out, c.units)
	return out
}

// Get returns the unit with the given project ID.
func (c *Units) Get(projectID string) (Unit, bool) {
	if c == nil {
		return Unit{}, false
	}
	i, ok := c.index[projectID]
	if !ok {
		return Unit{}, false
	}
	return c.units[i], true
}

// FilterByCountry returns a new collection with the units of one country.
func (c *Units) FilterByCountry(country string) *Units {
	out := NewUnits()
	if c == nil {
		return out
	}
	for _, u := range c.units {
		if u.Country == country {
			_ = out.Add(u)
		}
	}
	return out
}

// Statistics summarizes a units collection.
type Statistics struct {
	CapacityByFuel       map[string]float64 `json:"capacity_by_fuel"`
	Countries            []string           `json:"countries"`
	FuelTypes            []string           `json:"fuel_types"`
	TotalUnits           int                `json:"total_units"`
	UnitsWithCoordinates int                `json:"units_with_coordinates"`
	CoveragePercentage   float64            `json:"coverage_percentage"`
	TotalCapacityMW      float64            `json:"total_capacity_mw"`
}

// Statistics computes summary statistics for the collection.
func (c *Units) Statistics() Statistics {
	stats := Statistics{
		CapacityByFuel: make(map[string]float64),
		Countries:      []string{},
		FuelTypes:      []string{},
	}
	if c.Len() == 0 {
		return stats
	}

	countries := make(map[string]struct{})
	fuels := make(map[string]struct{})
	for _, u := range c.units {
		stats.TotalUnits++
		if u.HasCoordinates() {
			stats.UnitsWithCoordinates++
		}
		if u.Country != "" {
			countries[u.Country] = struct{}{}
		}
		if u.Fueltype != nil {
			fuels[*u.Fueltype] = struct{}{}
		}
		if u.Capacity != nil {
			stats.TotalCapacityMW += *u.Capacity
			if u.Fueltype != nil {
				stats.CapacityByFuel[*u.Fueltype] += *u.Capacity
			}
		}
	}

	stats.CoveragePercentage = float64(stats.UnitsWithCoordinates) / float64(stats.TotalUnits) * 100
	stats.Countries = sortedKeys(countries)
	stats.FuelTypes = sortedKeys(fuels)
	return stats
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
