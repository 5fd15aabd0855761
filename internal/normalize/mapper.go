package normalize

import (
	"strings"

	"github.com/Veraticus/osm-powerplants/internal/config"
	"github.com/Veraticus/osm-powerplants/internal/model"
)

// builtinSetTypes classifies the technologies of the default table.
var builtinSetTypes = map[string]string{
	"PV":                model.SetProduction,
	"CSP":               model.SetProduction,
	"Onshore":           model.SetProduction,
	"Offshore":          model.SetProduction,
	"Run-Of-River":      model.SetProduction,
	"CCGT":              model.SetProduction,
	"OCGT":              model.SetProduction,
	"Steam Turbine":     model.SetProduction,
	"Combustion Engine": model.SetProduction,
	"Pumped Storage":    model.SetStorage,
	"Reservoir":         model.SetStorage,
	"Battery Storage":   model.SetStorage,
}

// Mapper resolves fuel type, technology and set type from tags using the
// configured lookup tables.
type Mapper struct {
	sources      config.OrderedTable
	technologies config.OrderedTable
}

// NewMapper creates a mapper over the tables of cfg. The tables are copied
// by reference and must not be modified afterwards.
func NewMapper(cfg *config.Config) *Mapper {
	return &Mapper{
		sources:      cfg.SourceMapping,
		technologies: cfg.TechnologyMapping,
	}
}

// FuelType maps the fuel-indicating tags to a canonical fuel type.
func (m *Mapper) FuelType(tags map[string]string) (string, bool) {
	return match(m.sources, tags, FuelKeys)
}

// Technology maps the technology-indicating tags to a canonical technology.
func (m *Mapper) Technology(tags map[string]string) (string, bool) {
	return match(m.technologies, tags, TechnologyKeys)
}

// SetType classifies a technology as production or storage.
func (m *Mapper) SetType(technology string) (string, bool) {
	return DetermineSetType(technology, m.technologies)
}

// MapFuelAndTechnology resolves both attributes. A field without a match is nil.
func (m *Mapper) MapFuelAndTechnology(tags map[string]string) (fuel, technology *string) {
	if v, ok := m.FuelType(tags); ok {
		fuel = &v
	}
	if v, ok := m.Technology(tags); ok {
		technology = &v
	}
	return fuel, technology
}

// DetermineSetType returns "PP" or "Store" for a technology. A set given on
// the technology's table entry takes precedence over the built-in classes.
// Unknown and empty technologies yield false.
func DetermineSetType(technology string, table config.OrderedTable) (string, bool) {
	if technology == "" {
		return "", false
	}
	for _, entry := range table {
		if entry.Name == technology && entry.Set != "" {
			return entry.Set, true
		}
	}
	set, ok := builtinSetTypes[technology]
	return set, ok
}

// match runs two first-match-wins passes over table: exact tokens, then
// substrings. Table order decides ties within a pass.
func match(table config.OrderedTable, tags map[string]string, keys []string) (string, bool) {
	var values []string
	for _, k := range keys {
		values = append(values, tokens(tags[k])...)
	}
	if len(values) == 0 {
		return "", false
	}

	for _, entry := range table {
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(kw)
			for _, v := range values {
				if v == kw {
					return entry.Name, true
				}
			}
		}
	}

	for _, entry := range table {
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(kw)
			if kw == "" {
				continue
			}
			for _, v := range values {
				if strings.Contains(v, kw) {
					return entry.Name, true
				}
			}
		}
	}

	return "", false
}
