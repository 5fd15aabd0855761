package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MappingEntry maps a set of tag keywords to one canonical value. Set is
// only meaningful for technology entries.
type MappingEntry struct {
	Name     string   `yaml:"name" json:"name"`
	Set      string   `yaml:"set,omitempty" json:"set,omitempty"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// OrderedTable is a first-match-wins lookup table. Entry order is taken from
// the configuration file and never re-sorted.
type OrderedTable []MappingEntry

// UnmarshalYAML accepts either a mapping (name: [keywords]) whose key order
// is preserved, or a sequence of entries.
func (t *OrderedTable) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var entries []MappingEntry
		if err := node.Decode(&entries); err != nil {
			return err
		}
		*t = entries
		return nil

	case yaml.MappingNode:
		entries := make([]MappingEntry, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			entry := MappingEntry{Name: node.Content[i].Value}
			val := node.Content[i+1]

			switch val.Kind {
			case yaml.SequenceNode:
				if err := val.Decode(&entry.Keywords); err != nil {
					return fmt.Errorf("table entry %q: %w", entry.Name, err)
				}
			case yaml.ScalarNode:
				if val.Value != "" {
					entry.Keywords = []string{val.Value}
				}
			case yaml.MappingNode:
				var body struct {
					Set      string   `yaml:"set"`
					Keywords []string `yaml:"keywords"`
				}
				if err := val.Decode(&body); err != nil {
					return fmt.Errorf("table entry %q: %w", entry.Name, err)
				}
				entry.Keywords = body.Keywords
				entry.Set = body.Set
			default:
				return fmt.Errorf("table entry %q: unsupported value", entry.Name)
			}
			entries = append(entries, entry)
		}
		*t = entries
		return nil

	case 0:
		*t = nil
		return nil
	}

	return fmt.Errorf("line %d: lookup table must be a mapping or a sequence", node.Line)
}

// Names returns the canonical values in table order.
func (t OrderedTable) Names() []string {
	names := make([]string, len(t))
	for i, e := range t {
		names[i] = e.Name
	}
	return names
}

func (t OrderedTable) clone() OrderedTable {
	if t == nil {
		return nil
	}
	out := make(OrderedTable, len(t))
	for i, e := range t {
		out[i] = MappingEntry{
			Name:     e.Name,
			Set:      e.Set,
			Keywords: append([]string(nil), e.Keywords...),
		}
	}
	return out
}

// DefaultSourceMapping returns the built-in fuel table.
func DefaultSourceMapping() OrderedTable {
	return OrderedTable{
		{Name: "Solar", Keywords: []string{"solar", "photovoltaic", "pv"}},
		{Name: "Wind", Keywords: []string{"wind"}},
		{Name: "Hydro", Keywords: []string{"hydro", "water", "tidal"}},
		{Name: "Nuclear", Keywords: []string{"nuclear"}},
		{Name: "Natural Gas", Keywords: []string{"gas", "natural_gas", "lng"}},
		{Name: "Hard Coal", Keywords: []string{"coal", "hard_coal", "anthracite"}},
		{Name: "Lignite", Keywords: []string{"lignite", "brown_coal"}},
		{Name: "Oil", Keywords: []string{"oil", "diesel", "gasoil", "fuel_oil"}},
		{Name: "Bioenergy", Keywords: []string{"biomass", "biogas", "biofuel", "wood", "waste"}},
		{Name: "Geothermal", Keywords: []string{"geothermal"}},
		{Name: "Battery", Keywords: []string{"battery"}},
	}
}

// DefaultTechnologyMapping returns the built-in technology table.
func DefaultTechnologyMapping() OrderedTable {
	return OrderedTable{
		{Name: "PV", Set: "PP", Keywords: []string{"photovoltaic", "pv", "solar_photovoltaic_panel"}},
		{Name: "CSP", Set: "PP", Keywords: []string{"solar_thermal", "concentrated_solar"}},
		{Name: "Pumped Storage", Set: "Store", Keywords: []string{"water-pumped-storage", "pumped_storage", "pumped-storage"}},
		{Name: "Reservoir", Set: "Store", Keywords: []string{"water-storage", "dam", "reservoir"}},
		{Name: "Run-Of-River", Set: "PP", Keywords: []string{"run-of-the-river", "run_of_the_river", "run-of-river"}},
		{Name: "Offshore", Set: "PP", Keywords: []string{"offshore"}},
		{Name: "Onshore", Set: "PP", Keywords: []string{"wind_turbine", "horizontal_axis", "vertical_axis", "onshore"}},
		{Name: "CCGT", Set: "PP", Keywords: []string{"combined_cycle", "ccgt"}},
		{Name: "OCGT", Set: "PP", Keywords: []string{"gas_turbine", "ocgt"}},
		{Name: "Steam Turbine", Set: "PP", Keywords: []string{"steam_turbine", "thermal", "combustion"}},
		{Name: "Combustion Engine", Set: "PP", Keywords: []string{"reciprocating_engine", "internal_combustion"}},
		{Name: "Battery Storage", Set: "Store", Keywords: []string{"battery", "electrochemical"}},
	}
}
