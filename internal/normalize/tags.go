package normalize

import (
	"strconv"
	"strings"
)

// Tag keys consulted for each attribute, in priority order.
var (
	FuelKeys       = []string{"plant:source", "generator:source"}
	TechnologyKeys = []string{"plant:method", "generator:method", "generator:type", "plant:type"}
	CapacityKeys   = []string{"plant:output:electricity", "generator:output:electricity"}
	NameKeys       = []string{"name", "name:en"}
	StartDateKeys  = []string{"start_date", "plant:start_date", "generator:start_date"}
)

const (
	minYear = 1800
	maxYear = 2100
)

// firstValue returns the first non-blank value among keys.
func firstValue(tags map[string]string, keys []string) (string, bool) {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v, true
		}
	}
	return "", false
}

// SourceValue returns the raw fuel-indicating tag value.
func SourceValue(tags map[string]string) (string, bool) {
	return firstValue(tags, FuelKeys)
}

// TechnologyValue returns the raw technology-indicating tag value.
func TechnologyValue(tags map[string]string) (string, bool) {
	return firstValue(tags, TechnologyKeys)
}

// CapacityText returns the raw capacity tag value.
func CapacityText(tags map[string]string) (string, bool) {
	return firstValue(tags, CapacityKeys)
}

// Name returns the display name of an element.
func Name(tags map[string]string) (string, bool) {
	return firstValue(tags, NameKeys)
}

// CommissioningYear extracts the year from the leading digits of a start
// date tag such as "2011", "2011-05" or "2011-05-04".
func CommissioningYear(tags map[string]string) (int, bool) {
	v, ok := firstValue(tags, StartDateKeys)
	if !ok || len(v) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(v[:4])
	if err != nil || year < minYear || year > maxYear {
		return 0, false
	}
	return year, true
}

// tokens splits a multi-valued tag ("solar;wind") into lower-case parts.
func tokens(value string) []string {
	parts := strings.Split(value, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
