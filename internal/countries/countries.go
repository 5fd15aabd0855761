// Package countries resolves country names and ISO codes for the supported
// set of countries. Names and ISO 3166 data come from the CLDR tables in
// golang.org/x/text.
package countries

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/osm-powerplants/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Country is one entry of the dictionary.
type Country struct {
	Name   string
	Alpha2 string
	Alpha3 string
}

// Region returns the query region covering the country.
func (c Country) Region() model.Region {
	return model.CountryRegion(c.Name, c.Alpha2)
}

var supportedCodes = []string{
	// Europe
	"AD", "AL", "AT", "BA", "BE", "BG", "BY", "CH", "CY", "CZ", "DE", "DK",
	"EE", "ES", "FI", "FR", "GB", "GR", "HR", "HU", "IE", "IS", "IT", "LI",
	"LT", "LU", "LV", "MC", "MD", "ME", "MK", "MT", "NL", "NO", "PL", "PT",
	"RO", "RS", "SE", "SI", "SK", "SM", "UA",
	// Elsewhere
	"AR", "AU", "BR", "CA", "CL", "CN", "EG", "IN", "JP", "KR", "MA", "MX",
	"NZ", "TR", "US", "ZA",
}

// Common spellings that differ from the CLDR English name.
var aliases = map[string]string{
	"czech republic":           "CZ",
	"bosnia and herzegovina":   "BA",
	"great britain":            "GB",
	"uk":                       "GB",
	"macedonia":                "MK",
	"republic of moldova":      "MD",
	"turkey":                   "TR",
	"türkiye":                  "TR",
	"usa":                      "US",
	"united states of america": "US",
	"republic of korea":        "KR",
}

type dictionary struct {
	byCode map[string]Country
	byName map[string]Country
	all    []Country
}

var dict = build()

func build() *dictionary {
	namer := display.English.Regions()
	d := &dictionary{
		byCode: make(map[string]Country, len(supportedCodes)*2),
		byName: make(map[string]Country, len(supportedCodes)+len(aliases)),
	}

	for _, code := range supportedCodes {
		r := language.MustParseRegion(code)
		c := Country{
			Name:   namer.Name(r),
			Alpha2: r.String(),
			Alpha3: r.ISO3(),
		}
		d.byCode[c.Alpha2] = c
		d.byCode[c.Alpha3] = c
		d.byName[strings.ToLower(c.Name)] = c
		d.all = append(d.all, c)
	}
	for alias, code := range aliases {
		if c, ok := d.byCode[code]; ok {
			d.byName[alias] = c
		}
	}

	sort.Slice(d.all, func(i, j int) bool { return d.all[i].Name < d.all[j].Name })
	return d
}

// Lookup resolves a country name, ISO alpha-2 or ISO alpha-3 code.
func Lookup(token string) (Country, bool) {
	t := strings.TrimSpace(token)
	if t == "" {
		return Country{}, false
	}
	if c, ok := dict.byName[strings.ToLower(t)]; ok {
		return c, true
	}
	if len(t) == 2 || len(t) == 3 {
		if c, ok := dict.byCode[strings.ToUpper(t)]; ok {
			return c, true
		}
	}
	return Country{}, false
}

// Code returns the ISO alpha-2 code for a token.
func Code(token string) (string, bool) {
	c, ok := Lookup(token)
	return c.Alpha2, ok
}

// StandardName returns the canonical English name for a token.
func StandardName(token string) (string, bool) {
	c, ok := Lookup(token)
	return c.Name, ok
}

// All returns the supported countries sorted by name.
func All() []Country {
	out := make([]Country, len(dict.all))
	copy(out, dict.all)
	return out
}

// Validate resolves every token. Any unsupported token fails the whole set
// so that no query is issued for a partially valid request.
func Validate(tokens []string) ([]Country, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no countries given", model.ErrInvalidRegion)
	}

	resolved := make([]Country, 0, len(tokens))
	var invalid []string
	for _, token := range tokens {
		c, ok := Lookup(token)
		if !ok {
			invalid = append(invalid, token)
			continue
		}
		resolved = append(resolved, c)
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("Invalid country: %s: %w", strings.Join(invalid, ", "), model.ErrInvalidRegion) //nolint:stylecheck // message is shown to users verbatim
	}
	return resolved, nil
}
