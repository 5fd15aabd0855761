// Package normalize turns raw power element tags into canonical unit
// attributes: capacity in megawatts, fuel type, technology and set type.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	basicCapacityRe = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*MW\s*$`)

	// The number may not start inside a digit group. A group form such as
	// "1 000" or "12,500.5" is tried before a plain decimal like "1,5".
	advancedCapacityRe = regexp.MustCompile(`(?i)(?:^|[^\d.,])(?:(\d{1,3}(?:[ ,]\d{3})+(?:\.\d+)?)|(\d+(?:[.,]\d+)?))\s*([kmg]w)(p)?\b`)
)

// Capacity is a parsed capacity value.
type Capacity struct {
	// Unit is the unit token as matched, upper-cased without the peak suffix.
	Unit      string
	Megawatts float64
	// Peak is set when the value carried a trailing "p".
	Peak bool
}

// ParseCapacity parses a capacity tag value into megawatts.
//
// Basic mode only accepts "<number> MW". Advanced mode accepts kW, MW and
// GW anywhere in the text, an optional peak suffix, space or comma
// thousands separators ("1 000 MW", "1,000 MW") and a comma as decimal
// separator otherwise ("1,5 MW"). Text that matches neither returns false;
// it is never an error.
func ParseCapacity(text string, advanced bool) (Capacity, bool) {
	if !advanced {
		m := basicCapacityRe.FindStringSubmatch(text)
		if m == nil {
			return Capacity{}, false
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Capacity{}, false
		}
		return Capacity{Megawatts: v, Unit: "MW"}, true
	}

	m := advancedCapacityRe.FindStringSubmatch(text)
	if m == nil {
		return Capacity{}, false
	}

	number := strings.NewReplacer(" ", "", ",", "").Replace(m[1])
	if m[1] == "" {
		number = strings.Replace(m[2], ",", ".", 1)
	}
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return Capacity{}, false
	}

	unit := strings.ToUpper(m[3][:1]) + "W"
	switch unit {
	case "KW":
		unit = "kW"
		v /= 1000
	case "GW":
		v *= 1000
	}

	return Capacity{Megawatts: v, Unit: unit, Peak: m[4] != ""}, true
}
