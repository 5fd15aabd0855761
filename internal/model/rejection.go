package model

import (
	"fmt"
	"strings"
)

// RejectionReason is the fixed category explaining why a candidate was discarded.
type RejectionReason int

// Rejection reasons. The order here is the reporting order.
const (
	ReasonMissingSourceTag RejectionReason = iota + 1
	ReasonUnknownSource
	ReasonCapacityZero
	ReasonMissingName
	ReasonMissingTechnology
	ReasonUnresolvableGeometry
	ReasonDuplicateElement
)

// AllReasons returns every rejection reason in reporting order.
func AllReasons() []RejectionReason {
	return []RejectionReason{
		ReasonMissingSourceTag,
		ReasonUnknownSource,
		ReasonCapacityZero,
		ReasonMissingName,
		ReasonMissingTechnology,
		ReasonUnresolvableGeometry,
		ReasonDuplicateElement,
	}
}

// Label returns the stable human-readable label.
func (r RejectionReason) Label() string {
	switch r {
	case ReasonMissingSourceTag:
		return "Missing source tag"
	case ReasonUnknownSource:
		return "Unknown source"
	case ReasonCapacityZero:
		return "Capacity zero"
	case ReasonMissingName:
		return "Missing name"
	case ReasonMissingTechnology:
		return "Missing technology"
	case ReasonUnresolvableGeometry:
		return "Unresolvable geometry"
	case ReasonDuplicateElement:
		return "Duplicate element"
	}
	return fmt.Sprintf("RejectionReason(%d)", int(r))
}

// String returns the slug form, e.g. "capacity-zero".
func (r RejectionReason) String() string {
	switch r {
	case ReasonMissingSourceTag:
		return "missing-source-tag"
	case ReasonUnknownSource:
		return "unknown-source"
	case ReasonCapacityZero:
		return "capacity-zero"
	case ReasonMissingName:
		return "missing-name"
	case ReasonMissingTechnology:
		return "missing-technology"
	case ReasonUnresolvableGeometry:
		return "unresolvable-geometry"
	case ReasonDuplicateElement:
		return "duplicate-element"
	}
	return fmt.Sprintf("reason-%d", int(r))
}

// Valid reports whether r is one of the defined reasons.
func (r RejectionReason) Valid() bool {
	return r >= ReasonMissingSourceTag && r <= ReasonDuplicateElement
}

// MarshalText serializes the reason as its label.
func (r RejectionReason) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rejection reason %d", int(r))
	}
	return []byte(r.Label()), nil
}

// UnmarshalText accepts either the label or the slug.
func (r *RejectionReason) UnmarshalText(text []byte) error {
	parsed, err := ParseRejectionReason(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRejectionReason resolves a label or slug to a reason.
func ParseRejectionReason(s string) (RejectionReason, error) {
	s = strings.TrimSpace(s)
	for _, r := range AllReasons() {
		if strings.EqualFold(s, r.Label()) || strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rejection reason %q", s)
}

// RejectionRecord is one discarded candidate.
type RejectionRecord struct {
	Center      *LatLon
	ElementID   string
	ElementKind ElementKind
	Region      string
	Keyword     string
	Ring        []LatLon
	Reason      RejectionReason
}
