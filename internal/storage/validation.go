// Package storage persists processing runs, their units and their
// rejections in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/osm-powerplants/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrInvalidUnit      = errors.New("invalid unit")
	ErrInvalidRejection = errors.New("invalid rejection")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateUnits validates a slice of units.
func validateUnits(units []model.Unit) error {
	for i, u := range units {
		if u.ProjectID == "" {
			return fmt.Errorf("unit at index %d: %w: missing project ID", i, ErrInvalidUnit)
		}
		if u.Country == "" {
			return fmt.Errorf("unit at index %d: %w: missing country", i, ErrInvalidUnit)
		}
	}
	return nil
}

// validateRejections validates a slice of rejection records.
func validateRejections(records []model.RejectionRecord) error {
	for i, r := range records {
		if r.ElementID == "" {
			return fmt.Errorf("rejection at index %d: %w: missing element ID", i, ErrInvalidRejection)
		}
		if !r.Reason.Valid() {
			return fmt.Errorf("rejection at index %d: %w: unknown reason %d", i, ErrInvalidRejection, int(r.Reason))
		}
	}
	return nil
}
