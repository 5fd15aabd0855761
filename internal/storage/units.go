package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/osm-powerplants/internal/model"
)

// SaveUnits stores the units of a run in a single transaction.
func (s *SQLiteStorage) SaveUnits(ctx context.Context, runID string, units []model.Unit) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}
	if err := validateUnits(units); err != nil {
		return err
	}
	if len(units) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var base int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) + 1 FROM units WHERE run_id = ?`, runID).Scan(&base); err != nil {
		return fmt.Errorf("failed to read unit sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO units (run_id, seq, project_id, name, country, lat, lon,
			fueltype, technology, set_type, capacity, date_in, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, u := range units {
		_, err := stmt.ExecContext(ctx, runID, base+i, u.ProjectID, nullString(u.Name), u.Country,
			nullFloat(u.Lat), nullFloat(u.Lon), nullString(u.Fueltype), nullString(u.Technology),
			nullString(u.Set), nullFloat(u.Capacity), nullInt(u.DateIn), u.Source)
		if err != nil {
			return fmt.Errorf("failed to insert unit %s: %w", u.ProjectID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetUnits returns the units of a run in the order they were saved.
func (s *SQLiteStorage) GetUnits(ctx context.Context, runID string) ([]model.Unit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, name, country, lat, lon, fueltype, technology, set_type, capacity, date_in, source
		FROM units WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var units []model.Unit
	for rows.Next() {
		var (
			u                     model.Unit
			name, fuel, tech, set sql.NullString
			lat, lon, capacity    sql.NullFloat64
			dateIn                sql.NullInt64
		)
		if err := rows.Scan(&u.ProjectID, &name, &u.Country, &lat, &lon, &fuel, &tech, &set,
			&capacity, &dateIn, &u.Source); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		u.Name = stringPtr(name)
		u.Lat = floatPtr(lat)
		u.Lon = floatPtr(lon)
		u.Fueltype = stringPtr(fuel)
		u.Technology = stringPtr(tech)
		u.Set = stringPtr(set)
		u.Capacity = floatPtr(capacity)
		if dateIn.Valid {
			year := int(dateIn.Int64)
			u.DateIn = &year
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
