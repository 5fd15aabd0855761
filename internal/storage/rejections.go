package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/osm-powerplants/internal/model"
)

// SaveRejections stores the rejection records of a run.
// Rings are not persisted; only the center is kept.
func (s *SQLiteStorage) SaveRejections(ctx context.Context, runID string, records []model.RejectionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}
	if err := validateRejections(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var base int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) + 1 FROM rejections WHERE run_id = ?`, runID).Scan(&base); err != nil {
		return fmt.Errorf("failed to read rejection sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rejections (run_id, seq, element_id, element_type, region, reason, keyword, lat, lon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		var lat, lon sql.NullFloat64
		if r.Center != nil {
			lat = sql.NullFloat64{Float64: r.Center.Lat, Valid: true}
			lon = sql.NullFloat64{Float64: r.Center.Lon, Valid: true}
		}
		_, err := stmt.ExecContext(ctx, runID, base+i, r.ElementID, string(r.ElementKind), r.Region,
			r.Reason.String(), r.Keyword, lat, lon)
		if err != nil {
			return fmt.Errorf("failed to insert rejection for %s: %w", r.ElementID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRejections returns the rejection records of a run in the order they were saved.
func (s *SQLiteStorage) GetRejections(ctx context.Context, runID string) ([]model.RejectionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT element_id, element_type, region, reason, keyword, lat, lon
		FROM rejections WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rejections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.RejectionRecord
	for rows.Next() {
		var (
			r        model.RejectionRecord
			kind     string
			reason   string
			keyword  sql.NullString
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&r.ElementID, &kind, &r.Region, &reason, &keyword, &lat, &lon); err != nil {
			return nil, fmt.Errorf("failed to scan rejection: %w", err)
		}
		parsed, err := model.ParseRejectionReason(reason)
		if err != nil {
			return nil, fmt.Errorf("rejection %s: %w", r.ElementID, err)
		}
		r.Reason = parsed
		r.ElementKind = model.ElementKind(kind)
		r.Keyword = keyword.String
		if lat.Valid && lon.Valid {
			r.Center = &model.LatLon{Lat: lat.Float64, Lon: lon.Float64}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RejectionCounts returns the number of rejections per reason for a run.
// Reasons with no rejections are omitted.
func (s *SQLiteStorage) RejectionCounts(ctx context.Context, runID string) (map[model.RejectionReason]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT reason, COUNT(*) FROM rejections WHERE run_id = ? GROUP BY reason
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rejection counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.RejectionReason]int)
	for rows.Next() {
		var (
			reason string
			count  int
		)
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("failed to scan rejection count: %w", err)
		}
		parsed, err := model.ParseRejectionReason(reason)
		if err != nil {
			return nil, err
		}
		counts[parsed] = count
	}
	return counts, rows.Err()
}
