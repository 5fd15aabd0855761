package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/Veraticus/osm-powerplants/internal/service"
	"github.com/google/uuid"
)

// Run is a stored processing run.
type Run struct {
	StartedAt     time.Time
	FinishedAt    *time.Time
	ID            string
	Fingerprint   string
	Regions       []string
	NetworkCalls  int64
	CacheHits     int64
	FailedRegions int
}

// BeginRun records the start of a run and returns its ID.
func (s *SQLiteStorage) BeginRun(ctx context.Context, fingerprint string, regions []string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(fingerprint, "fingerprint"); err != nil {
		return "", err
	}
	if regions == nil {
		regions = []string{}
	}

	encoded, err := json.Marshal(regions)
	if err != nil {
		return "", fmt.Errorf("failed to encode regions: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, fingerprint, regions, started_at)
		VALUES (?, ?, ?, ?)
	`, id, fingerprint, string(encoded), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run complete and stores its counters.
func (s *SQLiteStorage) FinishRun(ctx context.Context, runID string, stats service.RunStats) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, network_calls = ?, cache_hits = ?, failed_regions = ?
		WHERE id = ?
	`, time.Now().UTC(), stats.NetworkCalls, stats.CacheHits, stats.FailedRegions, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s: %w", runID, common.ErrNotFound)
	}
	return nil
}

// GetRun returns one run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, regions, started_at, finished_at, network_calls, cache_hits, failed_regions
		FROM runs WHERE id = ?
	`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero returns all runs.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, fingerprint, regions, started_at, finished_at, network_calls, cache_hits, failed_regions
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		regions    string
		finishedAt sql.NullTime
	)
	if err := row.Scan(&run.ID, &run.Fingerprint, &regions, &run.StartedAt, &finishedAt,
		&run.NetworkCalls, &run.CacheHits, &run.FailedRegions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(regions), &run.Regions); err != nil {
		return nil, fmt.Errorf("failed to decode regions for run %s: %w", run.ID, err)
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
