// Package service defines the contracts shared between the pipeline components.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/model"
)

// ElementFetcher retrieves raw map elements for a region.
type ElementFetcher interface {
	Fetch(ctx context.Context, region model.Region, downloadType model.DownloadType) (*model.ElementSet, error)
}

// RejectionRecorder accepts discarded candidates.
type RejectionRecorder interface {
	Record(record model.RejectionRecord)
}

// RunStats summarizes how a processing run went.
type RunStats struct {
	NetworkCalls  int64
	CacheHits     int64
	FailedRegions int
}

// RunStore persists the output of processing runs.
type RunStore interface {
	BeginRun(ctx context.Context, fingerprint string, regions []string) (string, error)
	SaveUnits(ctx context.Context, runID string, units []model.Unit) error
	SaveRejections(ctx context.Context, runID string, records []model.RejectionRecord) error
	FinishRun(ctx context.Context, runID string, stats RunStats) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions returns the backoff used for remote queries.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}
