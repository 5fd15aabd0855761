package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/Veraticus/osm-powerplants/internal/service"
	"github.com/Veraticus/osm-powerplants/internal/storage"
	"github.com/Veraticus/osm-powerplants/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "runs.db")
		store, err := storage.NewSQLiteStorage(path)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		assert.Equal(t, path, store.Path())
		require.NoError(t, store.Migrate(context.Background()))
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := storage.NewSQLiteStorage("  ")
		assert.ErrorIs(t, err, storage.ErrEmptyString)
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Storage.Migrate(context.Background()))
	require.NoError(t, db.Storage.Migrate(context.Background()))
}

func TestMigrate_NilContext(t *testing.T) {
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{SkipMigrations: true})
	//nolint:staticcheck // exercising nil context validation
	err := db.Storage.Migrate(nil)
	assert.ErrorIs(t, err, storage.ErrNilContext)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	first := db.MustBeginRun("abc123", "MT", "Cyprus")
	second := db.MustBeginRun("def456")
	assert.NotEqual(t, first, second)

	run, err := db.Storage.GetRun(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "abc123", run.Fingerprint)
	assert.Equal(t, []string{"MT", "Cyprus"}, run.Regions)
	assert.Nil(t, run.FinishedAt)
	assert.False(t, run.StartedAt.IsZero())

	require.NoError(t, db.Storage.FinishRun(ctx, first, service.RunStats{
		NetworkCalls:  2,
		CacheHits:     5,
		FailedRegions: 1,
	}))

	run, err = db.Storage.GetRun(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, int64(2), run.NetworkCalls)
	assert.Equal(t, int64(5), run.CacheHits)
	assert.Equal(t, 1, run.FailedRegions)

	runs, err := db.Storage.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Empty(t, runs[0].Regions)

	limited, err := db.Storage.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRuns_Errors(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	_, err := db.Storage.BeginRun(ctx, "", nil)
	assert.ErrorIs(t, err, storage.ErrEmptyString)

	_, err = db.Storage.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = db.Storage.FinishRun(ctx, "missing", service.RunStats{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUnits_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	runID := db.MustBeginRun("abc123", "MT")

	units := []model.Unit{
		{
			ProjectID:  "OSM_n1_abc12345",
			Country:    "Malta",
			Name:       ptr("Sun Farm"),
			Lat:        ptr(35.9),
			Lon:        ptr(14.4),
			Fueltype:   ptr("Solar"),
			Technology: ptr("PV"),
			Set:        ptr(model.SetProduction),
			Capacity:   ptr(10.0),
			DateIn:     ptr(2015),
			Source:     model.SourceOSM,
		},
		{
			ProjectID: "OSM_w2_abc12345",
			Country:   "Malta",
			Fueltype:  ptr("Wind"),
			Source:    model.SourceOSM,
		},
	}
	require.NoError(t, db.Storage.SaveUnits(ctx, runID, units))

	got, err := db.Storage.GetUnits(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, units, got)

	t.Run("appends in save order", func(t *testing.T) {
		more := []model.Unit{{ProjectID: "OSM_r3_abc12345", Country: "Malta", Source: model.SourceOSM}}
		require.NoError(t, db.Storage.SaveUnits(ctx, runID, more))

		got, err := db.Storage.GetUnits(ctx, runID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "OSM_r3_abc12345", got[2].ProjectID)
	})

	t.Run("duplicate project ID fails atomically", func(t *testing.T) {
		dup := []model.Unit{
			{ProjectID: "OSM_n9_abc12345", Country: "Malta", Source: model.SourceOSM},
			{ProjectID: "OSM_n1_abc12345", Country: "Malta", Source: model.SourceOSM},
		}
		require.Error(t, db.Storage.SaveUnits(ctx, runID, dup))

		got, err := db.Storage.GetUnits(ctx, runID)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("other runs are isolated", func(t *testing.T) {
		other := db.MustBeginRun("def456", "CY")
		got, err := db.Storage.GetUnits(ctx, other)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestUnits_Validation(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	runID := db.MustBeginRun("abc123")

	tests := []struct {
		name  string
		runID string
		units []model.Unit
		want  error
	}{
		{name: "empty run ID", runID: "", want: storage.ErrEmptyString},
		{
			name:  "missing project ID",
			runID: runID,
			units: []model.Unit{{Country: "Malta"}},
			want:  storage.ErrInvalidUnit,
		},
		{
			name:  "missing country",
			runID: runID,
			units: []model.Unit{{ProjectID: "OSM_n1_x"}},
			want:  storage.ErrInvalidUnit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.Storage.SaveUnits(ctx, tt.runID, tt.units)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("unknown run", func(t *testing.T) {
		err := db.Storage.SaveUnits(ctx, "no-such-run", []model.Unit{{ProjectID: "OSM_n1_x", Country: "Malta"}})
		assert.Error(t, err)
	})

	t.Run("empty slice is a no-op", func(t *testing.T) {
		assert.NoError(t, db.Storage.SaveUnits(ctx, runID, nil))
	})
}

func TestRejections(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	runID := db.MustBeginRun("abc123", "MT")

	records := []model.RejectionRecord{
		{
			ElementID:   "1",
			ElementKind: model.KindNode,
			Region:      "Malta",
			Reason:      model.ReasonCapacityZero,
			Keyword:     "0 MW",
			Center:      &model.LatLon{Lat: 35.9, Lon: 14.4},
			Ring:        []model.LatLon{{Lat: 35.9, Lon: 14.4}},
		},
		{
			ElementID:   "2",
			ElementKind: model.KindWay,
			Region:      "Malta",
			Reason:      model.ReasonCapacityZero,
		},
		{
			ElementID:   "3",
			ElementKind: model.KindRelation,
			Region:      "Malta",
			Reason:      model.ReasonUnknownSource,
			Keyword:     "antimatter",
		},
	}
	require.NoError(t, db.Storage.SaveRejections(ctx, runID, records))

	counts, err := db.Storage.RejectionCounts(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, map[model.RejectionReason]int{
		model.ReasonCapacityZero:  2,
		model.ReasonUnknownSource: 1,
	}, counts)

	got, err := db.Storage.GetRejections(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "0 MW", got[0].Keyword)
	assert.Equal(t, &model.LatLon{Lat: 35.9, Lon: 14.4}, got[0].Center)
	assert.Nil(t, got[0].Ring)
	assert.Nil(t, got[1].Center)
	assert.Equal(t, model.KindRelation, got[2].ElementKind)
	assert.Equal(t, model.ReasonUnknownSource, got[2].Reason)

	t.Run("invalid reason", func(t *testing.T) {
		err := db.Storage.SaveRejections(ctx, runID, []model.RejectionRecord{{ElementID: "9"}})
		assert.ErrorIs(t, err, storage.ErrInvalidRejection)
	})

	t.Run("missing element ID", func(t *testing.T) {
		err := db.Storage.SaveRejections(ctx, runID, []model.RejectionRecord{{Reason: model.ReasonMissingName}})
		assert.ErrorIs(t, err, storage.ErrInvalidRejection)
	})
}
