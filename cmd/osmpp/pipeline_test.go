package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/config"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maltaResponse = `{
  "elements": [
    {"type": "node", "id": 1, "lat": 35.9, "lon": 14.4,
     "tags": {"power": "plant", "plant:source": "solar", "plant:method": "photovoltaic",
              "plant:output:electricity": "10 MW", "name": "Sun Farm"}},
    {"type": "node", "id": 2, "lat": 35.8, "lon": 14.5,
     "tags": {"power": "plant", "name": "Mystery"}}
  ]
}`

func newTestPipeline(t *testing.T) (*pipeline, *atomic.Int64) {
	t.Helper()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(maltaResponse))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default().WithOverrides(func(c *config.Config) {
		c.CacheDir = t.TempDir()
		c.Overpass.Endpoint = srv.URL
		c.Overpass.Timeout = time.Minute
		c.Overpass.RequestsPerMinute = 6000
	})

	p, err := newPipeline(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, &calls
}

func TestPipeline_RunAndFinish(t *testing.T) {
	ctx := context.Background()
	p, calls := newTestPipeline(t)
	dir := t.TempDir()

	opts := outputOptions{
		CSV:           filepath.Join(dir, "units.csv"),
		GeoJSON:       filepath.Join(dir, "units.geojson"),
		RejectionsDir: filepath.Join(dir, "rejected"),
		Database:      filepath.Join(dir, "runs.db"),
		TopKeywords:   3,
		NoProgress:    true,
	}
	regions := []model.Region{model.CountryRegion("Malta", "MT")}

	result, err := p.run(ctx, regions, opts)
	require.NoError(t, err)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 1, result.UnitCount())
	assert.Equal(t, int64(1), calls.Load())

	var out bytes.Buffer
	require.NoError(t, p.finish(ctx, &out, regions, result, opts, time.Now()))

	csv, err := os.ReadFile(opts.CSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Sun Farm")
	assert.Contains(t, lines[1], "Solar")

	assert.FileExists(t, opts.GeoJSON)
	assert.FileExists(t, filepath.Join(opts.RejectionsDir, "rejections.csv"))
	assert.FileExists(t, filepath.Join(opts.RejectionsDir, "rejections.geojson"))
	assert.FileExists(t, filepath.Join(opts.RejectionsDir, "rejected_missing-source-tag.geojson"))

	store, err := initStorage(ctx, opts.Database)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"Malta"}, runs[0].Regions)
	assert.Equal(t, int64(1), runs[0].NetworkCalls)

	units, err := store.GetUnits(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "Sun Farm", *units[0].Name)

	counts, err := store.RejectionCounts(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, map[model.RejectionReason]int{model.ReasonMissingSourceTag: 1}, counts)

	summary := out.String()
	assert.Contains(t, summary, "Processing Complete")
	assert.Contains(t, summary, "Missing source tag")
	assert.Contains(t, summary, runs[0].ID)
}

func TestPipeline_SecondRunUsesCache(t *testing.T) {
	ctx := context.Background()
	p, calls := newTestPipeline(t)
	regions := []model.Region{model.CountryRegion("Malta", "MT")}
	opts := outputOptions{NoProgress: true}

	_, err := p.run(ctx, regions, opts)
	require.NoError(t, err)

	again := &pipeline{
		cfg:     p.cfg,
		store:   p.store,
		client:  p.client,
		tracker: p.tracker,
		units:   model.NewUnits(),
	}
	result, err := again.run(ctx, regions, opts)
	require.NoError(t, err)
	require.Len(t, result.Regions, 1)
	assert.True(t, result.Regions[0].FromCache)
	assert.Equal(t, int64(1), calls.Load())
}
