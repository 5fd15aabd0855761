package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/cache"
	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/Veraticus/osm-powerplants/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "version": 0.6,
  "elements": [
    {"type": "node", "id": 1, "lat": 35.9, "lon": 14.4,
     "tags": {"power": "plant", "plant:source": "solar", "plant:output:electricity": "10 MW", "name": "Sun Farm"}},
    {"type": "way", "id": 2,
     "geometry": [{"lat": 35.0, "lon": 14.0}, {"lat": 35.0, "lon": 14.1}, {"lat": 35.1, "lon": 14.1}, {"lat": 35.0, "lon": 14.0}],
     "tags": {"power": "generator", "generator:source": "wind"}},
    {"type": "node", "id": 3, "lat": 35.5, "lon": 14.5, "tags": {"power": "substation"}}
  ]
}`

const otherPayload = `{"elements": [
  {"type": "node", "id": 9, "lat": 1, "lon": 2, "tags": {"power": "plant", "plant:source": "wind"}}
]}`

// overpassServer serves responses in order, repeating the last one.
type overpassServer struct {
	*httptest.Server
	calls     atomic.Int64
	responses []fakeResponse
}

type fakeResponse struct {
	body   string
	status int
}

func newOverpassServer(t *testing.T, responses ...fakeResponse) *overpassServer {
	t.Helper()
	s := &overpassServer{responses: responses}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(s.calls.Add(1)) - 1
		if n >= len(s.responses) {
			n = len(s.responses) - 1
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), "out geom;")

		resp := s.responses[n]
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	}))
	t.Cleanup(s.Close)
	return s
}

func okResponse(body string) fakeResponse { return fakeResponse{status: http.StatusOK, body: body} }

func fastRetry() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func newTestClient(t *testing.T, endpoint string, store cache.Store, forceRefresh bool) *Client {
	t.Helper()
	c := NewClient(Options{
		Endpoint:          endpoint,
		Timeout:           time.Minute,
		Retry:             fastRetry(),
		RequestsPerMinute: 6000,
		ForceRefresh:      forceRefresh,
	}, store)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newStore(t *testing.T) *cache.FileStore {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

var malta = model.CountryRegion("Malta", "MT")

func TestClient_FetchAndCache(t *testing.T) {
	ctx := context.Background()
	server := newOverpassServer(t, okResponse(samplePayload))
	store := newStore(t)

	client := newTestClient(t, server.URL, store, false)

	set, err := client.Fetch(ctx, malta, model.DownloadBoth)
	require.NoError(t, err)
	assert.False(t, set.FromCache)
	require.Len(t, set.Plants, 1)
	require.Len(t, set.Generators, 1)
	assert.Equal(t, "node/1", set.Plants[0].Key())
	assert.Len(t, set.Generators[0].Geometry, 4)
	assert.EqualValues(t, 1, client.Stats().NetworkCalls)
	assert.FileExists(t, store.Path(cache.Key(malta, model.DownloadBoth)))

	// A second client over the same cache makes no network calls.
	warm := newTestClient(t, server.URL, store, false)
	cached, err := warm.Fetch(ctx, malta, model.DownloadBoth)
	require.NoError(t, err)
	assert.True(t, cached.FromCache)
	assert.Equal(t, set.Plants, cached.Plants)
	assert.Equal(t, set.Generators, cached.Generators)
	assert.EqualValues(t, 0, warm.Stats().NetworkCalls)
	assert.EqualValues(t, 1, warm.Stats().CacheHits)
	assert.EqualValues(t, 1, server.calls.Load())
}

func TestClient_ForceRefresh(t *testing.T) {
	ctx := context.Background()
	server := newOverpassServer(t, okResponse(samplePayload), okResponse(otherPayload))
	store := newStore(t)

	_, err := newTestClient(t, server.URL, store, false).Fetch(ctx, malta, model.DownloadBoth)
	require.NoError(t, err)

	refresher := newTestClient(t, server.URL, store, true)
	set, err := refresher.Fetch(ctx, malta, model.DownloadBoth)
	require.NoError(t, err)
	assert.EqualValues(t, 1, refresher.Stats().NetworkCalls)
	require.Len(t, set.Plants, 1)
	assert.Equal(t, int64(9), set.Plants[0].ID)

	entry, err := store.Get(ctx, cache.Key(malta, model.DownloadBoth))
	require.NoError(t, err)
	assert.JSONEq(t, otherPayload, string(entry.Payload), "cache entry overwritten")
}

func TestClient_DownloadTypeFilters(t *testing.T) {
	server := newOverpassServer(t, okResponse(samplePayload))
	client := newTestClient(t, server.URL, newStore(t), false)

	set, err := client.Fetch(context.Background(), malta, model.DownloadPlants)
	require.NoError(t, err)
	assert.Len(t, set.Plants, 1)
	assert.Empty(t, set.Generators)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		wantErr   error
		responses []fakeResponse
		wantCalls int64
	}{
		{
			name:      "server error then success",
			responses: []fakeResponse{{status: http.StatusInternalServerError, body: "busy"}, okResponse(samplePayload)},
			wantCalls: 2,
		},
		{
			name: "runtime remark is retried",
			responses: []fakeResponse{
				okResponse(`{"elements": [], "remark": "runtime error: Query timed out in \"query\" at line 3 after 300 seconds."}`),
				okResponse(samplePayload),
			},
			wantCalls: 2,
		},
		{
			name:      "bad request is not retried",
			responses: []fakeResponse{{status: http.StatusBadRequest, body: "parse error"}},
			wantErr:   common.ErrFetchFailed,
			wantCalls: 1,
		},
		{
			name:      "malformed json is not retried",
			responses: []fakeResponse{okResponse(`<html>oops</html>`)},
			wantErr:   common.ErrMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "missing elements is malformed",
			responses: []fakeResponse{okResponse(`{"version": 0.6}`)},
			wantErr:   common.ErrMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "unknown element type is malformed",
			responses: []fakeResponse{okResponse(`{"elements": [{"type": "area", "id": 1}]}`)},
			wantErr:   common.ErrMalformedResponse,
			wantCalls: 1,
		},
		{
			name:      "rate limited until exhausted",
			responses: []fakeResponse{{status: http.StatusTooManyRequests, body: "slow down"}},
			wantErr:   common.ErrRateLimit,
			wantCalls: 3,
		},
		{
			name:      "persistent server error",
			responses: []fakeResponse{{status: http.StatusGatewayTimeout}},
			wantErr:   common.ErrMaxRetries,
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newOverpassServer(t, tt.responses...)
			store := newStore(t)
			client := newTestClient(t, server.URL, store, false)

			_, err := client.Fetch(context.Background(), malta, model.DownloadBoth)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrFetchFailed)
				assert.ErrorIs(t, err, tt.wantErr)

				_, getErr := store.Get(context.Background(), cache.Key(malta, model.DownloadBoth))
				assert.ErrorIs(t, getErr, common.ErrNotFound, "failures are never cached")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, server.calls.Load())
			assert.Equal(t, tt.wantCalls, client.Stats().NetworkCalls)
		})
	}
}

func TestClient_MalformedCacheEntryIsRefetched(t *testing.T) {
	ctx := context.Background()
	server := newOverpassServer(t, okResponse(samplePayload))
	store := newStore(t)

	key := cache.Key(malta, model.DownloadBoth)
	require.NoError(t, store.Put(ctx, &cache.Entry{Key: key, Payload: []byte(`{"unexpected": true}`)}))

	client := newTestClient(t, server.URL, store, false)
	set, err := client.Fetch(ctx, malta, model.DownloadBoth)
	require.NoError(t, err)
	assert.False(t, set.FromCache)
	assert.EqualValues(t, 1, client.Stats().NetworkCalls)
}

func TestClient_InvalidRegionMakesNoCall(t *testing.T) {
	server := newOverpassServer(t, okResponse(samplePayload))
	client := newTestClient(t, server.URL, newStore(t), false)

	_, err := client.Fetch(context.Background(), model.CountryRegion("Nowhere", "XYZ"), model.DownloadBoth)
	assert.ErrorIs(t, err, model.ErrInvalidRegion)
	assert.EqualValues(t, 0, server.calls.Load())
}

func TestClient_Close(t *testing.T) {
	server := newOverpassServer(t, okResponse(samplePayload))
	client := newTestClient(t, server.URL, newStore(t), false)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.Fetch(context.Background(), malta, model.DownloadBoth)
	assert.ErrorIs(t, err, common.ErrClientClosed)
	assert.EqualValues(t, 0, server.calls.Load())
}

func TestClient_ContextCanceled(t *testing.T) {
	server := newOverpassServer(t, fakeResponse{status: http.StatusServiceUnavailable})
	client := newTestClient(t, server.URL, newStore(t), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, malta, model.DownloadBoth)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
