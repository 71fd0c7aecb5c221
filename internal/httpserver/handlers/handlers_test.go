package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stopwatch/internal/logger"
	"github.com/MrSnakeDoc/stopwatch/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/stopwatch/internal/store/redis"
)

type fakeDepartures struct {
	rows []domain.DepartureRow
	err  error
	got  string
}

func (f *fakeDepartures) Get(ctx context.Context, stopID string) ([]domain.DepartureRow, error) {
	f.got = stopID
	return f.rows, f.err
}

type fakePool int

func (p fakePool) Size() int { return int(p) }

type fakeCache []string

func (c fakeCache) Len() int              { return len(c) }
func (c fakeCache) Stops() []string       { return c }
func (c fakeCache) Window() time.Duration { return 300 * time.Second }

type fakeUsage struct {
	mu      sync.Mutex
	counts  map[string]int
	pingErr error
}

func (u *fakeUsage) IncrementStopUsage(ctx context.Context, stopID string, at time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.counts == nil {
		u.counts = map[string]int{}
	}
	u.counts[stopID]++
	return nil
}

func (u *fakeUsage) GetStopUsage(ctx context.Context, limit int) ([]redisstore.StopUsage, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := []redisstore.StopUsage{}
	for stop, n := range u.counts {
		out = append(out, redisstore.StopUsage{Stop: stop, Requests: int64(n)})
	}
	return out, nil
}

func (u *fakeUsage) Ping(ctx context.Context) error { return u.pingErr }

func testDeps() deps.Deps {
	return deps.Deps{
		Logger:        logger.New("error", false),
		StartTime:     time.Now(),
		Version:       "test",
		Departures:    &fakeDepartures{},
		Cache:         fakeCache{},
		Pool:          fakePool(0),
		MinProxies:    2,
		StdProxies:    4,
		RefillTrigger: make(chan struct{}, 1),
	}
}

func TestDepartures(t *testing.T) {
	rows := []domain.DepartureRow{{Line: "16", Direction: "Franowo", ETA: "3 min"}}

	tests := []struct {
		name       string
		query      string
		rows       []domain.DepartureRow
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "rows", query: "?stop=Rondo+Kaponiera", rows: rows, wantStatus: http.StatusOK, wantBody: `[["16","Franowo","3 min"]]`},
		{name: "no departures", query: "?stop=Garbary", wantStatus: http.StatusOK, wantBody: `[]`},
		{name: "missing stop", query: "", wantStatus: http.StatusBadRequest},
		{name: "blank stop", query: "?stop=%20%20", wantStatus: http.StatusBadRequest},
		{name: "no proxy", query: "?stop=A", err: fmt.Errorf("%w: last proxy failed", domain.ErrNoProxyAvailable), wantStatus: http.StatusServiceUnavailable},
		{name: "fetch failed", query: "?stop=A", err: fmt.Errorf("%w: parse", domain.ErrFetchFailed), wantStatus: http.StatusBadGateway},
		{name: "timeout", query: "?stop=A", err: fmt.Errorf("abandoned: %w", context.DeadlineExceeded), wantStatus: http.StatusGatewayTimeout},
		{name: "unknown", query: "?stop=A", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDeps()
			d.Departures = &fakeDepartures{rows: tt.rows, err: tt.err}

			w := httptest.NewRecorder()
			Departures(d)(w, httptest.NewRequest(http.MethodGet, "/departures"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			if tt.wantStatus >= 400 {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestDeparturesTrimsStopAndRecordsUsage(t *testing.T) {
	d := testDeps()
	f := &fakeDepartures{}
	usage := &fakeUsage{}
	d.Departures = f
	d.Usage = usage

	w := httptest.NewRecorder()
	Departures(d)(w, httptest.NewRequest(http.MethodGet, "/departures?stop=+Garbary+", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Garbary", f.got)
	assert.Equal(t, 1, usage.counts["Garbary"])
}

func TestDeparturesFailureRecordsNoUsage(t *testing.T) {
	d := testDeps()
	usage := &fakeUsage{}
	d.Departures = &fakeDepartures{err: domain.ErrNoProxyAvailable}
	d.Usage = usage

	w := httptest.NewRecorder()
	Departures(d)(w, httptest.NewRequest(http.MethodGet, "/departures?stop=Garbary", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, usage.counts)
}

func TestHello(t *testing.T) {
	w := httptest.NewRecorder()
	Hello()(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		wantStatus int
		wantReady  bool
	}{
		{name: "empty pool", size: 0, wantStatus: http.StatusServiceUnavailable},
		{name: "one proxy", size: 1, wantStatus: http.StatusOK, wantReady: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDeps()
			d.Pool = fakePool(tt.size)

			w := httptest.NewRecorder()
			Readyz(d)(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body readyzResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantReady, body.Ready)
			assert.Equal(t, tt.size, body.Proxies)
		})
	}
}

func TestRefill(t *testing.T) {
	d := testDeps()

	w := httptest.NewRecorder()
	Refill(d)(w, httptest.NewRequest(http.MethodPost, "/proxies/refill", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	// the trigger is still pending
	w = httptest.NewRecorder()
	Refill(d)(w, httptest.NewRequest(http.MethodPost, "/proxies/refill", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	<-d.RefillTrigger
	w = httptest.NewRecorder()
	Refill(d)(w, httptest.NewRequest(http.MethodPost, "/proxies/refill", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestHealthz(t *testing.T) {
	d := testDeps()

	w := httptest.NewRecorder()
	Healthz(d)(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"status":"ok"`))
	assert.True(t, strings.Contains(w.Body.String(), `"version":"test"`))
}

func TestInfra(t *testing.T) {
	refilledAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		pool       int
		usage      *fakeUsage
		wantStatus string
	}{
		{name: "no proxies", pool: 0, wantStatus: "critical"},
		{name: "under minimum", pool: 1, wantStatus: "degraded"},
		{name: "redis disabled", pool: 3, wantStatus: "optimal"},
		{name: "redis down", pool: 3, usage: &fakeUsage{pingErr: errors.New("down")}, wantStatus: "degraded"},
		{name: "redis up", pool: 3, usage: &fakeUsage{counts: map[string]int{"garbary": 4}}, wantStatus: "optimal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDeps()
			d.Pool = fakePool(tt.pool)
			d.Cache = fakeCache{"Garbary", "Rondo"}
			d.RefillStatus = func() scheduler.RefillStatus {
				return scheduler.RefillStatus{LastRun: refilledAt}
			}
			if tt.usage != nil {
				d.Usage = tt.usage
			}

			w := httptest.NewRecorder()
			Infra(d)(w, httptest.NewRequest(http.MethodGet, "/infra", nil))

			require.Equal(t, http.StatusOK, w.Code)
			var body infraResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

			assert.Equal(t, tt.wantStatus, body.Status)
			pool := body.Components["proxy_pool"]
			require.NotNil(t, pool.Size)
			assert.Equal(t, tt.pool, *pool.Size)
			assert.Equal(t, refilledAt.Format(time.RFC3339), pool.LastRefill)
			assert.Equal(t, []string{"Garbary", "Rondo"}, body.Components["departures"].CachedStops)
		})
	}
}
