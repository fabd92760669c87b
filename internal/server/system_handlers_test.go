package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptofolio/cryptofolio/internal/database"
)

type stubPriceStats struct {
	n    int
	last time.Time
}

func (s stubPriceStats) Len() int               { return s.n }
func (s stubPriceStats) LastPreload() time.Time { return s.last }

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

func (j *stubJob) Name() string { return j.name }

func newTestDatabase(t *testing.T, dir, name string) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(dir, name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	dir := t.TempDir()
	ledgerDB := newTestDatabase(t, dir, "ledger")
	catalogDB := newTestDatabase(t, dir, "catalog")
	preloadedAt := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	h := NewSystemHandlers(zerolog.Nop(), dir, []*database.DB{ledgerDB, catalogDB}, stubPriceStats{n: 1000, last: preloadedAt})

	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response SystemStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, 1000, response.CachedPrices)
	require.NotNil(t, response.LastPreload)
	assert.True(t, preloadedAt.Equal(*response.LastPreload))
	require.Len(t, response.Databases, 2)
	assert.Equal(t, "ledger", response.Databases[0].Name)
	assert.True(t, response.Databases[0].Healthy)
	assert.NotNil(t, response.Databases[0].Stats)
}

func TestSystemHandlers_HandleSystemStatus_Degraded(t *testing.T) {
	dir := t.TempDir()
	ledgerDB := newTestDatabase(t, dir, "ledger")
	require.NoError(t, ledgerDB.Close())

	h := NewSystemHandlers(zerolog.Nop(), dir, []*database.DB{ledgerDB}, stubPriceStats{})

	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	var response SystemStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "degraded", response.Status)
	assert.Nil(t, response.LastPreload)
	require.Len(t, response.Databases, 1)
	assert.False(t, response.Databases[0].Healthy)
	assert.NotEmpty(t, response.Databases[0].Error)
}

func TestSystemHandlers_HandleDatabaseStats(t *testing.T) {
	dir := t.TempDir()
	h := NewSystemHandlers(zerolog.Nop(), dir, []*database.DB{newTestDatabase(t, dir, "ledger"), nil}, nil)

	rec := httptest.NewRecorder()
	h.HandleDatabaseStats(rec, httptest.NewRequest(http.MethodGet, "/api/system/database/stats", nil))

	var response map[string]database.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Contains(t, response, "ledger")
	assert.Greater(t, response["ledger"].PageSize, int64(0))
}

func TestSystemHandlers_HandleDiskUsage(t *testing.T) {
	dir := t.TempDir()
	newTestDatabase(t, dir, "ledger")
	h := NewSystemHandlers(zerolog.Nop(), dir, nil, nil)

	rec := httptest.NewRecorder()
	h.HandleDiskUsage(rec, httptest.NewRequest(http.MethodGet, "/api/system/disk", nil))

	var response DiskUsageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, dir, response.DataDir)
	assert.Greater(t, response.DataDirMB, 0.0)
}

func TestSystemHandlers_JobTriggers(t *testing.T) {
	preload := &stubJob{name: "preload_prices"}
	syncCatalog := &stubJob{name: "sync_catalog", err: errors.New("rate limited")}

	h := NewSystemHandlers(zerolog.Nop(), t.TempDir(), nil, nil)
	h.SetJobs(preload, syncCatalog, nil, nil)

	t.Run("success", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleTriggerPreloadPrices(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, preload.runs)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "success", body["status"])
	})

	t.Run("job failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleTriggerSyncCatalog(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "rate limited")
	})

	t.Run("job not registered", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleTriggerCheckWALCheckpoints(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "error", body["status"])
	})
}
