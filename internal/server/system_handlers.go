package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/cryptofolio/cryptofolio/internal/database"
	"github.com/cryptofolio/cryptofolio/internal/scheduler"
)

// PriceStats is the read-only view of the price cache shown in status
type PriceStats interface {
	Len() int
	LastPreload() time.Time
}

// SystemHandlers contains HTTP handlers for system endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases []*database.DB
	prices    PriceStats
	startedAt time.Time

	preloadPricesJob       scheduler.Job
	syncCatalogJob         scheduler.Job
	checkCoreDatabasesJob  scheduler.Job
	checkWALCheckpointsJob scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases []*database.DB, prices PriceStats) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		databases: databases,
		prices:    prices,
		startedAt: time.Now(),
	}
}

// SetJobs registers job instances for manual triggering via API
func (h *SystemHandlers) SetJobs(preloadPrices, syncCatalog, checkCoreDatabases, checkWALCheckpoints scheduler.Job) {
	h.preloadPricesJob = preloadPrices
	h.syncCatalogJob = syncCatalog
	h.checkCoreDatabasesJob = checkCoreDatabases
	h.checkWALCheckpointsJob = checkWALCheckpoints
}

// DatabaseStatus is the health of one database
type DatabaseStatus struct {
	Name    string          `json:"name"`
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status        string           `json:"status"` // "healthy" or "degraded"
	UptimeSeconds int64            `json:"uptime_seconds"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	CachedPrices  int              `json:"cached_prices"`
	LastPreload   *time.Time       `json:"last_preload,omitempty"`
	Databases     []DatabaseStatus `json:"databases"`
}

// DiskUsageResponse represents disk usage of the data directory
type DiskUsageResponse struct {
	DataDir   string  `json:"data_dir"`
	DataDirMB float64 `json:"data_dir_mb"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cpuPercent, memPercent := h.getSystemStats()
	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Databases:     h.databaseStatuses(ctx),
	}

	if h.prices != nil {
		response.CachedPrices = h.prices.Len()
		if last := h.prices.LastPreload(); !last.IsZero() {
			response.LastPreload = &last
		}
	}

	for _, db := range response.Databases {
		if !db.Healthy {
			response.Status = "degraded"
			break
		}
	}

	h.writeJSON(w, response)
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	stats := make(map[string]*database.Stats)
	for _, db := range h.databases {
		if db == nil {
			continue
		}
		s, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}
		stats[db.Name()] = s
	}

	h.writeJSON(w, stats)
}

// HandleDiskUsage handles GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	h.writeJSON(w, DiskUsageResponse{
		DataDir:   h.dataDir,
		DataDirMB: h.getDirSize(h.dataDir),
	})
}

// HandleTriggerPreloadPrices handles POST /api/system/jobs/preload-prices
func (h *SystemHandlers) HandleTriggerPreloadPrices(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, h.preloadPricesJob, "Preload prices")
}

// HandleTriggerSyncCatalog handles POST /api/system/jobs/sync-catalog
func (h *SystemHandlers) HandleTriggerSyncCatalog(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, h.syncCatalogJob, "Sync catalog")
}

// HandleTriggerCheckCoreDatabases handles POST /api/system/jobs/check-core-databases
func (h *SystemHandlers) HandleTriggerCheckCoreDatabases(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, h.checkCoreDatabasesJob, "Check core databases")
}

// HandleTriggerCheckWALCheckpoints handles POST /api/system/jobs/check-wal-checkpoints
func (h *SystemHandlers) HandleTriggerCheckWALCheckpoints(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, h.checkWALCheckpointsJob, "Check WAL checkpoints")
}

// runJob runs job synchronously and reports the outcome
func (h *SystemHandlers) runJob(w http.ResponseWriter, job scheduler.Job, label string) {
	if job == nil {
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": label + " job not registered",
		})
		return
	}

	h.log.Info().Str("job", job.Name()).Msg("Manual job triggered")
	if err := job.Run(); err != nil {
		h.log.Error().Err(err).Str("job", job.Name()).Msg("Manual job failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"message": label + " completed successfully",
	})
}

func (h *SystemHandlers) databaseStatuses(ctx context.Context) []DatabaseStatus {
	statuses := make([]DatabaseStatus, 0, len(h.databases))
	for _, db := range h.databases {
		if db == nil {
			continue
		}

		status := DatabaseStatus{Name: db.Name(), Healthy: true}
		if err := db.HealthCheck(ctx); err != nil {
			status.Healthy = false
			status.Error = err.Error()
		} else if stats, err := db.GetStats(); err == nil {
			status.Stats = stats
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short interval (100ms) so the status call stays fast
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
