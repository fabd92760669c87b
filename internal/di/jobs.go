// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/config"
	"github.com/cryptofolio/cryptofolio/internal/scheduler"
)

// databaseHealthSchedule runs the integrity and WAL checks hourly
const databaseHealthSchedule = "@hourly"

// RegisterJobs creates all jobs and registers them with the scheduler.
// An empty schedule in cfg leaves that job available for manual runs only.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{}

	jobLog := log.With().Str("component", "jobs").Logger()

	// Job 1: Price preload (re-primes the cache, then requests a valuation)
	preload := scheduler.NewPreloadPricesJob(container.PriceCache, container.ValuationService, container.EventManager)
	preload.SetLogger(jobLog)
	instances.PreloadPrices = preload

	// Job 2: Catalog sync
	syncCatalog := scheduler.NewSyncCatalogJob(container.CatalogService, container.EventManager)
	syncCatalog.SetLogger(jobLog)
	instances.SyncCatalog = syncCatalog

	// Job 3: Database integrity
	checkCore := scheduler.NewCheckCoreDatabasesJob(container.LedgerDB, container.CatalogDB)
	checkCore.SetLogger(jobLog)
	instances.CheckCoreDatabases = checkCore

	// Job 4: WAL growth
	checkWAL := scheduler.NewCheckWALCheckpointsJob(container.LedgerDB, container.CatalogDB)
	checkWAL.SetLogger(jobLog)
	instances.CheckWALCheckpoints = checkWAL

	schedules := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.PreloadSchedule, preload},
		{cfg.CatalogSchedule, syncCatalog},
		{databaseHealthSchedule, checkCore},
		{databaseHealthSchedule, checkWAL},
	}
	for _, s := range schedules {
		if s.schedule == "" {
			log.Info().Str("job", s.job.Name()).Msg("Job has no schedule, manual trigger only")
			continue
		}
		if err := container.Scheduler.AddJob(s.schedule, s.job); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", s.job.Name(), err)
		}
	}

	log.Info().Int("jobs", container.Scheduler.JobCount()).Msg("Jobs registered")

	return instances, nil
}
