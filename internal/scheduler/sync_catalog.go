package scheduler

import (
	"context"
	"fmt"
	"time"
)

// SyncCatalogJob refreshes the local coin catalog
type SyncCatalogJob struct {
	JobBase
	syncer  CatalogSyncer
	events  EventEmitter
	timeout time.Duration
}

// NewSyncCatalogJob creates a new SyncCatalogJob. emitter may be nil.
func NewSyncCatalogJob(syncer CatalogSyncer, emitter EventEmitter) *SyncCatalogJob {
	return &SyncCatalogJob{
		JobBase: newJobBase(),
		syncer:  syncer,
		events:  emitter,
		timeout: defaultJobTimeout,
	}
}

// Name returns the job name
func (j *SyncCatalogJob) Name() string {
	return "sync_catalog"
}

// Run executes the catalog sync
func (j *SyncCatalogJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.syncer.Sync(ctx)
	if err != nil {
		if j.events != nil {
			j.events.EmitError("catalog", err, map[string]interface{}{"job": j.Name()})
		}
		return fmt.Errorf("catalog sync failed: %w", err)
	}

	j.log.Info().Int("coins", n).Msg("Catalog sync job completed")
	return nil
}
