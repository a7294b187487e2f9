package worker

import (
	"context"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobonapp/tankobon/pkg/libraries"
	"github.com/tankobonapp/tankobon/pkg/models"
)

// schedulerCheckInterval is how often the scheduler re-reads the user config
// and decides whether libraries are due for a sync. Config edits take effect
// without a restart.
const schedulerCheckInterval = time.Minute

// scheduleJobs enqueues a sync job for every library on the configured
// interval. Libraries with a sync already pending or running are skipped.
func (w *Worker) scheduleJobs() {
	timer := time.NewTimer(schedulerCheckInterval)
	lastRun := time.Now()

	for {
		select {
		case <-w.shutdown:
			w.doneScheduling <- struct{}{}
			return
		case <-timer.C:
			userConfig, err := w.config.LoadUserConfig()
			if err != nil {
				w.log.Err(err).Error("load user config error")
				timer.Reset(schedulerCheckInterval)
				continue
			}

			interval := time.Duration(userConfig.SyncIntervalMinutes) * time.Minute
			if !userConfig.UpdateLibrariesPeriodically || interval <= 0 || time.Since(lastRun) < interval {
				timer.Reset(schedulerCheckInterval)
				continue
			}

			if err := w.enqueueSyncJobs(context.Background()); err != nil {
				w.log.Err(err).Error("enqueue sync jobs error")
			} else {
				lastRun = time.Now()
			}
			timer.Reset(schedulerCheckInterval)
		}
	}
}

func (w *Worker) enqueueSyncJobs(ctx context.Context) error {
	libs, err := w.libraryService.ListLibraries(ctx, libraries.ListLibrariesOptions{})
	if err != nil {
		return err
	}

	for _, library := range libs {
		active, err := w.jobService.HasActiveJob(ctx, models.JobTypeLibrarySync, &library.ID)
		if err != nil {
			return err
		}
		if active {
			continue
		}

		job := &models.Job{
			Type:       models.JobTypeLibrarySync,
			Status:     models.JobStatusPending,
			LibraryID:  &library.ID,
			DataParsed: &models.JobLibrarySyncData{},
		}
		if err := w.jobService.CreateJob(ctx, job); err != nil {
			return err
		}
		w.log.Info("scheduled library sync", logger.Data{"library_id": library.ID})
	}

	return nil
}
