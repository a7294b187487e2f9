package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobonapp/tankobon/pkg/comics"
	"github.com/tankobonapp/tankobon/pkg/crawler"
	"github.com/tankobonapp/tankobon/pkg/jobs"
	"github.com/tankobonapp/tankobon/pkg/libraries"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/tankobonapp/tankobon/pkg/reconciler"
	"github.com/tankobonapp/tankobon/pkg/updater"
)

// cancelPollInterval is how often a running sync re-reads its job row to
// notice a cancellation request.
const cancelPollInterval = 2 * time.Second

// ProcessSyncJob runs one full synchronization of a library: crawl every
// library path, reconcile against the snapshot store, and apply the
// changes. Progress and the final report persist on the job row.
func (w *Worker) ProcessSyncJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)

	if job.LibraryID == nil {
		return errors.New("sync job has no library")
	}

	library, err := w.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{
		ID: job.LibraryID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	mu := w.lockForLibrary(library.ID)
	if !mu.TryLock() {
		// Another process is already syncing this library; requeue by
		// leaving the job pending.
		log.Info("library sync already running; skipping", logger.Data{"library_id": library.ID})
		job.Status = models.JobStatusPending
		job.ProcessID = nil
		err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{
			Columns: []string{"status", "process_id"},
		})
		return errors.WithStack(err)
	}
	defer mu.Unlock()

	log.Info("processing sync job", logger.Data{"library_id": library.ID})

	// Cancellation comes in through the job row; poll it and cancel the
	// work context so the updater stops at the next unit boundary.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopPolling := w.watchForCancellation(ctx, cancel, job.ID)
	defer stopPolling()

	data := &models.JobLibrarySyncData{}
	job.DataParsed = data

	report := &models.JobSyncReport{}
	cancelled := false

	// The snapshot spans all of the library's paths, so every root is
	// crawled before anything reconciles. Diffing one path's crawl
	// against the whole library would classify every other path's
	// comics as deleted.
	crawls := make([]*crawler.Result, 0, len(library.LibraryPaths))
	for _, libraryPath := range library.LibraryPaths {
		log := log.Data(logger.Data{"library_path_id": libraryPath.ID, "library_path": libraryPath.Filepath})
		log.Info("crawling library path")

		crawl, err := crawler.Crawl(ctx, libraryPath.Filepath)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				cancelled = true
				break
			}
			return errors.WithStack(err)
		}
		crawls = append(crawls, crawl)
	}

	if !cancelled {
		stored, err := w.comicService.ListComics(ctx, comics.ListComicsOptions{
			LibraryID: &library.ID,
		})
		if err != nil {
			return errors.WithStack(err)
		}

		cs := reconciler.Reconcile(stored, crawler.Merge(crawls...))
		log.Info("reconciled library", logger.Data{
			"creations":     len(cs.Creations),
			"deletions":     len(cs.Deletions),
			"moves":         len(cs.Moves),
			"modifications": len(cs.Modifications),
			"unchanged":     cs.Unchanged,
		})

		syncReport, err := w.updater.Apply(ctx, library.ID, cs, func(p updater.Progress) {
			data.CurrentPath = p.CurrentPath
			data.UnitsCompleted = p.Completed
			data.UnitsTotal = p.Total

			percent := 0
			if p.Total > 0 {
				percent = p.Completed * 100 / p.Total
			}
			if saveErr := w.jobService.SaveProgress(ctx, job, percent); saveErr != nil {
				log.Err(saveErr).Warn("save progress error")
			}
		})
		if syncReport != nil {
			report.Applied += syncReport.Applied()
			report.Skipped += syncReport.Skipped
			report.Errors = append(report.Errors, syncReport.Errors...)
			report.Warnings = append(report.Warnings, syncReport.Warnings...)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				cancelled = true
			} else {
				return errors.WithStack(err)
			}
		}
	}

	// Persist the terminal state with a fresh context; ours may be
	// cancelled.
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()

	data.CurrentPath = ""
	data.Report = report
	if cancelled {
		job.Status = models.JobStatusCancelled
	} else {
		job.Status = models.JobStatusCompleted
		job.Progress = 100
	}

	if err := w.jobService.SaveProgress(saveCtx, job, job.Progress); err != nil {
		return errors.WithStack(err)
	}
	err = w.jobService.UpdateJob(saveCtx, job, jobs.UpdateJobOptions{
		Columns: []string{"status"},
	})
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("finished sync job", logger.Data{
		"applied":   report.Applied,
		"skipped":   report.Skipped,
		"errors":    len(report.Errors),
		"cancelled": cancelled,
	})
	return nil
}

// watchForCancellation polls the job row and cancels the work context when
// the job flips to cancelled. The returned func stops the poller.
func (w *Worker) watchForCancellation(ctx context.Context, cancel context.CancelFunc, jobID int) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(cancelPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				job, err := w.jobService.RetrieveJob(context.Background(), jobs.RetrieveJobOptions{ID: &jobID})
				if err != nil {
					continue
				}
				if job.Status == models.JobStatusCancelled {
					cancel()
					return
				}
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}
