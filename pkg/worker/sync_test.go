package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobonapp/tankobon/internal/testgen"
	"github.com/tankobonapp/tankobon/pkg/comics"
	"github.com/tankobonapp/tankobon/pkg/jobs"
	"github.com/tankobonapp/tankobon/pkg/models"
)

func TestProcessSyncJob(t *testing.T) {
	tc := newTestContext(t)
	root := testgen.TempLibraryDir(t)

	testgen.GenerateCBZ(t, root, "one.cbz", testgen.CBZOptions{PageCount: 3})
	testgen.GenerateCBZ(t, root, "two.cbz", testgen.CBZOptions{PageCount: 5})

	library := tc.createLibrary([]string{root})
	job := tc.createSyncJob(library.ID)

	err := tc.worker.ProcessSyncJob(tc.ctx, job)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)

	comicList, err := tc.comicService.ListComics(tc.ctx, comics.ListComicsOptions{
		LibraryID: &library.ID,
	})
	require.NoError(t, err)
	assert.Len(t, comicList, 2)

	// The persisted job row carries the final report.
	stored, err := tc.jobService.RetrieveJob(tc.ctx, jobs.RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	require.NoError(t, stored.UnmarshalData())
	data, ok := stored.DataParsed.(*models.JobLibrarySyncData)
	require.True(t, ok)
	require.NotNil(t, data.Report)
	assert.Equal(t, 2, data.Report.Applied)
	assert.Zero(t, data.Report.Skipped)
}

func TestProcessSyncJobIsIdempotent(t *testing.T) {
	tc := newTestContext(t)
	root := testgen.TempLibraryDir(t)

	testgen.GenerateCBZ(t, root, "one.cbz", testgen.CBZOptions{PageCount: 3})

	library := tc.createLibrary([]string{root})

	err := tc.worker.ProcessSyncJob(tc.ctx, tc.createSyncJob(library.ID))
	require.NoError(t, err)

	second := tc.createSyncJob(library.ID)
	err = tc.worker.ProcessSyncJob(tc.ctx, second)
	require.NoError(t, err)

	stored, err := tc.jobService.RetrieveJob(tc.ctx, jobs.RetrieveJobOptions{ID: &second.ID})
	require.NoError(t, err)
	require.NoError(t, stored.UnmarshalData())
	data := stored.DataParsed.(*models.JobLibrarySyncData)
	require.NotNil(t, data.Report)
	assert.Zero(t, data.Report.Applied)
}

func TestProcessSyncJobMultiplePaths(t *testing.T) {
	tc := newTestContext(t)
	rootA := testgen.TempLibraryDir(t)
	rootB := testgen.TempLibraryDir(t)

	dirA := testgen.CreateSubDir(t, rootA, "Saga")
	dirB := testgen.CreateSubDir(t, rootB, "Akira")
	testgen.GenerateCBZ(t, dirA, "saga-1.cbz", testgen.CBZOptions{PageCount: 3})
	testgen.GenerateCBZ(t, dirB, "akira-1.cbz", testgen.CBZOptions{PageCount: 5})

	library := tc.createLibrary([]string{rootA, rootB})

	err := tc.worker.ProcessSyncJob(tc.ctx, tc.createSyncJob(library.ID))
	require.NoError(t, err)

	comicList, err := tc.comicService.ListComics(tc.ctx, comics.ListComicsOptions{
		LibraryID: &library.ID,
	})
	require.NoError(t, err)
	assert.Len(t, comicList, 2)

	// A rerun must not treat one path's comics as deletions of the
	// other's; the whole library reconciles as one snapshot.
	second := tc.createSyncJob(library.ID)
	err = tc.worker.ProcessSyncJob(tc.ctx, second)
	require.NoError(t, err)

	stored, err := tc.jobService.RetrieveJob(tc.ctx, jobs.RetrieveJobOptions{ID: &second.ID})
	require.NoError(t, err)
	require.NoError(t, stored.UnmarshalData())
	data := stored.DataParsed.(*models.JobLibrarySyncData)
	require.NotNil(t, data.Report)
	assert.Zero(t, data.Report.Applied)

	comicList, err = tc.comicService.ListComics(tc.ctx, comics.ListComicsOptions{
		LibraryID: &library.ID,
	})
	require.NoError(t, err)
	assert.Len(t, comicList, 2)
}

func TestProcessSyncJobMissingLibrary(t *testing.T) {
	tc := newTestContext(t)

	missing := 999
	job := &models.Job{
		Type:       models.JobTypeLibrarySync,
		Status:     models.JobStatusPending,
		LibraryID:  &missing,
		DataParsed: &models.JobLibrarySyncData{},
	}
	err := tc.jobService.CreateJob(tc.ctx, job)
	require.NoError(t, err)

	err = tc.worker.ProcessSyncJob(tc.ctx, job)
	assert.Error(t, err)
}

func TestProcessSyncJobCancelled(t *testing.T) {
	tc := newTestContext(t)
	root := testgen.TempLibraryDir(t)

	testgen.GenerateCBZ(t, root, "one.cbz", testgen.CBZOptions{PageCount: 3})

	library := tc.createLibrary([]string{root})
	job := tc.createSyncJob(library.ID)

	ctx, cancel := context.WithCancel(tc.ctx)
	cancel()

	err := tc.worker.ProcessSyncJob(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, job.Status)

	// Nothing applied; a later run picks the work back up.
	comicList, err := tc.comicService.ListComics(tc.ctx, comics.ListComicsOptions{
		LibraryID: &library.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, comicList)
}

func TestProcessSyncJobSkipsWhenLibraryLocked(t *testing.T) {
	tc := newTestContext(t)
	root := testgen.TempLibraryDir(t)

	library := tc.createLibrary([]string{root})
	job := tc.createSyncJob(library.ID)
	job.Status = models.JobStatusInProgress
	job.ProcessID = &processID

	mu := tc.worker.lockForLibrary(library.ID)
	mu.Lock()
	defer mu.Unlock()

	err := tc.worker.ProcessSyncJob(tc.ctx, job)
	require.NoError(t, err)

	// The job is released back to the queue untouched.
	stored, err := tc.jobService.RetrieveJob(tc.ctx, jobs.RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, stored.Status)
	assert.Nil(t, stored.ProcessID)
}
