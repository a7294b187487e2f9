package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobonapp/tankobon/pkg/jobs"
	"github.com/tankobonapp/tankobon/pkg/models"
)

func TestEnqueueSyncJobsNoLibraries(t *testing.T) {
	tc := newTestContext(t)

	err := tc.worker.enqueueSyncJobs(tc.ctx)
	require.NoError(t, err)

	allJobs, err := tc.jobService.ListJobs(tc.ctx, jobs.ListJobsOptions{})
	require.NoError(t, err)
	assert.Empty(t, allJobs)
}

func TestEnqueueSyncJobsCreatesJobPerLibrary(t *testing.T) {
	tc := newTestContext(t)

	first := tc.createLibrary([]string{t.TempDir()})
	second := tc.createLibrary([]string{t.TempDir()})

	err := tc.worker.enqueueSyncJobs(tc.ctx)
	require.NoError(t, err)

	allJobs, err := tc.jobService.ListJobs(tc.ctx, jobs.ListJobsOptions{})
	require.NoError(t, err)
	require.Len(t, allJobs, 2)

	libraryIDs := []int{}
	for _, job := range allJobs {
		assert.Equal(t, models.JobTypeLibrarySync, job.Type)
		assert.Equal(t, models.JobStatusPending, job.Status)
		require.NotNil(t, job.LibraryID)
		libraryIDs = append(libraryIDs, *job.LibraryID)
	}
	assert.ElementsMatch(t, []int{first.ID, second.ID}, libraryIDs)
}

func TestEnqueueSyncJobsSkipsActiveLibraries(t *testing.T) {
	tc := newTestContext(t)

	busy := tc.createLibrary([]string{t.TempDir()})
	idle := tc.createLibrary([]string{t.TempDir()})

	tc.createSyncJob(busy.ID)

	err := tc.worker.enqueueSyncJobs(tc.ctx)
	require.NoError(t, err)

	busyJobs, err := tc.jobService.ListJobs(tc.ctx, jobs.ListJobsOptions{LibraryID: &busy.ID})
	require.NoError(t, err)
	assert.Len(t, busyJobs, 1)

	idleJobs, err := tc.jobService.ListJobs(tc.ctx, jobs.ListJobsOptions{LibraryID: &idle.ID})
	require.NoError(t, err)
	assert.Len(t, idleJobs, 1)
}

func TestEnqueueSyncJobsIgnoresTerminalJobs(t *testing.T) {
	tc := newTestContext(t)

	library := tc.createLibrary([]string{t.TempDir()})

	done := tc.createSyncJob(library.ID)
	done.Status = models.JobStatusCompleted
	err := tc.jobService.UpdateJob(tc.ctx, done, jobs.UpdateJobOptions{Columns: []string{"status"}})
	require.NoError(t, err)

	err = tc.worker.enqueueSyncJobs(tc.ctx)
	require.NoError(t, err)

	allJobs, err := tc.jobService.ListJobs(tc.ctx, jobs.ListJobsOptions{LibraryID: &library.ID})
	require.NoError(t, err)
	assert.Len(t, allJobs, 2)
}
