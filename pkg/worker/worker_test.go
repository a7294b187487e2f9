package worker

import (
	"context"
	"database/sql"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/require"
	"github.com/tankobonapp/tankobon/pkg/comics"
	"github.com/tankobonapp/tankobon/pkg/config"
	"github.com/tankobonapp/tankobon/pkg/jobs"
	"github.com/tankobonapp/tankobon/pkg/libraries"
	"github.com/tankobonapp/tankobon/pkg/migrations"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// testContext holds the dependencies needed for testing the worker.
type testContext struct {
	t              *testing.T
	ctx            context.Context
	db             *bun.DB
	worker         *Worker
	comicService   *comics.Service
	libraryService *libraries.Service
	jobService     *jobs.Service
}

// newTestContext creates a test context with an in-memory SQLite database
// and all necessary services initialized.
func newTestContext(t *testing.T) *testContext {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	cfg := &config.Config{
		ConfigDirectory: t.TempDir(),
		ScanWorkers:     2,
		WorkerProcesses: 1,
	}
	w := New(cfg, db)

	ctx := logger.New().WithContext(context.Background())

	return &testContext{
		t:              t,
		ctx:            ctx,
		db:             db,
		worker:         w,
		comicService:   w.comicService,
		libraryService: w.libraryService,
		jobService:     w.jobService,
	}
}

// createLibrary inserts a library with the given roots as its paths.
func (tc *testContext) createLibrary(roots []string) *models.Library {
	tc.t.Helper()

	library := &models.Library{
		Name:         "Test Library",
		LibraryPaths: make([]*models.LibraryPath, 0, len(roots)),
	}
	for _, root := range roots {
		library.LibraryPaths = append(library.LibraryPaths, &models.LibraryPath{Filepath: root})
	}

	err := tc.libraryService.CreateLibrary(tc.ctx, library)
	require.NoError(tc.t, err)

	return library
}

// createSyncJob inserts a pending sync job for the library.
func (tc *testContext) createSyncJob(libraryID int) *models.Job {
	tc.t.Helper()

	job := &models.Job{
		Type:       models.JobTypeLibrarySync,
		Status:     models.JobStatusPending,
		LibraryID:  &libraryID,
		DataParsed: &models.JobLibrarySyncData{},
	}
	err := tc.jobService.CreateJob(tc.ctx, job)
	require.NoError(tc.t, err)

	return job
}
