package updater

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobonapp/tankobon/internal/testgen"
	"github.com/tankobonapp/tankobon/pkg/comics"
	"github.com/tankobonapp/tankobon/pkg/crawler"
	"github.com/tankobonapp/tankobon/pkg/folders"
	"github.com/tankobonapp/tankobon/pkg/labels"
	"github.com/tankobonapp/tankobon/pkg/migrations"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/tankobonapp/tankobon/pkg/reconciler"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createLibrary(t *testing.T, db *bun.DB, root string) *models.Library {
	t.Helper()

	library := &models.Library{Name: "Test Library"}
	_, err := db.NewInsert().Model(library).Returning("*").Exec(context.Background())
	require.NoError(t, err)

	path := &models.LibraryPath{LibraryID: library.ID, Filepath: root}
	_, err = db.NewInsert().Model(path).Returning("*").Exec(context.Background())
	require.NoError(t, err)

	return library
}

// syncOnce runs a full crawl-reconcile-apply cycle the way the worker does.
func syncOnce(t *testing.T, db *bun.DB, u *Updater, library *models.Library, root string) (*reconciler.ChangeSet, *Report) {
	t.Helper()
	ctx := context.Background()

	stored, err := comics.NewService(db).ListComics(ctx, comics.ListComicsOptions{LibraryID: &library.ID})
	require.NoError(t, err)

	crawl, err := crawler.Crawl(ctx, root)
	require.NoError(t, err)

	cs := reconciler.Reconcile(stored, crawl)
	report, err := u.Apply(ctx, library.ID, cs, nil)
	require.NoError(t, err)

	return cs, report
}

func TestApplyCreations(t *testing.T) {
	db := newTestDB(t)
	root := testgen.TempLibraryDir(t)
	library := createLibrary(t, db, root)
	u := New(db, Options{ScanWorkers: 2, ImportComicInfo: true})

	seriesDir := testgen.CreateSubDir(t, root, "Saga")
	testgen.GenerateCBZ(t, seriesDir, "saga-1.cbz", testgen.CBZOptions{
		PageCount:    4,
		HasComicInfo: true,
		Title:        "Chapter One",
		Series:       "Saga",
		Number:       "1",
		Writer:       "Brian K. Vaughan",
		Manga:        false,
	})
	testgen.GenerateCBZ(t, root, "one-shot.cbz", testgen.CBZOptions{PageCount: 2})

	_, report := syncOnce(t, db, u, library, root)

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 2, report.Applied())
	assert.Empty(t, report.Errors)

	ctx := context.Background()
	comicService := comics.NewService(db)

	comic, err := comicService.RetrieveComic(ctx, comics.RetrieveComicOptions{
		LibraryID: &library.ID,
		Path:      testgen.StringPtr("Saga/saga-1.cbz"),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, comic.PageCount)
	assert.NotEmpty(t, comic.Fingerprint)
	assert.Equal(t, models.ReadStatusUnread, comic.ReadStatus)
	require.NotNil(t, comic.Title)
	assert.Equal(t, "Chapter One", *comic.Title)
	require.NotNil(t, comic.Series)
	assert.Equal(t, "Saga", *comic.Series)
	require.NotNil(t, comic.MetadataSource)
	assert.Equal(t, models.MetadataSourceComicInfo, *comic.MetadataSource)
	require.Len(t, comic.Creators, 1)
	assert.Equal(t, "Brian K. Vaughan", comic.Creators[0].Name)

	// The folder chain was materialized.
	folder, err := folders.NewService(db).RetrieveFolder(ctx, folders.RetrieveFolderOptions{
		LibraryID: &library.ID,
		Path:      testgen.StringPtr("Saga"),
	})
	require.NoError(t, err)
	require.NotNil(t, comic.FolderID)
	assert.Equal(t, folder.ID, *comic.FolderID)

	// Root comics carry no folder.
	oneShot, err := comicService.RetrieveComic(ctx, comics.RetrieveComicOptions{
		LibraryID: &library.ID,
		Path:      testgen.StringPtr("one-shot.cbz"),
	})
	require.NoError(t, err)
	assert.Nil(t, oneShot.FolderID)
}

func TestApplyWarnsOnDuplicateContent(t *testing.T) {
	db := newTestDB(t)
	root := testgen.TempLibraryDir(t)
	library := createLibrary(t, db, root)
	u := New(db, Options{})

	first := testgen.GenerateCBZ(t, root, "a.cbz", testgen.CBZOptions{PageCount: 3})
	testgen.WriteFile(t, root, "b.cbz", testgen.ReadFile(t, first))

	_, report := syncOnce(t, db, u, library, root)
	assert.Equal(t, 2, report.Created)

	// Both copies get rows; the extra one is called out.
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "duplicate content")
	assert.Contains(t, report.Warnings[0], "b.cbz")
}

func TestApplyIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	root := testgen.TempLibraryDir(t)
	library := createLibrary(t, db, root)
	u := New(db, Options{})

	testgen.GenerateCBZ(t, root, "a.cbz", testgen.CBZOptions{PageCount: 3})
	testgen.GenerateCBZ(t, root, "b.cbz", testgen.CBZOptions{PageCount: 3})

	_, report := syncOnce(t, db, u, library, root)
	assert.Equal(t, 2, report.Created)

	cs, report := syncOnce(t, db, u, library, root)
	assert.True(t, cs.Empty())
	assert.Zero(t, report.Applied())
}

func TestApplyMovePreservesUserState(t *testing.T) {
	db := newTestDB(t)
	root := testgen.TempLibraryDir(t)
	library := createLibrary(t, db, root)
	u := New(db, Options{})
	ctx := context.Background()

	testgen.GenerateCBZ(t, root, "issue-1.cbz", testgen.CBZOptions{PageCount: 10})
	syncOnce(t, db, u, library, root)

	comicService := comics.NewService(db)
	comic, err := comicService.RetrieveComic(ctx, comics.RetrieveComicOptions{
		LibraryID: &library.ID,
		Path:      testgen.StringPtr("issue-1.cbz"),
	})
	require.NoError(t, err)

	// Simulate reading progress and a label.
	rating := 5
	comic.ReadStatus = models.ReadStatusOpened
	comic.CurrentPage = 7
	comic.Rating = &rating
	err = comicService.UpdateComic(ctx, comic, comics.UpdateComicOptions{
		Columns: []string{"read_status", "current_page", "rating"},
	})
	require.NoError(t, err)

	labelService := labels.NewService(db)
	label := &models.Label{LibraryID: library.ID, Name: "Favorites", Color: models.LabelColorRed}
	require.NoError(t, labelService.CreateLabel(ctx, label))
	require.NoError(t, labelService.AddComicToLabel(ctx, label.ID, comic.ID))

	// Move the file into a subdirectory under a new name.
	sub := testgen.CreateSubDir(t, root, "Read Pile")
	require.NoError(t, os.Rename(filepath.Join(root, "issue-1.cbz"), filepath.Join(sub, "renamed.cbz")))

	cs, report := syncOnce(t, db, u, library, root)
	require.Len(t, cs.Moves, 1)
	assert.Equal(t, 1, report.Moved)

	moved, err := comicService.RetrieveComic(ctx, comics.RetrieveComicOptions{ID: &comic.ID})
	require.NoError(t, err)
	assert.Equal(t, "Read Pile/renamed.cbz", moved.Path)
	assert.Equal(t, models.ReadStatusOpened, moved.ReadStatus)
	assert.Equal(t, 7, moved.CurrentPage)
	require.NotNil(t, moved.Rating)
	assert.Equal(t, 5, *moved.Rating)

	labeled, err := labelService.ListComicsForLabel(ctx, label.ID)
	require.NoError(t, err)
	require.Len(t, labeled, 1)
	assert.Equal(t, comic.ID, labeled[0].ID)
}

func TestApplyModificationClampsCurrentPage(t *testing.T) {
	db := newTestDB(t)
	root := testgen.TempLibraryDir(t)
	library := createLibrary(t, db, root)
	u := New(db, Options{})
	ctx := context.Background()

	testgen.GenerateCBZ(t, root, "issue.cbz", testgen.CBZOptions{PageCount: 10})
	syncOnce(t, db, u, library, root)

	comicService := comics.NewService(db)
	comic, err := comicService.RetrieveComic(ctx, comics.RetrieveComicOptions{
		LibraryID: &library.ID,
		Path:      testgen.StringPtr("issue.cbz"),
	})
	require.NoError(t, err)
	oldFingerprint := comic.Fingerprint

	comic.CurrentPage = 9
	err = comicService.UpdateComic(ctx, comic, comics.UpdateComicOptions{Columns: []string{"current_page"}})
	require.NoError(t, err)

	// Replace in place with a shorter archive.
	testgen.GenerateCBZ(t, root, "issue.cbz", testgen.CBZOptions{PageCount: 4, ImageFormat: "jpeg"})

	cs, report := syncOnce(t, db, u, library, root)
	require.Len(t, cs.Modifications, 1)
	assert.Equal(t, 1, report.Modified)

	updated, err := comicService.RetrieveComic(ctx, comics.RetrieveComicOptions{ID: &comic.ID})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.PageCount)
	assert.Equal(t, 3, updated.CurrentPage)
	assert.NotEqual(t, oldFingerprint, updated.Fingerprint)
}

func TestApplyDeletionPrunesEmptyFolders(t *testing.T) {
	db := newTestDB(t)
	root := testgen.TempLibraryDir(t)
	library := createLibrary(t, db, root)
	u := New(db, Options{})
	ctx := context.Background()

	seriesDir := testgen.CreateSubDir(t, root, "Ended Series")
	path := testgen.GenerateCBZ(t, seriesDir, "final-issue.cbz", testgen.CBZOptions{PageCount: 3})
	syncOnce(t, db, u, library, root)

	folderService := folders.NewService(db)
	_, err := folderService.RetrieveFolder(ctx, folders.RetrieveFolderOptions{
		LibraryID: &library.ID,
		Path:      testgen.StringPtr("Ended Series"),
	})
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	_, report := syncOnce(t, db, u, library, root)
	assert.Equal(t, 1, report.Deleted)

	_, err = folderService.RetrieveFolder(ctx, folders.RetrieveFolderOptions{
		LibraryID: &library.ID,
		Path:      testgen.StringPtr("Ended Series"),
	})
	require.Error(t, err)
}

func TestApplyKeepsManualFolders(t *testing.T) {
	db := newTestDB(t)
	root := testgen.TempLibraryDir(t)
	library := createLibrary(t, db, root)
	u := New(db, Options{})
	ctx := context.Background()

	folderService := folders.NewService(db)
	manual := &models.Folder{
		LibraryID:       library.ID,
		Name:            "Wishlist",
		Path:            "Wishlist",
		ManuallyCreated: true,
	}
	require.NoError(t, folderService.CreateFolder(ctx, manual))

	syncOnce(t, db, u, library, root)

	kept, err := folderService.RetrieveFolder(ctx, folders.RetrieveFolderOptions{ID: &manual.ID})
	require.NoError(t, err)
	assert.Equal(t, "Wishlist", kept.Name)
}

func TestApplyCorruptArchiveRecordsScanError(t *testing.T) {
	db := newTestDB(t)
	root := testgen.TempLibraryDir(t)
	library := createLibrary(t, db, root)
	u := New(db, Options{})
	ctx := context.Background()

	testgen.WriteFile(t, root, "broken.cbz", []byte("this is not a zip archive at all"))

	_, report := syncOnce(t, db, u, library, root)
	assert.Equal(t, 1, report.Created)

	comic, err := comics.NewService(db).RetrieveComic(ctx, comics.RetrieveComicOptions{
		LibraryID: &library.ID,
		Path:      testgen.StringPtr("broken.cbz"),
	})
	require.NoError(t, err)
	assert.Zero(t, comic.PageCount)
	require.NotNil(t, comic.ScanError)
	assert.NotEmpty(t, *comic.ScanError)
}

func TestApplyCancellationStopsBetweenUnits(t *testing.T) {
	db := newTestDB(t)
	root := testgen.TempLibraryDir(t)
	library := createLibrary(t, db, root)
	u := New(db, Options{})
	ctx := context.Background()

	for _, name := range []string{"a.cbz", "b.cbz", "c.cbz"} {
		testgen.GenerateCBZ(t, root, name, testgen.CBZOptions{PageCount: 2})
	}

	stored, err := comics.NewService(db).ListComics(ctx, comics.ListComicsOptions{LibraryID: &library.ID})
	require.NoError(t, err)
	crawl, err := crawler.Crawl(ctx, root)
	require.NoError(t, err)
	cs := reconciler.Reconcile(stored, crawl)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	report, err := u.Apply(cancelled, library.ID, cs, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Applied())
	assert.Equal(t, 3, report.Skipped)

	// The next run picks the work back up.
	_, report = syncOnce(t, db, u, library, root)
	assert.Equal(t, 3, report.Created)
}

func TestApplyReportsProgress(t *testing.T) {
	db := newTestDB(t)
	root := testgen.TempLibraryDir(t)
	library := createLibrary(t, db, root)
	u := New(db, Options{})
	ctx := context.Background()

	for _, name := range []string{"a.cbz", "b.cbz"} {
		testgen.GenerateCBZ(t, root, name, testgen.CBZOptions{PageCount: 2})
	}

	stored, err := comics.NewService(db).ListComics(ctx, comics.ListComicsOptions{LibraryID: &library.ID})
	require.NoError(t, err)
	crawl, err := crawler.Crawl(ctx, root)
	require.NoError(t, err)
	cs := reconciler.Reconcile(stored, crawl)

	updates := []Progress{}
	_, err = u.Apply(ctx, library.ID, cs, func(p Progress) {
		updates = append(updates, p)
	})
	require.NoError(t, err)

	require.Len(t, updates, 2)
	assert.Equal(t, 1, updates[0].Completed)
	assert.Equal(t, 2, updates[1].Completed)
	assert.Equal(t, 2, updates[0].Total)
	assert.NotEmpty(t, updates[0].CurrentPath)
}
