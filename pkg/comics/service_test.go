package comics

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/migrations"
	"github.com/tankobonapp/tankobon/pkg/models"
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

func createLibrary(t *testing.T, db *bun.DB) *models.Library {
	t.Helper()

	library := &models.Library{Name: "Test Library"}
	_, err := db.NewInsert().Model(library).Returning("*").Exec(context.Background())
	require.NoError(t, err)

	return library
}

func createFolder(t *testing.T, db *bun.DB, libraryID int, path string) *models.Folder {
	t.Helper()

	folder := &models.Folder{LibraryID: libraryID, Name: path, Path: path}
	_, err := db.NewInsert().Model(folder).Returning("*").Exec(context.Background())
	require.NoError(t, err)

	return folder
}

func TestCreateAndRetrieveComic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db)
	library := createLibrary(t, db)
	folder := createFolder(t, db, library.ID, "saga")

	comic := &models.Comic{
		LibraryID:   library.ID,
		FolderID:    &folder.ID,
		Fingerprint: "abc123",
		Path:        "saga/saga-1.cbz",
		PageCount:   24,
		Type:        models.ComicTypeComic,
		ReadStatus:  models.ReadStatusUnread,
		Title:       pointerutil.String("Saga #1"),
		Creators: []*models.ComicCreator{
			{Role: models.CreatorRoleWriter, Name: "Brian K. Vaughan"},
			{Role: models.CreatorRolePenciller, Name: "Fiona Staples"},
		},
	}
	err := svc.CreateComic(ctx, comic)
	require.NoError(t, err)
	require.NotZero(t, comic.ID)

	retrieved, err := svc.RetrieveComic(ctx, RetrieveComicOptions{ID: &comic.ID})
	require.NoError(t, err)
	assert.Equal(t, "saga/saga-1.cbz", retrieved.Path)
	assert.Equal(t, "Saga #1", *retrieved.Title)
	require.Len(t, retrieved.Creators, 2)
	assert.Equal(t, "Brian K. Vaughan", retrieved.Creators[0].Name)
	assert.Equal(t, 0, retrieved.Creators[0].SortOrder)
	assert.Equal(t, "Fiona Staples", retrieved.Creators[1].Name)

	t.Run("by fingerprint", func(tt *testing.T) {
		found, err := svc.RetrieveComic(ctx, RetrieveComicOptions{
			LibraryID:   &library.ID,
			Fingerprint: pointerutil.String("abc123"),
		})
		require.NoError(tt, err)
		assert.Equal(tt, comic.ID, found.ID)
	})

	t.Run("not found", func(tt *testing.T) {
		missing := 999
		_, err := svc.RetrieveComic(ctx, RetrieveComicOptions{ID: &missing})
		assert.ErrorIs(tt, err, errcodes.NotFound("Comic"))
	})
}

func TestListComicsFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db)
	library := createLibrary(t, db)
	folder := createFolder(t, db, library.ID, "saga")

	seed := []*models.Comic{
		{LibraryID: library.ID, FolderID: &folder.ID, Fingerprint: "fp1", Path: "saga/saga-1.cbz", Type: models.ComicTypeComic, ReadStatus: models.ReadStatusRead, Series: pointerutil.String("Saga")},
		{LibraryID: library.ID, FolderID: &folder.ID, Fingerprint: "fp2", Path: "saga/saga-2.cbz", Type: models.ComicTypeComic, ReadStatus: models.ReadStatusUnread, Series: pointerutil.String("Saga")},
		{LibraryID: library.ID, FolderID: &folder.ID, Fingerprint: "fp3", Path: "saga/akira-1.cbz", Type: models.ComicTypeManga, ReadStatus: models.ReadStatusUnread, Series: pointerutil.String("Akira")},
	}
	for _, comic := range seed {
		require.NoError(t, svc.CreateComic(ctx, comic))
	}

	t.Run("orders by path", func(tt *testing.T) {
		comics, total, err := svc.ListComicsWithTotal(ctx, ListComicsOptions{LibraryID: &library.ID})
		require.NoError(tt, err)
		assert.Equal(tt, 3, total)
		require.Len(tt, comics, 3)
		assert.Equal(tt, "saga/akira-1.cbz", comics[0].Path)
		assert.Equal(tt, "saga/saga-1.cbz", comics[1].Path)
	})

	t.Run("filters by series", func(tt *testing.T) {
		comics, err := svc.ListComics(ctx, ListComicsOptions{Series: pointerutil.String("Saga")})
		require.NoError(tt, err)
		assert.Len(tt, comics, 2)
	})

	t.Run("filters by type and read status", func(tt *testing.T) {
		comics, err := svc.ListComics(ctx, ListComicsOptions{
			Type:       pointerutil.String(models.ComicTypeManga),
			ReadStatus: pointerutil.String(models.ReadStatusUnread),
		})
		require.NoError(tt, err)
		require.Len(tt, comics, 1)
		assert.Equal(tt, "saga/akira-1.cbz", comics[0].Path)
	})

	t.Run("paginates", func(tt *testing.T) {
		comics, total, err := svc.ListComicsWithTotal(ctx, ListComicsOptions{
			LibraryID: &library.ID,
			Limit:     pointerutil.Int(2),
			Offset:    pointerutil.Int(2),
		})
		require.NoError(tt, err)
		assert.Equal(tt, 3, total)
		assert.Len(tt, comics, 1)
	})
}

func TestMoveComicPreservesUserState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db)
	library := createLibrary(t, db)
	folder := createFolder(t, db, library.ID, "old")
	newFolder := createFolder(t, db, library.ID, "new")

	comic := &models.Comic{
		LibraryID:   library.ID,
		FolderID:    &folder.ID,
		Fingerprint: "fp1",
		Path:        "old/book.cbz",
		ReadStatus:  models.ReadStatusOpened,
		CurrentPage: 7,
		Rating:      pointerutil.Int(4),
	}
	require.NoError(t, svc.CreateComic(ctx, comic))

	err := svc.MoveComic(ctx, comic, &newFolder.ID, "new/book.cbz")
	require.NoError(t, err)

	moved, err := svc.RetrieveComic(ctx, RetrieveComicOptions{ID: &comic.ID})
	require.NoError(t, err)
	assert.Equal(t, "new/book.cbz", moved.Path)
	require.NotNil(t, moved.FolderID)
	assert.Equal(t, newFolder.ID, *moved.FolderID)
	assert.Equal(t, models.ReadStatusOpened, moved.ReadStatus)
	assert.Equal(t, 7, moved.CurrentPage)
	require.NotNil(t, moved.Rating)
	assert.Equal(t, 4, *moved.Rating)
}

func TestDeleteComicCascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db)
	library := createLibrary(t, db)
	folder := createFolder(t, db, library.ID, "saga")

	comic := &models.Comic{
		LibraryID:   library.ID,
		FolderID:    &folder.ID,
		Fingerprint: "fp1",
		Path:        "saga/book.cbz",
		Creators:    []*models.ComicCreator{{Role: models.CreatorRoleWriter, Name: "Someone"}},
	}
	require.NoError(t, svc.CreateComic(ctx, comic))

	label := &models.Label{LibraryID: library.ID, Name: "favorites", Color: models.LabelColorYellow}
	_, err := db.NewInsert().Model(label).Returning("*").Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.ComicLabel{LabelID: label.ID, ComicID: comic.ID}).Exec(ctx)
	require.NoError(t, err)

	err = svc.DeleteComic(ctx, comic.ID)
	require.NoError(t, err)

	_, err = svc.RetrieveComic(ctx, RetrieveComicOptions{ID: &comic.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Comic"))

	creatorCount, err := db.NewSelect().Model((*models.ComicCreator)(nil)).Where("comic_id = ?", comic.ID).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, creatorCount)

	labelCount, err := db.NewSelect().Model((*models.ComicLabel)(nil)).Where("comic_id = ?", comic.ID).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, labelCount)
}

func TestUpdateComicReplacesCreators(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db)
	library := createLibrary(t, db)
	folder := createFolder(t, db, library.ID, "saga")

	comic := &models.Comic{
		LibraryID:   library.ID,
		FolderID:    &folder.ID,
		Fingerprint: "fp1",
		Path:        "saga/book.cbz",
		Creators: []*models.ComicCreator{
			{Role: models.CreatorRoleWriter, Name: "Old Writer"},
		},
	}
	require.NoError(t, svc.CreateComic(ctx, comic))

	comic.Creators = []*models.ComicCreator{
		{Role: models.CreatorRoleWriter, Name: "New Writer"},
		{Role: models.CreatorRoleInker, Name: "New Inker"},
	}
	err := svc.UpdateComic(ctx, comic, UpdateComicOptions{UpdateCreators: true})
	require.NoError(t, err)

	updated, err := svc.RetrieveComic(ctx, RetrieveComicOptions{ID: &comic.ID})
	require.NoError(t, err)
	require.Len(t, updated.Creators, 2)
	assert.Equal(t, "New Writer", updated.Creators[0].Name)
	assert.Equal(t, "New Inker", updated.Creators[1].Name)
}

func TestApplyMetadataBatchCollectsConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db)
	library := createLibrary(t, db)

	seed := []*models.Comic{
		{LibraryID: library.ID, Fingerprint: "fp1", Path: "a.cbz"},
		{LibraryID: library.ID, Fingerprint: "fp2", Path: "b.cbz"},
		{LibraryID: library.ID, Fingerprint: "fp3", Path: "c.cbz"},
	}
	for _, comic := range seed {
		require.NoError(t, svc.CreateComic(ctx, comic))
	}

	updates := make([]MetadataUpdate, 0, len(seed)+1)
	for i, comic := range seed {
		updates = append(updates, MetadataUpdate{
			ComicID:           comic.ID,
			ExpectedUpdatedAt: comic.UpdatedAt,
			Title:             pointerutil.String(fmt.Sprintf("Issue %d", i+1)),
		})
	}
	updates = append(updates, MetadataUpdate{ComicID: 999})

	// Two of the three get edited after the batch was prepared.
	time.Sleep(5 * time.Millisecond)
	for _, comic := range seed[1:] {
		comic.Rating = pointerutil.Int(3)
		require.NoError(t, svc.UpdateComic(ctx, comic, UpdateComicOptions{Columns: []string{"rating"}}))
	}

	err := svc.ApplyMetadataBatch(ctx, updates)
	require.Error(t, err)

	// Every stale or missing comic is named, not just the first.
	conflict := &ConflictError{}
	require.True(t, errors.As(err, &conflict))
	assert.ElementsMatch(t, []int{seed[1].ID, seed[2].ID, 999}, conflict.ComicIDs)

	// The batch rolled back wholesale, including the clean comic.
	got, err := svc.RetrieveComic(ctx, RetrieveComicOptions{ID: &seed[0].ID})
	require.NoError(t, err)
	assert.Nil(t, got.Title)
}
