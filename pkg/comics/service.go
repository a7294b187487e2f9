package comics

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveComicOptions struct {
	ID          *int
	LibraryID   *int
	Fingerprint *string
	Path        *string
}

type ListComicsOptions struct {
	LibraryID   *int
	FolderID    *int
	Fingerprint *string
	ReadStatus  *string
	Type        *string
	Series      *string
	Limit       *int
	Offset      *int

	includeTotal bool
}

type UpdateComicOptions struct {
	Columns        []string
	UpdateCreators bool
}

// ConflictError reports that comics changed underneath a batched metadata
// write; the whole batch is rolled back when it occurs. ComicIDs holds
// every comic in the batch that was stale or missing, so callers can
// surface the full set of conflicts in one round trip.
type ConflictError struct {
	ComicIDs []int
}

func (e *ConflictError) Error() string {
	if len(e.ComicIDs) == 1 {
		return fmt.Sprintf("comic %d was modified since the batch was prepared", e.ComicIDs[0])
	}

	ids := make([]string, len(e.ComicIDs))
	for i, id := range e.ComicIDs {
		ids[i] = strconv.Itoa(id)
	}

	return fmt.Sprintf("comics %s were modified since the batch was prepared", strings.Join(ids, ", "))
}

// MetadataUpdate is one comic's share of an atomic metadata batch. The
// ExpectedUpdatedAt guard detects concurrent edits.
type MetadataUpdate struct {
	ComicID           int
	ExpectedUpdatedAt time.Time

	Title       *string
	Series      *string
	Number      *string
	Volume      *string
	StoryArc    *string
	Publisher   *string
	ReleaseDate *time.Time
	Synopsis    *string
	Tags        *string
	Source      string
	Creators    []*models.ComicCreator
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateComic(ctx context.Context, comic *models.Comic) error {
	now := time.Now()
	if comic.CreatedAt.IsZero() {
		comic.CreatedAt = now
	}
	comic.UpdatedAt = comic.CreatedAt

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(comic).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		for i, creator := range comic.Creators {
			creator.ComicID = comic.ID
			creator.SortOrder = i
		}

		if len(comic.Creators) > 0 {
			_, err := tx.
				NewInsert().
				Model(&comic.Creators).
				Returning("*").
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveComic(ctx context.Context, opts RetrieveComicOptions) (*models.Comic, error) {
	comic := &models.Comic{}

	q := svc.db.
		NewSelect().
		Model(comic).
		Column("c.*").
		Relation("Creators", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("sort_order ASC")
		})

	if opts.ID != nil {
		q = q.Where("c.id = ?", *opts.ID)
	}
	if opts.LibraryID != nil {
		q = q.Where("c.library_id = ?", *opts.LibraryID)
	}
	if opts.Fingerprint != nil {
		q = q.Where("c.fingerprint = ?", *opts.Fingerprint)
	}
	if opts.Path != nil {
		q = q.Where("c.path = ?", *opts.Path)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Comic")
		}
		return nil, errors.WithStack(err)
	}

	return comic, nil
}

func (svc *Service) ListComics(ctx context.Context, opts ListComicsOptions) ([]*models.Comic, error) {
	c, _, err := svc.listComicsWithTotal(ctx, opts)
	return c, errors.WithStack(err)
}

func (svc *Service) ListComicsWithTotal(ctx context.Context, opts ListComicsOptions) ([]*models.Comic, int, error) {
	opts.includeTotal = true
	return svc.listComicsWithTotal(ctx, opts)
}

func (svc *Service) listComicsWithTotal(ctx context.Context, opts ListComicsOptions) ([]*models.Comic, int, error) {
	comics := []*models.Comic{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&comics).
		Column("c.*").
		Relation("Creators", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("sort_order ASC")
		}).
		Order("c.path ASC")

	if opts.LibraryID != nil {
		q = q.Where("c.library_id = ?", *opts.LibraryID)
	}
	if opts.FolderID != nil {
		q = q.Where("c.folder_id = ?", *opts.FolderID)
	}
	if opts.Fingerprint != nil {
		q = q.Where("c.fingerprint = ?", *opts.Fingerprint)
	}
	if opts.ReadStatus != nil {
		q = q.Where("c.read_status = ?", *opts.ReadStatus)
	}
	if opts.Type != nil {
		q = q.Where("c.type = ?", *opts.Type)
	}
	if opts.Series != nil {
		q = q.Where("c.series = ?", *opts.Series)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return comics, total, nil
}

func (svc *Service) UpdateComic(ctx context.Context, comic *models.Comic, opts UpdateComicOptions) error {
	if len(opts.Columns) == 0 && !opts.UpdateCreators {
		return nil
	}

	now := time.Now()
	comic.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(comic).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Comic")
			}
			return errors.WithStack(err)
		}

		if opts.UpdateCreators {
			err := replaceCreators(ctx, tx, comic.ID, comic.Creators)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// MoveComic records that the file identified by the comic's fingerprint now
// lives at a different path. Only location fields change; read progress,
// ratings, labels, and reading list membership ride along untouched because
// the row itself survives. A nil folderID moves the comic to the library
// path root.
func (svc *Service) MoveComic(ctx context.Context, comic *models.Comic, folderID *int, path string) error {
	comic.FolderID = folderID
	comic.Path = path

	err := svc.UpdateComic(ctx, comic, UpdateComicOptions{
		Columns: []string{"folder_id", "path"},
	})
	return errors.WithStack(err)
}

func (svc *Service) DeleteComic(ctx context.Context, id int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Membership rows go first so the delete never leaves danglers.
		_, err := tx.
			NewDelete().
			Model((*models.ComicLabel)(nil)).
			Where("comic_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.ReadingListComic)(nil)).
			Where("comic_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.ComicCreator)(nil)).
			Where("comic_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.Comic)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// ApplyMetadataBatch writes scraped metadata to many comics in one
// transaction. If any target comic was modified since its
// ExpectedUpdatedAt, the whole batch rolls back with a ConflictError so
// callers never observe a half-applied batch.
func (svc *Service) ApplyMetadataBatch(ctx context.Context, updates []MetadataUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()

		// Check every guard before writing anything so the error
		// names all the stale comics, not just the first one.
		conflicts := []int{}
		for _, update := range updates {
			comic := &models.Comic{}
			err := tx.
				NewSelect().
				Model(comic).
				Column("c.id", "c.updated_at").
				Where("c.id = ?", update.ComicID).
				Scan(ctx)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					conflicts = append(conflicts, update.ComicID)
					continue
				}
				return errors.WithStack(err)
			}
			if !comic.UpdatedAt.Equal(update.ExpectedUpdatedAt) {
				conflicts = append(conflicts, update.ComicID)
			}
		}
		if len(conflicts) > 0 {
			return &ConflictError{ComicIDs: conflicts}
		}

		for _, update := range updates {
			comic := &models.Comic{ID: update.ComicID}

			source := update.Source
			if source == "" {
				source = models.MetadataSourceCatalog
			}

			comic.Title = update.Title
			comic.Series = update.Series
			comic.Number = update.Number
			comic.Volume = update.Volume
			comic.StoryArc = update.StoryArc
			comic.Publisher = update.Publisher
			comic.ReleaseDate = update.ReleaseDate
			comic.Synopsis = update.Synopsis
			comic.Tags = update.Tags
			comic.MetadataSource = &source
			comic.UpdatedAt = now

			_, err := tx.
				NewUpdate().
				Model(comic).
				Column(
					"title", "series", "number", "volume", "story_arc",
					"publisher", "release_date", "synopsis", "tags",
					"metadata_source", "updated_at",
				).
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			if update.Creators != nil {
				err := replaceCreators(ctx, tx, update.ComicID, update.Creators)
				if err != nil {
					return errors.WithStack(err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func replaceCreators(ctx context.Context, tx bun.Tx, comicID int, creators []*models.ComicCreator) error {
	_, err := tx.
		NewDelete().
		Model((*models.ComicCreator)(nil)).
		Where("comic_id = ?", comicID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	for i, creator := range creators {
		creator.ID = 0
		creator.ComicID = comicID
		creator.SortOrder = i
	}

	if len(creators) > 0 {
		_, err := tx.
			NewInsert().
			Model(&creators).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}
