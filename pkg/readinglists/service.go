package readinglists

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveReadingListOptions struct {
	ID        *int
	LibraryID *int
}

type ListReadingListsOptions struct {
	LibraryID *int
	Limit     *int
	Offset    *int

	includeTotal bool
}

type UpdateReadingListOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateReadingList(ctx context.Context, list *models.ReadingList) error {
	now := time.Now()
	if list.CreatedAt.IsZero() {
		list.CreatedAt = now
	}
	list.UpdatedAt = list.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(list).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveReadingList(ctx context.Context, opts RetrieveReadingListOptions) (*models.ReadingList, error) {
	list := &models.ReadingList{}

	q := svc.db.
		NewSelect().
		Model(list).
		Column("rl.*").
		Relation("ReadingListComics", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("sort_order ASC", "added_at ASC")
		})

	if opts.ID != nil {
		q = q.Where("rl.id = ?", *opts.ID)
	}
	if opts.LibraryID != nil {
		q = q.Where("rl.library_id = ?", *opts.LibraryID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Reading list")
		}
		return nil, errors.WithStack(err)
	}

	return list, nil
}

func (svc *Service) ListReadingLists(ctx context.Context, opts ListReadingListsOptions) ([]*models.ReadingList, error) {
	l, _, err := svc.listReadingListsWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListReadingListsWithTotal(ctx context.Context, opts ListReadingListsOptions) ([]*models.ReadingList, int, error) {
	opts.includeTotal = true
	return svc.listReadingListsWithTotal(ctx, opts)
}

func (svc *Service) listReadingListsWithTotal(ctx context.Context, opts ListReadingListsOptions) ([]*models.ReadingList, int, error) {
	lists := []*models.ReadingList{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&lists).
		Column("rl.*").
		Order("rl.name ASC")

	if opts.LibraryID != nil {
		q = q.Where("rl.library_id = ?", *opts.LibraryID)
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

	return lists, total, nil
}

func (svc *Service) UpdateReadingList(ctx context.Context, list *models.ReadingList, opts UpdateReadingListOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	list.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(list).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Reading list")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteReadingList(ctx context.Context, id int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewDelete().
			Model((*models.ReadingListComic)(nil)).
			Where("reading_list_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.ReadingList)(nil)).
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

// AddComicToReadingList appends a comic to a list. In ordered lists the
// comic lands at the end; re-adding an existing member is a no-op.
func (svc *Service) AddComicToReadingList(ctx context.Context, listID, comicID int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var maxSort sql.NullInt64
		err := tx.
			NewSelect().
			Model((*models.ReadingListComic)(nil)).
			ColumnExpr("MAX(sort_order)").
			Where("reading_list_id = ?", listID).
			Scan(ctx, &maxSort)
		if err != nil {
			return errors.WithStack(err)
		}

		next := 0
		if maxSort.Valid {
			next = int(maxSort.Int64) + 1
		}

		member := &models.ReadingListComic{
			ReadingListID: listID,
			ComicID:       comicID,
			AddedAt:       time.Now(),
			SortOrder:     pointerutil.Int(next),
		}

		_, err = tx.
			NewInsert().
			Model(member).
			On("CONFLICT (reading_list_id, comic_id) DO NOTHING").
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

func (svc *Service) RemoveComicFromReadingList(ctx context.Context, listID, comicID int) error {
	_, err := svc.db.
		NewDelete().
		Model((*models.ReadingListComic)(nil)).
		Where("reading_list_id = ?", listID).
		Where("comic_id = ?", comicID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// ReorderReadingList rewrites the sort order of an ordered list to match
// comicIDs. Members missing from comicIDs keep their membership and sink to
// the end in their previous relative order.
func (svc *Service) ReorderReadingList(ctx context.Context, listID int, comicIDs []int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		members := []*models.ReadingListComic{}
		err := tx.
			NewSelect().
			Model(&members).
			Where("reading_list_id = ?", listID).
			Order("sort_order ASC", "added_at ASC").
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		position := map[int]int{}
		for i, comicID := range comicIDs {
			position[comicID] = i
		}

		next := len(comicIDs)
		for _, member := range members {
			pos, ok := position[member.ComicID]
			if !ok {
				pos = next
				next++
			}
			member.SortOrder = pointerutil.Int(pos)

			_, err := tx.
				NewUpdate().
				Model(member).
				Column("sort_order").
				WherePK().
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
