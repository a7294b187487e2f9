package labels

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveLabelOptions struct {
	ID        *int
	LibraryID *int
	Name      *string
}

type ListLabelsOptions struct {
	LibraryID *int
	Limit     *int
	Offset    *int

	includeTotal bool
}

type UpdateLabelOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateLabel(ctx context.Context, label *models.Label) error {
	now := time.Now()
	if label.CreatedAt.IsZero() {
		label.CreatedAt = now
	}
	label.UpdatedAt = label.CreatedAt
	if label.Color == "" {
		label.Color = models.LabelColorYellow
	}

	_, err := svc.db.
		NewInsert().
		Model(label).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveLabel(ctx context.Context, opts RetrieveLabelOptions) (*models.Label, error) {
	label := &models.Label{}

	q := svc.db.
		NewSelect().
		Model(label).
		Column("lb.*")

	if opts.ID != nil {
		q = q.Where("lb.id = ?", *opts.ID)
	}
	if opts.LibraryID != nil {
		q = q.Where("lb.library_id = ?", *opts.LibraryID)
	}
	if opts.Name != nil {
		q = q.Where("lb.name = ? COLLATE NOCASE", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Label")
		}
		return nil, errors.WithStack(err)
	}

	return label, nil
}

func (svc *Service) ListLabels(ctx context.Context, opts ListLabelsOptions) ([]*models.Label, error) {
	l, _, err := svc.listLabelsWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListLabelsWithTotal(ctx context.Context, opts ListLabelsOptions) ([]*models.Label, int, error) {
	opts.includeTotal = true
	return svc.listLabelsWithTotal(ctx, opts)
}

func (svc *Service) listLabelsWithTotal(ctx context.Context, opts ListLabelsOptions) ([]*models.Label, int, error) {
	labels := []*models.Label{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&labels).
		Column("lb.*").
		Order("lb.name ASC")

	if opts.LibraryID != nil {
		q = q.Where("lb.library_id = ?", *opts.LibraryID)
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

	return labels, total, nil
}

func (svc *Service) UpdateLabel(ctx context.Context, label *models.Label, opts UpdateLabelOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	label.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(label).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Label")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteLabel(ctx context.Context, id int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewDelete().
			Model((*models.ComicLabel)(nil)).
			Where("label_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.Label)(nil)).
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

// AddComicToLabel attaches a comic to a label. Adding twice is a no-op so
// callers don't need to check membership first.
func (svc *Service) AddComicToLabel(ctx context.Context, labelID, comicID int) error {
	comicLabel := &models.ComicLabel{
		LabelID: labelID,
		ComicID: comicID,
		AddedAt: time.Now(),
	}

	_, err := svc.db.
		NewInsert().
		Model(comicLabel).
		On("CONFLICT (label_id, comic_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RemoveComicFromLabel(ctx context.Context, labelID, comicID int) error {
	_, err := svc.db.
		NewDelete().
		Model((*models.ComicLabel)(nil)).
		Where("label_id = ?", labelID).
		Where("comic_id = ?", comicID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// ListComicsForLabel returns the comics attached to a label, most recently
// added first.
func (svc *Service) ListComicsForLabel(ctx context.Context, labelID int) ([]*models.Comic, error) {
	comics := []*models.Comic{}

	err := svc.db.
		NewSelect().
		Model(&comics).
		Column("c.*").
		Join("JOIN comic_labels cl ON cl.comic_id = c.id").
		Where("cl.label_id = ?", labelID).
		Order("cl.added_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return comics, nil
}
