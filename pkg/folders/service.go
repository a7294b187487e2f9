package folders

import (
	"context"
	"database/sql"
	"path"
	"time"

	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveFolderOptions struct {
	ID        *int
	LibraryID *int
	Path      *string
}

type ListFoldersOptions struct {
	LibraryID *int
	ParentID  *int
	RootOnly  bool
	Limit     *int
	Offset    *int

	includeTotal bool
}

type UpdateFolderOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateFolder(ctx context.Context, folder *models.Folder) error {
	now := time.Now()
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = now
	}
	folder.UpdatedAt = folder.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(folder).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveFolder(ctx context.Context, opts RetrieveFolderOptions) (*models.Folder, error) {
	folder := &models.Folder{}

	q := svc.db.
		NewSelect().
		Model(folder).
		Column("fo.*")

	if opts.ID != nil {
		q = q.Where("fo.id = ?", *opts.ID)
	}
	if opts.LibraryID != nil {
		q = q.Where("fo.library_id = ?", *opts.LibraryID)
	}
	if opts.Path != nil {
		q = q.Where("fo.path = ?", *opts.Path)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Folder")
		}
		return nil, errors.WithStack(err)
	}

	return folder, nil
}

func (svc *Service) ListFolders(ctx context.Context, opts ListFoldersOptions) ([]*models.Folder, error) {
	f, _, err := svc.listFoldersWithTotal(ctx, opts)
	return f, errors.WithStack(err)
}

func (svc *Service) ListFoldersWithTotal(ctx context.Context, opts ListFoldersOptions) ([]*models.Folder, int, error) {
	opts.includeTotal = true
	return svc.listFoldersWithTotal(ctx, opts)
}

func (svc *Service) listFoldersWithTotal(ctx context.Context, opts ListFoldersOptions) ([]*models.Folder, int, error) {
	folders := []*models.Folder{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&folders).
		Column("fo.*").
		Order("fo.path ASC")

	if opts.LibraryID != nil {
		q = q.Where("fo.library_id = ?", *opts.LibraryID)
	}
	if opts.ParentID != nil {
		q = q.Where("fo.parent_id = ?", *opts.ParentID)
	}
	if opts.RootOnly {
		q = q.Where("fo.parent_id IS NULL")
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

	return folders, total, nil
}

func (svc *Service) UpdateFolder(ctx context.Context, folder *models.Folder, opts UpdateFolderOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	folder.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(folder).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Folder")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteFolder(ctx context.Context, id int) error {
	_, err := svc.db.
		NewDelete().
		Model((*models.Folder)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// EnsureFolderPath makes sure the folder at relPath exists for the library,
// creating any missing ancestors along the way, and returns it. Existing
// folders are reused, including ones created by hand in the app.
func (svc *Service) EnsureFolderPath(ctx context.Context, libraryID int, relPath string) (*models.Folder, error) {
	if relPath == "" || relPath == "." {
		return nil, errors.New("folder path must not be empty")
	}

	existing, err := svc.RetrieveFolder(ctx, RetrieveFolderOptions{
		LibraryID: &libraryID,
		Path:      &relPath,
	})
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errcodes.NotFound("Folder")) {
		return nil, errors.WithStack(err)
	}

	var parentID *int
	if parent := path.Dir(relPath); parent != "." && parent != "/" {
		parentFolder, err := svc.EnsureFolderPath(ctx, libraryID, parent)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		parentID = &parentFolder.ID
	}

	folder := &models.Folder{
		LibraryID: libraryID,
		ParentID:  parentID,
		Name:      path.Base(relPath),
		Path:      relPath,
	}
	err = svc.CreateFolder(ctx, folder)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return folder, nil
}

// DeleteEmptyFolders removes folders of the library that no longer contain
// comics or subfolders. Folders created by hand in the app are kept even
// when empty. Passes repeat until a pass deletes nothing, so emptied parent
// chains collapse fully.
func (svc *Service) DeleteEmptyFolders(ctx context.Context, libraryID int) (int, error) {
	deleted := 0
	for {
		res, err := svc.db.
			NewDelete().
			Model((*models.Folder)(nil)).
			Where("library_id = ?", libraryID).
			Where("manually_created = ?", false).
			Where("NOT EXISTS (SELECT 1 FROM comics c WHERE c.folder_id = fo.id)").
			Where("NOT EXISTS (SELECT 1 FROM folders child WHERE child.parent_id = fo.id)").
			Exec(ctx)
		if err != nil {
			return deleted, errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, errors.WithStack(err)
		}
		if n == 0 {
			return deleted, nil
		}
		deleted += int(n)
	}
}
