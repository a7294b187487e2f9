// Package updater applies a reconciler ChangeSet to the snapshot store.
// Each change is one unit of work committed independently, so an
// interrupted run leaves the store at some valid intermediate state that
// the next run completes instead of redoing.
package updater

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobonapp/tankobon/pkg/comics"
	"github.com/tankobonapp/tankobon/pkg/crawler"
	"github.com/tankobonapp/tankobon/pkg/folders"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/tankobonapp/tankobon/pkg/reconciler"
	"github.com/uptrace/bun"
)

// Progress is delivered to the progress callback after every applied unit.
type Progress struct {
	Completed   int
	Total       int
	CurrentPath string
}

// Report summarizes an Apply run. Per-unit failures land in Errors and the
// run keeps going; only store-level failures abort.
type Report struct {
	Created  int
	Deleted  int
	Moved    int
	Modified int
	Skipped  int
	Errors   []string
	Warnings []string
}

// Applied is the number of units that changed the store.
func (r *Report) Applied() int {
	return r.Created + r.Deleted + r.Moved + r.Modified
}

type Options struct {
	// ScanWorkers bounds the archive prefetch pool for creations.
	ScanWorkers int
	// ImportComicInfo populates scraped metadata from embedded
	// ComicInfo.xml on create and modify.
	ImportComicInfo bool
}

type Updater struct {
	comicService  *comics.Service
	folderService *folders.Service
	opts          Options
}

func New(db *bun.DB, opts Options) *Updater {
	if opts.ScanWorkers <= 0 {
		opts.ScanWorkers = 1
	}
	return &Updater{
		comicService:  comics.NewService(db),
		folderService: folders.NewService(db),
		opts:          opts,
	}
}

// Apply writes the ChangeSet to the store in dependency order: deletions
// first so fingerprint slots free up, then moves, then modifications, then
// creations. Cancellation is honored between units, never inside one, and
// returns the report accumulated so far alongside the context error.
func (u *Updater) Apply(ctx context.Context, libraryID int, cs *reconciler.ChangeSet, onProgress func(Progress)) (*Report, error) {
	log := logger.FromContext(ctx)
	report := &Report{Warnings: append([]string{}, cs.Warnings...)}

	total := cs.Total()
	completed := 0

	advance := func(currentPath string) {
		completed++
		if onProgress != nil {
			onProgress(Progress{Completed: completed, Total: total, CurrentPath: currentPath})
		}
	}

	// A cancelled run reports everything it never reached as skipped; the
	// next crawl+diff pass rediscovers those entries naturally.
	cancelled := func(err error) (*Report, error) {
		report.Skipped += total - completed
		return report, errors.WithStack(err)
	}

	// Scans dominate creation cost; prefetch them in parallel before the
	// sequential store writes.
	scans := u.prefetchScans(ctx, cs.Creations)

	for _, change := range cs.Deletions {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		err := u.comicService.DeleteComic(ctx, change.Comic.ID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("delete %s: %v", change.Comic.Path, err))
			report.Skipped++
		} else {
			report.Deleted++
		}
		advance(change.Comic.Path)
	}

	for _, change := range cs.Moves {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		err := u.applyMove(ctx, libraryID, change)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("move %s -> %s: %v", change.Comic.Path, change.Entry.RelPath, err))
			report.Skipped++
		} else {
			report.Moved++
		}
		advance(change.Entry.RelPath)
	}

	for _, change := range cs.Modifications {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		err := u.applyModification(ctx, change)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("modify %s: %v", change.Entry.RelPath, err))
			report.Skipped++
		} else {
			report.Modified++
		}
		advance(change.Entry.RelPath)
	}

	for _, change := range cs.Creations {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		err := u.applyCreation(ctx, libraryID, change, scans[change.Entry])
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("create %s: %v", change.Entry.RelPath, err))
			report.Skipped++
		} else {
			report.Created++
			if change.Duplicate {
				report.Warnings = append(report.Warnings, fmt.Sprintf("duplicate content: %s already exists elsewhere in the library", change.Entry.RelPath))
			}
		}
		advance(change.Entry.RelPath)
	}

	deleted, err := u.folderService.DeleteEmptyFolders(ctx, libraryID)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("prune folders: %v", err))
	} else if deleted > 0 {
		log.Debug(fmt.Sprintf("pruned %d empty folders", deleted))
	}

	return report, nil
}

// folderFor resolves the folder row a relative comic path belongs to,
// creating missing ancestors. Comics at the library root have no folder.
func (u *Updater) folderFor(ctx context.Context, libraryID int, relPath string) (*int, error) {
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" {
		return nil, nil
	}
	folder, err := u.folderService.EnsureFolderPath(ctx, libraryID, dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &folder.ID, nil
}

func (u *Updater) applyMove(ctx context.Context, libraryID int, change *reconciler.Change) error {
	folderID, err := u.folderFor(ctx, libraryID, change.Entry.RelPath)
	if err != nil {
		return errors.WithStack(err)
	}
	err = u.comicService.MoveComic(ctx, change.Comic, folderID, change.Entry.RelPath)
	return errors.WithStack(err)
}

func (u *Updater) applyModification(ctx context.Context, change *reconciler.Change) error {
	scan := u.scanEntry(ctx, change.Entry)

	comic := change.Comic
	fp, err := change.Entry.Fingerprint()
	if err != nil {
		return errors.WithStack(err)
	}

	comic.Fingerprint = fp
	comic.FilesizeBytes = change.Entry.Size
	comic.FileModTime = change.Entry.ModTime
	comic.PageCount = scan.pageCount
	comic.CoverPage = scan.coverPage
	comic.ScanError = scan.scanError

	// Replaced content can be shorter; reading position must stay valid.
	columns := []string{"fingerprint", "filesize_bytes", "file_mod_time", "page_count", "cover_page", "scan_error"}
	if comic.PageCount > 0 && comic.CurrentPage >= comic.PageCount {
		comic.CurrentPage = comic.PageCount - 1
		columns = append(columns, "current_page")
	}

	updateCreators := false
	if u.opts.ImportComicInfo && scan.metadata != nil {
		columns = append(columns, applyMetadata(comic, scan.metadata)...)
		if scan.metadata.Creators != nil {
			updateCreators = true
			comic.Creators = nil
			for _, pc := range scan.metadata.Creators {
				comic.Creators = append(comic.Creators, &models.ComicCreator{
					Role: pc.Role,
					Name: pc.Name,
				})
			}
		}
	}

	err = u.comicService.UpdateComic(ctx, comic, comics.UpdateComicOptions{
		Columns:        columns,
		UpdateCreators: updateCreators,
	})
	return errors.WithStack(err)
}

func (u *Updater) applyCreation(ctx context.Context, libraryID int, change *reconciler.Change, scan *scanResult) error {
	if scan == nil {
		scan = u.scanEntry(ctx, change.Entry)
	}

	fp, err := change.Entry.Fingerprint()
	if err != nil {
		return errors.WithStack(err)
	}

	folderID, err := u.folderFor(ctx, libraryID, change.Entry.RelPath)
	if err != nil {
		return errors.WithStack(err)
	}

	comic := &models.Comic{
		LibraryID:     libraryID,
		FolderID:      folderID,
		Fingerprint:   fp,
		Path:          change.Entry.RelPath,
		FilesizeBytes: change.Entry.Size,
		FileModTime:   change.Entry.ModTime,
		PageCount:     scan.pageCount,
		CoverPage:     scan.coverPage,
		ScanError:     scan.scanError,
		Type:          models.ComicTypeComic,
		ReadStatus:    models.ReadStatusUnread,
	}

	if u.opts.ImportComicInfo && scan.metadata != nil {
		applyMetadata(comic, scan.metadata)
		for _, pc := range scan.metadata.Creators {
			comic.Creators = append(comic.Creators, &models.ComicCreator{
				Role: pc.Role,
				Name: pc.Name,
			})
		}
	}

	err = u.comicService.CreateComic(ctx, comic)
	return errors.WithStack(err)
}

// prefetchScans opens and scans the archives behind creations with a
// bounded pool while the rest of the changeset applies.
func (u *Updater) prefetchScans(ctx context.Context, creations []*reconciler.Change) map[*crawler.Entry]*scanResult {
	results := make(map[*crawler.Entry]*scanResult, len(creations))
	if len(creations) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, u.opts.ScanWorkers)

	for _, change := range creations {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(change *reconciler.Change) {
			defer wg.Done()
			defer func() { <-sem }()

			scan := u.scanEntry(ctx, change.Entry)
			mu.Lock()
			results[change.Entry] = scan
			mu.Unlock()
		}(change)
	}

	wg.Wait()
	return results
}
