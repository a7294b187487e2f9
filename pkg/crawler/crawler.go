// Package crawler walks a library root and produces the current on-disk
// snapshot of comic files. Each crawl reads the filesystem fresh rather
// than trusting prior state, so changes made while the app was stopped are
// always observed.
package crawler

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/fingerprint"
)

// comicExtensions are the container formats recognized as comics during a
// crawl.
var comicExtensions = map[string]struct{}{
	".cbz": {},
	".zip": {},
	".cbr": {},
	".rar": {},
	".cb7": {},
	".7z":  {},
}

// Entry is one comic file discovered by a crawl. Paths are relative to the
// crawl root and slash-separated, so snapshots compare across machines.
type Entry struct {
	RelPath string
	Name    string
	Size    int64
	ModTime time.Time

	absPath string

	// Fingerprints are computed lazily and memoized so a crawl stays
	// cheap when most files are unchanged.
	fpOnce sync.Once
	fp     string
	fpErr  error
}

// Fingerprint returns the content fingerprint of the entry, computing it on
// first use.
func (e *Entry) Fingerprint() (string, error) {
	e.fpOnce.Do(func() {
		e.fp, e.fpErr = fingerprint.File(e.absPath)
	})
	return e.fp, e.fpErr
}

// AbsPath returns the absolute path of the entry on disk.
func (e *Entry) AbsPath() string {
	return e.absPath
}

// Result is the outcome of a crawl: the comic files found plus warnings for
// entries that could not be read. Warnings never abort a crawl.
type Result struct {
	Entries  []*Entry
	Folders  []string // relative slash-separated dirs that contain comics, deepest last
	Warnings []string
}

// Crawl walks root and returns every comic file underneath it. Directory
// symlinks are skipped to avoid cycles. Inaccessible files and directories
// are recorded as warnings and skipped.
func Crawl(ctx context.Context, root string) (*Result, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	result := &Result{}
	folderSeen := map[string]bool{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// Resolving would be needed to tell file from dir; symlinked
			// trees are out of scope either way.
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return fs.SkipDir
			}
			return nil
		}

		if _, ok := comicExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithStack(err)
		}
		rel = filepath.ToSlash(rel)

		result.Entries = append(result.Entries, &Entry{
			RelPath: rel,
			Name:    d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			absPath: path,
		})

		// Record the folder chain so empty intermediate dirs don't
		// become library folders.
		for dir := filepath.ToSlash(filepath.Dir(rel)); dir != "." && dir != "/"; dir = filepath.ToSlash(filepath.Dir(dir)) {
			if !folderSeen[dir] {
				folderSeen[dir] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for dir := range folderSeen {
		result.Folders = append(result.Folders, dir)
	}
	sortFolders(result.Folders)

	return result, nil
}

// Merge combines crawls of several roots into one snapshot so a library
// with more than one path reconciles as a single unit. Entries keep their
// root-relative paths; folders are deduplicated and reordered parents-first.
func Merge(results ...*Result) *Result {
	merged := &Result{}
	folderSeen := map[string]bool{}

	for _, result := range results {
		if result == nil {
			continue
		}
		merged.Entries = append(merged.Entries, result.Entries...)
		merged.Warnings = append(merged.Warnings, result.Warnings...)
		for _, dir := range result.Folders {
			if !folderSeen[dir] {
				folderSeen[dir] = true
				merged.Folders = append(merged.Folders, dir)
			}
		}
	}

	sortFolders(merged.Folders)
	return merged
}

// sortFolders orders folder paths parents-first so they can be created in
// order.
func sortFolders(folders []string) {
	sort.Slice(folders, func(i, j int) bool {
		di, dj := strings.Count(folders[i], "/"), strings.Count(folders[j], "/")
		if di != dj {
			return di < dj
		}
		return folders[i] < folders[j]
	})
}
