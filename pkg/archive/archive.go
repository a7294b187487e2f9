package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// Error kinds surfaced by Open. They are distinct so that callers can give
// an actionable message: an unsupported container is not the same as a
// supported one whose decode tool isn't installed.
var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrToolMissing       = errors.New("external decompression tool not found")
	ErrCorrupt           = errors.New("archive is corrupt")
)

// PageError reports an integrity failure for a single page. It never aborts
// enumeration of the remaining pages.
type PageError struct {
	Index int
	Name  string
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Page describes one image entry of an opened comic.
type Page struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
}

// Reader is the capability boundary over a comic container: list pages in
// reading order and read the bytes of one page. Pages are ordered by a
// case-insensitive, numeric-aware sort of entry names, so "page2" comes
// before "page10".
type Reader interface {
	Pages() []Page
	ReadPage(index int) ([]byte, error)
	// ComicInfo returns the parsed ComicInfo.xml when the container has
	// one, or nil.
	ComicInfo() *ComicInfo
	Close() error
}

// Open detects the container format of the file (or directory) at path and
// returns a Reader for it. Unknown containers fail with
// ErrUnsupportedFormat; rar/7z containers without their external tool fail
// with ErrToolMissing; unreadable containers fail with ErrCorrupt.
func Open(path string) (Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if info.IsDir() {
		return openDir(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbz", ".zip":
		return openZip(path)
	case ".cbr", ".rar":
		return openRar(path)
	case ".cb7", ".7z":
		return open7z(path)
	}

	// Extensions lie; fall back to content sniffing.
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	switch mtype.String() {
	case "application/zip":
		return openZip(path)
	case "application/x-rar-compressed", "application/vnd.rar":
		return openRar(path)
	case "application/x-7z-compressed":
		return open7z(path)
	}

	return nil, errors.Wrapf(ErrUnsupportedFormat, "%s (%s)", filepath.Base(path), mtype.String())
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
}

func isImageName(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// sortPageNames orders in-archive entry names into reading order and
// assigns page indexes.
func sortPageNames(names []string, sizes map[string]int64) []Page {
	sort.SliceStable(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})

	pages := make([]Page, 0, len(names))
	for i, name := range names {
		pages = append(pages, Page{Index: i, Name: name, Size: sizes[name]})
	}
	return pages
}

// CoverPage picks the page index to use as the comic's cover: a page marked
// FrontCover in ComicInfo.xml when present, otherwise the first page.
func CoverPage(pages []Page, ci *ComicInfo) int {
	if len(pages) == 0 {
		return 0
	}
	if ci != nil {
		for _, p := range ci.Pages.Page {
			if strings.EqualFold(p.Type, "frontcover") {
				if idx, ok := p.imageIndex(); ok && idx >= 0 && idx < len(pages) {
					return idx
				}
			}
		}
	}
	return 0
}
