package archive

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// dirReader treats a directory of loose images as a comic.
type dirReader struct {
	root      string
	pages     []Page
	comicInfo *ComicInfo
}

func openDir(root string) (Reader, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	r := &dirReader{root: root}

	names := []string{}
	sizes := map[string]int64{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), "comicinfo.xml") {
			f, err := os.Open(filepath.Join(root, entry.Name()))
			if err == nil {
				r.comicInfo, _ = parseComicInfo(f)
			}
			continue
		}
		if !isImageName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		names = append(names, entry.Name())
		sizes[entry.Name()] = info.Size()
	}

	r.pages = sortPageNames(names, sizes)
	return r, nil
}

func (r *dirReader) Pages() []Page {
	return r.pages
}

func (r *dirReader) ReadPage(index int) ([]byte, error) {
	if index < 0 || index >= len(r.pages) {
		return nil, errors.Errorf("page index %d out of range", index)
	}
	page := r.pages[index]

	b, err := os.ReadFile(filepath.Join(r.root, page.Name))
	if err != nil {
		return nil, &PageError{Index: index, Name: page.Name, Err: err}
	}
	return b, nil
}

func (r *dirReader) ComicInfo() *ComicInfo {
	return r.comicInfo
}

func (r *dirReader) Close() error {
	return nil
}
