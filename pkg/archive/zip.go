package archive

import (
	"archive/zip"
	"io"
	"strings"

	"github.com/pkg/errors"
)

type zipReader struct {
	rc        *zip.ReadCloser
	pages     []Page
	files     map[string]*zip.File
	comicInfo *ComicInfo
}

func openZip(path string) (Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, errors.Wrap(ErrCorrupt, err.Error())
		}
		return nil, errors.WithStack(err)
	}

	r := &zipReader{rc: rc, files: map[string]*zip.File{}}

	names := []string{}
	sizes := map[string]int64{}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.EqualFold(f.Name, "comicinfo.xml") {
			fr, err := f.Open()
			if err == nil {
				// A malformed sidecar is not fatal; the pages are
				// still readable.
				r.comicInfo, _ = parseComicInfo(fr)
			}
			continue
		}
		if !isImageName(f.Name) {
			continue
		}
		names = append(names, f.Name)
		sizes[f.Name] = int64(f.UncompressedSize64)
		r.files[f.Name] = f
	}

	r.pages = sortPageNames(names, sizes)
	return r, nil
}

func (r *zipReader) Pages() []Page {
	return r.pages
}

func (r *zipReader) ReadPage(index int) ([]byte, error) {
	if index < 0 || index >= len(r.pages) {
		return nil, errors.Errorf("page index %d out of range", index)
	}
	page := r.pages[index]

	f := r.files[page.Name]
	fr, err := f.Open()
	if err != nil {
		return nil, &PageError{Index: index, Name: page.Name, Err: err}
	}
	defer fr.Close()

	// ReadAll surfaces CRC mismatches from the zip reader; report them as
	// a page-scoped error so a single bad page doesn't fail the comic.
	b, err := io.ReadAll(fr)
	if err != nil {
		return nil, &PageError{Index: index, Name: page.Name, Err: err}
	}
	return b, nil
}

func (r *zipReader) ComicInfo() *ComicInfo {
	return r.comicInfo
}

func (r *zipReader) Close() error {
	return errors.WithStack(r.rc.Close())
}
