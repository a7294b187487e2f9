package archive

import (
	"bufio"
	"bytes"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// externalReader decodes rar and 7z containers by shelling out to the
// system's unrar/7z binaries, the way most comic readers handle these
// formats. A missing binary is reported as ErrToolMissing so the scan can
// record an actionable error instead of failing silently.
type externalReader struct {
	path      string
	tool      string
	listArgs  func(path string) []string
	pipeArgs  func(path, entry string) []string
	pages     []Page
	comicInfo *ComicInfo
}

func openRar(path string) (Reader, error) {
	tool, err := exec.LookPath("unrar")
	if err != nil {
		return nil, errors.Wrap(ErrToolMissing, "unrar")
	}
	return openExternal(path, &externalReader{
		path: path,
		tool: tool,
		listArgs: func(path string) []string {
			return []string{"lt", "--", path}
		},
		pipeArgs: func(path, entry string) []string {
			return []string{"p", "-inul", "--", path, entry}
		},
	})
}

func open7z(path string) (Reader, error) {
	tool, err := exec.LookPath("7z")
	if err != nil {
		if tool, err = exec.LookPath("7zz"); err != nil {
			return nil, errors.Wrap(ErrToolMissing, "7z")
		}
	}
	return openExternal(path, &externalReader{
		path: path,
		tool: tool,
		listArgs: func(path string) []string {
			return []string{"l", "-ba", "-slt", path}
		},
		pipeArgs: func(path, entry string) []string {
			return []string{"e", "-so", path, entry}
		},
	})
}

func openExternal(path string, r *externalReader) (Reader, error) {
	out, err := exec.Command(r.tool, r.listArgs(path)...).Output()
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "%s: listing failed: %v", path, err)
	}

	entries := parseEntries(r.tool, out)

	pageNames := []string{}
	sizes := map[string]int64{}
	for _, entry := range entries {
		name := entry.name
		if strings.EqualFold(name, "comicinfo.xml") || strings.EqualFold(strings.TrimPrefix(name, "./"), "comicinfo.xml") {
			if b, err := r.extract(name); err == nil {
				r.comicInfo, _ = parseComicInfo(io.NopCloser(bytes.NewReader(b)))
			}
			continue
		}
		if !isImageName(name) {
			continue
		}
		pageNames = append(pageNames, name)
		sizes[name] = entry.size
	}

	r.pages = sortPageNames(pageNames, sizes)
	return r, nil
}

type archiveEntry struct {
	name string
	size int64
}

// parseEntries extracts entry paths and sizes from the list output. unrar
// lt prints "Name:"/"Size:" attribute lines per entry; 7z -slt prints
// "Path = "/"Size = " blocks.
func parseEntries(tool string, out []byte) []archiveEntry {
	entries := []archiveEntry{}
	var current *archiveEntry

	flush := func() {
		if current != nil && current.name != "" {
			entries = append(entries, *current)
		}
		current = nil
	}

	sevenZip := strings.Contains(tool, "7z")
	namePrefix, sizePrefix := "Name: ", "Size: "
	if sevenZip {
		namePrefix, sizePrefix = "Path = ", "Size = "
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, namePrefix); ok {
			flush()
			current = &archiveEntry{name: rest}
			continue
		}
		if rest, ok := strings.CutPrefix(line, sizePrefix); ok && current != nil {
			current.size, _ = strconv.ParseInt(rest, 10, 64)
		}
	}
	flush()

	return entries
}

func (r *externalReader) extract(entry string) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := exec.Command(r.tool, r.pipeArgs(r.path, entry)...)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, errors.WithStack(err)
	}
	return stdout.Bytes(), nil
}

func (r *externalReader) Pages() []Page {
	return r.pages
}

func (r *externalReader) ReadPage(index int) ([]byte, error) {
	if index < 0 || index >= len(r.pages) {
		return nil, errors.Errorf("page index %d out of range", index)
	}
	page := r.pages[index]

	b, err := r.extract(page.Name)
	if err != nil {
		return nil, &PageError{Index: index, Name: page.Name, Err: err}
	}
	return b, nil
}

func (r *externalReader) ComicInfo() *ComicInfo {
	return r.comicInfo
}

func (r *externalReader) Close() error {
	return nil
}
