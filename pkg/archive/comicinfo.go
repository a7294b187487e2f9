package archive

import (
	"encoding/xml"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/tankobonapp/tankobon/pkg/models"
)

// ComicInfo is the de-facto standard metadata sidecar embedded in comic
// archives (ComicInfo.xml at the archive root).
type ComicInfo struct {
	XMLName     xml.Name `xml:"ComicInfo"`
	Title       string   `xml:"Title"`
	Series      string   `xml:"Series"`
	Number      string   `xml:"Number"`
	Volume      string   `xml:"Volume"`
	Year        string   `xml:"Year"`
	Month       string   `xml:"Month"`
	Day         string   `xml:"Day"`
	Writer      string   `xml:"Writer"`
	Penciller   string   `xml:"Penciller"`
	Inker       string   `xml:"Inker"`
	Colorist    string   `xml:"Colorist"`
	Letterer    string   `xml:"Letterer"`
	CoverArtist string   `xml:"CoverArtist"`
	Editor      string   `xml:"Editor"`
	Publisher   string   `xml:"Publisher"`
	Genre       string   `xml:"Genre"`
	Tags        string   `xml:"Tags"`
	StoryArc    string   `xml:"StoryArc"`
	Summary     string   `xml:"Summary"`
	Manga       string   `xml:"Manga"`
	Pages       struct {
		Page []ComicPageInfo `xml:"Page"`
	} `xml:"Pages"`
}

type ComicPageInfo struct {
	Image string `xml:"Image,attr"`
	Type  string `xml:"Type,attr"`
}

func (p ComicPageInfo) imageIndex() (int, bool) {
	idx, err := strconv.Atoi(p.Image)
	return idx, err == nil
}

func parseComicInfo(r io.ReadCloser) (*ComicInfo, error) {
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	ci := &ComicInfo{}
	err = xml.Unmarshal(b, ci)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return ci, nil
}

// ParsedMetadata is ComicInfo flattened into the fields the library stores.
type ParsedMetadata struct {
	Title       *string
	Series      *string
	Number      *string
	Volume      *string
	StoryArc    *string
	Publisher   *string
	ReleaseDate *time.Time
	Synopsis    *string
	Tags        *string
	Type        *string
	Creators    []ParsedCreator
}

type ParsedCreator struct {
	Role string
	Name string
}

// Metadata converts the raw ComicInfo into ParsedMetadata. Empty elements
// become nil fields so that the caller leaves existing values untouched.
func (ci *ComicInfo) Metadata() *ParsedMetadata {
	if ci == nil {
		return nil
	}

	md := &ParsedMetadata{
		Title:     emptyToNil(ci.Title),
		Series:    emptyToNil(ci.Series),
		Number:    emptyToNil(ci.Number),
		Volume:    emptyToNil(ci.Volume),
		StoryArc:  emptyToNil(ci.StoryArc),
		Publisher: emptyToNil(ci.Publisher),
		Synopsis:  emptyToNil(ci.Summary),
		Tags:      emptyToNil(ci.Tags),
	}

	if date := parseReleaseDate(ci.Year, ci.Month, ci.Day); date != nil {
		md.ReleaseDate = date
	}
	if strings.EqualFold(ci.Manga, "yes") || strings.EqualFold(ci.Manga, "yesandrighttoleft") {
		md.Type = pointerutil.String(models.ComicTypeManga)
	}

	seenByRole := make(map[string]map[string]bool)
	addCreators := func(creatorStr, role string) {
		if creatorStr == "" {
			return
		}
		if seenByRole[role] == nil {
			seenByRole[role] = make(map[string]bool)
		}
		for _, name := range splitCreators(creatorStr) {
			if !seenByRole[role][name] {
				md.Creators = append(md.Creators, ParsedCreator{Role: role, Name: name})
				seenByRole[role][name] = true
			}
		}
	}

	addCreators(ci.Writer, models.CreatorRoleWriter)
	addCreators(ci.Penciller, models.CreatorRolePenciller)
	addCreators(ci.Inker, models.CreatorRoleInker)
	addCreators(ci.Colorist, models.CreatorRoleColorist)
	addCreators(ci.Letterer, models.CreatorRoleLetterer)
	addCreators(ci.CoverArtist, models.CreatorRoleCoverArtist)
	addCreators(ci.Editor, models.CreatorRoleEditor)

	return md
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseReleaseDate(year, month, day string) *time.Time {
	y, err := strconv.Atoi(year)
	if err != nil || y <= 0 {
		return nil
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		m = 1
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		d = 1
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func splitCreators(creators string) []string {
	if creators == "" {
		return nil
	}

	parts := strings.Split(creators, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// NumberFromFilename extracts an issue number from a filename when the
// archive carries no metadata, matching "#7", "v7", or a trailing " 7".
func NumberFromFilename(filename string) *string {
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	patterns := []string{
		`(?i)#(\d+(?:\.\d+)?)$`,
		`(?i)v(\d+(?:\.\d+)?)$`,
		`(?i)\s+(\d+(?:\.\d+)?)$`,
	}

	for _, pattern := range patterns {
		re := regexp.MustCompile(pattern)
		if matches := re.FindStringSubmatch(nameWithoutExt); len(matches) >= 2 {
			return &matches[1]
		}
	}

	return nil
}
