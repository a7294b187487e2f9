package updater

import (
	"context"

	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/tankobonapp/tankobon/pkg/archive"
	"github.com/tankobonapp/tankobon/pkg/crawler"
	"github.com/tankobonapp/tankobon/pkg/models"
)

// scanResult is what an archive scan contributes to a comic row. A failed
// scan yields a row with zero pages and a scan error, never a skipped file.
type scanResult struct {
	pageCount int
	coverPage *int
	scanError *string
	metadata  *archive.ParsedMetadata
}

func (u *Updater) scanEntry(ctx context.Context, entry *crawler.Entry) *scanResult {
	log := logger.FromContext(ctx)

	r, err := archive.Open(entry.AbsPath())
	if err != nil {
		log.Err(err).Data(logger.Data{"path": entry.RelPath}).Warn("archive open error")
		return &scanResult{scanError: pointerutil.String(err.Error())}
	}
	defer r.Close()

	pages := r.Pages()
	scan := &scanResult{
		pageCount: len(pages),
		coverPage: pointerutil.Int(archive.CoverPage(pages, r.ComicInfo())),
	}

	if ci := r.ComicInfo(); ci != nil {
		scan.metadata = ci.Metadata()
	}
	if scan.metadata != nil && scan.metadata.Number == nil {
		scan.metadata.Number = archive.NumberFromFilename(entry.Name)
	}

	return scan
}

// applyMetadata copies parsed sidecar metadata onto the comic and returns
// the columns it touched. Nil fields in the metadata leave the stored
// values alone.
func applyMetadata(comic *models.Comic, md *archive.ParsedMetadata) []string {
	columns := []string{}
	set := func(dst **string, src *string, column string) {
		if src != nil {
			*dst = src
			columns = append(columns, column)
		}
	}

	set(&comic.Title, md.Title, "title")
	set(&comic.Series, md.Series, "series")
	set(&comic.Number, md.Number, "number")
	set(&comic.Volume, md.Volume, "volume")
	set(&comic.StoryArc, md.StoryArc, "story_arc")
	set(&comic.Publisher, md.Publisher, "publisher")
	set(&comic.Synopsis, md.Synopsis, "synopsis")
	set(&comic.Tags, md.Tags, "tags")

	if md.ReleaseDate != nil {
		comic.ReleaseDate = md.ReleaseDate
		columns = append(columns, "release_date")
	}
	if md.Type != nil {
		comic.Type = *md.Type
		columns = append(columns, "type")
	}
	if len(columns) > 0 {
		comic.MetadataSource = pointerutil.String(models.MetadataSourceComicInfo)
		columns = append(columns, "metadata_source")
	}

	return columns
}
