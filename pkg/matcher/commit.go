package matcher

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/comics"
	"github.com/tankobonapp/tankobon/pkg/models"
)

// Commit writes the metadata of every matched pair to the store as one
// atomic batch: either all matched comics receive their issue's metadata or,
// if any of them changed since the alignment was computed, none do and a
// comics.ConflictError comes back.
func (a *Alignment) Commit(ctx context.Context, comicService *comics.Service) error {
	matched := a.Matched()
	if len(matched) == 0 {
		return nil
	}

	updates := make([]comics.MetadataUpdate, 0, len(matched))
	for _, pair := range matched {
		issue := pair.Issue
		updates = append(updates, comics.MetadataUpdate{
			ComicID:           pair.Comic.ID,
			ExpectedUpdatedAt: pair.Comic.UpdatedAt,
			Title:             issue.Title,
			Series:            issue.Series,
			Number:            issue.Number,
			Volume:            issue.Volume,
			StoryArc:          issue.StoryArc,
			Publisher:         issue.Publisher,
			ReleaseDate:       issue.ReleaseDate,
			Synopsis:          issue.Synopsis,
			Tags:              issue.Tags,
			Source:            models.MetadataSourceCatalog,
			Creators:          issue.Creators,
		})
	}

	err := comicService.ApplyMetadataBatch(ctx, updates)
	return errors.WithStack(err)
}
