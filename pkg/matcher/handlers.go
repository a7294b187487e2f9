package matcher

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/comics"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/models"
)

type handler struct {
	comicService *comics.Service
}

func (h *handler) align(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := AlignPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	comicList, err := h.comicService.ListComics(ctx, comics.ListComicsOptions{
		LibraryID: params.LibraryID,
		FolderID:  params.FolderID,
		Series:    params.Series,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	alignment := Align(comicList, params.Issues, nil)
	if err := applyEdits(alignment, params.Edits); err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, alignment))
}

func (h *handler) commit(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CommitPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Rebuild the alignment from the echoed rows; identity and the
	// concurrency guard are all Commit needs from the comic side.
	alignment := &Alignment{}
	for _, pair := range params.Pairs {
		alignment.Pairs = append(alignment.Pairs, &Pair{
			Comic: &models.Comic{ID: pair.ComicID, UpdatedAt: pair.ExpectedUpdatedAt},
			Issue: pair.Issue,
		})
	}

	err := alignment.Commit(ctx, h.comicService)
	if err != nil {
		conflict := &comics.ConflictError{}
		if errors.As(err, &conflict) {
			return errcodes.Conflict(conflict.Error())
		}
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func applyEdits(a *Alignment, edits []EditAction) error {
	for _, edit := range edits {
		var err error
		switch edit.Op {
		case "drop_local":
			if edit.Index == nil {
				return errcodes.ValidationError("drop_local requires index.")
			}
			err = a.DropLocal(*edit.Index)
		case "drop_remote":
			if edit.Index == nil {
				return errcodes.ValidationError("drop_remote requires index.")
			}
			err = a.DropRemote(*edit.Index)
		case "pair":
			if edit.ComicIndex == nil || edit.IssueIndex == nil {
				return errcodes.ValidationError("pair requires comic_index and issue_index.")
			}
			err = a.PairManually(*edit.ComicIndex, *edit.IssueIndex)
		case "move":
			if edit.From == nil || edit.To == nil {
				return errcodes.ValidationError("move requires from and to.")
			}
			err = a.MoveLocal(*edit.From, *edit.To)
		case "realign":
			a.Realign()
		}
		if err != nil {
			return errcodes.ValidationError(err.Error())
		}
	}
	return nil
}
