package comics

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/tankobonapp/tankobon/pkg/archive"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/libraries"
	"github.com/tankobonapp/tankobon/pkg/models"
)

type handler struct {
	comicService   *Service
	libraryService *libraries.Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Comic")
	}

	comic, err := h.comicService.RetrieveComic(ctx, RetrieveComicOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, comic))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListComicsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	comics, total, err := h.comicService.ListComicsWithTotal(ctx, ListComicsOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		LibraryID:  params.LibraryID,
		FolderID:   params.FolderID,
		Series:     params.Series,
		Type:       params.Type,
		ReadStatus: params.ReadStatus,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Comics []*models.Comic `json:"comics"`
		Total  int             `json:"total"`
	}{comics, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Comic")
	}

	// Bind params.
	params := UpdateComicPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the comic.
	comic, err := h.comicService.RetrieveComic(ctx, RetrieveComicOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateComicOptions{Columns: []string{}}
	metadataEdited := false

	if params.Type != nil && *params.Type != comic.Type {
		comic.Type = *params.Type
		opts.Columns = append(opts.Columns, "type")
	}
	if params.ReadStatus != nil && *params.ReadStatus != comic.ReadStatus {
		comic.ReadStatus = *params.ReadStatus
		opts.Columns = append(opts.Columns, "read_status")
	}
	if params.CurrentPage != nil && *params.CurrentPage != comic.CurrentPage {
		if comic.PageCount > 0 && *params.CurrentPage >= comic.PageCount {
			return errcodes.ValidationError("current_page is past the end of the comic.")
		}
		comic.CurrentPage = *params.CurrentPage
		opts.Columns = append(opts.Columns, "current_page")
	}
	if params.Rating != nil {
		comic.Rating = params.Rating
		opts.Columns = append(opts.Columns, "rating")
	}

	setString := func(column string, value *string, field **string) {
		if value == nil {
			return
		}
		*field = value
		opts.Columns = append(opts.Columns, column)
		metadataEdited = true
	}
	setString("title", params.Title, &comic.Title)
	setString("series", params.Series, &comic.Series)
	setString("number", params.Number, &comic.Number)
	setString("volume", params.Volume, &comic.Volume)
	setString("story_arc", params.StoryArc, &comic.StoryArc)
	setString("publisher", params.Publisher, &comic.Publisher)
	setString("synopsis", params.Synopsis, &comic.Synopsis)
	setString("tags", params.Tags, &comic.Tags)

	if params.Creators != nil {
		comic.Creators = make([]*models.ComicCreator, 0, len(params.Creators))
		for i, creator := range params.Creators {
			comic.Creators = append(comic.Creators, &models.ComicCreator{
				ComicID:   comic.ID,
				Role:      creator.Role,
				Name:      creator.Name,
				SortOrder: i,
			})
		}
		opts.UpdateCreators = true
		metadataEdited = true
	}

	if metadataEdited {
		comic.MetadataSource = pointerutil.String(models.MetadataSourceManual)
		opts.Columns = append(opts.Columns, "metadata_source")
	}

	// Update the model.
	err = h.comicService.UpdateComic(ctx, comic, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload the model.
	comic, err = h.comicService.RetrieveComic(ctx, RetrieveComicOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, comic))
}

func (h *handler) cover(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Comic")
	}

	comic, err := h.comicService.RetrieveComic(ctx, RetrieveComicOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	page := 0
	if comic.CoverPage != nil {
		page = *comic.CoverPage
	}

	return h.servePage(c, comic, page)
}

func (h *handler) page(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Comic")
	}
	pageNum, err := strconv.Atoi(c.Param("pageNum"))
	if err != nil || pageNum < 0 {
		return errcodes.NotFound("Page")
	}

	comic, err := h.comicService.RetrieveComic(ctx, RetrieveComicOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return h.servePage(c, comic, pageNum)
}

func (h *handler) servePage(c echo.Context, comic *models.Comic, pageNum int) error {
	ctx := c.Request().Context()

	absPath, err := h.resolvePath(ctx, comic)
	if err != nil {
		return errors.WithStack(err)
	}

	reader, err := archive.Open(absPath)
	if err != nil {
		return errcodes.NotFound("Page")
	}
	defer reader.Close()

	pages := reader.Pages()
	if pageNum >= len(pages) {
		return errcodes.NotFound("Page")
	}

	data, err := reader.ReadPage(pageNum)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.Blob(http.StatusOK, http.DetectContentType(data), data))
}

// resolvePath joins the comic's library-relative path against each of its
// library's roots until one exists on disk.
func (h *handler) resolvePath(ctx context.Context, comic *models.Comic) (string, error) {
	library, err := h.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{
		ID: &comic.LibraryID,
	})
	if err != nil {
		return "", errors.WithStack(err)
	}

	for _, libraryPath := range library.LibraryPaths {
		abs := filepath.Join(libraryPath.Filepath, filepath.FromSlash(comic.Path))
		if _, err := os.Stat(abs); err == nil {
			return abs, nil
		}
	}

	return "", errcodes.NotFound("Comic file")
}
