package readinglists

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/models"
)

type handler struct {
	readingListService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateReadingListPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	list := &models.ReadingList{
		LibraryID: params.LibraryID,
		Name:      params.Name,
		IsOrdered: params.IsOrdered,
	}

	err := h.readingListService.CreateReadingList(ctx, list)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, list))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reading list")
	}

	list, err := h.readingListService.RetrieveReadingList(ctx, RetrieveReadingListOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, list))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListReadingListsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	lists, total, err := h.readingListService.ListReadingListsWithTotal(ctx, ListReadingListsOptions{
		Limit:     &params.Limit,
		Offset:    &params.Offset,
		LibraryID: params.LibraryID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		ReadingLists []*models.ReadingList `json:"reading_lists"`
		Total        int                   `json:"total"`
	}{lists, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reading list")
	}

	// Bind params.
	params := UpdateReadingListPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the list.
	list, err := h.readingListService.RetrieveReadingList(ctx, RetrieveReadingListOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateReadingListOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != list.Name {
		list.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.IsOrdered != nil && *params.IsOrdered != list.IsOrdered {
		list.IsOrdered = *params.IsOrdered
		opts.Columns = append(opts.Columns, "is_ordered")
	}

	// Update the model.
	err = h.readingListService.UpdateReadingList(ctx, list, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, list))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reading list")
	}

	_, err = h.readingListService.RetrieveReadingList(ctx, RetrieveReadingListOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.readingListService.DeleteReadingList(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) addComic(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reading list")
	}

	// Bind params.
	params := ReadingListComicPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	err = h.readingListService.AddComicToReadingList(ctx, id, params.ComicID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) removeComic(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reading list")
	}
	comicID, err := strconv.Atoi(c.Param("comicId"))
	if err != nil {
		return errcodes.NotFound("Comic")
	}

	err = h.readingListService.RemoveComicFromReadingList(ctx, id, comicID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) reorder(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reading list")
	}

	// Bind params.
	params := ReorderReadingListPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	err = h.readingListService.ReorderReadingList(ctx, id, params.ComicIDs)
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload the list with the new order.
	list, err := h.readingListService.RetrieveReadingList(ctx, RetrieveReadingListOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, list))
}
