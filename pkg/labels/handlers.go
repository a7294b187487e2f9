package labels

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/models"
)

type handler struct {
	labelService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateLabelPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	label := &models.Label{
		LibraryID: params.LibraryID,
		Name:      params.Name,
		Color:     params.Color,
	}

	err := h.labelService.CreateLabel(ctx, label)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, label))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Label")
	}

	label, err := h.labelService.RetrieveLabel(ctx, RetrieveLabelOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, label))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListLabelsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	labels, total, err := h.labelService.ListLabelsWithTotal(ctx, ListLabelsOptions{
		Limit:     &params.Limit,
		Offset:    &params.Offset,
		LibraryID: params.LibraryID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Labels []*models.Label `json:"labels"`
		Total  int             `json:"total"`
	}{labels, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Label")
	}

	// Bind params.
	params := UpdateLabelPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the label.
	label, err := h.labelService.RetrieveLabel(ctx, RetrieveLabelOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateLabelOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != label.Name {
		label.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Color != nil && *params.Color != label.Color {
		label.Color = *params.Color
		opts.Columns = append(opts.Columns, "color")
	}

	// Update the model.
	err = h.labelService.UpdateLabel(ctx, label, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, label))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Label")
	}

	// Make sure it exists first so deletes of unknown labels 404.
	_, err = h.labelService.RetrieveLabel(ctx, RetrieveLabelOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.labelService.DeleteLabel(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) addComic(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Label")
	}

	// Bind params.
	params := LabelComicPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	err = h.labelService.AddComicToLabel(ctx, id, params.ComicID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) removeComic(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Label")
	}
	comicID, err := strconv.Atoi(c.Param("comicId"))
	if err != nil {
		return errcodes.NotFound("Comic")
	}

	err = h.labelService.RemoveComicFromLabel(ctx, id, comicID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) comics(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Label")
	}

	comics, err := h.labelService.ListComicsForLabel(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Comics []*models.Comic `json:"comics"`
	}{comics}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
