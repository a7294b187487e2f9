package folders

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/models"
)

type handler struct {
	folderService *Service
}

// create builds the folder (and any missing ancestors) and marks the leaf
// as manually created so sync runs never prune it.
func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateFolderPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	folder, err := h.folderService.EnsureFolderPath(ctx, params.LibraryID, params.Path)
	if err != nil {
		return errors.WithStack(err)
	}

	if !folder.ManuallyCreated {
		folder.ManuallyCreated = true
		err = h.folderService.UpdateFolder(ctx, folder, UpdateFolderOptions{
			Columns: []string{"manually_created"},
		})
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return errors.WithStack(c.JSON(http.StatusOK, folder))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Folder")
	}

	folder, err := h.folderService.RetrieveFolder(ctx, RetrieveFolderOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, folder))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListFoldersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	folders, total, err := h.folderService.ListFoldersWithTotal(ctx, ListFoldersOptions{
		Limit:     &params.Limit,
		Offset:    &params.Offset,
		LibraryID: params.LibraryID,
		ParentID:  params.ParentID,
		RootOnly:  params.RootOnly,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Folders []*models.Folder `json:"folders"`
		Total   int              `json:"total"`
	}{folders, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Folder")
	}

	// Bind params.
	params := UpdateFolderPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the folder.
	folder, err := h.folderService.RetrieveFolder(ctx, RetrieveFolderOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateFolderOptions{Columns: []string{}}

	if params.Completed != nil && *params.Completed != folder.Completed {
		folder.Completed = *params.Completed
		opts.Columns = append(opts.Columns, "completed")
	}

	// Update the model.
	err = h.folderService.UpdateFolder(ctx, folder, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, folder))
}
