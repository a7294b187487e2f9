package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/config"
)

type handler struct {
	cfg *config.Config
}

func (h *handler) retrieve(c echo.Context) error {
	userConfig, err := h.cfg.LoadUserConfig()
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, userConfig))
}

func (h *handler) update(c echo.Context) error {
	// Bind params.
	params := UpdateSettingsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	userConfig, err := h.cfg.LoadUserConfig()
	if err != nil {
		return errors.WithStack(err)
	}

	if params.UpdateLibrariesPeriodically != nil {
		userConfig.UpdateLibrariesPeriodically = *params.UpdateLibrariesPeriodically
	}
	if params.SyncIntervalMinutes != nil {
		userConfig.SyncIntervalMinutes = *params.SyncIntervalMinutes
	}
	if params.ImportComicInfoMetadata != nil {
		userConfig.ImportComicInfoMetadata = *params.ImportComicInfoMetadata
	}

	if err := h.cfg.SaveUserConfig(userConfig); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, userConfig))
}
