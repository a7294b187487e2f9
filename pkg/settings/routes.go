package settings

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobonapp/tankobon/pkg/config"
)

func RegisterRoutes(e *echo.Echo, cfg *config.Config) {
	h := &handler{cfg: cfg}

	e.GET("/settings", h.retrieve)
	e.PUT("/settings", h.update)
}
