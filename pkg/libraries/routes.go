package libraries

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobonapp/tankobon/pkg/jobs"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	h := &handler{
		libraryService: NewService(db),
		jobService:     jobs.NewService(db),
	}

	e.POST("/libraries", h.create)
	e.GET("/libraries/:id", h.retrieve)
	e.GET("/libraries", h.list)
	e.POST("/libraries/:id", h.update)
	e.POST("/libraries/:id/sync", h.sync)
}
