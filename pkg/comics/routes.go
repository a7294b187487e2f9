package comics

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobonapp/tankobon/pkg/libraries"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers comic routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		comicService:   NewService(db),
		libraryService: libraries.NewService(db),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("/:id", h.update)
	g.GET("/:id/cover", h.cover)
	g.GET("/:id/pages/:pageNum", h.page)
}
