package matcher

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobonapp/tankobon/pkg/comics"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers matcher routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		comicService: comics.NewService(db),
	}

	g.POST("/align", h.align)
	g.POST("/commit", h.commit)
}
