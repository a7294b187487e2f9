package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/tankobonapp/tankobon/pkg/binder"
	"github.com/tankobonapp/tankobon/pkg/comics"
	"github.com/tankobonapp/tankobon/pkg/config"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/folders"
	"github.com/tankobonapp/tankobon/pkg/jobs"
	"github.com/tankobonapp/tankobon/pkg/labels"
	"github.com/tankobonapp/tankobon/pkg/libraries"
	"github.com/tankobonapp/tankobon/pkg/matcher"
	"github.com/tankobonapp/tankobon/pkg/readinglists"
	"github.com/tankobonapp/tankobon/pkg/settings"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	libraries.RegisterRoutes(e, db)
	settings.RegisterRoutes(e, cfg)

	comics.RegisterRoutesWithGroup(e.Group("/comics"), db)
	folders.RegisterRoutesWithGroup(e.Group("/folders"), db)
	labels.RegisterRoutesWithGroup(e.Group("/labels"), db)
	readinglists.RegisterRoutesWithGroup(e.Group("/reading-lists"), db)
	jobs.RegisterRoutesWithGroup(e.Group("/jobs"), db)
	matcher.RegisterRoutesWithGroup(e.Group("/matcher"), db)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
