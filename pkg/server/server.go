package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bibstack/bibstack/pkg/auth"
	"github.com/bibstack/bibstack/pkg/bibcodes"
	"github.com/bibstack/bibstack/pkg/binder"
	"github.com/bibstack/bibstack/pkg/config"
	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/libraries"
	"github.com/bibstack/bibstack/pkg/operations"
	"github.com/bibstack/bibstack/pkg/permissions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
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

	// Register auth routes and get the auth service
	authService := auth.RegisterRoutes(e, db, cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(authService)

	authGroup := e.Group("/auth")
	authGroup.Use(authMiddleware.Authenticate)
	auth.RegisterMeRoute(authGroup, authService)

	// Libraries, entries, permission management, and ownership transfer all
	// hang off /libraries and require authentication.
	librariesGroup := e.Group("/libraries")
	librariesGroup.Use(authMiddleware.Authenticate)
	libraries.RegisterRoutesWithGroup(librariesGroup, db, cfg)
	permissions.RegisterRoutesWithGroup(librariesGroup, db)

	operationsGroup := e.Group("/operations")
	operationsGroup.Use(authMiddleware.Authenticate)
	operations.RegisterRoutesWithGroup(operationsGroup, db, cfg)

	aliasesGroup := e.Group("/aliases")
	aliasesGroup.Use(authMiddleware.Authenticate)
	bibcodes.RegisterRoutesWithGroup(aliasesGroup, db)

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
