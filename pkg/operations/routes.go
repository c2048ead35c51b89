package operations

import (
	"github.com/bibstack/bibstack/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers set operation routes on a pre-configured
// group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) {
	h := &handler{
		operationsService: NewService(db, cfg),
	}

	g.POST("/combine", h.combine)
}
