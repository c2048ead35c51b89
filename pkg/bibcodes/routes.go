package bibcodes

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers alias curation routes on a
// pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		resolver: NewResolver(db),
	}

	g.POST("", h.registerAlias)
	g.GET("/resolve", h.resolve)
}
