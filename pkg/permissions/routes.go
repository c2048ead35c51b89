package permissions

import (
	"github.com/bibstack/bibstack/pkg/users"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers permission routes on the libraries group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		permissionsService: NewService(db),
		usersService:       users.NewService(db),
	}

	g.GET("/:id/permissions", h.list)
	g.POST("/:id/permissions", h.grant)
	g.DELETE("/:id/permissions", h.revoke)
	g.POST("/:id/transfer", h.transfer)
}
