package libraries

import (
	"github.com/bibstack/bibstack/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers library routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) {
	librariesService := NewService(db, cfg)

	h := &handler{
		librariesService: librariesService,
	}

	// Library CRUD
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)

	// Entries
	g.GET("/:id/entries", h.listEntries)
	g.POST("/:id/entries", h.addEntries)
	g.DELETE("/:id/entries", h.removeEntries)
	g.POST("/:id/entries/copy", h.copyEntries)
	g.DELETE("/:id/entries/all", h.emptyLibrary)

	// Notes
	g.GET("/:id/entries/:bibcode/note", h.getNote)
	g.POST("/:id/entries/:bibcode/note", h.addNote)
	g.PUT("/:id/entries/:bibcode/note", h.updateNote)
	g.DELETE("/:id/entries/:bibcode/note", h.deleteNote)
}
