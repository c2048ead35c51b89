package bibcodes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	resolver *Resolver
}

func (h *handler) registerAlias(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterAliasPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	err := h.resolver.RegisterAlias(ctx, params.Alternate, params.Canonical)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) resolve(c echo.Context) error {
	ctx := c.Request().Context()

	params := ResolveQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	canonical, err := h.resolver.Canonicalize(ctx, params.Bibcode)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"bibcode":   Normalize(params.Bibcode),
		"canonical": canonical,
	}))
}
