package permissions

import (
	"net/http"

	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/models"
	"github.com/bibstack/bibstack/pkg/users"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	permissionsService *Service
	usersService       *users.Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	permissions, err := h.permissionsService.ListPermissions(ctx, c.Param("id"), user.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"permissions": permissions,
	}))
}

func (h *handler) grant(c echo.Context) error {
	ctx := c.Request().Context()

	params := GrantPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	target, err := h.usersService.RetrieveByUsername(ctx, params.Username)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.permissionsService.Grant(ctx, c.Param("id"), user.ID, target.ID, models.Role(params.Role))
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) revoke(c echo.Context) error {
	ctx := c.Request().Context()

	params := RevokePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	target, err := h.usersService.RetrieveByUsername(ctx, params.Username)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.permissionsService.Revoke(ctx, c.Param("id"), user.ID, target.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) transfer(c echo.Context) error {
	ctx := c.Request().Context()

	params := TransferPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	target, err := h.usersService.RetrieveByUsername(ctx, params.Username)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.permissionsService.TransferOwnership(ctx, c.Param("id"), user.ID, target.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
