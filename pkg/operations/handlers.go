package operations

import (
	"net/http"

	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	operationsService *Service
}

func (h *handler) combine(c echo.Context) error {
	ctx := c.Request().Context()

	params := CombinePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	description := ""
	if params.Description != nil {
		description = *params.Description
	}

	library, err := h.operationsService.Combine(ctx, CombineOptions{
		Op:           params.Op,
		LibraryIDs:   params.Libraries,
		ActingUserID: user.ID,
		Name:         params.Name,
		Description:  description,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, library))
}
