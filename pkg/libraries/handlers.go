package libraries

import (
	"net/http"

	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	librariesService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListLibrariesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	libraries, total, err := h.librariesService.ListLibraries(ctx, ListLibrariesOptions{
		UserID: user.ID,
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"libraries": libraries,
		"total":     total,
	}))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	library, role, err := h.librariesService.RetrieveLibrary(ctx, c.Param("id"), user.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"library": library,
		"role":    role,
	}))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateLibraryPayload{}
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
	visibility := ""
	if params.Visibility != nil {
		visibility = *params.Visibility
	}

	library, err := h.librariesService.CreateLibrary(ctx, CreateLibraryOptions{
		OwnerID:     user.ID,
		Name:        params.Name,
		Description: description,
		Visibility:  visibility,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, library))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	library, err := h.librariesService.UpdateMetadata(ctx, UpdateMetadataOptions{
		LibraryID:        c.Param("id"),
		ActingUserID:     user.ID,
		Name:             params.Name,
		Description:      params.Description,
		Visibility:       params.Visibility,
		ExpectedRevision: params.ExpectedRevision,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	err := h.librariesService.DeleteLibrary(ctx, c.Param("id"), user.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Entry handlers

func (h *handler) listEntries(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListEntriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	entries, total, err := h.librariesService.ListEntries(ctx, ListEntriesOptions{
		LibraryID: c.Param("id"),
		UserID:    user.ID,
		Page:      params.Page,
		PageSize:  params.PageSize,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"entries":   entries,
		"total":     total,
		"page":      params.Page,
		"page_size": params.PageSize,
	}))
}

func (h *handler) addEntries(c echo.Context) error {
	ctx := c.Request().Context()

	params := AddEntriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	added, err := h.librariesService.AddEntries(ctx, AddEntriesOptions{
		LibraryID:        c.Param("id"),
		ActingUserID:     user.ID,
		Bibcodes:         params.Bibcodes,
		Tags:             params.Tags,
		ExpectedRevision: params.ExpectedRevision,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"added": added,
	}))
}

func (h *handler) removeEntries(c echo.Context) error {
	ctx := c.Request().Context()

	params := RemoveEntriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	removed, err := h.librariesService.RemoveEntries(ctx, RemoveEntriesOptions{
		LibraryID:        c.Param("id"),
		ActingUserID:     user.ID,
		Bibcodes:         params.Bibcodes,
		ExpectedRevision: params.ExpectedRevision,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"removed": removed,
	}))
}

func (h *handler) emptyLibrary(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	err := h.librariesService.EmptyLibrary(ctx, c.Param("id"), user.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Note handlers

func (h *handler) getNote(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	entry, err := h.librariesService.GetNote(ctx, c.Param("id"), user.ID, c.Param("bibcode"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"bibcode": entry.Bibcode,
		"note":    entry.Note,
	}))
}

func (h *handler) addNote(c echo.Context) error {
	ctx := c.Request().Context()

	params := NotePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	entry, err := h.librariesService.AddNote(ctx, AddNoteOptions{
		LibraryID:    c.Param("id"),
		ActingUserID: user.ID,
		Bibcode:      c.Param("bibcode"),
		Content:      params.Content,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, echo.Map{
		"bibcode": entry.Bibcode,
		"note":    entry.Note,
	}))
}

func (h *handler) updateNote(c echo.Context) error {
	ctx := c.Request().Context()

	params := NotePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	entry, err := h.librariesService.UpdateNote(ctx, UpdateNoteOptions{
		LibraryID:    c.Param("id"),
		ActingUserID: user.ID,
		Bibcode:      c.Param("bibcode"),
		Content:      params.Content,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"bibcode": entry.Bibcode,
		"note":    entry.Note,
	}))
}

func (h *handler) deleteNote(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	err := h.librariesService.DeleteNote(ctx, c.Param("id"), user.ID, c.Param("bibcode"))
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) copyEntries(c echo.Context) error {
	ctx := c.Request().Context()

	params := CopyEntriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("User not found in context")
	}

	copied, err := h.librariesService.CopyEntries(ctx, CopyEntriesOptions{
		SourceID:     c.Param("id"),
		DestID:       params.DestinationID,
		ActingUserID: user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"copied": copied,
	}))
}
