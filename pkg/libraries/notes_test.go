package libraries

import (
	"context"
	"testing"

	"github.com/bibstack/bibstack/pkg/bibcodes"
	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/models"
	"github.com/bibstack/bibstack/pkg/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Notes(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, testConfig())
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	library, err := svc.CreateLibrary(ctx, CreateLibraryOptions{OwnerID: owner.ID, Name: "Annotated"})
	require.NoError(t, err)

	_, err = svc.AddEntries(ctx, AddEntriesOptions{
		LibraryID:    library.ID,
		ActingUserID: owner.ID,
		Bibcodes:     []string{"2019ApJ...886...76D", "2020MNRAS.492.2285S"},
	})
	require.NoError(t, err)

	t.Run("attaches and reads a note", func(t *testing.T) {
		entry, err := svc.AddNote(ctx, AddNoteOptions{
			LibraryID:    library.ID,
			ActingUserID: owner.ID,
			Bibcode:      "2019ApJ...886...76D",
			Content:      "dust emission survey",
		})
		require.NoError(t, err)
		require.NotNil(t, entry.Note)
		assert.Equal(t, "dust emission survey", *entry.Note)

		got, err := svc.GetNote(ctx, library.ID, owner.ID, "2019ApJ...886...76D")
		require.NoError(t, err)
		assert.Equal(t, "dust emission survey", *got.Note)
	})

	t.Run("second note for the same entry conflicts", func(t *testing.T) {
		_, err := svc.AddNote(ctx, AddNoteOptions{
			LibraryID:    library.ID,
			ActingUserID: owner.ID,
			Bibcode:      "2019ApJ...886...76D",
			Content:      "another",
		})
		require.ErrorIs(t, err, errcodes.DuplicateNote("2019ApJ...886...76D"))

		got, err := svc.GetNote(ctx, library.ID, owner.ID, "2019ApJ...886...76D")
		require.NoError(t, err)
		assert.Equal(t, "dust emission survey", *got.Note)
	})

	t.Run("updates in place", func(t *testing.T) {
		entry, err := svc.UpdateNote(ctx, UpdateNoteOptions{
			LibraryID:    library.ID,
			ActingUserID: owner.ID,
			Bibcode:      "2019ApJ...886...76D",
			Content:      "revised after referee report",
		})
		require.NoError(t, err)
		assert.Equal(t, "revised after referee report", *entry.Note)
	})

	t.Run("updating an entry without a note is not found", func(t *testing.T) {
		_, err := svc.UpdateNote(ctx, UpdateNoteOptions{
			LibraryID:    library.ID,
			ActingUserID: owner.ID,
			Bibcode:      "2020MNRAS.492.2285S",
			Content:      "orphan",
		})
		require.ErrorIs(t, err, errcodes.NotFound("Note"))
	})

	t.Run("alias resolves to the canonical entry", func(t *testing.T) {
		resolver := bibcodes.NewResolver(db)
		require.NoError(t, resolver.RegisterAlias(ctx, "2019arXiv190905032D", "2019ApJ...886...76D"))

		got, err := svc.GetNote(ctx, library.ID, owner.ID, "2019arXiv190905032D")
		require.NoError(t, err)
		assert.Equal(t, "2019ApJ...886...76D", got.Bibcode)
	})

	t.Run("bibcode outside the library is not found", func(t *testing.T) {
		_, err := svc.GetNote(ctx, library.ID, owner.ID, "1975CMaPh..43..199H")
		require.ErrorIs(t, err, errcodes.NotFound("Entry"))
	})

	t.Run("writer adds but cannot update or delete", func(t *testing.T) {
		writer := createTestUser(t, db, "writer")
		require.NoError(t, permissions.NewService(db).Grant(ctx, library.ID, owner.ID, writer.ID, models.RoleWrite))

		_, err := svc.AddNote(ctx, AddNoteOptions{
			LibraryID:    library.ID,
			ActingUserID: writer.ID,
			Bibcode:      "2020MNRAS.492.2285S",
			Content:      "spectroscopy follow-up",
		})
		require.NoError(t, err)

		_, err = svc.UpdateNote(ctx, UpdateNoteOptions{
			LibraryID:    library.ID,
			ActingUserID: writer.ID,
			Bibcode:      "2020MNRAS.492.2285S",
			Content:      "rewrite",
		})
		require.ErrorIs(t, err, errcodes.PermissionDenied())

		err = svc.DeleteNote(ctx, library.ID, writer.ID, "2020MNRAS.492.2285S")
		require.ErrorIs(t, err, errcodes.PermissionDenied())
	})

	t.Run("admin updates but cannot delete", func(t *testing.T) {
		admin := createTestUser(t, db, "admin")
		require.NoError(t, permissions.NewService(db).Grant(ctx, library.ID, owner.ID, admin.ID, models.RoleAdmin))

		entry, err := svc.UpdateNote(ctx, UpdateNoteOptions{
			LibraryID:    library.ID,
			ActingUserID: admin.ID,
			Bibcode:      "2020MNRAS.492.2285S",
			Content:      "spectroscopy follow-up, see table 3",
		})
		require.NoError(t, err)
		assert.Equal(t, "spectroscopy follow-up, see table 3", *entry.Note)

		err = svc.DeleteNote(ctx, library.ID, admin.ID, "2020MNRAS.492.2285S")
		require.ErrorIs(t, err, errcodes.PermissionDenied())
	})

	t.Run("owner deletes the note, the entry survives", func(t *testing.T) {
		err := svc.DeleteNote(ctx, library.ID, owner.ID, "2019ApJ...886...76D")
		require.NoError(t, err)

		_, err = svc.GetNote(ctx, library.ID, owner.ID, "2019ApJ...886...76D")
		require.ErrorIs(t, err, errcodes.NotFound("Note"))

		_, total, err := svc.ListEntries(ctx, ListEntriesOptions{LibraryID: library.ID, UserID: owner.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})

	t.Run("deleting an absent note is not found", func(t *testing.T) {
		err := svc.DeleteNote(ctx, library.ID, owner.ID, "2019ApJ...886...76D")
		require.ErrorIs(t, err, errcodes.NotFound("Note"))
	})

	t.Run("stranger cannot read a private library's note", func(t *testing.T) {
		stranger := createTestUser(t, db, "stranger")
		_, err := svc.GetNote(ctx, library.ID, stranger.ID, "2020MNRAS.492.2285S")
		require.ErrorIs(t, err, errcodes.PermissionDenied())
	})

	t.Run("note changes bump the revision", func(t *testing.T) {
		before, _, err := svc.RetrieveLibrary(ctx, library.ID, owner.ID)
		require.NoError(t, err)

		_, err = svc.AddNote(ctx, AddNoteOptions{
			LibraryID:    library.ID,
			ActingUserID: owner.ID,
			Bibcode:      "2019ApJ...886...76D",
			Content:      "re-annotated",
		})
		require.NoError(t, err)

		after, _, err := svc.RetrieveLibrary(ctx, library.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, before.Revision+1, after.Revision)
	})
}
