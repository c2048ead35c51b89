package permissions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/migrations"
	"github.com/bibstack/bibstack/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createTestUser(t *testing.T, db *bun.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		Username:     username,
		PasswordHash: "test",
		IsActive:     true,
	}
	_, err := db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}

func createTestLibrary(t *testing.T, db *bun.DB, ownerID int, name, visibility string) *models.Library {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	library := &models.Library{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
		Name:       name,
		Visibility: visibility,
		OwnerID:    ownerID,
		Revision:   1,
	}
	_, err := db.NewInsert().Model(library).Exec(ctx)
	require.NoError(t, err)

	permission := &models.Permission{
		CreatedAt: now,
		UpdatedAt: now,
		LibraryID: library.ID,
		UserID:    ownerID,
		Role:      models.RoleOwner,
	}
	_, err = db.NewInsert().Model(permission).Exec(ctx)
	require.NoError(t, err)

	return library
}

func ownerRowCount(t *testing.T, db *bun.DB, libraryID string) int {
	t.Helper()
	count, err := db.NewSelect().
		Model((*models.Permission)(nil)).
		Where("library_id = ?", libraryID).
		Where("role = ?", models.RoleOwner).
		Count(context.Background())
	require.NoError(t, err)
	return count
}

func TestService_RoleOf(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	stranger := createTestUser(t, db, "stranger")

	private := createTestLibrary(t, db, owner.ID, "Private", models.VisibilityPrivate)
	public := createTestLibrary(t, db, owner.ID, "Public", models.VisibilityPublic)

	t.Run("owner holds the owner role", func(t *testing.T) {
		role, err := svc.RoleOf(ctx, private.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleOwner, role)
	})

	t.Run("stranger has no role on a private library", func(t *testing.T) {
		role, err := svc.RoleOf(ctx, private.ID, stranger.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleNone, role)
	})

	t.Run("public library grants implicit read", func(t *testing.T) {
		role, err := svc.RoleOf(ctx, public.ID, stranger.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleRead, role)
	})

	t.Run("explicit grant outranks the implicit public role", func(t *testing.T) {
		require.NoError(t, svc.Grant(ctx, public.ID, owner.ID, stranger.ID, models.RoleWrite))

		role, err := svc.RoleOf(ctx, public.ID, stranger.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleWrite, role)
	})

	t.Run("unknown library is not found", func(t *testing.T) {
		_, err := svc.RoleOf(ctx, uuid.NewString(), owner.ID)
		require.ErrorIs(t, err, errcodes.NotFound("Library"))
	})
}

func TestService_Grant(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	admin := createTestUser(t, db, "admin")
	writer := createTestUser(t, db, "writer")
	reader := createTestUser(t, db, "reader")

	library := createTestLibrary(t, db, owner.ID, "Shared", models.VisibilityPrivate)

	require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, admin.ID, models.RoleAdmin))
	require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, writer.ID, models.RoleWrite))

	t.Run("admin can grant roles below admin", func(t *testing.T) {
		require.NoError(t, svc.Grant(ctx, library.ID, admin.ID, reader.ID, models.RoleRead))

		role, err := svc.RoleOf(ctx, library.ID, reader.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleRead, role)
	})

	t.Run("regrant overwrites the existing role", func(t *testing.T) {
		require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, reader.ID, models.RoleWrite))

		role, err := svc.RoleOf(ctx, library.ID, reader.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleWrite, role)
	})

	t.Run("admin cannot grant admin", func(t *testing.T) {
		err := svc.Grant(ctx, library.ID, admin.ID, reader.ID, models.RoleAdmin)
		require.ErrorIs(t, err, errcodes.InvalidRoleEscalation("admin"))
	})

	t.Run("owner role can never be granted", func(t *testing.T) {
		err := svc.Grant(ctx, library.ID, owner.ID, reader.ID, models.RoleOwner)
		require.ErrorIs(t, err, errcodes.InvalidRoleEscalation("owner"))
		assert.Equal(t, 1, ownerRowCount(t, db, library.ID))
	})

	t.Run("write holder cannot grant at all", func(t *testing.T) {
		err := svc.Grant(ctx, library.ID, writer.ID, reader.ID, models.RoleRead)
		require.ErrorIs(t, err, errcodes.PermissionDenied())
	})

	t.Run("admin cannot demote another admin", func(t *testing.T) {
		admin2 := createTestUser(t, db, "admin2")
		require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, admin2.ID, models.RoleAdmin))

		err := svc.Grant(ctx, library.ID, admin.ID, admin2.ID, models.RoleRead)
		require.ErrorIs(t, err, errcodes.PermissionDenied())
	})

	t.Run("granting over the owner row is forbidden", func(t *testing.T) {
		err := svc.Grant(ctx, library.ID, admin.ID, owner.ID, models.RoleRead)
		require.ErrorIs(t, err, errcodes.OwnerRevocationForbidden())
	})

	t.Run("unknown target user is not found", func(t *testing.T) {
		err := svc.Grant(ctx, library.ID, owner.ID, 99999, models.RoleRead)
		require.ErrorIs(t, err, errcodes.NotFound("User"))
	})
}

func TestService_Revoke(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	admin := createTestUser(t, db, "admin")
	reader := createTestUser(t, db, "reader")

	library := createTestLibrary(t, db, owner.ID, "Shared", models.VisibilityPrivate)

	require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, admin.ID, models.RoleAdmin))
	require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, reader.ID, models.RoleRead))

	t.Run("admin can revoke a lower role", func(t *testing.T) {
		require.NoError(t, svc.Revoke(ctx, library.ID, admin.ID, reader.ID))

		role, err := svc.RoleOf(ctx, library.ID, reader.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleNone, role)
	})

	t.Run("revoking an absent permission is not found", func(t *testing.T) {
		err := svc.Revoke(ctx, library.ID, admin.ID, reader.ID)
		require.ErrorIs(t, err, errcodes.NotFound("Permission"))
	})

	t.Run("admin cannot revoke a peer admin", func(t *testing.T) {
		admin2 := createTestUser(t, db, "admin2")
		require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, admin2.ID, models.RoleAdmin))

		err := svc.Revoke(ctx, library.ID, admin.ID, admin2.ID)
		require.ErrorIs(t, err, errcodes.PermissionDenied())

		role, err := svc.RoleOf(ctx, library.ID, admin2.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, role)
	})

	t.Run("the owner row cannot be revoked", func(t *testing.T) {
		err := svc.Revoke(ctx, library.ID, admin.ID, owner.ID)
		require.ErrorIs(t, err, errcodes.OwnerRevocationForbidden())
		assert.Equal(t, 1, ownerRowCount(t, db, library.ID))
	})

	t.Run("non-admin cannot revoke", func(t *testing.T) {
		writer := createTestUser(t, db, "writer")
		require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, writer.ID, models.RoleWrite))

		err := svc.Revoke(ctx, library.ID, writer.ID, admin.ID)
		require.ErrorIs(t, err, errcodes.PermissionDenied())
	})
}

func TestService_TransferOwnership(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	t.Run("owner moves and previous owner becomes admin", func(t *testing.T) {
		owner := createTestUser(t, db, "owner1")
		next := createTestUser(t, db, "next1")
		library := createTestLibrary(t, db, owner.ID, "Transferable", models.VisibilityPrivate)

		require.NoError(t, svc.TransferOwnership(ctx, library.ID, owner.ID, next.ID))

		role, err := svc.RoleOf(ctx, library.ID, next.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleOwner, role)

		role, err = svc.RoleOf(ctx, library.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, role)

		assert.Equal(t, 1, ownerRowCount(t, db, library.ID))

		reloaded := &models.Library{}
		require.NoError(t, db.NewSelect().Model(reloaded).Where("l.id = ?", library.ID).Scan(ctx))
		assert.Equal(t, next.ID, reloaded.OwnerID)
		assert.Greater(t, reloaded.Revision, library.Revision)
	})

	t.Run("transfer to an existing collaborator keeps one owner", func(t *testing.T) {
		owner := createTestUser(t, db, "owner2")
		next := createTestUser(t, db, "next2")
		library := createTestLibrary(t, db, owner.ID, "Collab", models.VisibilityPrivate)

		require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, next.ID, models.RoleRead))
		require.NoError(t, svc.TransferOwnership(ctx, library.ID, owner.ID, next.ID))

		assert.Equal(t, 1, ownerRowCount(t, db, library.ID))
	})

	t.Run("only the owner can transfer", func(t *testing.T) {
		owner := createTestUser(t, db, "owner3")
		admin := createTestUser(t, db, "admin3")
		library := createTestLibrary(t, db, owner.ID, "Held", models.VisibilityPrivate)

		require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, admin.ID, models.RoleAdmin))

		err := svc.TransferOwnership(ctx, library.ID, admin.ID, owner.ID)
		require.ErrorIs(t, err, errcodes.NotOwner())
	})

	t.Run("self-transfer is a no-op", func(t *testing.T) {
		owner := createTestUser(t, db, "owner4")
		library := createTestLibrary(t, db, owner.ID, "Self", models.VisibilityPrivate)

		require.NoError(t, svc.TransferOwnership(ctx, library.ID, owner.ID, owner.ID))
		assert.Equal(t, 1, ownerRowCount(t, db, library.ID))
	})

	t.Run("transfer to an unknown user fails", func(t *testing.T) {
		owner := createTestUser(t, db, "owner5")
		library := createTestLibrary(t, db, owner.ID, "Unknown", models.VisibilityPrivate)

		err := svc.TransferOwnership(ctx, library.ID, owner.ID, 99999)
		require.ErrorIs(t, err, errcodes.NotFound("User"))
	})
}

func TestService_ListPermissions(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	reader := createTestUser(t, db, "reader")
	library := createTestLibrary(t, db, owner.ID, "Listed", models.VisibilityPrivate)

	require.NoError(t, svc.Grant(ctx, library.ID, owner.ID, reader.ID, models.RoleRead))

	t.Run("admin sees every permission row", func(t *testing.T) {
		permissions, err := svc.ListPermissions(ctx, library.ID, owner.ID)
		require.NoError(t, err)
		require.Len(t, permissions, 2)
		assert.NotNil(t, permissions[0].User)
	})

	t.Run("reader cannot list permissions", func(t *testing.T) {
		_, err := svc.ListPermissions(ctx, library.ID, reader.ID)
		require.ErrorIs(t, err, errcodes.PermissionDenied())
	})
}
