// Package permissions stores and evaluates per-library roles. Every other
// component routes its authorization decisions through Check so that the
// implicit public-read rule lives in exactly one place.
package permissions

import (
	"context"
	"database/sql"
	"time"

	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// WithTx returns a Service bound to the given transaction so that permission
// checks and mutations join the caller's atomic unit.
func (svc *Service) WithTx(tx bun.Tx) *Service {
	return &Service{tx}
}

// RoleOf returns the effective role a user holds on a library. An explicit
// permission row wins; without one, a public library grants read and a
// private library grants nothing.
func (svc *Service) RoleOf(ctx context.Context, libraryID string, userID int) (models.Role, error) {
	library := &models.Library{}
	err := svc.db.NewSelect().
		Model(library).
		Column("l.id", "l.visibility").
		Where("l.id = ?", libraryID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RoleNone, errcodes.NotFound("Library")
		}
		return models.RoleNone, errors.WithStack(err)
	}

	permission := &models.Permission{}
	err = svc.db.NewSelect().
		Model(permission).
		Where("p.library_id = ? AND p.user_id = ?", libraryID, userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if library.Public() {
				return models.RoleRead, nil
			}
			return models.RoleNone, nil
		}
		return models.RoleNone, errors.WithStack(err)
	}

	return permission.Role, nil
}

// Check is the single predicate every component calls before touching a
// library.
func (svc *Service) Check(ctx context.Context, libraryID string, userID int, required models.Role) (bool, error) {
	role, err := svc.RoleOf(ctx, libraryID, userID)
	if err != nil {
		return false, err
	}
	return role.AtLeast(required), nil
}

// Require returns PermissionDenied when the user does not hold the required
// role.
func (svc *Service) Require(ctx context.Context, libraryID string, userID int, required models.Role) error {
	ok, err := svc.Check(ctx, libraryID, userID, required)
	if err != nil {
		return err
	}
	if !ok {
		return errcodes.PermissionDenied()
	}
	return nil
}

// ListPermissions returns all permission rows for a library. Requires admin.
func (svc *Service) ListPermissions(ctx context.Context, libraryID string, actingUserID int) ([]*models.Permission, error) {
	if err := svc.Require(ctx, libraryID, actingUserID, models.RoleAdmin); err != nil {
		return nil, err
	}

	var perms []*models.Permission
	err := svc.db.NewSelect().
		Model(&perms).
		Relation("User").
		Where("p.library_id = ?", libraryID).
		Order("p.created_at ASC").
		Scan(ctx)
	return perms, errors.WithStack(err)
}

// Grant gives targetUser a role on the library. The acting user must hold at
// least admin, and may only hand out roles strictly below their own; only
// the dedicated transfer operation can move the owner role.
func (svc *Service) Grant(ctx context.Context, libraryID string, actingUserID, targetUserID int, role models.Role) error {
	if !role.Valid() {
		return errcodes.ValidationError("\"" + string(role) + "\" is not a valid role")
	}

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		txSvc := svc.WithTx(tx)

		actorRole, err := txSvc.RoleOf(ctx, libraryID, actingUserID)
		if err != nil {
			return err
		}
		if !actorRole.AtLeast(models.RoleAdmin) {
			return errcodes.PermissionDenied()
		}

		// Owner only moves via transfer; everything else must be strictly
		// below the actor's own role.
		if role == models.RoleOwner {
			return errcodes.InvalidRoleEscalation(string(role))
		}
		if !role.Below(actorRole) {
			return errcodes.InvalidRoleEscalation(string(role))
		}

		count, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("u.id = ?", targetUserID).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if count == 0 {
			return errcodes.NotFound("User")
		}

		targetRole, err := txSvc.explicitRole(ctx, libraryID, targetUserID)
		if err != nil {
			return err
		}
		if targetRole == models.RoleOwner {
			return errcodes.OwnerRevocationForbidden()
		}
		// An actor cannot reshape the permissions of a peer holding an equal
		// or higher role.
		if !targetRole.Below(actorRole) {
			return errcodes.PermissionDenied()
		}

		now := time.Now()
		permission := &models.Permission{
			CreatedAt: now,
			UpdatedAt: now,
			LibraryID: libraryID,
			UserID:    targetUserID,
			Role:      role,
		}
		_, err = tx.NewInsert().
			Model(permission).
			On("CONFLICT (library_id, user_id) DO UPDATE").
			Set("role = EXCLUDED.role").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// Revoke removes targetUser's explicit role. Revoking the owner is always
// rejected; ownership only moves via transfer.
func (svc *Service) Revoke(ctx context.Context, libraryID string, actingUserID, targetUserID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		txSvc := svc.WithTx(tx)

		actorRole, err := txSvc.RoleOf(ctx, libraryID, actingUserID)
		if err != nil {
			return err
		}
		if !actorRole.AtLeast(models.RoleAdmin) {
			return errcodes.PermissionDenied()
		}

		targetRole, err := txSvc.explicitRole(ctx, libraryID, targetUserID)
		if err != nil {
			return err
		}
		if targetRole == models.RoleNone {
			return errcodes.NotFound("Permission")
		}
		if targetRole == models.RoleOwner {
			return errcodes.OwnerRevocationForbidden()
		}
		if !targetRole.Below(actorRole) {
			return errcodes.PermissionDenied()
		}

		_, err = tx.NewDelete().
			Model((*models.Permission)(nil)).
			Where("library_id = ? AND user_id = ?", libraryID, targetUserID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// TransferOwnership atomically demotes the current owner to admin and
// promotes newOwner to owner. No other transaction can observe a library
// with zero or two owners.
func (svc *Service) TransferOwnership(ctx context.Context, libraryID string, currentOwnerID, newOwnerID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		txSvc := svc.WithTx(tx)

		actorRole, err := txSvc.RoleOf(ctx, libraryID, currentOwnerID)
		if err != nil {
			return err
		}
		if actorRole != models.RoleOwner {
			return errcodes.NotOwner()
		}

		if currentOwnerID == newOwnerID {
			return nil
		}

		count, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("u.id = ?", newOwnerID).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if count == 0 {
			return errcodes.NotFound("User")
		}

		now := time.Now()

		// Demote first so the unique owner invariant holds at every point
		// inside the transaction.
		_, err = tx.NewUpdate().
			Model((*models.Permission)(nil)).
			Set("role = ?", models.RoleAdmin).
			Set("updated_at = ?", now).
			Where("library_id = ? AND user_id = ?", libraryID, currentOwnerID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		permission := &models.Permission{
			CreatedAt: now,
			UpdatedAt: now,
			LibraryID: libraryID,
			UserID:    newOwnerID,
			Role:      models.RoleOwner,
		}
		_, err = tx.NewInsert().
			Model(permission).
			On("CONFLICT (library_id, user_id) DO UPDATE").
			Set("role = EXCLUDED.role").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewUpdate().
			Model((*models.Library)(nil)).
			Set("owner_id = ?", newOwnerID).
			Set("updated_at = ?", now).
			Set("revision = revision + 1").
			Where("id = ?", libraryID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// explicitRole returns the stored role for the pair, or none when no row
// exists. Unlike RoleOf it never applies the public-read default.
func (svc *Service) explicitRole(ctx context.Context, libraryID string, userID int) (models.Role, error) {
	permission := &models.Permission{}
	err := svc.db.NewSelect().
		Model(permission).
		Where("p.library_id = ? AND p.user_id = ?", libraryID, userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RoleNone, nil
		}
		return models.RoleNone, errors.WithStack(err)
	}
	return permission.Role, nil
}
