package libraries

import (
	"context"
	"database/sql"
	"time"

	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Notes are free-text annotations attached to a single entry, at most one
// per bibcode per library. Reading a note needs read, attaching one needs
// write, rewriting one needs admin, removing one needs owner.

// GetNote returns the entry carrying the note for the given bibcode.
// Requires read.
func (svc *Service) GetNote(ctx context.Context, libraryID string, userID int, rawBibcode string) (*models.Entry, error) {
	if err := svc.perms.Require(ctx, libraryID, userID, models.RoleRead); err != nil {
		return nil, err
	}

	canonical, err := svc.resolver.Canonicalize(ctx, rawBibcode)
	if err != nil {
		return nil, err
	}

	entry := &models.Entry{}
	err = svc.db.NewSelect().
		Model(entry).
		Where("e.library_id = ?", libraryID).
		Where("e.bibcode = ?", canonical).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Entry")
		}
		return nil, errors.WithStack(err)
	}
	if entry.Note == nil {
		return nil, errcodes.NotFound("Note")
	}

	return entry, nil
}

type AddNoteOptions struct {
	LibraryID    string
	ActingUserID int
	Bibcode      string
	Content      string
}

// AddNote attaches a note to an entry that has none. Requires write. The
// bibcode must already be in the library; an existing note is a conflict,
// not an overwrite.
func (svc *Service) AddNote(ctx context.Context, opts AddNoteOptions) (*models.Entry, error) {
	entry := &models.Entry{}
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.perms.WithTx(tx).Require(ctx, opts.LibraryID, opts.ActingUserID, models.RoleWrite); err != nil {
			return err
		}

		canonical, err := svc.noteEntry(ctx, tx, entry, opts.LibraryID, opts.Bibcode)
		if err != nil {
			return err
		}
		if entry.Note != nil {
			return errcodes.DuplicateNote(canonical)
		}

		return svc.writeNote(ctx, tx, entry, &opts.Content)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

type UpdateNoteOptions struct {
	LibraryID    string
	ActingUserID int
	Bibcode      string
	Content      string
}

// UpdateNote replaces the content of an existing note. Requires admin.
func (svc *Service) UpdateNote(ctx context.Context, opts UpdateNoteOptions) (*models.Entry, error) {
	entry := &models.Entry{}
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.perms.WithTx(tx).Require(ctx, opts.LibraryID, opts.ActingUserID, models.RoleAdmin); err != nil {
			return err
		}

		if _, err := svc.noteEntry(ctx, tx, entry, opts.LibraryID, opts.Bibcode); err != nil {
			return err
		}
		if entry.Note == nil {
			return errcodes.NotFound("Note")
		}

		return svc.writeNote(ctx, tx, entry, &opts.Content)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// DeleteNote removes the note from an entry, leaving the entry itself in
// place. Requires owner.
func (svc *Service) DeleteNote(ctx context.Context, libraryID string, actingUserID int, rawBibcode string) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.perms.WithTx(tx).Require(ctx, libraryID, actingUserID, models.RoleOwner); err != nil {
			return err
		}

		entry := &models.Entry{}
		if _, err := svc.noteEntry(ctx, tx, entry, libraryID, rawBibcode); err != nil {
			return err
		}
		if entry.Note == nil {
			return errcodes.NotFound("Note")
		}

		return svc.writeNote(ctx, tx, entry, nil)
	})
}

// noteEntry canonicalizes the raw bibcode and loads its entry row inside the
// transaction.
func (svc *Service) noteEntry(ctx context.Context, tx bun.Tx, entry *models.Entry, libraryID, rawBibcode string) (string, error) {
	canonical, err := svc.resolver.WithTx(tx).Canonicalize(ctx, rawBibcode)
	if err != nil {
		return "", err
	}

	err = tx.NewSelect().
		Model(entry).
		Where("e.library_id = ?", libraryID).
		Where("e.bibcode = ?", canonical).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errcodes.NotFound("Entry")
		}
		return "", errors.WithStack(err)
	}

	return canonical, nil
}

func (svc *Service) writeNote(ctx context.Context, tx bun.Tx, entry *models.Entry, note *string) error {
	now := time.Now()
	entry.Note = note
	entry.UpdatedAt = now

	_, err := tx.NewUpdate().
		Model(entry).
		Column("note", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return svc.bumpRevision(ctx, tx, entry.LibraryID, now)
}
