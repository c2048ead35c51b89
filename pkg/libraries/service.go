package libraries

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bibstack/bibstack/pkg/bibcodes"
	"github.com/bibstack/bibstack/pkg/config"
	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/models"
	"github.com/bibstack/bibstack/pkg/permissions"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type Service struct {
	db       *bun.DB
	cfg      *config.Config
	resolver *bibcodes.Resolver
	perms    *permissions.Service
}

func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{
		db:       db,
		cfg:      cfg,
		resolver: bibcodes.NewResolver(db),
		perms:    permissions.NewService(db),
	}
}

type CreateLibraryOptions struct {
	OwnerID     int
	Name        string
	Description string
	Visibility  string
}

// CreateLibrary creates the library row and its owner permission row as one
// atomic unit. Neither can exist without the other.
func (svc *Service) CreateLibrary(ctx context.Context, opts CreateLibraryOptions) (*models.Library, error) {
	if err := validateMetadata(opts.Name, opts.Description); err != nil {
		return nil, err
	}

	visibility := opts.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}
	if visibility != models.VisibilityPublic && visibility != models.VisibilityPrivate {
		return nil, errcodes.ValidationError("\"visibility\" must be one of: \"public\", \"private\"")
	}

	now := time.Now()
	library := &models.Library{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Name:        strings.TrimSpace(opts.Name),
		Description: opts.Description,
		Visibility:  visibility,
		OwnerID:     opts.OwnerID,
		Revision:    1,
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.checkNameUnique(ctx, tx, library.Name, opts.OwnerID, ""); err != nil {
			return err
		}

		_, err := tx.NewInsert().Model(library).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		permission := &models.Permission{
			CreatedAt: now,
			UpdatedAt: now,
			LibraryID: library.ID,
			UserID:    opts.OwnerID,
			Role:      models.RoleOwner,
		}
		_, err = tx.NewInsert().Model(permission).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return library, nil
}

// RetrieveLibrary returns the library with its entry count and the
// requesting user's effective role. Requires read, implicit or explicit.
func (svc *Service) RetrieveLibrary(ctx context.Context, libraryID string, userID int) (*models.Library, models.Role, error) {
	role, err := svc.perms.RoleOf(ctx, libraryID, userID)
	if err != nil {
		return nil, models.RoleNone, err
	}
	if !role.AtLeast(models.RoleRead) {
		return nil, models.RoleNone, errcodes.PermissionDenied()
	}

	library := &models.Library{}
	err = svc.db.NewSelect().
		Model(library).
		ColumnExpr("l.*").
		ColumnExpr("(SELECT COUNT(*) FROM entries WHERE library_id = l.id) AS entry_count").
		Relation("Owner").
		Where("l.id = ?", libraryID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.RoleNone, errcodes.NotFound("Library")
		}
		return nil, models.RoleNone, errors.WithStack(err)
	}

	return library, role, nil
}

type ListLibrariesOptions struct {
	UserID int
	Limit  *int
	Offset *int
}

// ListLibraries returns the libraries the user owns or holds an explicit
// permission on, ordered by name.
func (svc *Service) ListLibraries(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	var libraries []*models.Library

	q := svc.db.NewSelect().
		Model(&libraries).
		ColumnExpr("l.*").
		ColumnExpr("(SELECT COUNT(*) FROM entries WHERE library_id = l.id) AS entry_count").
		Where("l.id IN (SELECT library_id FROM permissions WHERE user_id = ?)", opts.UserID).
		Order("l.name ASC")

	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return libraries, total, nil
}

type UpdateMetadataOptions struct {
	LibraryID        string
	ActingUserID     int
	Name             *string
	Description      *string
	Visibility       *string
	ExpectedRevision *int64
}

// UpdateMetadata changes name, description, or visibility. Requires admin.
func (svc *Service) UpdateMetadata(ctx context.Context, opts UpdateMetadataOptions) (*models.Library, error) {
	if opts.Name == nil && opts.Description == nil && opts.Visibility == nil {
		return nil, errcodes.ValidationError("Nothing to update")
	}

	library := &models.Library{}
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.perms.WithTx(tx).Require(ctx, opts.LibraryID, opts.ActingUserID, models.RoleAdmin); err != nil {
			return err
		}

		if err := svc.lockLibrary(ctx, tx, library, opts.LibraryID, opts.ExpectedRevision); err != nil {
			return err
		}

		if opts.Name != nil {
			name := strings.TrimSpace(*opts.Name)
			if err := validateMetadata(name, library.Description); err != nil {
				return err
			}
			if !strings.EqualFold(name, library.Name) {
				if err := svc.checkNameUnique(ctx, tx, name, library.OwnerID, library.ID); err != nil {
					return err
				}
			}
			library.Name = name
		}
		if opts.Description != nil {
			if err := validateMetadata(library.Name, *opts.Description); err != nil {
				return err
			}
			library.Description = *opts.Description
		}
		if opts.Visibility != nil {
			if *opts.Visibility != models.VisibilityPublic && *opts.Visibility != models.VisibilityPrivate {
				return errcodes.ValidationError("\"visibility\" must be one of: \"public\", \"private\"")
			}
			library.Visibility = *opts.Visibility
		}

		library.UpdatedAt = time.Now()
		library.Revision++

		_, err := tx.NewUpdate().
			Model(library).
			Column("name", "description", "visibility", "updated_at", "revision").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return library, nil
}

// DeleteLibrary removes the library and cascades to its permission and entry
// rows. Requires owner.
func (svc *Service) DeleteLibrary(ctx context.Context, libraryID string, actingUserID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.perms.WithTx(tx).Require(ctx, libraryID, actingUserID, models.RoleOwner); err != nil {
			return err
		}

		// Explicit cascade; the schema's ON DELETE CASCADE only applies when
		// the connection enforces foreign keys.
		_, err := tx.NewDelete().
			Model((*models.Entry)(nil)).
			Where("library_id = ?", libraryID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Permission)(nil)).
			Where("library_id = ?", libraryID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Library)(nil)).
			Where("id = ?", libraryID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

type AddEntriesOptions struct {
	LibraryID        string
	ActingUserID     int
	Bibcodes         []string
	Tags             []string
	ExpectedRevision *int64
}

// AddEntries canonicalizes each raw bibcode and inserts it into the library.
// A bibcode that is already present, directly or via an alias, is not an
// error: the supplied tags are unioned into the existing entry's tag set.
// Returns the number of entries that did not previously exist.
func (svc *Service) AddEntries(ctx context.Context, opts AddEntriesOptions) (int, error) {
	if len(opts.Bibcodes) == 0 {
		return 0, nil
	}
	if len(opts.Bibcodes) > svc.cfg.MaxBibcodesPerRequest {
		return 0, errcodes.ValidationError("Too many bibcodes in one request")
	}

	added := 0
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.perms.WithTx(tx).Require(ctx, opts.LibraryID, opts.ActingUserID, models.RoleWrite); err != nil {
			return err
		}

		library := &models.Library{}
		if err := svc.lockLibrary(ctx, tx, library, opts.LibraryID, opts.ExpectedRevision); err != nil {
			return err
		}

		canonical, err := svc.resolver.WithTx(tx).CanonicalizeAll(ctx, opts.Bibcodes)
		if err != nil {
			return err
		}

		tags := models.NewTagSet(opts.Tags)
		now := time.Now()

		var existing []*models.Entry
		err = tx.NewSelect().
			Model(&existing).
			Where("e.library_id = ?", opts.LibraryID).
			Where("e.bibcode IN (?)", bun.In(canonical)).
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		existingFor := make(map[string]*models.Entry, len(existing))
		for _, entry := range existing {
			existingFor[entry.Bibcode] = entry
		}

		inserts := make([]*models.Entry, 0, len(canonical))
		for _, bibcode := range canonical {
			entry, ok := existingFor[bibcode]
			if !ok {
				inserts = append(inserts, &models.Entry{
					CreatedAt: now,
					UpdatedAt: now,
					LibraryID: opts.LibraryID,
					Bibcode:   bibcode,
					Tags:      tags,
				})
				continue
			}

			merged := entry.Tags.Union(tags)
			if len(merged) == len(entry.Tags) {
				continue
			}
			entry.Tags = merged
			entry.UpdatedAt = now
			_, err = tx.NewUpdate().
				Model(entry).
				Column("tags", "updated_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		if len(inserts) > 0 {
			_, err = tx.NewInsert().Model(&inserts).Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			added = len(inserts)
		}

		return svc.bumpRevision(ctx, tx, opts.LibraryID, now)
	})
	if err != nil {
		return 0, err
	}

	return added, nil
}

type RemoveEntriesOptions struct {
	LibraryID        string
	ActingUserID     int
	Bibcodes         []string
	ExpectedRevision *int64
}

// RemoveEntries deletes the given bibcodes from the library. Raw input is
// canonicalized first, so removing an alias removes the canonical entry.
// Absent bibcodes are a no-op. Returns the number of entries removed.
func (svc *Service) RemoveEntries(ctx context.Context, opts RemoveEntriesOptions) (int, error) {
	if len(opts.Bibcodes) == 0 {
		return 0, nil
	}
	if len(opts.Bibcodes) > svc.cfg.MaxBibcodesPerRequest {
		return 0, errcodes.ValidationError("Too many bibcodes in one request")
	}

	removed := 0
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.perms.WithTx(tx).Require(ctx, opts.LibraryID, opts.ActingUserID, models.RoleWrite); err != nil {
			return err
		}

		library := &models.Library{}
		if err := svc.lockLibrary(ctx, tx, library, opts.LibraryID, opts.ExpectedRevision); err != nil {
			return err
		}

		canonical, err := svc.resolver.WithTx(tx).CanonicalizeAll(ctx, opts.Bibcodes)
		if err != nil {
			return err
		}

		result, err := tx.NewDelete().
			Model((*models.Entry)(nil)).
			Where("library_id = ?", opts.LibraryID).
			Where("bibcode IN (?)", bun.In(canonical)).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		removed = int(affected)

		return svc.bumpRevision(ctx, tx, opts.LibraryID, time.Now())
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

// EmptyLibrary removes every entry from the library. Requires write.
func (svc *Service) EmptyLibrary(ctx context.Context, libraryID string, actingUserID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.perms.WithTx(tx).Require(ctx, libraryID, actingUserID, models.RoleWrite); err != nil {
			return err
		}

		library := &models.Library{}
		if err := svc.lockLibrary(ctx, tx, library, libraryID, nil); err != nil {
			return err
		}

		_, err := tx.NewDelete().
			Model((*models.Entry)(nil)).
			Where("library_id = ?", libraryID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return svc.bumpRevision(ctx, tx, libraryID, time.Now())
	})
}

type CopyEntriesOptions struct {
	SourceID     string
	DestID       string
	ActingUserID int
}

// CopyEntries unions the source library's entries into the destination
// without clearing it first. Requires read on the source and write on the
// destination. The source is never mutated.
func (svc *Service) CopyEntries(ctx context.Context, opts CopyEntriesOptions) (int, error) {
	if opts.SourceID == opts.DestID {
		return 0, errcodes.ValidationError("Cannot copy a library into itself")
	}

	copied := 0
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		txPerms := svc.perms.WithTx(tx)
		if err := txPerms.Require(ctx, opts.SourceID, opts.ActingUserID, models.RoleRead); err != nil {
			return err
		}
		if err := txPerms.Require(ctx, opts.DestID, opts.ActingUserID, models.RoleWrite); err != nil {
			return err
		}

		var source []*models.Entry
		err := tx.NewSelect().
			Model(&source).
			Where("e.library_id = ?", opts.SourceID).
			Order("e.bibcode ASC").
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if len(source) == 0 {
			return nil
		}

		var existing []*models.Entry
		err = tx.NewSelect().
			Model(&existing).
			Where("e.library_id = ?", opts.DestID).
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		existingFor := make(map[string]*models.Entry, len(existing))
		for _, entry := range existing {
			existingFor[entry.Bibcode] = entry
		}

		now := time.Now()
		inserts := make([]*models.Entry, 0, len(source))
		for _, entry := range source {
			dest, ok := existingFor[entry.Bibcode]
			if !ok {
				inserts = append(inserts, &models.Entry{
					CreatedAt: now,
					UpdatedAt: now,
					LibraryID: opts.DestID,
					Bibcode:   entry.Bibcode,
					Tags:      entry.Tags,
				})
				continue
			}

			merged := dest.Tags.Union(entry.Tags)
			if len(merged) == len(dest.Tags) {
				continue
			}
			dest.Tags = merged
			dest.UpdatedAt = now
			_, err = tx.NewUpdate().
				Model(dest).
				Column("tags", "updated_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		if len(inserts) > 0 {
			_, err = tx.NewInsert().Model(&inserts).Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			copied = len(inserts)
		}

		return svc.bumpRevision(ctx, tx, opts.DestID, now)
	})
	if err != nil {
		return 0, err
	}

	return copied, nil
}

type ListEntriesOptions struct {
	LibraryID string
	UserID    int
	Page      int
	PageSize  int
}

// ListEntries returns one page of the library's entries ordered by bibcode
// ascending, plus the total count. Requires read, which a public library
// grants implicitly.
func (svc *Service) ListEntries(ctx context.Context, opts ListEntriesOptions) ([]*models.Entry, int, error) {
	if err := svc.perms.Require(ctx, opts.LibraryID, opts.UserID, models.RoleRead); err != nil {
		return nil, 0, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var entries []*models.Entry
	total, err := svc.db.NewSelect().
		Model(&entries).
		Where("e.library_id = ?", opts.LibraryID).
		Order("e.bibcode ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return entries, total, nil
}

// lockLibrary loads the library row inside the transaction and enforces the
// optional optimistic-concurrency check.
func (svc *Service) lockLibrary(ctx context.Context, tx bun.Tx, library *models.Library, libraryID string, expectedRevision *int64) error {
	err := tx.NewSelect().
		Model(library).
		Where("l.id = ?", libraryID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Library")
		}
		return errors.WithStack(err)
	}

	if expectedRevision != nil && *expectedRevision != library.Revision {
		return errcodes.ConcurrentModification()
	}

	return nil
}

func (svc *Service) bumpRevision(ctx context.Context, tx bun.Tx, libraryID string, now time.Time) error {
	_, err := tx.NewUpdate().
		Model((*models.Library)(nil)).
		Set("revision = revision + 1").
		Set("updated_at = ?", now).
		Where("id = ?", libraryID).
		Exec(ctx)
	return errors.WithStack(err)
}

// checkNameUnique applies the configured name-uniqueness policy. excludeID
// skips the library being renamed.
func (svc *Service) checkNameUnique(ctx context.Context, tx bun.Tx, name string, ownerID int, excludeID string) error {
	q := tx.NewSelect().
		Model((*models.Library)(nil)).
		Where("l.name = ? COLLATE NOCASE", name)

	switch svc.cfg.LibraryNameUniqueness {
	case config.NameUniquenessOwner:
		q = q.Where("l.owner_id = ?", ownerID)
	case config.NameUniquenessGlobal:
	default:
		return nil
	}

	if excludeID != "" {
		q = q.Where("l.id != ?", excludeID)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if count > 0 {
		return errcodes.DuplicateName(name)
	}

	return nil
}

func validateMetadata(name, description string) error {
	if strings.TrimSpace(name) == "" {
		return errcodes.ValidationError("\"name\" is required")
	}
	if utf8.RuneCountInString(name) > models.LibraryNameMaxLength {
		return errcodes.ValidationError("\"name\" length must be less than or equal to 50 characters")
	}
	if utf8.RuneCountInString(description) > models.LibraryDescriptionMaxLength {
		return errcodes.ValidationError("\"description\" length must be less than or equal to 200 characters")
	}
	return nil
}
