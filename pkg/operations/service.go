// Package operations combines the entry sets of multiple libraries and
// materializes the result as a new library. Membership is always decided on
// canonical bibcodes, so two libraries holding different aliases of the same
// document combine correctly.
package operations

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bibstack/bibstack/pkg/config"
	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/models"
	"github.com/bibstack/bibstack/pkg/permissions"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Supported set operations.
const (
	OpUnion        = "union"
	OpIntersection = "intersection"
	OpDifference   = "difference"
)

type Service struct {
	db    *bun.DB
	cfg   *config.Config
	perms *permissions.Service
}

func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{
		db:    db,
		cfg:   cfg,
		perms: permissions.NewService(db),
	}
}

type CombineOptions struct {
	Op           string
	LibraryIDs   []string
	ActingUserID int
	Name         string
	Description  string
}

// Combine computes the set operation across the input libraries and writes
// the result as a brand-new private library owned by the acting user. The
// inputs are never mutated; read access is required on every one of them.
// Difference is the first library minus the union of the rest. Tags for a
// bibcode appearing in several inputs are unioned.
func (svc *Service) Combine(ctx context.Context, opts CombineOptions) (*models.Library, error) {
	switch opts.Op {
	case OpUnion, OpIntersection, OpDifference:
	default:
		return nil, errcodes.ValidationError("\"op\" must be one of the following: \"union\", \"intersection\", \"difference\"")
	}

	if len(opts.LibraryIDs) < 2 {
		return nil, errcodes.ValidationError("\"libraries\" length must be greater than or equal to 2 elements")
	}
	if len(opts.LibraryIDs) > svc.cfg.MaxCombineLibraries {
		return nil, errcodes.ValidationError("Too many libraries in one combine request")
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, errcodes.ValidationError("\"name\" is required")
	}
	if utf8.RuneCountInString(name) > models.LibraryNameMaxLength {
		return nil, errcodes.ValidationError("\"name\" length must be less than or equal to 50 characters")
	}
	if utf8.RuneCountInString(opts.Description) > models.LibraryDescriptionMaxLength {
		return nil, errcodes.ValidationError("\"description\" length must be less than or equal to 200 characters")
	}

	now := time.Now()
	result := &models.Library{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Name:        name,
		Description: opts.Description,
		Visibility:  models.VisibilityPrivate,
		OwnerID:     opts.ActingUserID,
		Revision:    1,
	}

	var entryCount int

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		txPerms := svc.perms.WithTx(tx)

		sets := make([]map[string]models.TagSet, 0, len(opts.LibraryIDs))
		for _, libraryID := range opts.LibraryIDs {
			if err := txPerms.Require(ctx, libraryID, opts.ActingUserID, models.RoleRead); err != nil {
				return err
			}

			var entries []*models.Entry
			err := tx.NewSelect().
				Model(&entries).
				Where("e.library_id = ?", libraryID).
				Scan(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			set := make(map[string]models.TagSet, len(entries))
			for _, entry := range entries {
				set[entry.Bibcode] = entry.Tags
			}
			sets = append(sets, set)
		}

		combined := combine(opts.Op, sets)
		entryCount = len(combined)

		if err := svc.checkNameUnique(ctx, tx, name, opts.ActingUserID); err != nil {
			return err
		}

		_, err := tx.NewInsert().Model(result).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		permission := &models.Permission{
			CreatedAt: now,
			UpdatedAt: now,
			LibraryID: result.ID,
			UserID:    opts.ActingUserID,
			Role:      models.RoleOwner,
		}
		_, err = tx.NewInsert().Model(permission).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if len(combined) == 0 {
			return nil
		}

		bibcodes := make([]string, 0, len(combined))
		for bibcode := range combined {
			bibcodes = append(bibcodes, bibcode)
		}
		sort.Strings(bibcodes)

		entries := make([]*models.Entry, 0, len(bibcodes))
		for _, bibcode := range bibcodes {
			entries = append(entries, &models.Entry{
				CreatedAt: now,
				UpdatedAt: now,
				LibraryID: result.ID,
				Bibcode:   bibcode,
				Tags:      combined[bibcode],
			})
		}
		_, err = tx.NewInsert().Model(&entries).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	result.EntryCount = entryCount
	return result, nil
}

// combine folds the per-library bibcode sets according to op. Tags are
// unioned across every input that contains the bibcode, including inputs
// whose membership the operation discards.
func combine(op string, sets []map[string]models.TagSet) map[string]models.TagSet {
	allTags := make(map[string]models.TagSet)
	for _, set := range sets {
		for bibcode, tags := range set {
			allTags[bibcode] = allTags[bibcode].Union(tags)
		}
	}

	member := make(map[string]bool, len(sets[0]))
	for bibcode := range sets[0] {
		member[bibcode] = true
	}

	for _, set := range sets[1:] {
		switch op {
		case OpUnion:
			for bibcode := range set {
				member[bibcode] = true
			}
		case OpIntersection:
			for bibcode := range member {
				if _, ok := set[bibcode]; !ok {
					delete(member, bibcode)
				}
			}
		case OpDifference:
			for bibcode := range set {
				delete(member, bibcode)
			}
		}
	}

	out := make(map[string]models.TagSet, len(member))
	for bibcode := range member {
		out[bibcode] = allTags[bibcode]
	}
	return out
}

func (svc *Service) checkNameUnique(ctx context.Context, tx bun.Tx, name string, ownerID int) error {
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

	count, err := q.Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if count > 0 {
		return errcodes.DuplicateName(name)
	}

	return nil
}
