package bibcodes

import (
	"context"
	"database/sql"
	"time"

	"github.com/bibstack/bibstack/pkg/errcodes"
	"github.com/bibstack/bibstack/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Resolver resolves raw bibcodes to canonical form against the alias table.
// It has no authorization responsibility; the library store calls it before
// any entry is written so that two aliases of the same document never
// coexist as separate entries.
type Resolver struct {
	db bun.IDB
}

func NewResolver(db bun.IDB) *Resolver {
	return &Resolver{db}
}

// WithTx returns a Resolver bound to the given transaction so that
// canonicalization participates in the caller's atomic unit.
func (r *Resolver) WithTx(tx bun.Tx) *Resolver {
	return &Resolver{tx}
}

// Canonicalize validates raw and resolves it through the alias table. An
// unmapped bibcode is its own canonical form.
func (r *Resolver) Canonicalize(ctx context.Context, raw string) (string, error) {
	bibcode := Normalize(raw)
	if !Valid(bibcode) {
		return "", errcodes.ValidationError("\"" + raw + "\" is not a valid bibcode")
	}

	alias := &models.Alias{}
	err := r.db.NewSelect().
		Model(alias).
		Where("a.alternate = ?", bibcode).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bibcode, nil
		}
		return "", errors.WithStack(err)
	}

	return alias.Canonical, nil
}

// CanonicalizeAll resolves a batch of raw bibcodes in one query, preserving
// input order and dropping duplicates that collapse to the same canonical
// form.
func (r *Resolver) CanonicalizeAll(ctx context.Context, raws []string) ([]string, error) {
	if len(raws) == 0 {
		return nil, nil
	}

	normalized := make([]string, 0, len(raws))
	for _, raw := range raws {
		bibcode := Normalize(raw)
		if !Valid(bibcode) {
			return nil, errcodes.ValidationError("\"" + raw + "\" is not a valid bibcode")
		}
		normalized = append(normalized, bibcode)
	}

	var aliases []*models.Alias
	err := r.db.NewSelect().
		Model(&aliases).
		Where("a.alternate IN (?)", bun.In(normalized)).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	canonicalFor := make(map[string]string, len(aliases))
	for _, alias := range aliases {
		canonicalFor[alias.Alternate] = alias.Canonical
	}

	seen := make(map[string]bool, len(normalized))
	out := make([]string, 0, len(normalized))
	for _, bibcode := range normalized {
		canonical := bibcode
		if mapped, ok := canonicalFor[bibcode]; ok {
			canonical = mapped
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}

	return out, nil
}

// RegisterAlias records that alternate refers to the same document as
// canonical. Registrations that would contradict an existing mapping, or
// that would create a chain, fail with AliasConflict and leave the table
// untouched. Re-registering an identical pair is a no-op.
func (r *Resolver) RegisterAlias(ctx context.Context, alternate, canonical string) error {
	alternate = Normalize(alternate)
	canonical = Normalize(canonical)

	if !Valid(alternate) {
		return errcodes.ValidationError("\"" + alternate + "\" is not a valid bibcode")
	}
	if !Valid(canonical) {
		return errcodes.ValidationError("\"" + canonical + "\" is not a valid bibcode")
	}
	if alternate == canonical {
		return errcodes.ValidationError("A bibcode cannot be an alias of itself")
	}

	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return r.registerAlias(ctx, tx, alternate, canonical)
	})
}

func (r *Resolver) registerAlias(ctx context.Context, db bun.IDB, alternate, canonical string) error {
	// An existing mapping for the alternate wins unless it agrees.
	existing := &models.Alias{}
	err := db.NewSelect().
		Model(existing).
		Where("a.alternate = ?", alternate).
		Scan(ctx)
	if err == nil {
		if existing.Canonical == canonical {
			return nil
		}
		return errcodes.AliasConflict(alternate)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return errors.WithStack(err)
	}

	// The alternate must not already serve as a canonical id, and the
	// canonical must not itself be mapped elsewhere. Either would create a
	// chain.
	count, err := db.NewSelect().
		Model((*models.Alias)(nil)).
		Where("a.canonical = ?", alternate).
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if count > 0 {
		return errcodes.AliasConflict(alternate)
	}

	count, err = db.NewSelect().
		Model((*models.Alias)(nil)).
		Where("a.alternate = ?", canonical).
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if count > 0 {
		return errcodes.AliasConflict(alternate)
	}

	alias := &models.Alias{
		CreatedAt: time.Now(),
		Alternate: alternate,
		Canonical: canonical,
	}
	_, err = db.NewInsert().Model(alias).Exec(ctx)
	return errors.WithStack(err)
}
