package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Library visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Field length limits, enforced at the service boundary.
const (
	LibraryNameMaxLength        = 50
	LibraryDescriptionMaxLength = 200
)

type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:l"`

	ID          string    `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `bun:",nullzero" json:"name"`
	Description string    `json:"description"`
	Visibility  string    `bun:",nullzero" json:"visibility"`
	OwnerID     int       `bun:",nullzero" json:"owner_id"`
	// Revision increases by one on every mutation and backs
	// optimistic-concurrency checks.
	Revision int64 `json:"revision"`

	// Relations
	Owner       *User         `bun:"rel:belongs-to,join:owner_id=id" json:"owner,omitempty"`
	Permissions []*Permission `bun:"rel:has-many,join:id=library_id" json:"permissions,omitempty"`
	Entries     []*Entry      `bun:"rel:has-many,join:id=library_id" json:"entries,omitempty"`

	EntryCount int `bun:",scanonly" json:"entry_count,omitempty"`
}

// Public reports whether the library grants implicit read to everyone.
func (l *Library) Public() bool {
	return l.Visibility == VisibilityPublic
}
