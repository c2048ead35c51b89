package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Permission connects a user to a library with a single role. There is at
// most one row per (library, user) pair and exactly one owner row per
// library.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LibraryID string    `bun:",nullzero" json:"library_id"`
	UserID    int       `bun:",nullzero" json:"user_id"`
	Role      Role      `bun:",nullzero" json:"role"`

	// Relations
	Library *Library `bun:"rel:belongs-to,join:library_id=id" json:"library,omitempty"`
	User    *User    `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}
