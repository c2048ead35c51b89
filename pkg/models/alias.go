package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Alias maps an alternate bibcode to the canonical bibcode for the same
// document. Many alternates may point at one canonical; a canonical never
// appears as an alternate, so lookups are a single hop.
type Alias struct {
	bun.BaseModel `bun:"table:aliases,alias:a"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Alternate string    `bun:",nullzero" json:"alternate"`
	Canonical string    `bun:",nullzero" json:"canonical"`
}
