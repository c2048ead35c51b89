package models

import (
	"database/sql/driver"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// Entry is a single canonical bibcode within a library, along with its
// free-text tags. Bibcodes are unique within a library; aliases are resolved
// to canonical form before an entry is ever written.
type Entry struct {
	bun.BaseModel `bun:"table:entries,alias:e"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LibraryID string    `bun:",nullzero" json:"library_id"`
	Bibcode   string    `bun:",nullzero" json:"bibcode"`
	Tags      TagSet    `json:"tags"`
	// Note is the free-text annotation attached to this entry. At most one
	// note exists per entry; nil means no note.
	Note *string `bun:"note" json:"note,omitempty"`
}

// TagSet is a set of free-text tags stored as a JSON array. It is kept
// sorted and deduplicated so that set semantics survive the round trip
// through the database.
type TagSet []string

// NewTagSet builds a TagSet from arbitrary input, dropping duplicates and
// empty strings.
func NewTagSet(tags []string) TagSet {
	seen := make(map[string]bool, len(tags))
	out := make(TagSet, 0, len(tags))
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Union returns the set union of ts and other.
func (ts TagSet) Union(other TagSet) TagSet {
	return NewTagSet(append(append([]string{}, ts...), other...))
}

// Contains reports whether tag is in the set.
func (ts TagSet) Contains(tag string) bool {
	for _, t := range ts {
		if t == tag {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer. An empty set is stored as an empty JSON
// array, never NULL.
func (ts TagSet) Value() (driver.Value, error) {
	if ts == nil {
		ts = TagSet{}
	}
	data, err := json.Marshal(ts)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (ts *TagSet) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*ts = TagSet{}
		return nil
	case string:
		return errors.WithStack(json.Unmarshal([]byte(v), ts))
	case []byte:
		return errors.WithStack(json.Unmarshal(v, ts))
	default:
		return errors.Errorf("unsupported tag set type %T", src)
	}
}
