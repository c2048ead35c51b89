package bibcodes

// RegisterAliasPayload maps an alternate bibcode onto its canonical form.
type RegisterAliasPayload struct {
	Alternate string `json:"alternate" validate:"required,bibcode"`
	Canonical string `json:"canonical" validate:"required,bibcode"`
}

// ResolveQuery looks up the canonical form of a bibcode.
type ResolveQuery struct {
	Bibcode string `query:"bibcode" json:"bibcode" validate:"required,bibcode"`
}
