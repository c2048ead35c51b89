package libraries

// Query params for library endpoints.
type ListLibrariesQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type ListEntriesQuery struct {
	Page     int `query:"page" json:"page,omitempty" default:"1" validate:"min=1"`
	PageSize int `query:"page_size" json:"page_size,omitempty" default:"20" validate:"min=1,max=500"`
}

// Payloads for create/update endpoints.
type CreateLibraryPayload struct {
	Name        string  `json:"name" validate:"required,min=1,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=200"`
	Visibility  *string `json:"visibility,omitempty" validate:"omitempty,oneof=public private"`
}

type UpdateLibraryPayload struct {
	Name             *string `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	Description      *string `json:"description,omitempty" validate:"omitempty,max=200"`
	Visibility       *string `json:"visibility,omitempty" validate:"omitempty,oneof=public private"`
	ExpectedRevision *int64  `json:"expected_revision,omitempty" validate:"omitempty,min=1"`
}

// Batch sizes are capped by the service against the configured limit, not
// here, so the cap can be raised without touching the HTTP layer.
type AddEntriesPayload struct {
	Bibcodes         []string `json:"bibcodes" validate:"required,min=1,dive,bibcode"`
	Tags             []string `json:"tags,omitempty" validate:"omitempty,max=50,dive,min=1,max=50"`
	ExpectedRevision *int64   `json:"expected_revision,omitempty" validate:"omitempty,min=1"`
}

type RemoveEntriesPayload struct {
	Bibcodes         []string `json:"bibcodes" validate:"required,min=1,dive,bibcode"`
	ExpectedRevision *int64   `json:"expected_revision,omitempty" validate:"omitempty,min=1"`
}

type CopyEntriesPayload struct {
	DestinationID string `json:"destination_id" validate:"required,uuid4"`
}

// NotePayload carries the note content for add and update. Empty content is
// allowed.
type NotePayload struct {
	Content string `json:"content" validate:"max=5000"`
}
