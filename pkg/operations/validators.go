package operations

// CombinePayload describes a set operation across libraries. The result is
// written to a new library named in the payload. The library count is capped
// by the service against the configured limit.
type CombinePayload struct {
	Op          string   `json:"op" validate:"required,oneof=union intersection difference"`
	Libraries   []string `json:"libraries" validate:"required,min=2,dive,uuid4"`
	Name        string   `json:"name" validate:"required,min=1,max=50"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=200"`
}
