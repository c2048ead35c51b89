package permissions

// Payloads for permission endpoints. Targets are addressed by username so
// callers never need to know internal user IDs.
type GrantPayload struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Role     string `json:"role" validate:"required,oneof=read write admin"`
}

type RevokePayload struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
}

type TransferPayload struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
}
