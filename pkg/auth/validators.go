package auth

// Payloads for auth endpoints.
type RegisterPayload struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
}

type LoginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	Token    string  `json:"token"`
	UserID   int     `json:"user_id"`
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
}
