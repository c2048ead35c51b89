package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all auth routes and returns the service so the
// server can build the authentication middleware from it.
func RegisterRoutes(e *echo.Echo, db *bun.DB, jwtSecret string) *Service {
	authService := NewService(db, jwtSecret)

	h := &handler{
		authService: authService,
	}

	auth := e.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)

	// /auth/me is registered by the server behind the auth middleware.
	return authService
}

// RegisterMeRoute registers the authenticated /auth/me endpoint.
func RegisterMeRoute(g *echo.Group, authService *Service) {
	h := &handler{
		authService: authService,
	}
	g.GET("/me", h.me)
}
