package users

import (
	"github.com/biblioteka/biblioteka/pkg/auth"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all user routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	userService := NewService(db)

	h := &handler{
		userService: userService,
	}

	librarian := authMiddleware.RequireRole(models.RoleLibrarian)

	users := e.Group("/users", authMiddleware.Authenticate)
	users.GET("", h.list)
	users.POST("", h.create, librarian)
	users.GET("/:id", h.retrieve)
	users.PUT("/:id/update", h.update)
	users.PUT("/:id/change-password", h.changePassword)
	users.DELETE("/:id/delete", h.deleteUser, librarian)

	return userService
}
