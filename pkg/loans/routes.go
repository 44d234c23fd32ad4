package loans

import (
	"github.com/biblioteka/biblioteka/pkg/auth"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all loan routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	loanService := NewService(db)

	h := &handler{
		loanService: loanService,
	}

	librarian := authMiddleware.RequireRole(models.RoleLibrarian)

	loans := e.Group("/loans", authMiddleware.Authenticate)
	loans.GET("", h.list)
	loans.POST("", h.add, librarian)
	loans.POST("/add", h.add, librarian)
	loans.POST("/borrow", h.borrow)
	loans.PUT("/return/:id", h.returnLoan)
	loans.GET("/user/:id", h.listByUser)
	loans.GET("/:id", h.retrieve)
	loans.PUT("/:id", h.update, librarian)
	loans.DELETE("/:id", h.deleteLoan, librarian)

	return loanService
}
