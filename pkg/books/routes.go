package books

import (
	"github.com/biblioteka/biblioteka/pkg/auth"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/biblioteka/biblioteka/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all book routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware, uploadStore *uploads.Store) *Service {
	bookService := NewService(db)

	h := &handler{
		bookService: bookService,
		uploadStore: uploadStore,
	}

	librarian := authMiddleware.RequireRole(models.RoleLibrarian)

	books := e.Group("/books", authMiddleware.Authenticate)
	books.GET("", h.list)
	books.POST("", h.create, librarian)
	books.GET("/search", h.search)
	books.GET("/:id", h.retrieve)
	books.PUT("/:id", h.update, librarian)
	books.DELETE("/:id", h.deleteBook, librarian)
	books.PUT("/:id/update-availability", h.updateAvailability, librarian)

	return bookService
}
