package auth

import (
	"strings"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/labstack/echo/v4"
)

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// BearerToken extracts the bearer credential from the Authorization header.
// An empty string means no usable credential was sent.
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	// Tolerate a bare token; older frontend builds sent it without a scheme.
	if strings.HasPrefix(header, "Bearer ") {
		return header[7:]
	}
	return header
}

// Authenticate extracts and validates the JWT from the Authorization header.
// If valid, it verifies the user still exists and adds user info to the
// context. If not authenticated, it returns 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		token := BearerToken(c)
		if token == "" {
			return errcodes.Unauthorized("Authentication required.")
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token.")
		}

		// Verify the user still exists; the role comes from the record, not
		// the token, so a role change takes effect before the token expires.
		user, err := m.authService.GetUserByID(ctx, claims.UserID)
		if err != nil {
			return errcodes.Unauthorized("User not found.")
		}

		c.Set("user_id", user.ID)
		c.Set("role", user.Role)
		c.Set("user", user)

		return next(c)
	}
}

// RequireRole returns middleware that checks if the user holds the given
// role. Must be used after Authenticate middleware.
func (m *Middleware) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get("user").(*models.User)
			if !ok {
				return errcodes.Unauthorized("Authentication required.")
			}

			if user.Role != role {
				return errcodes.Forbidden("This action")
			}

			return next(c)
		}
	}
}

// GetUserFromContext retrieves the authenticated user from the Echo context.
func GetUserFromContext(c echo.Context) (*models.User, bool) {
	user, ok := c.Get("user").(*models.User)
	return user, ok
}

// GetUserIDFromContext retrieves the user ID from the Echo context.
func GetUserIDFromContext(c echo.Context) (int, bool) {
	userID, ok := c.Get("user_id").(int)
	return userID, ok
}
