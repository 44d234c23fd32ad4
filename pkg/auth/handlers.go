package auth

import (
	"net/http"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	authService *Service
}

// register handles member self-registration.
func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Register(ctx, RegisterOptions(params))
	if err != nil {
		return err
	}

	resp := struct {
		Message string       `json:"message"`
		User    *models.User `json:"user"`
	}{"User created successfully.", user}

	return c.JSON(http.StatusCreated, resp)
}

// login verifies credentials and issues a bearer token.
func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Username, params.Password)
	if err != nil {
		return err
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Message  string `json:"message"`
		Token    string `json:"token"`
		Username string `json:"username"`
		UserID   int    `json:"user_id"`
	}{"Login successful.", token, user.Username, user.ID}

	return c.JSON(http.StatusOK, resp)
}

// validate checks the bearer credential and echoes the verified identity.
func (h *handler) validate(c echo.Context) error {
	token := BearerToken(c)
	if token == "" {
		return errcodes.Unauthorized("Token is missing.")
	}

	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		return errcodes.Unauthorized("Invalid or expired token.")
	}

	resp := struct {
		Message string `json:"message"`
		UserID  int    `json:"user_id"`
		Role    string `json:"role"`
	}{"Token is valid.", claims.UserID, claims.Role}

	return c.JSON(http.StatusOK, resp)
}
