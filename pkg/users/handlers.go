package users

import (
	"net/http"
	"strconv"

	"github.com/biblioteka/biblioteka/pkg/auth"
	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	userService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.userService.List(ctx)
	if err != nil {
		return err
	}

	resp := struct {
		Users []*models.User `json:"users"`
	}{users}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := userID(c)
	if err != nil {
		return err
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Create(ctx, CreateUserOptions(params))
	if err != nil {
		return err
	}

	resp := struct {
		Message string       `json:"message"`
		User    *models.User `json:"user"`
	}{"User created successfully.", user}

	return c.JSON(http.StatusCreated, resp)
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := userID(c)
	if err != nil {
		return err
	}

	// Members may only edit themselves, and never their own role.
	actor, ok := auth.GetUserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required.")
	}
	if !actor.IsLibrarian() && actor.ID != id {
		return errcodes.Forbidden("Editing another user")
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if params.Role != nil && !actor.IsLibrarian() {
		return errcodes.Forbidden("Changing roles")
	}

	user, err := h.userService.Update(ctx, id, UpdateUserOptions(params))
	if err != nil {
		return err
	}

	resp := struct {
		Message string       `json:"message"`
		User    *models.User `json:"user"`
	}{"User updated successfully.", user}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) changePassword(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := userID(c)
	if err != nil {
		return err
	}

	actor, ok := auth.GetUserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required.")
	}
	if actor.ID != id {
		return errcodes.Forbidden("Changing another user's password")
	}

	params := ChangePasswordPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := h.userService.ChangePassword(ctx, id, params.CurrentPassword, params.NewPassword); err != nil {
		return err
	}

	resp := struct {
		Message string `json:"message"`
	}{"Password changed successfully."}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) deleteUser(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := userID(c)
	if err != nil {
		return err
	}

	if err := h.userService.Delete(ctx, id); err != nil {
		return err
	}

	resp := struct {
		Message string `json:"message"`
	}{"User deleted successfully."}

	return c.JSON(http.StatusOK, resp)
}

func userID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errcodes.NotFound("User")
	}
	return id, nil
}
