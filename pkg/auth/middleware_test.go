package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoContext(t *testing.T, authorization string) echo.Context {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()

	return echo.New().NewContext(req, rec)
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestMiddlewareAuthenticate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testJWTSecret)
	m := NewMiddleware(svc)
	ctx := context.Background()

	user := registerTestUser(ctx, t, svc, "reader")
	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	c := newEchoContext(t, "Bearer "+token)
	err = m.Authenticate(okHandler)(c)
	require.NoError(t, err)

	got, ok := GetUserFromContext(c)
	require.True(t, ok)
	assert.Equal(t, user.ID, got.ID)

	gotID, ok := GetUserIDFromContext(c)
	require.True(t, ok)
	assert.Equal(t, user.ID, gotID)

	// A raw token without the Bearer scheme is accepted too.
	c = newEchoContext(t, token)
	err = m.Authenticate(okHandler)(c)
	require.NoError(t, err)
}

func TestMiddlewareAuthenticate_Rejections(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testJWTSecret)
	m := NewMiddleware(svc)
	ctx := context.Background()

	var ec *errcodes.Error

	err := m.Authenticate(okHandler)(newEchoContext(t, ""))
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusUnauthorized, ec.HTTPCode)

	err = m.Authenticate(okHandler)(newEchoContext(t, "Bearer not-a-token"))
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusUnauthorized, ec.HTTPCode)

	// A valid token for a user that no longer exists is rejected too.
	user := registerTestUser(ctx, t, svc, "ghost")
	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	_, err = db.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", user.ID).
		Exec(ctx)
	require.NoError(t, err)

	err = m.Authenticate(okHandler)(newEchoContext(t, "Bearer "+token))
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusUnauthorized, ec.HTTPCode)
}

func TestMiddlewareRequireRole(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testJWTSecret)
	m := NewMiddleware(svc)
	ctx := context.Background()

	member := registerTestUser(ctx, t, svc, "reader")
	token, err := svc.GenerateToken(member)
	require.NoError(t, err)

	librarianOnly := m.RequireRole(models.RoleLibrarian)

	c := newEchoContext(t, "Bearer "+token)
	err = m.Authenticate(librarianOnly(okHandler))(c)
	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusForbidden, ec.HTTPCode)

	// Role checks read the database record, so a promotion applies to
	// tokens issued before it.
	_, err = db.NewUpdate().
		Model((*models.User)(nil)).
		Set("role = ?", models.RoleLibrarian).
		Where("id = ?", member.ID).
		Exec(ctx)
	require.NoError(t, err)

	c = newEchoContext(t, "Bearer "+token)
	err = m.Authenticate(librarianOnly(okHandler))(c)
	require.NoError(t, err)
}
