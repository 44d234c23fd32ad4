package auth

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/migrations"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testJWTSecret = "test-secret"

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	// Each pool connection would get its own in-memory database.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func registerTestUser(ctx context.Context, t *testing.T, svc *Service, username string) *models.User {
	t.Helper()

	user, err := svc.Register(ctx, RegisterOptions{
		Username: username,
		Password: "password123",
		Email:    username + "@example.com",
		Name:     "Test",
		LastName: "User",
	})
	require.NoError(t, err)

	return user
}

func TestServiceRegister(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testJWTSecret)
	ctx := context.Background()

	user := registerTestUser(ctx, t, svc, "reader")

	// Self-registration always yields a member.
	assert.Equal(t, models.RoleMember, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, CheckPassword("password123", user.PasswordHash))
}

func TestServiceRegister_DuplicateUsername(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testJWTSecret)
	ctx := context.Background()

	registerTestUser(ctx, t, svc, "reader")

	_, err := svc.Register(ctx, RegisterOptions{
		Username: "Reader",
		Password: "password123",
		Email:    "elsewhere@example.com",
		Name:     "Test",
		LastName: "User",
	})
	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusConflict, ec.HTTPCode)
}

func TestServiceAuthenticate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testJWTSecret)
	ctx := context.Background()

	registered := registerTestUser(ctx, t, svc, "reader")

	user, err := svc.Authenticate(ctx, "reader", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	var ec *errcodes.Error

	_, err = svc.Authenticate(ctx, "reader", "wrong-password")
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusUnauthorized, ec.HTTPCode)

	// Unknown usernames get the same error as bad passwords.
	_, err = svc.Authenticate(ctx, "nobody", "password123")
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusUnauthorized, ec.HTTPCode)
	assert.Equal(t, "Invalid username or password.", ec.Message)
}

func TestServiceTokenRoundTrip(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testJWTSecret)
	ctx := context.Background()

	user := registerTestUser(ctx, t, svc, "reader")

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleMember, claims.Role)
	assert.WithinDuration(t, time.Now().Add(TokenExpiry), claims.ExpiresAt.Time, time.Minute)
}

func TestServiceValidateToken_WrongSecret(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testJWTSecret)
	other := NewService(db, "a-different-secret")
	ctx := context.Background()

	user := registerTestUser(ctx, t, svc, "reader")

	token, err := other.GenerateToken(user)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestServiceValidateToken_Expired(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, testJWTSecret)

	claims := JWTClaims{
		UserID: 1,
		Role:   models.RoleMember,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
