package books

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/loans"
	"github.com/biblioteka/biblioteka/pkg/migrations"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

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

func createTestUser(ctx context.Context, t *testing.T, db *bun.DB, username string) *models.User {
	t.Helper()

	now := time.Now()
	user := &models.User{
		Username:     username,
		PasswordHash: "not-a-real-hash",
		Role:         models.RoleMember,
		Email:        username + "@example.com",
		Name:         "Test",
		LastName:     "User",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := db.NewInsert().Model(user).Returning("*").Exec(ctx)
	require.NoError(t, err)

	return user
}

func TestServiceCreate_DerivesAvailability(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book, err := svc.Create(ctx, CreateBookOptions{
		Title:    "Invisible Cities",
		Author:   "Italo Calvino",
		Quantity: 3,
	})
	require.NoError(t, err)
	assert.True(t, book.Available)
	assert.Nil(t, book.ImageURL)

	empty, err := svc.Create(ctx, CreateBookOptions{
		Title:  "If on a winter's night a traveler",
		Author: "Italo Calvino",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Quantity)
	assert.False(t, empty.Available)
}

func TestServiceRetrieve_NotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.Retrieve(ctx, 999)
	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusNotFound, ec.HTTPCode)
}

func TestServiceSearch_TitlePrefix(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	for _, title := range []string{"The Trial", "The Castle", "Amerika"} {
		_, err := svc.Create(ctx, CreateBookOptions{Title: title, Author: "Franz Kafka", Quantity: 1})
		require.NoError(t, err)
	}

	results, err := svc.Search(ctx, "the")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "The Castle", results[0].Title)
	assert.Equal(t, "The Trial", results[1].Title)

	none, err := svc.Search(ctx, "castle")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestServiceUpdate_QuantityRecomputesAvailability(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book, err := svc.Create(ctx, CreateBookOptions{
		Title:    "The Trial",
		Author:   "Franz Kafka",
		Quantity: 2,
	})
	require.NoError(t, err)

	zero := 0
	book, err = svc.Update(ctx, book.ID, UpdateBookOptions{Quantity: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, book.Quantity)
	assert.False(t, book.Available)

	five := 5
	author := "F. Kafka"
	book, err = svc.Update(ctx, book.ID, UpdateBookOptions{Quantity: &five, Author: &author})
	require.NoError(t, err)
	assert.Equal(t, 5, book.Quantity)
	assert.True(t, book.Available)
	assert.Equal(t, "F. Kafka", book.Author)
	assert.Equal(t, "The Trial", book.Title)

	negative := -1
	_, err = svc.Update(ctx, book.ID, UpdateBookOptions{Quantity: &negative})
	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusUnprocessableEntity, ec.HTTPCode)
}

func TestServiceUpdateAvailability(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book, err := svc.Create(ctx, CreateBookOptions{
		Title:    "The Castle",
		Author:   "Franz Kafka",
		Quantity: 1,
	})
	require.NoError(t, err)

	// Force the flag out of sync, then recompute.
	_, err = db.NewUpdate().
		Model((*models.Book)(nil)).
		Set("available = FALSE").
		Where("id = ?", book.ID).
		Exec(ctx)
	require.NoError(t, err)

	book, err = svc.UpdateAvailability(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, book.Available)
}

func TestServiceDelete_GuardedByActiveLoans(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	loanService := loans.NewService(db)
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "reader")
	book, err := svc.Create(ctx, CreateBookOptions{
		Title:    "The Trial",
		Author:   "Franz Kafka",
		Quantity: 1,
	})
	require.NoError(t, err)

	loan, err := loanService.Borrow(ctx, user.ID, book.ID)
	require.NoError(t, err)

	err = svc.Delete(ctx, book.ID)
	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusConflict, ec.HTTPCode)

	_, err = loanService.Return(ctx, loan.ID)
	require.NoError(t, err)

	// Closed loans don't block deletion; the history goes with the book.
	err = svc.Delete(ctx, book.ID)
	require.NoError(t, err)

	_, err = svc.Retrieve(ctx, book.ID)
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusNotFound, ec.HTTPCode)

	count, err := db.NewSelect().
		Model((*models.Loan)(nil)).
		Where("book_id = ?", book.ID).
		Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestServiceDelete_NotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	err := svc.Delete(ctx, 999)
	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusNotFound, ec.HTTPCode)
}
