package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/loans"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service manages the book catalog.
type Service struct {
	db *bun.DB
}

// NewService creates a new books service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateBookOptions contains options for creating a book.
type CreateBookOptions struct {
	Title    string
	Author   string
	Quantity int
	ImageURL *string
}

// UpdateBookOptions contains options for updating a book. Only non-nil
// fields change.
type UpdateBookOptions struct {
	Title    *string
	Author   *string
	Quantity *int
	ImageURL *string
}

// Create adds a book to the catalog. Availability is derived from the
// initial quantity, never taken from the caller.
func (svc *Service) Create(ctx context.Context, opts CreateBookOptions) (*models.Book, error) {
	now := time.Now()
	book := &models.Book{
		Title:     opts.Title,
		Author:    opts.Author,
		Quantity:  opts.Quantity,
		Available: opts.Quantity > 0,
		ImageURL:  opts.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := svc.db.NewInsert().Model(book).Returning("*").Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return book, nil
}

// Retrieve gets a book by ID.
func (svc *Service) Retrieve(ctx context.Context, id int) (*models.Book, error) {
	book := &models.Book{}
	err := svc.db.NewSelect().Model(book).Where("b.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}
	return book, nil
}

// List returns all books.
func (svc *Service) List(ctx context.Context) ([]*models.Book, error) {
	books := []*models.Book{}
	err := svc.db.NewSelect().Model(&books).Order("b.id ASC").Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return books, nil
}

// Search returns books whose title starts with the query,
// case-insensitively, ordered by title.
func (svc *Service) Search(ctx context.Context, query string) ([]*models.Book, error) {
	books := []*models.Book{}
	err := svc.db.NewSelect().
		Model(&books).
		Where("title LIKE ? COLLATE NOCASE", query+"%").
		Order("b.title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return books, nil
}

// Update edits book fields. A quantity change recomputes availability so
// the two can't disagree.
func (svc *Service) Update(ctx context.Context, id int, opts UpdateBookOptions) (*models.Book, error) {
	book := &models.Book{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(book).Where("b.id = ?", id).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		if opts.Title != nil {
			book.Title = *opts.Title
		}
		if opts.Author != nil {
			book.Author = *opts.Author
		}
		if opts.Quantity != nil {
			if *opts.Quantity < 0 {
				return errcodes.ValidationError("quantity must not be negative.")
			}
			book.Quantity = *opts.Quantity
		}
		if opts.ImageURL != nil {
			book.ImageURL = opts.ImageURL
		}

		book.Available = book.Quantity > 0
		book.UpdatedAt = time.Now()

		_, err = tx.NewUpdate().
			Model(book).
			Column("title", "author", "quantity", "available", "image_url", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return book, nil
}

// UpdateAvailability recomputes the availability flag from the stored
// quantity and returns the book.
func (svc *Service) UpdateAvailability(ctx context.Context, id int) (*models.Book, error) {
	book := &models.Book{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(book).Where("b.id = ?", id).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		book.Available = book.Quantity > 0
		book.UpdatedAt = time.Now()

		_, err = tx.NewUpdate().
			Model(book).
			Column("available", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return book, nil
}

// Delete removes a book and its loan history in one transaction. A book
// with copies still out can't be deleted; the records that prove a copy is
// out would go with it.
func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Book)(nil)).
			Where("id = ?", id).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Book")
		}

		active, err := loans.HasActiveLoan(ctx, tx, id)
		if err != nil {
			return err
		}
		if active {
			return errcodes.Conflict("This book cannot be deleted while copies are still on loan.")
		}

		_, err = tx.NewDelete().
			Model((*models.Loan)(nil)).
			Where("book_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}
