package loans

import (
	"context"
	"database/sql"
	"time"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// LoanPeriodDays is how long a borrowed copy is out before it is due.
const LoanPeriodDays = 30

// Service is the inventory and loan engine. Every compound mutation runs in
// a single transaction so a loan row and its book's quantity can never drift
// apart, and every quantity change follows an Active<->Closed transition of
// exactly one loan.
type Service struct {
	db  *bun.DB
	now func() time.Time
}

// NewService creates a new loans service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// AddLoanOptions contains options for administratively creating a loan.
type AddLoanOptions struct {
	BookID       int
	UserID       int
	LoanDate     time.Time
	ReturnDate   time.Time
	Title        string
	DateReturned *time.Time
}

// UpdateLoanOptions contains options for administratively editing a loan.
// Only non-nil fields change. DateReturned is applied when SetDateReturned
// is true; a nil value then clears the date and reopens the loan.
type UpdateLoanOptions struct {
	BookID          *int
	UserID          *int
	LoanDate        *time.Time
	ReturnDate      *time.Time
	SetDateReturned bool
	DateReturned    *time.Time
}

// ListByUserOptions contains pagination options for a user's loan history.
type ListByUserOptions struct {
	Page  int
	Limit int
}

// Borrow checks out one copy of a book to a user and returns the created
// loan. It fails with Conflict when no copies are left or the user already
// holds an active loan for the same book.
func (svc *Service) Borrow(ctx context.Context, userID, bookID int) (*models.Loan, error) {
	loan := &models.Loan{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book := &models.Book{}
		err := tx.NewSelect().Model(book).Where("b.id = ?", bookID).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("id = ?", userID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("User")
		}

		// One outstanding copy per user-book pair.
		active, err := tx.NewSelect().
			Model((*models.Loan)(nil)).
			Where("user_id = ?", userID).
			Where("book_id = ?", bookID).
			Where("date_returned IS NULL").
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if active {
			return errcodes.Conflict("You need to return your copy of this book before borrowing it again.")
		}

		if err := takeCopy(ctx, tx, bookID); err != nil {
			return err
		}

		now := svc.now()
		loan.UserID = userID
		loan.BookID = bookID
		loan.Title = book.Title
		loan.LoanDate = now
		loan.ReturnDate = now.AddDate(0, 0, LoanPeriodDays)
		loan.CreatedAt = now
		loan.UpdatedAt = now

		_, err = tx.NewInsert().Model(loan).Returning("*").Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// Return closes an active loan and puts the copy back on the shelf.
// Returning an already-closed loan is a Conflict, never a second increment.
func (svc *Service) Return(ctx context.Context, loanID int) (*models.Loan, error) {
	loan := &models.Loan{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(loan).Where("l.id = ?", loanID).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Loan")
			}
			return errors.WithStack(err)
		}

		if !loan.Active() {
			return errcodes.Conflict("This loan has already been returned.")
		}

		if err := shelveCopy(ctx, tx, loan.BookID); err != nil {
			return err
		}

		now := svc.now()
		loan.DateReturned = &now
		loan.UpdatedAt = now

		_, err = tx.NewUpdate().
			Model(loan).
			Column("date_returned", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// Update administratively edits any loan field, including moving the loan to
// another book or user, and setting or clearing date_returned. Quantity side
// effects follow the Active<->Closed transition of the resulting record,
// never its absolute state; when the loan moves to another book while
// active, the outstanding copy moves with it.
func (svc *Service) Update(ctx context.Context, loanID int, opts UpdateLoanOptions) (*models.Loan, error) {
	loan := &models.Loan{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(loan).Where("l.id = ?", loanID).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Loan")
			}
			return errors.WithStack(err)
		}

		wasActive := loan.Active()
		oldBookID := loan.BookID

		if opts.UserID != nil && *opts.UserID != loan.UserID {
			exists, err := tx.NewSelect().
				Model((*models.User)(nil)).
				Where("id = ?", *opts.UserID).
				Exists(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if !exists {
				return errcodes.NotFound("User")
			}
			loan.UserID = *opts.UserID
		}
		if opts.BookID != nil {
			loan.BookID = *opts.BookID
		}
		if opts.LoanDate != nil {
			loan.LoanDate = *opts.LoanDate
		}
		if opts.ReturnDate != nil {
			loan.ReturnDate = *opts.ReturnDate
		}
		if opts.SetDateReturned {
			loan.DateReturned = opts.DateReturned
		}

		// Re-sync the title from the (possibly new) referenced book. This
		// also validates book_id.
		book := &models.Book{}
		err = tx.NewSelect().Model(book).Where("b.id = ?", loan.BookID).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}
		loan.Title = book.Title

		isActive := loan.Active()

		switch {
		case loan.BookID == oldBookID && wasActive && !isActive:
			if err := shelveCopy(ctx, tx, loan.BookID); err != nil {
				return err
			}
		case loan.BookID == oldBookID && !wasActive && isActive:
			if err := takeCopy(ctx, tx, loan.BookID); err != nil {
				return err
			}
		case loan.BookID != oldBookID:
			if wasActive {
				if err := shelveCopy(ctx, tx, oldBookID); err != nil {
					return err
				}
			}
			if isActive {
				if err := takeCopy(ctx, tx, loan.BookID); err != nil {
					return err
				}
			}
		}

		loan.UpdatedAt = svc.now()
		_, err = tx.NewUpdate().
			Model(loan).
			Column("user_id", "book_id", "title", "loan_date", "return_date", "date_returned", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// Add administratively creates a loan with explicit dates, bypassing the
// duplicate-borrow check. A loan created already closed is pure history: it
// never touches the book's quantity, so backfilling old records can't leak
// copies.
func (svc *Service) Add(ctx context.Context, opts AddLoanOptions) (*models.Loan, error) {
	loan := &models.Loan{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book := &models.Book{}
		err := tx.NewSelect().Model(book).Where("b.id = ?", opts.BookID).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("id = ?", opts.UserID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("User")
		}

		if opts.DateReturned == nil {
			if err := takeCopy(ctx, tx, opts.BookID); err != nil {
				return err
			}
		}

		now := svc.now()
		loan.UserID = opts.UserID
		loan.BookID = opts.BookID
		loan.Title = opts.Title
		if loan.Title == "" {
			loan.Title = book.Title
		}
		loan.LoanDate = opts.LoanDate
		loan.ReturnDate = opts.ReturnDate
		loan.DateReturned = opts.DateReturned
		loan.CreatedAt = now
		loan.UpdatedAt = now

		_, err = tx.NewInsert().Model(loan).Returning("*").Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// Delete removes a loan record outright. This is an administrative override,
// not a return, so it has no quantity side effect.
func (svc *Service) Delete(ctx context.Context, loanID int) error {
	res, err := svc.db.NewDelete().
		Model((*models.Loan)(nil)).
		Where("id = ?", loanID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if rows == 0 {
		return errcodes.NotFound("Loan")
	}
	return nil
}

// Retrieve gets a loan by ID.
func (svc *Service) Retrieve(ctx context.Context, id int) (*models.Loan, error) {
	loan := &models.Loan{}
	err := svc.db.NewSelect().Model(loan).Where("l.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Loan")
		}
		return nil, errors.WithStack(err)
	}
	return loan, nil
}

// List returns all loans.
func (svc *Service) List(ctx context.Context) ([]*models.Loan, error) {
	loans := []*models.Loan{}
	err := svc.db.NewSelect().Model(&loans).Order("l.id ASC").Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return loans, nil
}

// ListByUser returns a page of the user's loans, newest first, along with
// the total number of pages.
func (svc *Service) ListByUser(ctx context.Context, userID int, opts ListByUserOptions) ([]*models.Loan, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}

	loans := []*models.Loan{}
	total, err := svc.db.NewSelect().
		Model(&loans).
		Where("user_id = ?", userID).
		Order("loan_date DESC").
		Limit(opts.Limit).
		Offset((opts.Page - 1) * opts.Limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	return loans, totalPages, nil
}

// HasActiveLoan reports whether any copy of the book is still out. The
// catalog refuses to delete such a book.
func (svc *Service) HasActiveLoan(ctx context.Context, bookID int) (bool, error) {
	return HasActiveLoan(ctx, svc.db, bookID)
}

// HasOutstandingLoans reports whether the user still holds any unreturned
// copy. The member directory refuses to delete such a user.
func (svc *Service) HasOutstandingLoans(ctx context.Context, userID int) (bool, error) {
	return HasOutstandingLoans(ctx, svc.db, userID)
}

// HasActiveLoan is the deletion guard for books. It accepts any bun.IDB so
// callers can run it inside their own delete transaction.
func HasActiveLoan(ctx context.Context, db bun.IDB, bookID int) (bool, error) {
	exists, err := db.NewSelect().
		Model((*models.Loan)(nil)).
		Where("book_id = ?", bookID).
		Where("date_returned IS NULL").
		Exists(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return exists, nil
}

// HasOutstandingLoans is the deletion guard for users. It accepts any
// bun.IDB so callers can run it inside their own delete transaction.
func HasOutstandingLoans(ctx context.Context, db bun.IDB, userID int) (bool, error) {
	exists, err := db.NewSelect().
		Model((*models.Loan)(nil)).
		Where("user_id = ?", userID).
		Where("date_returned IS NULL").
		Exists(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return exists, nil
}

// takeCopy removes one copy of the book from the shelf and recomputes
// availability in the same statement. The conditional update serializes
// concurrent borrowers: of two requests racing for the last copy, only one
// matches `quantity > 0`, so the count can never go negative.
func takeCopy(ctx context.Context, tx bun.Tx, bookID int) error {
	res, err := tx.NewUpdate().
		Model((*models.Book)(nil)).
		Set("quantity = quantity - 1").
		Set("available = quantity - 1 > 0").
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", bookID).
		Where("quantity > 0").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if rows == 0 {
		return errcodes.Conflict("No copies available for borrowing.")
	}
	return nil
}

// shelveCopy puts one copy of the book back and recomputes availability.
func shelveCopy(ctx context.Context, tx bun.Tx, bookID int) error {
	res, err := tx.NewUpdate().
		Model((*models.Book)(nil)).
		Set("quantity = quantity + 1").
		Set("available = quantity + 1 > 0").
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if rows == 0 {
		return errcodes.NotFound("Book")
	}
	return nil
}
