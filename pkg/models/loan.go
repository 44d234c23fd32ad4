package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Loan is a single borrowed copy of a book. Title is a snapshot of the
// book's title at loan time so history survives catalog edits.
type Loan struct {
	bun.BaseModel `bun:"table:loans,alias:l"`

	ID           int        `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time  `bun:",nullzero" json:"created_at"`
	UpdatedAt    time.Time  `bun:",nullzero" json:"updated_at"`
	UserID       int        `bun:",nullzero" json:"user_id"`
	BookID       int        `bun:",nullzero" json:"book_id"`
	Title        string     `bun:",nullzero" json:"title"`
	LoanDate     time.Time  `bun:",nullzero" json:"loan_date"`
	ReturnDate   time.Time  `bun:",nullzero" json:"return_date"`
	DateReturned *time.Time `json:"date_returned"`

	// Relations
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}

// Active reports whether the loan is still outstanding. A loan is active
// until date_returned is set.
func (l *Loan) Active() bool {
	return l.DateReturned == nil
}
