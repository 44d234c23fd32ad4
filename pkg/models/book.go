package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `bun:",nullzero" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero" json:"updated_at"`
	Title     string    `bun:",nullzero" json:"title"`
	Author    string    `bun:",nullzero" json:"author"`
	Quantity  int       `json:"quantity"`
	Available bool      `json:"available"`
	ImageURL  *string   `json:"image_url"`

	// Relations
	Loans []*Loan `bun:"rel:has-many,join:id=book_id" json:"loans,omitempty"`
}
