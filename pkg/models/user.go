package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Roles a user can hold. Members borrow books; librarians additionally
// administer the catalog, the member directory, and loan records.
const (
	RoleMember    = "member"
	RoleLibrarian = "librarian"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `bun:",nullzero" json:"created_at"`
	UpdatedAt    time.Time `bun:",nullzero" json:"updated_at"`
	Username     string    `bun:",nullzero" json:"username"`
	PasswordHash string    `bun:"password,nullzero" json:"-"` // Never expose the password hash
	Role         string    `bun:",nullzero" json:"role"`
	Email        string    `bun:",nullzero" json:"email"`
	Name         string    `json:"name"`
	LastName     string    `json:"last_name"`

	// Relations
	Loans []*Loan `bun:"rel:has-many,join:id=user_id" json:"loans,omitempty"`
}

// IsLibrarian reports whether the user holds the librarian role.
func (u *User) IsLibrarian() bool {
	return u.Role == RoleLibrarian
}
