package loans

// BorrowPayload represents the self-service checkout request body.
type BorrowPayload struct {
	UserID int `json:"user_id" validate:"required"`
	BookID int `json:"book_id" validate:"required"`
}

// AddLoanPayload represents the administrative loan creation request body.
// Dates are YYYY-MM-DD. Title is optional; when blank, the loan snapshots
// the book's current title.
type AddLoanPayload struct {
	BookID       int     `json:"book_id" validate:"required"`
	UserID       int     `json:"user_id" validate:"required"`
	LoanDate     string  `json:"loan_date" validate:"required,date"`
	ReturnDate   string  `json:"return_date" validate:"required,date"`
	Title        string  `json:"title"`
	DateReturned *string `json:"date_returned" validate:"omitempty,date"`
}

// UpdateLoanPayload represents the administrative loan edit request body.
// Absent fields are left unchanged. An empty date_returned string clears the
// date and reopens the loan.
type UpdateLoanPayload struct {
	BookID       *int    `json:"book_id"`
	UserID       *int    `json:"user_id"`
	LoanDate     *string `json:"loan_date" validate:"omitempty,date"`
	ReturnDate   *string `json:"return_date" validate:"omitempty,date"`
	DateReturned *string `json:"date_returned" validate:"omitempty,date"`
}

// ListLoansByUserQuery represents the pagination query parameters for a
// user's loan history.
type ListLoansByUserQuery struct {
	Page  int `query:"page" default:"1" validate:"min=1"`
	Limit int `query:"limit" default:"10" validate:"min=1,max=100"`
}
