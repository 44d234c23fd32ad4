package books

import "mime/multipart"

// CreateBookPayload represents the book creation request body. It accepts
// JSON or a multipart form with an optional "image" file.
type CreateBookPayload struct {
	Title    string `json:"title" form:"title" validate:"required"`
	Author   string `json:"author" form:"author" validate:"required"`
	Quantity int    `json:"quantity" form:"quantity" validate:"min=0"`

	FormFiles map[string]*multipart.FileHeader `json:"-" form:"-"`
}

// UpdateBookPayload represents the book edit request body. Absent fields
// are left unchanged.
type UpdateBookPayload struct {
	Title    *string `json:"title" form:"title"`
	Author   *string `json:"author" form:"author"`
	Quantity *int    `json:"quantity" form:"quantity" validate:"omitempty,min=0"`

	FormFiles map[string]*multipart.FileHeader `json:"-" form:"-"`
}

// SearchBooksQuery represents the title search query parameters.
type SearchBooksQuery struct {
	Query string `query:"query" validate:"required"`
}
