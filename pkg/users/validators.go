package users

// CreateUserPayload represents the administrative user creation request
// body. Role is explicit here; self-registration always yields a member.
type CreateUserPayload struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=member librarian"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	LastName string `json:"last_name" validate:"required"`
}

// UpdateUserPayload represents the user edit request body. Absent fields
// are left unchanged.
type UpdateUserPayload struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	Role     *string `json:"role" validate:"omitempty,oneof=member librarian"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Name     *string `json:"name"`
	LastName *string `json:"last_name"`
}

// ChangePasswordPayload represents the change-password request body.
type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}
