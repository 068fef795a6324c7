package profiles

type CreateUserRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	DisplayName string  `json:"display_name" validate:"required,max=120"`
	Role        string  `json:"role" validate:"required"`
	DivisionID  *string `json:"division_id,omitempty"`
}

type UpdateUserRequest struct {
	DisplayName   *string `json:"display_name,omitempty" validate:"omitempty,max=120"`
	Role          *string `json:"role,omitempty"`
	DivisionID    *string `json:"division_id,omitempty"`
	ClearDivision bool    `json:"clear_division,omitempty"`
}
