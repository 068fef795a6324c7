package customers

type CreateCustomerRequest struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Company         *string  `json:"company,omitempty" validate:"omitempty,max=200"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone" validate:"required,max=50"`
	Whatsapp        *string  `json:"whatsapp,omitempty" validate:"omitempty,max=50"`
	Address         *string  `json:"address,omitempty" validate:"omitempty,max=500"`
	Status          string   `json:"status" validate:"required"`
	SourceID        string   `json:"source_id" validate:"required"`
	AssignedTo      string   `json:"assigned_to" validate:"required"`
	SupervisorID    *string  `json:"supervisor_id,omitempty"`
	ManagerID       *string  `json:"manager_id,omitempty"`
	DivisionID      string   `json:"division_id" validate:"required"`
	EstimationValue float64  `json:"estimation_value" validate:"gte=0"`
	Description     *string  `json:"description,omitempty"`
	ProductIDs      []string `json:"product_ids,omitempty"`
}

type UpdateCustomerRequest struct {
	Name            *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Company         *string  `json:"company,omitempty" validate:"omitempty,max=200"`
	Email           *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string  `json:"phone,omitempty" validate:"omitempty,max=50"`
	Whatsapp        *string  `json:"whatsapp,omitempty" validate:"omitempty,max=50"`
	Address         *string  `json:"address,omitempty" validate:"omitempty,max=500"`
	Status          *string  `json:"status,omitempty"`
	SourceID        *string  `json:"source_id,omitempty"`
	AssignedTo      *string  `json:"assigned_to,omitempty"`
	SupervisorID    *string  `json:"supervisor_id,omitempty"`
	ManagerID       *string  `json:"manager_id,omitempty"`
	DivisionID      *string  `json:"division_id,omitempty"`
	EstimationValue *float64 `json:"estimation_value,omitempty" validate:"omitempty,gte=0"`
	Description     *string  `json:"description,omitempty"`
	ProductIDs      []string `json:"product_ids,omitempty"`
}

type ListCustomersRequest struct {
	Status     *string `json:"status,omitempty"`
	DivisionID *string `json:"division_id,omitempty"`
	AssignedTo *string `json:"assigned_to,omitempty"`
	Search     *string `json:"search,omitempty"`
	Limit      int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int     `json:"offset" validate:"gte=0"`
}
