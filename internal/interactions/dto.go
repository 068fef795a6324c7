package interactions

import "time"

type CreateInteractionRequest struct {
	CustomerID string    `json:"customer_id" validate:"required"`
	Type       string    `json:"type" validate:"required"`
	Notes      *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
	DueAt      time.Time `json:"due_at" validate:"required"`
}

type UpdateInteractionRequest struct {
	Type  *string    `json:"type,omitempty"`
	Notes *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	DueAt *time.Time `json:"due_at,omitempty"`
}

type ListInteractionsRequest struct {
	CustomerID *string `json:"customer_id,omitempty"`
	UserID     *string `json:"user_id,omitempty"`
	Status     *string `json:"status,omitempty"`
	Limit      int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int     `json:"offset" validate:"gte=0"`
}
