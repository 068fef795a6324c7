package interactions

import (
	"fmt"
	"time"
)

// Type classifies how the customer was contacted.
type Type string

const (
	TypeCall     Type = "call"
	TypeWhatsapp Type = "whatsapp"
	TypeEmail    Type = "email"
	TypeMeeting  Type = "meeting"
	TypeFollowup Type = "followup"
)

// Status tracks the lifecycle of a scheduled interaction.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusOverdue Status = "overdue"
)

// AllTypes lists every valid interaction type.
func AllTypes() []Type {
	return []Type{TypeCall, TypeWhatsapp, TypeEmail, TypeMeeting, TypeFollowup}
}

// ParseType converts raw input into a Type, rejecting unknown values.
func ParseType(raw string) (Type, error) {
	for _, t := range AllTypes() {
		if Type(raw) == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("interactions: unknown type %q", raw)
}

// Interaction records one touchpoint or planned follow-up with a customer.
type Interaction struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customer_id"`
	UserID      string     `json:"user_id"`
	Type        Type       `json:"type"`
	Notes       *string    `json:"notes,omitempty"`
	DueAt       time.Time  `json:"due_at"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
