package customers

import (
	"fmt"
	"time"
)

// Status tracks where a customer sits in the sales pipeline.
type Status string

const (
	StatusNew  Status = "new"
	StatusCold Status = "cold"
	StatusWarm Status = "warm"
	StatusHot  Status = "hot"
	StatusDeal Status = "deal"
)

// AllStatuses lists every valid pipeline status.
func AllStatuses() []Status {
	return []Status{StatusNew, StatusCold, StatusWarm, StatusHot, StatusDeal}
}

// ParseStatus converts raw input into a Status, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	for _, s := range AllStatuses() {
		if Status(raw) == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("customers: unknown status %q", raw)
}

// Customer is a tracked prospect or client.
type Customer struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Company         *string   `json:"company,omitempty"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Whatsapp        *string   `json:"whatsapp,omitempty"`
	Address         *string   `json:"address,omitempty"`
	Status          Status    `json:"status"`
	SourceID        string    `json:"source_id"`
	AssignedTo      string    `json:"assigned_to"`
	SupervisorID    *string   `json:"supervisor_id,omitempty"`
	ManagerID       *string   `json:"manager_id,omitempty"`
	DivisionID      string    `json:"division_id"`
	EstimationValue float64   `json:"estimation_value"`
	Description     *string   `json:"description,omitempty"`
	ProductIDs      []string  `json:"product_ids,omitempty"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
