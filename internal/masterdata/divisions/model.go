package divisions

import "time"

// Division is an organisational unit customers and users belong to.
type Division struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
