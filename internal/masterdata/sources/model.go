package sources

import "time"

// Source records where a customer lead came from.
type Source struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
