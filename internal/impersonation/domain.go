package impersonation

import "time"

// Grant represents a time-bounded delegation letting the owner act as the
// target's profile. Ended grants are retained for audit.
type Grant struct {
	ID           string     `json:"id"`
	OwnerUserID  string     `json:"owner_user_id"`
	TargetUserID string     `json:"target_user_id"`
	Token        string     `json:"token"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	Active       bool       `json:"active"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
}

// Usable reports whether the grant can still drive resolution at the given
// instant. Expiry is enforced lazily here, not by a background sweep.
func (g Grant) Usable(now time.Time) bool {
	return g.Active && now.Before(g.ExpiresAt)
}
