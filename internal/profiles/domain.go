package profiles

import (
	"encoding/json"
	"time"

	"github.com/meridian-crm/meridian/internal/roles"
)

// Profile represents one provisioned account: the display record layered on
// top of the raw authenticated identity.
type Profile struct {
	UserID       string      `json:"user_id"`
	DisplayName  string      `json:"display_name"`
	Email        string      `json:"email"`
	DivisionID   *string     `json:"division_id,omitempty"`
	DivisionName *string     `json:"division_name,omitempty"`
	Role         *roles.Role `json:"role,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// PointerKey is the session key under which the impersonation pointer is
// persisted.
const PointerKey = "impersonation"

// ImpersonationPointer is the locally persisted reference to an active
// grant, read on every identity resolution.
type ImpersonationPointer struct {
	GrantID      string    `json:"grant_id"`
	TargetUserID string    `json:"target_user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Encode serialises the pointer for session storage.
func (p ImpersonationPointer) Encode() string {
	data, _ := json.Marshal(p)
	return string(data)
}

// DecodePointer parses a stored pointer. Malformed input is reported so the
// caller can discard it; it is never propagated further.
func DecodePointer(raw string) (ImpersonationPointer, bool) {
	var p ImpersonationPointer
	if raw == "" {
		return p, false
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return ImpersonationPointer{}, false
	}
	if p.TargetUserID == "" || p.ExpiresAt.IsZero() {
		return ImpersonationPointer{}, false
	}
	return p, true
}

// PointerStore abstracts where the per-session impersonation pointer lives.
// *shared.Session satisfies it.
type PointerStore interface {
	Get(key string) string
	Set(key, value string)
	Delete(key string)
}
