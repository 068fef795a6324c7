package profiles

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/meridian-crm/meridian/internal/roles"
)

// ProfileSource is the subset of the repository the resolver needs.
type ProfileSource interface {
	Get(ctx context.Context, userID string) (*Profile, error)
}

// RoleSource looks up the distinct role assignment record.
type RoleSource interface {
	Get(ctx context.Context, userID string) (*roles.Role, error)
}

// GrantEnder lazily marks a grant ended once the resolver observes it
// expired, keeping audit state accurate. Best effort only.
type GrantEnder interface {
	End(ctx context.Context, grantID string) error
}

// Resolution is the outcome of resolving an authenticated identity. A nil
// Profile means the caller is authenticated but unprovisioned, which is
// distinct from not being logged in.
type Resolution struct {
	Profile         *Profile `json:"profile"`
	IsImpersonating bool     `json:"is_impersonating"`
}

// Resolver determines the effective profile the rest of the system should
// act as, applying any valid impersonation pointer stored alongside the
// session.
type Resolver struct {
	profiles ProfileSource
	roles    RoleSource
	grants   GrantEnder
	logger   *slog.Logger
	now      func() time.Time
}

// NewResolver constructs a Resolver. grants may be nil when lazy expiry
// marking is not wanted.
func NewResolver(profiles ProfileSource, roleSource RoleSource, grants GrantEnder, logger *slog.Logger) *Resolver {
	return &Resolver{
		profiles: profiles,
		roles:    roleSource,
		grants:   grants,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve produces the effective profile for the authenticated identity.
// Impersonation is a convenience overlay: a malformed or expired pointer is
// discarded and resolution falls back to the caller's own profile rather
// than failing.
func (r *Resolver) Resolve(ctx context.Context, identity string, store PointerStore) (Resolution, error) {
	targetID := identity
	impersonating := false

	if store != nil {
		if raw := store.Get(PointerKey); raw != "" {
			pointer, ok := DecodePointer(raw)
			switch {
			case !ok:
				store.Delete(PointerKey)
				if r.logger != nil {
					r.logger.Warn("discarding malformed impersonation pointer", slog.String("user_id", identity))
				}
			case !r.now().Before(pointer.ExpiresAt):
				store.Delete(PointerKey)
				if r.grants != nil && pointer.GrantID != "" {
					if err := r.grants.End(ctx, pointer.GrantID); err != nil && r.logger != nil {
						r.logger.Warn("mark expired grant ended", slog.Any("error", err))
					}
				}
			default:
				targetID = pointer.TargetUserID
				impersonating = true
			}
		}
	}

	profile, err := r.lookup(ctx, targetID)
	if err != nil {
		return Resolution{}, err
	}
	if profile == nil && impersonating {
		// The impersonated profile disappeared; fall back to acting as self.
		store.Delete(PointerKey)
		impersonating = false
		if profile, err = r.lookup(ctx, identity); err != nil {
			return Resolution{}, err
		}
	}
	return Resolution{Profile: profile, IsImpersonating: impersonating && profile != nil}, nil
}

func (r *Resolver) lookup(ctx context.Context, userID string) (*Profile, error) {
	profile, err := r.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	role, err := r.roles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.Role = role
	return profile, nil
}
