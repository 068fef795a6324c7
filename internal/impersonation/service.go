package impersonation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/roles"
	"github.com/meridian-crm/meridian/internal/shared"
)

// GrantStore is the persistence surface the service needs.
type GrantStore interface {
	FindActiveByOwner(ctx context.Context, ownerID string) (*Grant, error)
	Switch(ctx context.Context, grant Grant) error
	End(ctx context.Context, grantID string) error
}

// ProfileSource looks up profiles by raw identity, without impersonation
// applied.
type ProfileSource interface {
	Get(ctx context.Context, userID string) (*profiles.Profile, error)
	List(ctx context.Context, excludeUserID string) ([]profiles.Profile, error)
}

// RoleSource looks up role assignments.
type RoleSource interface {
	Get(ctx context.Context, userID string) (*roles.Role, error)
}

// Auditor records grant lifecycle events.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the lifecycle of impersonation grants.
type Service struct {
	grants   GrantStore
	profiles ProfileSource
	roles    RoleSource
	audit    Auditor
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewService constructs a Service. ttl is the fixed validity window for new
// grants.
func NewService(grants GrantStore, profileSource ProfileSource, roleSource RoleSource, audit Auditor, logger *slog.Logger, ttl time.Duration) *Service {
	return &Service{
		grants:   grants,
		profiles: profileSource,
		roles:    roleSource,
		audit:    audit,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SwitchToUser creates a grant letting actingID view the system as
// targetID. Any prior active grant owned by actingID is ended in the same
// transaction. On a permission failure nothing is mutated.
func (s *Service) SwitchToUser(ctx context.Context, actingID, targetID string, store profiles.PointerStore) (*Grant, error) {
	acting, actingRole, err := s.lookup(ctx, actingID)
	if err != nil {
		return nil, err
	}
	target, targetRole, err := s.lookup(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !roles.CanImpersonate(acting.UserID, actingRole, target.UserID, targetRole) {
		return nil, shared.ErrPermissionDenied
	}

	now := s.now()
	grant := Grant{
		ID:           uuid.NewString(),
		OwnerUserID:  actingID,
		TargetUserID: targetID,
		Token:        fmt.Sprintf("switch_%d_%s", now.UnixMilli(), uuid.NewString()),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		Active:       true,
	}
	if err := s.grants.Switch(ctx, grant); err != nil {
		// The prior grant may already be ended; the caller falls back to
		// acting as self, which is the safe default.
		if store != nil {
			store.Delete(profiles.PointerKey)
		}
		return nil, err
	}

	if store != nil {
		pointer := profiles.ImpersonationPointer{
			GrantID:      grant.ID,
			TargetUserID: grant.TargetUserID,
			ExpiresAt:    grant.ExpiresAt,
		}
		store.Set(profiles.PointerKey, pointer.Encode())
	}

	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actingID,
		Action:   "impersonation.begin",
		Entity:   "impersonation_grant",
		EntityID: grant.ID,
		Meta:     map[string]any{"target_user_id": targetID},
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit impersonation begin", slog.Any("error", err))
	}

	return &grant, nil
}

// End terminates the caller's active grant and clears the session pointer.
// Ending when no grant is active is a no-op.
func (s *Service) End(ctx context.Context, actingID string, store profiles.PointerStore) error {
	if store != nil {
		store.Delete(profiles.PointerKey)
	}
	grant, err := s.grants.FindActiveByOwner(ctx, actingID)
	if err != nil {
		return err
	}
	if grant == nil {
		return nil
	}
	if err := s.grants.End(ctx, grant.ID); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actingID,
		Action:   "impersonation.end",
		Entity:   "impersonation_grant",
		EntityID: grant.ID,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit impersonation end", slog.Any("error", err))
	}
	return nil
}

// Current returns the caller's active, unexpired grant, or nil.
func (s *Service) Current(ctx context.Context, actingID string) (*Grant, error) {
	grant, err := s.grants.FindActiveByOwner(ctx, actingID)
	if err != nil {
		return nil, err
	}
	if grant == nil || !grant.Usable(s.now()) {
		return nil, nil
	}
	return grant, nil
}

// ListEligibleTargets returns the profiles the acting identity may
// impersonate. The set is re-derived from current role assignments on every
// call so role changes take effect immediately.
func (s *Service) ListEligibleTargets(ctx context.Context, actingID string) ([]profiles.Profile, error) {
	acting, actingRole, err := s.lookup(ctx, actingID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.profiles.List(ctx, acting.UserID)
	if err != nil {
		return nil, err
	}
	eligible := make([]profiles.Profile, 0, len(candidates))
	for _, candidate := range candidates {
		if roles.CanImpersonate(acting.UserID, actingRole, candidate.UserID, candidate.Role) {
			eligible = append(eligible, candidate)
		}
	}
	return eligible, nil
}

func (s *Service) lookup(ctx context.Context, userID string) (*profiles.Profile, *roles.Role, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			return nil, nil, shared.ErrNotFound
		}
		return nil, nil, err
	}
	role, err := s.roles.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return profile, role, nil
}
