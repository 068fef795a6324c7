package profiles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-crm/meridian/internal/roles"
	"github.com/meridian-crm/meridian/internal/shared"
)

// Service handles user administration. Every mutation is gated by the role
// hierarchy of the acting profile over the target's current role.
type Service struct {
	repo     *Repository
	roleRepo *roles.Repository
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo *Repository, roleRepo *roles.Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, roleRepo: roleRepo, audit: audit, logger: logger}
}

// ListUsers returns all profiles except the caller's own.
func (s *Service) ListUsers(ctx context.Context, acting *Profile) ([]Profile, error) {
	if acting == nil {
		return nil, shared.ErrPermissionDenied
	}
	return s.repo.List(ctx, acting.UserID)
}

// CreateUser provisions a new account with the requested role. The acting
// profile must be able to manage that role.
func (s *Service) CreateUser(ctx context.Context, acting *Profile, req CreateUserRequest) (*Profile, error) {
	role, err := roles.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if acting == nil || acting.Role == nil || !roles.CanManageRole(*acting.Role, role) {
		return nil, shared.ErrPermissionDenied
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("profiles: hash password: %w", err)
	}

	userID := uuid.NewString()
	acct := Account{Email: req.Email, PasswordHash: string(hash)}
	if err := s.repo.CreateWithAccount(ctx, userID, acct, req.DisplayName, req.DivisionID, role, acting.UserID); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  acting.UserID,
		Action:   "user.create",
		Entity:   "user",
		EntityID: userID,
		Meta:     map[string]any{"role": string(role)},
	}); err != nil {
		s.logger.Warn("audit user create", slog.Any("error", err))
	}

	profile, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.Role = &role
	return profile, nil
}

// UpdateUser changes display name, division or role. Role changes require
// the acting profile to manage both the current and the new role.
func (s *Service) UpdateUser(ctx context.Context, acting *Profile, userID string, req UpdateUserRequest) (*Profile, error) {
	if acting == nil || acting.Role == nil {
		return nil, shared.ErrPermissionDenied
	}
	currentRole, err := s.roleRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if currentRole != nil && !roles.CanManageRole(*acting.Role, *currentRole) {
		return nil, shared.ErrPermissionDenied
	}

	if req.Role != nil {
		newRole, err := roles.ParseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		if !roles.CanManageRole(*acting.Role, newRole) {
			return nil, shared.ErrPermissionDenied
		}
		if err := s.roleRepo.Set(ctx, userID, newRole, acting.UserID); err != nil {
			return nil, err
		}
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  acting.UserID,
			Action:   "user.role_change",
			Entity:   "user",
			EntityID: userID,
			Meta:     map[string]any{"role": string(newRole)},
		}); err != nil {
			s.logger.Warn("audit role change", slog.Any("error", err))
		}
	}

	if req.DisplayName != nil || req.DivisionID != nil || req.ClearDivision {
		if err := s.repo.Update(ctx, userID, req.DisplayName, req.DivisionID, req.ClearDivision); err != nil {
			return nil, err
		}
	}

	profile, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.Role, err = s.roleRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// DependentCustomersError reports how many customers still reference a user
// whose deletion was refused.
type DependentCustomersError struct {
	Count int
}

func (e *DependentCustomersError) Error() string {
	return fmt.Sprintf("profiles: user has %d assigned customers, reassign them first", e.Count)
}

// DeleteUser removes a user. Deletion is refused while customers still
// reference the user; those rows must be reassigned first.
func (s *Service) DeleteUser(ctx context.Context, acting *Profile, userID string) error {
	if acting == nil || acting.Role == nil {
		return shared.ErrPermissionDenied
	}
	if acting.UserID == userID {
		return shared.ErrPermissionDenied
	}
	targetRole, err := s.roleRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if targetRole != nil && !roles.CanManageRole(*acting.Role, *targetRole) {
		return shared.ErrPermissionDenied
	}

	refs, err := s.repo.CountCustomerRefs(ctx, userID)
	if err != nil {
		return err
	}
	if refs > 0 {
		return &DependentCustomersError{Count: refs}
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  acting.UserID,
		Action:   "user.delete",
		Entity:   "user",
		EntityID: userID,
	}); err != nil {
		s.logger.Warn("audit user delete", slog.Any("error", err))
	}
	return nil
}
