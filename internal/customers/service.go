package customers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/roles"
	"github.com/meridian-crm/meridian/internal/shared"
)

// Service applies pipeline rules and visibility scoping on top of the
// repository. Every operation takes the acting profile already resolved by
// the session layer, so impersonated identities are scoped like the target.
type Service struct {
	logger *slog.Logger
	repo   Repository
	audit  *shared.AuditLogger
}

func NewService(logger *slog.Logger, repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{logger: logger, repo: repo, audit: audit}
}

// ListResult bundles one page of customers with the unfiltered total.
type ListResult struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// List returns customers visible to the actor. Marketing users see their
// own assignments, supervisors and managers see their division, owners and
// superadmins see everything.
func (s *Service) List(ctx context.Context, actor *profiles.Profile, req ListCustomersRequest) (*ListResult, error) {
	if actor == nil || actor.Role == nil {
		return nil, shared.ErrPermissionDenied
	}
	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 50
	}
	applyScope(actor, &req)

	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	if items == nil {
		items = []Customer{}
	}
	return &ListResult{Customers: items, Total: total, Limit: req.Limit, Offset: req.Offset}, nil
}

func (s *Service) Get(ctx context.Context, actor *profiles.Profile, id string) (*Customer, error) {
	if actor == nil || actor.Role == nil {
		return nil, shared.ErrPermissionDenied
	}
	customer, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if !visibleTo(actor, customer) {
		return nil, shared.ErrNotFound
	}
	return customer, nil
}

func (s *Service) Create(ctx context.Context, actor *profiles.Profile, req CreateCustomerRequest) (*Customer, error) {
	if actor == nil || actor.Role == nil {
		return nil, shared.ErrPermissionDenied
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	assignedTo := req.AssignedTo
	if roles.HasRole(actor.Role, roles.RoleMarketing) {
		assignedTo = actor.UserID
	}

	customer := Customer{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Company:         req.Company,
		Email:           req.Email,
		Phone:           req.Phone,
		Whatsapp:        req.Whatsapp,
		Address:         req.Address,
		Status:          status,
		SourceID:        req.SourceID,
		AssignedTo:      assignedTo,
		SupervisorID:    req.SupervisorID,
		ManagerID:       req.ManagerID,
		DivisionID:      req.DivisionID,
		EstimationValue: req.EstimationValue,
		Description:     req.Description,
		ProductIDs:      req.ProductIDs,
		CreatedBy:       actor.UserID,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		return tx.Create(ctx, customer)
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "customer.create",
		Entity:   "customer",
		EntityID: customer.ID,
		Meta:     map[string]any{"name": customer.Name, "status": string(customer.Status)},
	}); err != nil {
		s.logger.Warn("audit customer create", slog.Any("error", err))
	}
	return s.repo.Get(ctx, customer.ID)
}

func (s *Service) Update(ctx context.Context, actor *profiles.Profile, id string, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Whatsapp != nil {
		updates["whatsapp"] = *req.Whatsapp
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Status != nil {
		status, err := ParseStatus(*req.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
		}
		updates["status"] = string(status)
	}
	if req.SourceID != nil {
		updates["source_id"] = *req.SourceID
	}
	if req.AssignedTo != nil && !roles.HasRole(actor.Role, roles.RoleMarketing) {
		updates["assigned_to"] = *req.AssignedTo
	}
	if req.SupervisorID != nil {
		updates["supervisor_id"] = *req.SupervisorID
	}
	if req.ManagerID != nil {
		updates["manager_id"] = *req.ManagerID
	}
	if req.DivisionID != nil {
		updates["division_id"] = *req.DivisionID
	}
	if req.EstimationValue != nil {
		updates["estimation_value"] = *req.EstimationValue
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if len(updates) > 0 {
			if err := tx.Update(ctx, id, updates); err != nil {
				return err
			}
		}
		if req.ProductIDs != nil {
			return tx.ReplaceProducts(ctx, id, req.ProductIDs)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("update customer: %w", err)
	}

	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "customer.update",
		Entity:   "customer",
		EntityID: existing.ID,
	}); err != nil {
		s.logger.Warn("audit customer update", slog.Any("error", err))
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a customer. Only managers and above may delete.
func (s *Service) Delete(ctx context.Context, actor *profiles.Profile, id string) error {
	if actor == nil || actor.Role == nil {
		return shared.ErrPermissionDenied
	}
	switch *actor.Role {
	case roles.RoleSuperadmin, roles.RoleOwner, roles.RoleManager:
	default:
		return shared.ErrPermissionDenied
	}

	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		return tx.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return shared.ErrNotFound
		}
		return fmt.Errorf("delete customer: %w", err)
	}

	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "customer.delete",
		Entity:   "customer",
		EntityID: existing.ID,
		Meta:     map[string]any{"name": existing.Name},
	}); err != nil {
		s.logger.Warn("audit customer delete", slog.Any("error", err))
	}
	return nil
}

func applyScope(actor *profiles.Profile, req *ListCustomersRequest) {
	switch *actor.Role {
	case roles.RoleMarketing:
		req.AssignedTo = &actor.UserID
	case roles.RoleSupervisor, roles.RoleManager:
		if actor.DivisionID != nil {
			req.DivisionID = actor.DivisionID
		}
	}
}

func visibleTo(actor *profiles.Profile, customer *Customer) bool {
	switch *actor.Role {
	case roles.RoleSuperadmin, roles.RoleOwner:
		return true
	case roles.RoleSupervisor, roles.RoleManager:
		if actor.DivisionID == nil {
			return true
		}
		return customer.DivisionID == *actor.DivisionID
	case roles.RoleMarketing:
		return customer.AssignedTo == actor.UserID
	}
	return false
}
