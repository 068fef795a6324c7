package interactions

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

// Service owns the interaction lifecycle. New records start pending and
// move to done via Complete or to overdue via the background scan.
type Service struct {
	logger *slog.Logger
	repo   Repository
	now    func() time.Time
}

func NewService(logger *slog.Logger, repo Repository) *Service {
	return &Service{logger: logger, repo: repo, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListResult bundles one page of interactions with the unfiltered total.
type ListResult struct {
	Interactions []Interaction `json:"interactions"`
	Total        int           `json:"total"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
}

// List returns interactions visible to the actor. Marketing users only see
// their own records; everyone else can filter freely.
func (s *Service) List(ctx context.Context, actor *profiles.Profile, req ListInteractionsRequest) (*ListResult, error) {
	if actor == nil || actor.Role == nil {
		return nil, shared.ErrPermissionDenied
	}
	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 50
	}
	if roles.HasRole(actor.Role, roles.RoleMarketing) {
		req.UserID = &actor.UserID
	}

	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	if items == nil {
		items = []Interaction{}
	}
	return &ListResult{Interactions: items, Total: total, Limit: req.Limit, Offset: req.Offset}, nil
}

func (s *Service) Get(ctx context.Context, actor *profiles.Profile, id string) (*Interaction, error) {
	if actor == nil || actor.Role == nil {
		return nil, shared.ErrPermissionDenied
	}
	interaction, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get interaction: %w", err)
	}
	if roles.HasRole(actor.Role, roles.RoleMarketing) && interaction.UserID != actor.UserID {
		return nil, shared.ErrNotFound
	}
	return interaction, nil
}

// Create records a new interaction owned by the acting user.
func (s *Service) Create(ctx context.Context, actor *profiles.Profile, req CreateInteractionRequest) (*Interaction, error) {
	if actor == nil || actor.Role == nil {
		return nil, shared.ErrPermissionDenied
	}
	typ, err := ParseType(req.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	interaction := Interaction{
		ID:         uuid.NewString(),
		CustomerID: req.CustomerID,
		UserID:     actor.UserID,
		Type:       typ,
		Notes:      req.Notes,
		DueAt:      req.DueAt,
		Status:     StatusPending,
	}
	if err := s.repo.Create(ctx, interaction); err != nil {
		return nil, fmt.Errorf("create interaction: %w", err)
	}
	return s.repo.Get(ctx, interaction.ID)
}

func (s *Service) Update(ctx context.Context, actor *profiles.Profile, id string, req UpdateInteractionRequest) (*Interaction, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Type != nil {
		typ, err := ParseType(*req.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
		}
		updates["type"] = string(typ)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.DueAt != nil {
		updates["due_at"] = *req.DueAt
		// A rescheduled interaction gets a fresh shot at its deadline.
		updates["status"] = string(StatusPending)
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, shared.ErrNotFound
			}
			return nil, fmt.Errorf("update interaction: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Complete marks an interaction done and stamps completed_at.
func (s *Service) Complete(ctx context.Context, actor *profiles.Profile, id string) (*Interaction, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.repo.Complete(ctx, id, s.now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("complete interaction: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor *profiles.Profile, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return shared.ErrNotFound
		}
		return fmt.Errorf("delete interaction: %w", err)
	}
	return nil
}

// PromoteOverdue is invoked by the background scan.
func (s *Service) PromoteOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.PromoteOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("promoted overdue interactions", slog.Int64("count", n))
	}
	return n, nil
}
