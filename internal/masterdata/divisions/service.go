package divisions

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian/internal/masterdata/shared"
	internalShared "github.com/meridian-crm/meridian/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Division, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id string) (Division, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, division Division) (Division, error) {
	division.Name = strings.TrimSpace(division.Name)
	if division.Name == "" {
		return Division{}, internalShared.ErrValidation
	}
	division.ID = uuid.NewString()
	if err := s.repo.Create(ctx, division); err != nil {
		return Division{}, err
	}
	return s.repo.Get(ctx, division.ID)
}

func (s *Service) Update(ctx context.Context, id string, division Division) (Division, error) {
	division.Name = strings.TrimSpace(division.Name)
	if division.Name == "" {
		return Division{}, internalShared.ErrValidation
	}
	if err := s.repo.Update(ctx, id, division); err != nil {
		return Division{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a division unless customers or users still reference it.
func (s *Service) Delete(ctx context.Context, id string) error {
	customerRefs, err := s.repo.CountCustomerRefs(ctx, id)
	if err != nil {
		return err
	}
	userRefs, err := s.repo.CountUserRefs(ctx, id)
	if err != nil {
		return err
	}
	if total := customerRefs + userRefs; total > 0 {
		return &shared.InUseError{Count: total}
	}
	return s.repo.Delete(ctx, id)
}
