package sources

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Source, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id string) (Source, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, source Source) (Source, error) {
	source.Name = strings.TrimSpace(source.Name)
	if source.Name == "" {
		return Source{}, internalShared.ErrValidation
	}
	source.ID = uuid.NewString()
	if err := s.repo.Create(ctx, source); err != nil {
		return Source{}, err
	}
	return s.repo.Get(ctx, source.ID)
}

func (s *Service) Update(ctx context.Context, id string, source Source) (Source, error) {
	source.Name = strings.TrimSpace(source.Name)
	if source.Name == "" {
		return Source{}, internalShared.ErrValidation
	}
	if err := s.repo.Update(ctx, id, source); err != nil {
		return Source{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a source unless customers still reference it.
func (s *Service) Delete(ctx context.Context, id string) error {
	refs, err := s.repo.CountCustomerRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return &shared.InUseError{Count: refs}
	}
	return s.repo.Delete(ctx, id)
}
