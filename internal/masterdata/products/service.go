package products

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	filters.Normalize()
	products, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	for i := range products {
		products[i].PriceDisplay = internalShared.FormatIDR(products[i].Price)
	}
	return products, total, nil
}

func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	product.PriceDisplay = internalShared.FormatIDR(product.Price)
	return product, nil
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := validate(product); err != nil {
		return Product{}, err
	}
	product.ID = uuid.NewString()
	if err := s.repo.Create(ctx, product); err != nil {
		return Product{}, err
	}
	return s.Get(ctx, product.ID)
}

func (s *Service) Update(ctx context.Context, id string, product Product) (Product, error) {
	if err := validate(product); err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, id, product); err != nil {
		return Product{}, err
	}
	return s.Get(ctx, id)
}

// Delete removes a product unless customers still reference it.
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

func validate(product Product) error {
	if strings.TrimSpace(product.Name) == "" || product.Price < 0 || product.Stock < 0 {
		return internalShared.ErrValidation
	}
	return nil
}
