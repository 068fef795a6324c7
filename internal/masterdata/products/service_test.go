package products

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian/internal/masterdata/shared"
	_ "github.com/meridian-crm/meridian/testing"
)

type memoryRepo struct {
	products map[string]Product
	refs     map[string]int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[string]Product{}, refs: map[string]int{}}
}

func (m *memoryRepo) List(_ context.Context, _ shared.ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) Create(_ context.Context, product Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *memoryRepo) Update(_ context.Context, id string, product Product) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	product.ID = id
	m.products[id] = product
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memoryRepo) CountCustomerRefs(_ context.Context, id string) (int, error) {
	return m.refs[id], nil
}

func TestCreateFormatsRupiahDisplay(t *testing.T) {
	svc := NewService(newMemoryRepo())

	product, err := svc.Create(context.Background(), Product{Name: "CRM Starter", Price: 1500000, Stock: 10})
	require.NoError(t, err)
	assert.Equal(t, "Rp 1.500.000", product.PriceDisplay)
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	product, err := svc.Create(context.Background(), Product{Name: "CRM Starter", Price: 100, Stock: 1})
	require.NoError(t, err)

	repo.refs[product.ID] = 3
	err = svc.Delete(context.Background(), product.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInUse)

	var inUse *shared.InUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, 3, inUse.Count)

	repo.refs[product.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), product.ID))
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Product{Name: "Broken", Price: -1})
	assert.Error(t, err)
}
