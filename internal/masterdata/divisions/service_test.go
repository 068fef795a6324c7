package divisions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian/internal/masterdata/shared"
	_ "github.com/meridian-crm/meridian/testing"
)

type memoryRepo struct {
	divisions    map[string]Division
	customerRefs map[string]int
	userRefs     map[string]int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		divisions:    map[string]Division{},
		customerRefs: map[string]int{},
		userRefs:     map[string]int{},
	}
}

func (m *memoryRepo) List(_ context.Context, _ shared.ListFilters) ([]Division, int, error) {
	var out []Division
	for _, d := range m.divisions {
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Division, error) {
	d, ok := m.divisions[id]
	if !ok {
		return Division{}, shared.ErrNotFound
	}
	return d, nil
}

func (m *memoryRepo) Create(_ context.Context, division Division) error {
	m.divisions[division.ID] = division
	return nil
}

func (m *memoryRepo) Update(_ context.Context, id string, division Division) error {
	if _, ok := m.divisions[id]; !ok {
		return shared.ErrNotFound
	}
	division.ID = id
	m.divisions[id] = division
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.divisions[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.divisions, id)
	return nil
}

func (m *memoryRepo) CountCustomerRefs(_ context.Context, id string) (int, error) {
	return m.customerRefs[id], nil
}

func (m *memoryRepo) CountUserRefs(_ context.Context, id string) (int, error) {
	return m.userRefs[id], nil
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	division, err := svc.Create(context.Background(), Division{Name: "Retail"})
	require.NoError(t, err)

	repo.customerRefs[division.ID] = 2
	repo.userRefs[division.ID] = 1
	err = svc.Delete(context.Background(), division.ID)
	require.Error(t, err)

	var inUse *shared.InUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, 3, inUse.Count)
}

func TestDeleteSucceedsWhenUnreferenced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	division, err := svc.Create(context.Background(), Division{Name: "Retail"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), division.ID))

	_, err = repo.Get(context.Background(), division.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Division{Name: "   "})
	assert.Error(t, err)
}
