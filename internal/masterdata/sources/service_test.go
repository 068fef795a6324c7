package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian/internal/masterdata/shared"
	internalShared "github.com/meridian-crm/meridian/internal/shared"
	_ "github.com/meridian-crm/meridian/testing"
)

type memoryRepo struct {
	sources      map[string]Source
	customerRefs map[string]int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sources: map[string]Source{}, customerRefs: map[string]int{}}
}

func (m *memoryRepo) List(_ context.Context, _ shared.ListFilters) ([]Source, int, error) {
	var out []Source
	for _, s := range m.sources {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Source, error) {
	s, ok := m.sources[id]
	if !ok {
		return Source{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) Create(_ context.Context, source Source) error {
	m.sources[source.ID] = source
	return nil
}

func (m *memoryRepo) Update(_ context.Context, id string, source Source) error {
	if _, ok := m.sources[id]; !ok {
		return shared.ErrNotFound
	}
	source.ID = id
	m.sources[id] = source
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.sources[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.sources, id)
	return nil
}

func (m *memoryRepo) CountCustomerRefs(_ context.Context, id string) (int, error) {
	return m.customerRefs[id], nil
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	source, err := svc.Create(context.Background(), Source{Name: "Instagram"})
	require.NoError(t, err)

	repo.customerRefs[source.ID] = 4
	err = svc.Delete(context.Background(), source.ID)
	require.Error(t, err)

	var inUse *shared.InUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, 4, inUse.Count)
}

func TestDeleteSucceedsWhenUnreferenced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	source, err := svc.Create(context.Background(), Source{Name: "Referral"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), source.ID))

	_, err = repo.Get(context.Background(), source.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Source{Name: "  "})
	assert.ErrorIs(t, err, internalShared.ErrValidation)
}
