package interactions

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/roles"
	"github.com/meridian-crm/meridian/internal/shared"
	_ "github.com/meridian-crm/meridian/testing"
)

type memoryRepo struct {
	interactions map[string]*Interaction
}

func newMemoryRepo(seed ...Interaction) *memoryRepo {
	m := &memoryRepo{interactions: map[string]*Interaction{}}
	for i := range seed {
		in := seed[i]
		m.interactions[in.ID] = &in
	}
	return m
}

func (m *memoryRepo) Get(_ context.Context, id string) (*Interaction, error) {
	in, ok := m.interactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *in
	return &copied, nil
}

func (m *memoryRepo) List(_ context.Context, req ListInteractionsRequest) ([]Interaction, int, error) {
	var out []Interaction
	for _, in := range m.interactions {
		if req.CustomerID != nil && in.CustomerID != *req.CustomerID {
			continue
		}
		if req.UserID != nil && in.UserID != *req.UserID {
			continue
		}
		if req.Status != nil && string(in.Status) != *req.Status {
			continue
		}
		out = append(out, *in)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, interaction Interaction) error {
	m.interactions[interaction.ID] = &interaction
	return nil
}

func (m *memoryRepo) Update(_ context.Context, id string, updates map[string]interface{}) error {
	in, ok := m.interactions[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["type"]; ok {
		in.Type = Type(v.(string))
	}
	if v, ok := updates["notes"]; ok {
		notes := v.(string)
		in.Notes = &notes
	}
	if v, ok := updates["due_at"]; ok {
		in.DueAt = v.(time.Time)
	}
	if v, ok := updates["status"]; ok {
		in.Status = Status(v.(string))
	}
	return nil
}

func (m *memoryRepo) Complete(_ context.Context, id string, at time.Time) error {
	in, ok := m.interactions[id]
	if !ok {
		return ErrNotFound
	}
	in.Status = StatusDone
	in.CompletedAt = &at
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.interactions[id]; !ok {
		return ErrNotFound
	}
	delete(m.interactions, id)
	return nil
}

func (m *memoryRepo) PromoteOverdue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, in := range m.interactions {
		if in.Status == StatusPending && in.DueAt.Before(now) {
			in.Status = StatusOverdue
			n++
		}
	}
	return n, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func profileWith(userID string, role roles.Role) *profiles.Profile {
	return &profiles.Profile{UserID: userID, DisplayName: userID, Role: &role}
}

func TestCreateStartsPending(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(testLogger(), repo)

	due := time.Now().Add(48 * time.Hour)
	interaction, err := svc.Create(context.Background(), profileWith("marketing-1", roles.RoleMarketing), CreateInteractionRequest{
		CustomerID: "c-1",
		Type:       "followup",
		DueAt:      due,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, interaction.Status)
	assert.Equal(t, "marketing-1", interaction.UserID)
	assert.Nil(t, interaction.CompletedAt)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := NewService(testLogger(), newMemoryRepo())

	_, err := svc.Create(context.Background(), profileWith("marketing-1", roles.RoleMarketing), CreateInteractionRequest{
		CustomerID: "c-1",
		Type:       "carrier-pigeon",
		DueAt:      time.Now(),
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCompleteStampsCompletedAt(t *testing.T) {
	frozen := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newMemoryRepo(Interaction{
		ID: "i-1", CustomerID: "c-1", UserID: "marketing-1",
		Type: TypeCall, DueAt: frozen.Add(-time.Hour), Status: StatusPending,
	})
	svc := NewService(testLogger(), repo).WithClock(func() time.Time { return frozen })

	interaction, err := svc.Complete(context.Background(), profileWith("marketing-1", roles.RoleMarketing), "i-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, interaction.Status)
	require.NotNil(t, interaction.CompletedAt)
	assert.Equal(t, frozen, *interaction.CompletedAt)
}

func TestMarketingCannotTouchOthersRecords(t *testing.T) {
	repo := newMemoryRepo(Interaction{
		ID: "i-1", CustomerID: "c-1", UserID: "marketing-2",
		Type: TypeEmail, DueAt: time.Now(), Status: StatusPending,
	})
	svc := NewService(testLogger(), repo)

	_, err := svc.Get(context.Background(), profileWith("marketing-1", roles.RoleMarketing), "i-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Complete(context.Background(), profileWith("marketing-1", roles.RoleMarketing), "i-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// A supervisor sees it fine.
	_, err = svc.Get(context.Background(), profileWith("supervisor-1", roles.RoleSupervisor), "i-1")
	assert.NoError(t, err)
}

func TestListScopesMarketingToOwnRecords(t *testing.T) {
	repo := newMemoryRepo(
		Interaction{ID: "i-1", CustomerID: "c-1", UserID: "marketing-1", Type: TypeCall, DueAt: time.Now(), Status: StatusPending},
		Interaction{ID: "i-2", CustomerID: "c-2", UserID: "marketing-2", Type: TypeCall, DueAt: time.Now(), Status: StatusPending},
	)
	svc := NewService(testLogger(), repo)

	result, err := svc.List(context.Background(), profileWith("marketing-1", roles.RoleMarketing), ListInteractionsRequest{})
	require.NoError(t, err)
	require.Len(t, result.Interactions, 1)
	assert.Equal(t, "i-1", result.Interactions[0].ID)
}

func TestRescheduleResetsStatus(t *testing.T) {
	repo := newMemoryRepo(Interaction{
		ID: "i-1", CustomerID: "c-1", UserID: "marketing-1",
		Type: TypeFollowup, DueAt: time.Now().Add(-24 * time.Hour), Status: StatusOverdue,
	})
	svc := NewService(testLogger(), repo)

	due := time.Now().Add(24 * time.Hour)
	interaction, err := svc.Update(context.Background(), profileWith("marketing-1", roles.RoleMarketing), "i-1", UpdateInteractionRequest{
		DueAt: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, interaction.Status)
}

func TestPromoteOverdueOnlyTouchesPastDuePending(t *testing.T) {
	frozen := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newMemoryRepo(
		Interaction{ID: "i-1", Status: StatusPending, DueAt: frozen.Add(-time.Hour)},
		Interaction{ID: "i-2", Status: StatusPending, DueAt: frozen.Add(time.Hour)},
		Interaction{ID: "i-3", Status: StatusDone, DueAt: frozen.Add(-time.Hour)},
	)
	svc := NewService(testLogger(), repo).WithClock(func() time.Time { return frozen })

	n, err := svc.PromoteOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	past, _ := repo.Get(context.Background(), "i-1")
	future, _ := repo.Get(context.Background(), "i-2")
	done, _ := repo.Get(context.Background(), "i-3")
	assert.Equal(t, StatusOverdue, past.Status)
	assert.Equal(t, StatusPending, future.Status)
	assert.Equal(t, StatusDone, done.Status)
}
