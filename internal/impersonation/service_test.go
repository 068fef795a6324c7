package impersonation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/roles"
	"github.com/meridian-crm/meridian/internal/shared"
)

type mockGrantStore struct {
	grants map[string]*Grant
	order  []string
}

func newMockGrantStore() *mockGrantStore {
	return &mockGrantStore{grants: make(map[string]*Grant)}
}

func (m *mockGrantStore) FindActiveByOwner(ctx context.Context, ownerID string) (*Grant, error) {
	for i := len(m.order) - 1; i >= 0; i-- {
		g := m.grants[m.order[i]]
		if g.OwnerUserID == ownerID && g.Active {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockGrantStore) Switch(ctx context.Context, grant Grant) error {
	for _, g := range m.grants {
		if g.OwnerUserID == grant.OwnerUserID && g.Active {
			g.Active = false
			now := time.Now()
			g.EndedAt = &now
		}
	}
	copied := grant
	m.grants[grant.ID] = &copied
	m.order = append(m.order, grant.ID)
	return nil
}

func (m *mockGrantStore) End(ctx context.Context, grantID string) error {
	if g, ok := m.grants[grantID]; ok && g.Active {
		g.Active = false
		now := time.Now()
		g.EndedAt = &now
	}
	return nil
}

func (m *mockGrantStore) activeCount(ownerID string) int {
	count := 0
	for _, g := range m.grants {
		if g.OwnerUserID == ownerID && g.Active {
			count++
		}
	}
	return count
}

type mockDirectory struct {
	profiles map[string]*profiles.Profile
	roles    map[string]roles.Role
}

func (m *mockDirectory) Get(ctx context.Context, userID string) (*profiles.Profile, error) {
	if p, ok := m.profiles[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, profiles.ErrNotFound
}

func (m *mockDirectory) List(ctx context.Context, excludeUserID string) ([]profiles.Profile, error) {
	var out []profiles.Profile
	for id, p := range m.profiles {
		if id == excludeUserID {
			continue
		}
		copied := *p
		if role, ok := m.roles[id]; ok {
			r := role
			copied.Role = &r
		}
		out = append(out, copied)
	}
	return out, nil
}

type mockRoleSource mockDirectory

func (m *mockRoleSource) Get(ctx context.Context, userID string) (*roles.Role, error) {
	if role, ok := m.roles[userID]; ok {
		r := role
		return &r, nil
	}
	return nil, nil
}

type nopAuditor struct{}

func (nopAuditor) Record(ctx context.Context, log shared.AuditLog) error { return nil }

type mapPointerStore map[string]string

func (m mapPointerStore) Get(key string) string { return m[key] }
func (m mapPointerStore) Set(key, value string) { m[key] = value }
func (m mapPointerStore) Delete(key string)     { delete(m, key) }

func newFixture(t *testing.T) (*Service, *mockGrantStore, *mockDirectory) {
	t.Helper()
	dir := &mockDirectory{
		profiles: map[string]*profiles.Profile{
			"owner-1":      {UserID: "owner-1", DisplayName: "Owner", Email: "owner@example.com"},
			"manager-a":    {UserID: "manager-a", DisplayName: "Manager A", Email: "a@example.com"},
			"manager-b":    {UserID: "manager-b", DisplayName: "Manager B", Email: "b@example.com"},
			"supervisor-1": {UserID: "supervisor-1", DisplayName: "Supervisor", Email: "spv@example.com"},
			"marketing-1":  {UserID: "marketing-1", DisplayName: "Marketing", Email: "mkt@example.com"},
			"norole-1":     {UserID: "norole-1", DisplayName: "Unassigned", Email: "none@example.com"},
		},
		roles: map[string]roles.Role{
			"owner-1":      roles.RoleOwner,
			"manager-a":    roles.RoleManager,
			"manager-b":    roles.RoleManager,
			"supervisor-1": roles.RoleSupervisor,
			"marketing-1":  roles.RoleMarketing,
		},
	}
	grants := newMockGrantStore()
	svc := NewService(grants, dir, (*mockRoleSource)(dir), nopAuditor{}, nil, 24*time.Hour)
	return svc, grants, dir
}

func TestSwitchToUserCreatesGrantAndPointer(t *testing.T) {
	svc, grants, _ := newFixture(t)
	store := mapPointerStore{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return base })

	grant, err := svc.SwitchToUser(context.Background(), "owner-1", "manager-a", store)
	require.NoError(t, err)
	require.NotNil(t, grant)

	assert.Equal(t, "owner-1", grant.OwnerUserID)
	assert.Equal(t, "manager-a", grant.TargetUserID)
	assert.True(t, grant.Active)
	assert.NotEmpty(t, grant.Token)
	assert.Equal(t, base.Add(24*time.Hour), grant.ExpiresAt)
	assert.Equal(t, 1, grants.activeCount("owner-1"))

	pointer, ok := profiles.DecodePointer(store.Get(profiles.PointerKey))
	require.True(t, ok)
	assert.Equal(t, grant.ID, pointer.GrantID)
	assert.Equal(t, "manager-a", pointer.TargetUserID)
	assert.Equal(t, grant.ExpiresAt.Unix(), pointer.ExpiresAt.Unix())
}

func TestSwitchToUserDeniedForEmptySubordinateSet(t *testing.T) {
	svc, grants, _ := newFixture(t)
	store := mapPointerStore{}

	_, err := svc.SwitchToUser(context.Background(), "supervisor-1", "marketing-1", store)
	require.ErrorIs(t, err, shared.ErrPermissionDenied)

	assert.Equal(t, 0, grants.activeCount("supervisor-1"))
	assert.Empty(t, store.Get(profiles.PointerKey))
}

func TestSwitchToUserDeniedWithoutRoles(t *testing.T) {
	svc, _, _ := newFixture(t)

	// No role on either side fails closed.
	_, err := svc.SwitchToUser(context.Background(), "norole-1", "marketing-1", nil)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	_, err = svc.SwitchToUser(context.Background(), "owner-1", "norole-1", nil)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	// Self-impersonation is never allowed.
	_, err = svc.SwitchToUser(context.Background(), "owner-1", "owner-1", nil)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestSwitchToUserUnknownTarget(t *testing.T) {
	svc, _, _ := newFixture(t)
	_, err := svc.SwitchToUser(context.Background(), "owner-1", "missing", nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReswitchEndsPriorGrant(t *testing.T) {
	svc, grants, _ := newFixture(t)
	store := mapPointerStore{}

	first, err := svc.SwitchToUser(context.Background(), "owner-1", "manager-a", store)
	require.NoError(t, err)
	second, err := svc.SwitchToUser(context.Background(), "owner-1", "manager-b", store)
	require.NoError(t, err)

	assert.Equal(t, 1, grants.activeCount("owner-1"))
	assert.False(t, grants.grants[first.ID].Active)
	assert.NotNil(t, grants.grants[first.ID].EndedAt)
	assert.True(t, grants.grants[second.ID].Active)

	pointer, ok := profiles.DecodePointer(store.Get(profiles.PointerKey))
	require.True(t, ok)
	assert.Equal(t, "manager-b", pointer.TargetUserID)
}

func TestEndIsIdempotent(t *testing.T) {
	svc, grants, _ := newFixture(t)
	store := mapPointerStore{}

	grant, err := svc.SwitchToUser(context.Background(), "owner-1", "manager-a", store)
	require.NoError(t, err)

	require.NoError(t, svc.End(context.Background(), "owner-1", store))
	assert.False(t, grants.grants[grant.ID].Active)
	assert.Empty(t, store.Get(profiles.PointerKey))

	// Second end is a no-op, not an error.
	require.NoError(t, svc.End(context.Background(), "owner-1", store))
	assert.Equal(t, 0, grants.activeCount("owner-1"))
}

func TestCurrentIgnoresExpiredGrant(t *testing.T) {
	svc, _, _ := newFixture(t)
	store := mapPointerStore{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return base })

	_, err := svc.SwitchToUser(context.Background(), "owner-1", "manager-a", store)
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return base.Add(24*time.Hour + time.Second) })
	current, err := svc.Current(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestListEligibleTargets(t *testing.T) {
	svc, _, _ := newFixture(t)

	eligible, err := svc.ListEligibleTargets(context.Background(), "owner-1")
	require.NoError(t, err)

	ids := make(map[string]bool, len(eligible))
	for _, p := range eligible {
		ids[p.UserID] = true
	}
	// Owner manages manager, supervisor, marketing; never itself, never a
	// role-less profile.
	assert.True(t, ids["manager-a"])
	assert.True(t, ids["manager-b"])
	assert.True(t, ids["supervisor-1"])
	assert.True(t, ids["marketing-1"])
	assert.False(t, ids["owner-1"])
	assert.False(t, ids["norole-1"])

	// An empty subordinate set yields no targets at all.
	eligible, err = svc.ListEligibleTargets(context.Background(), "marketing-1")
	require.NoError(t, err)
	assert.Empty(t, eligible)
}
