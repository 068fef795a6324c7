package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian/internal/roles"
)

type stubProfiles map[string]*Profile

func (s stubProfiles) Get(ctx context.Context, userID string) (*Profile, error) {
	if p, ok := s[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, ErrNotFound
}

type stubRoles map[string]roles.Role

func (s stubRoles) Get(ctx context.Context, userID string) (*roles.Role, error) {
	if role, ok := s[userID]; ok {
		r := role
		return &r, nil
	}
	return nil, nil
}

type recordingEnder struct {
	ended []string
}

func (r *recordingEnder) End(ctx context.Context, grantID string) error {
	r.ended = append(r.ended, grantID)
	return nil
}

type mapStore map[string]string

func (m mapStore) Get(key string) string { return m[key] }
func (m mapStore) Set(key, value string) { m[key] = value }
func (m mapStore) Delete(key string)     { delete(m, key) }

func newResolverFixture() (*Resolver, *recordingEnder) {
	people := stubProfiles{
		"owner-1":   {UserID: "owner-1", DisplayName: "Owner", Email: "owner@example.com"},
		"manager-1": {UserID: "manager-1", DisplayName: "Manager", Email: "mgr@example.com"},
	}
	assignments := stubRoles{
		"owner-1":   roles.RoleOwner,
		"manager-1": roles.RoleManager,
	}
	ender := &recordingEnder{}
	return NewResolver(people, assignments, ender, nil), ender
}

func TestResolveOwnProfile(t *testing.T) {
	resolver, _ := newResolverFixture()

	res, err := resolver.Resolve(context.Background(), "owner-1", mapStore{})
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "owner-1", res.Profile.UserID)
	require.NotNil(t, res.Profile.Role)
	assert.Equal(t, roles.RoleOwner, *res.Profile.Role)
	assert.False(t, res.IsImpersonating)
}

func TestResolveUnprovisionedIdentity(t *testing.T) {
	resolver, _ := newResolverFixture()

	// Authenticated but no profile row: recoverable, not an error.
	res, err := resolver.Resolve(context.Background(), "ghost-1", mapStore{})
	require.NoError(t, err)
	assert.Nil(t, res.Profile)
	assert.False(t, res.IsImpersonating)
}

func TestResolveFollowsActivePointer(t *testing.T) {
	resolver, _ := newResolverFixture()
	store := mapStore{}
	store.Set(PointerKey, ImpersonationPointer{
		GrantID:      "grant-1",
		TargetUserID: "manager-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}.Encode())

	res, err := resolver.Resolve(context.Background(), "owner-1", store)
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "manager-1", res.Profile.UserID)
	require.NotNil(t, res.Profile.Role)
	assert.Equal(t, roles.RoleManager, *res.Profile.Role)
	assert.True(t, res.IsImpersonating)
}

func TestResolveDiscardsExpiredPointer(t *testing.T) {
	resolver, ender := newResolverFixture()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	resolver.WithClock(func() time.Time { return base })

	store := mapStore{}
	store.Set(PointerKey, ImpersonationPointer{
		GrantID:      "grant-2",
		TargetUserID: "manager-1",
		ExpiresAt:    base.Add(-time.Second),
	}.Encode())

	res, err := resolver.Resolve(context.Background(), "owner-1", store)
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "owner-1", res.Profile.UserID)
	assert.False(t, res.IsImpersonating)
	assert.Empty(t, store.Get(PointerKey))
	// Expired grants get marked ended lazily to keep audit rows accurate.
	assert.Equal(t, []string{"grant-2"}, ender.ended)
}

func TestResolveDiscardsMalformedPointer(t *testing.T) {
	resolver, ender := newResolverFixture()

	for _, raw := range []string{"not json", "{}", `{"target_user_id":""}`} {
		store := mapStore{}
		store.Set(PointerKey, raw)

		res, err := resolver.Resolve(context.Background(), "owner-1", store)
		require.NoError(t, err, "raw=%q", raw)
		require.NotNil(t, res.Profile)
		assert.Equal(t, "owner-1", res.Profile.UserID)
		assert.False(t, res.IsImpersonating)
		assert.Empty(t, store.Get(PointerKey))
	}
	assert.Empty(t, ender.ended)
}

func TestResolveFallsBackWhenTargetMissing(t *testing.T) {
	resolver, _ := newResolverFixture()
	store := mapStore{}
	store.Set(PointerKey, ImpersonationPointer{
		GrantID:      "grant-3",
		TargetUserID: "deleted-user",
		ExpiresAt:    time.Now().Add(time.Hour),
	}.Encode())

	res, err := resolver.Resolve(context.Background(), "owner-1", store)
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "owner-1", res.Profile.UserID)
	assert.False(t, res.IsImpersonating)
	assert.Empty(t, store.Get(PointerKey))
}
