package settings

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/roles"
	"github.com/meridian-crm/meridian/internal/shared"
	_ "github.com/meridian-crm/meridian/testing"
)

type memoryRepo struct {
	system        map[string]SystemSetting
	company       *CompanySetting
	preferences   map[string]UserPreference
	notifications map[string]NotificationSetting
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		system:        map[string]SystemSetting{},
		preferences:   map[string]UserPreference{},
		notifications: map[string]NotificationSetting{},
	}
}

func (m *memoryRepo) ListSystem(context.Context) ([]SystemSetting, error) {
	var out []SystemSetting
	for _, s := range m.system {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) UpdateSystemValue(_ context.Context, key string, value json.RawMessage) (SystemSetting, error) {
	s, ok := m.system[key]
	if !ok {
		return SystemSetting{}, shared.ErrNotFound
	}
	s.Value = value
	m.system[key] = s
	return s, nil
}

func (m *memoryRepo) GetCompany(context.Context) (CompanySetting, error) {
	if m.company == nil {
		return CompanySetting{}, shared.ErrNotFound
	}
	return *m.company, nil
}

func (m *memoryRepo) InsertCompany(_ context.Context, setting CompanySetting) (CompanySetting, error) {
	m.company = &setting
	return setting, nil
}

func (m *memoryRepo) UpdateCompany(_ context.Context, id string, setting CompanySetting) (CompanySetting, error) {
	if m.company == nil || m.company.ID != id {
		return CompanySetting{}, shared.ErrNotFound
	}
	setting.ID = id
	m.company = &setting
	return setting, nil
}

func (m *memoryRepo) GetPreference(_ context.Context, userID string) (UserPreference, error) {
	p, ok := m.preferences[userID]
	if !ok {
		return UserPreference{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) UpsertPreference(_ context.Context, pref UserPreference) (UserPreference, error) {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	m.preferences[pref.UserID] = pref
	return pref, nil
}

func (m *memoryRepo) GetNotifications(_ context.Context, userID string) (NotificationSetting, error) {
	n, ok := m.notifications[userID]
	if !ok {
		return NotificationSetting{}, shared.ErrNotFound
	}
	return n, nil
}

func (m *memoryRepo) UpsertNotifications(_ context.Context, setting NotificationSetting) (NotificationSetting, error) {
	if setting.ID == "" {
		setting.ID = uuid.NewString()
	}
	m.notifications[setting.UserID] = setting
	return setting, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func actorWithRole(role roles.Role) *profiles.Profile {
	return &profiles.Profile{UserID: uuid.NewString(), Role: &role}
}

func TestUpdateSystemSettingRequiresElevatedRole(t *testing.T) {
	repo := newMemoryRepo()
	repo.system["session_timeout"] = SystemSetting{ID: "s1", Key: "session_timeout", Value: json.RawMessage(`30`), Category: "security"}
	svc := NewService(testLogger(), repo, nil)

	_, err := svc.UpdateSystem(context.Background(), actorWithRole(roles.RoleMarketing), "session_timeout", UpdateSystemSettingRequest{Value: json.RawMessage(`60`)})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestUpdateSystemSettingByManager(t *testing.T) {
	repo := newMemoryRepo()
	repo.system["session_timeout"] = SystemSetting{ID: "s1", Key: "session_timeout", Value: json.RawMessage(`30`), Category: "security"}
	svc := NewService(testLogger(), repo, nil)

	setting, err := svc.UpdateSystem(context.Background(), actorWithRole(roles.RoleManager), "session_timeout", UpdateSystemSettingRequest{Value: json.RawMessage(`60`)})
	require.NoError(t, err)
	assert.JSONEq(t, `60`, string(setting.Value))
	assert.JSONEq(t, `60`, string(repo.system["session_timeout"].Value))
}

func TestUpdateSystemSettingUnknownKey(t *testing.T) {
	svc := NewService(testLogger(), newMemoryRepo(), nil)

	_, err := svc.UpdateSystem(context.Background(), actorWithRole(roles.RoleOwner), "no_such_key", UpdateSystemSettingRequest{Value: json.RawMessage(`true`)})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateCompanyCreatesSingletonWithPlaceholderName(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(testLogger(), repo, nil)

	phone := "+62 21 555 0100"
	saved, err := svc.UpdateCompany(context.Background(), actorWithRole(roles.RoleOwner), UpdateCompanySettingRequest{CompanyPhone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Your Company Name", saved.CompanyName)
	require.NotNil(t, saved.CompanyPhone)
	assert.Equal(t, phone, *saved.CompanyPhone)
	require.NotNil(t, repo.company)
}

func TestUpdateCompanyPatchesExistingRow(t *testing.T) {
	repo := newMemoryRepo()
	addr := "Jl. Sudirman 1"
	repo.company = &CompanySetting{ID: "c1", CompanyName: "Meridian", CompanyAddress: &addr}
	svc := NewService(testLogger(), repo, nil)

	name := "Meridian Sales"
	saved, err := svc.UpdateCompany(context.Background(), actorWithRole(roles.RoleSuperadmin), UpdateCompanySettingRequest{CompanyName: &name})
	require.NoError(t, err)
	assert.Equal(t, "c1", saved.ID)
	assert.Equal(t, "Meridian Sales", saved.CompanyName)
	require.NotNil(t, saved.CompanyAddress)
	assert.Equal(t, addr, *saved.CompanyAddress)
}

func TestPreferencesDefaultUntilSaved(t *testing.T) {
	svc := NewService(testLogger(), newMemoryRepo(), nil)
	actor := actorWithRole(roles.RoleMarketing)

	pref, err := svc.GetPreference(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, actor.UserID, pref.UserID)
	assert.Equal(t, "system", pref.Theme)
	assert.True(t, pref.EmailNotifications)
}

func TestUpdatePreferencesRejectsUnknownTheme(t *testing.T) {
	svc := NewService(testLogger(), newMemoryRepo(), nil)

	theme := "sepia"
	_, err := svc.UpdatePreference(context.Background(), actorWithRole(roles.RoleMarketing), UpdateUserPreferenceRequest{Theme: &theme})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdatePreferencesUpsertsForActor(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(testLogger(), repo, nil)
	actor := actorWithRole(roles.RoleSupervisor)

	theme := "dark"
	saved, err := svc.UpdatePreference(context.Background(), actor, UpdateUserPreferenceRequest{Theme: &theme})
	require.NoError(t, err)
	assert.Equal(t, "dark", saved.Theme)
	assert.Equal(t, "en", saved.Language)

	stored, ok := repo.preferences[actor.UserID]
	require.True(t, ok)
	assert.Equal(t, "dark", stored.Theme)
}

func TestNotificationTogglePersists(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(testLogger(), repo, nil)
	actor := actorWithRole(roles.RoleMarketing)

	off := false
	on := true
	saved, err := svc.UpdateNotifications(context.Background(), actor, UpdateNotificationSettingRequest{EmailOnAssignment: &off, WeeklyReport: &on})
	require.NoError(t, err)
	assert.False(t, saved.EmailOnAssignment)
	assert.True(t, saved.WeeklyReport)
	assert.True(t, saved.EmailOnNewCustomer)

	stored, ok := repo.notifications[actor.UserID]
	require.True(t, ok)
	assert.False(t, stored.EmailOnAssignment)
	assert.True(t, stored.WeeklyReport)
}
