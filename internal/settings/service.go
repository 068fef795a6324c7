package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	mdshared "github.com/meridian-crm/meridian/internal/masterdata/shared"
	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/shared"
)

// Service mediates settings access. System and company settings are global
// and write-gated the same way masterdata is; preferences and notification
// toggles belong to the acting user and need no elevated role.
type Service struct {
	logger *slog.Logger
	repo   Repository
	audit  *shared.AuditLogger
}

func NewService(logger *slog.Logger, repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{logger: logger, repo: repo, audit: audit}
}

func (s *Service) ListSystem(ctx context.Context, actor *profiles.Profile) ([]SystemSetting, error) {
	if actor == nil || actor.Role == nil {
		return nil, shared.ErrPermissionDenied
	}
	settings, err := s.repo.ListSystem(ctx)
	if err != nil {
		return nil, fmt.Errorf("list system settings: %w", err)
	}
	if settings == nil {
		settings = []SystemSetting{}
	}
	return settings, nil
}

func (s *Service) UpdateSystem(ctx context.Context, actor *profiles.Profile, key string, req UpdateSystemSettingRequest) (*SystemSetting, error) {
	if actor == nil || !mdshared.CanWrite(actor.Role) {
		return nil, shared.ErrPermissionDenied
	}
	key = strings.TrimSpace(key)
	if key == "" || !json.Valid(req.Value) {
		return nil, shared.ErrValidation
	}
	setting, err := s.repo.UpdateSystemValue(ctx, key, req.Value)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update system setting: %w", err)
	}
	s.recordAudit(ctx, actor, "settings.system.update", "system_setting", setting.Key, map[string]any{"category": setting.Category})
	return &setting, nil
}

// GetCompany returns the singleton company row. Before anyone saved it the
// client gets an empty profile with the placeholder name rather than a 404.
func (s *Service) GetCompany(ctx context.Context, actor *profiles.Profile) (*CompanySetting, error) {
	if actor == nil || actor.Role == nil {
		return nil, shared.ErrPermissionDenied
	}
	setting, err := s.repo.GetCompany(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &CompanySetting{CompanyName: defaultCompanyName}, nil
		}
		return nil, fmt.Errorf("get company settings: %w", err)
	}
	return &setting, nil
}

func (s *Service) UpdateCompany(ctx context.Context, actor *profiles.Profile, req UpdateCompanySettingRequest) (*CompanySetting, error) {
	if actor == nil || !mdshared.CanWrite(actor.Role) {
		return nil, shared.ErrPermissionDenied
	}

	current, err := s.repo.GetCompany(ctx)
	fresh := false
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("get company settings: %w", err)
		}
		fresh = true
		current = CompanySetting{ID: uuid.NewString(), CompanyName: defaultCompanyName}
	}

	if req.CompanyName != nil {
		name := strings.TrimSpace(*req.CompanyName)
		if name == "" {
			return nil, shared.ErrValidation
		}
		current.CompanyName = name
	}
	if req.CompanyAddress != nil {
		current.CompanyAddress = req.CompanyAddress
	}
	if req.CompanyPhone != nil {
		current.CompanyPhone = req.CompanyPhone
	}
	if req.CompanyEmail != nil {
		current.CompanyEmail = req.CompanyEmail
	}
	if req.CompanyWebsite != nil {
		current.CompanyWebsite = req.CompanyWebsite
	}
	if req.LogoURL != nil {
		current.LogoURL = req.LogoURL
	}

	var saved CompanySetting
	if fresh {
		saved, err = s.repo.InsertCompany(ctx, current)
	} else {
		saved, err = s.repo.UpdateCompany(ctx, current.ID, current)
	}
	if err != nil {
		return nil, fmt.Errorf("save company settings: %w", err)
	}
	s.recordAudit(ctx, actor, "settings.company.update", "company_setting", saved.ID, map[string]any{"company_name": saved.CompanyName})
	return &saved, nil
}

// GetPreference returns the acting user's preferences, falling back to the
// defaults when nothing has been saved yet.
func (s *Service) GetPreference(ctx context.Context, actor *profiles.Profile) (*UserPreference, error) {
	if actor == nil || actor.UserID == "" {
		return nil, shared.ErrPermissionDenied
	}
	pref, err := s.repo.GetPreference(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			pref = defaultPreference(actor.UserID)
			return &pref, nil
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &pref, nil
}

func (s *Service) UpdatePreference(ctx context.Context, actor *profiles.Profile, req UpdateUserPreferenceRequest) (*UserPreference, error) {
	if actor == nil || actor.UserID == "" {
		return nil, shared.ErrPermissionDenied
	}

	current, err := s.repo.GetPreference(ctx, actor.UserID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("get preferences: %w", err)
		}
		current = defaultPreference(actor.UserID)
		current.ID = uuid.NewString()
	}

	if req.Theme != nil {
		switch *req.Theme {
		case "light", "dark", "system":
			current.Theme = *req.Theme
		default:
			return nil, shared.ErrValidation
		}
	}
	if req.Language != nil {
		current.Language = *req.Language
	}
	if req.Timezone != nil {
		current.Timezone = *req.Timezone
	}
	if req.EmailNotifications != nil {
		current.EmailNotifications = *req.EmailNotifications
	}
	if req.PushNotifications != nil {
		current.PushNotifications = *req.PushNotifications
	}
	if req.Preferences != nil {
		current.Preferences = req.Preferences
	}

	saved, err := s.repo.UpsertPreference(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}
	return &saved, nil
}

func (s *Service) GetNotifications(ctx context.Context, actor *profiles.Profile) (*NotificationSetting, error) {
	if actor == nil || actor.UserID == "" {
		return nil, shared.ErrPermissionDenied
	}
	setting, err := s.repo.GetNotifications(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			setting = defaultNotifications(actor.UserID)
			return &setting, nil
		}
		return nil, fmt.Errorf("get notification settings: %w", err)
	}
	return &setting, nil
}

func (s *Service) UpdateNotifications(ctx context.Context, actor *profiles.Profile, req UpdateNotificationSettingRequest) (*NotificationSetting, error) {
	if actor == nil || actor.UserID == "" {
		return nil, shared.ErrPermissionDenied
	}

	current, err := s.repo.GetNotifications(ctx, actor.UserID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("get notification settings: %w", err)
		}
		current = defaultNotifications(actor.UserID)
		current.ID = uuid.NewString()
	}

	if req.EmailOnNewCustomer != nil {
		current.EmailOnNewCustomer = *req.EmailOnNewCustomer
	}
	if req.EmailOnInteractionDue != nil {
		current.EmailOnInteractionDue = *req.EmailOnInteractionDue
	}
	if req.EmailOnStatusChange != nil {
		current.EmailOnStatusChange = *req.EmailOnStatusChange
	}
	if req.EmailOnAssignment != nil {
		current.EmailOnAssignment = *req.EmailOnAssignment
	}
	if req.DailyDigest != nil {
		current.DailyDigest = *req.DailyDigest
	}
	if req.WeeklyReport != nil {
		current.WeeklyReport = *req.WeeklyReport
	}

	saved, err := s.repo.UpsertNotifications(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("save notification settings: %w", err)
	}
	return &saved, nil
}

func (s *Service) recordAudit(ctx context.Context, actor *profiles.Profile, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit settings update", slog.Any("error", err))
	}
}
