package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian/internal/shared"
)

type Repository interface {
	ListSystem(ctx context.Context) ([]SystemSetting, error)
	UpdateSystemValue(ctx context.Context, key string, value json.RawMessage) (SystemSetting, error)

	GetCompany(ctx context.Context) (CompanySetting, error)
	InsertCompany(ctx context.Context, setting CompanySetting) (CompanySetting, error)
	UpdateCompany(ctx context.Context, id string, setting CompanySetting) (CompanySetting, error)

	GetPreference(ctx context.Context, userID string) (UserPreference, error)
	UpsertPreference(ctx context.Context, pref UserPreference) (UserPreference, error)

	GetNotifications(ctx context.Context, userID string) (NotificationSetting, error)
	UpsertNotifications(ctx context.Context, setting NotificationSetting) (NotificationSetting, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListSystem(ctx context.Context) ([]SystemSetting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, key, value, description, category, created_at, updated_at
		FROM system_settings
		ORDER BY category ASC, key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []SystemSetting
	for rows.Next() {
		s, err := scanSystemSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *repository) UpdateSystemValue(ctx context.Context, key string, value json.RawMessage) (SystemSetting, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE system_settings SET value = $1, updated_at = NOW()
		WHERE key = $2
		RETURNING id, key, value, description, category, created_at, updated_at`,
		value, key)
	s, err := scanSystemSetting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SystemSetting{}, shared.ErrNotFound
		}
		return SystemSetting{}, err
	}
	return s, nil
}

func (r *repository) GetCompany(ctx context.Context) (CompanySetting, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, company_name, company_address, company_phone, company_email, company_website, logo_url, created_at, updated_at
		FROM company_settings
		ORDER BY created_at ASC
		LIMIT 1`)
	c, err := scanCompanySetting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CompanySetting{}, shared.ErrNotFound
		}
		return CompanySetting{}, err
	}
	return c, nil
}

func (r *repository) InsertCompany(ctx context.Context, setting CompanySetting) (CompanySetting, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO company_settings (id, company_name, company_address, company_phone, company_email, company_website, logo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, company_name, company_address, company_phone, company_email, company_website, logo_url, created_at, updated_at`,
		setting.ID, setting.CompanyName, setting.CompanyAddress, setting.CompanyPhone,
		setting.CompanyEmail, setting.CompanyWebsite, setting.LogoURL)
	return scanCompanySetting(row)
}

func (r *repository) UpdateCompany(ctx context.Context, id string, setting CompanySetting) (CompanySetting, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE company_settings
		SET company_name = $1, company_address = $2, company_phone = $3, company_email = $4,
		    company_website = $5, logo_url = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING id, company_name, company_address, company_phone, company_email, company_website, logo_url, created_at, updated_at`,
		setting.CompanyName, setting.CompanyAddress, setting.CompanyPhone, setting.CompanyEmail,
		setting.CompanyWebsite, setting.LogoURL, id)
	c, err := scanCompanySetting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CompanySetting{}, shared.ErrNotFound
		}
		return CompanySetting{}, err
	}
	return c, nil
}

func (r *repository) GetPreference(ctx context.Context, userID string) (UserPreference, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, theme, language, timezone, email_notifications, push_notifications, preferences, created_at, updated_at
		FROM user_preferences
		WHERE user_id = $1`, userID)
	p, err := scanPreference(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserPreference{}, shared.ErrNotFound
		}
		return UserPreference{}, err
	}
	return p, nil
}

func (r *repository) UpsertPreference(ctx context.Context, pref UserPreference) (UserPreference, error) {
	extra, err := json.Marshal(pref.Preferences)
	if err != nil {
		return UserPreference{}, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO user_preferences (id, user_id, theme, language, timezone, email_notifications, push_notifications, preferences, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			theme = EXCLUDED.theme,
			language = EXCLUDED.language,
			timezone = EXCLUDED.timezone,
			email_notifications = EXCLUDED.email_notifications,
			push_notifications = EXCLUDED.push_notifications,
			preferences = EXCLUDED.preferences,
			updated_at = NOW()
		RETURNING id, user_id, theme, language, timezone, email_notifications, push_notifications, preferences, created_at, updated_at`,
		pref.ID, pref.UserID, pref.Theme, pref.Language, pref.Timezone,
		pref.EmailNotifications, pref.PushNotifications, extra)
	return scanPreference(row)
}

func (r *repository) GetNotifications(ctx context.Context, userID string) (NotificationSetting, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, email_on_new_customer, email_on_interaction_due, email_on_status_change, email_on_assignment, daily_digest, weekly_report, created_at, updated_at
		FROM notification_settings
		WHERE user_id = $1`, userID)
	n, err := scanNotifications(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return NotificationSetting{}, shared.ErrNotFound
		}
		return NotificationSetting{}, err
	}
	return n, nil
}

func (r *repository) UpsertNotifications(ctx context.Context, setting NotificationSetting) (NotificationSetting, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notification_settings (id, user_id, email_on_new_customer, email_on_interaction_due, email_on_status_change, email_on_assignment, daily_digest, weekly_report, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			email_on_new_customer = EXCLUDED.email_on_new_customer,
			email_on_interaction_due = EXCLUDED.email_on_interaction_due,
			email_on_status_change = EXCLUDED.email_on_status_change,
			email_on_assignment = EXCLUDED.email_on_assignment,
			daily_digest = EXCLUDED.daily_digest,
			weekly_report = EXCLUDED.weekly_report,
			updated_at = NOW()
		RETURNING id, user_id, email_on_new_customer, email_on_interaction_due, email_on_status_change, email_on_assignment, daily_digest, weekly_report, created_at, updated_at`,
		setting.ID, setting.UserID, setting.EmailOnNewCustomer, setting.EmailOnInteractionDue,
		setting.EmailOnStatusChange, setting.EmailOnAssignment, setting.DailyDigest, setting.WeeklyReport)
	return scanNotifications(row)
}

func scanSystemSetting(row pgx.Row) (SystemSetting, error) {
	var s SystemSetting
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&s.ID, &s.Key, &s.Value, &s.Description, &s.Category, &createdAt, &updatedAt); err != nil {
		return SystemSetting{}, err
	}
	if createdAt.Valid {
		s.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		s.UpdatedAt = updatedAt.Time
	}
	return s, nil
}

func scanCompanySetting(row pgx.Row) (CompanySetting, error) {
	var c CompanySetting
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&c.ID, &c.CompanyName, &c.CompanyAddress, &c.CompanyPhone, &c.CompanyEmail,
		&c.CompanyWebsite, &c.LogoURL, &createdAt, &updatedAt); err != nil {
		return CompanySetting{}, err
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return c, nil
}

func scanPreference(row pgx.Row) (UserPreference, error) {
	var p UserPreference
	var extra []byte
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&p.ID, &p.UserID, &p.Theme, &p.Language, &p.Timezone,
		&p.EmailNotifications, &p.PushNotifications, &extra, &createdAt, &updatedAt); err != nil {
		return UserPreference{}, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &p.Preferences); err != nil {
			return UserPreference{}, err
		}
	}
	if p.Preferences == nil {
		p.Preferences = map[string]any{}
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return p, nil
}

func scanNotifications(row pgx.Row) (NotificationSetting, error) {
	var n NotificationSetting
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&n.ID, &n.UserID, &n.EmailOnNewCustomer, &n.EmailOnInteractionDue,
		&n.EmailOnStatusChange, &n.EmailOnAssignment, &n.DailyDigest, &n.WeeklyReport,
		&createdAt, &updatedAt); err != nil {
		return NotificationSetting{}, err
	}
	if createdAt.Valid {
		n.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		n.UpdatedAt = updatedAt.Time
	}
	return n, nil
}
