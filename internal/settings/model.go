package settings

import (
	"encoding/json"
	"time"
)

// defaultCompanyName seeds the singleton row when the first update arrives
// before anyone filled the company profile in.
const defaultCompanyName = "Your Company Name"

// SystemSetting is one keyed tunable on the admin settings screen. Values
// are stored as raw JSON so booleans, numbers and nested objects all fit.
type SystemSetting struct {
	ID          string          `json:"id"`
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Description *string         `json:"description,omitempty"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CompanySetting is the single company profile row shown on invoices and
// the login screen. At most one row exists.
type CompanySetting struct {
	ID             string    `json:"id"`
	CompanyName    string    `json:"company_name"`
	CompanyAddress *string   `json:"company_address,omitempty"`
	CompanyPhone   *string   `json:"company_phone,omitempty"`
	CompanyEmail   *string   `json:"company_email,omitempty"`
	CompanyWebsite *string   `json:"company_website,omitempty"`
	LogoURL        *string   `json:"logo_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserPreference holds per-user UI preferences, keyed by user id.
type UserPreference struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	Theme              string         `json:"theme"`
	Language           string         `json:"language"`
	Timezone           string         `json:"timezone"`
	EmailNotifications bool           `json:"email_notifications"`
	PushNotifications  bool           `json:"push_notifications"`
	Preferences        map[string]any `json:"preferences"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// NotificationSetting holds per-user email notification toggles.
type NotificationSetting struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	EmailOnNewCustomer    bool      `json:"email_on_new_customer"`
	EmailOnInteractionDue bool      `json:"email_on_interaction_due"`
	EmailOnStatusChange   bool      `json:"email_on_status_change"`
	EmailOnAssignment     bool      `json:"email_on_assignment"`
	DailyDigest           bool      `json:"daily_digest"`
	WeeklyReport          bool      `json:"weekly_report"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func defaultPreference(userID string) UserPreference {
	return UserPreference{
		UserID:             userID,
		Theme:              "system",
		Language:           "en",
		Timezone:           "Asia/Jakarta",
		EmailNotifications: true,
		PushNotifications:  true,
		Preferences:        map[string]any{},
	}
}

func defaultNotifications(userID string) NotificationSetting {
	return NotificationSetting{
		UserID:                userID,
		EmailOnNewCustomer:    true,
		EmailOnInteractionDue: true,
		EmailOnStatusChange:   true,
		EmailOnAssignment:     true,
		DailyDigest:           false,
		WeeklyReport:          false,
	}
}
