package settings

import "encoding/json"

type UpdateSystemSettingRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

type UpdateCompanySettingRequest struct {
	CompanyName    *string `json:"company_name,omitempty" validate:"omitempty,max=200"`
	CompanyAddress *string `json:"company_address,omitempty" validate:"omitempty,max=500"`
	CompanyPhone   *string `json:"company_phone,omitempty" validate:"omitempty,max=50"`
	CompanyEmail   *string `json:"company_email,omitempty" validate:"omitempty,email"`
	CompanyWebsite *string `json:"company_website,omitempty" validate:"omitempty,max=200"`
	LogoURL        *string `json:"logo_url,omitempty" validate:"omitempty,max=500"`
}

type UpdateUserPreferenceRequest struct {
	Theme              *string        `json:"theme,omitempty" validate:"omitempty,oneof=light dark system"`
	Language           *string        `json:"language,omitempty" validate:"omitempty,max=20"`
	Timezone           *string        `json:"timezone,omitempty" validate:"omitempty,max=60"`
	EmailNotifications *bool          `json:"email_notifications,omitempty"`
	PushNotifications  *bool          `json:"push_notifications,omitempty"`
	Preferences        map[string]any `json:"preferences,omitempty"`
}

type UpdateNotificationSettingRequest struct {
	EmailOnNewCustomer    *bool `json:"email_on_new_customer,omitempty"`
	EmailOnInteractionDue *bool `json:"email_on_interaction_due,omitempty"`
	EmailOnStatusChange   *bool `json:"email_on_status_change,omitempty"`
	EmailOnAssignment     *bool `json:"email_on_assignment,omitempty"`
	DailyDigest           *bool `json:"daily_digest,omitempty"`
	WeeklyReport          *bool `json:"weekly_report,omitempty"`
}
