package core

import (
	"net/mail"

	"github.com/google/uuid"
)

type Profile struct {
	ID                uuid.UUID `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	IsVerified        bool      `json:"is_verified"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	Timezone          string    `json:"timezone"`
	CreatedAt         Timestamp `json:"created_at"`
	UpdatedAt         Timestamp `json:"updated_at"`
}

func (p Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type ProfilePatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Username  *string `json:"username,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
}

func (p ProfilePatch) Validate() error {
	return firstError(
		checkOptionalLength("first_name", p.FirstName, 1, 0),
		checkOptionalLength("last_name", p.LastName, 1, 0),
		checkOptionalLength("username", p.Username, 1, 0),
		checkOptionalLength("timezone", p.Timezone, 1, 0),
	)
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeAuto
}

type TimeFormat string

const (
	TimeFormat12h TimeFormat = "12h"
	TimeFormat24h TimeFormat = "24h"
)

func (f TimeFormat) Valid() bool {
	return f == TimeFormat12h || f == TimeFormat24h
}

type WeekStartDay string

const (
	WeekStartMonday WeekStartDay = "monday"
	WeekStartSunday WeekStartDay = "sunday"
)

func (d WeekStartDay) Valid() bool {
	return d == WeekStartMonday || d == WeekStartSunday
}

type Preferences struct {
	ID                     uuid.UUID      `json:"id"`
	UserID                 uuid.UUID      `json:"user_id"`
	DefaultTaskPriority    TaskPriority   `json:"default_task_priority"`
	DefaultExpenseCurrency string         `json:"default_expense_currency"`
	NotificationSettings   map[string]any `json:"notification_settings,omitempty"`
	Theme                  Theme          `json:"theme"`
	Language               string         `json:"language"`
	DateFormat             string         `json:"date_format"`
	TimeFormat             TimeFormat     `json:"time_format"`
	WeekStartDay           WeekStartDay   `json:"week_start_day"`
	AIInsightsEnabled      bool           `json:"ai_insights_enabled"`
	CreatedAt              Timestamp      `json:"created_at"`
	UpdatedAt              Timestamp      `json:"updated_at"`
}

type PreferencesPatch struct {
	DefaultTaskPriority    *TaskPriority  `json:"default_task_priority,omitempty"`
	DefaultExpenseCurrency *string        `json:"default_expense_currency,omitempty"`
	NotificationSettings   map[string]any `json:"notification_settings,omitempty"`
	Theme                  *Theme         `json:"theme,omitempty"`
	Language               *string        `json:"language,omitempty"`
	DateFormat             *string        `json:"date_format,omitempty"`
	TimeFormat             *TimeFormat    `json:"time_format,omitempty"`
	WeekStartDay           *WeekStartDay  `json:"week_start_day,omitempty"`
	AIInsightsEnabled      *bool          `json:"ai_insights_enabled,omitempty"`
}

func (p PreferencesPatch) Validate() error {
	return firstError(
		checkOptionalChoice("default_task_priority", p.DefaultTaskPriority),
		checkOptionalLength("default_expense_currency", p.DefaultExpenseCurrency, 1, 0),
		checkOptionalChoice("theme", p.Theme),
		checkOptionalChoice("time_format", p.TimeFormat),
		checkOptionalChoice("week_start_day", p.WeekStartDay),
	)
}

// Signup is the registration form.
type Signup struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s Signup) Validate() error {
	if err := firstError(
		checkLength("full_name", s.FullName, 1, 0),
		checkLength("username", s.Username, 1, 0),
		checkLength("email", s.Email, 1, 0),
		checkLength("password", s.Password, 1, 0),
	); err != nil {
		return err
	}
	if addr, err := mail.ParseAddress(s.Email); err != nil || addr.Address != s.Email {
		return fieldErr("email", ErrInvalidEmail)
	}
	return nil
}

// Account is the user record returned by signup.
type Account struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt Timestamp `json:"created_at"`
}
