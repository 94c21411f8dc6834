package core

import "github.com/google/uuid"

type Event struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	StartTime       Timestamp `json:"start_time"`
	EndTime         Timestamp `json:"end_time"`
	Location        string    `json:"location,omitempty"`
	Tags            Tags      `json:"tags"`
	IsAllDay        bool      `json:"is_all_day"`
	ReminderMinutes *int      `json:"reminder_minutes,omitempty"`
	RecurrenceRule  string    `json:"recurrence_rule,omitempty"`
	Color           string    `json:"color,omitempty"`
	CreatedAt       Timestamp `json:"created_at"`
	UpdatedAt       Timestamp `json:"updated_at"`
}

type EventInput struct {
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	StartTime       Timestamp `json:"start_time"`
	EndTime         Timestamp `json:"end_time"`
	Location        string    `json:"location,omitempty"`
	Tags            Tags      `json:"tags,omitempty"`
	IsAllDay        bool      `json:"is_all_day"`
	ReminderMinutes *int      `json:"reminder_minutes,omitempty"`
	RecurrenceRule  string    `json:"recurrence_rule,omitempty"`
	Color           string    `json:"color,omitempty"`
}

func (in EventInput) Validate() error {
	if err := checkLength("title", in.Title, 1, 255); err != nil {
		return err
	}
	if in.StartTime.IsZero() {
		return fieldErr("start_time", ErrRequired)
	}
	if in.EndTime.IsZero() {
		return fieldErr("end_time", ErrRequired)
	}
	if !in.EndTime.After(in.StartTime.Time) {
		return fieldErr("end_time", ErrEndBeforeStart)
	}
	if err := checkMin("reminder_minutes", in.ReminderMinutes, 0); err != nil {
		return err
	}
	if in.Color != "" && !colorPattern.MatchString(in.Color) {
		return fieldErr("color", ErrInvalidColor)
	}
	return nil
}

type EventPatch struct {
	Title           *string    `json:"title,omitempty"`
	Description     *string    `json:"description,omitempty"`
	StartTime       *Timestamp `json:"start_time,omitempty"`
	EndTime         *Timestamp `json:"end_time,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Tags            Tags       `json:"tags,omitempty"`
	IsAllDay        *bool      `json:"is_all_day,omitempty"`
	ReminderMinutes *int       `json:"reminder_minutes,omitempty"`
	RecurrenceRule  *string    `json:"recurrence_rule,omitempty"`
	Color           *string    `json:"color,omitempty"`
}

// Validate only compares start and end when both are part of the patch.
func (p EventPatch) Validate() error {
	if err := checkOptionalLength("title", p.Title, 1, 255); err != nil {
		return err
	}
	if p.StartTime != nil && p.EndTime != nil && !p.EndTime.After(p.StartTime.Time) {
		return fieldErr("end_time", ErrEndBeforeStart)
	}
	if err := checkMin("reminder_minutes", p.ReminderMinutes, 0); err != nil {
		return err
	}
	if p.Color != nil && !colorPattern.MatchString(*p.Color) {
		return fieldErr("color", ErrInvalidColor)
	}
	return nil
}

type ParsedEvent struct {
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	StartTime       *Timestamp `json:"start_time,omitempty"`
	EndTime         *Timestamp `json:"end_time,omitempty"`
	Location        string     `json:"location,omitempty"`
	Tags            Tags       `json:"tags,omitempty"`
	IsAllDay        bool       `json:"is_all_day"`
	ConfidenceScore float64    `json:"confidence_score"`
}

func (p ParsedEvent) Input() EventInput {
	in := EventInput{
		Title:       p.Title,
		Description: p.Description,
		Location:    p.Location,
		Tags:        p.Tags,
		IsAllDay:    p.IsAllDay,
	}
	if p.StartTime != nil {
		in.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		in.EndTime = *p.EndTime
	}
	return in
}

// Calendar is a month view: a week-by-week grid of day numbers (0 for days
// outside the month) and the month's events, also grouped by ISO date.
type Calendar struct {
	Year         int                `json:"year"`
	Month        int                `json:"month"`
	MonthName    string             `json:"month_name"`
	Grid         [][]int            `json:"calendar_grid"`
	Events       []Event            `json:"events"`
	EventsByDate map[string][]Event `json:"events_by_date"`
}
