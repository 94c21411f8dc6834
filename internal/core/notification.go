package core

type NotificationSettings struct {
	EmailEnabled  bool   `json:"email_enabled"`
	PreferredTime string `json:"preferred_time"`
}

type NotificationSettingsPatch struct {
	EmailEnabled  *bool   `json:"email_enabled,omitempty"`
	PreferredTime *string `json:"preferred_time,omitempty"`
}

func (p NotificationSettingsPatch) Validate() error {
	if p.PreferredTime != nil && !clockPattern.MatchString(*p.PreferredTime) {
		return fieldErr("preferred_time", ErrInvalidTime)
	}
	return nil
}

// DailySummary is the content of the daily summary email.
type DailySummary struct {
	TasksPending         int    `json:"tasks_pending"`
	TasksDueToday        int    `json:"tasks_due_today"`
	TasksOverdue         int    `json:"tasks_overdue"`
	TasksCompletedToday  int    `json:"tasks_completed_today"`
	EventsToday          int    `json:"events_today"`
	EventsUpcoming       []any  `json:"events_upcoming"`
	ExpensesToday        Money  `json:"expenses_today"`
	ExpensesThisWeek     Money  `json:"expenses_this_week"`
	TopExpenseCategory   string `json:"top_expense_category,omitempty"`
	JournalLastEntryDays *int   `json:"journal_last_entry_days,omitempty"`
	TasksDueNextWeek     int    `json:"tasks_due_next_week"`
	EventsNextWeek       int    `json:"events_next_week"`
	EventsNextWeekList   []any  `json:"events_next_week_list"`
}
