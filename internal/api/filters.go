package api

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"lin/internal/core"
)

func pageQuery(p core.ListParams) (url.Values, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q, nil
}

func setTime(q url.Values, key string, t time.Time) {
	if !t.IsZero() {
		q.Set(key, t.Format(time.RFC3339))
	}
}

func setString(q url.Values, key, v string) {
	if v = strings.TrimSpace(v); v != "" {
		q.Set(key, v)
	}
}

// TaskFilter narrows ListTasks. Zero fields are not sent.
type TaskFilter struct {
	core.ListParams
	Status    core.TaskStatus
	Priority  core.TaskPriority
	DueDate   time.Time
	StartDate time.Time
	EndDate   time.Time
	Tags      []string
	Search    string
}

func (f TaskFilter) query() (url.Values, error) {
	q, err := pageQuery(f.ListParams)
	if err != nil {
		return nil, err
	}
	setString(q, "status", string(f.Status))
	setString(q, "priority", string(f.Priority))
	setTime(q, "due_date", f.DueDate)
	setTime(q, "start_date", f.StartDate)
	setTime(q, "end_date", f.EndDate)
	if len(f.Tags) > 0 {
		q.Set("tags", strings.Join(f.Tags, ","))
	}
	setString(q, "search", f.Search)
	return q, nil
}

// ExpenseFilter narrows ListExpenses. Zero fields are not sent.
type ExpenseFilter struct {
	core.ListParams
	Category      core.ExpenseCategory
	StartDate     time.Time
	EndDate       time.Time
	MinAmount     *core.Money
	MaxAmount     *core.Money
	Merchant      string
	PaymentMethod core.PaymentMethod
	Search        string
}

func (f ExpenseFilter) query() (url.Values, error) {
	q, err := pageQuery(f.ListParams)
	if err != nil {
		return nil, err
	}
	setString(q, "category", string(f.Category))
	setTime(q, "start_date", f.StartDate)
	setTime(q, "end_date", f.EndDate)
	if f.MinAmount != nil {
		q.Set("min_amount", f.MinAmount.String())
	}
	if f.MaxAmount != nil {
		q.Set("max_amount", f.MaxAmount.String())
	}
	setString(q, "merchant", f.Merchant)
	setString(q, "payment_method", string(f.PaymentMethod))
	setString(q, "search", f.Search)
	return q, nil
}

// EventFilter narrows ListEvents. Zero fields are not sent.
type EventFilter struct {
	core.ListParams
	StartDate time.Time
	EndDate   time.Time
	Search    string
}

func (f EventFilter) query() (url.Values, error) {
	q, err := pageQuery(f.ListParams)
	if err != nil {
		return nil, err
	}
	setTime(q, "start_date", f.StartDate)
	setTime(q, "end_date", f.EndDate)
	setString(q, "search", f.Search)
	return q, nil
}

// JournalFilter narrows ListJournal. Zero fields are not sent.
type JournalFilter struct {
	core.ListParams
	Mood      core.JournalMood
	StartDate time.Time
	EndDate   time.Time
	Search    string
}

func (f JournalFilter) query() (url.Values, error) {
	q, err := pageQuery(f.ListParams)
	if err != nil {
		return nil, err
	}
	setString(q, "mood", string(f.Mood))
	setTime(q, "start_date", f.StartDate)
	setTime(q, "end_date", f.EndDate)
	setString(q, "search", f.Search)
	return q, nil
}

// PendingFilter narrows ListPending.
type PendingFilter struct {
	core.ListParams
	Status    core.UpdateStatus
	Category  core.UpdateCategory
	SessionID string
}

func (f PendingFilter) query() (url.Values, error) {
	q, err := pageQuery(f.ListParams)
	if err != nil {
		return nil, err
	}
	setString(q, "status", string(f.Status))
	setString(q, "category", string(f.Category))
	setString(q, "session_id", f.SessionID)
	return q, nil
}
