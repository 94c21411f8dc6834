package core

import "github.com/google/uuid"

type UpdateCategory string

const (
	UpdateTask    UpdateCategory = "task"
	UpdateExpense UpdateCategory = "expense"
	UpdateEvent   UpdateCategory = "event"
	UpdateJournal UpdateCategory = "journal"
)

func (c UpdateCategory) Valid() bool {
	switch c {
	case UpdateTask, UpdateExpense, UpdateEvent, UpdateJournal:
		return true
	}
	return false
}

type UpdateStatus string

const (
	UpdatePending  UpdateStatus = "pending"
	UpdateAccepted UpdateStatus = "accepted"
	UpdateRejected UpdateStatus = "rejected"
)

func (s UpdateStatus) Valid() bool {
	switch s {
	case UpdatePending, UpdateAccepted, UpdateRejected:
		return true
	}
	return false
}

// PendingUpdate is a draft entry captured during a daily-update session,
// waiting for the user to accept or reject it.
type PendingUpdate struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	Category       UpdateCategory `json:"category"`
	Summary        string         `json:"summary"`
	RawText        string         `json:"raw_text,omitempty"`
	StructuredData map[string]any `json:"structured_data"`
	Status         UpdateStatus   `json:"status"`
	SessionID      *uuid.UUID     `json:"session_id,omitempty"`
	CreatedAt      Timestamp      `json:"created_at"`
	UpdatedAt      Timestamp      `json:"updated_at"`
}

type PendingUpdateInput struct {
	Category       UpdateCategory `json:"category"`
	Summary        string         `json:"summary"`
	RawText        string         `json:"raw_text,omitempty"`
	StructuredData map[string]any `json:"structured_data"`
}

func (in PendingUpdateInput) Validate() error {
	if in.Category == "" {
		return fieldErr("category", ErrRequired)
	}
	return firstError(
		checkChoice("category", in.Category),
		checkLength("summary", in.Summary, 1, 255),
		checkLength("raw_text", in.RawText, 0, 2000),
	)
}

type PendingUpdateEdit struct {
	Summary        *string        `json:"summary,omitempty"`
	StructuredData map[string]any `json:"structured_data,omitempty"`
}

func (e PendingUpdateEdit) Validate() error {
	return checkOptionalLength("summary", e.Summary, 1, 255)
}

type AcceptedItem struct {
	PendingUpdateID uuid.UUID      `json:"pending_update_id"`
	Category        UpdateCategory `json:"category"`
	CreatedItemID   *uuid.UUID     `json:"created_item_id,omitempty"`
	Success         bool           `json:"success"`
	Error           string         `json:"error,omitempty"`
}

type PendingSummary struct {
	TotalPending int                    `json:"total_pending"`
	ByCategory   map[UpdateCategory]int `json:"by_category"`
	RecentItems  []PendingUpdate        `json:"recent_items"`
	HasPending   bool                   `json:"has_pending"`
}

type DailySession struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	StartedAt          Timestamp  `json:"started_at"`
	EndedAt            *Timestamp `json:"ended_at,omitempty"`
	IsActive           bool       `json:"is_active"`
	CategoriesCovered  []string   `json:"categories_covered"`
	TotalItemsCaptured int        `json:"total_items_captured"`
}

type ChatMessage struct {
	SessionID   uuid.UUID `json:"session_id"`
	UserMessage string    `json:"user_message"`
}

func (m ChatMessage) Validate() error {
	if m.SessionID == uuid.Nil {
		return fieldErr("session_id", ErrRequired)
	}
	return checkLength("user_message", m.UserMessage, 1, 5000)
}

type CreatedEntry struct {
	ID       uuid.UUID      `json:"id"`
	Category UpdateCategory `json:"category"`
	Summary  string         `json:"summary"`
}

type ChatReply struct {
	AIResponse        string         `json:"ai_response"`
	CreatedEntries    []CreatedEntry `json:"created_entries"`
	CategoriesCovered []string       `json:"categories_covered"`
	IsComplete        bool           `json:"is_complete"`
}

type CategoryStatus struct {
	Category   UpdateCategory `json:"category"`
	IsCovered  bool           `json:"is_covered"`
	ItemsCount int            `json:"items_count"`
}

type ConversationState struct {
	SessionID         uuid.UUID        `json:"session_id"`
	CategoriesStatus  []CategoryStatus `json:"categories_status"`
	IsComplete        bool             `json:"is_complete"`
	PendingItemsCount int              `json:"pending_items_count"`
	LastAIResponse    string           `json:"last_ai_response,omitempty"`
}
