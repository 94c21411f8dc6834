package core

import "github.com/google/uuid"

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Task struct {
	ID                uuid.UUID    `json:"id"`
	UserID            uuid.UUID    `json:"user_id"`
	Title             string       `json:"title"`
	Description       string       `json:"description,omitempty"`
	DueDate           *Timestamp   `json:"due_date,omitempty"`
	Priority          TaskPriority `json:"priority"`
	Status            TaskStatus   `json:"status"`
	IsCompleted       bool         `json:"is_completed"`
	CompletionDate    *Timestamp   `json:"completion_date,omitempty"`
	EstimatedDuration *int         `json:"estimated_duration,omitempty"`
	ActualDuration    *int         `json:"actual_duration,omitempty"`
	Tags              Tags         `json:"tags"`
	ParentTaskID      *uuid.UUID   `json:"parent_task_id,omitempty"`
	CreatedAt         Timestamp    `json:"created_at"`
	UpdatedAt         Timestamp    `json:"updated_at"`
}

// TaskInput is the create form. Empty priority and status take the
// backend defaults (medium, pending).
type TaskInput struct {
	Title             string       `json:"title"`
	Description       string       `json:"description,omitempty"`
	DueDate           *Timestamp   `json:"due_date,omitempty"`
	Priority          TaskPriority `json:"priority,omitempty"`
	Status            TaskStatus   `json:"status,omitempty"`
	EstimatedDuration *int         `json:"estimated_duration,omitempty"`
	Tags              Tags         `json:"tags,omitempty"`
	ParentTaskID      *uuid.UUID   `json:"parent_task_id,omitempty"`
}

func (in TaskInput) Validate() error {
	return firstError(
		checkLength("title", in.Title, 1, 255),
		checkChoice("priority", in.Priority),
		checkChoice("status", in.Status),
		checkMin("estimated_duration", in.EstimatedDuration, 1),
	)
}

// TaskPatch is the update form; nil fields are left untouched.
type TaskPatch struct {
	Title             *string       `json:"title,omitempty"`
	Description       *string       `json:"description,omitempty"`
	DueDate           *Timestamp    `json:"due_date,omitempty"`
	Priority          *TaskPriority `json:"priority,omitempty"`
	Status            *TaskStatus   `json:"status,omitempty"`
	EstimatedDuration *int          `json:"estimated_duration,omitempty"`
	ActualDuration    *int          `json:"actual_duration,omitempty"`
	Tags              Tags          `json:"tags,omitempty"`
	ParentTaskID      *uuid.UUID    `json:"parent_task_id,omitempty"`
}

func (p TaskPatch) Validate() error {
	return firstError(
		checkOptionalLength("title", p.Title, 1, 255),
		checkOptionalChoice("priority", p.Priority),
		checkOptionalChoice("status", p.Status),
		checkMin("estimated_duration", p.EstimatedDuration, 1),
		checkMin("actual_duration", p.ActualDuration, 1),
	)
}

type TaskCompletion struct {
	ActualDuration *int `json:"actual_duration,omitempty"`
}

func (c TaskCompletion) Validate() error {
	return checkMin("actual_duration", c.ActualDuration, 1)
}

type TaskStats struct {
	CompletedToday int `json:"completed_today"`
}

// ParsedTask is what the rule-based and AI parsers suggest. Fields the
// parser could not infer stay empty.
type ParsedTask struct {
	Title             string       `json:"title"`
	Description       string       `json:"description,omitempty"`
	DueDate           *Timestamp   `json:"due_date,omitempty"`
	Priority          TaskPriority `json:"priority,omitempty"`
	EstimatedDuration *int         `json:"estimated_duration,omitempty"`
	Tags              Tags         `json:"tags,omitempty"`
}

// Input turns a parse suggestion into a create form.
func (p ParsedTask) Input() TaskInput {
	return TaskInput{
		Title:             p.Title,
		Description:       p.Description,
		DueDate:           p.DueDate,
		Priority:          p.Priority,
		EstimatedDuration: p.EstimatedDuration,
		Tags:              p.Tags,
	}
}
