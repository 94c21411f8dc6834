package eventbus

import "strings"

// Event names published on the bus. The part before the colon is the
// resource the event is about.
const (
	TaskCreated   = "task:created"
	TaskUpdated   = "task:updated"
	TaskDeleted   = "task:deleted"
	TaskCompleted = "task:completed"

	ExpenseCreated = "expense:created"
	ExpenseUpdated = "expense:updated"
	ExpenseDeleted = "expense:deleted"

	EventCreated = "event:created"
	EventUpdated = "event:updated"
	EventDeleted = "event:deleted"

	JournalCreated = "journal:created"
	JournalUpdated = "journal:updated"
	JournalDeleted = "journal:deleted"

	PendingCreated  = "pending:created"
	PendingUpdated  = "pending:updated"
	PendingAccepted = "pending:accepted"
	PendingRejected = "pending:rejected"
	PendingDeleted  = "pending:deleted"

	ProfileUpdated       = "profile:updated"
	PreferencesUpdated   = "preferences:updated"
	NotificationsUpdated = "notifications:updated"

	AuthLogin     = "auth:login"
	AuthLogout    = "auth:logout"
	AuthRefreshed = "auth:refreshed"
	AuthExpired   = "auth:expired"
)

// Resources touched by events.
const (
	ResourceTask          = "task"
	ResourceExpense       = "expense"
	ResourceEvent         = "event"
	ResourceJournal       = "journal"
	ResourcePending       = "pending"
	ResourceProfile       = "profile"
	ResourcePreferences   = "preferences"
	ResourceNotifications = "notifications"
	ResourceAuth          = "auth"
)

// Resource returns the prefix of an event name before the first colon, or
// the whole name when there is none.
func Resource(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

// Action returns the part after the first colon.
func Action(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// CreatedEvent maps a resource to its creation event, used when a pending
// update is accepted and turns into a real entry.
func CreatedEvent(resource string) (string, bool) {
	switch resource {
	case ResourceTask:
		return TaskCreated, true
	case ResourceExpense:
		return ExpenseCreated, true
	case ResourceEvent:
		return EventCreated, true
	case ResourceJournal:
		return JournalCreated, true
	}
	return "", false
}
