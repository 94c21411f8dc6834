package dashboard

import (
	"context"

	"lin/internal/api"
	"lin/internal/core"
	"lin/internal/eventbus"
)

// Source is the slice of the API client the default widgets read from.
type Source interface {
	TodayTasks(ctx context.Context) ([]core.Task, error)
	OverdueTasks(ctx context.Context) ([]core.Task, error)
	UpcomingEvents(ctx context.Context, days int) ([]core.Event, error)
	TotalSpend(ctx context.Context) (core.TotalSpend, error)
	CategoryBreakdown(ctx context.Context, period string) ([]core.CategoryBreakdownItem, error)
	TopTransactions(ctx context.Context, period string, limit int) ([]core.TopTransaction, error)
	JournalStats(ctx context.Context) (core.JournalStats, error)
	PendingSummary(ctx context.Context) (core.PendingSummary, error)
}

var _ Source = (*api.Client)(nil)

// Widget names.
const (
	TodayTasks        = "today_tasks"
	OverdueTasks      = "overdue_tasks"
	UpcomingEvents    = "upcoming_events"
	TotalSpend        = "total_spend"
	CategoryBreakdown = "category_breakdown"
	TopTransactions   = "top_transactions"
	JournalStats      = "journal_stats"
	PendingSummary    = "pending_summary"
)

func fetch[T any](f func(ctx context.Context) (T, error)) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		return f(ctx)
	}
}

// DefaultWidgets is the standard home screen.
func DefaultWidgets(src Source) []Widget {
	return []Widget{
		{
			Name:      TodayTasks,
			Resources: []string{eventbus.ResourceTask},
			Fetch:     fetch(src.TodayTasks),
		},
		{
			Name:      OverdueTasks,
			Resources: []string{eventbus.ResourceTask},
			Fetch:     fetch(src.OverdueTasks),
		},
		{
			Name:      UpcomingEvents,
			Resources: []string{eventbus.ResourceEvent},
			Fetch: fetch(func(ctx context.Context) ([]core.Event, error) {
				return src.UpcomingEvents(ctx, 7)
			}),
		},
		{
			Name:      TotalSpend,
			Resources: []string{eventbus.ResourceExpense},
			Fetch:     fetch(src.TotalSpend),
		},
		{
			Name:      CategoryBreakdown,
			Resources: []string{eventbus.ResourceExpense},
			Fetch: fetch(func(ctx context.Context) ([]core.CategoryBreakdownItem, error) {
				return src.CategoryBreakdown(ctx, api.PeriodCurrentMonth)
			}),
		},
		{
			Name:      TopTransactions,
			Resources: []string{eventbus.ResourceExpense},
			Fetch: fetch(func(ctx context.Context) ([]core.TopTransaction, error) {
				return src.TopTransactions(ctx, api.PeriodMonthly, 5)
			}),
		},
		{
			Name:      JournalStats,
			Resources: []string{eventbus.ResourceJournal},
			Fetch:     fetch(src.JournalStats),
		},
		{
			Name:      PendingSummary,
			Resources: []string{eventbus.ResourcePending},
			Fetch:     fetch(src.PendingSummary),
		},
	}
}
