package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"lin/internal/core"
	"lin/internal/eventbus"
)

const expensesPath = "/expenses"

// ExportFormat selects the body ExportExpenses returns.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

// Dashboard periods accepted by the expense dashboard endpoints.
const (
	PeriodCurrentMonth = "current_month"
	PeriodLast30Days   = "last_30_days"
	PeriodCurrentYear  = "current_year"

	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

func checkRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &core.FieldError{Field: field, Err: fmt.Errorf("%w: %d not in %d..%d", core.ErrOutOfRange, v, lo, hi)}
	}
	return nil
}

func checkPeriod(period string, allowed ...string) error {
	for _, a := range allowed {
		if period == a {
			return nil
		}
	}
	return &core.FieldError{Field: "period", Err: fmt.Errorf("%w %q", core.ErrInvalidChoice, period)}
}

// ListExpenses returns one page of expenses matching f.
func (c *Client) ListExpenses(ctx context.Context, f ExpenseFilter) (Page[core.Expense], error) {
	q, err := f.query()
	if err != nil {
		return Page[core.Expense]{}, err
	}
	return list[core.Expense](ctx, c, expensesPath+"/", q)
}

// CreateExpense fills the default currency before validating.
func (c *Client) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	expense, err := sendJSON[core.Expense](ctx, c, http.MethodPost, expensesPath+"/", in)
	if err != nil {
		return core.Expense{}, err
	}
	c.publish(eventbus.ExpenseCreated, expense)
	return expense, nil
}

func (c *Client) GetExpense(ctx context.Context, id uuid.UUID) (core.Expense, error) {
	return get[core.Expense](ctx, c, resourcePath(expensesPath, id), nil)
}

func (c *Client) UpdateExpense(ctx context.Context, id uuid.UUID, p core.ExpensePatch) (core.Expense, error) {
	if err := p.Validate(); err != nil {
		return core.Expense{}, err
	}
	expense, err := sendJSON[core.Expense](ctx, c, http.MethodPut, resourcePath(expensesPath, id), p)
	if err != nil {
		return core.Expense{}, err
	}
	c.publish(eventbus.ExpenseUpdated, expense)
	return expense, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	if err := c.remove(ctx, resourcePath(expensesPath, id)); err != nil {
		return err
	}
	c.publish(eventbus.ExpenseDeleted, id)
	return nil
}

// ExpenseSummary totals expenses between start and end. Zero times are
// left to the backend's defaults.
func (c *Client) ExpenseSummary(ctx context.Context, start, end time.Time) (core.ExpenseSummary, error) {
	q := url.Values{}
	setTime(q, "start_date", start)
	setTime(q, "end_date", end)
	return get[core.ExpenseSummary](ctx, c, expensesPath+"/summary", q)
}

// ExpenseCategories returns all-time totals per category, largest first.
func (c *Client) ExpenseCategories(ctx context.Context) ([]core.CategorySummary, error) {
	return get[[]core.CategorySummary](ctx, c, expensesPath+"/categories", nil)
}

// MonthlyExpenses returns the totals and items for one calendar month.
func (c *Client) MonthlyExpenses(ctx context.Context, year int, month time.Month) (core.MonthlyExpense, error) {
	if err := checkRange("month", int(month), 1, 12); err != nil {
		return core.MonthlyExpense{}, err
	}
	path := fmt.Sprintf("%s/monthly/%d/%d", expensesPath, year, month)
	return get[core.MonthlyExpense](ctx, c, path, nil)
}

// UploadReceipt attaches a receipt image to expense id.
func (c *Client) UploadReceipt(ctx context.Context, id uuid.UUID, receipt Upload) (core.Expense, error) {
	r, err := multipartRequest(resourcePath(expensesPath, id, "/receipt"), receipt)
	if err != nil {
		return core.Expense{}, err
	}
	var expense core.Expense
	if _, err := c.do(ctx, r, &expense); err != nil {
		return core.Expense{}, err
	}
	c.publish(eventbus.ExpenseUpdated, expense)
	return expense, nil
}

// RecurringExpenses lists the expenses marked as recurring.
func (c *Client) RecurringExpenses(ctx context.Context) ([]core.Expense, error) {
	return get[[]core.Expense](ctx, c, expensesPath+"/recurring", nil)
}

// ExportExpenses returns the raw export file.
func (c *Client) ExportExpenses(ctx context.Context, format ExportFormat, start, end time.Time) ([]byte, error) {
	if format != ExportCSV && format != ExportJSON {
		return nil, &core.FieldError{Field: "format", Err: fmt.Errorf("%w %q", core.ErrInvalidChoice, format)}
	}
	q := url.Values{"format": {string(format)}}
	setTime(q, "start_date", start)
	setTime(q, "end_date", end)
	body, _, err := c.doRaw(ctx, request{method: http.MethodGet, path: expensesPath + "/export", query: q})
	return body, err
}

// ParseExpenseText runs the AI parser on a free-text expense.
func (c *Client) ParseExpenseText(ctx context.Context, text string) (ParseResult[core.ParsedExpense], error) {
	return parseText[core.ParsedExpense](ctx, c, expensesPath+"/ai/parse-text", text)
}

// ParseExpenseReceipt extracts an expense from a receipt image.
func (c *Client) ParseExpenseReceipt(ctx context.Context, image Upload) (ParseResult[core.ParsedExpense], error) {
	return parseUpload[core.ParsedExpense](ctx, c, expensesPath+"/ai/parse-receipt", image)
}

// ParseExpenseVoice transcribes audio and parses it into an expense.
func (c *Client) ParseExpenseVoice(ctx context.Context, audio Upload) (ParseResult[core.ParsedExpense], error) {
	return parseUpload[core.ParsedExpense](ctx, c, expensesPath+"/ai/parse-voice", audio)
}

// ExpenseInsights analyses the last days days of spending (1..365).
func (c *Client) ExpenseInsights(ctx context.Context, days int) (Insights, error) {
	if err := checkRange("days", days, 1, 365); err != nil {
		return nil, err
	}
	q := url.Values{"days": {strconv.Itoa(days)}}
	return get[Insights](ctx, c, expensesPath+"/ai/insights", q)
}

// TotalSpend compares this month's spend with the previous month.
func (c *Client) TotalSpend(ctx context.Context) (core.TotalSpend, error) {
	return get[core.TotalSpend](ctx, c, expensesPath+"/dashboard/total-spend", nil)
}

// CategoryBreakdown splits spend over period by category.
func (c *Client) CategoryBreakdown(ctx context.Context, period string) ([]core.CategoryBreakdownItem, error) {
	if err := checkPeriod(period, PeriodCurrentMonth, PeriodLast30Days, PeriodCurrentYear); err != nil {
		return nil, err
	}
	q := url.Values{"period": {period}}
	return get[[]core.CategoryBreakdownItem](ctx, c, expensesPath+"/dashboard/category-breakdown", q)
}

// CategoryTrend returns per-category spend for the last months.
func (c *Client) CategoryTrend(ctx context.Context, months int) ([]core.CategoryTrendPoint, error) {
	if err := checkRange("months", months, 3, 24); err != nil {
		return nil, err
	}
	q := url.Values{"months": {strconv.Itoa(months)}}
	return get[[]core.CategoryTrendPoint](ctx, c, expensesPath+"/dashboard/category-trend", q)
}

// SpendTrend returns spend per day, week or month over the last days.
func (c *Client) SpendTrend(ctx context.Context, period string, days int) ([]core.SpendTrendPoint, error) {
	if err := checkPeriod(period, PeriodDaily, PeriodWeekly, PeriodMonthly); err != nil {
		return nil, err
	}
	if err := checkRange("days", days, 7, 365); err != nil {
		return nil, err
	}
	q := url.Values{"period": {period}, "days": {strconv.Itoa(days)}}
	return get[[]core.SpendTrendPoint](ctx, c, expensesPath+"/dashboard/spend-trend", q)
}

// TopTransactions returns the largest expenses in period.
func (c *Client) TopTransactions(ctx context.Context, period string, limit int) ([]core.TopTransaction, error) {
	if err := checkPeriod(period, PeriodWeekly, PeriodMonthly, PeriodYearly); err != nil {
		return nil, err
	}
	if err := checkRange("limit", limit, 3, 10); err != nil {
		return nil, err
	}
	q := url.Values{"period": {period}, "limit": {strconv.Itoa(limit)}}
	return get[[]core.TopTransaction](ctx, c, expensesPath+"/dashboard/top-transactions", q)
}
