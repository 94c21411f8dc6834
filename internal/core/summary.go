package core

import "github.com/google/uuid"

// CategorySummary is an amount aggregated by category name.
type CategorySummary struct {
	Category    string  `json:"category"`
	TotalAmount Money   `json:"total_amount"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
}

type ExpenseSummary struct {
	TotalAmount   Money             `json:"total_amount"`
	TotalCount    int               `json:"total_count"`
	AverageAmount Money             `json:"average_amount"`
	Categories    []CategorySummary `json:"categories"`
	PeriodStart   Timestamp         `json:"period_start"`
	PeriodEnd     Timestamp         `json:"period_end"`
}

// MonthlyExpense is a compact summary for a specific year+month.
type MonthlyExpense struct {
	Year        int               `json:"year"`
	Month       int               `json:"month"`
	TotalAmount Money             `json:"total_amount"`
	Count       int               `json:"count"`
	Categories  []CategorySummary `json:"categories"`
}

type TotalSpend struct {
	CurrentMonth     Money   `json:"current_month"`
	PreviousMonth    Money   `json:"previous_month"`
	PercentageChange float64 `json:"percentage_change"`
	ChangeDirection  string  `json:"change_direction"`
}

type CategoryBreakdownItem struct {
	Category         string  `json:"category"`
	Amount           Money   `json:"amount"`
	Percentage       float64 `json:"percentage"`
	TransactionCount int     `json:"transaction_count"`
}

type CategoryTrendPoint struct {
	Month      string  `json:"month"`
	Category   string  `json:"category"`
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// SpendTrendPoint.Date is "2025-01-15", "2025-W03" or "2025-01" depending on the period.
type SpendTrendPoint struct {
	Date             string `json:"date"`
	Amount           Money  `json:"amount"`
	TransactionCount int    `json:"transaction_count"`
}

type TopTransaction struct {
	ID          uuid.UUID `json:"id"`
	Amount      Money     `json:"amount"`
	Category    string    `json:"category"`
	Merchant    string    `json:"merchant,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        Timestamp `json:"date"`
}
