// Package sheets defines where exported expenses are written.
package sheets

import (
	"context"

	"lin/internal/core"
)

// Ports for outbound adapters.
type (
	ExpenseWriter interface {
		// Append writes one expense row and returns a reference to it.
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}
)

// Header is the column layout of an export sheet.
var Header = []string{
	"Date", "Description", "Merchant", "Category", "Subcategory",
	"Amount", "Currency", "Payment method", "ID",
}

// Row renders an expense in Header order.
func Row(e core.Expense) []any {
	return []any{
		e.Date.UTC().Format("2006-01-02"),
		e.Description,
		e.Merchant,
		string(e.Category),
		e.Subcategory,
		e.Amount.Float(),
		e.Currency,
		string(e.PaymentMethod),
		e.ID.String(),
	}
}
