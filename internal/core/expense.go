package core

import (
	"strings"

	"github.com/google/uuid"
)

type ExpenseCategory string

const (
	CategoryFood          ExpenseCategory = "food"
	CategoryTransport     ExpenseCategory = "transport"
	CategoryEntertainment ExpenseCategory = "entertainment"
	CategoryBills         ExpenseCategory = "bills"
	CategoryShopping      ExpenseCategory = "shopping"
	CategoryHealth        ExpenseCategory = "health"
	CategoryEducation     ExpenseCategory = "education"
	CategoryTravel        ExpenseCategory = "travel"
	CategoryOther         ExpenseCategory = "other"
)

// ExpenseCategories lists every category in display order.
var ExpenseCategories = []ExpenseCategory{
	CategoryFood, CategoryTransport, CategoryEntertainment, CategoryBills, CategoryShopping,
	CategoryHealth, CategoryEducation, CategoryTravel, CategoryOther,
}

func (c ExpenseCategory) Valid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentCreditCard    PaymentMethod = "credit_card"
	PaymentDebitCard     PaymentMethod = "debit_card"
	PaymentBankTransfer  PaymentMethod = "bank_transfer"
	PaymentDigitalWallet PaymentMethod = "digital_wallet"
	PaymentOther         PaymentMethod = "other"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentBankTransfer, PaymentDigitalWallet, PaymentOther:
		return true
	}
	return false
}

type Expense struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Amount         Money           `json:"amount"`
	Currency       string          `json:"currency"`
	Category       ExpenseCategory `json:"category"`
	Subcategory    string          `json:"subcategory,omitempty"`
	Merchant       string          `json:"merchant,omitempty"`
	Description    string          `json:"description,omitempty"`
	Date           Timestamp       `json:"date"`
	PaymentMethod  PaymentMethod   `json:"payment_method,omitempty"`
	ReceiptURL     string          `json:"receipt_url,omitempty"`
	IsRecurring    bool            `json:"is_recurring"`
	RecurrenceRule string          `json:"recurrence_rule,omitempty"`
	Tags           Tags            `json:"tags"`
	CreatedAt      Timestamp       `json:"created_at"`
	UpdatedAt      Timestamp       `json:"updated_at"`
}

// Label is a one-line description for listings and exports.
func (e Expense) Label() string {
	switch {
	case e.Description != "" && e.Merchant != "":
		return e.Description + " @ " + e.Merchant
	case e.Description != "":
		return e.Description
	case e.Merchant != "":
		return e.Merchant
	}
	return string(e.Category)
}

type ExpenseInput struct {
	Amount         Money           `json:"amount"`
	Currency       string          `json:"currency"`
	Category       ExpenseCategory `json:"category"`
	Subcategory    string          `json:"subcategory,omitempty"`
	Merchant       string          `json:"merchant,omitempty"`
	Description    string          `json:"description,omitempty"`
	Date           Timestamp       `json:"date"`
	PaymentMethod  PaymentMethod   `json:"payment_method,omitempty"`
	IsRecurring    bool            `json:"is_recurring"`
	RecurrenceRule string          `json:"recurrence_rule,omitempty"`
	Tags           Tags            `json:"tags,omitempty"`
}

// WithDefaults fills the fields the backend would default.
func (in ExpenseInput) WithDefaults() ExpenseInput {
	if strings.TrimSpace(in.Currency) == "" {
		in.Currency = DefaultCurrency
	}
	return in
}

func (in ExpenseInput) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return fieldErr("amount", err)
	}
	if strings.TrimSpace(in.Currency) == "" {
		return fieldErr("currency", ErrRequired)
	}
	if in.Category == "" {
		return fieldErr("category", ErrRequired)
	}
	if in.Date.IsZero() {
		return fieldErr("date", ErrRequired)
	}
	return firstError(
		checkChoice("category", in.Category),
		checkChoice("payment_method", in.PaymentMethod),
	)
}

type ExpensePatch struct {
	Amount         *Money           `json:"amount,omitempty"`
	Currency       *string          `json:"currency,omitempty"`
	Category       *ExpenseCategory `json:"category,omitempty"`
	Subcategory    *string          `json:"subcategory,omitempty"`
	Merchant       *string          `json:"merchant,omitempty"`
	Description    *string          `json:"description,omitempty"`
	Date           *Timestamp       `json:"date,omitempty"`
	PaymentMethod  *PaymentMethod   `json:"payment_method,omitempty"`
	IsRecurring    *bool            `json:"is_recurring,omitempty"`
	RecurrenceRule *string          `json:"recurrence_rule,omitempty"`
	Tags           Tags             `json:"tags,omitempty"`
}

func (p ExpensePatch) Validate() error {
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return fieldErr("amount", err)
		}
	}
	if p.Currency != nil && strings.TrimSpace(*p.Currency) == "" {
		return fieldErr("currency", ErrRequired)
	}
	if p.Date != nil && p.Date.IsZero() {
		return fieldErr("date", ErrRequired)
	}
	return firstError(
		checkOptionalChoice("category", p.Category),
		checkOptionalChoice("payment_method", p.PaymentMethod),
	)
}

// ParsedExpense is a parser suggestion (rule-based, AI text, receipt or voice).
type ParsedExpense struct {
	Amount        Money           `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	Category      ExpenseCategory `json:"category,omitempty"`
	Subcategory   string          `json:"subcategory,omitempty"`
	Merchant      string          `json:"merchant,omitempty"`
	Description   string          `json:"description,omitempty"`
	Date          *Timestamp      `json:"date,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
}

func (p ParsedExpense) Input() ExpenseInput {
	in := ExpenseInput{
		Amount:        p.Amount,
		Currency:      p.Currency,
		Category:      p.Category,
		Subcategory:   p.Subcategory,
		Merchant:      p.Merchant,
		Description:   p.Description,
		PaymentMethod: p.PaymentMethod,
	}
	if p.Date != nil {
		in.Date = *p.Date
	}
	return in.WithDefaults()
}
