package billing

import (
	"time"

	"github.com/estetika/academy/core"
)

type (
	PaymentStatus string
	Category      string
)

const (
	PaymentCompleted   PaymentStatus = "completed"
	PaymentPending     PaymentStatus = "pending"
	PaymentInstallment PaymentStatus = "installment"

	CategoryMarketing   Category = "marketing"
	CategoryContent     Category = "content"
	CategorySoftware    Category = "software"
	CategoryTaxes       Category = "taxes"
	CategoryContractors Category = "contractors"
	CategoryOther       Category = "other"
)

// Payment records money a student paid, or owes, for a program.
// Amounts are in the smallest currency unit.
type Payment struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"user_id"`
	ProgramID            string        `json:"program_id"`
	Amount               int64         `json:"amount"`
	Date                 time.Time     `json:"date"` // UTC
	Status               PaymentStatus `json:"status"`
	InstallmentRemaining int64         `json:"installment_remaining"`
	Comment              string        `json:"comment,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// Income is the money already received.
func (p Payment) Income() int64 {
	if p.Status == PaymentPending {
		return 0
	}
	return p.Amount
}

// Outstanding is the money still owed.
func (p Payment) Outstanding() int64 {
	switch p.Status {
	case PaymentPending:
		return p.Amount
	case PaymentInstallment:
		return p.InstallmentRemaining
	}
	return 0
}

// Expense is money the school spent, optionally on one program.
type Expense struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Date        time.Time `json:"date"` // UTC
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	ProgramID   string    `json:"program_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPayment contains information needed to record a payment.
type NewPayment struct {
	UserID               string        `json:"user_id" validate:"required"`
	ProgramID            string        `json:"program_id" validate:"required"`
	Amount               int64         `json:"amount" validate:"gt=0"`
	Date                 *time.Time    `json:"date"` // defaults to now
	Status               PaymentStatus `json:"status" validate:"required,oneof=completed pending installment"`
	InstallmentRemaining int64         `json:"installment_remaining" validate:"gte=0"`
	Comment              string        `json:"comment" validate:"max=500"`
}

// UpdatePayment: nil fields are left unchanged.
type UpdatePayment struct {
	Amount               *int64         `json:"amount" validate:"omitempty,gt=0"`
	Date                 *time.Time     `json:"date"`
	Status               *PaymentStatus `json:"status" validate:"omitempty,oneof=completed pending installment"`
	InstallmentRemaining *int64         `json:"installment_remaining" validate:"omitempty,gte=0"`
	Comment              *string        `json:"comment" validate:"omitempty,max=500"`
}

type PaymentFilter struct {
	UserID    string        `query:"user_id"`
	ProgramID string        `query:"program_id"`
	Status    PaymentStatus `query:"status"`
	Period
}

// NewExpense contains information needed to record an expense.
type NewExpense struct {
	Amount      int64      `json:"amount" validate:"gt=0"`
	Date        *time.Time `json:"date"` // defaults to now
	Description string     `json:"description" validate:"required,notblank,max=500"`
	Category    Category   `json:"category" validate:"required,oneof=marketing content software taxes contractors other"`
	ProgramID   string     `json:"program_id"`
}

// UpdateExpense: nil fields are left unchanged, an empty ProgramID unlinks the program.
type UpdateExpense struct {
	Amount      *int64     `json:"amount" validate:"omitempty,gt=0"`
	Date        *time.Time `json:"date"`
	Description *string    `json:"description" validate:"omitempty,notblank,max=500"`
	Category    *Category  `json:"category" validate:"omitempty,oneof=marketing content software taxes contractors other"`
	ProgramID   *string    `json:"program_id"`
}

type ExpenseFilter struct {
	Category  Category `query:"category"`
	ProgramID string   `query:"program_id"`
	Period
}

// Period bounds dates, both ends inclusive. Zero bounds are open.
type Period struct {
	From time.Time `query:"-"`
	To   time.Time `query:"-"`
}

func (p Period) Contains(t time.Time) bool {
	return (p.From.IsZero() || !t.Before(p.From)) && (p.To.IsZero() || !t.After(p.To))
}

type ReportFilter struct {
	ProgramID string `query:"program_id"`
	Period
}

// Report sums the payments and expenses of a period.
type Report struct {
	Income      int64 `json:"income"`
	Outstanding int64 `json:"outstanding"`
	Expenses    int64 `json:"expenses"`
	Profit      int64 `json:"profit"`
	Buyers      int   `json:"buyers"` // students with a payment that is not pending
	Payments    int   `json:"payments"`
}

func (f *PaymentFilter) Clean() {
	f.UserID = core.CleanString(f.UserID)
	f.ProgramID = core.CleanString(f.ProgramID)
}
