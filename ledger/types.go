/*
Package ledger provides the core financial aggregation engine.

PURPOSE:
  This package contains the domain types and pure calculation functions for
  tuition finance reporting. Payments, invoices, and expenses are read from a
  data source and reduced to derived metrics (revenue, collection rate, aging
  buckets, budget variance, profit/loss). The engine never writes: every
  function here is a pure reduction over in-memory record slices.

KEY CONCEPTS IN THIS FILE (types.go):
  - PaymentRecord:  An immutable completed/pending/failed payment event
  - Invoice:        A billed amount with a running paid_amount and due date
  - ExpenseRecord:  Money going out, gated by an approval status
  - Program:        A grouping dimension (online/onsite/service)
  - StudentFinancialStatus: A derived per-student balance view

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal; rounding to 2 places happens
     only at the presentation/export edge, never during accumulation.
  2. Read-only: the engine consumes records, it never mutates or stores them.
  3. Totality: aggregation functions return zero/empty defaults for empty
     input, zero denominators, and missing optional fields. No panics.

SEE ALSO:
  - aggregate.go: The reductions over these types
  - period.go:    Period tokens and date-range resolution
  - reader.go:    The data-source boundary (the only place I/O happens)
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENUMS - Closed value sets, validated at the boundary
// =============================================================================

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentPending   PaymentStatus = "pending"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentCompleted, PaymentPending, PaymentFailed, PaymentRefunded, PaymentCancelled:
		return true
	}
	return false
}

type TransactionType string

const (
	TxRegistration TransactionType = "registration"
	TxTuition      TransactionType = "tuition"
	TxService      TransactionType = "service"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxRegistration, TxTuition, TxService:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "bank_transfer"
	MethodCard     PaymentMethod = "card"
	MethodEwallet  PaymentMethod = "ewallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCard, MethodEwallet:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePartial   InvoiceStatus = "partial"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoicePending, InvoicePartial, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

type ExpenseStatus string

const (
	ExpensePending   ExpenseStatus = "pending"
	ExpenseApproved  ExpenseStatus = "approved"
	ExpensePaid      ExpenseStatus = "paid"
	ExpenseCancelled ExpenseStatus = "cancelled"
)

func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpensePending, ExpenseApproved, ExpensePaid, ExpenseCancelled:
		return true
	}
	return false
}

// Realized reports whether the expense counts toward actual spend.
// Pending expenses are tracked separately; cancelled ones not at all.
func (s ExpenseStatus) Realized() bool {
	return s == ExpenseApproved || s == ExpensePaid
}

type ProgramType string

const (
	ProgramOnline  ProgramType = "online"
	ProgramOnsite  ProgramType = "onsite"
	ProgramService ProgramType = "service"
)

func (t ProgramType) Valid() bool {
	switch t {
	case ProgramOnline, ProgramOnsite, ProgramService:
		return true
	}
	return false
}

type CategoryType string

const (
	CategoryOperational CategoryType = "operational"
	CategoryFixed       CategoryType = "fixed"
	CategoryVariable    CategoryType = "variable"
	CategoryTithe       CategoryType = "tithe"
	CategoryReserve     CategoryType = "reserve"
	CategoryOther       CategoryType = "other"
)

func (t CategoryType) Valid() bool {
	switch t {
	case CategoryOperational, CategoryFixed, CategoryVariable, CategoryTithe, CategoryReserve, CategoryOther:
		return true
	}
	return false
}

// =============================================================================
// LEDGER FACTS - Raw rows produced by the billing workflow, read-only here
// =============================================================================

// PaymentRecord is a single payment event. Immutable once completed;
// corrections happen via refunded/cancelled status, never deletion.
type PaymentRecord struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"student_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"payment_method"`
	Status      PaymentStatus   `json:"status"`
	Type        TransactionType `json:"transaction_type"`
	PaidAt      Date            `json:"paid_at"`
	ProgramCode string          `json:"program_code"`
	ClassID     string          `json:"class_id"`
	InvoiceID   string          `json:"invoice_id,omitempty"` // optional link to the invoice this payment settles
}

// Invoice is a billed amount. PaidAmount accumulates as payments arrive,
// with the invariant 0 <= PaidAmount <= Amount.
type Invoice struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"student_id"`
	ClassID     string          `json:"class_id"`
	ProgramCode string          `json:"program_code"`
	InvoiceType TransactionType `json:"invoice_type"`
	Amount      decimal.Decimal `json:"amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	DueDate     Date            `json:"due_date"`
	Status      InvoiceStatus   `json:"status"`
	CreatedAt   Date            `json:"created_at"`
}

// Balance returns the unpaid remainder (never negative by invariant).
func (inv Invoice) Balance() decimal.Decimal {
	return inv.Amount.Sub(inv.PaidAmount)
}

// IsOverdue reports whether the invoice is past due with money outstanding.
// This is the status=overdue rule restated over raw fields, so the engine
// does not have to trust a possibly stale status column.
func (inv Invoice) IsOverdue(asOf Date) bool {
	return inv.DueDate.Before(asOf) && inv.Balance().IsPositive()
}

// ExpenseRecord is money going out. Only approved/paid rows count toward
// realized spend.
type ExpenseRecord struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAt     Date            `json:"payment_date"`
	Status     ExpenseStatus   `json:"status"`
	VendorName string          `json:"vendor_name"`
	Method     PaymentMethod   `json:"payment_method"`
}

// ExpenseCategory groups expenses and optionally carries a per-period budget.
type ExpenseCategory struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         CategoryType    `json:"category_type"`
	BudgetAmount decimal.Decimal `json:"budget_amount"` // zero means no budget row
	HasBudget    bool            `json:"has_budget"`
}

// Program is purely a grouping dimension for revenue/collection breakdowns.
type Program struct {
	Code string      `json:"code"`
	Name string      `json:"name"`
	Type ProgramType `json:"type"`
}

// =============================================================================
// DERIVED VIEW - Recomputable per-student financial position
// =============================================================================

// StudentFinancialStatus is a materialized view over Invoice + PaymentRecord.
// It is never authoritative: DeriveStudentStatus recomputes it from source
// rows, and any persisted copy is a cache that must be refreshed from the
// same function.
type StudentFinancialStatus struct {
	StudentID      string          `json:"student_id"`
	ClassID        string          `json:"class_id"`
	TotalFee       decimal.Decimal `json:"total_fee"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Balance        decimal.Decimal `json:"balance"`
	IsSuspended    bool            `json:"is_suspended"`
	NextPaymentDue Date            `json:"next_payment_due"` // zero when nothing is outstanding
}
