/*
reader.go - Data-source boundary for ledger facts

PURPOSE:
  Defines the interface between the pure calculation engine and whatever
  holds the raw rows. This is the ONLY place external I/O occurs; everything
  downstream of a Reader is deterministic over the slices it returned.

CONTRACT:
  - Fetches are range + filter queries. Filters are AND-combined exact
    matches; unset fields do not constrain.
  - Payments default to status=completed unless the filter overrides,
    because every revenue figure is defined over completed payments.
  - No rows is an empty slice, never nil-with-error and never an error.
  - Reads across payments/invoices/expenses are independent of each other;
    implementations may serve them concurrently.

IMPLEMENTATIONS:
  - store/sqlite:     production SQLite store
  - ledger/store:     in-memory store for tests and demo scenarios
*/
package ledger

import "context"

// =============================================================================
// FILTER - Optional AND-combined exact-match constraints
// =============================================================================

// Filter narrows a fetch. Zero values mean "no constraint". Enum-typed
// fields must hold values from their allowed sets; Validate enforces this
// before any query runs.
type Filter struct {
	ProgramType     ProgramType
	ProgramCode     string
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	TransactionType TransactionType
	InvoiceStatus   InvoiceStatus
	CategoryID      string
	CategoryType    CategoryType
	StudentID       string
	ClassID         string
}

// Validate rejects enum values outside the allowed sets. Free-form ID
// fields are not validated; an unknown ID just matches nothing.
func (f Filter) Validate() error {
	if f.ProgramType != "" && !f.ProgramType.Valid() {
		return &FilterError{Field: "program_type", Value: string(f.ProgramType)}
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.Valid() {
		return &FilterError{Field: "payment_method", Value: string(f.PaymentMethod)}
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return &FilterError{Field: "status", Value: string(f.PaymentStatus)}
	}
	if f.TransactionType != "" && !f.TransactionType.Valid() {
		return &FilterError{Field: "transaction_type", Value: string(f.TransactionType)}
	}
	if f.InvoiceStatus != "" && !f.InvoiceStatus.Valid() {
		return &FilterError{Field: "invoice_status", Value: string(f.InvoiceStatus)}
	}
	if f.CategoryType != "" && !f.CategoryType.Valid() {
		return &FilterError{Field: "category_type", Value: string(f.CategoryType)}
	}
	return nil
}

// EffectivePaymentStatus returns the payment status this filter selects:
// the explicit one if set, otherwise completed.
func (f Filter) EffectivePaymentStatus() PaymentStatus {
	if f.PaymentStatus != "" {
		return f.PaymentStatus
	}
	return PaymentCompleted
}

// =============================================================================
// READER - Range + filter queries over ledger facts
// =============================================================================

// Reader fetches raw financial facts for a period. Implementations own all
// I/O concerns (connection pooling, timeouts, retries); the engine treats a
// Reader failure as ErrStoreUnavailable and never retries on its own.
type Reader interface {
	// FetchPayments returns payments dated within the period, filtered.
	// Status defaults to completed unless the filter overrides.
	FetchPayments(ctx context.Context, period Period, filter Filter) ([]PaymentRecord, error)

	// FetchInvoices returns invoices created within the period, filtered.
	// All statuses are included unless the filter constrains one.
	FetchInvoices(ctx context.Context, period Period, filter Filter) ([]Invoice, error)

	// FetchExpenses returns expenses paid within the period, filtered.
	FetchExpenses(ctx context.Context, period Period, filter Filter) ([]ExpenseRecord, error)

	// FetchCategories returns all expense categories (the budget dimension).
	FetchCategories(ctx context.Context) ([]ExpenseCategory, error)

	// FetchPrograms returns all programs (the revenue grouping dimension).
	FetchPrograms(ctx context.Context) ([]Program, error)
}
