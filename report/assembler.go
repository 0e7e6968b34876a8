/*
assembler.go - Builds report bundles from a ledger.Reader

PURPOSE:
  One assembler, one canonical way to build each report. Every bundle is
  computed against a single (period, filter) pair: each entity kind is
  fetched once and every sub-metric in the bundle reduces over that same
  slice. Idempotent by construction - two calls with the same arguments
  against an unchanged store produce identical bundles.

ERROR SEMANTICS:
  An empty period is not an error; bundles come back zero-valued. The only
  errors out of this package are invalid input (filter/token) and reader
  failures, which pass through wrapped.
*/
package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meridian/tuition-engine/ledger"
)

// Assembler builds report bundles from raw ledger facts.
type Assembler struct {
	reader ledger.Reader

	// Today anchors period resolution and aging cutoffs. Overridable so
	// tests can pin the clock.
	Today func() ledger.Date
}

func NewAssembler(r ledger.Reader) *Assembler {
	return &Assembler{reader: r, Today: ledger.Today}
}

// Generate resolves the period, validates the filter, and dispatches to the
// named report builder. Unknown names return ErrUnknownReport.
func (a *Assembler) Generate(ctx context.Context, name Name, token ledger.PeriodToken, from, to ledger.Date, filter ledger.Filter) (Tabular, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	period, err := ledger.ResolvePeriod(token, from, to, a.Today())
	if err != nil {
		return nil, err
	}

	switch name {
	case Revenue:
		return a.RevenueReport(ctx, period, filter)
	case Outstanding:
		return a.OutstandingReport(ctx, period, filter)
	case Collection:
		return a.CollectionReport(ctx, period, filter)
	case Expenses:
		return a.ExpenseReport(ctx, period, filter)
	case ProfitLoss:
		return a.ProfitLossReport(ctx, period, filter)
	default:
		return nil, ledger.ErrUnknownReport
	}
}

// RevenueReport computes the revenue total, all three breakdowns, and the
// daily series from one fetched payment slice.
func (a *Assembler) RevenueReport(ctx context.Context, period ledger.Period, filter ledger.Filter) (*RevenueReport, error) {
	payments, err := a.reader.FetchPayments(ctx, period, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}

	count := 0
	for _, p := range payments {
		if p.Status == ledger.PaymentCompleted {
			count++
		}
	}

	return &RevenueReport{
		Period:       period,
		Total:        ledger.TotalRevenue(payments),
		PaymentCount: count,
		ByProgram: ledger.RevenueByDimension(payments, func(p ledger.PaymentRecord) string {
			return p.ProgramCode
		}),
		ByMethod: ledger.RevenueByDimension(payments, func(p ledger.PaymentRecord) string {
			return string(p.Method)
		}),
		ByType: ledger.RevenueByDimension(payments, func(p ledger.PaymentRecord) string {
			return string(p.Type)
		}),
		DailyTrend: ledger.DailyTrend(payments, period),
	}, nil
}

// OutstandingReport ages unpaid invoices as of the period end.
func (a *Assembler) OutstandingReport(ctx context.Context, period ledger.Period, filter ledger.Filter) (*OutstandingReport, error) {
	invoices, err := a.reader.FetchInvoices(ctx, period, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch invoices: %w", err)
	}

	asOf := period.To
	total, count := ledger.TotalOutstanding(invoices)
	return &OutstandingReport{
		Period:           period,
		AsOf:             asOf,
		TotalOutstanding: total,
		UnpaidInvoices:   count,
		Aging:            ledger.AgingBuckets(invoices, asOf),
		LatePayers:       ledger.LatePayerRanking(invoices, asOf),
	}, nil
}

// CollectionReport measures billed-vs-paid over invoices, with the prompt
// payer ranking joined against the same period's payments.
func (a *Assembler) CollectionReport(ctx context.Context, period ledger.Period, filter ledger.Filter) (*CollectionReport, error) {
	invoices, err := a.reader.FetchInvoices(ctx, period, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch invoices: %w", err)
	}
	payments, err := a.reader.FetchPayments(ctx, period, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}

	billed := decimal.Zero
	paid := decimal.Zero
	for _, inv := range invoices {
		billed = billed.Add(inv.Amount)
		paid = paid.Add(inv.PaidAmount)
	}

	return &CollectionReport{
		Period:       period,
		OverallRate:  ledger.CollectionRate(invoices),
		TotalBilled:  billed,
		TotalPaid:    paid,
		ByProgram:    ledger.CollectionRateByProgram(invoices),
		PromptPayers: ledger.PromptPayerRanking(payments, invoices),
	}, nil
}

// ExpenseReport covers realized and pending spend plus budget variance.
func (a *Assembler) ExpenseReport(ctx context.Context, period ledger.Period, filter ledger.Filter) (*ExpenseReport, error) {
	expenses, err := a.reader.FetchExpenses(ctx, period, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	categories, err := a.reader.FetchCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}

	return &ExpenseReport{
		Period:     period,
		Total:      ledger.TotalExpenses(expenses),
		Pending:    ledger.PendingExpenses(expenses),
		ByCategory: ledger.ExpensesByCategory(expenses, categories),
		ByType:     ledger.ExpensesByType(expenses, categories),
		Variance:   ledger.BudgetVariance(ledger.ActualByCategory(expenses), categories),
	}, nil
}

// ProfitLossReport nets revenue against realized expenses. Revenue and
// expense sides are fetched with the same period and filter, so the report
// cannot mix a filtered revenue figure with unfiltered spend.
func (a *Assembler) ProfitLossReport(ctx context.Context, period ledger.Period, filter ledger.Filter) (*ProfitLossReport, error) {
	payments, err := a.reader.FetchPayments(ctx, period, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}
	expenses, err := a.reader.FetchExpenses(ctx, period, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	categories, err := a.reader.FetchCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}

	revenue := ledger.TotalRevenue(payments)
	spend := ledger.TotalExpenses(expenses)
	net, margin := ledger.ProfitLoss(revenue, spend)

	return &ProfitLossReport{
		Period:    period,
		Revenue:   revenue,
		Expenses:  spend,
		Net:       net,
		MarginPct: margin,
		RevenueByProgram: ledger.RevenueByDimension(payments, func(p ledger.PaymentRecord) string {
			return p.ProgramCode
		}),
		ExpensesByCategory: ledger.ExpensesByCategory(expenses, categories),
	}, nil
}

// StudentStatement builds the student dashboard bundle: position recomputed
// from source invoices plus the raw history behind it. A student with no
// invoices and no payments in the period is reported as not found.
func (a *Assembler) StudentStatement(ctx context.Context, studentID string, period ledger.Period) (*StudentStatement, error) {
	filter := ledger.Filter{StudentID: studentID}
	invoices, err := a.reader.FetchInvoices(ctx, period, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch invoices: %w", err)
	}
	payments, err := a.reader.FetchPayments(ctx, period, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}

	if len(invoices) == 0 && len(payments) == 0 {
		return nil, ledger.ErrStudentNotFound
	}

	return &StudentStatement{
		Period:   period,
		Status:   ledger.DeriveStudentStatus(studentID, invoices, a.Today()),
		Invoices: invoices,
		Payments: payments,
	}, nil
}
