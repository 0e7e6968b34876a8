/*
Package report assembles ledger aggregates into named report bundles.

PURPOSE:
  A report bundle is everything one report page needs, computed in one pass:
  the Revenue Report's summary total, per-program breakdown, and daily chart
  all come from the SAME fetched slice of payments. The old failure mode
  where a summary card and its chart were fed by differently-filtered
  queries cannot happen here.

BUNDLES:
  RevenueReport     totals + breakdowns + daily trend
  OutstandingReport aging ladder + late payers
  CollectionReport  overall + per-program rates + prompt payers
  ExpenseReport     realized/pending spend + budget variance
  ProfitLossReport  revenue vs expenses with margin
  StudentStatement  one student's recomputed position + history

EXPORT:
  Every bundle implements Tabular (header row + leaf rows) for CSV export,
  and serializes structurally to JSON. Money is rendered with 2 decimal
  places only here, at the edge.

SEE ALSO:
  - assembler.go: Builds bundles from a ledger.Reader
  - export.go:    CSV/JSON serialization
*/
package report

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/meridian/tuition-engine/ledger"
)

// Name identifies a report bundle kind.
type Name string

const (
	Revenue     Name = "revenue"
	Outstanding Name = "outstanding"
	Collection  Name = "collection"
	Expenses    Name = "expenses"
	ProfitLoss  Name = "profit-loss"
)

// Names lists every admin report, for API discovery and dispatch.
func Names() []Name {
	return []Name{Revenue, Outstanding, Collection, Expenses, ProfitLoss}
}

// Tabular is any bundle that can flatten itself to CSV rows.
type Tabular interface {
	Headers() []string
	Rows() [][]string
}

// =============================================================================
// BUNDLES
// =============================================================================

// RevenueReport breaks completed-payment revenue down by the three grouping
// dimensions plus a zero-filled daily series.
type RevenueReport struct {
	Period       ledger.Period           `json:"period"`
	Total        decimal.Decimal         `json:"total"`
	PaymentCount int                     `json:"payment_count"`
	ByProgram    []ledger.DimensionTotal `json:"by_program"`
	ByMethod     []ledger.DimensionTotal `json:"by_method"`
	ByType       []ledger.DimensionTotal `json:"by_type"`
	DailyTrend   []ledger.DailyRevenue   `json:"daily_trend"`
}

// OutstandingReport is the unpaid-balance view: how much is owed, how old
// it is, and who owes the most.
type OutstandingReport struct {
	Period           ledger.Period                            `json:"period"`
	AsOf             ledger.Date                              `json:"as_of"`
	TotalOutstanding decimal.Decimal                          `json:"total_outstanding"`
	UnpaidInvoices   int                                      `json:"unpaid_invoices"`
	Aging            map[ledger.AgingBucket]ledger.AgingEntry `json:"aging"`
	LatePayers       []ledger.LatePayer                       `json:"late_payers"`
}

// CollectionReport measures how much of what was billed has been paid.
type CollectionReport struct {
	Period       ledger.Period        `json:"period"`
	OverallRate  decimal.Decimal      `json:"overall_rate"`
	TotalBilled  decimal.Decimal      `json:"total_billed"`
	TotalPaid    decimal.Decimal      `json:"total_paid"`
	ByProgram    []ledger.ProgramRate `json:"by_program"`
	PromptPayers []ledger.PromptPayer `json:"prompt_payers"`
}

// ExpenseReport covers realized and pending spend against category budgets.
type ExpenseReport struct {
	Period     ledger.Period             `json:"period"`
	Total      decimal.Decimal           `json:"total"`
	Pending    decimal.Decimal           `json:"pending"`
	ByCategory []ledger.DimensionTotal   `json:"by_category"`
	ByType     []ledger.DimensionTotal   `json:"by_type"`
	Variance   []ledger.CategoryVariance `json:"variance"`
}

// ProfitLossReport nets revenue against realized expenses.
type ProfitLossReport struct {
	Period             ledger.Period           `json:"period"`
	Revenue            decimal.Decimal         `json:"revenue"`
	Expenses           decimal.Decimal         `json:"expenses"`
	Net                decimal.Decimal         `json:"net"`
	MarginPct          decimal.Decimal         `json:"margin_pct"`
	RevenueByProgram   []ledger.DimensionTotal `json:"revenue_by_program"`
	ExpensesByCategory []ledger.DimensionTotal `json:"expenses_by_category"`
}

// StudentStatement is the student dashboard bundle: the recomputed financial
// position plus the invoice and payment history behind it.
type StudentStatement struct {
	Period   ledger.Period                 `json:"period"`
	Status   ledger.StudentFinancialStatus `json:"status"`
	Invoices []ledger.Invoice              `json:"invoices"`
	Payments []ledger.PaymentRecord        `json:"payments"`
}

// =============================================================================
// TABULAR FLATTENING - leaf rows for CSV export
// =============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func (r *RevenueReport) Headers() []string {
	return []string{"dimension", "key", "amount", "count"}
}

func (r *RevenueReport) Rows() [][]string {
	var rows [][]string
	rows = append(rows, []string{"total", "", money(r.Total), itoa(r.PaymentCount)})
	for _, t := range r.ByProgram {
		rows = append(rows, []string{"program", t.Key, money(t.Amount), itoa(t.Count)})
	}
	for _, t := range r.ByMethod {
		rows = append(rows, []string{"method", t.Key, money(t.Amount), itoa(t.Count)})
	}
	for _, t := range r.ByType {
		rows = append(rows, []string{"type", t.Key, money(t.Amount), itoa(t.Count)})
	}
	for _, d := range r.DailyTrend {
		rows = append(rows, []string{"day", d.Date.String(), money(d.Amount), ""})
	}
	return rows
}

func (r *OutstandingReport) Headers() []string {
	return []string{"section", "key", "balance", "count", "days_overdue"}
}

func (r *OutstandingReport) Rows() [][]string {
	var rows [][]string
	rows = append(rows, []string{"total", "", money(r.TotalOutstanding), itoa(r.UnpaidInvoices), ""})
	for _, b := range ledger.AgingBucketOrder() {
		entry := r.Aging[b]
		rows = append(rows, []string{"aging", string(b), money(entry.Balance), itoa(entry.Count), ""})
	}
	for _, lp := range r.LatePayers {
		rows = append(rows, []string{"late_payer", lp.StudentID, money(lp.Balance), "", itoa(lp.DaysOverdue)})
	}
	return rows
}

func (r *CollectionReport) Headers() []string {
	return []string{"section", "key", "billed", "paid", "rate_pct"}
}

func (r *CollectionReport) Rows() [][]string {
	var rows [][]string
	rows = append(rows, []string{"overall", "", money(r.TotalBilled), money(r.TotalPaid), r.OverallRate.StringFixed(2)})
	for _, pr := range r.ByProgram {
		rows = append(rows, []string{"program", pr.ProgramCode, money(pr.Invoiced), money(pr.Paid), pr.Rate.StringFixed(2)})
	}
	for _, pp := range r.PromptPayers {
		rows = append(rows, []string{"prompt_payer", pp.StudentID, itoa(pp.Payments), pp.AvgDaysEarly.StringFixed(2), ""})
	}
	return rows
}

func (r *ExpenseReport) Headers() []string {
	return []string{"section", "key", "amount", "budget", "variance"}
}

func (r *ExpenseReport) Rows() [][]string {
	var rows [][]string
	rows = append(rows, []string{"total", "", money(r.Total), "", ""})
	rows = append(rows, []string{"pending", "", money(r.Pending), "", ""})
	for _, t := range r.ByCategory {
		rows = append(rows, []string{"category", t.Key, money(t.Amount), "", ""})
	}
	for _, t := range r.ByType {
		rows = append(rows, []string{"category_type", t.Key, money(t.Amount), "", ""})
	}
	for _, v := range r.Variance {
		rows = append(rows, []string{"variance", v.Name, money(v.Actual), money(v.Budget), money(v.Variance)})
	}
	return rows
}

func (r *ProfitLossReport) Headers() []string {
	return []string{"section", "key", "amount"}
}

func (r *ProfitLossReport) Rows() [][]string {
	rows := [][]string{
		{"revenue", "", money(r.Revenue)},
		{"expenses", "", money(r.Expenses)},
		{"net", "", money(r.Net)},
		{"margin_pct", "", r.MarginPct.StringFixed(2)},
	}
	for _, t := range r.RevenueByProgram {
		rows = append(rows, []string{"revenue_by_program", t.Key, money(t.Amount)})
	}
	for _, t := range r.ExpensesByCategory {
		rows = append(rows, []string{"expenses_by_category", t.Key, money(t.Amount)})
	}
	return rows
}

func (s *StudentStatement) Headers() []string {
	return []string{"record", "id", "date", "amount", "paid", "balance", "status"}
}

func (s *StudentStatement) Rows() [][]string {
	var rows [][]string
	rows = append(rows, []string{
		"status", s.Status.StudentID, s.Status.NextPaymentDue.String(),
		money(s.Status.TotalFee), money(s.Status.PaidAmount), money(s.Status.Balance),
		suspendedLabel(s.Status.IsSuspended),
	})
	for _, inv := range s.Invoices {
		rows = append(rows, []string{
			"invoice", inv.ID, inv.DueDate.String(),
			money(inv.Amount), money(inv.PaidAmount), money(inv.Balance()), string(inv.Status),
		})
	}
	for _, p := range s.Payments {
		rows = append(rows, []string{
			"payment", p.ID, p.PaidAt.String(), money(p.Amount), "", "", string(p.Status),
		})
	}
	return rows
}

func suspendedLabel(suspended bool) string {
	if suspended {
		return "suspended"
	}
	return "active"
}

func itoa(n int) string { return strconv.Itoa(n) }
