/*
aggregate.go - Pure reductions from ledger facts to report metrics

PURPOSE:
  Every derived number in the system is computed here, once, from raw record
  slices. Reports that used to re-derive "revenue" or "collection rate" with
  their own slightly different arithmetic all call through these functions,
  so two reports over the same rows can never disagree.

TOTALITY:
  Every function returns zero/empty defaults for empty input, zero
  denominators, and missing optional fields. No function here panics,
  returns an error, or touches I/O. Given the same slices, the output is
  byte-identical on every call.

PRECISION:
  Amounts accumulate as decimal.Decimal at full precision. Percentage-style
  results (collection rate, margin) are rounded to 2 places because they are
  terminal values, never re-accumulated.

SEE ALSO:
  - report/assembler.go: Composes these into named report bundles
*/
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// REVENUE
// =============================================================================

// TotalRevenue sums the amounts of completed payments. Pending, failed,
// refunded, and cancelled payments never count toward revenue.
func TotalRevenue(payments []PaymentRecord) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status == PaymentCompleted {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// DimensionTotal is one row of a grouped sum.
type DimensionTotal struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// RevenueByDimension groups completed payments by keyFn and sums per group.
// Ordering is deterministic: amount descending, then key ascending.
// The grand total across groups always equals TotalRevenue over the same
// slice, whatever the grouping key.
func RevenueByDimension(payments []PaymentRecord, keyFn func(PaymentRecord) string) []DimensionTotal {
	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, p := range payments {
		if p.Status != PaymentCompleted {
			continue
		}
		k := keyFn(p)
		sums[k] = sums[k].Add(p.Amount)
		counts[k]++
	}

	totals := make([]DimensionTotal, 0, len(sums))
	for k, v := range sums {
		totals = append(totals, DimensionTotal{Key: k, Amount: v, Count: counts[k]})
	}
	sortTotals(totals)
	return totals
}

func sortTotals(totals []DimensionTotal) {
	sort.Slice(totals, func(i, j int) bool {
		if !totals[i].Amount.Equal(totals[j].Amount) {
			return totals[i].Amount.GreaterThan(totals[j].Amount)
		}
		return totals[i].Key < totals[j].Key
	})
}

// DailyRevenue is one point of a revenue-over-time series.
type DailyRevenue struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// DailyTrend buckets completed payments by day across the period, zero-filled
// so charts render a continuous series. Empty when the period is inverted.
func DailyTrend(payments []PaymentRecord, period Period) []DailyRevenue {
	byDay := make(map[string]decimal.Decimal)
	for _, p := range payments {
		if p.Status != PaymentCompleted || !period.Contains(p.PaidAt) {
			continue
		}
		k := p.PaidAt.String()
		byDay[k] = byDay[k].Add(p.Amount)
	}

	var trend []DailyRevenue
	for _, day := range period.Days() {
		amount, ok := byDay[day.String()]
		if !ok {
			amount = decimal.Zero
		}
		trend = append(trend, DailyRevenue{Date: day, Amount: amount})
	}
	return trend
}

// =============================================================================
// COLLECTION
// =============================================================================

// CollectionRate returns 100 * sum(paid) / sum(amount) over the invoices,
// rounded to 2 places. Zero when nothing was invoiced: a cohort with no
// billing has a rate of exactly 0, never NaN or infinity.
func CollectionRate(invoices []Invoice) decimal.Decimal {
	invoiced := decimal.Zero
	paid := decimal.Zero
	for _, inv := range invoices {
		invoiced = invoiced.Add(inv.Amount)
		paid = paid.Add(inv.PaidAmount)
	}
	if invoiced.IsZero() {
		return decimal.Zero
	}
	return paid.Mul(hundred).Div(invoiced).Round(2)
}

// ProgramRate is the collection rate of one program cohort.
type ProgramRate struct {
	ProgramCode string          `json:"program_code"`
	Invoiced    decimal.Decimal `json:"invoiced"`
	Paid        decimal.Decimal `json:"paid"`
	Rate        decimal.Decimal `json:"rate"`
}

// CollectionRateByProgram computes the rate per program group, ordered by
// program code for determinism. Each group gets the same zero-denominator
// guard as the overall rate.
func CollectionRateByProgram(invoices []Invoice) []ProgramRate {
	grouped := make(map[string][]Invoice)
	for _, inv := range invoices {
		grouped[inv.ProgramCode] = append(grouped[inv.ProgramCode], inv)
	}

	codes := make([]string, 0, len(grouped))
	for code := range grouped {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rates := make([]ProgramRate, 0, len(codes))
	for _, code := range codes {
		invoiced := decimal.Zero
		paid := decimal.Zero
		for _, inv := range grouped[code] {
			invoiced = invoiced.Add(inv.Amount)
			paid = paid.Add(inv.PaidAmount)
		}
		rates = append(rates, ProgramRate{
			ProgramCode: code,
			Invoiced:    invoiced,
			Paid:        paid,
			Rate:        CollectionRate(grouped[code]),
		})
	}
	return rates
}

// =============================================================================
// AGING
// =============================================================================

type AgingBucket string

const (
	Bucket1to30      AgingBucket = "1-30 days"
	Bucket31to60     AgingBucket = "31-60 days"
	Bucket61to90     AgingBucket = "61-90 days"
	BucketOver90     AgingBucket = ">90 days"
	BucketDueIn7     AgingBucket = "Due in 7 days"
	BucketDueIn30    AgingBucket = "Due in 30 days"
	BucketDueAfter30 AgingBucket = "Due after 30 days"
)

// AgingBucketOrder lists every bucket in display order.
func AgingBucketOrder() []AgingBucket {
	return []AgingBucket{
		Bucket1to30, Bucket31to60, Bucket61to90, BucketOver90,
		BucketDueIn7, BucketDueIn30, BucketDueAfter30,
	}
}

// AgingEntry is the tally for one bucket.
type AgingEntry struct {
	Count   int             `json:"count"`
	Balance decimal.Decimal `json:"balance"`
}

// BucketFor classifies a single invoice as of a date, or ("", false) for
// fully paid invoices, which never appear in aging. Overdue boundaries are
// closed-open: exactly 30 days overdue lands in 1-30, not 31-60.
func BucketFor(inv Invoice, asOf Date) (AgingBucket, bool) {
	if inv.Balance().IsZero() {
		return "", false
	}
	if inv.DueDate.Before(asOf) {
		switch over := DaysBetween(inv.DueDate, asOf); {
		case over <= 30:
			return Bucket1to30, true
		case over <= 60:
			return Bucket31to60, true
		case over <= 90:
			return Bucket61to90, true
		default:
			return BucketOver90, true
		}
	}
	switch until := DaysBetween(asOf, inv.DueDate); {
	case until <= 7:
		return BucketDueIn7, true
	case until <= 30:
		return BucketDueIn30, true
	default:
		return BucketDueAfter30, true
	}
}

// AgingBuckets partitions unpaid invoices into buckets. Every invoice with
// a positive balance lands in exactly one bucket; balance-zero invoices land
// in none. Buckets with no invoices are present with zero entries so report
// tables always show the full ladder.
func AgingBuckets(invoices []Invoice, asOf Date) map[AgingBucket]AgingEntry {
	buckets := make(map[AgingBucket]AgingEntry, 7)
	for _, b := range AgingBucketOrder() {
		buckets[b] = AgingEntry{Balance: decimal.Zero}
	}
	for _, inv := range invoices {
		b, ok := BucketFor(inv, asOf)
		if !ok {
			continue
		}
		entry := buckets[b]
		entry.Count++
		entry.Balance = entry.Balance.Add(inv.Balance())
		buckets[b] = entry
	}
	return buckets
}

// TotalOutstanding sums unpaid balances across the invoices.
func TotalOutstanding(invoices []Invoice) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, inv := range invoices {
		if b := inv.Balance(); b.IsPositive() {
			total = total.Add(b)
			count++
		}
	}
	return total, count
}

// =============================================================================
// EXPENSES & BUDGET
// =============================================================================

// TotalExpenses sums realized (approved/paid) expenses only.
func TotalExpenses(expenses []ExpenseRecord) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if e.Status.Realized() {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// PendingExpenses sums expenses awaiting approval, tracked apart from
// realized spend.
func PendingExpenses(expenses []ExpenseRecord) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if e.Status == ExpensePending {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// ActualByCategory sums realized expenses per category ID.
func ActualByCategory(expenses []ExpenseRecord) map[string]decimal.Decimal {
	actual := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		if e.Status.Realized() {
			actual[e.CategoryID] = actual[e.CategoryID].Add(e.Amount)
		}
	}
	return actual
}

// ExpensesByCategory groups realized expenses by category name, ordered
// amount descending then name ascending. Expenses pointing at a category
// that no longer exists group under their raw category ID.
func ExpensesByCategory(expenses []ExpenseRecord, categories []ExpenseCategory) []DimensionTotal {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, e := range expenses {
		if !e.Status.Realized() {
			continue
		}
		k, ok := names[e.CategoryID]
		if !ok {
			k = e.CategoryID
		}
		sums[k] = sums[k].Add(e.Amount)
		counts[k]++
	}

	totals := make([]DimensionTotal, 0, len(sums))
	for k, v := range sums {
		totals = append(totals, DimensionTotal{Key: k, Amount: v, Count: counts[k]})
	}
	sortTotals(totals)
	return totals
}

// ExpensesByType groups realized expenses by category type (fixed, variable,
// and so on), ordered amount descending then type ascending. Expenses whose
// category is missing or untyped group under "other".
func ExpensesByType(expenses []ExpenseRecord, categories []ExpenseCategory) []DimensionTotal {
	types := make(map[string]CategoryType, len(categories))
	for _, c := range categories {
		types[c.ID] = c.Type
	}

	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, e := range expenses {
		if !e.Status.Realized() {
			continue
		}
		ct := types[e.CategoryID]
		if ct == "" {
			ct = CategoryOther
		}
		k := string(ct)
		sums[k] = sums[k].Add(e.Amount)
		counts[k]++
	}

	totals := make([]DimensionTotal, 0, len(sums))
	for k, v := range sums {
		totals = append(totals, DimensionTotal{Key: k, Amount: v, Count: counts[k]})
	}
	sortTotals(totals)
	return totals
}

// CategoryVariance is one row of a budget-vs-actual comparison.
type CategoryVariance struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Budget     decimal.Decimal `json:"budget"`
	Actual     decimal.Decimal `json:"actual"`
	Variance   decimal.Decimal `json:"variance"` // budget - actual; negative means overspent
}

// BudgetVariance computes budget - actual per category over the union of
// budgeted and spent categories. A category with spend but no budget row
// defaults to budget 0, so its variance is -actual rather than "N/A".
// Ordered by category ID for determinism.
func BudgetVariance(actual map[string]decimal.Decimal, categories []ExpenseCategory) []CategoryVariance {
	byID := make(map[string]ExpenseCategory, len(categories))
	ids := make(map[string]bool)
	for _, c := range categories {
		byID[c.ID] = c
		if c.HasBudget {
			ids[c.ID] = true
		}
	}
	for id := range actual {
		ids[id] = true
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	rows := make([]CategoryVariance, 0, len(sorted))
	for _, id := range sorted {
		budget := decimal.Zero
		name := id
		if c, ok := byID[id]; ok {
			name = c.Name
			if c.HasBudget {
				budget = c.BudgetAmount
			}
		}
		spent := decimal.Zero
		if a, ok := actual[id]; ok {
			spent = a
		}
		rows = append(rows, CategoryVariance{
			CategoryID: id,
			Name:       name,
			Budget:     budget,
			Actual:     spent,
			Variance:   budget.Sub(spent),
		})
	}
	return rows
}

// =============================================================================
// PROFIT / LOSS
// =============================================================================

// ProfitLoss returns net = revenue - expenses and the margin percentage,
// rounded to 2 places. Margin is 0 when there is no revenue.
func ProfitLoss(revenue, expenses decimal.Decimal) (net, marginPct decimal.Decimal) {
	net = revenue.Sub(expenses)
	if !revenue.IsPositive() {
		return net, decimal.Zero
	}
	return net, net.Mul(hundred).Div(revenue).Round(2)
}

// =============================================================================
// PAYER RANKINGS
// =============================================================================

// LatePayer is one overdue invoice in the late-payer ranking.
type LatePayer struct {
	StudentID   string          `json:"student_id"`
	InvoiceID   string          `json:"invoice_id"`
	Balance     decimal.Decimal `json:"balance"`
	DaysOverdue int             `json:"days_overdue"`
}

// LatePayerRanking lists overdue unpaid invoices, largest balance first,
// ties broken by ascending student then invoice ID. Overdue is evaluated
// from due date and balance rather than the stored status column, so a
// stale status cannot hide a late payer.
func LatePayerRanking(invoices []Invoice, asOf Date) []LatePayer {
	var ranking []LatePayer
	for _, inv := range invoices {
		if !inv.IsOverdue(asOf) {
			continue
		}
		ranking = append(ranking, LatePayer{
			StudentID:   inv.StudentID,
			InvoiceID:   inv.ID,
			Balance:     inv.Balance(),
			DaysOverdue: DaysBetween(inv.DueDate, asOf),
		})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if !ranking[i].Balance.Equal(ranking[j].Balance) {
			return ranking[i].Balance.GreaterThan(ranking[j].Balance)
		}
		if ranking[i].StudentID != ranking[j].StudentID {
			return ranking[i].StudentID < ranking[j].StudentID
		}
		return ranking[i].InvoiceID < ranking[j].InvoiceID
	})
	return ranking
}

// PromptPayer is one student in the prompt-payer ranking.
type PromptPayer struct {
	StudentID    string          `json:"student_id"`
	Payments     int             `json:"payments"`
	AvgDaysEarly decimal.Decimal `json:"avg_days_early"` // positive = pays before due date
}

// PromptPayerRanking ranks students by how early they pay, most early first.
// Days-early for one payment is due_date - payment_date; the ranking uses
// the average across a student's completed invoice-linked payments.
//
// Students need at least 2 such payments to appear. One early payment is
// not a pattern; the minimum sample size keeps single-payment students out
// regardless of how early that payment was.
func PromptPayerRanking(payments []PaymentRecord, invoices []Invoice) []PromptPayer {
	dueDates := make(map[string]Date, len(invoices))
	for _, inv := range invoices {
		dueDates[inv.ID] = inv.DueDate
	}

	days := make(map[string]int)
	counts := make(map[string]int)
	for _, p := range payments {
		if p.Status != PaymentCompleted || p.InvoiceID == "" {
			continue
		}
		due, ok := dueDates[p.InvoiceID]
		if !ok {
			continue
		}
		days[p.StudentID] += DaysBetween(p.PaidAt, due)
		counts[p.StudentID]++
	}

	var ranking []PromptPayer
	for student, n := range counts {
		if n < 2 {
			continue
		}
		avg := decimal.NewFromInt(int64(days[student])).Div(decimal.NewFromInt(int64(n))).Round(2)
		ranking = append(ranking, PromptPayer{StudentID: student, Payments: n, AvgDaysEarly: avg})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if !ranking[i].AvgDaysEarly.Equal(ranking[j].AvgDaysEarly) {
			return ranking[i].AvgDaysEarly.GreaterThan(ranking[j].AvgDaysEarly)
		}
		return ranking[i].StudentID < ranking[j].StudentID
	})
	return ranking
}

// =============================================================================
// STUDENT STATUS - Recomputing the materialized view
// =============================================================================

// DeriveStudentStatus recomputes a student's financial position from source
// invoices. Any persisted student_financial_status row is a cache of this
// function's output; when the two disagree, this one is right.
//
// Suspension rule: any invoice more than 90 days overdue suspends the
// student.
func DeriveStudentStatus(studentID string, invoices []Invoice, asOf Date) StudentFinancialStatus {
	status := StudentFinancialStatus{
		StudentID:  studentID,
		TotalFee:   decimal.Zero,
		PaidAmount: decimal.Zero,
		Balance:    decimal.Zero,
	}

	for _, inv := range invoices {
		if inv.StudentID != studentID || inv.Status == InvoiceCancelled {
			continue
		}
		if status.ClassID == "" {
			status.ClassID = inv.ClassID
		}
		status.TotalFee = status.TotalFee.Add(inv.Amount)
		status.PaidAmount = status.PaidAmount.Add(inv.PaidAmount)

		if inv.Balance().IsPositive() {
			if status.NextPaymentDue.IsZero() || inv.DueDate.Before(status.NextPaymentDue) {
				status.NextPaymentDue = inv.DueDate
			}
			if inv.IsOverdue(asOf) && DaysBetween(inv.DueDate, asOf) > 90 {
				status.IsSuspended = true
			}
		}
	}

	status.Balance = status.TotalFee.Sub(status.PaidAmount)
	return status
}
