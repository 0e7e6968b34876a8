package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/tuition-engine/ledger"
	"github.com/meridian/tuition-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var june = ledger.NewDate(2025, time.June, 15)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func allTime() ledger.Period {
	return ledger.Period{From: ledger.NewDate(2000, time.January, 1), To: ledger.NewDate(2030, time.December, 31)}
}

func seedPrograms(t *testing.T, s *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertProgram(ctx, ledger.Program{Code: "MATH", Name: "Mathematics", Type: ledger.ProgramOnline}))
	require.NoError(t, s.UpsertProgram(ctx, ledger.Program{Code: "SCI", Name: "Science", Type: ledger.ProgramOnsite}))
}

func testPayment(id, student, amount string, status ledger.PaymentStatus, paidAt ledger.Date, program string) ledger.PaymentRecord {
	return ledger.PaymentRecord{
		ID:          id,
		StudentID:   student,
		Amount:      amt(amount),
		Method:      ledger.MethodTransfer,
		Status:      status,
		Type:        ledger.TxTuition,
		PaidAt:      paidAt,
		ProgramCode: program,
	}
}

// =============================================================================
// PAYMENT QUERY TESTS
// =============================================================================

func TestFetchPayments_RangeAndDefaultStatus(t *testing.T) {
	// GIVEN: Completed payments inside and outside a range, plus a pending one
	// WHEN: Fetching with an unconstrained filter
	// THEN: Only in-range completed payments return, date ascending

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertPayment(ctx, testPayment("p1", "stu-1", "100", ledger.PaymentCompleted, june, "MATH")))
	require.NoError(t, store.InsertPayment(ctx, testPayment("p2", "stu-1", "200", ledger.PaymentCompleted, june.AddDays(-5), "MATH")))
	require.NoError(t, store.InsertPayment(ctx, testPayment("p3", "stu-1", "300", ledger.PaymentPending, june, "MATH")))
	require.NoError(t, store.InsertPayment(ctx, testPayment("p4", "stu-1", "400", ledger.PaymentCompleted, june.AddYears(-1), "MATH")))

	period := ledger.Period{From: june.AddDays(-10), To: june}
	payments, err := store.FetchPayments(ctx, period, ledger.Filter{})
	require.NoError(t, err)

	require.Len(t, payments, 2)
	assert.Equal(t, "p2", payments[0].ID)
	assert.Equal(t, "p1", payments[1].ID)
	assert.True(t, payments[0].Amount.Equal(amt("200")))
}

func TestFetchPayments_StatusOverride(t *testing.T) {
	// GIVEN: A pending payment
	// WHEN: Fetching with an explicit status=pending filter
	// THEN: The default completed-only rule is replaced, not ANDed

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertPayment(ctx, testPayment("p1", "stu-1", "100", ledger.PaymentPending, june, "MATH")))

	payments, err := store.FetchPayments(ctx, allTime(), ledger.Filter{PaymentStatus: ledger.PaymentPending})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, ledger.PaymentPending, payments[0].Status)
}

func TestFetchPayments_ProgramTypeJoins(t *testing.T) {
	// GIVEN: Payments in an online and an onsite program
	// WHEN: Filtering by program_type=online
	// THEN: Only payments whose program resolves to that type return

	store := newTestStore(t)
	ctx := context.Background()
	seedPrograms(t, store)

	require.NoError(t, store.InsertPayment(ctx, testPayment("p1", "stu-1", "100", ledger.PaymentCompleted, june, "MATH")))
	require.NoError(t, store.InsertPayment(ctx, testPayment("p2", "stu-2", "200", ledger.PaymentCompleted, june, "SCI")))

	payments, err := store.FetchPayments(ctx, allTime(), ledger.Filter{ProgramType: ledger.ProgramOnline})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "p1", payments[0].ID)
}

func TestFetchPayments_CombinedFiltersAreANDed(t *testing.T) {
	// GIVEN: Payments differing in student and method
	// WHEN: Filtering by both student and method
	// THEN: Only rows matching every constraint return

	store := newTestStore(t)
	ctx := context.Background()

	p1 := testPayment("p1", "stu-1", "100", ledger.PaymentCompleted, june, "MATH")
	p2 := testPayment("p2", "stu-1", "200", ledger.PaymentCompleted, june, "MATH")
	p2.Method = ledger.MethodCash
	p3 := testPayment("p3", "stu-2", "300", ledger.PaymentCompleted, june, "MATH")
	for _, p := range []ledger.PaymentRecord{p1, p2, p3} {
		require.NoError(t, store.InsertPayment(ctx, p))
	}

	payments, err := store.FetchPayments(ctx, allTime(), ledger.Filter{
		StudentID:     "stu-1",
		PaymentMethod: ledger.MethodTransfer,
	})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "p1", payments[0].ID)
}

func TestFetchPayments_NoRowsIsEmptySlice(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Fetching payments
	// THEN: An empty non-nil slice and no error

	store := newTestStore(t)
	payments, err := store.FetchPayments(context.Background(), allTime(), ledger.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, payments)
	assert.Empty(t, payments)
}

// =============================================================================
// INVOICE QUERY TESTS
// =============================================================================

func TestFetchInvoices_RoundTripsAmountsExactly(t *testing.T) {
	// GIVEN: An invoice with fractional amounts
	// WHEN: Inserting and fetching
	// THEN: Amounts come back digit-for-digit, stored as text not float

	store := newTestStore(t)
	ctx := context.Background()

	inv := ledger.Invoice{
		ID: "inv-1", StudentID: "stu-1", ClassID: "class-a", ProgramCode: "MATH",
		InvoiceType: ledger.TxTuition, Amount: amt("1234567.89"), PaidAmount: amt("0.01"),
		DueDate: june.AddDays(30), Status: ledger.InvoicePending, CreatedAt: june,
	}
	require.NoError(t, store.InsertInvoice(ctx, inv))

	invoices, err := store.FetchInvoices(ctx, allTime(), ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	got := invoices[0]
	assert.Equal(t, "1234567.89", got.Amount.String())
	assert.Equal(t, "0.01", got.PaidAmount.String())
	assert.True(t, got.DueDate.Equal(june.AddDays(30)))
	assert.Equal(t, ledger.InvoicePending, got.Status)
}

func TestFetchInvoices_StatusAndStudentFilters(t *testing.T) {
	// GIVEN: Invoices across students and statuses
	// WHEN: Filtering by invoice_status and by student
	// THEN: Each filter narrows independently

	store := newTestStore(t)
	ctx := context.Background()

	for _, inv := range []ledger.Invoice{
		{ID: "i1", StudentID: "stu-1", InvoiceType: ledger.TxTuition, Amount: amt("100"),
			PaidAmount: amt("100"), DueDate: june, Status: ledger.InvoicePaid, CreatedAt: june},
		{ID: "i2", StudentID: "stu-1", InvoiceType: ledger.TxTuition, Amount: amt("200"),
			PaidAmount: amt("0"), DueDate: june, Status: ledger.InvoicePending, CreatedAt: june},
		{ID: "i3", StudentID: "stu-2", InvoiceType: ledger.TxTuition, Amount: amt("300"),
			PaidAmount: amt("0"), DueDate: june, Status: ledger.InvoicePending, CreatedAt: june},
	} {
		require.NoError(t, store.InsertInvoice(ctx, inv))
	}

	pending, err := store.FetchInvoices(ctx, allTime(), ledger.Filter{InvoiceStatus: ledger.InvoicePending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	stu1, err := store.FetchInvoices(ctx, allTime(), ledger.Filter{StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Len(t, stu1, 2)
}

// =============================================================================
// EXPENSE & CATEGORY QUERY TESTS
// =============================================================================

func TestFetchExpenses_CategoryTypeJoins(t *testing.T) {
	// GIVEN: Expenses in a fixed and a variable category
	// WHEN: Filtering by category_type=fixed
	// THEN: Only expenses whose category matches return

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCategory(ctx, ledger.ExpenseCategory{
		ID: "c-rent", Name: "Rent", Type: ledger.CategoryFixed, BudgetAmount: amt("3000"), HasBudget: true}))
	require.NoError(t, store.UpsertCategory(ctx, ledger.ExpenseCategory{
		ID: "c-supplies", Name: "Supplies", Type: ledger.CategoryVariable}))

	require.NoError(t, store.InsertExpense(ctx, ledger.ExpenseRecord{
		ID: "e1", CategoryID: "c-rent", Amount: amt("3000"), PaidAt: june,
		Status: ledger.ExpensePaid, Method: ledger.MethodTransfer}))
	require.NoError(t, store.InsertExpense(ctx, ledger.ExpenseRecord{
		ID: "e2", CategoryID: "c-supplies", Amount: amt("120"), PaidAt: june,
		Status: ledger.ExpensePaid, Method: ledger.MethodCash}))

	fixed, err := store.FetchExpenses(ctx, allTime(), ledger.Filter{CategoryType: ledger.CategoryFixed})
	require.NoError(t, err)
	require.Len(t, fixed, 1)
	assert.Equal(t, "e1", fixed[0].ID)
}

func TestFetchCategories_BudgetNullability(t *testing.T) {
	// GIVEN: One category with a budget and one without
	// WHEN: Fetching categories
	// THEN: HasBudget distinguishes a zero budget from no budget at all

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCategory(ctx, ledger.ExpenseCategory{
		ID: "c-a", Name: "A", Type: ledger.CategoryFixed, BudgetAmount: amt("0"), HasBudget: true}))
	require.NoError(t, store.UpsertCategory(ctx, ledger.ExpenseCategory{
		ID: "c-b", Name: "B", Type: ledger.CategoryOther}))

	categories, err := store.FetchCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.True(t, categories[0].HasBudget)
	assert.False(t, categories[1].HasBudget)
}

func TestUpsertCategory_Overwrites(t *testing.T) {
	// GIVEN: An existing category
	// WHEN: Upserting the same ID with a new budget
	// THEN: One row remains with the new values

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCategory(ctx, ledger.ExpenseCategory{
		ID: "c-a", Name: "A", Type: ledger.CategoryFixed, BudgetAmount: amt("100"), HasBudget: true}))
	require.NoError(t, store.UpsertCategory(ctx, ledger.ExpenseCategory{
		ID: "c-a", Name: "A", Type: ledger.CategoryFixed, BudgetAmount: amt("250"), HasBudget: true}))

	categories, err := store.FetchCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "250", categories[0].BudgetAmount.String())
}

// =============================================================================
// STUDENT STATUS CACHE TESTS
// =============================================================================

func TestStudentStatusCache_MissThenHit(t *testing.T) {
	// GIVEN: An empty cache
	// WHEN: Reading, refreshing, then reading again
	// THEN: Miss is (nil, nil); hit returns the refreshed values

	store := newTestStore(t)
	ctx := context.Background()

	miss, err := store.CachedStudentStatus(ctx, "stu-1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	status := ledger.StudentFinancialStatus{
		StudentID: "stu-1", ClassID: "class-a",
		TotalFee: amt("1500"), PaidAmount: amt("400"), Balance: amt("1100"),
		IsSuspended: true, NextPaymentDue: june.AddDays(5),
	}
	require.NoError(t, store.RefreshStudentStatus(ctx, status, june))

	hit, err := store.CachedStudentStatus(ctx, "stu-1")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "1100", hit.Balance.String())
	assert.True(t, hit.IsSuspended)
	assert.True(t, hit.NextPaymentDue.Equal(june.AddDays(5)))
}

func TestStudentStatusCache_RefreshOverwrites(t *testing.T) {
	// GIVEN: A cached row with an old balance and a due date
	// WHEN: Refreshing with everything settled
	// THEN: The row reflects the new state, including a cleared due date

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RefreshStudentStatus(ctx, ledger.StudentFinancialStatus{
		StudentID: "stu-1", TotalFee: amt("1500"), PaidAmount: amt("400"),
		Balance: amt("1100"), NextPaymentDue: june,
	}, june))
	require.NoError(t, store.RefreshStudentStatus(ctx, ledger.StudentFinancialStatus{
		StudentID: "stu-1", TotalFee: amt("1500"), PaidAmount: amt("1500"),
		Balance: amt("0"),
	}, june.AddDays(1)))

	hit, err := store.CachedStudentStatus(ctx, "stu-1")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "0", hit.Balance.String())
	assert.True(t, hit.NextPaymentDue.IsZero())
}

// =============================================================================
// RESET TESTS
// =============================================================================

func TestReset_ClearsEverything(t *testing.T) {
	// GIVEN: A store with rows in every table
	// WHEN: Resetting
	// THEN: All fetches come back empty

	store := newTestStore(t)
	ctx := context.Background()
	seedPrograms(t, store)

	require.NoError(t, store.InsertPayment(ctx, testPayment("p1", "stu-1", "100", ledger.PaymentCompleted, june, "MATH")))
	require.NoError(t, store.InsertInvoice(ctx, ledger.Invoice{
		ID: "i1", StudentID: "stu-1", InvoiceType: ledger.TxTuition, Amount: amt("100"),
		PaidAmount: amt("0"), DueDate: june, Status: ledger.InvoicePending, CreatedAt: june}))

	require.NoError(t, store.Reset(ctx))

	payments, err := store.FetchPayments(ctx, allTime(), ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, payments)

	invoices, err := store.FetchInvoices(ctx, allTime(), ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)

	programs, err := store.FetchPrograms(ctx)
	require.NoError(t, err)
	assert.Empty(t, programs)
}
