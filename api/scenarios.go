/*
scenarios.go - Demo datasets for exercising the reports

PURPOSE:
  Seeds the store with small, recognizable tuition datasets so every report
  has something to show straight after startup. Dates are anchored to the
  current day so aging buckets and period tokens land where you expect.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian/tuition-engine/ledger"
)

var scenarios = []ScenarioDTO{
	{
		Name:        "spring-term",
		Description: "A healthy term: three programs, mostly paid invoices, modest expenses under budget",
	},
	{
		Name:        "collections-crunch",
		Description: "Heavy overdue balances across every aging bucket, expenses over budget",
	},
}

// ListScenarios returns the available demo datasets.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the name of the loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"current": h.currentScenario})
}

// ResetDatabase wipes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// LoadScenario wipes the store and seeds the named dataset.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scenario request", err)
		return
	}

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.Name {
	case "spring-term":
		err = h.seedSpringTerm(r.Context())
	case "collections-crunch":
		err = h.seedCollectionsCrunch(r.Context())
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario %q", req.Name), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed scenario", err)
		return
	}

	h.currentScenario = req.Name
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.Name})
}

// =============================================================================
// SEED DATA
// =============================================================================

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (h *Handler) seedBaseDimensions(ctx context.Context) error {
	programs := []ledger.Program{
		{Code: "MATH-ON", Name: "Mathematics Online", Type: ledger.ProgramOnline},
		{Code: "SCI-OS", Name: "Science Onsite", Type: ledger.ProgramOnsite},
		{Code: "TUTOR", Name: "Private Tutoring", Type: ledger.ProgramService},
	}
	for _, p := range programs {
		if err := h.Store.UpsertProgram(ctx, p); err != nil {
			return err
		}
	}

	categories := []ledger.ExpenseCategory{
		{ID: "cat-salaries", Name: "Teacher Salaries", Type: ledger.CategoryFixed,
			BudgetAmount: money("12000"), HasBudget: true},
		{ID: "cat-rent", Name: "Facility Rent", Type: ledger.CategoryFixed,
			BudgetAmount: money("3000"), HasBudget: true},
		{ID: "cat-supplies", Name: "Classroom Supplies", Type: ledger.CategoryVariable,
			BudgetAmount: money("800"), HasBudget: true},
		{ID: "cat-misc", Name: "Miscellaneous", Type: ledger.CategoryOther}, // no budget row
	}
	for _, c := range categories {
		if err := h.Store.UpsertCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) seedSpringTerm(ctx context.Context) error {
	if err := h.seedBaseDimensions(ctx); err != nil {
		return err
	}
	today := h.Assembler.Today()

	type studentSeed struct {
		id, class, program string
		fee                string
		paid               string
		dueIn              int // days relative to today
		method             ledger.PaymentMethod
	}
	students := []studentSeed{
		{"stu-001", "class-a", "MATH-ON", "1500", "1500", -20, ledger.MethodTransfer},
		{"stu-002", "class-a", "MATH-ON", "1500", "1500", -15, ledger.MethodCard},
		{"stu-003", "class-b", "SCI-OS", "2200", "2200", -10, ledger.MethodCash},
		{"stu-004", "class-b", "SCI-OS", "2200", "1200", 5, ledger.MethodTransfer},
		{"stu-005", "class-c", "TUTOR", "900", "450", 20, ledger.MethodEwallet},
		{"stu-006", "class-c", "TUTOR", "900", "0", 45, ledger.MethodCash},
	}

	for _, s := range students {
		invoiceID := uuid.NewString()
		fee := money(s.fee)
		paid := money(s.paid)

		status := ledger.InvoicePending
		switch {
		case paid.Equal(fee):
			status = ledger.InvoicePaid
		case paid.IsPositive():
			status = ledger.InvoicePartial
		}

		inv := ledger.Invoice{
			ID: invoiceID, StudentID: s.id, ClassID: s.class, ProgramCode: s.program,
			InvoiceType: ledger.TxTuition, Amount: fee, PaidAmount: paid,
			DueDate: today.AddDays(s.dueIn), Status: status, CreatedAt: today.AddDays(-60),
		}
		if err := h.Store.InsertInvoice(ctx, inv); err != nil {
			return err
		}

		if paid.IsPositive() {
			// Two installments when fully paid, to feed the prompt-payer ranking.
			installments := []decimal.Decimal{paid}
			offsets := []int{-40}
			if paid.Equal(fee) {
				half := paid.Div(decimal.NewFromInt(2))
				installments = []decimal.Decimal{half, paid.Sub(half)}
				offsets = []int{-50, -40}
			}
			for i, amount := range installments {
				payment := ledger.PaymentRecord{
					ID: uuid.NewString(), StudentID: s.id, Amount: amount,
					Method: s.method, Status: ledger.PaymentCompleted,
					Type: ledger.TxTuition, PaidAt: today.AddDays(offsets[i]),
					ProgramCode: s.program, ClassID: s.class, InvoiceID: invoiceID,
				}
				if err := h.Store.InsertPayment(ctx, payment); err != nil {
					return err
				}
			}
		}
	}

	// A pending payment that must never show up in revenue.
	pending := ledger.PaymentRecord{
		ID: uuid.NewString(), StudentID: "stu-006", Amount: money("900"),
		Method: ledger.MethodTransfer, Status: ledger.PaymentPending,
		Type: ledger.TxTuition, PaidAt: today.AddDays(-1),
		ProgramCode: "TUTOR", ClassID: "class-c",
	}
	if err := h.Store.InsertPayment(ctx, pending); err != nil {
		return err
	}

	expenses := []ledger.ExpenseRecord{
		{ID: uuid.NewString(), CategoryID: "cat-salaries", Amount: money("11000"),
			PaidAt: today.AddDays(-30), Status: ledger.ExpensePaid,
			VendorName: "Payroll", Method: ledger.MethodTransfer},
		{ID: uuid.NewString(), CategoryID: "cat-rent", Amount: money("3000"),
			PaidAt: today.AddDays(-28), Status: ledger.ExpensePaid,
			VendorName: "Hartley Properties", Method: ledger.MethodTransfer},
		{ID: uuid.NewString(), CategoryID: "cat-supplies", Amount: money("350.75"),
			PaidAt: today.AddDays(-12), Status: ledger.ExpenseApproved,
			VendorName: "EduSupply Co", Method: ledger.MethodCard},
		{ID: uuid.NewString(), CategoryID: "cat-misc", Amount: money("120"),
			PaidAt: today.AddDays(-3), Status: ledger.ExpensePending,
			VendorName: "City Printing", Method: ledger.MethodCash},
	}
	for _, e := range expenses {
		if err := h.Store.InsertExpense(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) seedCollectionsCrunch(ctx context.Context) error {
	if err := h.seedBaseDimensions(ctx); err != nil {
		return err
	}
	today := h.Assembler.Today()

	// One invoice per aging bucket, all unpaid or barely paid.
	overdue := []struct {
		student string
		program string
		amount  string
		paid    string
		dueIn   int
	}{
		{"stu-101", "MATH-ON", "1800", "0", -15},  // 1-30
		{"stu-102", "MATH-ON", "2400", "400", -45}, // 31-60
		{"stu-103", "SCI-OS", "2000", "0", -75},   // 61-90
		{"stu-104", "SCI-OS", "3200", "200", -120}, // >90
		{"stu-105", "TUTOR", "950", "0", 3},       // due in 7
		{"stu-106", "TUTOR", "950", "0", 25},      // due in 30
		{"stu-107", "MATH-ON", "1800", "0", 60},   // due after 30
	}

	for _, o := range overdue {
		status := ledger.InvoiceOverdue
		if o.dueIn >= 0 {
			status = ledger.InvoicePending
		}
		inv := ledger.Invoice{
			ID: uuid.NewString(), StudentID: o.student, ClassID: "class-x",
			ProgramCode: o.program, InvoiceType: ledger.TxTuition,
			Amount: money(o.amount), PaidAmount: money(o.paid),
			DueDate: today.AddDays(o.dueIn), Status: status,
			CreatedAt: today.AddDays(-150),
		}
		if err := h.Store.InsertInvoice(ctx, inv); err != nil {
			return err
		}
	}

	expenses := []ledger.ExpenseRecord{
		{ID: uuid.NewString(), CategoryID: "cat-salaries", Amount: money("13500"),
			PaidAt: today.AddDays(-20), Status: ledger.ExpensePaid,
			VendorName: "Payroll", Method: ledger.MethodTransfer},
		{ID: uuid.NewString(), CategoryID: "cat-supplies", Amount: money("1400"),
			PaidAt: today.AddDays(-10), Status: ledger.ExpensePaid,
			VendorName: "EduSupply Co", Method: ledger.MethodCard},
	}
	for _, e := range expenses {
		if err := h.Store.InsertExpense(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
