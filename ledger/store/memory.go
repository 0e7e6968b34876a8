// Package store provides Reader implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/meridian/tuition-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds ledger facts in slices and serves the Reader interface over
// them. Loads are copy-on-read so callers can never mutate the store.
type Memory struct {
	mu         sync.RWMutex
	payments   []ledger.PaymentRecord
	invoices   []ledger.Invoice
	expenses   []ledger.ExpenseRecord
	categories []ledger.ExpenseCategory
	programs   map[string]ledger.Program
}

func NewMemory() *Memory {
	return &Memory{programs: make(map[string]ledger.Program)}
}

// AddPayments inserts payments keeping date order.
func (m *Memory) AddPayments(payments ...ledger.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, payments...)
	sort.SliceStable(m.payments, func(i, j int) bool {
		return m.payments[i].PaidAt.Before(m.payments[j].PaidAt)
	})
}

func (m *Memory) AddInvoices(invoices ...ledger.Invoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices = append(m.invoices, invoices...)
	sort.SliceStable(m.invoices, func(i, j int) bool {
		return m.invoices[i].CreatedAt.Before(m.invoices[j].CreatedAt)
	})
}

func (m *Memory) AddExpenses(expenses ...ledger.ExpenseRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses = append(m.expenses, expenses...)
	sort.SliceStable(m.expenses, func(i, j int) bool {
		return m.expenses[i].PaidAt.Before(m.expenses[j].PaidAt)
	})
}

func (m *Memory) AddCategories(categories ...ledger.ExpenseCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append(m.categories, categories...)
}

func (m *Memory) AddPrograms(programs ...ledger.Program) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range programs {
		m.programs[p.Code] = p
	}
}

// =============================================================================
// READER IMPLEMENTATION
// =============================================================================

func (m *Memory) FetchPayments(_ context.Context, period ledger.Period, filter ledger.Filter) ([]ledger.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []ledger.PaymentRecord{}
	wantStatus := filter.EffectivePaymentStatus()
	for _, p := range m.payments {
		if !period.Contains(p.PaidAt) || p.Status != wantStatus {
			continue
		}
		if filter.PaymentMethod != "" && p.Method != filter.PaymentMethod {
			continue
		}
		if filter.TransactionType != "" && p.Type != filter.TransactionType {
			continue
		}
		if filter.ProgramCode != "" && p.ProgramCode != filter.ProgramCode {
			continue
		}
		if filter.ProgramType != "" && m.programType(p.ProgramCode) != filter.ProgramType {
			continue
		}
		if filter.StudentID != "" && p.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassID != "" && p.ClassID != filter.ClassID {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (m *Memory) FetchInvoices(_ context.Context, period ledger.Period, filter ledger.Filter) ([]ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []ledger.Invoice{}
	for _, inv := range m.invoices {
		if !period.Contains(inv.CreatedAt) {
			continue
		}
		if filter.InvoiceStatus != "" && inv.Status != filter.InvoiceStatus {
			continue
		}
		if filter.TransactionType != "" && inv.InvoiceType != filter.TransactionType {
			continue
		}
		if filter.ProgramCode != "" && inv.ProgramCode != filter.ProgramCode {
			continue
		}
		if filter.ProgramType != "" && m.programType(inv.ProgramCode) != filter.ProgramType {
			continue
		}
		if filter.StudentID != "" && inv.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassID != "" && inv.ClassID != filter.ClassID {
			continue
		}
		result = append(result, inv)
	}
	return result, nil
}

func (m *Memory) FetchExpenses(_ context.Context, period ledger.Period, filter ledger.Filter) ([]ledger.ExpenseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	types := make(map[string]ledger.CategoryType, len(m.categories))
	for _, c := range m.categories {
		types[c.ID] = c.Type
	}

	result := []ledger.ExpenseRecord{}
	for _, e := range m.expenses {
		if !period.Contains(e.PaidAt) {
			continue
		}
		if filter.CategoryID != "" && e.CategoryID != filter.CategoryID {
			continue
		}
		if filter.CategoryType != "" && types[e.CategoryID] != filter.CategoryType {
			continue
		}
		if filter.PaymentMethod != "" && e.Method != filter.PaymentMethod {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (m *Memory) FetchCategories(_ context.Context) ([]ledger.ExpenseCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.ExpenseCategory, len(m.categories))
	copy(result, m.categories)
	return result, nil
}

func (m *Memory) FetchPrograms(_ context.Context) ([]ledger.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Program, 0, len(m.programs))
	for _, p := range m.programs {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (m *Memory) programType(code string) ledger.ProgramType {
	if p, ok := m.programs[code]; ok {
		return p.Type
	}
	return ""
}
