/*
Package sqlite provides a SQLite-backed implementation of ledger.Reader.

PURPOSE:
  Holds the raw financial facts (payments, invoices, expenses, categories,
  programs) and serves range+filter queries over them. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  ledger.Reader: range + filter fetches for the aggregation engine

WRITE SURFACE:
  The reporting engine itself never writes. The Insert* and Reset methods exist
  for the billing workflow boundary and for seeding demo scenarios; reports
  only ever read.

STUDENT STATUS CACHE:
  student_financial_status is a cache of ledger.DeriveStudentStatus output.
  It is refreshed read-through by RefreshStudentStatus and is never treated
  as a source of truth; a stale row is repaired on the next refresh, not
  trusted.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so report reads do not
  block scenario writes.

AMOUNT STORAGE:
  Money is stored as TEXT holding the decimal string, never REAL. Parsing
  round-trips through shopspring/decimal without precision loss.

SEE ALSO:
  - ledger/reader.go:       Interface definition and filter semantics
  - ledger/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/meridian/tuition-engine/ledger"
)

// Store implements ledger.Reader over SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS programs (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		program_type TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		program_code TEXT NOT NULL DEFAULT '',
		class_id TEXT NOT NULL DEFAULT '',
		invoice_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_payments_paid_at ON payments(paid_at);
	CREATE INDEX IF NOT EXISTS idx_payments_status_date ON payments(status, paid_at);
	CREATE INDEX IF NOT EXISTS idx_payments_student ON payments(student_id);
	CREATE INDEX IF NOT EXISTS idx_payments_invoice
		ON payments(invoice_id) WHERE invoice_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		class_id TEXT NOT NULL DEFAULT '',
		program_code TEXT NOT NULL DEFAULT '',
		invoice_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL DEFAULT '0',
		due_date TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_created ON invoices(created_at);
	CREATE INDEX IF NOT EXISTS idx_invoices_student ON invoices(student_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_due ON invoices(due_date);

	CREATE TABLE IF NOT EXISTS expense_categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category_type TEXT NOT NULL,
		budget_amount TEXT,
		UNIQUE(name)
	);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		status TEXT NOT NULL,
		vendor_name TEXT NOT NULL DEFAULT '',
		payment_method TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(payment_date);
	CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses(category_id);

	-- Cache of ledger.DeriveStudentStatus output. Never authoritative.
	CREATE TABLE IF NOT EXISTS student_financial_status (
		student_id TEXT PRIMARY KEY,
		class_id TEXT NOT NULL DEFAULT '',
		total_fee TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		balance TEXT NOT NULL,
		is_suspended INTEGER NOT NULL DEFAULT 0,
		next_payment_due TEXT,
		refreshed_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READER IMPLEMENTATION (ledger.Reader)
// =============================================================================

func (s *Store) FetchPayments(ctx context.Context, period ledger.Period, filter ledger.Filter) ([]ledger.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT p.id, p.student_id, p.amount, p.payment_method, p.status,
		       p.transaction_type, p.paid_at, p.program_code, p.class_id,
		       COALESCE(p.invoice_id, '')
		FROM payments p
	`
	where := []string{"p.paid_at >= ?", "p.paid_at <= ?", "p.status = ?"}
	args := []any{period.From.String(), period.To.String(), string(filter.EffectivePaymentStatus())}

	if filter.ProgramType != "" {
		query += " JOIN programs pr ON pr.code = p.program_code"
		where = append(where, "pr.program_type = ?")
		args = append(args, string(filter.ProgramType))
	}
	if filter.ProgramCode != "" {
		where = append(where, "p.program_code = ?")
		args = append(args, filter.ProgramCode)
	}
	if filter.PaymentMethod != "" {
		where = append(where, "p.payment_method = ?")
		args = append(args, string(filter.PaymentMethod))
	}
	if filter.TransactionType != "" {
		where = append(where, "p.transaction_type = ?")
		args = append(args, string(filter.TransactionType))
	}
	if filter.StudentID != "" {
		where = append(where, "p.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		where = append(where, "p.class_id = ?")
		args = append(args, filter.ClassID)
	}

	query += " WHERE " + strings.Join(where, " AND ") + " ORDER BY p.paid_at ASC, p.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query payments: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	payments := []ledger.PaymentRecord{}
	for rows.Next() {
		var p ledger.PaymentRecord
		var amount, paidAt string
		if err := rows.Scan(&p.ID, &p.StudentID, &amount, &p.Method, &p.Status,
			&p.Type, &paidAt, &p.ProgramCode, &p.ClassID, &p.InvoiceID); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse payment amount %q: %w", amount, err)
		}
		if p.PaidAt, err = ledger.ParseDate(paidAt); err != nil {
			return nil, fmt.Errorf("parse payment date %q: %w", paidAt, err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) FetchInvoices(ctx context.Context, period ledger.Period, filter ledger.Filter) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT i.id, i.student_id, i.class_id, i.program_code, i.invoice_type,
		       i.amount, i.paid_amount, i.due_date, i.status, i.created_at
		FROM invoices i
	`
	where := []string{"i.created_at >= ?", "i.created_at <= ?"}
	args := []any{period.From.String(), period.To.String()}

	if filter.ProgramType != "" {
		query += " JOIN programs pr ON pr.code = i.program_code"
		where = append(where, "pr.program_type = ?")
		args = append(args, string(filter.ProgramType))
	}
	if filter.ProgramCode != "" {
		where = append(where, "i.program_code = ?")
		args = append(args, filter.ProgramCode)
	}
	if filter.InvoiceStatus != "" {
		where = append(where, "i.status = ?")
		args = append(args, string(filter.InvoiceStatus))
	}
	if filter.TransactionType != "" {
		where = append(where, "i.invoice_type = ?")
		args = append(args, string(filter.TransactionType))
	}
	if filter.StudentID != "" {
		where = append(where, "i.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		where = append(where, "i.class_id = ?")
		args = append(args, filter.ClassID)
	}

	query += " WHERE " + strings.Join(where, " AND ") + " ORDER BY i.created_at ASC, i.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query invoices: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	invoices := []ledger.Invoice{}
	for rows.Next() {
		var inv ledger.Invoice
		var amount, paid, due, created string
		if err := rows.Scan(&inv.ID, &inv.StudentID, &inv.ClassID, &inv.ProgramCode,
			&inv.InvoiceType, &amount, &paid, &due, &inv.Status, &created); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		if inv.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse invoice amount %q: %w", amount, err)
		}
		if inv.PaidAmount, err = decimal.NewFromString(paid); err != nil {
			return nil, fmt.Errorf("parse invoice paid amount %q: %w", paid, err)
		}
		if inv.DueDate, err = ledger.ParseDate(due); err != nil {
			return nil, fmt.Errorf("parse invoice due date %q: %w", due, err)
		}
		if inv.CreatedAt, err = ledger.ParseDate(created); err != nil {
			return nil, fmt.Errorf("parse invoice created date %q: %w", created, err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (s *Store) FetchExpenses(ctx context.Context, period ledger.Period, filter ledger.Filter) ([]ledger.ExpenseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT e.id, e.category_id, e.amount, e.payment_date, e.status,
		       e.vendor_name, e.payment_method
		FROM expenses e
	`
	where := []string{"e.payment_date >= ?", "e.payment_date <= ?"}
	args := []any{period.From.String(), period.To.String()}

	if filter.CategoryID != "" {
		where = append(where, "e.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.CategoryType != "" {
		query += " JOIN expense_categories c ON c.id = e.category_id"
		where = append(where, "c.category_type = ?")
		args = append(args, string(filter.CategoryType))
	}
	if filter.PaymentMethod != "" {
		where = append(where, "e.payment_method = ?")
		args = append(args, string(filter.PaymentMethod))
	}

	query += " WHERE " + strings.Join(where, " AND ") + " ORDER BY e.payment_date ASC, e.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query expenses: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	expenses := []ledger.ExpenseRecord{}
	for rows.Next() {
		var e ledger.ExpenseRecord
		var amount, paidAt string
		if err := rows.Scan(&e.ID, &e.CategoryID, &amount, &paidAt, &e.Status,
			&e.VendorName, &e.Method); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse expense amount %q: %w", amount, err)
		}
		if e.PaidAt, err = ledger.ParseDate(paidAt); err != nil {
			return nil, fmt.Errorf("parse expense date %q: %w", paidAt, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *Store) FetchCategories(ctx context.Context) ([]ledger.ExpenseCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, category_type, budget_amount FROM expense_categories ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: query categories: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	categories := []ledger.ExpenseCategory{}
	for rows.Next() {
		var c ledger.ExpenseCategory
		var budget sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &budget); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if budget.Valid {
			if c.BudgetAmount, err = decimal.NewFromString(budget.String); err != nil {
				return nil, fmt.Errorf("parse budget %q: %w", budget.String, err)
			}
			c.HasBudget = true
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) FetchPrograms(ctx context.Context) ([]ledger.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code, name, program_type FROM programs ORDER BY code ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: query programs: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	programs := []ledger.Program{}
	for rows.Next() {
		var p ledger.Program
		if err := rows.Scan(&p.Code, &p.Name, &p.Type); err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// =============================================================================
// WRITE SURFACE - billing workflow boundary and demo seeding
// =============================================================================

func (s *Store) InsertPayment(ctx context.Context, p ledger.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments
		(id, student_id, amount, payment_method, status, transaction_type,
		 paid_at, program_code, class_id, invoice_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.StudentID, p.Amount.String(), string(p.Method), string(p.Status),
		string(p.Type), p.PaidAt.String(), p.ProgramCode, p.ClassID, nullString(p.InvoiceID),
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Store) InsertInvoice(ctx context.Context, inv ledger.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices
		(id, student_id, class_id, program_code, invoice_type, amount,
		 paid_amount, due_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.StudentID, inv.ClassID, inv.ProgramCode, string(inv.InvoiceType),
		inv.Amount.String(), inv.PaidAmount.String(), inv.DueDate.String(),
		string(inv.Status), inv.CreatedAt.String(),
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (s *Store) InsertExpense(ctx context.Context, e ledger.ExpenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses
		(id, category_id, amount, payment_date, status, vendor_name, payment_method)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CategoryID, e.Amount.String(), e.PaidAt.String(),
		string(e.Status), e.VendorName, string(e.Method),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *Store) UpsertCategory(ctx context.Context, c ledger.ExpenseCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var budget any
	if c.HasBudget {
		budget = c.BudgetAmount.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expense_categories (id, name, category_type, budget_amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category_type = excluded.category_type,
			budget_amount = excluded.budget_amount`,
		c.ID, c.Name, string(c.Type), budget,
	)
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func (s *Store) UpsertProgram(ctx context.Context, p ledger.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO programs (code, name, program_type)
		VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			program_type = excluded.program_type`,
		p.Code, p.Name, string(p.Type),
	)
	if err != nil {
		return fmt.Errorf("upsert program: %w", err)
	}
	return nil
}

// Reset clears all data. Dev/demo only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{
		"payments", "invoices", "expenses", "expense_categories",
		"programs", "student_financial_status",
	} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// STUDENT STATUS CACHE - read-through materialized view
// =============================================================================

// RefreshStudentStatus overwrites the cached row with freshly derived
// values. Callers derive via ledger.DeriveStudentStatus first; the cache
// never computes anything itself.
func (s *Store) RefreshStudentStatus(ctx context.Context, status ledger.StudentFinancialStatus, refreshedAt ledger.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var nextDue any
	if !status.NextPaymentDue.IsZero() {
		nextDue = status.NextPaymentDue.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO student_financial_status
		(student_id, class_id, total_fee, paid_amount, balance, is_suspended,
		 next_payment_due, refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(student_id) DO UPDATE SET
			class_id = excluded.class_id,
			total_fee = excluded.total_fee,
			paid_amount = excluded.paid_amount,
			balance = excluded.balance,
			is_suspended = excluded.is_suspended,
			next_payment_due = excluded.next_payment_due,
			refreshed_at = excluded.refreshed_at`,
		status.StudentID, status.ClassID, status.TotalFee.String(),
		status.PaidAmount.String(), status.Balance.String(),
		boolToInt(status.IsSuspended), nextDue, refreshedAt.String(),
	)
	if err != nil {
		return fmt.Errorf("refresh student status: %w", err)
	}
	return nil
}

// CachedStudentStatus returns the cached row, or (nil, nil) when no row
// exists yet.
func (s *Store) CachedStudentStatus(ctx context.Context, studentID string) (*ledger.StudentFinancialStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT student_id, class_id, total_fee, paid_amount, balance,
		       is_suspended, COALESCE(next_payment_due, '')
		FROM student_financial_status WHERE student_id = ?`, studentID)

	var status ledger.StudentFinancialStatus
	var totalFee, paid, balance, nextDue string
	var suspended int
	err := row.Scan(&status.StudentID, &status.ClassID, &totalFee, &paid,
		&balance, &suspended, &nextDue)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query student status: %v", ledger.ErrStoreUnavailable, err)
	}

	if status.TotalFee, err = decimal.NewFromString(totalFee); err != nil {
		return nil, fmt.Errorf("parse total fee %q: %w", totalFee, err)
	}
	if status.PaidAmount, err = decimal.NewFromString(paid); err != nil {
		return nil, fmt.Errorf("parse paid amount %q: %w", paid, err)
	}
	if status.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	status.IsSuspended = suspended != 0
	if nextDue != "" {
		if status.NextPaymentDue, err = ledger.ParseDate(nextDue); err != nil {
			return nil, fmt.Errorf("parse next due %q: %w", nextDue, err)
		}
	}
	return &status, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
