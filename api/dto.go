/*
dto.go - Request/response types for the HTTP API

PURPOSE:
  Decouples the wire contract from the domain model. Report bundles
  serialize directly (they are plain nested structs built for it); the
  types here cover everything else: login, query parameters, metadata,
  and error envelopes.

VALIDATION:
  Query/body DTOs carry validator/v10 tags and are checked before any
  domain code runs. Enum values are re-checked by ledger.Filter.Validate,
  so a value that sneaks past the API tags still cannot reach a query.
*/
package api

import (
	"net/http"

	"github.com/meridian/tuition-engine/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateSessionRequest is the dev login body.
type CreateSessionRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=admin student"`
	StudentID string `json:"student_id" validate:"required_if=Role student"`
}

// reportQuery carries the query-string parameters of a report request.
type reportQuery struct {
	Period          string `validate:"omitempty,oneof=today week month quarter rolling_quarter calendar_quarter year all custom"`
	From            string `validate:"omitempty,datetime=2006-01-02"`
	To              string `validate:"omitempty,datetime=2006-01-02"`
	Format          string `validate:"omitempty,oneof=csv json"`
	ProgramType     string
	ProgramCode     string
	PaymentMethod   string
	Status          string
	TransactionType string
	CategoryID      string
	CategoryType    string
	ClassID         string
}

func parseReportQuery(r *http.Request) reportQuery {
	q := r.URL.Query()
	return reportQuery{
		Period:          q.Get("period"),
		From:            q.Get("from"),
		To:              q.Get("to"),
		Format:          q.Get("format"),
		ProgramType:     q.Get("program_type"),
		ProgramCode:     q.Get("program_code"),
		PaymentMethod:   q.Get("payment_method"),
		Status:          q.Get("status"),
		TransactionType: q.Get("transaction_type"),
		CategoryID:      q.Get("category_id"),
		CategoryType:    q.Get("category_type"),
		ClassID:         q.Get("class_id"),
	}
}

func (q reportQuery) token() ledger.PeriodToken {
	if q.Period == "" {
		return ledger.PeriodMonth
	}
	return ledger.PeriodToken(q.Period)
}

func (q reportQuery) filter() ledger.Filter {
	return ledger.Filter{
		ProgramType:     ledger.ProgramType(q.ProgramType),
		ProgramCode:     q.ProgramCode,
		PaymentMethod:   ledger.PaymentMethod(q.PaymentMethod),
		PaymentStatus:   ledger.PaymentStatus(q.Status),
		TransactionType: ledger.TransactionType(q.TransactionType),
		CategoryID:      q.CategoryID,
		CategoryType:    ledger.CategoryType(q.CategoryType),
		ClassID:         q.ClassID,
	}
}

// bounds parses explicit from/to dates; zero values when absent. Formats
// are validated before this runs, so parse errors cannot occur here.
func (q reportQuery) bounds() (from, to ledger.Date) {
	if q.From != "" {
		from, _ = ledger.ParseDate(q.From)
	}
	if q.To != "" {
		to, _ = ledger.ParseDate(q.To)
	}
	return from, to
}

// LoadScenarioRequest selects a demo dataset.
type LoadScenarioRequest struct {
	Name string `json:"name" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SessionDTO is the login response.
type SessionDTO struct {
	Token   string  `json:"token"`
	Session Session `json:"session"`
}

// MetaDTO lists the discoverable vocabulary of the API.
type MetaDTO struct {
	Reports      []string `json:"reports"`
	PeriodTokens []string `json:"period_tokens"`
	Formats      []string `json:"formats"`
}

// ScenarioDTO describes one demo dataset.
type ScenarioDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorDTO is the error envelope for every non-2xx response.
type ErrorDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
