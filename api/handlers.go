/*
handlers.go - HTTP handlers for the reporting API

PURPOSE:
  Exposes the report assembler over REST. Handles HTTP parsing, validation,
  and JSON serialization; all financial arithmetic lives in ledger/ and all
  bundle composition in report/.

ENDPOINTS:
  Session:
    POST /api/session                      Dev login, returns a JWT

  Reports (admin):
    GET  /api/reports/{name}               Generate a report bundle
    GET  /api/reports/{name}/export        Export as csv|json

  Students:
    GET  /api/students/{id}/statement      Own statement (student) or any (admin)

  Meta:
    GET  /api/meta                         Report names, period tokens, formats
    GET  /api/meta/periods                 Period tokens
    GET  /api/meta/programs                Program dimension

  Scenarios (admin, demo data):
    GET  /api/scenarios                    List demo scenarios
    GET  /api/scenarios/current            Currently loaded scenario
    POST /api/scenarios/load               Load a scenario
    POST /api/scenarios/reset              Wipe all data

ERROR HANDLING:
  Errors map to JSON envelopes with appropriate status:
  - 400: invalid filter/period/format
  - 401/403: missing session, wrong role
  - 404: unknown report, unknown student
  - 500: store failures
  Empty data is NOT an error: reports over empty periods return 200 with
  zero-valued bundles.

SEE ALSO:
  - dto.go:    Request/response shapes
  - server.go: Router and middleware wiring
  - auth.go:   Session middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian/tuition-engine/ledger"
	"github.com/meridian/tuition-engine/report"
	"github.com/meridian/tuition-engine/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Assembler *report.Assembler
	Auth      *Auth

	validate *validator.Validate

	currentScenario string
}

// NewHandler creates a handler over the given store.
func NewHandler(store *sqlite.Store, auth *Auth) *Handler {
	return &Handler{
		Store:     store,
		Assembler: report.NewAssembler(store),
		Auth:      auth,
		validate:  validator.New(),
	}
}

// =============================================================================
// SESSION
// =============================================================================

// CreateSession is the dev login: it mints a token for the requested
// identity without a password check. A real deployment replaces this with
// the identity service; everything downstream only sees the JWT.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session request", err)
		return
	}

	session := Session{UserID: req.UserID, Role: Role(req.Role), StudentID: req.StudentID}
	token, err := h.Auth.IssueToken(session, 12*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionDTO{Token: token, Session: session})
}

// =============================================================================
// REPORTS
// =============================================================================

// GetReport generates the named report bundle for the requested period and
// filters.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	name := report.Name(chi.URLParam(r, "name"))

	query := parseReportQuery(r)
	if err := h.validate.Struct(query); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid report query", err)
		return
	}

	from, to := query.bounds()
	bundle, err := h.Assembler.Generate(r.Context(), name, query.token(), from, to, query.filter())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// ExportReport generates the named bundle and serializes it as CSV or JSON.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	name := report.Name(chi.URLParam(r, "name"))

	query := parseReportQuery(r)
	if err := h.validate.Struct(query); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid export query", err)
		return
	}
	format := report.Format(query.Format)
	if query.Format == "" {
		format = report.FormatCSV
	}

	from, to := query.bounds()
	bundle, err := h.Assembler.Generate(r.Context(), name, query.token(), from, to, query.filter())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payload, err := report.Export(bundle, format)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format == report.FormatCSV {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s-report.csv", name))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// =============================================================================
// STUDENT STATEMENT
// =============================================================================

// GetStudentStatement returns one student's recomputed financial position
// and history. Students may only read their own; admins may read any.
func (h *Handler) GetStudentStatement(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	session, ok := SessionFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No session", nil)
		return
	}
	if session.Role != RoleAdmin && session.StudentID != studentID {
		writeError(w, http.StatusForbidden, "Students may only view their own statement", nil)
		return
	}

	query := parseReportQuery(r)
	if err := h.validate.Struct(query); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid statement query", err)
		return
	}
	token := query.token()
	if query.Period == "" {
		token = ledger.PeriodAll // statements default to full history
	}

	from, to := query.bounds()
	period, err := ledger.ResolvePeriod(token, from, to, h.Assembler.Today())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	statement, err := h.Assembler.StudentStatement(r.Context(), studentID, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Read-through refresh of the cached view; the response is served from
	// the freshly derived values either way.
	if err := h.Store.RefreshStudentStatus(r.Context(), statement.Status, h.Assembler.Today()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to refresh student status", err)
		return
	}

	writeJSON(w, http.StatusOK, statement)
}

// =============================================================================
// META
// =============================================================================

func (h *Handler) GetMeta(w http.ResponseWriter, r *http.Request) {
	meta := MetaDTO{Formats: []string{string(report.FormatCSV), string(report.FormatJSON)}}
	for _, n := range report.Names() {
		meta.Reports = append(meta.Reports, string(n))
	}
	for _, t := range ledger.PeriodTokens() {
		meta.PeriodTokens = append(meta.PeriodTokens, string(t))
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ledger.PeriodTokens())
}

func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.Store.FetchPrograms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list programs", err)
		return
	}
	writeJSON(w, http.StatusOK, programs)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	dto := ErrorDTO{Error: msg}
	if err != nil {
		dto.Details = err.Error()
	}
	writeJSON(w, status, dto)
}

// writeDomainError maps ledger errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	default:
		writeError(w, http.StatusInternalServerError, "Report generation failed", err)
	}
}
