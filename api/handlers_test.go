package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/tuition-engine/api"
	"github.com/meridian/tuition-engine/ledger"
	"github.com/meridian/tuition-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var today = ledger.NewDate(2025, time.June, 30)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestServer(t *testing.T) (*httptest.Server, *api.Handler, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, api.NewAuth("test-secret"))
	handler.Assembler.Today = func() ledger.Date { return today }

	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, handler, store
}

func adminToken(t *testing.T, h *api.Handler) string {
	t.Helper()
	token, err := h.Auth.IssueToken(api.Session{UserID: "admin-1", Role: api.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	return token
}

func studentToken(t *testing.T, h *api.Handler, studentID string) string {
	t.Helper()
	token, err := h.Auth.IssueToken(api.Session{
		UserID: "user-" + studentID, Role: api.RoleStudent, StudentID: studentID,
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, method, url, token string, body string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func seedRevenue(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.UpsertProgram(ctx, ledger.Program{
		Code: "MATH", Name: "Mathematics", Type: ledger.ProgramOnline}))
	require.NoError(t, store.InsertPayment(ctx, ledger.PaymentRecord{
		ID: "pay-1", StudentID: "stu-1", Amount: amt("150.50"),
		Method: ledger.MethodTransfer, Status: ledger.PaymentCompleted,
		Type: ledger.TxTuition, PaidAt: today.AddDays(-10), ProgramCode: "MATH",
	}))
	require.NoError(t, store.InsertInvoice(ctx, ledger.Invoice{
		ID: "inv-1", StudentID: "stu-1", ProgramCode: "MATH",
		InvoiceType: ledger.TxTuition, Amount: amt("300"), PaidAmount: amt("150.50"),
		DueDate: today.AddDays(10), Status: ledger.InvoicePartial, CreatedAt: today.AddDays(-30),
	}))
}

// =============================================================================
// AUTH TESTS
// =============================================================================

func TestReports_RequireToken(t *testing.T) {
	// GIVEN: No Authorization header
	// WHEN: Requesting an admin report
	// THEN: 401 with an error envelope

	srv, _, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/reports/revenue", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var e api.ErrorDTO
	decodeBody(t, resp, &e)
	assert.NotEmpty(t, e.Error)
}

func TestReports_StudentRoleForbidden(t *testing.T) {
	// GIVEN: A valid student session
	// WHEN: Requesting an admin report
	// THEN: 403

	srv, h, _ := newTestServer(t)
	token := studentToken(t, h, "stu-1")
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/reports/revenue", token, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReports_GarbageTokenRejected(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/reports/revenue", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateSession_IssuesWorkingToken(t *testing.T) {
	// GIVEN: The dev login endpoint
	// WHEN: Creating an admin session and using the returned token
	// THEN: The token opens the admin report routes

	srv, _, _ := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/session", "",
		`{"user_id": "admin-1", "role": "admin"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session api.SessionDTO
	decodeBody(t, resp, &session)
	require.NotEmpty(t, session.Token)

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/reports/revenue?period=all", session.Token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateSession_StudentNeedsStudentID(t *testing.T) {
	// GIVEN: A student login without a student_id
	// WHEN: Creating the session
	// THEN: 400 from validation

	srv, _, _ := newTestServer(t)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/session", "",
		`{"user_id": "u-1", "role": "student"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// REPORT ENDPOINT TESTS
// =============================================================================

func TestGetReport_RevenueHappyPath(t *testing.T) {
	// GIVEN: A seeded completed payment
	// WHEN: Requesting the revenue report for all time
	// THEN: 200 with the correct total in the bundle

	srv, h, store := newTestServer(t)
	seedRevenue(t, store)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/reports/revenue?period=all", adminToken(t, h), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Total        string `json:"total"`
		PaymentCount int    `json:"payment_count"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "150.5", body.Total)
	assert.Equal(t, 1, body.PaymentCount)
}

func TestGetReport_EmptyStoreReturnsZeroBundle(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Requesting any report
	// THEN: 200 with zero values, never 404 or 500

	srv, h, _ := newTestServer(t)
	for _, name := range []string{"revenue", "outstanding", "collection", "expenses", "profit-loss"} {
		resp := doRequest(t, http.MethodGet, srv.URL+"/api/reports/"+name+"?period=all", adminToken(t, h), "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, "report %q", name)
	}
}

func TestGetReport_UnknownName(t *testing.T) {
	srv, h, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/reports/cashflow", adminToken(t, h), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetReport_InvalidPeriodToken(t *testing.T) {
	srv, h, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/reports/revenue?period=fortnight", adminToken(t, h), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetReport_InvalidFilterValue(t *testing.T) {
	// GIVEN: A filter value outside its enum
	// WHEN: Requesting a report
	// THEN: 400 naming the offending field

	srv, h, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/reports/revenue?period=all&payment_method=barter", adminToken(t, h), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e api.ErrorDTO
	decodeBody(t, resp, &e)
	assert.Contains(t, e.Details, "payment_method")
}

func TestGetReport_CustomPeriodBounds(t *testing.T) {
	// GIVEN: A seeded payment 10 days ago
	// WHEN: Requesting a custom range that ends before it
	// THEN: 200 with a zero total

	srv, h, store := newTestServer(t)
	seedRevenue(t, store)

	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/reports/revenue?period=custom&from=2025-01-01&to=2025-01-31", adminToken(t, h), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Total string `json:"total"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "0", body.Total)
}

// =============================================================================
// EXPORT ENDPOINT TESTS
// =============================================================================

func TestExportReport_CSVDefault(t *testing.T) {
	// GIVEN: A seeded store
	// WHEN: Exporting without a format parameter
	// THEN: BOM-prefixed CSV with attachment headers

	srv, h, store := newTestServer(t)
	seedRevenue(t, store)

	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/reports/revenue/export?period=all", adminToken(t, h), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "revenue-report.csv")

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, buf.String(), "dimension,key,amount,count")
}

func TestExportReport_JSONFormat(t *testing.T) {
	srv, h, store := newTestServer(t)
	seedRevenue(t, store)

	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/reports/collection/export?period=all&format=json", adminToken(t, h), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var decoded map[string]any
	decodeBody(t, resp, &decoded)
	assert.Contains(t, decoded, "overall_rate")
}

func TestExportReport_BadFormatRejected(t *testing.T) {
	srv, h, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/reports/revenue/export?period=all&format=pdf", adminToken(t, h), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// STUDENT STATEMENT TESTS
// =============================================================================

func TestStudentStatement_SelfAccess(t *testing.T) {
	// GIVEN: A student session for stu-1 with seeded rows
	// WHEN: Requesting their own statement
	// THEN: 200, and the status cache is refreshed as a side effect

	srv, h, store := newTestServer(t)
	seedRevenue(t, store)

	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/students/stu-1/statement", studentToken(t, h, "stu-1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status struct {
			Balance string `json:"balance"`
		} `json:"status"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "149.5", body.Status.Balance)

	cached, err := store.CachedStudentStatus(context.Background(), "stu-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "149.5", cached.Balance.String())
}

func TestStudentStatement_OtherStudentForbidden(t *testing.T) {
	// GIVEN: A student session for stu-2
	// WHEN: Requesting stu-1's statement
	// THEN: 403

	srv, h, store := newTestServer(t)
	seedRevenue(t, store)

	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/students/stu-1/statement", studentToken(t, h, "stu-2"), "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStudentStatement_AdminAccessAnyStudent(t *testing.T) {
	srv, h, store := newTestServer(t)
	seedRevenue(t, store)

	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/students/stu-1/statement", adminToken(t, h), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStudentStatement_UnknownStudent(t *testing.T) {
	srv, h, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/students/stu-ghost/statement", adminToken(t, h), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// META & SCENARIO TESTS
// =============================================================================

func TestGetMeta_ListsVocabulary(t *testing.T) {
	srv, h, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/meta", studentToken(t, h, "stu-1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var meta api.MetaDTO
	decodeBody(t, resp, &meta)
	assert.Contains(t, meta.Reports, "profit-loss")
	assert.Contains(t, meta.PeriodTokens, "rolling_quarter")
	assert.Equal(t, []string{"csv", "json"}, meta.Formats)
}

func TestScenarios_LoadAndQueryFlow(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Loading the spring-term scenario
	// THEN: Current scenario updates and reports show seeded data

	srv, h, _ := newTestServer(t)
	token := adminToken(t, h)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/scenarios/load", token,
		`{"name": "spring-term"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/scenarios/current", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var current map[string]string
	decodeBody(t, resp, &current)
	assert.Equal(t, "spring-term", current["current"])

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/reports/revenue?period=all", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Total string `json:"total"`
	}
	decodeBody(t, resp, &body)
	assert.NotEqual(t, "0", body.Total)
}

func TestScenarios_UnknownName(t *testing.T) {
	srv, h, _ := newTestServer(t)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/scenarios/load", adminToken(t, h),
		`{"name": "winter-break"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScenarios_ResetClearsData(t *testing.T) {
	srv, h, _ := newTestServer(t)
	token := adminToken(t, h)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/scenarios/load", token,
		`{"name": "collections-crunch"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/scenarios/reset", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/reports/outstanding?period=all", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		UnpaidInvoices int `json:"unpaid_invoices"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, 0, body.UnpaidInvoices)
}
