package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/warp/compliance-engine/api"
	"github.com/warp/compliance-engine/config"
	"github.com/warp/compliance-engine/metrics"
	"github.com/warp/compliance-engine/promotion"
	"github.com/warp/compliance-engine/store/sqlite"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// TEST SERVER
// =============================================================================

var apiNow = time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := prometheus.NewRegistry()
	h := api.NewHandler(store, zap.NewNop(), metrics.New(reg), config.Default())
	h.Now = func() time.Time { return apiNow }

	srv := httptest.NewServer(api.NewRouter(h, reg))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createPosition(t *testing.T, srv *httptest.Server, name string, courses ...string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/positions", map[string]any{
		"name":             name,
		"required_courses": courses,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func createEmployee(t *testing.T, srv *httptest.Server, id, name, position string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees", map[string]any{
		"id": id, "name": name, "position": position,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func submitResult(t *testing.T, srv *httptest.Server, id, course, date string, score float64) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodPost, srv.URL+"/api/employees/"+id+"/results", map[string]any{
		"course_name": course, "date": date, "score": score,
	})
}

// =============================================================================
// COMPLIANCE FLOW
// =============================================================================

func TestComplianceFlow(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN: A position requiring two courses and an employee in it
	createPosition(t, srv, "Operador de Montacargas", "Seguridad Industrial", "Manejo de Montacargas")
	createEmployee(t, srv, "emp-1", "María González", "Operador de Montacargas")

	// The matrix was seeded from the catalog at creation.
	var dto api.EmployeeDTO
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &dto)
	assert.Equal(t, 2, dto.Matrix.RequiredCount)
	assert.Equal(t, 0, dto.Matrix.CompliancePercentage)

	// WHEN: One passing and one failing result come in
	resp = submitResult(t, srv, "emp-1", "Seguridad Industrial", "2026-03-05", 85)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = submitResult(t, srv, "emp-1", "Manejo de Montacargas", "2026-03-10", 60)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &dto)

	// THEN: The matrix partitions missing into failed and pending
	assert.Equal(t, 1, dto.Matrix.CompletedCount)
	assert.Equal(t, 50, dto.Matrix.CompliancePercentage)
	assert.Equal(t, []training.CourseName{"Manejo de Montacargas"}, dto.Matrix.FailedCourses)
	assert.Empty(t, dto.Matrix.PendingCourses)

	// AND: A retake on the failed course replaces the entry in place
	resp = submitResult(t, srv, "emp-1", "Manejo de Montacargas", "2026-04-01", 90)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &dto)
	require.Len(t, dto.History, 2)
	assert.Equal(t, 100, dto.Matrix.CompliancePercentage)
}

func TestSubmitResult_UnknownEmployee(t *testing.T) {
	srv := newTestServer(t)

	resp := submitResult(t, srv, "ghost", "Seguridad Industrial", "2026-03-05", 85)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmitResult_RejectsBadInput(t *testing.T) {
	srv := newTestServer(t)
	createEmployee(t, srv, "emp-1", "Ana", "")

	for name, body := range map[string]map[string]any{
		"missing course": {"date": "2026-03-05", "score": 85},
		"bad date":       {"course_name": "A", "date": "March 5th", "score": 85},
		"score too high": {"course_name": "A", "date": "2026-03-05", "score": 120},
	} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/results", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
		resp.Body.Close()
	}
}

func TestGetEmployee_SelfHealsAfterLateCatalogEntry(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN: An employee created before their position existed
	createEmployee(t, srv, "emp-1", "Ana", "Técnico Eléctrico")

	var dto api.EmployeeDTO
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1", nil)
	decode(t, resp, &dto)
	assert.Equal(t, 0, dto.Matrix.RequiredCount)

	// WHEN: The catalog catches up (different case, same normalized name)
	createPosition(t, srv, "TECNICO ELECTRICO", "Norma Eléctrica")

	// THEN: The next read repairs the matrix
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1", nil)
	decode(t, resp, &dto)
	assert.Equal(t, 1, dto.Matrix.RequiredCount)
	assert.Equal(t, []training.CourseName{"Norma Eléctrica"}, dto.Matrix.PendingCourses)
}

func TestAddCourses_ReconcilesEmployees(t *testing.T) {
	srv := newTestServer(t)
	createPosition(t, srv, "Operador", "Seguridad Industrial")
	createEmployee(t, srv, "emp-1", "Ana", "Operador")

	var addResp api.AddCoursesResponse
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/positions/Operador/courses", map[string]any{
		"courses": []string{"Primeros Auxilios", "SEGURIDAD INDUSTRIAL"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &addResp)

	// The normalized duplicate is skipped, not errored.
	assert.Equal(t, []string{"Primeros Auxilios"}, addResp.Added)
	assert.Equal(t, []string{"SEGURIDAD INDUSTRIAL"}, addResp.Skipped)

	var dto api.EmployeeDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1", nil)
	decode(t, resp, &dto)
	assert.Equal(t, 2, dto.Matrix.RequiredCount)
}

func TestSeniority(t *testing.T) {
	srv := newTestServer(t)
	createEmployee(t, srv, "emp-1", "Ana", "Operador")

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/employees/emp-1/promotion", map[string]any{
		"position_start_date": "2025-06-15",
		"performance_score":   88,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var sen api.SeniorityDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/seniority", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &sen)

	// 2025-06-15 to 2026-08-29 is 1 year 2 months.
	assert.Equal(t, 1, sen.Years)
	assert.Equal(t, 2, sen.Months)
	assert.Equal(t, 14, sen.TotalMonths)
}

// =============================================================================
// ELIGIBILITY FLOW
// =============================================================================

func seedEligibilityFixture(t *testing.T, srv *httptest.Server) {
	t.Helper()
	createPosition(t, srv, "Operador", "Seguridad Industrial")
	createEmployee(t, srv, "emp-1", "Ana", "Operador")

	resp := submitResult(t, srv, "emp-1", "Seguridad Industrial", "2026-01-10", 95)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/employees/emp-1/promotion", map[string]any{
		"position_start_date": "2025-06-01",
		"performance_score":   85,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/rules", map[string]any{
		"id":                    "rule-operador",
		"current_position":      "Operador",
		"promotion_to":          "Supervisor",
		"temporality_months":    6,
		"exam_min_score":        80,
		"matrix_min_coverage":   90,
		"performance_min_score": 80,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestEligibilityFlow(t *testing.T) {
	srv := newTestServer(t)
	seedEligibilityFixture(t, srv)

	// Three criteria met, exam never attempted.
	var elig api.EligibilityResponse
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/eligibility", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &elig)
	assert.Equal(t, "Supervisor", elig.PromotionTo)
	assert.Equal(t, 3, elig.Verdict.Overall.MetCount)
	assert.False(t, elig.Verdict.Overall.Eligible)
	assert.Nil(t, elig.Verdict.Exam.Current)

	// The gate allows a first attempt; a passing attempt completes the set.
	var gate promotion.GateDecision
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/exam-gate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &gate)
	assert.True(t, gate.Allowed)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/exam-attempts", map[string]any{
		"date": "2026-08-20", "score": 90,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/eligibility", nil)
	decode(t, resp, &elig)
	assert.Equal(t, 4, elig.Verdict.Overall.MetCount)
	assert.True(t, elig.Verdict.Overall.Eligible)
}

func TestRecordExamAttempt_GateBlocks(t *testing.T) {
	srv := newTestServer(t)
	seedEligibilityFixture(t, srv)

	// GIVEN: A failed attempt 5 days ago
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/exam-attempts", map[string]any{
		"date": "2026-08-24", "score": 50,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// WHEN: A retake is attempted inside the 30-day cooldown
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/exam-attempts", map[string]any{
		"date": "2026-08-28", "score": 95,
	})

	// THEN: 409 with the gate decision, nothing recorded
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var gate promotion.GateDecision
	decode(t, resp, &gate)
	assert.Equal(t, promotion.GateCooldownActive, gate.Reason)
	require.NotNil(t, gate.RetryAfter)

	var dto api.EmployeeDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1", nil)
	decode(t, resp, &dto)
	assert.Len(t, dto.Promotion.ExamAttempts, 1)
}

func TestEligibility_NoRuleForPosition(t *testing.T) {
	srv := newTestServer(t)
	createEmployee(t, srv, "emp-1", "Ana", "Gerente")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/eligibility", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// RULES
// =============================================================================

func TestSaveRule_AmbiguityIs409(t *testing.T) {
	srv := newTestServer(t)

	rule := map[string]any{
		"id":               "r1",
		"current_position": "Técnico Eléctrico",
		"promotion_to":     "Supervisor",
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/rules", rule)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	rule["id"] = "r2"
	rule["current_position"] = "TECNICO ELECTRICO"
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/rules", rule)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSaveRule_ValidationIs400(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/rules", map[string]any{
		"current_position": "Operador",
		"promotion_to":     "Supervisor",
		"exam_min_score":   150,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteRule_NotFound(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/rules/ghost", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// IMPORT
// =============================================================================

func TestImportResults_Spreadsheet(t *testing.T) {
	srv := newTestServer(t)
	createPosition(t, srv, "Operador", "Seguridad Industrial")
	createEmployee(t, srv, "emp-1", "Ana", "Operador")

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"employee_id", "course", "date", "score"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"emp-1", "Seguridad Industrial", "2026-03-05", "85"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"ghost", "Seguridad Industrial", "2026-03-05", "85"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"emp-1", "Seguridad Industrial", "not a date", "85"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/import/results", "application/octet-stream", buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var imported api.ImportResponse
	decode(t, resp, &imported)
	assert.Equal(t, 1, imported.Report.Applied)
	require.Len(t, imported.Report.Failures, 1) // unknown employee
	require.Len(t, imported.ParseFailures, 1)   // bad date, rejected before the store
	assert.Equal(t, 4, imported.ParseFailures[0].Row)

	var dto api.EmployeeDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1", nil)
	decode(t, resp, &dto)
	assert.Equal(t, 100, dto.Matrix.CompliancePercentage)
}

func TestImportRoster(t *testing.T) {
	srv := newTestServer(t)
	createPosition(t, srv, "Operador", "Seguridad Industrial")
	createEmployee(t, srv, "emp-1", "Ana", "Operador")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/import/employees", []map[string]any{
		{"id": "emp-1", "name": "Ana"},                             // already exists
		{"id": "emp-2", "name": "Beto", "position": "Operador"},    // hydrates
		{"id": "emp-3", "name": "Caro", "position": "Desconocido"}, // unresolved
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var roster api.RosterImportResponse
	decode(t, resp, &roster)
	assert.Equal(t, []string{"emp-2", "emp-3"}, roster.Created)
	assert.Equal(t, []string{"emp-1"}, roster.Skipped)
	assert.Equal(t, []string{"Desconocido"}, roster.UnresolvedPositions)

	var dto api.EmployeeDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-2", nil)
	decode(t, resp, &dto)
	assert.Equal(t, 1, dto.Matrix.RequiredCount)
}

// =============================================================================
// HEALTH AND METRICS
// =============================================================================

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListEmployees_Summaries(t *testing.T) {
	srv := newTestServer(t)
	createPosition(t, srv, "Operador", "Seguridad Industrial")
	for i := 1; i <= 3; i++ {
		createEmployee(t, srv, fmt.Sprintf("emp-%d", i), fmt.Sprintf("Empleado %d", i), "Operador")
	}

	var list []api.EmployeeSummaryDTO
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].RequiredCount)
}
