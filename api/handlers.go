/*
handlers.go - HTTP API handlers for the compliance engine

PURPOSE:
  Exposes the reconciliation and eligibility engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to the pure
  engine plus the store.

ENDPOINTS:
  Positions:
    GET    /api/positions                     List catalog
    POST   /api/positions                     Create/replace position
    GET    /api/positions/{name}              Get position
    DELETE /api/positions/{name}              Delete position
    POST   /api/positions/{name}/courses      Add required courses
    DELETE /api/positions/{name}/courses      Remove a required course (?course=)
    POST   /api/positions/{name}/results      Bulk-apply one result to the position

  Employees:
    GET    /api/employees                     List summaries
    POST   /api/employees                     Create record
    GET    /api/employees/{id}                Get record (self-heals empty matrix)
    POST   /api/employees/{id}/results        Upsert one course result
    POST   /api/employees/{id}/matrix/recompute  Hydrate + recompute
    GET    /api/employees/{id}/seniority      Years/months in position
    PUT    /api/employees/{id}/promotion      Replace promotion data
    GET    /api/employees/{id}/eligibility    Evaluate the four criteria
    GET    /api/employees/{id}/exam-gate      Retake gate decision
    POST   /api/employees/{id}/exam-attempts  Record an attempt (gated)

  Rules:
    GET    /api/rules                         List promotion rules
    POST   /api/rules                         Create/replace a rule
    DELETE /api/rules/{id}                    Delete a rule

  Import:
    POST   /api/import/results                Spreadsheet of course results
    POST   /api/import/employees              JSON roster seed

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee/position/rule not found
  - 409: Ambiguous rule configuration, blocked exam attempt
  - 500: Internal errors
  Data absence inside the engine (zero matrix, no attempts, unresolved
  position) is never an error; it comes back as the documented zero state.

CLOCK:
  Handler.Now supplies "today" to every temporality and gating decision.
  Tests override it for determinism; production uses time.Now.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/compliance-engine/config"
	"github.com/warp/compliance-engine/factory"
	"github.com/warp/compliance-engine/importer"
	"github.com/warp/compliance-engine/metrics"
	"github.com/warp/compliance-engine/promotion"
	"github.com/warp/compliance-engine/store/sqlite"
	"github.com/warp/compliance-engine/training"
)

const dateLayout = "2006-01-02"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Cfg     *config.Config

	// Now supplies the current instant for temporality and exam gating.
	// Overridable in tests.
	Now func() time.Time
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(store *sqlite.Store, log *zap.Logger, m *metrics.Metrics, cfg *config.Config) *Handler {
	return &Handler{
		Store:   store,
		Log:     log,
		Metrics: m,
		Cfg:     cfg,
		Now:     time.Now,
	}
}

func (h *Handler) applier() *importer.Applier {
	return &importer.Applier{Employees: h.Store, Catalog: h.Store, Log: h.Log}
}

// =============================================================================
// POSITION HANDLERS
// =============================================================================

// ListPositions returns the full catalog.
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.Store.ListPositions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list positions", err)
		return
	}
	if positions == nil {
		positions = []training.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// CreatePosition creates or replaces a position, then re-reconciles every
// employee currently in it.
func (h *Handler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req factory.PositionJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pos, err := factory.ParsePosition(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid position", err)
		return
	}
	if err := h.Store.SavePosition(r.Context(), pos); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save position", err)
		return
	}

	h.reconcilePosition(r.Context(), pos)
	writeJSON(w, http.StatusCreated, pos)
}

// GetPosition returns a single position by raw name.
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := h.Store.GetPosition(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeStoreError(w, "Failed to get position", err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// DeletePosition removes a position. Employee records keep their matrices
// until the next recompute; positions are never deleted automatically.
func (h *Handler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeletePosition(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeStoreError(w, "Failed to delete position", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddCourses appends required courses to a position, skipping ones the
// list already carries by normalized name, then re-reconciles.
func (h *Handler) AddCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	var req AddCoursesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Courses) == 0 {
		writeError(w, http.StatusBadRequest, "No courses given", nil)
		return
	}

	pos, err := h.Store.GetPosition(ctx, name)
	if err != nil {
		h.writeStoreError(w, "Failed to get position", err)
		return
	}

	existing := make(map[string]bool, len(pos.RequiredCourses))
	for _, c := range pos.RequiredCourses {
		existing[training.Normalize(string(c))] = true
	}

	resp := AddCoursesResponse{Position: pos.Name, Added: []string{}, Skipped: []string{}}
	for _, c := range req.Courses {
		key := training.Normalize(c)
		if key == "" || existing[key] {
			resp.Skipped = append(resp.Skipped, c)
			continue
		}
		existing[key] = true
		pos.RequiredCourses = append(pos.RequiredCourses, training.CourseName(c))
		resp.Added = append(resp.Added, c)
	}

	if len(resp.Added) > 0 {
		if err := h.Store.SavePosition(ctx, *pos); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save position", err)
			return
		}
		h.reconcilePosition(ctx, *pos)
	}
	writeJSON(w, http.StatusOK, resp)
}

// RemoveCourse removes one required course (matched by normalized name)
// from a position, then re-reconciles.
func (h *Handler) RemoveCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	course := r.URL.Query().Get("course")
	if course == "" {
		writeError(w, http.StatusBadRequest, "Missing course query parameter", nil)
		return
	}

	pos, err := h.Store.GetPosition(ctx, name)
	if err != nil {
		h.writeStoreError(w, "Failed to get position", err)
		return
	}

	want := training.Normalize(course)
	kept := pos.RequiredCourses[:0]
	removed := false
	for _, c := range pos.RequiredCourses {
		if training.Normalize(string(c)) == want {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Course not required by position", nil)
		return
	}
	pos.RequiredCourses = kept

	if err := h.Store.SavePosition(ctx, *pos); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save position", err)
		return
	}
	h.reconcilePosition(ctx, *pos)
	writeJSON(w, http.StatusOK, pos)
}

// BulkResult applies one course result to every employee in a position.
func (h *Handler) BulkResult(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req BulkResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result, err := parseResult(req.CourseName, req.Date, req.Score)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid course result", err)
		return
	}

	report, err := h.applier().ApplyToPosition(r.Context(), name, result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply results", err)
		return
	}
	h.recordImportMetrics(report)
	writeJSON(w, http.StatusOK, report)
}

// reconcilePosition recomputes the matrix of every employee in a position
// after its required-course list changed. Per-employee failures are
// logged and skipped; a catalog edit must not fail over one bad record.
func (h *Handler) reconcilePosition(ctx context.Context, pos training.Position) {
	employees, err := h.Store.ListEmployeesByPosition(ctx, pos.Name)
	if err != nil {
		h.Log.Error("failed to list employees for reconciliation",
			zap.String("position", pos.Name), zap.Error(err))
		return
	}
	for _, rec := range employees {
		matrix := training.ComputeMatrix(rec.History, pos.RequiredCourses)
		if err := h.Store.SaveTrainingState(ctx, rec.ID, rec.History, matrix); err != nil {
			h.Log.Error("failed to save reconciled matrix",
				zap.String("employee_id", rec.ID), zap.Error(err))
			continue
		}
		h.Metrics.MatrixRecomputations.Inc()
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns list-view summaries of all records.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeSummaryDTO, len(employees))
	for i, e := range employees {
		dtos[i] = EmployeeSummaryDTO{
			ID:                   e.ID,
			Name:                 e.Name,
			Position:             e.Position,
			Department:           e.Department,
			CompliancePercentage: e.Matrix.CompliancePercentage,
			CompletedCount:       e.Matrix.CompletedCount,
			RequiredCount:        e.Matrix.RequiredCount,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates a training record. The matrix is seeded from the
// position catalog immediately when the position resolves.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	rec := training.TrainingRecord{
		ID:         id,
		Name:       req.Name,
		Position:   req.Position,
		Department: req.Department,
		History:    []training.HistoryEntry{},
		Matrix:     training.ComputeMatrix(nil, nil),
	}

	catalog, err := h.Store.ListPositions(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load position catalog", err)
		return
	}
	if outcome := training.Hydrate(&rec, catalog); !outcome.Resolved {
		// Unresolved position is non-fatal: the record starts with a zero
		// matrix and self-heals once the catalog catches up.
		h.Log.Warn("unresolved position at employee creation",
			zap.String("employee_id", rec.ID), zap.String("position", rec.Position))
	} else {
		h.Metrics.MatrixRecomputations.Inc()
	}

	if err := h.Store.SaveEmployee(ctx, rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(rec))
}

// GetEmployee returns a full record, lazily self-healing an empty matrix.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	rec, err := h.loadEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*rec))
}

// SubmitResult upserts one course result into the employee's history and
// persists history and the recomputed matrix together.
func (h *Handler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result, err := parseResult(req.CourseName, req.Date, req.Score)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid course result", err)
		return
	}

	rec, err := h.loadEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, "Failed to get employee", err)
		return
	}

	training.ApplyResult(rec, result)
	if err := rec.Matrix.Validate(); err != nil {
		h.Log.Error("matrix invariant violation", zap.String("employee_id", rec.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Matrix invariant violation", err)
		return
	}
	if err := h.Store.SaveTrainingState(ctx, rec.ID, rec.History, rec.Matrix); err != nil {
		h.writeStoreError(w, "Failed to save training state", err)
		return
	}
	h.Metrics.MatrixRecomputations.Inc()
	writeJSON(w, http.StatusOK, toEmployeeDTO(*rec))
}

// RecomputeMatrix hydrates (if needed) and recomputes the matrix on
// demand. Idempotent; safe to call any number of times.
func (h *Handler) RecomputeMatrix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, "Failed to get employee", err)
		return
	}

	catalog, err := h.Store.ListPositions(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load position catalog", err)
		return
	}

	// Re-resolve the position fresh so catalog edits are picked up even
	// when the matrix already has courses seeded.
	if pos, ok := training.ResolvePosition(rec.Position, catalog); ok {
		rec.Matrix = training.ComputeMatrix(rec.History, pos.RequiredCourses)
	} else {
		rec.Matrix = training.ComputeMatrix(rec.History, rec.Matrix.RequiredCourses)
	}

	if err := h.Store.SaveTrainingState(ctx, rec.ID, rec.History, rec.Matrix); err != nil {
		h.writeStoreError(w, "Failed to save training state", err)
		return
	}
	h.Metrics.MatrixRecomputations.Inc()
	writeJSON(w, http.StatusOK, rec.Matrix)
}

// GetSeniority returns time-in-position in display form.
func (h *Handler) GetSeniority(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, "Failed to get employee", err)
		return
	}
	now := h.Now()
	years, months := training.YearsAndMonths(rec.Promotion.PositionStartDate, now)
	writeJSON(w, http.StatusOK, SeniorityDTO{
		Years:       years,
		Months:      months,
		TotalMonths: training.MonthsBetween(rec.Promotion.PositionStartDate, now),
	})
}

// SetPromotionData replaces the promotion fields (except exam attempts,
// which only the exam-attempts endpoint mutates).
func (h *Handler) SetPromotionData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PromotionDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var startDate time.Time
	if req.PositionStartDate != "" {
		parsed, err := time.Parse(dateLayout, req.PositionStartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid position_start_date", err)
			return
		}
		startDate = training.DayOf(parsed)
	}
	if req.PerformanceScore < 0 || req.PerformanceScore > 100 {
		writeError(w, http.StatusBadRequest, "performance_score outside [0,100]", nil)
		return
	}

	rec, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, "Failed to get employee", err)
		return
	}

	pd := rec.Promotion
	pd.PositionStartDate = startDate
	pd.PerformanceScore = req.PerformanceScore
	pd.PerformancePeriod = req.PerformancePeriod

	if err := h.Store.SavePromotionData(ctx, rec.ID, pd); err != nil {
		h.writeStoreError(w, "Failed to save promotion data", err)
		return
	}
	writeJSON(w, http.StatusOK, pd)
}

// =============================================================================
// ELIGIBILITY HANDLERS
// =============================================================================

// GetEligibility evaluates the four promotion criteria for an employee
// against the rule for their position. Evaluated fresh on every call.
func (h *Handler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	rec, rule, ok := h.loadEmployeeAndRule(w, r)
	if !ok {
		return
	}

	verdict := promotion.Evaluate(*rec, rule, h.Now())
	h.Metrics.EligibilityEvaluations.Inc()
	writeJSON(w, http.StatusOK, EligibilityResponse{
		EmployeeID:  rec.ID,
		Position:    rec.Position,
		PromotionTo: rule.PromotionTo,
		Verdict:     verdict,
	})
}

// GetExamGate returns the retake-gate decision without recording anything.
func (h *Handler) GetExamGate(w http.ResponseWriter, r *http.Request) {
	rec, rule, ok := h.loadEmployeeAndRule(w, r)
	if !ok {
		return
	}
	gate := promotion.CanScheduleAttempt(*rec, rule, h.Cfg.ExamCooldownDays, h.Now())
	writeJSON(w, http.StatusOK, gate)
}

// RecordExamAttempt records an attempt after checking the gate. A blocked
// attempt returns 409 with the gate decision as details.
func (h *Handler) RecordExamAttempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecordAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if req.Score < 0 || req.Score > 100 {
		writeError(w, http.StatusBadRequest, "score outside [0,100]", nil)
		return
	}

	rec, rule, ok := h.loadEmployeeAndRule(w, r)
	if !ok {
		return
	}

	gate := promotion.CanScheduleAttempt(*rec, rule, h.Cfg.ExamCooldownDays, h.Now())
	if !gate.Allowed {
		writeJSON(w, http.StatusConflict, gate)
		return
	}

	attempt := promotion.RecordAttempt(&rec.Promotion, rule, date, req.Score)
	if err := h.Store.SavePromotionData(ctx, rec.ID, rec.Promotion); err != nil {
		h.writeStoreError(w, "Failed to save promotion data", err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

// loadEmployeeAndRule resolves the employee and the rule for their
// position, writing the error response itself when either fails.
// An ambiguous rule configuration is a 409, never a silent pick.
func (h *Handler) loadEmployeeAndRule(w http.ResponseWriter, r *http.Request) (*training.TrainingRecord, promotion.Rule, bool) {
	ctx := r.Context()

	rec, err := h.loadEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, "Failed to get employee", err)
		return nil, promotion.Rule{}, false
	}

	rules, err := h.Store.ListRules(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load promotion rules", err)
		return nil, promotion.Rule{}, false
	}
	ruleSet, err := promotion.NewRuleSet(rules)
	if err != nil {
		writeError(w, http.StatusConflict, "Ambiguous promotion rule configuration", err)
		return nil, promotion.Rule{}, false
	}
	rule, ok := ruleSet.ForPosition(rec.Position)
	if !ok {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("No promotion rule for position %q", rec.Position), nil)
		return nil, promotion.Rule{}, false
	}
	return rec, rule, true
}

// loadEmployee fetches a record and lazily self-heals an empty matrix,
// persisting the repair when it changed anything.
func (h *Handler) loadEmployee(ctx context.Context, id string) (*training.TrainingRecord, error) {
	rec, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if !training.NeedsHydration(rec) {
		return rec, nil
	}

	catalog, err := h.Store.ListPositions(ctx)
	if err != nil {
		return nil, err
	}
	outcome := training.Hydrate(rec, catalog)
	if !outcome.Resolved {
		h.Log.Warn("unresolved position during hydration",
			zap.String("employee_id", rec.ID), zap.String("position", rec.Position))
		return rec, nil
	}
	if outcome.Changed {
		if err := h.Store.SaveTrainingState(ctx, rec.ID, rec.History, rec.Matrix); err != nil {
			return nil, err
		}
		h.Metrics.MatrixRecomputations.Inc()
	}
	return rec, nil
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns all promotion rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}
	if rules == nil {
		rules = []promotion.Rule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// SaveRule creates or replaces a rule. Normalized-position collisions are
// rejected with 409.
func (h *Handler) SaveRule(w http.ResponseWriter, r *http.Request) {
	var req factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := factory.ParseRule(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}

	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		if errors.Is(err, promotion.ErrAmbiguousRule) {
			writeError(w, http.StatusConflict, "Ambiguous promotion rule", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// DeleteRule removes a rule by id.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, promotion.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// ImportResults accepts a spreadsheet of course results, either as a
// multipart upload (field "file") or as the raw request body.
func (h *Handler) ImportResults(w http.ResponseWriter, r *http.Request) {
	body, err := importBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}
	defer body.Close()

	rows, parseFailures, err := importer.ReadResults(body, h.Cfg.ImportMaxRows)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse spreadsheet", err)
		return
	}
	if parseFailures == nil {
		parseFailures = []importer.RowFailure{}
	}

	report, err := h.applier().ApplyResults(r.Context(), rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply results", err)
		return
	}
	h.recordImportMetrics(report)

	writeJSON(w, http.StatusOK, ImportResponse{ParseFailures: parseFailures, Report: report})
}

// ImportRoster seeds employee records from a JSON roster. Existing ids
// are skipped so a re-run never clobbers accumulated history.
func (h *Handler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	records, err := factory.ParseRoster(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid roster", err)
		return
	}

	catalog, err := h.Store.ListPositions(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load position catalog", err)
		return
	}

	resp := RosterImportResponse{Created: []string{}, Skipped: []string{}, UnresolvedPositions: []string{}}
	unresolved := map[string]bool{}
	for _, rec := range records {
		if _, err := h.Store.GetEmployee(ctx, rec.ID); err == nil {
			resp.Skipped = append(resp.Skipped, rec.ID)
			continue
		} else if !training.IsNotFound(err) {
			writeError(w, http.StatusInternalServerError, "Failed to check employee", err)
			return
		}

		if outcome := training.Hydrate(&rec, catalog); !outcome.Resolved {
			unresolved[rec.Position] = true
		} else {
			h.Metrics.MatrixRecomputations.Inc()
		}
		if err := h.Store.SaveEmployee(ctx, rec); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
			return
		}
		resp.Created = append(resp.Created, rec.ID)
	}
	for name := range unresolved {
		resp.UnresolvedPositions = append(resp.UnresolvedPositions, name)
	}
	sort.Strings(resp.UnresolvedPositions)

	h.Log.Info("roster import",
		zap.Int("created", len(resp.Created)), zap.Int("skipped", len(resp.Skipped)))
	writeJSON(w, http.StatusOK, resp)
}

func importBody(r *http.Request) (io.ReadCloser, error) {
	ct := r.Header.Get("Content-Type")
	if len(ct) >= 19 && ct[:19] == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		return file, nil
	}
	return r.Body, nil
}

func (h *Handler) recordImportMetrics(report importer.Report) {
	h.Metrics.ImportRowsApplied.Add(float64(report.Applied))
	h.Metrics.ImportRowsFailed.Add(float64(len(report.Failures)))
	h.Metrics.UnresolvedPositions.Set(float64(len(report.UnresolvedPositions)))
	h.Metrics.MatrixRecomputations.Add(float64(report.Applied))
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func toEmployeeDTO(rec training.TrainingRecord) EmployeeDTO {
	if rec.History == nil {
		rec.History = []training.HistoryEntry{}
	}
	return EmployeeDTO{
		ID:         rec.ID,
		Name:       rec.Name,
		Position:   rec.Position,
		Department: rec.Department,
		History:    rec.History,
		Matrix:     rec.Matrix,
		Promotion:  rec.Promotion,
	}
}

func parseResult(courseName, date string, score float64) (training.CourseResult, error) {
	if courseName == "" {
		return training.CourseResult{}, errors.New("course_name is required")
	}
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return training.CourseResult{}, fmt.Errorf("invalid date %q", date)
	}
	if score < 0 || score > 100 {
		return training.CourseResult{}, fmt.Errorf("score %v outside [0,100]", score)
	}
	return training.CourseResult{
		CourseName: training.CourseName(courseName),
		Date:       training.DayOf(parsed),
		Score:      score,
	}, nil
}

func (h *Handler) writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case training.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
