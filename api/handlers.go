/*
handlers.go - HTTP API handlers for the facility funding engine

PURPOSE:
  Exposes the calculation engine, rate schedules, application snapshots and
  the run history via REST API. Handles HTTP request/response and JSON, and
  delegates everything else to the funding engine and the repository.

ENDPOINTS:
  Reference data:
    GET    /api/health                        Liveness
    GET    /api/licence-types                 Known licence types

  Rate schedules:
    GET    /api/rate-schedules                List schedules
    POST   /api/rate-schedules                Create or replace from JSON
    GET    /api/rate-schedules/{id}           Full schedule JSON

  Applications:
    GET    /api/applications                  List applications
    POST   /api/applications                  Create or replace a snapshot
    GET    /api/applications/{id}             Full snapshot JSON
    POST   /api/applications/{id}/calculate   Run the engine and record the run
    GET    /api/applications/{id}/runs        Recorded runs, oldest first

  Calculations:
    POST   /api/calculations                  Stateless run of an inline application

  Scenarios:
    GET    /api/scenarios                     List demo scenarios
    GET    /api/scenarios/current             Last loaded scenario
    POST   /api/scenarios/load                Load a demo scenario
    POST   /api/scenarios/reset               Clear all data

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: funding.Repository (SQLite in production, memory in tests)
  - Engine: the funding engine, shared by all requests
  - Schedules / Applications: JSON factories

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid JSON, unknown references, malformed hours or weekdays
  - 404: Resource not found
  - 422: The calculation completed with an InvalidData decision
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/warp/facility-funding/childcare"
	"github.com/warp/facility-funding/factory"
	"github.com/warp/facility-funding/funding"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        funding.Repository
	Engine       *funding.Engine
	Schedules    *factory.ScheduleFactory
	Applications *factory.ApplicationFactory
	Logger       *slog.Logger

	// Clock stamps CreatedAt on saved schedules and applications.
	Clock func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over the given store and engine.
func NewHandler(store funding.Repository, engine *funding.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:        store,
		Engine:       engine,
		Schedules:    factory.NewScheduleFactory(),
		Applications: factory.NewApplicationFactory(),
		Logger:       logger,
		Clock:        time.Now,
	}
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock().UTC()
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListLicenceTypes returns every registered licence type.
// GET /api/licence-types
func (h *Handler) ListLicenceTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, childcare.LicenceTypes())
}

// =============================================================================
// RATE SCHEDULE HANDLERS
// =============================================================================

// ListRateSchedules returns summaries of all rate schedules.
// GET /api/rate-schedules
func (h *Handler) ListRateSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.Store.ListRateSchedules(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list rate schedules", err)
		return
	}

	dtos := make([]RateScheduleSummaryDTO, len(schedules))
	for i, s := range schedules {
		dtos[i] = toScheduleSummary(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRateSchedule returns a rate schedule in its JSON form.
// GET /api/rate-schedules/{id}
func (h *Handler) GetRateSchedule(w http.ResponseWriter, r *http.Request) {
	id := funding.RateScheduleID(chi.URLParam(r, "id"))

	s, err := h.Store.GetRateSchedule(r.Context(), id)
	if funding.IsNotFound(err) {
		h.writeError(w, http.StatusNotFound, "Rate schedule not found", nil)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get rate schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Schedules.ToJSON(*s))
}

// CreateRateSchedule stores a rate schedule. Incomplete schedules are
// accepted; records that need a missing field fail at calculation time.
// POST /api/rate-schedules
func (h *Handler) CreateRateSchedule(w http.ResponseWriter, r *http.Request) {
	var req factory.RateScheduleJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Schedules.FromJSON(req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid rate schedule", err)
		return
	}
	s.CreatedAt = h.now()

	if err := h.Store.SaveRateSchedule(r.Context(), *s); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to save rate schedule", err)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduleSummary(*s))
}

// =============================================================================
// APPLICATION HANDLERS
// =============================================================================

// ListApplications returns summaries of all applications.
// GET /api/applications
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.Store.ListApplications(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list applications", err)
		return
	}

	dtos := make([]ApplicationSummaryDTO, len(apps))
	for i, a := range apps {
		dtos[i] = toApplicationSummary(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetApplication returns an application snapshot in its JSON form.
// GET /api/applications/{id}
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id := funding.ApplicationID(chi.URLParam(r, "id"))

	app, err := h.Store.GetApplication(r.Context(), id)
	if funding.IsNotFound(err) {
		h.writeError(w, http.StatusNotFound, "Application not found", nil)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get application", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Applications.ToJSON(*app))
}

// CreateApplication stores an application snapshot. An empty id is
// generated. The referenced rate schedule must exist.
// POST /api/applications
func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req factory.ApplicationJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	app, err := h.Applications.FromJSON(req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid application", err)
		return
	}

	ctx := r.Context()
	if _, err := h.Store.GetRateSchedule(ctx, app.RateScheduleID); err != nil {
		if funding.IsNotFound(err) {
			h.writeError(w, http.StatusBadRequest, "Unknown rate schedule", fmt.Errorf("rate schedule %s not found", app.RateScheduleID))
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to get rate schedule", err)
		return
	}

	app.CreatedAt = h.now()
	if err := h.Store.SaveApplication(ctx, *app); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to save application", err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplicationSummary(*app))
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// CalculateApplication runs the engine for a stored application against its
// stored rate schedule and appends the run to the history.
// POST /api/applications/{id}/calculate
func (h *Handler) CalculateApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := funding.ApplicationID(chi.URLParam(r, "id"))

	app, err := h.Store.GetApplication(ctx, id)
	if funding.IsNotFound(err) {
		h.writeError(w, http.StatusNotFound, "Application not found", nil)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get application", err)
		return
	}

	schedule, err := h.Store.GetRateSchedule(ctx, app.RateScheduleID)
	if funding.IsNotFound(err) {
		h.writeError(w, http.StatusNotFound, "Rate schedule not found", fmt.Errorf("rate schedule %s", app.RateScheduleID))
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get rate schedule", err)
		return
	}

	res, err := h.calculate(ctx, *app, *schedule)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Calculation failed", err)
		return
	}

	if err := h.Store.SaveRun(ctx, funding.NewRunRecord(res)); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to record calculation run", err)
		return
	}
	writeJSON(w, resultStatus(res), toResultDTO(res))
}

// ListRuns returns the recorded runs of an application.
// GET /api/applications/{id}/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := funding.ApplicationID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetApplication(ctx, id); err != nil {
		if funding.IsNotFound(err) {
			h.writeError(w, http.StatusNotFound, "Application not found", nil)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to get application", err)
		return
	}

	runs, err := h.Store.ListRuns(ctx, id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Calculate runs the engine on an inline application without storing
// anything. The rate schedule is inline or looked up by the application's
// rate_schedule_id.
// POST /api/calculations
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Application.ID == "" {
		req.Application.ID = uuid.NewString()
	}

	var schedule *funding.StoredRateSchedule
	if req.RateSchedule != nil {
		if req.Application.RateScheduleID == "" {
			req.Application.RateScheduleID = req.RateSchedule.ID
		}
		s, err := h.Schedules.FromJSON(*req.RateSchedule)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid rate schedule", err)
			return
		}
		schedule = s
	}

	app, err := h.Applications.FromJSON(req.Application)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid application", err)
		return
	}

	if schedule == nil {
		schedule, err = h.Store.GetRateSchedule(ctx, app.RateScheduleID)
		if funding.IsNotFound(err) {
			h.writeError(w, http.StatusNotFound, "Rate schedule not found", fmt.Errorf("rate schedule %s", app.RateScheduleID))
			return
		}
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "Failed to get rate schedule", err)
			return
		}
	}

	res, err := h.calculate(ctx, *app, *schedule)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Calculation failed", err)
		return
	}
	writeJSON(w, resultStatus(res), toResultDTO(res))
}

func (h *Handler) calculate(ctx context.Context, app funding.Application, schedule funding.StoredRateSchedule) (*funding.FundingResult, error) {
	res, err := h.Engine.Calculate(ctx, app.Input(schedule))
	if err != nil {
		return nil, err
	}
	h.Logger.Info("calculation completed",
		"request_id", middleware.GetReqID(ctx),
		"run_id", res.RunID.String(),
		"application_id", string(app.ID),
		"decision", res.Decision.String(),
		"grand_total", money(res.Amounts.GrandTotal.Projected),
		"errors", len(res.Errors),
	)
	return res, nil
}

func resultStatus(res *funding.FundingResult) int {
	if res.Decision == funding.DecisionInvalidData {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, "error", err)
	}
	writeJSON(w, status, resp)
}
