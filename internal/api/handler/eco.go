package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/api/middleware"
	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/api/response"
	"github.com/ecoroute/ecoroute/internal/config"
	"github.com/ecoroute/ecoroute/internal/history"
	"github.com/ecoroute/ecoroute/internal/planner"
	"github.com/ecoroute/ecoroute/internal/routing"
)

// EcoPlanner builds ranked plans and comparisons.
type EcoPlanner interface {
	Plan(ctx context.Context, req planner.Request) (*planner.Result, error)
	Compare(ctx context.Context, start, end routing.Coordinate) (*planner.Comparison, error)
}

// PlanRecorder records completed plans. It must not fail the request.
type PlanRecorder interface {
	Record(ctx context.Context, result *planner.Result)
}

// HistoryLister lists recent plan summaries.
type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

// EcoHandler serves eco route plans.
type EcoHandler struct {
	planner  EcoPlanner
	recorder PlanRecorder
	history  HistoryLister
	logger   zerolog.Logger
}

// EcoConfig holds EcoHandler dependencies.
// A nil Planner means provider API keys are not configured.
type EcoConfig struct {
	Planner  EcoPlanner
	Recorder PlanRecorder
	History  HistoryLister
	Logger   zerolog.Logger
}

// NewEcoHandler creates a new EcoHandler.
func NewEcoHandler(cfg EcoConfig) *EcoHandler {
	return &EcoHandler{
		planner:  cfg.Planner,
		recorder: cfg.Recorder,
		history:  cfg.History,
		logger:   cfg.Logger,
	}
}

// Plan handles GET /v1/eco/plan?start=&end=&modes=.
func (h *EcoHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil {
		response.ConfigurationMissing(w, r, config.ErrMissingAPIKey.Error())
		return
	}

	q, errs := parsePlanQuery(r)
	if len(errs) > 0 {
		response.BadRequest(w, r, "Invalid plan parameters", errs)
		return
	}
	start, end, err := q.coordinates()
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	result, err := h.planner.Plan(r.Context(), planner.Request{
		Start: start,
		End:   end,
		Modes: routing.ParseProfiles(q.Modes),
	})
	if err != nil {
		h.writePlanError(w, r, err)
		return
	}

	h.record(r.Context(), result)
	response.JSON(w, r, http.StatusOK, models.NewPlanResponse(result))
}

// Compare handles GET /v1/eco/compare?start=&end=.
func (h *EcoHandler) Compare(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil {
		response.ConfigurationMissing(w, r, config.ErrMissingAPIKey.Error())
		return
	}

	q, errs := parsePlanQuery(r)
	if len(errs) > 0 {
		response.BadRequest(w, r, "Invalid comparison parameters", errs)
		return
	}
	start, end, err := q.coordinates()
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	cmp, err := h.planner.Compare(r.Context(), start, end)
	if err != nil {
		h.writePlanError(w, r, err)
		return
	}

	h.record(r.Context(), cmp.Result)
	response.JSON(w, r, http.StatusOK, models.NewCompareResponse(cmp))
}

// History handles GET /v1/eco/history?limit=.
func (h *EcoHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, r, "Invalid limit", []models.FieldError{
				{Field: "limit", Message: "must be a non-negative integer", Code: "number"},
			})
			return
		}
		limit = n
	}
	limit = history.ClampLimit(limit)

	items := []history.Record{}
	if h.history != nil {
		recs, err := h.history.Recent(r.Context(), limit)
		if err != nil {
			h.log(r).Error().Err(err).Msg("failed to list plan history")
			response.InternalError(w, r, "Failed to list plan history")
			return
		}
		items = recs
	}

	response.JSON(w, r, http.StatusOK, models.HistoryResponse{Items: items, Limit: limit})
}

func (h *EcoHandler) log(r *http.Request) *zerolog.Logger {
	return middleware.RequestLogger(r.Context(), h.logger)
}

func (h *EcoHandler) record(ctx context.Context, result *planner.Result) {
	if h.recorder == nil || result == nil {
		return
	}
	h.recorder.Record(ctx, result)
}

func (h *EcoHandler) writePlanError(w http.ResponseWriter, r *http.Request, err error) {
	var nvr *planner.NoViableRouteError
	switch {
	case errors.Is(err, planner.ErrNoModes):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "modes", Message: "must list at least one travel mode", Code: "modelist"},
		})
	case errors.Is(err, routing.ErrInvalidCoordinates):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.As(err, &nvr):
		failures := make([]models.FieldError, len(nvr.Failures))
		for i, f := range nvr.Failures {
			failures[i] = models.FieldError{Field: string(f.Mode), Message: f.Error, Code: "route_failed"}
		}
		response.BadGateway(w, r, "No valid routes found", failures)
	case errors.Is(err, planner.ErrNoViableRoute):
		response.BadGateway(w, r, "No valid routes found", nil)
	case errors.Is(err, context.DeadlineExceeded):
		response.GatewayTimeout(w, r, "Route planning timed out")
	default:
		h.log(r).Error().Err(err).Msg("eco route planning failed")
		response.InternalError(w, r, "Failed to plan eco routes")
	}
}
