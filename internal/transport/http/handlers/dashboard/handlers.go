package dashboardhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/dashboard"
	"staffeval/internal/domain/evaluation"
	"staffeval/internal/domain/goals"
	"staffeval/internal/transport/http/api"
	"staffeval/internal/transport/http/middleware"
	"staffeval/internal/transport/http/shared"
)

type Service interface {
	CurrentPeriod() evaluation.Period
	CurrentFiscalYear(ctx context.Context, tenantID string) (int, error)
	Monthly(ctx context.Context, tenantID string, period evaluation.Period) (dashboard.Monthly, error)
	Quarterly(ctx context.Context, tenantID string, year, quarter int) (dashboard.Rollup, error)
	Annual(ctx context.Context, tenantID string, year int) (dashboard.Rollup, error)
	Fiscal(ctx context.Context, tenantID string, year int) (dashboard.Rollup, error)
	Me(ctx context.Context, tenantID, userID string) (dashboard.Personal, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermDashboardRead, h.Perms))
		r.Get("/me", h.handleMe)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			r.Get("/monthly", h.handleMonthly)
			r.Get("/quarterly", h.handleQuarterly)
			r.Get("/annual", h.handleAnnual)
			r.Get("/fiscal", h.handleFiscal)
		})
	})
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	period, err := shared.QueryPeriod(r, "period", h.Service.CurrentPeriod())
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "period", Reason: "must be a month in YYYY-MM format"}})
		return
	}
	out, err := h.Service.Monthly(r.Context(), user.TenantID, period)
	if err != nil {
		writeError(w, err, "dashboard_failed", "failed to load monthly dashboard", reqID)
		return
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleQuarterly(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	current := h.Service.CurrentPeriod()
	v := shared.NewValidator()
	year := queryInt(v, r, "year", current.Year)
	quarter := queryInt(v, r, "quarter", current.Quarter())
	v.IntRange("quarter", quarter, 1, 4)
	if v.Reject(w, reqID) {
		return
	}
	out, err := h.Service.Quarterly(r.Context(), user.TenantID, year, quarter)
	if err != nil {
		writeError(w, err, "dashboard_failed", "failed to load quarterly dashboard", reqID)
		return
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleAnnual(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	v := shared.NewValidator()
	year := queryInt(v, r, "year", h.Service.CurrentPeriod().Year)
	if v.Reject(w, reqID) {
		return
	}
	out, err := h.Service.Annual(r.Context(), user.TenantID, year)
	if err != nil {
		writeError(w, err, "dashboard_failed", "failed to load annual dashboard", reqID)
		return
	}
	api.Success(w, out, reqID)
}

// handleFiscal defaults to the fiscal year containing the current month.
func (h *Handler) handleFiscal(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	v := shared.NewValidator()
	year := queryInt(v, r, "year", 0)
	if v.Reject(w, reqID) {
		return
	}
	if year == 0 {
		current, err := h.Service.CurrentFiscalYear(r.Context(), user.TenantID)
		if err != nil {
			writeError(w, err, "dashboard_failed", "failed to resolve fiscal year", reqID)
			return
		}
		year = current
	}
	out, err := h.Service.Fiscal(r.Context(), user.TenantID, year)
	if err != nil {
		writeError(w, err, "dashboard_failed", "failed to load fiscal dashboard", reqID)
		return
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	out, err := h.Service.Me(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		writeError(w, err, "dashboard_failed", "failed to load personal dashboard", reqID)
		return
	}
	api.Success(w, out, reqID)
}

func queryInt(v *shared.Validator, r *http.Request, name string, def int) int {
	value, err := shared.QueryInt(r, name, def)
	if err != nil {
		v.Add(name, "must be a number")
	}
	return value
}

func writeError(w http.ResponseWriter, err error, code, message, reqID string) {
	switch {
	case errors.Is(err, dashboard.ErrNoStaffRecord):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, dashboard.ErrInvalidYear), errors.Is(err, goals.ErrInvalidQuarter):
		api.Fail(w, http.StatusBadRequest, "invalid_request", err.Error(), reqID)
	default:
		slog.Error(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}
