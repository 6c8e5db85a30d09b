package tenanthandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/evaluation"
	"staffeval/internal/domain/tenant"
	"staffeval/internal/transport/http/api"
	"staffeval/internal/transport/http/middleware"
	"staffeval/internal/transport/http/shared"
)

type Service interface {
	Provision(ctx context.Context, in tenant.ProvisionInput) (tenant.Provisioned, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	GetSettings(ctx context.Context, tenantID string) (tenant.Settings, error)
	UpdateSettings(ctx context.Context, tenantID string, settings tenant.Settings) (tenant.Settings, error)
	ListCategories(ctx context.Context, tenantID string) ([]evaluation.Category, error)
	UpdateCategories(ctx context.Context, tenantID string, categories []evaluation.Category) ([]evaluation.Category, error)
	ListCriteria(ctx context.Context, tenantID string) ([]evaluation.Criterion, error)
	CreateCriterion(ctx context.Context, tenantID string, in tenant.CriterionInput) (evaluation.Criterion, error)
	UpdateCriterion(ctx context.Context, tenantID, criterionID string, in tenant.CriterionInput) (evaluation.Criterion, error)
	DeleteCriterion(ctx context.Context, tenantID, criterionID string) (bool, error)
	ListThresholds(ctx context.Context, tenantID string) ([]evaluation.RankThreshold, error)
	ReplaceThresholds(ctx context.Context, tenantID string, thresholds []evaluation.RankThreshold) ([]evaluation.RankThreshold, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
	Audit   shared.Auditor
}

func NewHandler(service Service, perms middleware.PermissionStore, auditor shared.Auditor) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/tenants", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms))
		r.Get("/", h.handleListTenants)
		r.Post("/", h.handleCreateTenant)
	})
	r.Route("/settings", func(r chi.Router) {
		read := middleware.RequirePermission(auth.PermEvaluationRead, h.Perms)
		write := middleware.RequirePermission(auth.PermSettingsWrite, h.Perms)
		r.With(read).Get("/", h.handleGetSettings)
		r.With(write).Put("/", h.handleUpdateSettings)
		r.With(read).Get("/categories", h.handleListCategories)
		r.With(write).Put("/categories", h.handleUpdateCategories)
		r.With(read).Get("/criteria", h.handleListCriteria)
		r.With(write).Post("/criteria", h.handleCreateCriterion)
		r.With(write).Put("/criteria/{criterionID}", h.handleUpdateCriterion)
		r.With(write).Delete("/criteria/{criterionID}", h.handleDeleteCriterion)
		r.With(read).Get("/ranks", h.handleListThresholds)
		r.With(write).Put("/ranks", h.handleReplaceThresholds)
	})
}

func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	tenants, err := h.Service.ListTenants(r.Context())
	if err != nil {
		slog.Error("tenant list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "tenant_list_failed", "failed to list tenants", reqID)
		return
	}
	api.Success(w, tenants, reqID)
}

func (h *Handler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload tenant.ProvisionInput
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	v.Required("adminEmail", payload.AdminEmail, "is required")
	v.Required("adminPassword", payload.AdminPassword, "is required")
	if payload.FiscalStartMonth != 0 {
		v.IntRange("fiscalStartMonth", payload.FiscalStartMonth, 1, 12)
	}
	if v.Reject(w, reqID) {
		return
	}

	out, err := h.Service.Provision(r.Context(), payload)
	if err != nil {
		writeError(w, err, "tenant_create_failed", "failed to create tenant", reqID)
		return
	}
	payload.AdminPassword = ""
	shared.RecordAudit(r, h.Audit, user, "tenant.create", "tenant", out.TenantID, nil, payload)
	api.Created(w, out, reqID)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	settings, err := h.Service.GetSettings(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, err, "settings_load_failed", "failed to load settings", reqID)
		return
	}
	api.Success(w, settings, reqID)
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload tenant.Settings
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	before, err := h.Service.GetSettings(r.Context(), user.TenantID)
	if err != nil && !errors.Is(err, tenant.ErrTenantNotFound) {
		slog.Warn("settings before-image failed", "err", err)
	}
	updated, err := h.Service.UpdateSettings(r.Context(), user.TenantID, payload)
	if err != nil {
		writeError(w, err, "settings_update_failed", "failed to update settings", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "settings.update", "tenant", user.TenantID, before, updated)
	api.Success(w, updated, reqID)
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	categories, err := h.Service.ListCategories(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, err, "category_list_failed", "failed to list categories", reqID)
		return
	}
	api.Success(w, categories, reqID)
}

func (h *Handler) handleUpdateCategories(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload struct {
		Categories []evaluation.Category `json:"categories"`
	}
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	before, _ := h.Service.ListCategories(r.Context(), user.TenantID)
	updated, err := h.Service.UpdateCategories(r.Context(), user.TenantID, payload.Categories)
	if err != nil {
		writeError(w, err, "category_update_failed", "failed to update categories", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "settings.categories.update", "tenant", user.TenantID, before, updated)
	api.Success(w, updated, reqID)
}

func (h *Handler) handleListCriteria(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	criteria, err := h.Service.ListCriteria(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, err, "criteria_list_failed", "failed to list criteria", reqID)
		return
	}
	api.Success(w, criteria, reqID)
}

func (h *Handler) handleCreateCriterion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload tenant.CriterionInput
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "is required")
	v.Required("categoryCode", payload.CategoryCode, "is required")
	v.Enum("categoryCode", payload.CategoryCode, evaluation.CategoryCodes, "must be performance, behavior or growth")
	if v.Reject(w, reqID) {
		return
	}
	created, err := h.Service.CreateCriterion(r.Context(), user.TenantID, payload)
	if err != nil {
		writeError(w, err, "criterion_create_failed", "failed to create criterion", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "settings.criterion.create", "criterion", created.ID, nil, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdateCriterion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload tenant.CriterionInput
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	criterionID := chi.URLParam(r, "criterionID")
	updated, err := h.Service.UpdateCriterion(r.Context(), user.TenantID, criterionID, payload)
	if err != nil {
		writeError(w, err, "criterion_update_failed", "failed to update criterion", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "settings.criterion.update", "criterion", criterionID, payload, updated)
	api.Success(w, updated, reqID)
}

// handleDeleteCriterion removes unused criteria and deactivates ones that
// already carry scores.
func (h *Handler) handleDeleteCriterion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	criterionID := chi.URLParam(r, "criterionID")
	deleted, err := h.Service.DeleteCriterion(r.Context(), user.TenantID, criterionID)
	if err != nil {
		writeError(w, err, "criterion_delete_failed", "failed to delete criterion", reqID)
		return
	}
	action, outcome := "settings.criterion.deactivate", "deactivated"
	if deleted {
		action, outcome = "settings.criterion.delete", "deleted"
	}
	shared.RecordAudit(r, h.Audit, user, action, "criterion", criterionID, nil, map[string]string{"status": outcome})
	api.Success(w, map[string]string{"id": criterionID, "status": outcome}, reqID)
}

func (h *Handler) handleListThresholds(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	thresholds, err := h.Service.ListThresholds(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, err, "rank_list_failed", "failed to list ranks", reqID)
		return
	}
	api.Success(w, thresholds, reqID)
}

func (h *Handler) handleReplaceThresholds(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload struct {
		Ranks []evaluation.RankThreshold `json:"ranks"`
	}
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	before, _ := h.Service.ListThresholds(r.Context(), user.TenantID)
	updated, err := h.Service.ReplaceThresholds(r.Context(), user.TenantID, payload.Ranks)
	if err != nil {
		writeError(w, err, "rank_update_failed", "failed to update ranks", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "settings.ranks.update", "tenant", user.TenantID, before, updated)
	api.Success(w, updated, reqID)
}

func writeError(w http.ResponseWriter, err error, code, message, reqID string) {
	switch {
	case errors.Is(err, tenant.ErrInvalidSettings),
		errors.Is(err, tenant.ErrInvalidCriterion),
		errors.Is(err, evaluation.ErrInvalidWeights),
		errors.Is(err, evaluation.ErrInvalidThresholds),
		errors.Is(err, auth.ErrWeakPassword):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
	case errors.Is(err, tenant.ErrTenantNotFound), errors.Is(err, tenant.ErrCriterionNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, tenant.ErrTenantExists), errors.Is(err, tenant.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), reqID)
	default:
		slog.Error(code, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}
