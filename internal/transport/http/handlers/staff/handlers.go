package staffhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/staff"
	"staffeval/internal/transport/http/api"
	"staffeval/internal/transport/http/middleware"
	"staffeval/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, tenantID string, in staff.Input, login *staff.Login) (staff.Staff, error)
	Update(ctx context.Context, tenantID, staffID string, in staff.Input) (staff.Staff, error)
	Deactivate(ctx context.Context, tenantID, staffID string) (staff.Staff, error)
	Get(ctx context.Context, tenantID, staffID string) (staff.Staff, error)
	List(ctx context.Context, tenantID string, filter staff.Filter, limit, offset int) ([]staff.Staff, int, error)
	IDByUserID(ctx context.Context, tenantID, userID string) (string, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
	Audit   shared.Auditor
}

func NewHandler(service Service, perms middleware.PermissionStore, auditor shared.Auditor) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditor}
}

type createRequest struct {
	staff.Input
	Login *staff.Login `json:"login"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/staff", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermStaffRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermStaffWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermStaffRead, h.Perms)).Get("/{staffID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermStaffWrite, h.Perms)).Put("/{staffID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermStaffWrite, h.Perms)).Post("/{staffID}/deactivate", h.handleDeactivate)
	})
}

// handleList pages through the tenant's staff. Staff callers only ever see
// their own record.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	page := shared.ParsePagination(r, shared.DefaultLimit, shared.MaxLimit)

	if user.IsStaff() {
		items := []staff.Staff{}
		if staffID, err := h.Service.IDByUserID(r.Context(), user.TenantID, user.UserID); err == nil {
			if self, err := h.Service.Get(r.Context(), user.TenantID, staffID); err == nil {
				items = append(items, self)
			}
		}
		api.Success(w, page.Page(items, len(items)), reqID)
		return
	}

	query := r.URL.Query()
	filter := staff.Filter{
		Status:     strings.TrimSpace(query.Get("status")),
		Department: strings.TrimSpace(query.Get("department")),
		Search:     strings.TrimSpace(query.Get("q")),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, []string{staff.StatusActive, staff.StatusInactive}, "must be active or inactive")
	if v.Reject(w, reqID) {
		return
	}
	items, total, err := h.Service.List(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		writeError(w, err, "staff_list_failed", "failed to list staff", reqID)
		return
	}
	if items == nil {
		items = []staff.Staff{}
	}
	api.Success(w, page.Page(items, total), reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	staffID := chi.URLParam(r, "staffID")
	if user.IsStaff() {
		selfID, err := h.Service.IDByUserID(r.Context(), user.TenantID, user.UserID)
		if err != nil || selfID != staffID {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
			return
		}
	}
	member, err := h.Service.Get(r.Context(), user.TenantID, staffID)
	if err != nil {
		writeError(w, err, "staff_get_failed", "failed to load staff", reqID)
		return
	}
	api.Success(w, member, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload createRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := validateInput(payload.Input)
	if payload.Login != nil {
		v.Enum("login.role", payload.Login.Role, []string{auth.RoleStaff, auth.RoleAdmin}, "must be Staff or Admin")
		v.Required("login.password", payload.Login.Password, "is required")
	}
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Create(r.Context(), user.TenantID, payload.Input, payload.Login)
	if err != nil {
		writeError(w, err, "staff_create_failed", "failed to create staff", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "staff.create", "staff", created.ID, nil, payload.Input)
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	staffID := chi.URLParam(r, "staffID")
	var payload staff.Input
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	if v := validateInput(payload); v.Reject(w, reqID) {
		return
	}
	before, err := h.Service.Get(r.Context(), user.TenantID, staffID)
	if err != nil {
		writeError(w, err, "staff_update_failed", "failed to update staff", reqID)
		return
	}
	updated, err := h.Service.Update(r.Context(), user.TenantID, staffID, payload)
	if err != nil {
		writeError(w, err, "staff_update_failed", "failed to update staff", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "staff.update", "staff", staffID, before, updated)
	api.Success(w, updated, reqID)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	staffID := chi.URLParam(r, "staffID")
	updated, err := h.Service.Deactivate(r.Context(), user.TenantID, staffID)
	if err != nil {
		writeError(w, err, "staff_deactivate_failed", "failed to deactivate staff", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "staff.deactivate", "staff", staffID, map[string]string{"status": staff.StatusActive}, map[string]string{"status": updated.Status})
	api.Success(w, updated, reqID)
}

func validateInput(in staff.Input) *shared.Validator {
	v := shared.NewValidator()
	v.Required("firstName", in.FirstName, "is required")
	v.Required("lastName", in.LastName, "is required")
	v.Required("email", in.Email, "is required")
	return v
}

func writeError(w http.ResponseWriter, err error, code, message, reqID string) {
	switch {
	case errors.Is(err, staff.ErrStaffNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "staff member not found", reqID)
	case errors.Is(err, staff.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", err.Error(), reqID)
	case errors.Is(err, staff.ErrInvalidStaff), errors.Is(err, staff.ErrInvalidRole), errors.Is(err, auth.ErrWeakPassword):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
	default:
		slog.Error(code, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}
