package feedbackhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/feedback"
	"staffeval/internal/domain/notifications"
	"staffeval/internal/transport/http/api"
	"staffeval/internal/transport/http/middleware"
	"staffeval/internal/transport/http/shared"
)

type Service interface {
	Save(ctx context.Context, tenantID, authorID string, in feedback.Input) (feedback.Feedback, bool, error)
	List(ctx context.Context, tenantID string, filter feedback.Filter) ([]feedback.Feedback, error)
	StaffUserID(ctx context.Context, tenantID, staffID string) (string, error)
}

type Handler struct {
	Service Service
	Staff   shared.StaffResolver
	Perms   middleware.PermissionStore
	Notify  shared.Notifier
	Audit   shared.Auditor
}

func NewHandler(service Service, staff shared.StaffResolver, perms middleware.PermissionStore, notify shared.Notifier, auditor shared.Auditor) *Handler {
	return &Handler{Service: service, Staff: staff, Perms: perms, Notify: notify, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/feedback", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermFeedbackRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermFeedbackWrite, h.Perms)).Put("/", h.handleSave)
	})
}

// handleList filters by staff, author and month. Staff callers only see
// feedback written about them.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	query := r.URL.Query()
	filter := feedback.Filter{
		StaffID:  strings.TrimSpace(query.Get("staffId")),
		AuthorID: strings.TrimSpace(query.Get("authorId")),
	}
	if raw := strings.TrimSpace(query.Get("period")); raw != "" {
		v := shared.NewValidator()
		period, _ := v.Period("period", raw)
		if v.Reject(w, reqID) {
			return
		}
		filter.Period = &period
	}

	if user.IsStaff() {
		staffID, err := h.Staff.IDByUserID(r.Context(), user.TenantID, user.UserID)
		if err != nil || staffID == "" {
			api.Fail(w, http.StatusForbidden, "forbidden", "no staff record linked to this user", reqID)
			return
		}
		filter.StaffID = staffID
	}

	items, err := h.Service.List(r.Context(), user.TenantID, filter)
	if err != nil {
		writeError(w, err, "feedback_list_failed", "failed to list feedback", reqID)
		return
	}
	if items == nil {
		items = []feedback.Feedback{}
	}
	api.Success(w, items, reqID)
}

// handleSave upserts the caller's feedback for a staff member and month.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload feedback.Input
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("staffId", payload.StaffID, "is required")
	v.Required("body", payload.Body, "is required")
	if payload.Period.IsZero() {
		v.Add("period", "must be a month in YYYY-MM format")
	}
	v.MaxLength("body", payload.Body, feedback.MaxBodyLength)
	v.MaxLength("strengths", payload.Strengths, feedback.MaxBodyLength)
	v.MaxLength("improvements", payload.Improvements, feedback.MaxBodyLength)
	if v.Reject(w, reqID) {
		return
	}

	saved, created, err := h.Service.Save(r.Context(), user.TenantID, user.UserID, payload)
	if err != nil {
		writeError(w, err, "feedback_save_failed", "failed to save feedback", reqID)
		return
	}
	action := "feedback.update"
	if created {
		action = "feedback.create"
	}
	shared.RecordAudit(r, h.Audit, user, action, "feedback", saved.ID, nil, saved)

	if created {
		if ownerID, err := h.Service.StaffUserID(r.Context(), user.TenantID, saved.StaffID); err == nil && ownerID != "" {
			shared.Notify(r.Context(), h.Notify, user.TenantID, ownerID, notifications.TypeFeedbackReceived,
				"New feedback",
				fmt.Sprintf("You received feedback for %s.", saved.Period))
		}
		api.Created(w, saved, reqID)
		return
	}
	api.Success(w, saved, reqID)
}

func writeError(w http.ResponseWriter, err error, code, message, reqID string) {
	switch {
	case errors.Is(err, feedback.ErrStaffNotFound), errors.Is(err, feedback.ErrFeedbackNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, feedback.ErrSelfFeedback):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case errors.Is(err, feedback.ErrBodyRequired), errors.Is(err, feedback.ErrTooLong), errors.Is(err, feedback.ErrStaffInactive):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_feedback", err.Error(), reqID)
	default:
		slog.Error(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}
