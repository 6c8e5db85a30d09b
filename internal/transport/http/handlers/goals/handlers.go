package goalshandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/goals"
	"staffeval/internal/domain/notifications"
	"staffeval/internal/transport/http/api"
	"staffeval/internal/transport/http/middleware"
	"staffeval/internal/transport/http/shared"
)

var timeNow = time.Now

type Service interface {
	Create(ctx context.Context, tenantID, staffID string, in goals.Input) (goals.Goal, error)
	Update(ctx context.Context, tenantID, staffID, goalID string, in goals.Input) (goals.Goal, error)
	Submit(ctx context.Context, tenantID, staffID, goalID string) (goals.Goal, error)
	Review(ctx context.Context, tenantID, reviewerID, goalID, action, comment string) (goals.Goal, error)
	Get(ctx context.Context, tenantID, goalID string) (goals.Goal, error)
	List(ctx context.Context, tenantID string, filter goals.Filter) ([]goals.Goal, error)
	Summary(ctx context.Context, tenantID, staffID string, year, quarter int) (goals.Summary, error)
	StaffUserID(ctx context.Context, tenantID, staffID string) (string, error)
}

// Reviewers lists the users who should hear about submitted goals.
type Reviewers interface {
	ListUsersByRole(ctx context.Context, tenantID, roleName string) ([]auth.UserRef, error)
}

type Handler struct {
	Service   Service
	Staff     shared.StaffResolver
	Reviewers Reviewers
	Perms     middleware.PermissionStore
	Notify    shared.Notifier
	Audit     shared.Auditor
}

func NewHandler(service Service, staff shared.StaffResolver, reviewers Reviewers, perms middleware.PermissionStore, notify shared.Notifier, auditor shared.Auditor) *Handler {
	return &Handler{Service: service, Staff: staff, Reviewers: reviewers, Perms: perms, Notify: notify, Audit: auditor}
}

type reviewRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/goals", func(r chi.Router) {
		read := middleware.RequirePermission(auth.PermGoalsRead, h.Perms)
		write := middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleCreate)
		r.With(read).Get("/summary", h.handleSummary)
		r.With(read).Get("/{goalID}", h.handleGet)
		r.With(write).Put("/{goalID}", h.handleUpdate)
		r.With(write).Post("/{goalID}/submit", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermGoalsReview, h.Perms)).Post("/{goalID}/review", h.handleReview)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	query := r.URL.Query()
	filter := goals.Filter{
		StaffID: strings.TrimSpace(query.Get("staffId")),
		Status:  strings.TrimSpace(query.Get("status")),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, goals.Statuses, "is not a goal status")
	year, err := shared.QueryInt(r, "year", 0)
	if err != nil {
		v.Add("year", "must be a number")
	}
	quarter, err := shared.QueryInt(r, "quarter", 0)
	if err != nil {
		v.Add("quarter", "must be a number")
	}
	if quarter != 0 {
		v.IntRange("quarter", quarter, 1, 4)
	}
	if v.Reject(w, reqID) {
		return
	}
	filter.Year, filter.Quarter = year, quarter

	if user.IsStaff() {
		staffID, ok := h.callerStaffID(w, r, user)
		if !ok {
			return
		}
		filter.StaffID = staffID
	}

	items, err := h.Service.List(r.Context(), user.TenantID, filter)
	if err != nil {
		writeError(w, err, "goal_list_failed", "failed to list goals", reqID)
		return
	}
	if items == nil {
		items = []goals.Goal{}
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	goal, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "goalID"))
	if err != nil {
		writeError(w, err, "goal_load_failed", "failed to load goal", reqID)
		return
	}
	if user.IsStaff() {
		staffID, ok := h.callerStaffID(w, r, user)
		if !ok {
			return
		}
		if goal.StaffID != staffID {
			writeError(w, goals.ErrNotOwner, "", "", reqID)
			return
		}
	}
	api.Success(w, goal, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload goals.Input
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	if !validateInput(w, reqID, payload, true) {
		return
	}
	staffID, ok := h.callerStaffID(w, r, user)
	if !ok {
		return
	}
	goal, err := h.Service.Create(r.Context(), user.TenantID, staffID, payload)
	if err != nil {
		writeError(w, err, "goal_create_failed", "failed to create goal", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "goal.create", "goal", goal.ID, nil, goal)
	api.Created(w, goal, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload goals.Input
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	if !validateInput(w, reqID, payload, false) {
		return
	}
	staffID, ok := h.callerStaffID(w, r, user)
	if !ok {
		return
	}
	goalID := chi.URLParam(r, "goalID")
	before, _ := h.Service.Get(r.Context(), user.TenantID, goalID)
	goal, err := h.Service.Update(r.Context(), user.TenantID, staffID, goalID, payload)
	if err != nil {
		writeError(w, err, "goal_update_failed", "failed to update goal", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "goal.update", "goal", goal.ID, before, goal)
	api.Success(w, goal, reqID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	staffID, ok := h.callerStaffID(w, r, user)
	if !ok {
		return
	}
	goal, err := h.Service.Submit(r.Context(), user.TenantID, staffID, chi.URLParam(r, "goalID"))
	if err != nil {
		writeError(w, err, "goal_submit_failed", "failed to submit goal", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "goal.submit", "goal", goal.ID, nil, map[string]string{"status": goal.Status})
	h.notifyReviewers(r.Context(), user, goal)
	api.Success(w, goal, reqID)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload reviewRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	payload.Action = strings.ToLower(strings.TrimSpace(payload.Action))
	v := shared.NewValidator()
	v.Required("action", payload.Action, "is required")
	v.Enum("action", payload.Action, goals.ReviewActions, "must be approve, return, achieve or miss")
	v.MaxLength("comment", payload.Comment, goals.MaxTextLength)
	if v.Reject(w, reqID) {
		return
	}

	goalID := chi.URLParam(r, "goalID")
	before, _ := h.Service.Get(r.Context(), user.TenantID, goalID)
	goal, err := h.Service.Review(r.Context(), user.TenantID, user.UserID, goalID, payload.Action, payload.Comment)
	if err != nil {
		writeError(w, err, "goal_review_failed", "failed to review goal", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "goal.review."+payload.Action, "goal", goal.ID,
		map[string]string{"status": before.Status}, map[string]string{"status": goal.Status, "comment": goal.ReviewComment})

	if ownerID, err := h.Service.StaffUserID(r.Context(), user.TenantID, goal.StaffID); err == nil && ownerID != "" && ownerID != user.UserID {
		shared.Notify(r.Context(), h.Notify, user.TenantID, ownerID, notifications.TypeGoalReviewed,
			fmt.Sprintf("Goal %s", goal.Status),
			fmt.Sprintf("Your Q%d %d goal %q is now %s.", goal.Quarter, goal.Year, goal.Title, goal.Status))
	}
	api.Success(w, goal, reqID)
}

// handleSummary defaults to the current quarter. Staff callers always get
// their own summary; admins may narrow to one staff member.
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	now := timeNow().UTC()
	v := shared.NewValidator()
	year, err := shared.QueryInt(r, "year", now.Year())
	if err != nil {
		v.Add("year", "must be a number")
	}
	quarter, err := shared.QueryInt(r, "quarter", (int(now.Month())-1)/3+1)
	if err != nil {
		v.Add("quarter", "must be a number")
	}
	v.IntRange("quarter", quarter, 1, 4)
	if v.Reject(w, reqID) {
		return
	}

	staffID := strings.TrimSpace(r.URL.Query().Get("staffId"))
	if user.IsStaff() {
		selfID, ok := h.callerStaffID(w, r, user)
		if !ok {
			return
		}
		staffID = selfID
	}
	summary, err := h.Service.Summary(r.Context(), user.TenantID, staffID, year, quarter)
	if err != nil {
		writeError(w, err, "goal_summary_failed", "failed to summarize goals", reqID)
		return
	}
	api.Success(w, summary, reqID)
}

func (h *Handler) callerStaffID(w http.ResponseWriter, r *http.Request, user auth.UserContext) (string, bool) {
	reqID := middleware.GetRequestID(r.Context())
	if h.Staff == nil {
		api.Fail(w, http.StatusForbidden, "forbidden", "no staff record linked to this user", reqID)
		return "", false
	}
	staffID, err := h.Staff.IDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil || staffID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "no staff record linked to this user", reqID)
		return "", false
	}
	return staffID, true
}

func (h *Handler) notifyReviewers(ctx context.Context, user auth.UserContext, goal goals.Goal) {
	if h.Reviewers == nil {
		return
	}
	admins, err := h.Reviewers.ListUsersByRole(ctx, user.TenantID, auth.RoleAdmin)
	if err != nil {
		slog.Warn("goal reviewer lookup failed", "tenantId", user.TenantID, "err", err)
		return
	}
	who := goal.StaffName
	if who == "" {
		who = "A staff member"
	}
	for _, admin := range admins {
		if admin.ID == user.UserID {
			continue
		}
		shared.Notify(ctx, h.Notify, user.TenantID, admin.ID, notifications.TypeGoalSubmitted,
			"Goal submitted for review",
			fmt.Sprintf("%s submitted the Q%d %d goal %q.", who, goal.Quarter, goal.Year, goal.Title))
	}
}

func validateInput(w http.ResponseWriter, reqID string, in goals.Input, create bool) bool {
	v := shared.NewValidator()
	if create {
		v.IntRange("year", in.Year, 2000, 2100)
		v.IntRange("quarter", in.Quarter, 1, 4)
	}
	v.MaxLength("title", in.Title, goals.MaxTextLength)
	v.MaxLength("description", in.Description, goals.MaxTextLength)
	v.MaxLength("target", in.Target, goals.MaxTextLength)
	v.MaxLength("selfComment", in.SelfComment, goals.MaxTextLength)
	if in.Progress != nil && (*in.Progress < 0 || *in.Progress > 100) {
		v.Add("progress", "must be between 0 and 100")
	}
	return !v.Reject(w, reqID)
}

func writeError(w http.ResponseWriter, err error, code, message, reqID string) {
	switch {
	case errors.Is(err, goals.ErrGoalNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, goals.ErrNotOwner):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case errors.Is(err, goals.ErrGoalLocked), errors.Is(err, goals.ErrInvalidStatus), errors.Is(err, goals.ErrGoalLimit):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), reqID)
	case errors.Is(err, goals.ErrInvalidGoal), errors.Is(err, goals.ErrInvalidAction),
		errors.Is(err, goals.ErrCommentRequired), errors.Is(err, goals.ErrProgressRange),
		errors.Is(err, goals.ErrInvalidQuarter):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_goal", err.Error(), reqID)
	default:
		slog.Error(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}
