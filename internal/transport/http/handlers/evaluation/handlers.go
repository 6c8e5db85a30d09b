package evaluationhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/evaluation"
	"staffeval/internal/domain/notifications"
	"staffeval/internal/platform/jobs"
	"staffeval/internal/transport/http/api"
	"staffeval/internal/transport/http/middleware"
	"staffeval/internal/transport/http/shared"
)

var timeNow = time.Now

type Service interface {
	SaveDraft(ctx context.Context, tenantID, evaluatorID string, in evaluation.DraftInput) (evaluation.Evaluation, error)
	Submit(ctx context.Context, tenantID, evaluatorID, evaluationID string) (evaluation.SubmitOutcome, error)
	Reopen(ctx context.Context, tenantID, evaluationID string) (evaluation.SubmitOutcome, error)
	Recompute(ctx context.Context, tenantID, staffID string, period evaluation.Period) (evaluation.Result, error)
	GetResult(ctx context.Context, tenantID, staffID string, period evaluation.Period) (evaluation.Result, error)
	ListEvaluations(ctx context.Context, tenantID string, filter evaluation.Filter) ([]evaluation.Evaluation, error)
	GetEvaluation(ctx context.Context, tenantID, evaluationID string) (evaluation.Evaluation, error)
	ListPending(ctx context.Context, tenantID, evaluatorID string, period evaluation.Period) ([]evaluation.PendingStaff, error)
	StaffRef(ctx context.Context, tenantID, staffID string) (evaluation.StaffRef, error)
	ResultReport(ctx context.Context, tenantID, staffID string, period evaluation.Period) ([]byte, error)
}

type Reminders interface {
	RunReminders(ctx context.Context, tenantID string) (jobs.ReminderReport, error)
}

type Metrics interface {
	EvaluationSubmitted()
	ResultFinalized(rank string)
}

type Handler struct {
	Service     Service
	Staff       shared.StaffResolver
	Perms       middleware.PermissionStore
	Notify      shared.Notifier
	Audit       shared.Auditor
	Reminders   Reminders
	Metrics     Metrics
	Idempotency middleware.IdempotencyKeys
}

func NewHandler(service Service, staff shared.StaffResolver, perms middleware.PermissionStore, notify shared.Notifier, auditor shared.Auditor) *Handler {
	return &Handler{Service: service, Staff: staff, Perms: perms, Notify: notify, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/evaluations", func(r chi.Router) {
		read := middleware.RequirePermission(auth.PermEvaluationRead, h.Perms)
		submit := middleware.RequirePermission(auth.PermEvaluationSubmit, h.Perms)
		configure := middleware.RequirePermission(auth.PermEvaluationConfigure, h.Perms)

		r.With(read).Get("/", h.handleList)
		r.With(submit).Put("/", h.handleSaveDraft)
		r.With(submit).Get("/pending", h.handlePending)
		r.With(submit, middleware.Idempotency(h.Idempotency)).Post("/{evaluationID}/submit", h.handleSubmit)
		r.With(configure).Post("/{evaluationID}/reopen", h.handleReopen)
		r.With(read).Get("/results/{staffID}/{period}", h.handleGetResult)
		r.With(configure).Post("/results/{staffID}/{period}/recompute", h.handleRecompute)
		r.With(read).Get("/results/{staffID}/{period}/report.pdf", h.handleReport)
		r.With(configure).Post("/reminders/run", h.handleRunReminders)
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
	filter := evaluation.Filter{
		StaffID:     strings.TrimSpace(query.Get("staffId")),
		EvaluatorID: strings.TrimSpace(query.Get("evaluatorId")),
		Status:      strings.TrimSpace(query.Get("status")),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, []string{evaluation.StatusDraft, evaluation.StatusSubmitted}, "must be draft or submitted")
	if raw := strings.TrimSpace(query.Get("period")); raw != "" {
		if period, ok := v.Period("period", raw); ok {
			filter.Period = &period
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	if user.IsStaff() {
		staffID, ok := h.selfStaffID(w, r, user)
		if !ok {
			return
		}
		filter.StaffID = staffID
		filter.Status = evaluation.StatusSubmitted
	}

	items, err := h.Service.ListEvaluations(r.Context(), user.TenantID, filter)
	if err != nil {
		writeError(w, err, "evaluation_list_failed", "failed to list evaluations", reqID)
		return
	}
	if items == nil {
		items = []evaluation.Evaluation{}
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload evaluation.DraftInput
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("staffId", payload.StaffID, "is required")
	if payload.Period.IsZero() {
		v.Add("period", "must be a month in YYYY-MM format")
	}
	v.MaxLength("comment", payload.Comment, evaluation.MaxCommentLength)
	if v.Reject(w, reqID) {
		return
	}

	saved, err := h.Service.SaveDraft(r.Context(), user.TenantID, user.UserID, payload)
	if err != nil {
		writeError(w, err, "evaluation_save_failed", "failed to save evaluation", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "evaluation.draft.save", "evaluation", saved.ID, nil, payload)
	api.Success(w, saved, reqID)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	period, err := shared.QueryPeriod(r, "period", evaluation.PeriodOf(timeNow().UTC()))
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "period", Reason: "must be a month in YYYY-MM format"}})
		return
	}
	pending, err := h.Service.ListPending(r.Context(), user.TenantID, user.UserID, period)
	if err != nil {
		writeError(w, err, "evaluation_pending_failed", "failed to list pending evaluations", reqID)
		return
	}
	api.Success(w, map[string]any{"period": period, "staff": pending}, reqID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	evaluationID := chi.URLParam(r, "evaluationID")
	outcome, err := h.Service.Submit(r.Context(), user.TenantID, user.UserID, evaluationID)
	if err != nil {
		writeError(w, err, "evaluation_submit_failed", "failed to submit evaluation", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "evaluation.submit", "evaluation", evaluationID,
		map[string]string{"status": evaluation.StatusDraft}, outcome.Evaluation.Breakdown)
	if h.Metrics != nil {
		h.Metrics.EvaluationSubmitted()
	}
	h.announce(r.Context(), user.TenantID, outcome)
	api.Success(w, outcome, reqID)
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	evaluationID := chi.URLParam(r, "evaluationID")
	outcome, err := h.Service.Reopen(r.Context(), user.TenantID, evaluationID)
	if err != nil {
		writeError(w, err, "evaluation_reopen_failed", "failed to reopen evaluation", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "evaluation.reopen", "evaluation", evaluationID,
		map[string]string{"status": evaluation.StatusSubmitted}, map[string]string{"status": outcome.Evaluation.Status, "result": outcome.Result.Status})
	if outcome.Evaluation.EvaluatorID != user.UserID {
		shared.Notify(r.Context(), h.Notify, user.TenantID, outcome.Evaluation.EvaluatorID, notifications.TypeEvaluationReopened,
			"Evaluation reopened",
			fmt.Sprintf("Your %s evaluation of %s was returned to draft.", outcome.Evaluation.Period, displayName(outcome.Evaluation)))
	}
	api.Success(w, outcome, reqID)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, staffID, period, ok := h.resultTarget(w, r)
	if !ok {
		return
	}
	result, err := h.Service.GetResult(r.Context(), user.TenantID, staffID, period)
	if err != nil {
		writeError(w, err, "result_load_failed", "failed to load result", reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, staffID, period, ok := h.resultTarget(w, r)
	if !ok {
		return
	}
	before, err := h.Service.GetResult(r.Context(), user.TenantID, staffID, period)
	if err != nil && !errors.Is(err, evaluation.ErrResultNotFound) {
		slog.Warn("recompute before-image failed", "err", err)
	}
	result, err := h.Service.Recompute(r.Context(), user.TenantID, staffID, period)
	if err != nil {
		writeError(w, err, "result_recompute_failed", "failed to recompute result", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "evaluation.result.recompute", "staff", staffID, before, result)
	if result.Status == evaluation.ResultStatusFinalized && h.Metrics != nil && before.Status != evaluation.ResultStatusFinalized {
		h.Metrics.ResultFinalized(result.Rank)
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, staffID, period, ok := h.resultTarget(w, r)
	if !ok {
		return
	}
	pdf, err := h.Service.ResultReport(r.Context(), user.TenantID, staffID, period)
	if err != nil {
		writeError(w, err, "report_failed", "failed to render report", reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "evaluation-"+period.String()+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		slog.Warn("report write failed", "err", err)
	}
}

func (h *Handler) handleRunReminders(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	if h.Reminders == nil {
		api.Fail(w, http.StatusServiceUnavailable, "jobs_unavailable", "background jobs are not running", reqID)
		return
	}
	report, err := h.Reminders.RunReminders(r.Context(), user.TenantID)
	if err != nil {
		slog.Error("reminder run failed", "tenantId", user.TenantID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "reminder_run_failed", "failed to send reminders", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "evaluation.reminders.run", "job", jobs.JobEvaluationReminder, nil, report)
	api.Success(w, report, reqID)
}

// resultTarget parses the staff id and period from the URL. Staff callers may
// only address their own record.
func (h *Handler) resultTarget(w http.ResponseWriter, r *http.Request) (auth.UserContext, string, evaluation.Period, bool) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return user, "", evaluation.Period{}, false
	}
	staffID := chi.URLParam(r, "staffID")
	v := shared.NewValidator()
	period, _ := v.Period("period", chi.URLParam(r, "period"))
	if v.Reject(w, reqID) {
		return user, "", evaluation.Period{}, false
	}
	if user.IsStaff() {
		selfID, ok := h.selfStaffID(w, r, user)
		if !ok {
			return user, "", evaluation.Period{}, false
		}
		if selfID != staffID {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
			return user, "", evaluation.Period{}, false
		}
	}
	return user, staffID, period, true
}

func (h *Handler) selfStaffID(w http.ResponseWriter, r *http.Request, user auth.UserContext) (string, bool) {
	if h.Staff == nil {
		api.Fail(w, http.StatusForbidden, "forbidden", "no staff record linked to this user", middleware.GetRequestID(r.Context()))
		return "", false
	}
	staffID, err := h.Staff.IDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil || staffID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "no staff record linked to this user", middleware.GetRequestID(r.Context()))
		return "", false
	}
	return staffID, true
}

// announce tells the evaluated staff member about a finalized result, or
// that another evaluation arrived while the result is still pending.
func (h *Handler) announce(ctx context.Context, tenantID string, outcome evaluation.SubmitOutcome) {
	ref, err := h.Service.StaffRef(ctx, tenantID, outcome.Evaluation.StaffID)
	if err != nil {
		slog.Warn("submit staff lookup failed", "staffId", outcome.Evaluation.StaffID, "err", err)
		return
	}
	period := outcome.Evaluation.Period
	if outcome.Result.Status == evaluation.ResultStatusFinalized {
		if h.Metrics != nil && outcome.FirstFinalized {
			h.Metrics.ResultFinalized(outcome.Result.Rank)
		}
		shared.Notify(ctx, h.Notify, tenantID, ref.UserID, notifications.TypeResultFinalized,
			fmt.Sprintf("Your %s evaluation is final", period),
			fmt.Sprintf("Your evaluation for %s was finalized with a total of %.2f and rank %s.", period, outcome.Result.Total, outcome.Result.Rank))
		return
	}
	shared.Notify(ctx, h.Notify, tenantID, ref.UserID, notifications.TypeEvaluationSubmitted,
		fmt.Sprintf("Evaluation received for %s", period),
		fmt.Sprintf("%d of %d evaluations for %s have been submitted.", outcome.Result.EvaluatorCount, outcome.Result.Required, period))
}

func displayName(e evaluation.Evaluation) string {
	if e.StaffName != "" {
		return e.StaffName
	}
	return "a staff member"
}

func writeError(w http.ResponseWriter, err error, code, message, reqID string) {
	switch {
	case errors.Is(err, evaluation.ErrEvaluationNotFound),
		errors.Is(err, evaluation.ErrResultNotFound),
		errors.Is(err, evaluation.ErrStaffNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, evaluation.ErrNotEvaluator), errors.Is(err, evaluation.ErrSelfEvaluation):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case errors.Is(err, evaluation.ErrAlreadySubmitted), errors.Is(err, evaluation.ErrNotSubmitted):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), reqID)
	case errors.Is(err, evaluation.ErrIncomplete),
		errors.Is(err, evaluation.ErrScoreOutOfRange),
		errors.Is(err, evaluation.ErrUnknownCriterion),
		errors.Is(err, evaluation.ErrDuplicateScore),
		errors.Is(err, evaluation.ErrInvalidPeriod),
		errors.Is(err, evaluation.ErrFuturePeriod),
		errors.Is(err, evaluation.ErrCommentTooLong),
		errors.Is(err, evaluation.ErrStaffInactive):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_evaluation", err.Error(), reqID)
	default:
		slog.Error(code, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}
