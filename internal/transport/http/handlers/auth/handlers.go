package authhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/notifications"
	"staffeval/internal/transport/http/api"
	"staffeval/internal/transport/http/middleware"
	"staffeval/internal/transport/http/shared"
)

const defaultBaseURL = "http://localhost:8080"

type Service interface {
	Login(ctx context.Context, email, password, mfaCode string) (auth.Session, error)
	Logout(ctx context.Context, user auth.UserContext) error
	Refresh(ctx context.Context, token string) (string, error)
	SetupMFA(ctx context.Context, userID, accountName string) (secret, url string, err error)
	SetMFA(ctx context.Context, userID, code string, enabled bool) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type Handler struct {
	Service   Service
	Audit     shared.Auditor
	Mailer    notifications.Mailer
	BaseURL   string
	EmailFrom string
}

func NewHandler(service Service, auditor shared.Auditor, mailer notifications.Mailer, baseURL, emailFrom string) *Handler {
	return &Handler{Service: service, Audit: auditor, Mailer: mailer, BaseURL: baseURL, EmailFrom: emailFrom}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/refresh", h.HandleRefresh)
		r.Post("/request-reset", h.HandleRequestReset)
		r.Post("/reset", h.HandleResetPassword)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", h.HandleLogout)
			r.Post("/mfa/setup", h.HandleMFASetup)
			r.Post("/mfa/enable", h.HandleMFAEnable)
			r.Post("/mfa/disable", h.HandleMFADisable)
		})
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, reqID) {
		return
	}

	session, err := h.Service.Login(r.Context(), strings.TrimSpace(payload.Email), payload.Password, strings.TrimSpace(payload.MFACode))
	switch {
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", reqID)
		return
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", reqID)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	case err != nil:
		slog.Error("login failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, auth.UserContext{UserID: session.UserID, TenantID: session.TenantID}, "auth.login", "user", session.UserID, nil, nil)
	api.Success(w, session, reqID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	if err := h.Service.Logout(r.Context(), user); err != nil {
		slog.Warn("logout session revoke failed", "userId", user.UserID, "err", err)
	}
	shared.RecordAudit(r, h.Audit, user, "auth.logout", "user", user.UserID, nil, nil)
	api.Success(w, map[string]string{"status": "logged_out"}, reqID)
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	rotated, err := h.Service.Refresh(r.Context(), strings.TrimSpace(token))
	if errors.Is(err, auth.ErrSessionExpired) {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "session expired", reqID)
		return
	}
	if err != nil {
		slog.Error("session refresh failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to rotate session", reqID)
		return
	}
	api.Success(w, map[string]any{"token": rotated}, reqID)
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	secret, otpURL, err := h.Service.SetupMFA(r.Context(), user.UserID, user.UserID)
	if errors.Is(err, auth.ErrMFAUnavailable) {
		api.Fail(w, http.StatusServiceUnavailable, "mfa_unavailable", "mfa is not configured on this server", reqID)
		return
	}
	if err != nil {
		slog.Error("mfa setup failed", "userId", user.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "mfa_setup_failed", "failed to set up mfa", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, user, "auth.mfa.setup", "user", user.UserID, nil, nil)
	api.Success(w, map[string]string{"secret": secret, "url": otpURL}, reqID)
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, enabled bool) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload mfaCodeRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("code", payload.Code, "is required")
	if v.Reject(w, reqID) {
		return
	}

	err := h.Service.SetMFA(r.Context(), user.UserID, strings.TrimSpace(payload.Code), enabled)
	switch {
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusServiceUnavailable, "mfa_unavailable", "mfa is not configured on this server", reqID)
		return
	case errors.Is(err, auth.ErrMFANotSetup):
		api.Fail(w, http.StatusBadRequest, "mfa_not_setup", "mfa setup required", reqID)
		return
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", reqID)
		return
	case err != nil:
		slog.Error("mfa toggle failed", "userId", user.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "mfa_update_failed", "failed to update mfa", reqID)
		return
	}

	action, status := "auth.mfa.disable", "disabled"
	if enabled {
		action, status = "auth.mfa.enable", "enabled"
	}
	shared.RecordAudit(r, h.Audit, user, action, "user", user.UserID, nil, nil)
	api.Success(w, map[string]string{"status": status}, reqID)
}

// HandleRequestReset always answers the same way so callers cannot probe
// which emails exist.
func (h *Handler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload resetRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	email := strings.TrimSpace(payload.Email)
	if email != "" {
		token, err := h.Service.RequestPasswordReset(r.Context(), email)
		if err != nil {
			slog.Warn("password reset request failed", "err", err)
		}
		if token != "" && h.Mailer != nil {
			link := buildResetLink(h.BaseURL, token)
			if err := h.Mailer.Send(r.Context(), h.EmailFrom, email, "Password reset", buildResetEmailMessage(link, auth.PasswordResetTTL)); err != nil {
				slog.Warn("password reset email failed", "err", err)
			}
		}
	}
	api.Success(w, map[string]string{"status": "reset_requested"}, reqID)
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload resetPasswordRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("token", payload.Token, "is required")
	if err := validateResetPassword(payload.NewPassword); err != nil {
		v.Add("newPassword", err.Error())
	}
	if v.Reject(w, reqID) {
		return
	}

	err := h.Service.ResetPassword(r.Context(), strings.TrimSpace(payload.Token), payload.NewPassword)
	if errors.Is(err, auth.ErrInvalidResetToken) {
		api.Fail(w, http.StatusBadRequest, "invalid_token", "invalid or expired token", reqID)
		return
	}
	if err != nil {
		slog.Error("password reset failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "update_failed", "failed to update password", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "password_reset"}, reqID)
}

func validateResetPassword(password string) error {
	return auth.ValidatePassword(password)
}

func buildResetLink(baseURL, token string) string {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		base, _ = url.Parse(defaultBaseURL)
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/reset"
	query := url.Values{}
	query.Set("token", token)
	base.RawQuery = query.Encode()
	return base.String()
}

func buildResetEmailMessage(link string, ttl time.Duration) string {
	hours := int(ttl.Hours())
	if hours < 1 {
		hours = 1
	}
	return fmt.Sprintf("A password reset was requested for your account.\n\nUse this link to choose a new password: %s\n\nThe link expires in %d hour(s). If you did not request a reset, ignore this message.", link, hours)
}
