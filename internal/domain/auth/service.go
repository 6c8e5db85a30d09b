package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	SessionTTL       = 8 * time.Hour
	PasswordResetTTL = 2 * time.Hour
	mfaIssuer        = "StaffEval"
)

// SecretBox encrypts MFA secrets at rest.
type SecretBox interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}

type Service struct {
	store  StoreAPI
	secret string
	box    SecretBox
	now    func() time.Time
}

func NewService(store StoreAPI, secret string, box SecretBox) *Service {
	return &Service{store: store, secret: secret, box: box, now: time.Now}
}

type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
	RoleID   string `json:"roleId"`
	Role     string `json:"role"`
}

func (s *Service) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	return s.store.HasPermission(ctx, roleID, permission)
}

func (s *Service) ListUsersByRole(ctx context.Context, tenantID, roleName string) ([]UserRef, error) {
	return s.store.ListUsersByRole(ctx, tenantID, roleName)
}

func (s *Service) Login(ctx context.Context, email, password, mfaCode string) (Session, error) {
	user, err := s.store.FindActiveUserByEmail(ctx, email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if mfaCode == "" {
			return Session{}, ErrMFARequired
		}
		secret, err := s.openSecret(user.MFASecretEn)
		if err != nil || secret == "" || !totp.Validate(mfaCode, secret) {
			return Session{}, ErrMFAInvalid
		}
	}

	sessionID, err := NewOpaqueToken()
	if err != nil {
		return Session{}, fmt.Errorf("session id: %w", err)
	}
	if err := s.store.CreateSession(ctx, user.ID, HashToken(sessionID), s.now().Add(SessionTTL)); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	token, err := GenerateToken(s.secret, Claims{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		RoleID:    user.RoleID,
		RoleName:  user.RoleName,
		SessionID: sessionID,
	}, SessionTTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}
	return Session{Token: token, UserID: user.ID, TenantID: user.TenantID, RoleID: user.RoleID, Role: user.RoleName}, nil
}

func (s *Service) Logout(ctx context.Context, user UserContext) error {
	if user.SessionID == "" {
		return nil
	}
	return s.store.RevokeSession(ctx, user.UserID, HashToken(user.SessionID))
}

// Refresh rotates the session behind a still-valid token and issues a new one.
func (s *Service) Refresh(ctx context.Context, tokenString string) (string, error) {
	claims, err := ParseToken(s.secret, tokenString)
	if err != nil {
		return "", ErrSessionExpired
	}
	valid, err := s.store.SessionValid(ctx, claims.UserID, HashToken(claims.SessionID))
	if err != nil || !valid {
		return "", ErrSessionExpired
	}

	newSessionID, err := NewOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	if err := s.store.RotateSession(ctx, claims.UserID, HashToken(claims.SessionID), HashToken(newSessionID), s.now().Add(SessionTTL)); err != nil {
		return "", fmt.Errorf("rotate session: %w", err)
	}
	return GenerateToken(s.secret, Claims{
		UserID:    claims.UserID,
		TenantID:  claims.TenantID,
		RoleID:    claims.RoleID,
		RoleName:  claims.RoleName,
		SessionID: newSessionID,
	}, SessionTTL)
}

// SessionActive reports whether the session behind claims has not been
// revoked or expired.
func (s *Service) SessionActive(ctx context.Context, claims *Claims) bool {
	if claims == nil || claims.SessionID == "" {
		return false
	}
	valid, err := s.store.SessionValid(ctx, claims.UserID, HashToken(claims.SessionID))
	if err != nil {
		slog.Warn("session lookup failed", "userId", claims.UserID, "err", err)
		return false
	}
	return valid
}

func (s *Service) SetupMFA(ctx context.Context, userID, accountName string) (secret, url string, err error) {
	if s.box == nil || !s.box.Configured() {
		return "", "", ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp: %w", err)
	}
	encrypted, err := s.box.EncryptString(key.Secret())
	if err != nil {
		return "", "", fmt.Errorf("encrypt totp secret: %w", err)
	}
	if err := s.store.UpdateMFASecret(ctx, userID, encrypted); err != nil {
		return "", "", fmt.Errorf("store totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

func (s *Service) SetMFA(ctx context.Context, userID, code string, enabled bool) error {
	if s.box == nil || !s.box.Configured() {
		return ErrMFAUnavailable
	}
	secretEnc, err := s.store.GetMFASecret(ctx, userID)
	if err != nil || len(secretEnc) == 0 {
		return ErrMFANotSetup
	}
	secret, err := s.openSecret(secretEnc)
	if err != nil || !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return s.store.SetMFAEnabled(ctx, userID, enabled)
}

// RequestPasswordReset returns the plain reset token, or "" when the email is
// unknown. Callers must not reveal which case occurred.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	userID, err := s.store.UserIDByEmail(ctx, email)
	if err != nil {
		return "", nil
	}
	token, err := NewOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("reset token: %w", err)
	}
	if err := s.store.CreatePasswordReset(ctx, userID, HashToken(token), s.now().Add(PasswordResetTTL)); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hashed := HashToken(token)
	userID, err := s.store.PasswordResetUserID(ctx, hashed)
	if err != nil {
		return ErrInvalidResetToken
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.store.MarkPasswordResetUsed(ctx, hashed); err != nil {
		slog.Warn("password reset mark used failed", "err", err)
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 10 {
		return ErrWeakPassword
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}

func (s *Service) openSecret(secretEnc []byte) (string, error) {
	if s.box != nil && s.box.Configured() {
		return s.box.DecryptString(secretEnc)
	}
	return string(secretEnc), nil
}
