package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"staffeval/internal/transport/http/api"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*keyedLimiter)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(kl *keyedLimiter) {
		if fn != nil {
			kl.keyFn = fn
		}
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter holds one token bucket per caller key. A bucket refills at
// limit tokens per window and holds at most limit tokens.
type keyedLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	keyFn     RateLimitKeyFunc
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newKeyedLimiter(limit int, window time.Duration, keyFn RateLimitKeyFunc) *keyedLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	return &keyedLimiter{
		limit:   limit,
		window:  window,
		keyFn:   keyFn,
		entries: map[string]*limiterEntry{},
	}
}

// RateLimit throttles each caller (user when authenticated, otherwise client IP).
func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	kl := newKeyedLimiter(limit, window, actorOrIPKey)
	for _, opt := range opts {
		opt(kl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !kl.allow(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies tighter budgets to credential endpoints
// and to state-changing evaluation and goal actions.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	credentialLimit := max(baseLimit/4, 1)
	actionLimit := max(baseLimit/2, 1)
	byIP := newKeyedLimiter(credentialLimit, window, clientIPKey)
	byEmail := newKeyedLimiter(credentialLimit, window, AuthEmailOrIPKey("email"))
	byActor := newKeyedLimiter(actionLimit, window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch classifySensitive(r) {
			case scopeCredentials:
				if !byIP.allow(w, r) || !byEmail.allow(w, r) {
					return
				}
			case scopeAction:
				if !byActor.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthEmailOrIPKey keys on the named JSON body field, falling back to the
// client IP when the body carries none.
func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	field = strings.TrimSpace(field)
	if field == "" {
		field = "email"
	}
	return func(r *http.Request) string {
		email := peekJSONField(r, field)
		if email == "" {
			return clientIPKey(r)
		}
		return "email:" + strings.ToLower(email)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.TenantID + ":" + user.UserID
	}
	return clientIPKey(r)
}

func (kl *keyedLimiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if kl.limit <= 0 {
		return true
	}
	key := kl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	now := time.Now()

	kl.mu.Lock()
	kl.sweep(now)
	entry, ok := kl.entries[key]
	if !ok {
		every := rate.Every(kl.window / time.Duration(kl.limit))
		entry = &limiterEntry{limiter: rate.NewLimiter(every, kl.limit)}
		kl.entries[key] = entry
	}
	entry.lastSeen = now
	reservation := entry.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
	}
	remaining := int(math.Floor(entry.limiter.TokensAt(now)))
	kl.mu.Unlock()

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(kl.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(delay)))

	if delay <= 0 {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(max(ceilSeconds(delay), 1)))
	slog.Warn("rate limit exceeded",
		"key", key,
		"method", r.Method,
		"path", r.URL.Path,
		"limit", kl.limit,
		"windowSec", int(kl.window.Seconds()),
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

// sweep drops buckets idle for longer than a full window. Caller holds mu.
func (kl *keyedLimiter) sweep(now time.Time) {
	if now.Sub(kl.lastSweep) < kl.window {
		return
	}
	kl.lastSweep = now
	for key, entry := range kl.entries {
		if now.Sub(entry.lastSeen) > kl.window {
			delete(kl.entries, key)
		}
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// peekJSONField reads a string field from a JSON body and restores the body
// for the downstream handler.
func peekJSONField(r *http.Request, field string) string {
	if r == nil || r.Body == nil {
		return ""
	}
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var payload map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

type sensitiveScope int

const (
	scopeNone sensitiveScope = iota
	scopeCredentials
	scopeAction
)

var credentialPaths = map[string]bool{
	"/auth/login":         true,
	"/auth/request-reset": true,
	"/auth/reset":         true,
	"/auth/mfa/setup":     true,
	"/auth/mfa/enable":    true,
	"/auth/mfa/disable":   true,
}

var actionSuffixes = map[string][]string{
	"/evaluations/": {"/submit", "/reopen", "/recompute"},
	"/goals/":       {"/review"},
}

func classifySensitive(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return scopeNone
	}

	path := "/" + strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/v1"), "/")
	if credentialPaths[path] {
		return scopeCredentials
	}
	if path == "/evaluations/reminders/run" || path == "/admin/tenants" {
		return scopeAction
	}
	for prefix, suffixes := range actionSuffixes {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(path, suffix) {
				return scopeAction
			}
		}
	}
	return scopeNone
}
