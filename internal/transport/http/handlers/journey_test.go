package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"staffeval/internal/app/server"
	"staffeval/internal/domain/dashboard"
	"staffeval/internal/domain/evaluation"
	"staffeval/internal/domain/goals"
	"staffeval/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return config.Config{
		Addr:               ":0",
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		FrontendDir:        "frontend/dist",
		MigrationsDir:      "../../../../migrations",
		Environment:        "test",
		SeedTenantName:     "Journey Tenant",
		SeedAdminEmail:     "admin@journey.local",
		SeedAdminPassword:  "ChangeMe12345",
		DefaultCurrency:    "USD",
		EmailFrom:          "no-reply@journey.local",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
	}
}

func startApp(t *testing.T) (*server.App, *httptest.Server) {
	t.Helper()
	cfg := testConfig(t)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)
	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts
}

func TestEvaluationJourney(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	adminToken := login(t, client, ts.URL, app.Config.SeedAdminEmail, app.Config.SeedAdminPassword)

	call(t, client, http.MethodPut, ts.URL+"/api/v1/settings", adminToken, map[string]any{
		"requiredEvaluators": 1,
		"fiscalStartMonth":   4,
		"currency":           "USD",
	}, http.StatusOK, nil)

	suffix := time.Now().UnixNano()
	staffEmail := fmt.Sprintf("journey-%d@example.com", suffix)
	var member struct {
		ID string `json:"id"`
	}
	call(t, client, http.MethodPost, ts.URL+"/api/v1/staff", adminToken, map[string]any{
		"employeeNumber": fmt.Sprintf("J-%d", suffix),
		"firstName":      "Mira",
		"lastName":       "Santos",
		"email":          staffEmail,
		"department":     "Support",
		"login":          map[string]string{"password": "StaffPass12345", "role": "Staff"},
	}, http.StatusCreated, &member)

	var criteria []evaluation.Criterion
	call(t, client, http.MethodGet, ts.URL+"/api/v1/settings/criteria", adminToken, nil, http.StatusOK, &criteria)
	scores := make([]map[string]any, 0, len(criteria))
	for _, c := range criteria {
		if c.Active {
			scores = append(scores, map[string]any{"criterionId": c.ID, "value": c.MaxScore})
		}
	}

	period := evaluation.PeriodOf(time.Now().UTC().AddDate(0, -1, 0))
	var draft evaluation.Evaluation
	call(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations", adminToken, map[string]any{
		"staffId": member.ID,
		"period":  period.String(),
		"scores":  scores,
		"comment": "Excellent month.",
	}, http.StatusOK, &draft)

	var outcome evaluation.SubmitOutcome
	call(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations/"+draft.ID+"/submit", adminToken, nil, http.StatusOK, &outcome)
	if outcome.Result.Status != evaluation.ResultStatusFinalized {
		t.Fatalf("expected finalized result, got %+v", outcome.Result)
	}
	if outcome.Result.Rank != "S" || outcome.Result.Total != 100 {
		t.Fatalf("expected rank S at 100, got %s at %.2f", outcome.Result.Rank, outcome.Result.Total)
	}
	call(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations/"+draft.ID+"/submit", adminToken, nil, http.StatusConflict, nil)

	var monthly dashboard.Monthly
	call(t, client, http.MethodGet, ts.URL+"/api/v1/dashboard/monthly?period="+period.String(), adminToken, nil, http.StatusOK, &monthly)
	if monthly.Summary.Evaluated == 0 {
		t.Fatal("expected at least one evaluated staff member")
	}

	staffToken := login(t, client, ts.URL, staffEmail, "StaffPass12345")
	var mine evaluation.Result
	call(t, client, http.MethodGet, ts.URL+"/api/v1/evaluations/results/"+member.ID+"/"+period.String(), staffToken, nil, http.StatusOK, &mine)
	if mine.Rank != "S" {
		t.Fatalf("expected staff to read own rank, got %+v", mine)
	}
	call(t, client, http.MethodGet, ts.URL+"/api/v1/dashboard/monthly", staffToken, nil, http.StatusForbidden, nil)

	var inbox struct {
		Unread int `json:"unread"`
	}
	call(t, client, http.MethodGet, ts.URL+"/api/v1/notifications", staffToken, nil, http.StatusOK, &inbox)
	if inbox.Unread == 0 {
		t.Fatal("expected a result notification for the staff member")
	}

	now := time.Now().UTC()
	var goal goals.Goal
	call(t, client, http.MethodPost, ts.URL+"/api/v1/goals", staffToken, map[string]any{
		"year":    now.Year(),
		"quarter": (int(now.Month())-1)/3 + 1,
		"title":   "Cut first response time",
		"target":  "under 2 hours",
	}, http.StatusCreated, &goal)
	call(t, client, http.MethodPost, ts.URL+"/api/v1/goals/"+goal.ID+"/submit", staffToken, nil, http.StatusOK, &goal)
	call(t, client, http.MethodPost, ts.URL+"/api/v1/goals/"+goal.ID+"/review", adminToken, map[string]string{"action": "approve"}, http.StatusOK, &goal)
	if goal.Status != goals.StatusApproved {
		t.Fatalf("expected approved goal, got %s", goal.Status)
	}

	var personal dashboard.Personal
	call(t, client, http.MethodGet, ts.URL+"/api/v1/dashboard/me", staffToken, nil, http.StatusOK, &personal)
	if len(personal.Goals) == 0 {
		t.Fatal("expected current quarter goals on the personal dashboard")
	}
}

func TestStaffCannotWriteEvaluations(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	adminToken := login(t, client, ts.URL, app.Config.SeedAdminEmail, app.Config.SeedAdminPassword)

	email := fmt.Sprintf("readonly-%d@example.com", time.Now().UnixNano())
	call(t, client, http.MethodPost, ts.URL+"/api/v1/staff", adminToken, map[string]any{
		"firstName": "Ola",
		"lastName":  "Berg",
		"email":     email,
		"login":     map[string]string{"password": "StaffPass12345"},
	}, http.StatusCreated, nil)
	staffToken := login(t, client, ts.URL, email, "StaffPass12345")

	call(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations", staffToken, map[string]any{
		"staffId": "00000000-0000-0000-0000-000000000000",
		"period":  "2024-01",
		"scores":  []any{},
	}, http.StatusForbidden, nil)
	call(t, client, http.MethodGet, ts.URL+"/api/v1/audit/events", staffToken, nil, http.StatusForbidden, nil)

	call(t, client, http.MethodPost, ts.URL+"/api/v1/auth/logout", staffToken, nil, http.StatusOK, nil)
	call(t, client, http.MethodGet, ts.URL+"/api/v1/dashboard/me", staffToken, nil, http.StatusUnauthorized, nil)
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	var session struct {
		Token string `json:"token"`
	}
	call(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]string{"email": email, "password": password}, http.StatusOK, &session)
	if session.Token == "" {
		t.Fatal("expected token")
	}
	return session.Token
}

func call(t *testing.T, client *http.Client, method, url, token string, body any, wantStatus int, out any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, wantStatus, resp.StatusCode, raw)
	}
	if out == nil {
		return
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}
