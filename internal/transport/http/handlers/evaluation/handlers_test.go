package evaluationhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/evaluation"
	"staffeval/internal/domain/notifications"
	"staffeval/internal/platform/jobs"
	"staffeval/internal/transport/http/middleware"
)

type allowAll struct{}

func (allowAll) HasPermission(context.Context, string, string) (bool, error) { return true, nil }

type staffLookup map[string]string

func (s staffLookup) IDByUserID(_ context.Context, _, userID string) (string, error) {
	return s[userID], nil
}

type notice struct {
	userID, ntype string
}

type recordingNotifier struct {
	sent []notice
}

func (n *recordingNotifier) Create(_ context.Context, _, userID, ntype, _, _ string) error {
	n.sent = append(n.sent, notice{userID: userID, ntype: ntype})
	return nil
}

type countingMetrics struct {
	submitted int
	ranks     []string
}

func (m *countingMetrics) EvaluationSubmitted()        { m.submitted++ }
func (m *countingMetrics) ResultFinalized(rank string) { m.ranks = append(m.ranks, rank) }

type stubService struct {
	outcome    evaluation.SubmitOutcome
	submitErr  error
	lastFilter evaluation.Filter
	draft      evaluation.DraftInput
}

func (s *stubService) SaveDraft(_ context.Context, _, evaluatorID string, in evaluation.DraftInput) (evaluation.Evaluation, error) {
	s.draft = in
	return evaluation.Evaluation{ID: "e1", StaffID: in.StaffID, EvaluatorID: evaluatorID, Period: in.Period, Status: evaluation.StatusDraft}, nil
}

func (s *stubService) Submit(context.Context, string, string, string) (evaluation.SubmitOutcome, error) {
	return s.outcome, s.submitErr
}

func (s *stubService) Reopen(context.Context, string, string) (evaluation.SubmitOutcome, error) {
	out := s.outcome
	out.Evaluation.Status = evaluation.StatusDraft
	out.Result.Status = evaluation.ResultStatusPending
	return out, nil
}

func (s *stubService) Recompute(_ context.Context, _, staffID string, period evaluation.Period) (evaluation.Result, error) {
	return evaluation.Result{StaffID: staffID, Period: period, Status: evaluation.ResultStatusFinalized, Rank: "A"}, nil
}

func (s *stubService) GetResult(_ context.Context, _, staffID string, period evaluation.Period) (evaluation.Result, error) {
	if staffID == "missing" {
		return evaluation.Result{}, evaluation.ErrResultNotFound
	}
	return evaluation.Result{StaffID: staffID, Period: period, Status: evaluation.ResultStatusFinalized, Total: 84.5, Rank: "A"}, nil
}

func (s *stubService) ListEvaluations(_ context.Context, _ string, filter evaluation.Filter) ([]evaluation.Evaluation, error) {
	s.lastFilter = filter
	return nil, nil
}

func (s *stubService) GetEvaluation(context.Context, string, string) (evaluation.Evaluation, error) {
	return s.outcome.Evaluation, nil
}

func (s *stubService) ListPending(context.Context, string, string, evaluation.Period) ([]evaluation.PendingStaff, error) {
	return []evaluation.PendingStaff{{StaffID: "s2", StaffName: "Ben Okafor", Status: "not_started"}}, nil
}

func (s *stubService) StaffRef(_ context.Context, _, staffID string) (evaluation.StaffRef, error) {
	return evaluation.StaffRef{ID: staffID, UserID: "u-" + staffID, Status: "active"}, nil
}

func (s *stubService) ResultReport(context.Context, string, string, evaluation.Period) ([]byte, error) {
	return []byte("%PDF-1.3 stub"), nil
}

type stubReminders struct{}

func (stubReminders) RunReminders(context.Context, string) (jobs.ReminderReport, error) {
	return jobs.ReminderReport{Period: evaluation.Period{Year: 2025, Month: time.March}, Notified: 2, Evaluators: []string{"a1", "a2"}}, nil
}

type fixture struct {
	svc     *stubService
	notify  *recordingNotifier
	metrics *countingMetrics
}

func newRouter(f *fixture, user auth.UserContext) http.Handler {
	h := NewHandler(f.svc, staffLookup{"u-staff": "s1"}, allowAll{}, f.notify, nil)
	h.Metrics = f.metrics
	h.Reminders = stubReminders{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	h.RegisterRoutes(r)
	return r
}

func newFixture() *fixture {
	period := evaluation.Period{Year: 2025, Month: time.February}
	return &fixture{
		svc: &stubService{outcome: evaluation.SubmitOutcome{
			Evaluation: evaluation.Evaluation{ID: "e1", StaffID: "s1", EvaluatorID: "admin-1", Period: period, Status: evaluation.StatusSubmitted},
			Result:     evaluation.Result{StaffID: "s1", Period: period, Status: evaluation.ResultStatusPending, EvaluatorCount: 1, Required: 2},
		}},
		notify:  &recordingNotifier{},
		metrics: &countingMetrics{},
	}
}

var adminUser = auth.UserContext{UserID: "admin-1", TenantID: "t1", RoleName: auth.RoleAdmin}

func do(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmitPendingNotifiesStaff(t *testing.T) {
	f := newFixture()
	rec := do(newRouter(f, adminUser), http.MethodPost, "/evaluations/e1/submit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := []notice{{userID: "u-s1", ntype: notifications.TypeEvaluationSubmitted}}
	if diff := cmp.Diff(want, f.notify.sent, cmp.AllowUnexported(notice{})); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
	if f.metrics.submitted != 1 || len(f.metrics.ranks) != 0 {
		t.Fatalf("unexpected metrics %+v", f.metrics)
	}
}

func TestSubmitFinalizedAnnouncesResult(t *testing.T) {
	f := newFixture()
	f.svc.outcome.Result.Status = evaluation.ResultStatusFinalized
	f.svc.outcome.Result.Rank = "B"
	f.svc.outcome.FirstFinalized = true
	do(newRouter(f, adminUser), http.MethodPost, "/evaluations/e1/submit", "")
	if len(f.notify.sent) != 1 || f.notify.sent[0].ntype != notifications.TypeResultFinalized {
		t.Fatalf("expected finalized notice, got %+v", f.notify.sent)
	}
	if diff := cmp.Diff([]string{"B"}, f.metrics.ranks); diff != "" {
		t.Fatalf("ranks mismatch (-want +got):\n%s", diff)
	}
}

func TestLateSubmitDoesNotRecountRank(t *testing.T) {
	f := newFixture()
	f.svc.outcome.Result.Status = evaluation.ResultStatusFinalized
	f.svc.outcome.Result.Rank = "B"
	f.svc.outcome.Result.EvaluatorCount = 3
	rec := do(newRouter(f, adminUser), http.MethodPost, "/evaluations/e1/submit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(f.metrics.ranks) != 0 {
		t.Fatalf("refreshed result must not count the rank again, got %v", f.metrics.ranks)
	}
	if f.metrics.submitted != 1 {
		t.Fatalf("expected submit counted once, got %d", f.metrics.submitted)
	}
}

func TestSubmitErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{evaluation.ErrIncomplete, http.StatusUnprocessableEntity},
		{evaluation.ErrDuplicateScore, http.StatusUnprocessableEntity},
		{evaluation.ErrAlreadySubmitted, http.StatusConflict},
		{evaluation.ErrNotEvaluator, http.StatusForbidden},
		{evaluation.ErrEvaluationNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			f := newFixture()
			f.svc.submitErr = tc.err
			rec := do(newRouter(f, adminUser), http.MethodPost, "/evaluations/e1/submit", "")
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if len(f.notify.sent) != 0 {
				t.Fatal("failed submit must not notify")
			}
		})
	}
}

func TestSaveDraftValidation(t *testing.T) {
	f := newFixture()
	router := newRouter(f, adminUser)

	rec := do(router, http.MethodPut, "/evaluations", `{"staffId":"s1","period":"2025-02","scores":[{"criterionId":"c1","value":4}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.svc.draft.Period.String() != "2025-02" || len(f.svc.draft.Scores) != 1 {
		t.Fatalf("unexpected draft %+v", f.svc.draft)
	}

	rec = do(router, http.MethodPut, "/evaluations", `{"staffId":"","scores":[]}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "staffId") {
		t.Fatalf("expected validation error, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestStaffSeeOnlyOwnResults(t *testing.T) {
	f := newFixture()
	staffUser := auth.UserContext{UserID: "u-staff", TenantID: "t1", RoleName: auth.RoleStaff}
	router := newRouter(f, staffUser)

	if rec := do(router, http.MethodGet, "/evaluations/results/s1/2025-02", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected own result, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/evaluations/results/s2/2025-02", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	do(router, http.MethodGet, "/evaluations?staffId=s2&status=draft", "")
	if f.svc.lastFilter.StaffID != "s1" || f.svc.lastFilter.Status != evaluation.StatusSubmitted {
		t.Fatalf("expected staff filter to be forced, got %+v", f.svc.lastFilter)
	}
}

func TestResultRoutes(t *testing.T) {
	f := newFixture()
	router := newRouter(f, adminUser)

	if rec := do(router, http.MethodGet, "/evaluations/results/s1/2025-13", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad period, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/evaluations/results/missing/2025-02", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec := do(router, http.MethodGet, "/evaluations/results/s1/2025-02/report.pdf", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("expected pdf, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "evaluation-2025-02.pdf") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}

	rec = do(router, http.MethodPost, "/evaluations/reminders/run", "")
	var env struct {
		Data jobs.ReminderReport `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Notified != 2 {
		t.Fatalf("unexpected report %+v", env.Data)
	}
}

func TestReopenNotifiesOriginalEvaluator(t *testing.T) {
	f := newFixture()
	other := auth.UserContext{UserID: "admin-2", TenantID: "t1", RoleName: auth.RoleAdmin}
	rec := do(newRouter(f, other), http.MethodPost, "/evaluations/e1/reopen", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(f.notify.sent) != 1 || f.notify.sent[0].userID != "admin-1" || f.notify.sent[0].ntype != notifications.TypeEvaluationReopened {
		t.Fatalf("unexpected notices %+v", f.notify.sent)
	}
}
