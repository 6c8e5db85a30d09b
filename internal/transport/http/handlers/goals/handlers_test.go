package goalshandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/goals"
	"staffeval/internal/domain/notifications"
	"staffeval/internal/transport/http/middleware"
)

type allowAll struct{}

func (allowAll) HasPermission(context.Context, string, string) (bool, error) { return true, nil }

type staffLookup map[string]string

func (s staffLookup) IDByUserID(_ context.Context, _, userID string) (string, error) {
	return s[userID], nil
}

type reviewers []auth.UserRef

func (r reviewers) ListUsersByRole(context.Context, string, string) ([]auth.UserRef, error) {
	return r, nil
}

type recordingNotifier struct {
	to    []string
	types []string
}

func (n *recordingNotifier) Create(_ context.Context, _, userID, ntype, _, _ string) error {
	n.to = append(n.to, userID)
	n.types = append(n.types, ntype)
	return nil
}

type stubService struct {
	goals      map[string]goals.Goal
	lastFilter goals.Filter
	summaryFor [3]any
	createdFor string
}

func newStub() *stubService {
	return &stubService{goals: map[string]goals.Goal{
		"g1": {ID: "g1", StaffID: "s1", Year: 2025, Quarter: 1, Title: "Ship onboarding", Status: goals.StatusDraft},
		"g2": {ID: "g2", StaffID: "s2", Year: 2025, Quarter: 1, Title: "Reduce churn", Status: goals.StatusSubmitted},
	}}
}

func (s *stubService) Create(_ context.Context, _, staffID string, in goals.Input) (goals.Goal, error) {
	s.createdFor = staffID
	return goals.Goal{ID: "g9", StaffID: staffID, Year: in.Year, Quarter: in.Quarter, Title: in.Title, Status: goals.StatusDraft}, nil
}

func (s *stubService) Update(_ context.Context, _, staffID, goalID string, in goals.Input) (goals.Goal, error) {
	goal, ok := s.goals[goalID]
	if !ok {
		return goals.Goal{}, goals.ErrGoalNotFound
	}
	if goal.StaffID != staffID {
		return goals.Goal{}, goals.ErrNotOwner
	}
	goal.Title = in.Title
	return goal, nil
}

func (s *stubService) Submit(_ context.Context, _, staffID, goalID string) (goals.Goal, error) {
	goal, ok := s.goals[goalID]
	if !ok {
		return goals.Goal{}, goals.ErrGoalNotFound
	}
	if goal.StaffID != staffID {
		return goals.Goal{}, goals.ErrNotOwner
	}
	if !goals.Editable(goal.Status) {
		return goals.Goal{}, goals.ErrInvalidStatus
	}
	goal.Status = goals.StatusSubmitted
	s.goals[goalID] = goal
	return goal, nil
}

func (s *stubService) Review(_ context.Context, _, reviewerID, goalID, action, comment string) (goals.Goal, error) {
	goal, ok := s.goals[goalID]
	if !ok {
		return goals.Goal{}, goals.ErrGoalNotFound
	}
	next, err := goals.Transition(goal.Status, action)
	if err != nil {
		return goals.Goal{}, err
	}
	if action == goals.ActionReturn && comment == "" {
		return goals.Goal{}, goals.ErrCommentRequired
	}
	goal.Status, goal.ReviewComment, goal.ReviewedBy = next, comment, reviewerID
	s.goals[goalID] = goal
	return goal, nil
}

func (s *stubService) Get(_ context.Context, _, goalID string) (goals.Goal, error) {
	goal, ok := s.goals[goalID]
	if !ok {
		return goals.Goal{}, goals.ErrGoalNotFound
	}
	return goal, nil
}

func (s *stubService) List(_ context.Context, _ string, filter goals.Filter) ([]goals.Goal, error) {
	s.lastFilter = filter
	return nil, nil
}

func (s *stubService) Summary(_ context.Context, _, staffID string, year, quarter int) (goals.Summary, error) {
	s.summaryFor = [3]any{staffID, year, quarter}
	return goals.Summary{Year: year, Quarter: quarter, Counts: map[string]int{}}, nil
}

func (s *stubService) StaffUserID(_ context.Context, _, staffID string) (string, error) {
	return "u-" + staffID, nil
}

var (
	staffUser = auth.UserContext{UserID: "u-s1", TenantID: "t1", RoleName: auth.RoleStaff}
	adminUser = auth.UserContext{UserID: "admin-1", TenantID: "t1", RoleName: auth.RoleAdmin}
)

func newRouter(svc *stubService, notify *recordingNotifier, user auth.UserContext) http.Handler {
	h := NewHandler(svc, staffLookup{"u-s1": "s1", "admin-1": "s-admin"},
		reviewers{{ID: "admin-1"}, {ID: "admin-2"}}, allowAll{}, notify, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	h.RegisterRoutes(r)
	return r
}

func do(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateUsesCallerStaffRecord(t *testing.T) {
	svc := newStub()
	router := newRouter(svc, &recordingNotifier{}, staffUser)

	rec := do(router, http.MethodPost, "/goals", `{"year":2025,"quarter":2,"title":"Mentor a new hire"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.createdFor != "s1" {
		t.Fatalf("expected goal for s1, got %q", svc.createdFor)
	}

	rec = do(router, http.MethodPost, "/goals", `{"year":2025,"quarter":5,"title":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad quarter, got %d", rec.Code)
	}
}

func TestSubmitNotifiesOtherAdmins(t *testing.T) {
	svc := newStub()
	notify := &recordingNotifier{}
	router := newRouter(svc, notify, staffUser)

	rec := do(router, http.MethodPost, "/goals/g1/submit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if diff := cmp.Diff([]string{"admin-1", "admin-2"}, notify.to); diff != "" {
		t.Fatalf("recipients mismatch (-want +got):\n%s", diff)
	}
	if notify.types[0] != notifications.TypeGoalSubmitted {
		t.Fatalf("unexpected type %q", notify.types[0])
	}

	rec = do(router, http.MethodPost, "/goals/g1/submit", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on resubmit, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPost, "/goals/g2/submit", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another staff goal, got %d", rec.Code)
	}
}

func TestReviewNotifiesOwner(t *testing.T) {
	svc := newStub()
	notify := &recordingNotifier{}
	router := newRouter(svc, notify, adminUser)

	rec := do(router, http.MethodPost, "/goals/g2/review", `{"action":"return"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without comment, got %d", rec.Code)
	}
	rec = do(router, http.MethodPost, "/goals/g2/review", `{"action":"promote"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rec.Code)
	}

	rec = do(router, http.MethodPost, "/goals/g2/review", `{"action":"Approve","comment":"looks good"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data goals.Goal `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Status != goals.StatusApproved || env.Data.ReviewedBy != "admin-1" {
		t.Fatalf("unexpected goal %+v", env.Data)
	}
	if diff := cmp.Diff([]string{"u-s2"}, notify.to); diff != "" {
		t.Fatalf("recipients mismatch (-want +got):\n%s", diff)
	}
}

func TestStaffScoping(t *testing.T) {
	svc := newStub()
	router := newRouter(svc, &recordingNotifier{}, staffUser)

	do(router, http.MethodGet, "/goals?staffId=s2&year=2025&quarter=1", "")
	if diff := cmp.Diff(goals.Filter{StaffID: "s1", Year: 2025, Quarter: 1}, svc.lastFilter); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
	if rec := do(router, http.MethodGet, "/goals/g2", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/goals/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSummaryDefaultsToCurrentQuarter(t *testing.T) {
	timeNow = func() time.Time { return time.Date(2025, time.August, 14, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = time.Now })

	svc := newStub()
	router := newRouter(svc, &recordingNotifier{}, adminUser)
	if rec := do(router, http.MethodGet, "/goals/summary?staffId=s2", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if diff := cmp.Diff([3]any{"s2", 2025, 3}, svc.summaryFor); diff != "" {
		t.Fatalf("summary args mismatch (-want +got):\n%s", diff)
	}
	if rec := do(router, http.MethodGet, "/goals/summary?quarter=0", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
