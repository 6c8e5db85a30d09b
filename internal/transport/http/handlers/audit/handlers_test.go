package audithandler

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"staffeval/internal/domain/audit"
	"staffeval/internal/domain/auth"
	"staffeval/internal/transport/http/middleware"
)

type allowAll struct{}

func (allowAll) HasPermission(context.Context, string, string) (bool, error) { return true, nil }

type stubService struct {
	lastFilter audit.Filter
	limit      int
	offset     int
}

var sampleEvents = []audit.Event{
	{ID: "a1", ActorID: "admin-1", Action: "evaluation.submit", EntityType: "evaluation", EntityID: "e1", CreatedAt: time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)},
}

func (s *stubService) Count(context.Context, string, audit.Filter) (int, error) { return 42, nil }

func (s *stubService) List(_ context.Context, _ string, filter audit.Filter, _ bool, limit, offset int) ([]audit.Event, error) {
	s.lastFilter, s.limit, s.offset = filter, limit, offset
	return sampleEvents, nil
}

func (s *stubService) ListExport(_ context.Context, _ string, filter audit.Filter) ([]audit.Event, error) {
	s.lastFilter = filter
	return sampleEvents, nil
}

func newRouter(svc *stubService) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user := auth.UserContext{UserID: "admin-1", TenantID: "t1", RoleName: auth.RoleAdmin}
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	NewHandler(svc, allowAll{}).RegisterRoutes(r)
	return r
}

func TestListEventsFilters(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/audit/events?action=evaluation.submit&entityId=e1&from=2025-03-01&limit=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Total-Count") != "42" {
		t.Fatalf("unexpected total header %q", rec.Header().Get("X-Total-Count"))
	}
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	want := audit.Filter{Action: "evaluation.submit", EntityID: "e1", From: &from}
	if diff := cmp.Diff(want, svc.lastFilter); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
	if svc.limit != 10 || svc.offset != 0 {
		t.Fatalf("unexpected paging %d/%d", svc.limit, svc.offset)
	}
}

func TestListRejectsReversedRange(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/events?from=2025-03-10&to=2025-03-01", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExportWritesCSV(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/events/export", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and one row, got %d", len(records))
	}
	want := []string{"a1", "2025-03-04T10:00:00Z", "admin-1", "evaluation.submit", "evaluation", "e1", "", ""}
	if diff := cmp.Diff(want, records[1]); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}
