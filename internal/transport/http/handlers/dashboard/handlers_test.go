package dashboardhandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/dashboard"
	"staffeval/internal/domain/evaluation"
	"staffeval/internal/transport/http/middleware"
)

type allowAll struct{}

func (allowAll) HasPermission(context.Context, string, string) (bool, error) { return true, nil }

type stubService struct {
	calls []string
	args  []any
}

func (s *stubService) CurrentPeriod() evaluation.Period {
	return evaluation.Period{Year: 2025, Month: time.May}
}

func (s *stubService) CurrentFiscalYear(context.Context, string) (int, error) {
	return 2024, nil
}

func (s *stubService) Monthly(_ context.Context, _ string, period evaluation.Period) (dashboard.Monthly, error) {
	s.calls, s.args = append(s.calls, "monthly"), append(s.args, period.String())
	return dashboard.Monthly{Period: period}, nil
}

func (s *stubService) Quarterly(_ context.Context, _ string, year, quarter int) (dashboard.Rollup, error) {
	s.calls, s.args = append(s.calls, "quarterly"), append(s.args, year, quarter)
	return dashboard.Rollup{Kind: dashboard.KindQuarterly}, nil
}

func (s *stubService) Annual(_ context.Context, _ string, year int) (dashboard.Rollup, error) {
	if year < 2000 {
		return dashboard.Rollup{}, dashboard.ErrInvalidYear
	}
	s.calls, s.args = append(s.calls, "annual"), append(s.args, year)
	return dashboard.Rollup{Kind: dashboard.KindAnnual}, nil
}

func (s *stubService) Fiscal(_ context.Context, _ string, year int) (dashboard.Rollup, error) {
	s.calls, s.args = append(s.calls, "fiscal"), append(s.args, year)
	return dashboard.Rollup{Kind: dashboard.KindFiscal}, nil
}

func (s *stubService) Me(_ context.Context, _, userID string) (dashboard.Personal, error) {
	if userID == "orphan" {
		return dashboard.Personal{}, dashboard.ErrNoStaffRecord
	}
	s.calls = append(s.calls, "me")
	return dashboard.Personal{}, nil
}

func newRouter(svc *stubService, user auth.UserContext) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	NewHandler(svc, allowAll{}).RegisterRoutes(r)
	return r
}

func get(handler http.Handler, path string) int {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code
}

func TestDefaultsFromCurrentPeriod(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc, auth.UserContext{UserID: "admin-1", TenantID: "t1", RoleName: auth.RoleAdmin})

	for _, path := range []string{"/dashboard/monthly", "/dashboard/quarterly", "/dashboard/annual", "/dashboard/fiscal"} {
		if code := get(router, path); code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, code)
		}
	}
	if diff := cmp.Diff([]string{"monthly", "quarterly", "annual", "fiscal"}, svc.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"2025-05", 2025, 2, 2025, 2024}, svc.args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryValidation(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc, auth.UserContext{UserID: "admin-1", TenantID: "t1", RoleName: auth.RoleAdmin})

	cases := map[string]int{
		"/dashboard/monthly?period=2025-5x":        http.StatusBadRequest,
		"/dashboard/quarterly?quarter=7":           http.StatusBadRequest,
		"/dashboard/annual?year=abc":               http.StatusBadRequest,
		"/dashboard/annual?year=1999":              http.StatusBadRequest,
		"/dashboard/quarterly?year=2024&quarter=4": http.StatusOK,
		"/dashboard/fiscal?year=2023":              http.StatusOK,
	}
	for path, want := range cases {
		if code := get(router, path); code != want {
			t.Errorf("%s: expected %d, got %d", path, want, code)
		}
	}
}

func TestStaffOnlyReachPersonalView(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc, auth.UserContext{UserID: "u-s1", TenantID: "t1", RoleName: auth.RoleStaff})

	if code := get(router, "/dashboard/monthly"); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := get(router, "/dashboard/me"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	orphan := newRouter(svc, auth.UserContext{UserID: "orphan", TenantID: "t1", RoleName: auth.RoleStaff})
	if code := get(orphan, "/dashboard/me"); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}
