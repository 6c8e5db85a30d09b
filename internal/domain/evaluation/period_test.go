package evaluation

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-04")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Year != 2025 || p.Month != time.April {
		t.Fatalf("unexpected period %+v", p)
	}
	if p.String() != "2025-04" {
		t.Fatalf("unexpected string %q", p.String())
	}
	if p.Quarter() != 2 {
		t.Fatalf("expected Q2, got %d", p.Quarter())
	}
	for _, raw := range []string{"", "2025-13", "2025/04", "April"} {
		if _, err := ParsePeriod(raw); !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("expected invalid period for %q, got %v", raw, err)
		}
	}
}

func TestPeriodJSONRoundTrip(t *testing.T) {
	payload, err := json.Marshal(struct {
		Period Period `json:"period"`
	}{Period: Period{Year: 2024, Month: time.December}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"period":"2024-12"}` {
		t.Fatalf("unexpected json %s", payload)
	}

	var decoded struct {
		Period Period `json:"period"`
	}
	if err := json.Unmarshal([]byte(`{"period":"2024-01"}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Period.Next() != (Period{Year: 2024, Month: time.February}) {
		t.Fatalf("unexpected next period %+v", decoded.Period.Next())
	}
}

func TestQuarterWindow(t *testing.T) {
	w, err := QuarterWindow(2025, 4)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	want := []Period{{2025, time.October}, {2025, time.November}, {2025, time.December}}
	if diff := cmp.Diff(want, w.Periods()); diff != "" {
		t.Fatalf("periods mismatch (-want +got):\n%s", diff)
	}
	if w.Label != "2025-Q4" {
		t.Fatalf("unexpected label %q", w.Label)
	}
	if _, err := QuarterWindow(2025, 5); err == nil {
		t.Fatal("expected error for quarter 5")
	}
}

func TestFiscalYearWindowCrossesCalendarYear(t *testing.T) {
	w, err := FiscalYearWindow(2025, time.April)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	periods := w.Periods()
	if len(periods) != 12 {
		t.Fatalf("expected 12 months, got %d", len(periods))
	}
	if periods[0] != (Period{2025, time.April}) || periods[11] != (Period{2026, time.March}) {
		t.Fatalf("unexpected bounds %v .. %v", periods[0], periods[11])
	}
	if !w.Contains(Period{2026, time.January}) || w.Contains(Period{2026, time.April}) {
		t.Fatal("unexpected containment")
	}
	if got := FiscalYearOf(Period{2026, time.February}, time.April); got != 2025 {
		t.Fatalf("expected FY2025, got %d", got)
	}
	if got := FiscalYearOf(Period{2026, time.April}, time.April); got != 2026 {
		t.Fatalf("expected FY2026, got %d", got)
	}
}

func TestYearWindowWithJanuaryFiscalStartMatchesCalendarYear(t *testing.T) {
	fiscal, err := FiscalYearWindow(2024, time.January)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	calendar := YearWindow(2024)
	if fiscal.From != calendar.From || fiscal.To != calendar.To {
		t.Fatalf("expected identical bounds, got %+v vs %+v", fiscal, calendar)
	}
}
