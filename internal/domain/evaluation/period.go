package evaluation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Period is a calendar month, the unit admins evaluate in.
type Period struct {
	Year  int
	Month time.Month
}

func ParsePeriod(raw string) (Period, error) {
	parsed, err := time.Parse("2006-01", strings.TrimSpace(raw))
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Year: parsed.Year(), Month: parsed.Month()}, nil
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Start is the first day of the month in UTC; it is the stored DATE value.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) Quarter() int {
	return (int(p.Month)-1)/3 + 1
}

func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Period) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidPeriod
	}
	parsed, err := ParsePeriod(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Window is a half-open range of months [From, To).
type Window struct {
	From  Period `json:"from"`
	To    Period `json:"to"`
	Label string `json:"label"`
}

func (w Window) Contains(p Period) bool {
	start := p.Start()
	return !start.Before(w.From.Start()) && start.Before(w.To.Start())
}

// Periods lists every month in the window in order.
func (w Window) Periods() []Period {
	var out []Period
	for p := w.From; p.Start().Before(w.To.Start()); p = p.Next() {
		out = append(out, p)
	}
	return out
}

func MonthWindow(p Period) Window {
	return Window{From: p, To: p.Next(), Label: p.String()}
}

func QuarterWindow(year, quarter int) (Window, error) {
	if quarter < 1 || quarter > 4 {
		return Window{}, fmt.Errorf("quarter must be between 1 and 4")
	}
	from := Period{Year: year, Month: time.Month((quarter-1)*3 + 1)}
	to := PeriodOf(from.Start().AddDate(0, 3, 0))
	return Window{From: from, To: to, Label: fmt.Sprintf("%d-Q%d", year, quarter)}, nil
}

func YearWindow(year int) Window {
	return Window{
		From:  Period{Year: year, Month: time.January},
		To:    Period{Year: year + 1, Month: time.January},
		Label: fmt.Sprintf("%d", year),
	}
}

// FiscalYearWindow returns the twelve months starting at startMonth of year.
// The fiscal year is labelled by the calendar year in which it starts.
func FiscalYearWindow(year int, startMonth time.Month) (Window, error) {
	if startMonth < time.January || startMonth > time.December {
		return Window{}, fmt.Errorf("fiscal start month must be between 1 and 12")
	}
	from := Period{Year: year, Month: startMonth}
	to := PeriodOf(from.Start().AddDate(1, 0, 0))
	return Window{From: from, To: to, Label: fmt.Sprintf("FY%d", year)}, nil
}

// FiscalYearOf returns the fiscal year label containing p.
func FiscalYearOf(p Period, startMonth time.Month) int {
	if p.Month >= startMonth {
		return p.Year
	}
	return p.Year - 1
}
