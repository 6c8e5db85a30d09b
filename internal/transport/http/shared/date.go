package shared

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"staffeval/internal/domain/evaluation"
)

// ParseDate accepts RFC3339 or YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}

// QueryPeriod reads a YYYY-MM query parameter, falling back to def when it
// is absent.
func QueryPeriod(r *http.Request, name string, def evaluation.Period) (evaluation.Period, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	return evaluation.ParsePeriod(raw)
}

// QueryInt reads an integer query parameter, falling back to def when it is
// absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// QueryTime reads an optional date query parameter.
func QueryTime(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
