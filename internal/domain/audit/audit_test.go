package audit

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBuildBaseQuery(t *testing.T) {
	from := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildBaseQuery("SELECT COUNT(1)", "t1", Filter{Action: "evaluation.submit", ActorUser: "u1", From: &from})

	want := "SELECT COUNT(1) FROM audit_events WHERE tenant_id = $1 AND action = $2 AND actor_user_id::text = $3 AND created_at >= $4"
	if query != want {
		t.Fatalf("unexpected query:\n%s", query)
	}
	if diff := cmp.Diff([]any{"t1", "evaluation.submit", "u1", from}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	events := []Event{{
		ID:         "e1",
		ActorID:    "u1",
		Action:     "criterion.update",
		EntityType: "criterion",
		EntityID:   "c1",
		RequestID:  "r1",
		IP:         "10.0.0.1",
		CreatedAt:  time.Date(2025, time.May, 2, 8, 30, 0, 0, time.UTC),
	}}
	if err := WriteCSV(&buf, events); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if lines[1] != "e1,2025-05-02T08:30:00Z,u1,criterion.update,criterion,c1,r1,10.0.0.1" {
		t.Fatalf("unexpected row %q", lines[1])
	}
}
