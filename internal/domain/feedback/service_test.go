package feedback

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"staffeval/internal/domain/evaluation"
)

type fakeStore struct {
	staff map[string][2]string
	rows  map[string]Feedback
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		staff: map[string][2]string{
			"staff-1": {"user-1", "active"},
			"staff-2": {"", "inactive"},
		},
		rows: map[string]Feedback{},
	}
}

func (f *fakeStore) StaffStatus(_ context.Context, _, staffID string) (string, string, error) {
	ref, ok := f.staff[staffID]
	if !ok {
		return "", "", ErrStaffNotFound
	}
	return ref[0], ref[1], nil
}

func (f *fakeStore) Upsert(_ context.Context, _, authorID string, in Input) (string, bool, error) {
	key := in.StaffID + "/" + authorID + "/" + in.Period.String()
	_, exists := f.rows[key]
	f.rows[key] = Feedback{ID: key, StaffID: in.StaffID, AuthorID: authorID, Period: in.Period, Body: in.Body, Strengths: in.Strengths, Improvements: in.Improvements}
	return key, !exists, nil
}

func (f *fakeStore) Get(_ context.Context, _, id string) (Feedback, error) {
	row, ok := f.rows[id]
	if !ok {
		return Feedback{}, ErrFeedbackNotFound
	}
	return row, nil
}

func (f *fakeStore) List(context.Context, string, Filter) ([]Feedback, error) { return nil, nil }

func TestSaveUpsertsPerAuthorAndMonth(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	svc.now = func() time.Time { return time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	first, created, err := svc.Save(ctx, "t1", "admin-1", Input{StaffID: "staff-1", Body: " Solid month. "})
	if err != nil || !created {
		t.Fatalf("first save: created=%v err=%v", created, err)
	}
	if first.Period.String() != "2025-06" || first.Body != "Solid month." {
		t.Fatalf("unexpected feedback %+v", first)
	}

	second, created, err := svc.Save(ctx, "t1", "admin-1", Input{StaffID: "staff-1", Period: first.Period, Body: "Revised"})
	if err != nil || created {
		t.Fatalf("second save should update: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || second.Body != "Revised" {
		t.Fatalf("expected same entry updated, got %+v", second)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(store.rows))
	}

	if _, created, err := svc.Save(ctx, "t1", "admin-2", Input{StaffID: "staff-1", Period: first.Period, Body: "Second opinion"}); err != nil || !created {
		t.Fatalf("another author should create a row: created=%v err=%v", created, err)
	}
}

func TestSaveValidation(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()
	period := evaluation.Period{Year: 2025, Month: time.May}

	tests := []struct {
		name   string
		author string
		in     Input
		want   error
	}{
		{name: "empty body", author: "admin-1", in: Input{StaffID: "staff-1", Period: period, Body: "  "}, want: ErrBodyRequired},
		{name: "too long", author: "admin-1", in: Input{StaffID: "staff-1", Period: period, Body: strings.Repeat("x", MaxBodyLength+1)}, want: ErrTooLong},
		{name: "self", author: "user-1", in: Input{StaffID: "staff-1", Period: period, Body: "ok"}, want: ErrSelfFeedback},
		{name: "inactive", author: "admin-1", in: Input{StaffID: "staff-2", Period: period, Body: "ok"}, want: ErrStaffInactive},
		{name: "missing staff", author: "admin-1", in: Input{StaffID: "staff-9", Period: period, Body: "ok"}, want: ErrStaffNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.Save(ctx, "t1", tc.author, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
