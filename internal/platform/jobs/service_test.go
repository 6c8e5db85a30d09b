package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"staffeval/internal/domain/evaluation"
)

type fakeStore struct {
	started  []string
	finished map[string]string
	details  map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{finished: map[string]string{}, details: map[string][]byte{}}
}

func (f *fakeStore) StartRun(_ context.Context, _, jobType string) (string, error) {
	f.started = append(f.started, jobType)
	return "run-" + jobType, nil
}

func (f *fakeStore) FinishRun(_ context.Context, runID, status string, details []byte) error {
	f.finished[runID] = status
	f.details[runID] = details
	return nil
}

func (f *fakeStore) ListRuns(context.Context, string, RunFilter) ([]Run, error) { return nil, nil }

type fakeMissing struct {
	missing map[string]int
	err     error
	period  evaluation.Period
}

func (f *fakeMissing) EvaluatorsMissing(_ context.Context, _ string, period evaluation.Period) (map[string]int, error) {
	f.period = period
	return f.missing, f.err
}

type fakeNotifier struct {
	users []string
}

func (f *fakeNotifier) Create(_ context.Context, _, userID, _, _, _ string) error {
	f.users = append(f.users, userID)
	return nil
}

type fakeMetrics struct {
	runs      []string
	reminders int
}

func (f *fakeMetrics) JobRun(jobType, status string) { f.runs = append(f.runs, jobType+":"+status) }
func (f *fakeMetrics) RemindersSent(n int)           { f.reminders += n }

func TestRunRemindersNotifiesAdminsWithMissingEvaluations(t *testing.T) {
	store := newFakeStore()
	missing := &fakeMissing{missing: map[string]int{"admin-b": 2, "admin-a": 1, "admin-c": 0}}
	notifier := &fakeNotifier{}
	m := &fakeMetrics{}
	svc := New(Deps{Store: store, Evaluations: missing, Notify: notifier, Metrics: m})
	svc.now = func() time.Time { return time.Date(2025, time.May, 28, 12, 0, 0, 0, time.UTC) }

	report, err := svc.RunReminders(context.Background(), "t1")
	if err != nil {
		t.Fatalf("run reminders: %v", err)
	}
	if missing.period.String() != "2025-05" {
		t.Fatalf("expected current period, got %s", missing.period)
	}
	if diff := cmp.Diff([]string{"admin-a", "admin-b"}, notifier.users); diff != "" {
		t.Fatalf("notified mismatch (-want +got):\n%s", diff)
	}
	if report.Notified != 2 || m.reminders != 2 {
		t.Fatalf("unexpected report %+v (metrics %d)", report, m.reminders)
	}
	if store.finished["run-evaluation_reminder"] != StatusCompleted {
		t.Fatalf("expected completed run, got %v", store.finished)
	}
	var recorded ReminderReport
	if err := json.Unmarshal(store.details["run-evaluation_reminder"], &recorded); err != nil || recorded.Notified != 2 {
		t.Fatalf("unexpected recorded details %s (%v)", store.details["run-evaluation_reminder"], err)
	}
	if diff := cmp.Diff([]string{"evaluation_reminder:completed"}, m.runs); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestRunJobRecordsFailure(t *testing.T) {
	store := newFakeStore()
	svc := New(Deps{Store: store})

	_, err := svc.RunNow(context.Background(), "custom", "t1", func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if store.finished["run-custom"] != StatusFailed {
		t.Fatalf("expected failed status, got %v", store.finished)
	}
}

func TestWorkerDrainsQueue(t *testing.T) {
	store := newFakeStore()
	svc := New(Deps{Store: store})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	done := make(chan struct{})
	if !svc.Enqueue("queued", "t1", func(context.Context) (any, error) {
		close(done)
		return nil, nil
	}) {
		t.Fatal("enqueue rejected")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued job did not run")
	}
}
