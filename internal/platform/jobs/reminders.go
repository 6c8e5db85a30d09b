package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"staffeval/internal/domain/evaluation"
	"staffeval/internal/domain/notifications"
)

type ReminderReport struct {
	Period     evaluation.Period `json:"period"`
	Notified   int               `json:"notified"`
	Evaluators []string          `json:"evaluators"`
}

// SendReminders notifies every admin of the tenant who still has staff to
// evaluate for the current month.
func (s *Service) SendReminders(ctx context.Context, tenantID string) (ReminderReport, error) {
	period := evaluation.PeriodOf(s.now().UTC())
	report := ReminderReport{Period: period, Evaluators: []string{}}

	missing, err := s.evaluations.EvaluatorsMissing(ctx, tenantID, period)
	if err != nil {
		return report, err
	}
	userIDs := make([]string, 0, len(missing))
	for userID, count := range missing {
		if count > 0 {
			userIDs = append(userIDs, userID)
		}
	}
	sort.Strings(userIDs)

	for _, userID := range userIDs {
		count := missing[userID]
		title := fmt.Sprintf("Evaluations due for %s", period)
		body := fmt.Sprintf("You have %d staff evaluation(s) left to submit for %s.", count, period)
		if err := s.notify.Create(ctx, tenantID, userID, notifications.TypeEvaluationReminder, title, body); err != nil {
			slog.Warn("reminder notification failed", "tenantId", tenantID, "userId", userID, "err", err)
			continue
		}
		report.Notified++
		report.Evaluators = append(report.Evaluators, userID)
	}
	if s.metrics != nil {
		s.metrics.RemindersSent(report.Notified)
	}
	return report, nil
}
