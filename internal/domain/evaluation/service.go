package evaluation

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

type Service struct {
	store StoreAPI
	now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, now: time.Now}
}

type DraftInput struct {
	StaffID string  `json:"staffId"`
	Period  Period  `json:"period"`
	Scores  []Score `json:"scores"`
	Comment string  `json:"comment"`
}

func (s *Service) Config(ctx context.Context, tenantID string) (Config, error) {
	return s.store.LoadConfig(ctx, tenantID)
}

// SaveDraft creates or updates the evaluator's evaluation for the staff
// member and period. Partial scores are accepted.
func (s *Service) SaveDraft(ctx context.Context, tenantID, evaluatorID string, in DraftInput) (Evaluation, error) {
	if in.Period.IsZero() {
		return Evaluation{}, ErrInvalidPeriod
	}
	if in.Period.Start().After(PeriodOf(s.now()).Start()) {
		return Evaluation{}, ErrFuturePeriod
	}
	comment := strings.TrimSpace(in.Comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return Evaluation{}, ErrCommentTooLong
	}

	var out Evaluation
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		staff, err := tx.StaffRef(ctx, tenantID, in.StaffID)
		if err != nil {
			return err
		}
		if staff.Status != "active" {
			return ErrStaffInactive
		}
		if staff.UserID != "" && staff.UserID == evaluatorID {
			return ErrSelfEvaluation
		}
		cfg, err := tx.LoadConfig(ctx, tenantID)
		if err != nil {
			return err
		}
		if err := ValidateScores(cfg.Criteria, in.Scores, false); err != nil {
			return err
		}
		id, err := tx.UpsertDraft(ctx, tenantID, in.StaffID, evaluatorID, in.Period, comment)
		if err != nil {
			return err
		}
		if err := tx.ReplaceScores(ctx, id, in.Scores); err != nil {
			return err
		}
		out, err = tx.GetEvaluation(ctx, tenantID, id)
		return err
	})
	return out, err
}

// Submit locks in the evaluator's scores and runs the completion check for
// the staff member and period within the same transaction.
func (s *Service) Submit(ctx context.Context, tenantID, evaluatorID, evaluationID string) (SubmitOutcome, error) {
	var out SubmitOutcome
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		evaluation, err := tx.GetEvaluation(ctx, tenantID, evaluationID)
		if err != nil {
			return err
		}
		if evaluation.EvaluatorID != evaluatorID {
			return ErrNotEvaluator
		}
		if evaluation.Status == StatusSubmitted {
			return ErrAlreadySubmitted
		}
		if err := tx.LockStaffPeriod(ctx, tenantID, evaluation.StaffID, evaluation.Period); err != nil {
			return err
		}
		cfg, err := tx.LoadConfig(ctx, tenantID)
		if err != nil {
			return err
		}
		if err := ValidateScores(cfg.Criteria, evaluation.Scores, true); err != nil {
			return err
		}

		breakdown := Evaluate(cfg.Categories, cfg.Criteria, evaluation.Scores)
		submittedAt := s.now().UTC()
		if err := tx.MarkSubmitted(ctx, tenantID, evaluationID, breakdown, submittedAt); err != nil {
			return err
		}
		evaluation.Status = StatusSubmitted
		evaluation.Breakdown = &breakdown
		evaluation.SubmittedAt = &submittedAt

		_, err = tx.GetResult(ctx, tenantID, evaluation.StaffID, evaluation.Period)
		hadResult := err == nil
		if err != nil && !errors.Is(err, ErrResultNotFound) {
			return err
		}
		result, err := s.complete(ctx, tx, cfg, tenantID, evaluation.StaffID, evaluation.Period)
		if err != nil {
			return err
		}
		out = SubmitOutcome{
			Evaluation:     evaluation,
			Result:         result,
			FirstFinalized: !hadResult && result.Status == ResultStatusFinalized,
		}
		return nil
	})
	return out, err
}

// Reopen returns a submitted evaluation to draft and re-runs the completion
// check, which withdraws the result if the period drops below the required
// number of evaluators.
func (s *Service) Reopen(ctx context.Context, tenantID, evaluationID string) (SubmitOutcome, error) {
	var out SubmitOutcome
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		evaluation, err := tx.GetEvaluation(ctx, tenantID, evaluationID)
		if err != nil {
			return err
		}
		if evaluation.Status != StatusSubmitted {
			return ErrNotSubmitted
		}
		if err := tx.LockStaffPeriod(ctx, tenantID, evaluation.StaffID, evaluation.Period); err != nil {
			return err
		}
		if err := tx.MarkDraft(ctx, tenantID, evaluationID); err != nil {
			return err
		}
		evaluation.Status = StatusDraft
		evaluation.Breakdown = nil
		evaluation.SubmittedAt = nil

		cfg, err := tx.LoadConfig(ctx, tenantID)
		if err != nil {
			return err
		}
		result, err := s.complete(ctx, tx, cfg, tenantID, evaluation.StaffID, evaluation.Period)
		if err != nil {
			return err
		}
		out = SubmitOutcome{Evaluation: evaluation, Result: result}
		return nil
	})
	return out, err
}

// Recompute re-runs the completion check with the tenant's current
// categories, criteria and thresholds.
func (s *Service) Recompute(ctx context.Context, tenantID, staffID string, period Period) (Result, error) {
	var out Result
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		if _, err := tx.StaffRef(ctx, tenantID, staffID); err != nil {
			return err
		}
		if err := tx.LockStaffPeriod(ctx, tenantID, staffID, period); err != nil {
			return err
		}
		cfg, err := tx.LoadConfig(ctx, tenantID)
		if err != nil {
			return err
		}
		out, err = s.complete(ctx, tx, cfg, tenantID, staffID, period)
		return err
	})
	return out, err
}

// GetResult returns the finalized result, or a pending result carrying the
// submitted and required evaluator counts. When the required evaluator count
// changed since the period was last checked, the completion check re-runs so
// the answer matches the current settings.
func (s *Service) GetResult(ctx context.Context, tenantID, staffID string, period Period) (Result, error) {
	if _, err := s.store.StaffRef(ctx, tenantID, staffID); err != nil {
		return Result{}, err
	}
	cfg, err := s.store.LoadConfig(ctx, tenantID)
	if err != nil {
		return Result{}, err
	}
	required := cfg.Settings.Required()

	result, err := s.store.GetResult(ctx, tenantID, staffID, period)
	switch {
	case err == nil:
		if result.EvaluatorCount >= required {
			return result, nil
		}
		return s.Recompute(ctx, tenantID, staffID, period)
	case !errors.Is(err, ErrResultNotFound):
		return Result{}, err
	}

	sets, err := s.store.SubmittedScoreSets(ctx, tenantID, staffID, period)
	if err != nil {
		return Result{}, err
	}
	if len(sets) >= required {
		return s.Recompute(ctx, tenantID, staffID, period)
	}
	pending := Finalize(cfg, staffID, period, nil)
	pending.EvaluatorCount = len(sets)
	return pending, nil
}

func (s *Service) ListEvaluations(ctx context.Context, tenantID string, filter Filter) ([]Evaluation, error) {
	return s.store.ListEvaluations(ctx, tenantID, filter)
}

func (s *Service) GetEvaluation(ctx context.Context, tenantID, evaluationID string) (Evaluation, error) {
	return s.store.GetEvaluation(ctx, tenantID, evaluationID)
}

// ListPending returns the active staff that still need the evaluator's
// submission for the period, excluding the evaluator's own staff record.
func (s *Service) ListPending(ctx context.Context, tenantID, evaluatorID string, period Period) ([]PendingStaff, error) {
	staff, err := s.store.ListActiveStaff(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	statuses, err := s.store.EvaluatorStatuses(ctx, tenantID, evaluatorID, period)
	if err != nil {
		return nil, err
	}
	out := []PendingStaff{}
	for _, member := range staff {
		if member.UserID != "" && member.UserID == evaluatorID {
			continue
		}
		status, ok := statuses[member.ID]
		switch {
		case !ok:
			status = "not_started"
		case status == StatusSubmitted:
			continue
		}
		out = append(out, PendingStaff{StaffID: member.ID, StaffName: member.Name, Status: status})
	}
	return out, nil
}

// EvaluatorsMissing reports, per admin user, how many evaluations are still
// outstanding for the period.
func (s *Service) EvaluatorsMissing(ctx context.Context, tenantID string, period Period) (map[string]int, error) {
	return s.store.EvaluatorsMissing(ctx, tenantID, period)
}

func (s *Service) StaffRef(ctx context.Context, tenantID, staffID string) (StaffRef, error) {
	return s.store.StaffRef(ctx, tenantID, staffID)
}

func (s *Service) complete(ctx context.Context, tx StoreAPI, cfg Config, tenantID, staffID string, period Period) (Result, error) {
	sets, err := tx.SubmittedScoreSets(ctx, tenantID, staffID, period)
	if err != nil {
		return Result{}, err
	}
	breakdowns := make([]Breakdown, 0, len(sets))
	for _, scores := range sets {
		breakdowns = append(breakdowns, Evaluate(cfg.Categories, cfg.Criteria, scores))
	}

	result := Finalize(cfg, staffID, period, breakdowns)
	if result.Status != ResultStatusFinalized {
		return result, tx.DeleteResult(ctx, tenantID, staffID, period)
	}
	finalizedAt := s.now().UTC()
	result.FinalizedAt = &finalizedAt
	return result, tx.UpsertResult(ctx, tenantID, result)
}
