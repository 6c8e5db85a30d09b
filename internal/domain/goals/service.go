package goals

import (
	"context"
	"strings"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// Create adds a draft goal for the staff member. A staff member may hold at
// most MaxGoalsPerQuarter goals per quarter.
func (s *Service) Create(ctx context.Context, tenantID, staffID string, in Input) (Goal, error) {
	if err := validateInput(in); err != nil {
		return Goal{}, err
	}
	goal := Goal{
		StaffID:     staffID,
		Year:        in.Year,
		Quarter:     in.Quarter,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Target:      strings.TrimSpace(in.Target),
		Status:      StatusDraft,
		SelfComment: strings.TrimSpace(in.SelfComment),
	}
	if in.Progress != nil {
		goal.Progress = *in.Progress
	}

	var out Goal
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		if err := tx.LockQuarter(ctx, tenantID, staffID, in.Year, in.Quarter); err != nil {
			return err
		}
		count, err := tx.CountForQuarter(ctx, tenantID, staffID, in.Year, in.Quarter)
		if err != nil {
			return err
		}
		if count >= MaxGoalsPerQuarter {
			return ErrGoalLimit
		}
		id, err := tx.Create(ctx, tenantID, staffID, goal)
		if err != nil {
			return err
		}
		out, err = tx.Get(ctx, tenantID, id)
		return err
	})
	return out, err
}

// Update applies the owner's changes. Draft and returned goals are fully
// editable; approved goals only accept progress and the self comment.
func (s *Service) Update(ctx context.Context, tenantID, staffID, goalID string, in Input) (Goal, error) {
	current, err := s.store.Get(ctx, tenantID, goalID)
	if err != nil {
		return Goal{}, err
	}
	if current.StaffID != staffID {
		return Goal{}, ErrNotOwner
	}
	if !ProgressEditable(current.Status) {
		return Goal{}, ErrGoalLocked
	}

	updated := current
	if Editable(current.Status) {
		in.Year, in.Quarter = current.Year, current.Quarter
		if err := validateInput(in); err != nil {
			return Goal{}, err
		}
		updated.Title = strings.TrimSpace(in.Title)
		updated.Description = strings.TrimSpace(in.Description)
		updated.Target = strings.TrimSpace(in.Target)
	} else if in.Progress != nil && (*in.Progress < 0 || *in.Progress > 100) {
		return Goal{}, ErrProgressRange
	}
	if in.Progress != nil {
		updated.Progress = *in.Progress
	}
	updated.SelfComment = strings.TrimSpace(in.SelfComment)

	if err := s.store.Update(ctx, tenantID, updated, current.Status); err != nil {
		return Goal{}, err
	}
	return s.store.Get(ctx, tenantID, goalID)
}

func (s *Service) Submit(ctx context.Context, tenantID, staffID, goalID string) (Goal, error) {
	current, err := s.store.Get(ctx, tenantID, goalID)
	if err != nil {
		return Goal{}, err
	}
	if current.StaffID != staffID {
		return Goal{}, ErrNotOwner
	}
	if !Editable(current.Status) {
		return Goal{}, ErrInvalidStatus
	}
	from := current.Status
	current.Status = StatusSubmitted
	if err := s.store.Update(ctx, tenantID, current, from); err != nil {
		return Goal{}, err
	}
	return s.store.Get(ctx, tenantID, goalID)
}

// Review applies an admin action to the goal.
func (s *Service) Review(ctx context.Context, tenantID, reviewerID, goalID, action, comment string) (Goal, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	comment = strings.TrimSpace(comment)
	current, err := s.store.Get(ctx, tenantID, goalID)
	if err != nil {
		return Goal{}, err
	}
	next, err := Transition(current.Status, action)
	if err != nil {
		return Goal{}, err
	}
	if action == ActionReturn && comment == "" {
		return Goal{}, ErrCommentRequired
	}
	if err := s.store.SetReview(ctx, tenantID, goalID, current.Status, next, comment, reviewerID); err != nil {
		return Goal{}, err
	}
	return s.store.Get(ctx, tenantID, goalID)
}

func (s *Service) Get(ctx context.Context, tenantID, goalID string) (Goal, error) {
	return s.store.Get(ctx, tenantID, goalID)
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter) ([]Goal, error) {
	return s.store.List(ctx, tenantID, filter)
}

// Summary counts goals per status and averages progress for the quarter,
// optionally for one staff member.
func (s *Service) Summary(ctx context.Context, tenantID, staffID string, year, quarter int) (Summary, error) {
	if quarter < 1 || quarter > 4 {
		return Summary{}, ErrInvalidQuarter
	}
	goals, err := s.store.List(ctx, tenantID, Filter{StaffID: staffID, Year: year, Quarter: quarter})
	if err != nil {
		return Summary{}, err
	}
	return summarize(year, quarter, goals), nil
}

// SummarizeGoals groups goals by staff member into quarter summaries.
func SummarizeGoals(year, quarter int, goals []Goal) map[string]Summary {
	byStaff := map[string][]Goal{}
	for _, goal := range goals {
		byStaff[goal.StaffID] = append(byStaff[goal.StaffID], goal)
	}
	out := make(map[string]Summary, len(byStaff))
	for staffID, staffGoals := range byStaff {
		out[staffID] = summarize(year, quarter, staffGoals)
	}
	return out
}

func (s *Service) StaffUserID(ctx context.Context, tenantID, staffID string) (string, error) {
	return s.store.StaffUserID(ctx, tenantID, staffID)
}
