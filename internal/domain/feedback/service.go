package feedback

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"staffeval/internal/domain/evaluation"
)

type Service struct {
	store StoreAPI
	now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, now: time.Now}
}

func Validate(in Input) error {
	if in.Period.IsZero() {
		return evaluation.ErrInvalidPeriod
	}
	if strings.TrimSpace(in.Body) == "" {
		return ErrBodyRequired
	}
	for _, text := range []string{in.Body, in.Strengths, in.Improvements} {
		if utf8.RuneCountInString(text) > MaxBodyLength {
			return ErrTooLong
		}
	}
	return nil
}

// Save creates or replaces the author's feedback for the staff member and
// month. The boolean reports whether the entry is new.
func (s *Service) Save(ctx context.Context, tenantID, authorID string, in Input) (Feedback, bool, error) {
	in.Body = strings.TrimSpace(in.Body)
	in.Strengths = strings.TrimSpace(in.Strengths)
	in.Improvements = strings.TrimSpace(in.Improvements)
	if in.Period.IsZero() {
		in.Period = evaluation.PeriodOf(s.now())
	}
	if err := Validate(in); err != nil {
		return Feedback{}, false, err
	}
	userID, status, err := s.store.StaffStatus(ctx, tenantID, in.StaffID)
	if err != nil {
		return Feedback{}, false, err
	}
	if status != "active" {
		return Feedback{}, false, ErrStaffInactive
	}
	if userID != "" && userID == authorID {
		return Feedback{}, false, ErrSelfFeedback
	}
	id, created, err := s.store.Upsert(ctx, tenantID, authorID, in)
	if err != nil {
		return Feedback{}, false, err
	}
	out, err := s.store.Get(ctx, tenantID, id)
	return out, created, err
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter) ([]Feedback, error) {
	return s.store.List(ctx, tenantID, filter)
}

func (s *Service) StaffUserID(ctx context.Context, tenantID, staffID string) (string, error) {
	userID, _, err := s.store.StaffStatus(ctx, tenantID, staffID)
	return userID, err
}
