package feedback

import (
	"errors"
	"time"

	"staffeval/internal/domain/evaluation"
)

const MaxBodyLength = 4000

var (
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrBodyRequired     = errors.New("feedback body is required")
	ErrTooLong          = errors.New("feedback text is too long")
	ErrSelfFeedback     = errors.New("cannot write feedback for your own staff record")
	ErrStaffNotFound    = errors.New("staff member not found")
	ErrStaffInactive    = errors.New("staff member is not active")
)

type Feedback struct {
	ID           string            `json:"id"`
	StaffID      string            `json:"staffId"`
	StaffName    string            `json:"staffName,omitempty"`
	AuthorID     string            `json:"authorId"`
	AuthorName   string            `json:"authorName,omitempty"`
	Period       evaluation.Period `json:"period"`
	Body         string            `json:"body"`
	Strengths    string            `json:"strengths"`
	Improvements string            `json:"improvements"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type Input struct {
	StaffID      string            `json:"staffId"`
	Period       evaluation.Period `json:"period"`
	Body         string            `json:"body"`
	Strengths    string            `json:"strengths"`
	Improvements string            `json:"improvements"`
}

type Filter struct {
	StaffID  string
	AuthorID string
	Period   *evaluation.Period
}
