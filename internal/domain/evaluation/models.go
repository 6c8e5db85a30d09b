package evaluation

import "time"

type Category struct {
	ID     string  `json:"id"`
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type Criterion struct {
	ID           string `json:"id"`
	CategoryCode string `json:"categoryCode"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	MaxScore     int    `json:"maxScore"`
	SortOrder    int    `json:"sortOrder"`
	Active       bool   `json:"active"`
}

type Score struct {
	CriterionID string  `json:"criterionId"`
	Value       float64 `json:"value"`
}

type RankThreshold struct {
	Rank         string  `json:"rank"`
	MinScore     float64 `json:"minScore"`
	RewardAmount float64 `json:"rewardAmount"`
}

// Breakdown holds 0..100 category averages and their weighted total.
type Breakdown struct {
	Categories map[string]float64 `json:"categories"`
	Total      float64            `json:"total"`
}

type Evaluation struct {
	ID            string     `json:"id"`
	StaffID       string     `json:"staffId"`
	StaffName     string     `json:"staffName,omitempty"`
	EvaluatorID   string     `json:"evaluatorId"`
	EvaluatorName string     `json:"evaluatorName,omitempty"`
	Period        Period     `json:"period"`
	Status        string     `json:"status"`
	Comment       string     `json:"comment"`
	Scores        []Score    `json:"scores"`
	Breakdown     *Breakdown `json:"breakdown,omitempty"`
	SubmittedAt   *time.Time `json:"submittedAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type Result struct {
	StaffID        string             `json:"staffId"`
	Period         Period             `json:"period"`
	Status         string             `json:"status"`
	EvaluatorCount int                `json:"evaluatorCount"`
	Required       int                `json:"requiredEvaluators"`
	Categories     map[string]float64 `json:"categories,omitempty"`
	Total          float64            `json:"total"`
	Rank           string             `json:"rank,omitempty"`
	RewardAmount   float64            `json:"rewardAmount"`
	Currency       string             `json:"currency"`
	FinalizedAt    *time.Time         `json:"finalizedAt,omitempty"`
}

type Filter struct {
	StaffID     string
	EvaluatorID string
	Period      *Period
	Status      string
}

type Settings struct {
	RequiredEvaluators int
	Currency           string
}

// Required is the effective evaluator count needed to finalize a period.
func (s Settings) Required() int {
	if s.RequiredEvaluators < 1 {
		return DefaultRequiredEvaluators
	}
	return s.RequiredEvaluators
}

// Config is everything the calculator needs for one tenant.
type Config struct {
	Categories []Category
	Criteria   []Criterion
	Thresholds []RankThreshold
	Settings   Settings
}

// StaffRef is the subset of a staff record the workflow needs.
type StaffRef struct {
	ID     string
	Name   string
	UserID string
	Status string
}

// SubmitOutcome is returned by Submit and Reopen so callers can report the
// completion state alongside the evaluation.
type SubmitOutcome struct {
	Evaluation Evaluation `json:"evaluation"`
	Result     Result     `json:"result"`
	// FirstFinalized is set when this call produced the period's result,
	// as opposed to refreshing one that already existed.
	FirstFinalized bool `json:"firstFinalized"`
}

type PendingStaff struct {
	StaffID   string `json:"staffId"`
	StaffName string `json:"staffName"`
	Status    string `json:"status"`
}
