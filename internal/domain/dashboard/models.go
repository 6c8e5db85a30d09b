package dashboard

import (
	"time"

	"staffeval/internal/domain/evaluation"
	"staffeval/internal/domain/goals"
)

const (
	MonthFinalized  = "finalized"
	MonthPending    = "pending"
	MonthNotStarted = "not_started"
)

// TenantContext holds the tenant settings every rollup depends on.
type TenantContext struct {
	Currency           string
	FiscalStartMonth   time.Month
	RequiredEvaluators int
	Thresholds         []evaluation.RankThreshold
}

type StaffRow struct {
	ID         string `json:"staffId"`
	Name       string `json:"staffName"`
	Department string `json:"department"`
	UserID     string `json:"-"`
}

type StaffMonth struct {
	StaffRow
	State  string            `json:"state"`
	Result evaluation.Result `json:"result"`
}

type Money struct {
	Amount    float64 `json:"amount"`
	Formatted string  `json:"formatted"`
}

type MonthlySummary struct {
	Evaluated  int            `json:"evaluated"`
	Pending    int            `json:"pending"`
	NotStarted int            `json:"notStarted"`
	MeanTotal  float64        `json:"meanTotal"`
	RankCounts map[string]int `json:"rankCounts"`
	Rewards    Money          `json:"rewards"`
}

type Monthly struct {
	Period   evaluation.Period `json:"period"`
	Currency string            `json:"currency"`
	Staff    []StaffMonth      `json:"staff"`
	Summary  MonthlySummary    `json:"summary"`
}

type StaffWindow struct {
	StaffRow
	MonthsEvaluated int            `json:"monthsEvaluated"`
	MeanTotal       float64        `json:"meanTotal"`
	Rank            string         `json:"rank,omitempty"`
	Rewards         Money          `json:"rewards"`
	Goals           *goals.Summary `json:"goals,omitempty"`
}

type WindowSummary struct {
	StaffEvaluated int            `json:"staffEvaluated"`
	MeanTotal      float64        `json:"meanTotal"`
	RankCounts     map[string]int `json:"rankCounts"`
	Rewards        Money          `json:"rewards"`
}

// Rollup is the quarterly, annual or fiscal-year view.
type Rollup struct {
	Kind     string            `json:"kind"`
	Window   evaluation.Window `json:"window"`
	Currency string            `json:"currency"`
	Staff    []StaffWindow     `json:"staff"`
	Summary  WindowSummary     `json:"summary"`
}

// Personal is the signed-in staff member's own view.
type Personal struct {
	StaffRow
	Currency    string              `json:"currency"`
	Current     evaluation.Result   `json:"current"`
	History     []evaluation.Result `json:"history"`
	FiscalYear  StaffWindow         `json:"fiscalYear"`
	FiscalLabel string              `json:"fiscalLabel"`
	Goals       []goals.Goal        `json:"goals"`
	GoalSummary goals.Summary       `json:"goalSummary"`
}
