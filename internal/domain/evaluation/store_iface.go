package evaluation

import (
	"context"
	"time"
)

type StoreAPI interface {
	InTx(ctx context.Context, fn func(tx StoreAPI) error) error
	LockStaffPeriod(ctx context.Context, tenantID, staffID string, period Period) error
	LoadConfig(ctx context.Context, tenantID string) (Config, error)
	StaffRef(ctx context.Context, tenantID, staffID string) (StaffRef, error)
	ListActiveStaff(ctx context.Context, tenantID string) ([]StaffRef, error)
	GetEvaluation(ctx context.Context, tenantID, evaluationID string) (Evaluation, error)
	FindEvaluation(ctx context.Context, tenantID, staffID, evaluatorID string, period Period) (Evaluation, error)
	UpsertDraft(ctx context.Context, tenantID, staffID, evaluatorID string, period Period, comment string) (string, error)
	ReplaceScores(ctx context.Context, evaluationID string, scores []Score) error
	MarkSubmitted(ctx context.Context, tenantID, evaluationID string, breakdown Breakdown, at time.Time) error
	MarkDraft(ctx context.Context, tenantID, evaluationID string) error
	SubmittedScoreSets(ctx context.Context, tenantID, staffID string, period Period) ([][]Score, error)
	UpsertResult(ctx context.Context, tenantID string, result Result) error
	DeleteResult(ctx context.Context, tenantID, staffID string, period Period) error
	GetResult(ctx context.Context, tenantID, staffID string, period Period) (Result, error)
	ListEvaluations(ctx context.Context, tenantID string, filter Filter) ([]Evaluation, error)
	EvaluatorStatuses(ctx context.Context, tenantID, evaluatorID string, period Period) (map[string]string, error)
	EvaluatorsMissing(ctx context.Context, tenantID string, period Period) (map[string]int, error)
}
