package dashboard

import (
	"context"

	"staffeval/internal/domain/evaluation"
)

type StoreAPI interface {
	TenantContext(ctx context.Context, tenantID string) (TenantContext, error)
	ActiveStaff(ctx context.Context, tenantID string) ([]StaffRow, error)
	StaffByUserID(ctx context.Context, tenantID, userID string) (StaffRow, error)
	// Results lists finalized results in the window; staffID is optional.
	Results(ctx context.Context, tenantID, staffID string, window evaluation.Window) ([]evaluation.Result, map[string]StaffRow, error)
	SubmittedCounts(ctx context.Context, tenantID string, period evaluation.Period) (map[string]int, error)
}
