package goals

import "context"

type StoreAPI interface {
	InTx(ctx context.Context, fn func(tx StoreAPI) error) error
	LockQuarter(ctx context.Context, tenantID, staffID string, year, quarter int) error
	CountForQuarter(ctx context.Context, tenantID, staffID string, year, quarter int) (int, error)
	Create(ctx context.Context, tenantID, staffID string, goal Goal) (string, error)
	Get(ctx context.Context, tenantID, goalID string) (Goal, error)
	Update(ctx context.Context, tenantID string, goal Goal, fromStatus string) error
	SetReview(ctx context.Context, tenantID, goalID, fromStatus, toStatus, comment, reviewerID string) error
	List(ctx context.Context, tenantID string, filter Filter) ([]Goal, error)
	StaffUserID(ctx context.Context, tenantID, staffID string) (string, error)
}
