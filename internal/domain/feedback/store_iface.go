package feedback

import "context"

type StoreAPI interface {
	StaffStatus(ctx context.Context, tenantID, staffID string) (userID, status string, err error)
	Upsert(ctx context.Context, tenantID, authorID string, in Input) (id string, created bool, err error)
	Get(ctx context.Context, tenantID, feedbackID string) (Feedback, error)
	List(ctx context.Context, tenantID string, filter Filter) ([]Feedback, error)
}
