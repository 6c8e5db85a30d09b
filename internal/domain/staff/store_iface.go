package staff

import "context"

type StoreAPI interface {
	InTx(ctx context.Context, fn func(tx StoreAPI) error) error
	Create(ctx context.Context, tenantID, userID string, in Input) (string, error)
	Update(ctx context.Context, tenantID, staffID string, in Input) error
	Get(ctx context.Context, tenantID, staffID string) (Staff, error)
	List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Staff, error)
	Count(ctx context.Context, tenantID string, filter Filter) (int, error)
	SetStatus(ctx context.Context, tenantID, staffID, status string) error
	IDByUserID(ctx context.Context, tenantID, userID string) (string, error)
	EmailInUse(ctx context.Context, tenantID, email, exceptStaffID string) (bool, error)
	RoleIDByName(ctx context.Context, tenantID, roleName string) (string, error)
	CreateUser(ctx context.Context, tenantID, email, displayName, passwordHash, roleID string) (string, error)
	SetUserStatus(ctx context.Context, tenantID, userID, status string) error
}
