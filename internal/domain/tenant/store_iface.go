package tenant

import (
	"context"

	"staffeval/internal/domain/evaluation"
)

type StoreAPI interface {
	InTx(ctx context.Context, fn func(tx StoreAPI) error) error
	CreateTenant(ctx context.Context, name string) (string, error)
	TenantIDByName(ctx context.Context, name string) (string, error)
	ListTenants(ctx context.Context) ([]Tenant, error)
	ListTenantIDs(ctx context.Context) ([]string, error)
	GetSettings(ctx context.Context, tenantID string) (Settings, error)
	UpsertSettings(ctx context.Context, tenantID string, settings Settings) error
	ListCategories(ctx context.Context, tenantID string) ([]evaluation.Category, error)
	UpsertCategories(ctx context.Context, tenantID string, categories []evaluation.Category) error
	ListCriteria(ctx context.Context, tenantID string) ([]evaluation.Criterion, error)
	GetCriterion(ctx context.Context, tenantID, criterionID string) (evaluation.Criterion, error)
	CreateCriterion(ctx context.Context, tenantID string, criterion evaluation.Criterion) (string, error)
	UpdateCriterion(ctx context.Context, tenantID string, criterion evaluation.Criterion) error
	DeleteCriterion(ctx context.Context, tenantID, criterionID string) (bool, error)
	ListThresholds(ctx context.Context, tenantID string) ([]evaluation.RankThreshold, error)
	ReplaceThresholds(ctx context.Context, tenantID string, thresholds []evaluation.RankThreshold) error
	EmailInUse(ctx context.Context, email string) (bool, error)
	EnsureRoles(ctx context.Context, tenantID string) (map[string]string, error)
	CreateUser(ctx context.Context, tenantID, email, displayName, passwordHash, roleID string) (string, error)
}
