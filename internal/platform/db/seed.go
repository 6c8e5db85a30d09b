package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"staffeval/internal/domain/tenant"
	"staffeval/internal/platform/config"
)

// Seed provisions the configured seed tenant with its Admin user, or fills in
// missing defaults when the tenant already exists. It also creates the
// optional SystemAdmin login. Running it repeatedly is safe.
func Seed(ctx context.Context, tenants *tenant.Service, cfg config.Config) error {
	name := strings.TrimSpace(cfg.SeedTenantName)
	if name == "" {
		return nil
	}

	tenantID, err := tenants.TenantIDByName(ctx, name)
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound):
		if strings.TrimSpace(cfg.SeedAdminEmail) == "" || cfg.SeedAdminPassword == "" {
			slog.Info("seed skipped: SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD not set")
			return nil
		}
		out, err := tenants.Provision(ctx, tenant.ProvisionInput{
			Name:          name,
			AdminEmail:    cfg.SeedAdminEmail,
			AdminName:     "Administrator",
			AdminPassword: cfg.SeedAdminPassword,
			Currency:      cfg.DefaultCurrency,
		})
		if err != nil {
			return err
		}
		tenantID = out.TenantID
		slog.Info("seed tenant provisioned", "tenantId", tenantID, "name", name)
	case err != nil:
		return err
	default:
		if err := tenants.EnsureDefaults(ctx, tenantID, cfg.DefaultCurrency); err != nil {
			return err
		}
	}

	if strings.TrimSpace(cfg.SeedSystemAdminEmail) != "" {
		created, err := tenants.EnsureSystemAdmin(ctx, tenantID, cfg.SeedSystemAdminEmail, cfg.SeedSystemAdminPassword)
		if err != nil {
			return err
		}
		if created {
			slog.Info("seed system admin created", "email", cfg.SeedSystemAdminEmail)
		}
	}
	return nil
}
