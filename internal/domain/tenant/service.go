package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/evaluation"
	"staffeval/internal/platform/money"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// Provision creates a tenant with default settings, categories, criteria,
// thresholds and roles, plus its first Admin user.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (Provisioned, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.AdminEmail = strings.TrimSpace(in.AdminEmail)
	if in.Name == "" {
		return Provisioned{}, fmt.Errorf("%w: name is required", ErrInvalidSettings)
	}
	if _, err := mail.ParseAddress(in.AdminEmail); err != nil {
		return Provisioned{}, fmt.Errorf("%w: admin email is invalid", ErrInvalidSettings)
	}
	if err := auth.ValidatePassword(in.AdminPassword); err != nil {
		return Provisioned{}, err
	}
	settings := Settings{
		RequiredEvaluators: evaluation.DefaultRequiredEvaluators,
		FiscalStartMonth:   in.FiscalStartMonth,
		Currency:           strings.ToUpper(strings.TrimSpace(in.Currency)),
	}
	if settings.FiscalStartMonth == 0 {
		settings.FiscalStartMonth = DefaultFiscalStartMonth
	}
	if settings.Currency == "" {
		settings.Currency = DefaultCurrency
	}
	if err := ValidateSettings(settings); err != nil {
		return Provisioned{}, err
	}

	hash, err := auth.HashPassword(in.AdminPassword)
	if err != nil {
		return Provisioned{}, err
	}

	var out Provisioned
	err = s.store.InTx(ctx, func(tx StoreAPI) error {
		taken, err := tx.EmailInUse(ctx, in.AdminEmail)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		tenantID, err := tx.CreateTenant(ctx, in.Name)
		if err != nil {
			return err
		}
		if err := s.applyDefaults(ctx, tx, tenantID, settings); err != nil {
			return err
		}
		roleIDs, err := tx.EnsureRoles(ctx, tenantID)
		if err != nil {
			return err
		}
		displayName := strings.TrimSpace(in.AdminName)
		if displayName == "" {
			displayName = in.AdminEmail
		}
		userID, err := tx.CreateUser(ctx, tenantID, in.AdminEmail, displayName, hash, roleIDs[auth.RoleAdmin])
		if err != nil {
			return err
		}
		out = Provisioned{TenantID: tenantID, AdminUserID: userID}
		return nil
	})
	return out, err
}

// EnsureDefaults fills in any missing defaults for an existing tenant. It is
// safe to call repeatedly.
func (s *Service) EnsureDefaults(ctx context.Context, tenantID string, currency string) error {
	return s.store.InTx(ctx, func(tx StoreAPI) error {
		if _, err := tx.EnsureRoles(ctx, tenantID); err != nil {
			return err
		}
		settings, err := tx.GetSettings(ctx, tenantID)
		if errors.Is(err, ErrTenantNotFound) {
			settings = Settings{
				RequiredEvaluators: evaluation.DefaultRequiredEvaluators,
				FiscalStartMonth:   DefaultFiscalStartMonth,
				Currency:           currency,
			}
			if settings.Currency == "" {
				settings.Currency = DefaultCurrency
			}
			return s.applyDefaults(ctx, tx, tenantID, settings)
		}
		if err != nil {
			return err
		}
		categories, err := tx.ListCategories(ctx, tenantID)
		if err != nil {
			return err
		}
		if len(categories) == 0 {
			return s.applyDefaults(ctx, tx, tenantID, settings)
		}
		return nil
	})
}

// EnsureSystemAdmin creates a SystemAdmin login in the tenant unless the
// email is already registered.
func (s *Service) EnsureSystemAdmin(ctx context.Context, tenantID, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return false, fmt.Errorf("%w: system admin email is invalid", ErrInvalidSettings)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return false, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	created := false
	err = s.store.InTx(ctx, func(tx StoreAPI) error {
		taken, err := tx.EmailInUse(ctx, email)
		if err != nil || taken {
			return err
		}
		roleIDs, err := tx.EnsureRoles(ctx, tenantID)
		if err != nil {
			return err
		}
		if _, err := tx.CreateUser(ctx, tenantID, email, email, hash, roleIDs[auth.RoleSystemAdmin]); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (s *Service) applyDefaults(ctx context.Context, tx StoreAPI, tenantID string, settings Settings) error {
	if err := tx.UpsertSettings(ctx, tenantID, settings); err != nil {
		return err
	}
	if err := tx.UpsertCategories(ctx, tenantID, DefaultCategories); err != nil {
		return err
	}
	existing, err := tx.ListCriteria(ctx, tenantID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, criterion := range DefaultCriteria {
			if _, err := tx.CreateCriterion(ctx, tenantID, criterion); err != nil {
				return err
			}
		}
	}
	thresholds, err := tx.ListThresholds(ctx, tenantID)
	if err != nil {
		return err
	}
	if len(thresholds) == 0 {
		return tx.ReplaceThresholds(ctx, tenantID, DefaultThresholds)
	}
	return nil
}

func (s *Service) TenantIDByName(ctx context.Context, name string) (string, error) {
	return s.store.TenantIDByName(ctx, name)
}

func (s *Service) ListTenants(ctx context.Context) ([]Tenant, error) {
	return s.store.ListTenants(ctx)
}

func (s *Service) ListTenantIDs(ctx context.Context) ([]string, error) {
	return s.store.ListTenantIDs(ctx)
}

func (s *Service) GetSettings(ctx context.Context, tenantID string) (Settings, error) {
	return s.store.GetSettings(ctx, tenantID)
}

func (s *Service) UpdateSettings(ctx context.Context, tenantID string, settings Settings) (Settings, error) {
	settings.Currency = strings.ToUpper(strings.TrimSpace(settings.Currency))
	settings.EmailFrom = strings.TrimSpace(settings.EmailFrom)
	if err := ValidateSettings(settings); err != nil {
		return Settings{}, err
	}
	if err := s.store.UpsertSettings(ctx, tenantID, settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func ValidateSettings(settings Settings) error {
	if settings.RequiredEvaluators < 1 || settings.RequiredEvaluators > MaxRequiredEvaluators {
		return fmt.Errorf("%w: required evaluators must be between 1 and %d", ErrInvalidSettings, MaxRequiredEvaluators)
	}
	if settings.FiscalStartMonth < 1 || settings.FiscalStartMonth > 12 {
		return fmt.Errorf("%w: fiscal start month must be between 1 and 12", ErrInvalidSettings)
	}
	if len(settings.Currency) != 3 || !money.ValidCurrency(settings.Currency) {
		return fmt.Errorf("%w: currency must be an ISO 4217 code", ErrInvalidSettings)
	}
	if settings.EmailFrom != "" {
		if _, err := mail.ParseAddress(settings.EmailFrom); err != nil {
			return fmt.Errorf("%w: email from address is invalid", ErrInvalidSettings)
		}
	}
	return nil
}

func (s *Service) ListCategories(ctx context.Context, tenantID string) ([]evaluation.Category, error) {
	return s.store.ListCategories(ctx, tenantID)
}

// UpdateCategories replaces the names and weights of the three categories.
// Blank names fall back to the stored ones.
func (s *Service) UpdateCategories(ctx context.Context, tenantID string, categories []evaluation.Category) ([]evaluation.Category, error) {
	if err := evaluation.ValidateWeights(categories); err != nil {
		return nil, err
	}
	var out []evaluation.Category
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		current, err := tx.ListCategories(ctx, tenantID)
		if err != nil {
			return err
		}
		names := map[string]string{}
		for _, c := range current {
			names[c.Code] = c.Name
		}
		updated := make([]evaluation.Category, 0, len(categories))
		for _, c := range categories {
			c.Name = strings.TrimSpace(c.Name)
			if c.Name == "" {
				c.Name = names[c.Code]
			}
			updated = append(updated, c)
		}
		if err := tx.UpsertCategories(ctx, tenantID, updated); err != nil {
			return err
		}
		out, err = tx.ListCategories(ctx, tenantID)
		return err
	})
	return out, err
}

func (s *Service) ListCriteria(ctx context.Context, tenantID string) ([]evaluation.Criterion, error) {
	return s.store.ListCriteria(ctx, tenantID)
}

func (s *Service) CreateCriterion(ctx context.Context, tenantID string, in CriterionInput) (evaluation.Criterion, error) {
	criterion, err := criterionFromInput(in, evaluation.Criterion{Active: true, MaxScore: evaluation.DefaultMaxScore})
	if err != nil {
		return evaluation.Criterion{}, err
	}
	id, err := s.store.CreateCriterion(ctx, tenantID, criterion)
	if err != nil {
		return evaluation.Criterion{}, err
	}
	criterion.ID = id
	return criterion, nil
}

func (s *Service) UpdateCriterion(ctx context.Context, tenantID, criterionID string, in CriterionInput) (evaluation.Criterion, error) {
	current, err := s.store.GetCriterion(ctx, tenantID, criterionID)
	if err != nil {
		return evaluation.Criterion{}, err
	}
	criterion, err := criterionFromInput(in, current)
	if err != nil {
		return evaluation.Criterion{}, err
	}
	if err := s.store.UpdateCriterion(ctx, tenantID, criterion); err != nil {
		return evaluation.Criterion{}, err
	}
	return criterion, nil
}

func (s *Service) DeleteCriterion(ctx context.Context, tenantID, criterionID string) (bool, error) {
	return s.store.DeleteCriterion(ctx, tenantID, criterionID)
}

func criterionFromInput(in CriterionInput, base evaluation.Criterion) (evaluation.Criterion, error) {
	out := base
	if code := strings.TrimSpace(in.CategoryCode); code != "" {
		out.CategoryCode = strings.ToLower(code)
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		out.Title = title
	}
	out.Description = strings.TrimSpace(in.Description)
	if in.MaxScore != 0 {
		out.MaxScore = in.MaxScore
	}
	out.SortOrder = in.SortOrder
	if in.Active != nil {
		out.Active = *in.Active
	}

	if !evaluation.IsCategoryCode(out.CategoryCode) {
		return evaluation.Criterion{}, fmt.Errorf("%w: unknown category %q", ErrInvalidCriterion, out.CategoryCode)
	}
	if out.Title == "" {
		return evaluation.Criterion{}, fmt.Errorf("%w: title is required", ErrInvalidCriterion)
	}
	if out.MaxScore < 1 || out.MaxScore > MaxCriterionScore {
		return evaluation.Criterion{}, fmt.Errorf("%w: max score must be between 1 and %d", ErrInvalidCriterion, MaxCriterionScore)
	}
	return out, nil
}

func (s *Service) ListThresholds(ctx context.Context, tenantID string) ([]evaluation.RankThreshold, error) {
	return s.store.ListThresholds(ctx, tenantID)
}

func (s *Service) ReplaceThresholds(ctx context.Context, tenantID string, thresholds []evaluation.RankThreshold) ([]evaluation.RankThreshold, error) {
	cleaned := make([]evaluation.RankThreshold, 0, len(thresholds))
	for _, t := range thresholds {
		t.Rank = strings.TrimSpace(t.Rank)
		cleaned = append(cleaned, t)
	}
	if err := evaluation.ValidateThresholds(cleaned); err != nil {
		return nil, err
	}
	var out []evaluation.RankThreshold
	err := s.store.InTx(ctx, func(tx StoreAPI) error {
		if err := tx.ReplaceThresholds(ctx, tenantID, cleaned); err != nil {
			return err
		}
		var err error
		out, err = tx.ListThresholds(ctx, tenantID)
		return err
	})
	return out, err
}
