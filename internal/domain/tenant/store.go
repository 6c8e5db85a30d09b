package tenant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"staffeval/internal/domain/auth"
	"staffeval/internal/domain/evaluation"
	"staffeval/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx StoreAPI) error) error {
	return querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		return fn(&Store{DB: q})
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) CreateTenant(ctx context.Context, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if isUniqueViolation(err) {
		return "", ErrTenantExists
	}
	return id, err
}

func (s *Store) TenantIDByName(ctx context.Context, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrTenantNotFound
	}
	return id, err
}

func (s *Store) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT t.id, t.name, t.created_at,
           (SELECT COUNT(1) FROM staff st WHERE st.tenant_id = t.id AND st.status = 'active')
    FROM tenants t
    ORDER BY t.name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.StaffCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT id FROM tenants ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) GetSettings(ctx context.Context, tenantID string) (Settings, error) {
	var out Settings
	err := s.DB.QueryRow(ctx, `
    SELECT required_evaluators, fiscal_start_month, currency, email_notifications_enabled, COALESCE(email_from, '')
    FROM tenant_settings
    WHERE tenant_id = $1
  `, tenantID).Scan(&out.RequiredEvaluators, &out.FiscalStartMonth, &out.Currency, &out.EmailNotificationsEnabled, &out.EmailFrom)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, ErrTenantNotFound
	}
	return out, err
}

func (s *Store) UpsertSettings(ctx context.Context, tenantID string, settings Settings) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO tenant_settings (tenant_id, required_evaluators, fiscal_start_month, currency, email_notifications_enabled, email_from)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (tenant_id) DO UPDATE
      SET required_evaluators = EXCLUDED.required_evaluators,
          fiscal_start_month = EXCLUDED.fiscal_start_month,
          currency = EXCLUDED.currency,
          email_notifications_enabled = EXCLUDED.email_notifications_enabled,
          email_from = EXCLUDED.email_from,
          updated_at = now()
  `, tenantID, settings.RequiredEvaluators, settings.FiscalStartMonth, settings.Currency, settings.EmailNotificationsEnabled, nullIfEmpty(settings.EmailFrom))
	return err
}

func (s *Store) ListCategories(ctx context.Context, tenantID string) ([]evaluation.Category, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, code, name, weight::float8
    FROM evaluation_categories
    WHERE tenant_id = $1
    ORDER BY CASE code WHEN 'performance' THEN 1 WHEN 'behavior' THEN 2 ELSE 3 END
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.Category
	for rows.Next() {
		var c evaluation.Category
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Weight); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpsertCategories(ctx context.Context, tenantID string, categories []evaluation.Category) error {
	for _, c := range categories {
		if _, err := s.DB.Exec(ctx, `
      INSERT INTO evaluation_categories (tenant_id, code, name, weight)
      VALUES ($1,$2,$3,$4)
      ON CONFLICT (tenant_id, code) DO UPDATE
        SET name = EXCLUDED.name, weight = EXCLUDED.weight
    `, tenantID, c.Code, c.Name, c.Weight); err != nil {
			return err
		}
	}
	return nil
}

const criterionColumns = "id, category_code, title, description, max_score, sort_order, active"

func scanCriterion(row pgx.Row) (evaluation.Criterion, error) {
	var c evaluation.Criterion
	err := row.Scan(&c.ID, &c.CategoryCode, &c.Title, &c.Description, &c.MaxScore, &c.SortOrder, &c.Active)
	return c, err
}

func (s *Store) ListCriteria(ctx context.Context, tenantID string) ([]evaluation.Criterion, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+criterionColumns+" FROM evaluation_criteria WHERE tenant_id = $1 ORDER BY category_code, sort_order, title", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.Criterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCriterion(ctx context.Context, tenantID, criterionID string) (evaluation.Criterion, error) {
	c, err := scanCriterion(s.DB.QueryRow(ctx, "SELECT "+criterionColumns+" FROM evaluation_criteria WHERE tenant_id = $1 AND id = $2", tenantID, criterionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return evaluation.Criterion{}, ErrCriterionNotFound
	}
	return c, err
}

func (s *Store) CreateCriterion(ctx context.Context, tenantID string, c evaluation.Criterion) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO evaluation_criteria (tenant_id, category_code, title, description, max_score, sort_order, active)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, c.CategoryCode, c.Title, c.Description, c.MaxScore, c.SortOrder, c.Active).Scan(&id)
	return id, err
}

func (s *Store) UpdateCriterion(ctx context.Context, tenantID string, c evaluation.Criterion) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluation_criteria
    SET category_code = $1, title = $2, description = $3, max_score = $4, sort_order = $5, active = $6
    WHERE tenant_id = $7 AND id = $8
  `, c.CategoryCode, c.Title, c.Description, c.MaxScore, c.SortOrder, c.Active, tenantID, c.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCriterionNotFound
	}
	return nil
}

// DeleteCriterion removes a criterion that was never scored. Scored criteria
// are deactivated instead so past evaluations keep their rows; the boolean
// reports whether the row was removed.
func (s *Store) DeleteCriterion(ctx context.Context, tenantID, criterionID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM evaluation_criteria c
    WHERE c.tenant_id = $1 AND c.id = $2
      AND NOT EXISTS (SELECT 1 FROM evaluation_scores sc WHERE sc.criterion_id = c.id)
  `, tenantID, criterionID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	tag, err = s.DB.Exec(ctx, "UPDATE evaluation_criteria SET active = false WHERE tenant_id = $1 AND id = $2", tenantID, criterionID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, ErrCriterionNotFound
	}
	return false, nil
}

func (s *Store) ListThresholds(ctx context.Context, tenantID string) ([]evaluation.RankThreshold, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT rank, min_score::float8, reward_amount::float8
    FROM rank_thresholds
    WHERE tenant_id = $1
    ORDER BY min_score DESC
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.RankThreshold
	for rows.Next() {
		var t evaluation.RankThreshold
		if err := rows.Scan(&t.Rank, &t.MinScore, &t.RewardAmount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ReplaceThresholds(ctx context.Context, tenantID string, thresholds []evaluation.RankThreshold) error {
	if _, err := s.DB.Exec(ctx, "DELETE FROM rank_thresholds WHERE tenant_id = $1", tenantID); err != nil {
		return err
	}
	for _, t := range thresholds {
		if _, err := s.DB.Exec(ctx, `
      INSERT INTO rank_thresholds (tenant_id, rank, min_score, reward_amount)
      VALUES ($1,$2,$3,$4)
    `, tenantID, t.Rank, t.MinScore, t.RewardAmount); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) EmailInUse(ctx context.Context, email string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE lower(email) = lower($1)", email).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) EnsureRoles(ctx context.Context, tenantID string) (map[string]string, error) {
	authStore := auth.NewStore(s.DB)
	if err := authStore.EnsurePermissions(ctx); err != nil {
		return nil, err
	}
	return authStore.EnsureRoles(ctx, tenantID)
}

func (s *Store) CreateUser(ctx context.Context, tenantID, email, displayName, passwordHash, roleID string) (string, error) {
	id, err := auth.NewStore(s.DB).CreateUser(ctx, tenantID, email, displayName, passwordHash, roleID)
	if isUniqueViolation(err) {
		return "", ErrEmailTaken
	}
	return id, err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
