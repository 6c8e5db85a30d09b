package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"staffeval/internal/domain/evaluation"
	"staffeval/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) TenantContext(ctx context.Context, tenantID string) (TenantContext, error) {
	var tc TenantContext
	var startMonth int
	err := s.DB.QueryRow(ctx, `
    SELECT currency, fiscal_start_month, required_evaluators
    FROM tenant_settings
    WHERE tenant_id = $1
  `, tenantID).Scan(&tc.Currency, &startMonth, &tc.RequiredEvaluators)
	if errors.Is(err, pgx.ErrNoRows) {
		tc.Currency = "USD"
		startMonth = int(time.April)
		tc.RequiredEvaluators = evaluation.DefaultRequiredEvaluators
	} else if err != nil {
		return TenantContext{}, err
	}
	tc.FiscalStartMonth = time.Month(startMonth)

	rows, err := s.DB.Query(ctx, `
    SELECT rank, min_score::float8, reward_amount::float8
    FROM rank_thresholds
    WHERE tenant_id = $1
    ORDER BY min_score DESC
  `, tenantID)
	if err != nil {
		return TenantContext{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var t evaluation.RankThreshold
		if err := rows.Scan(&t.Rank, &t.MinScore, &t.RewardAmount); err != nil {
			return TenantContext{}, err
		}
		tc.Thresholds = append(tc.Thresholds, t)
	}
	return tc, rows.Err()
}

func (s *Store) ActiveStaff(ctx context.Context, tenantID string) ([]StaffRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, first_name || ' ' || last_name, department, COALESCE(user_id::text, '')
    FROM staff
    WHERE tenant_id = $1 AND status = 'active'
    ORDER BY last_name, first_name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaffRow
	for rows.Next() {
		var row StaffRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Department, &row.UserID); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) StaffByUserID(ctx context.Context, tenantID, userID string) (StaffRow, error) {
	var row StaffRow
	err := s.DB.QueryRow(ctx, `
    SELECT id, first_name || ' ' || last_name, department, COALESCE(user_id::text, '')
    FROM staff
    WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID).Scan(&row.ID, &row.Name, &row.Department, &row.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return StaffRow{}, ErrNoStaffRecord
	}
	return row, err
}

func (s *Store) Results(ctx context.Context, tenantID, staffID string, window evaluation.Window) ([]evaluation.Result, map[string]StaffRow, error) {
	query := `
    SELECT r.staff_id, s.first_name || ' ' || s.last_name, s.department, r.period, r.evaluator_count, r.required_evaluators,
           r.category_scores, r.total::float8, r.rank, r.reward_amount::float8, r.currency, r.finalized_at
    FROM evaluation_results r
    JOIN staff s ON s.id = r.staff_id
    WHERE r.tenant_id = $1 AND r.period >= $2 AND r.period < $3
  `
	args := []any{tenantID, window.From.Start(), window.To.Start()}
	if staffID != "" {
		args = append(args, staffID)
		query += fmt.Sprintf(" AND r.staff_id = $%d", len(args))
	}
	query += " ORDER BY r.period, r.staff_id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var out []evaluation.Result
	names := map[string]StaffRow{}
	for rows.Next() {
		var r evaluation.Result
		var row StaffRow
		var period, finalizedAt time.Time
		var categories []byte
		if err := rows.Scan(&r.StaffID, &row.Name, &row.Department, &period, &r.EvaluatorCount, &r.Required,
			&categories, &r.Total, &r.Rank, &r.RewardAmount, &r.Currency, &finalizedAt); err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal(categories, &r.Categories); err != nil {
			return nil, nil, err
		}
		r.Period = evaluation.PeriodOf(period)
		r.Status = evaluation.ResultStatusFinalized
		r.FinalizedAt = &finalizedAt
		row.ID = r.StaffID
		names[r.StaffID] = row
		out = append(out, r)
	}
	return out, names, rows.Err()
}

func (s *Store) SubmittedCounts(ctx context.Context, tenantID string, period evaluation.Period) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT staff_id, COUNT(1)
    FROM evaluations
    WHERE tenant_id = $1 AND period = $2 AND status = 'submitted'
    GROUP BY staff_id
  `, tenantID, period.Start())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var staffID string
		var count int
		if err := rows.Scan(&staffID, &count); err != nil {
			return nil, err
		}
		out[staffID] = count
	}
	return out, rows.Err()
}
