package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

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

// LockStaffPeriod serialises completion checks for one staff member and month
// until the surrounding transaction ends.
func (s *Store) LockStaffPeriod(ctx context.Context, tenantID, staffID string, period Period) error {
	_, err := s.DB.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", tenantID+":"+staffID+":"+period.String())
	return err
}

func (s *Store) LoadConfig(ctx context.Context, tenantID string) (Config, error) {
	var cfg Config
	if err := s.DB.QueryRow(ctx, `
    SELECT required_evaluators, currency
    FROM tenant_settings
    WHERE tenant_id = $1
  `, tenantID).Scan(&cfg.Settings.RequiredEvaluators, &cfg.Settings.Currency); err != nil {
		return Config{}, fmt.Errorf("load settings: %w", err)
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, code, name, weight::float8
    FROM evaluation_categories
    WHERE tenant_id = $1
    ORDER BY CASE code WHEN 'performance' THEN 1 WHEN 'behavior' THEN 2 ELSE 3 END
  `, tenantID)
	if err != nil {
		return Config{}, err
	}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Weight); err != nil {
			rows.Close()
			return Config{}, err
		}
		cfg.Categories = append(cfg.Categories, c)
	}
	rows.Close()

	rows, err = s.DB.Query(ctx, `
    SELECT id, category_code, title, description, max_score, sort_order, active
    FROM evaluation_criteria
    WHERE tenant_id = $1
    ORDER BY category_code, sort_order, title
  `, tenantID)
	if err != nil {
		return Config{}, err
	}
	for rows.Next() {
		var c Criterion
		if err := rows.Scan(&c.ID, &c.CategoryCode, &c.Title, &c.Description, &c.MaxScore, &c.SortOrder, &c.Active); err != nil {
			rows.Close()
			return Config{}, err
		}
		cfg.Criteria = append(cfg.Criteria, c)
	}
	rows.Close()

	rows, err = s.DB.Query(ctx, `
    SELECT rank, min_score::float8, reward_amount::float8
    FROM rank_thresholds
    WHERE tenant_id = $1
    ORDER BY min_score DESC
  `, tenantID)
	if err != nil {
		return Config{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var t RankThreshold
		if err := rows.Scan(&t.Rank, &t.MinScore, &t.RewardAmount); err != nil {
			return Config{}, err
		}
		cfg.Thresholds = append(cfg.Thresholds, t)
	}
	return cfg, rows.Err()
}

func (s *Store) StaffRef(ctx context.Context, tenantID, staffID string) (StaffRef, error) {
	var ref StaffRef
	err := s.DB.QueryRow(ctx, `
    SELECT id, first_name || ' ' || last_name, COALESCE(user_id::text, ''), status
    FROM staff
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, staffID).Scan(&ref.ID, &ref.Name, &ref.UserID, &ref.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return StaffRef{}, ErrStaffNotFound
	}
	return ref, err
}

func (s *Store) ListActiveStaff(ctx context.Context, tenantID string) ([]StaffRef, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, first_name || ' ' || last_name, COALESCE(user_id::text, ''), status
    FROM staff
    WHERE tenant_id = $1 AND status = 'active'
    ORDER BY last_name, first_name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaffRef
	for rows.Next() {
		var ref StaffRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.UserID, &ref.Status); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

const evaluationColumns = `
    e.id, e.staff_id, s.first_name || ' ' || s.last_name, e.evaluator_id, COALESCE(u.display_name, u.email),
    e.period, e.status, e.comment, e.category_scores, e.total::float8, e.submitted_at, e.updated_at
`

const evaluationJoins = `
    FROM evaluations e
    JOIN staff s ON s.id = e.staff_id
    JOIN users u ON u.id = e.evaluator_id
`

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var e Evaluation
	var period time.Time
	var categories []byte
	var total *float64
	if err := row.Scan(&e.ID, &e.StaffID, &e.StaffName, &e.EvaluatorID, &e.EvaluatorName, &period, &e.Status, &e.Comment, &categories, &total, &e.SubmittedAt, &e.UpdatedAt); err != nil {
		return Evaluation{}, err
	}
	e.Period = PeriodOf(period)
	if len(categories) > 0 && total != nil {
		b := Breakdown{Total: *total}
		if err := json.Unmarshal(categories, &b.Categories); err != nil {
			return Evaluation{}, err
		}
		e.Breakdown = &b
	}
	return e, nil
}

func (s *Store) GetEvaluation(ctx context.Context, tenantID, evaluationID string) (Evaluation, error) {
	e, err := scanEvaluation(s.DB.QueryRow(ctx, "SELECT "+evaluationColumns+evaluationJoins+" WHERE e.tenant_id = $1 AND e.id = $2", tenantID, evaluationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrEvaluationNotFound
	}
	if err != nil {
		return Evaluation{}, err
	}
	e.Scores, err = s.scores(ctx, e.ID)
	return e, err
}

func (s *Store) FindEvaluation(ctx context.Context, tenantID, staffID, evaluatorID string, period Period) (Evaluation, error) {
	e, err := scanEvaluation(s.DB.QueryRow(ctx, "SELECT "+evaluationColumns+evaluationJoins+`
    WHERE e.tenant_id = $1 AND e.staff_id = $2 AND e.evaluator_id = $3 AND e.period = $4
  `, tenantID, staffID, evaluatorID, period.Start()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrEvaluationNotFound
	}
	if err != nil {
		return Evaluation{}, err
	}
	e.Scores, err = s.scores(ctx, e.ID)
	return e, err
}

func (s *Store) scores(ctx context.Context, evaluationID string) ([]Score, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT criterion_id, value::float8
    FROM evaluation_scores
    WHERE evaluation_id = $1
    ORDER BY criterion_id
  `, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := []Score{}
	for rows.Next() {
		var score Score
		if err := rows.Scan(&score.CriterionID, &score.Value); err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// UpsertDraft creates the evaluation or updates its comment. Submitted rows
// are left untouched and reported as ErrAlreadySubmitted.
func (s *Store) UpsertDraft(ctx context.Context, tenantID, staffID, evaluatorID string, period Period, comment string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO evaluations (tenant_id, staff_id, evaluator_id, period, status, comment)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (tenant_id, staff_id, evaluator_id, period) DO UPDATE
      SET comment = EXCLUDED.comment, updated_at = now()
      WHERE evaluations.status = $5
    RETURNING id
  `, tenantID, staffID, evaluatorID, period.Start(), StatusDraft, comment).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrAlreadySubmitted
	}
	return id, err
}

func (s *Store) ReplaceScores(ctx context.Context, evaluationID string, scores []Score) error {
	if _, err := s.DB.Exec(ctx, "DELETE FROM evaluation_scores WHERE evaluation_id = $1", evaluationID); err != nil {
		return err
	}
	for _, score := range scores {
		if _, err := s.DB.Exec(ctx, `
      INSERT INTO evaluation_scores (evaluation_id, criterion_id, value)
      VALUES ($1,$2,$3)
    `, evaluationID, score.CriterionID, score.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) MarkSubmitted(ctx context.Context, tenantID, evaluationID string, breakdown Breakdown, at time.Time) error {
	categories, err := json.Marshal(breakdown.Categories)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET status = $1, category_scores = $2, total = $3, submitted_at = $4, updated_at = now()
    WHERE tenant_id = $5 AND id = $6 AND status = $7
  `, StatusSubmitted, categories, breakdown.Total, at, tenantID, evaluationID, StatusDraft)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadySubmitted
	}
	return nil
}

func (s *Store) MarkDraft(ctx context.Context, tenantID, evaluationID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET status = $1, category_scores = NULL, total = NULL, submitted_at = NULL, updated_at = now()
    WHERE tenant_id = $2 AND id = $3 AND status = $4
  `, StatusDraft, tenantID, evaluationID, StatusSubmitted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotSubmitted
	}
	return nil
}

func (s *Store) SubmittedScoreSets(ctx context.Context, tenantID, staffID string, period Period) ([][]Score, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id, sc.criterion_id, sc.value::float8
    FROM evaluations e
    JOIN evaluation_scores sc ON sc.evaluation_id = e.id
    WHERE e.tenant_id = $1 AND e.staff_id = $2 AND e.period = $3 AND e.status = $4
    ORDER BY e.submitted_at, e.id
  `, tenantID, staffID, period.Start(), StatusSubmitted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets [][]Score
	current := ""
	for rows.Next() {
		var id string
		var score Score
		if err := rows.Scan(&id, &score.CriterionID, &score.Value); err != nil {
			return nil, err
		}
		if id != current {
			sets = append(sets, nil)
			current = id
		}
		sets[len(sets)-1] = append(sets[len(sets)-1], score)
	}
	return sets, rows.Err()
}

func (s *Store) UpsertResult(ctx context.Context, tenantID string, result Result) error {
	categories, err := json.Marshal(result.Categories)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO evaluation_results (tenant_id, staff_id, period, evaluator_count, required_evaluators, category_scores, total, rank, reward_amount, currency, finalized_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    ON CONFLICT (tenant_id, staff_id, period) DO UPDATE
      SET evaluator_count = EXCLUDED.evaluator_count,
          required_evaluators = EXCLUDED.required_evaluators,
          category_scores = EXCLUDED.category_scores,
          total = EXCLUDED.total,
          rank = EXCLUDED.rank,
          reward_amount = EXCLUDED.reward_amount,
          currency = EXCLUDED.currency,
          finalized_at = EXCLUDED.finalized_at
  `, tenantID, result.StaffID, result.Period.Start(), result.EvaluatorCount, result.Required, categories, result.Total, result.Rank, result.RewardAmount, result.Currency, result.FinalizedAt)
	return err
}

func (s *Store) DeleteResult(ctx context.Context, tenantID, staffID string, period Period) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM evaluation_results WHERE tenant_id = $1 AND staff_id = $2 AND period = $3", tenantID, staffID, period.Start())
	return err
}

func (s *Store) GetResult(ctx context.Context, tenantID, staffID string, period Period) (Result, error) {
	var r Result
	var p time.Time
	var categories []byte
	var finalizedAt time.Time
	err := s.DB.QueryRow(ctx, `
    SELECT staff_id, period, evaluator_count, required_evaluators, category_scores, total::float8, rank, reward_amount::float8, currency, finalized_at
    FROM evaluation_results
    WHERE tenant_id = $1 AND staff_id = $2 AND period = $3
  `, tenantID, staffID, period.Start()).Scan(&r.StaffID, &p, &r.EvaluatorCount, &r.Required, &categories, &r.Total, &r.Rank, &r.RewardAmount, &r.Currency, &finalizedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Result{}, ErrResultNotFound
	}
	if err != nil {
		return Result{}, err
	}
	if err := json.Unmarshal(categories, &r.Categories); err != nil {
		return Result{}, err
	}
	r.Period = PeriodOf(p)
	r.Status = ResultStatusFinalized
	r.FinalizedAt = &finalizedAt
	return r, nil
}

func (s *Store) ListEvaluations(ctx context.Context, tenantID string, filter Filter) ([]Evaluation, error) {
	query := "SELECT " + evaluationColumns + evaluationJoins + " WHERE e.tenant_id = $1"
	args := []any{tenantID}
	if filter.StaffID != "" {
		args = append(args, filter.StaffID)
		query += fmt.Sprintf(" AND e.staff_id = $%d", len(args))
	}
	if filter.EvaluatorID != "" {
		args = append(args, filter.EvaluatorID)
		query += fmt.Sprintf(" AND e.evaluator_id = $%d", len(args))
	}
	if filter.Period != nil {
		args = append(args, filter.Period.Start())
		query += fmt.Sprintf(" AND e.period = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND e.status = $%d", len(args))
	}
	query += " ORDER BY e.period DESC, s.last_name, s.first_name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EvaluatorStatuses maps staff id to the evaluator's evaluation status for
// the period.
func (s *Store) EvaluatorStatuses(ctx context.Context, tenantID, evaluatorID string, period Period) (map[string]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT staff_id, status
    FROM evaluations
    WHERE tenant_id = $1 AND evaluator_id = $2 AND period = $3
  `, tenantID, evaluatorID, period.Start())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var staffID, status string
		if err := rows.Scan(&staffID, &status); err != nil {
			return nil, err
		}
		out[staffID] = status
	}
	return out, rows.Err()
}

// EvaluatorsMissing maps admin user id to the number of active staff that
// admin has not submitted an evaluation for in the period. The admin's own
// staff record is excluded.
func (s *Store) EvaluatorsMissing(ctx context.Context, tenantID string, period Period) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.id, COUNT(st.id)
    FROM users u
    JOIN roles r ON r.id = u.role_id AND r.name = 'Admin'
    JOIN staff st ON st.tenant_id = u.tenant_id AND st.status = 'active' AND st.user_id IS DISTINCT FROM u.id
    LEFT JOIN evaluations e ON e.tenant_id = u.tenant_id AND e.staff_id = st.id AND e.evaluator_id = u.id
      AND e.period = $2 AND e.status = 'submitted'
    WHERE u.tenant_id = $1 AND u.status = 'active' AND e.id IS NULL
    GROUP BY u.id
  `, tenantID, period.Start())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var userID string
		var count int
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		out[userID] = count
	}
	return out, rows.Err()
}
