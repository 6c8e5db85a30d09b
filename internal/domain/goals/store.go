package goals

import (
	"context"
	"errors"
	"fmt"

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

// LockQuarter serialises goal creation for one staff member and quarter
// until the surrounding transaction ends.
func (s *Store) LockQuarter(ctx context.Context, tenantID, staffID string, year, quarter int) error {
	_, err := s.DB.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", fmt.Sprintf("goals:%s:%s:%d:%d", tenantID, staffID, year, quarter))
	return err
}

func (s *Store) CountForQuarter(ctx context.Context, tenantID, staffID string, year, quarter int) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM goals
    WHERE tenant_id = $1 AND staff_id = $2 AND year = $3 AND quarter = $4
  `, tenantID, staffID, year, quarter).Scan(&count)
	return count, err
}

func (s *Store) Create(ctx context.Context, tenantID, staffID string, goal Goal) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO goals (tenant_id, staff_id, year, quarter, title, description, target, progress, status, self_comment)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, tenantID, staffID, goal.Year, goal.Quarter, goal.Title, goal.Description, goal.Target, goal.Progress, goal.Status, goal.SelfComment).Scan(&id)
	return id, err
}

const goalColumns = `
    g.id, g.staff_id, s.first_name || ' ' || s.last_name, g.year, g.quarter, g.title, g.description, g.target,
    g.progress::float8, g.status, g.self_comment, g.review_comment, COALESCE(g.reviewed_by::text, ''), g.reviewed_at, g.updated_at
`

func scanGoal(row pgx.Row) (Goal, error) {
	var g Goal
	err := row.Scan(&g.ID, &g.StaffID, &g.StaffName, &g.Year, &g.Quarter, &g.Title, &g.Description, &g.Target, &g.Progress, &g.Status, &g.SelfComment, &g.ReviewComment, &g.ReviewedBy, &g.ReviewedAt, &g.UpdatedAt)
	return g, err
}

func (s *Store) Get(ctx context.Context, tenantID, goalID string) (Goal, error) {
	g, err := scanGoal(s.DB.QueryRow(ctx, "SELECT "+goalColumns+" FROM goals g JOIN staff s ON s.id = g.staff_id WHERE g.tenant_id = $1 AND g.id = $2", tenantID, goalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrGoalNotFound
	}
	return g, err
}

// Update writes the goal only while it still has fromStatus, so a concurrent
// status change is never overwritten.
func (s *Store) Update(ctx context.Context, tenantID string, goal Goal, fromStatus string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goals
    SET title = $1, description = $2, target = $3, progress = $4, status = $5, self_comment = $6, updated_at = now()
    WHERE tenant_id = $7 AND id = $8 AND status = $9
  `, goal.Title, goal.Description, goal.Target, goal.Progress, goal.Status, goal.SelfComment, tenantID, goal.ID, fromStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

func (s *Store) SetReview(ctx context.Context, tenantID, goalID, fromStatus, toStatus, comment, reviewerID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goals
    SET status = $1, review_comment = $2, reviewed_by = $3, reviewed_at = now(), updated_at = now()
    WHERE tenant_id = $4 AND id = $5 AND status = $6
  `, toStatus, comment, reviewerID, tenantID, goalID, fromStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

func (s *Store) List(ctx context.Context, tenantID string, filter Filter) ([]Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals g JOIN staff s ON s.id = g.staff_id WHERE g.tenant_id = $1"
	args := []any{tenantID}
	if filter.StaffID != "" {
		args = append(args, filter.StaffID)
		query += fmt.Sprintf(" AND g.staff_id = $%d", len(args))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		query += fmt.Sprintf(" AND g.year = $%d", len(args))
	}
	if filter.Quarter != 0 {
		args = append(args, filter.Quarter)
		query += fmt.Sprintf(" AND g.quarter = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND g.status = $%d", len(args))
	}
	query += " ORDER BY g.year DESC, g.quarter DESC, s.last_name, g.created_at"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) StaffUserID(ctx context.Context, tenantID, staffID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, "SELECT COALESCE(user_id::text, '') FROM staff WHERE tenant_id = $1 AND id = $2", tenantID, staffID).Scan(&userID)
	return userID, err
}
