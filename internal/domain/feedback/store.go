package feedback

import (
	"context"
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

func (s *Store) StaffStatus(ctx context.Context, tenantID, staffID string) (string, string, error) {
	var userID, status string
	err := s.DB.QueryRow(ctx, "SELECT COALESCE(user_id::text, ''), status FROM staff WHERE tenant_id = $1 AND id = $2", tenantID, staffID).Scan(&userID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrStaffNotFound
	}
	return userID, status, err
}

// Upsert writes the author's feedback for the staff member and month. The
// boolean is true when a new row was inserted.
func (s *Store) Upsert(ctx context.Context, tenantID, authorID string, in Input) (string, bool, error) {
	var id string
	var created bool
	err := s.DB.QueryRow(ctx, `
    INSERT INTO feedback (tenant_id, staff_id, author_id, period, body, strengths, improvements)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (tenant_id, staff_id, author_id, period) DO UPDATE
      SET body = EXCLUDED.body,
          strengths = EXCLUDED.strengths,
          improvements = EXCLUDED.improvements,
          updated_at = now()
    RETURNING id, (xmax = 0)
  `, tenantID, in.StaffID, authorID, in.Period.Start(), in.Body, in.Strengths, in.Improvements).Scan(&id, &created)
	return id, created, err
}

const feedbackQuery = `
    SELECT f.id, f.staff_id, s.first_name || ' ' || s.last_name, f.author_id, COALESCE(u.display_name, u.email),
           f.period, f.body, f.strengths, f.improvements, f.created_at, f.updated_at
    FROM feedback f
    JOIN staff s ON s.id = f.staff_id
    JOIN users u ON u.id = f.author_id
    WHERE f.tenant_id = $1
`

func scanFeedback(row pgx.Row) (Feedback, error) {
	var f Feedback
	var period time.Time
	if err := row.Scan(&f.ID, &f.StaffID, &f.StaffName, &f.AuthorID, &f.AuthorName, &period, &f.Body, &f.Strengths, &f.Improvements, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return Feedback{}, err
	}
	f.Period = evaluation.PeriodOf(period)
	return f, nil
}

func (s *Store) Get(ctx context.Context, tenantID, feedbackID string) (Feedback, error) {
	f, err := scanFeedback(s.DB.QueryRow(ctx, feedbackQuery+" AND f.id = $2", tenantID, feedbackID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Feedback{}, ErrFeedbackNotFound
	}
	return f, err
}

func (s *Store) List(ctx context.Context, tenantID string, filter Filter) ([]Feedback, error) {
	query := feedbackQuery
	args := []any{tenantID}
	if filter.StaffID != "" {
		args = append(args, filter.StaffID)
		query += fmt.Sprintf(" AND f.staff_id = $%d", len(args))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		query += fmt.Sprintf(" AND f.author_id = $%d", len(args))
	}
	if filter.Period != nil {
		args = append(args, filter.Period.Start())
		query += fmt.Sprintf(" AND f.period = $%d", len(args))
	}
	query += " ORDER BY f.period DESC, f.updated_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
