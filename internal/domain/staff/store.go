package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"staffeval/internal/domain/auth"
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

func (s *Store) Create(ctx context.Context, tenantID, userID string, in Input) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO staff (tenant_id, user_id, employee_number, first_name, last_name, email, department, position, status, hired_on)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, tenantID, nullIfEmpty(userID), in.EmployeeNumber, in.FirstName, in.LastName, in.Email, in.Department, in.Position, StatusActive, in.HiredOn).Scan(&id)
	if isUniqueViolation(err) {
		return "", ErrEmailTaken
	}
	return id, err
}

func (s *Store) Update(ctx context.Context, tenantID, staffID string, in Input) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE staff
    SET employee_number = $1, first_name = $2, last_name = $3, email = $4, department = $5, position = $6, hired_on = $7, updated_at = now()
    WHERE tenant_id = $8 AND id = $9
  `, in.EmployeeNumber, in.FirstName, in.LastName, in.Email, in.Department, in.Position, in.HiredOn, tenantID, staffID)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

const staffColumns = `
    s.id, COALESCE(s.user_id::text, ''), s.employee_number, s.first_name, s.last_name, s.email,
    s.department, s.position, s.status, COALESCE(r.name, ''), s.hired_on, s.created_at
`

const staffJoins = `
    FROM staff s
    LEFT JOIN users u ON u.id = s.user_id
    LEFT JOIN roles r ON r.id = u.role_id
`

func scanStaff(row pgx.Row) (Staff, error) {
	var out Staff
	err := row.Scan(&out.ID, &out.UserID, &out.EmployeeNumber, &out.FirstName, &out.LastName, &out.Email, &out.Department, &out.Position, &out.Status, &out.Role, &out.HiredOn, &out.CreatedAt)
	return out, err
}

func (s *Store) Get(ctx context.Context, tenantID, staffID string) (Staff, error) {
	out, err := scanStaff(s.DB.QueryRow(ctx, "SELECT "+staffColumns+staffJoins+" WHERE s.tenant_id = $1 AND s.id = $2", tenantID, staffID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Staff{}, ErrStaffNotFound
	}
	return out, err
}

func buildFilter(tenantID string, filter Filter) (string, []any) {
	where := " WHERE s.tenant_id = $1"
	args := []any{tenantID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND s.status = $%d", len(args))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		where += fmt.Sprintf(" AND s.department = $%d", len(args))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		where += fmt.Sprintf(" AND (lower(s.first_name || ' ' || s.last_name) LIKE $%d OR lower(s.email) LIKE $%d)", len(args), len(args))
	}
	return where, args
}

func (s *Store) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Staff, error) {
	where, args := buildFilter(tenantID, filter)
	query := "SELECT " + staffColumns + staffJoins + where
	query += fmt.Sprintf(" ORDER BY s.last_name, s.first_name LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		member, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, tenantID string, filter Filter) (int, error) {
	where, args := buildFilter(tenantID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM staff s"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) SetStatus(ctx context.Context, tenantID, staffID, status string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE staff SET status = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3", status, tenantID, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

func (s *Store) IDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "SELECT id FROM staff WHERE tenant_id = $1 AND user_id = $2", tenantID, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrStaffNotFound
	}
	return id, err
}

func (s *Store) EmailInUse(ctx context.Context, tenantID, email, exceptStaffID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM staff
    WHERE tenant_id = $1 AND lower(email) = lower($2) AND id::text <> $3
  `, tenantID, email, exceptStaffID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RoleIDByName(ctx context.Context, tenantID, roleName string) (string, error) {
	return auth.NewStore(s.DB).RoleIDByName(ctx, tenantID, roleName)
}

func (s *Store) CreateUser(ctx context.Context, tenantID, email, displayName, passwordHash, roleID string) (string, error) {
	id, err := auth.NewStore(s.DB).CreateUser(ctx, tenantID, email, displayName, passwordHash, roleID)
	if isUniqueViolation(err) {
		return "", ErrEmailTaken
	}
	return id, err
}

func (s *Store) SetUserStatus(ctx context.Context, tenantID, userID, status string) error {
	return auth.NewStore(s.DB).SetUserStatus(ctx, tenantID, userID, status)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
