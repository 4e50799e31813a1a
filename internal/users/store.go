package users

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

type Store interface {
	List(ctx context.Context, limit, offset int) ([]User, error)
	Get(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id int64, p Patch) (*User, error)
	Delete(ctx context.Context, id int64) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	Ping(ctx context.Context) error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, email, display_name, password_hash, is_active, roles, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u           User
		displayName sql.NullString
		roles       pq.StringArray
	)
	if err := row.Scan(&u.ID, &u.Email, &displayName, &u.PasswordHash, &u.IsActive,
		&roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if displayName.Valid {
		name := displayName.String
		u.DisplayName = &name
	}
	u.Roles = []string(roles)
	if u.Roles == nil {
		u.Roles = []string{}
	}
	return &u, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]User, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.db.QueryRowContext(ctx, q, normalizeEmail(email)))
}

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	u.Email = normalizeEmail(u.Email)
	u.Roles = normalizeRoles(u.Roles)
	now := time.Now().UTC()
	const q = `
		INSERT INTO users (email, display_name, password_hash, is_active, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, q,
		u.Email,
		u.DisplayName,
		u.PasswordHash,
		u.IsActive,
		pq.Array(u.Roles),
		now,
		now,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrExists
	}
	return err
}

func (s *PostgresStore) Update(ctx context.Context, id int64, p Patch) (*User, error) {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	if p.DisplayName != nil {
		sets = append(sets, "display_name = $"+itoa(idx))
		args = append(args, *p.DisplayName)
		idx++
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active = $"+itoa(idx))
		args = append(args, *p.IsActive)
		idx++
	}
	if p.Roles != nil {
		sets = append(sets, "roles = $"+itoa(idx))
		args = append(args, pq.Array(normalizeRoles(*p.Roles)))
		idx++
	}
	sets = append(sets, "updated_at = $"+itoa(idx))
	args = append(args, time.Now().UTC())
	idx++
	args = append(args, id)

	q := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = $" + itoa(idx) +
		" RETURNING " + userColumns
	return scanUser(s.db.QueryRowContext(ctx, q, args...))
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *PostgresStore) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	const q = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	res, err := s.db.ExecContext(ctx, q, hash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
