package credentials

import (
	"context"
	"database/sql"
	"time"
)

type Store interface {
	Create(ctx context.Context, c *Credential) error
	// List returns credentials newest first, all of them when userID is nil.
	List(ctx context.Context, userID *int64) ([]Credential, error)
	// Revoke fails with ErrNotFound for unknown or already revoked ids.
	Revoke(ctx context.Context, id int64) error
	DeleteForUser(ctx context.Context, userID int64) error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *Credential) error {
	const q = `
		INSERT INTO credentials (user_id, label, hash, alg, revoked, created_at, expires_at)
		VALUES ($1, $2, $3, $4, false, $5, $6)
		RETURNING id, created_at
	`
	row := s.db.QueryRowContext(ctx, q,
		c.UserID,
		c.Label,
		c.Hash,
		c.Alg,
		time.Now().UTC(),
		c.ExpiresAt,
	)
	return row.Scan(&c.ID, &c.CreatedAt)
}

func (s *PostgresStore) List(ctx context.Context, userID *int64) ([]Credential, error) {
	query := "SELECT id, user_id, label, hash, alg, revoked, revoked_at, created_at, expires_at FROM credentials"
	args := []interface{}{}
	if userID != nil {
		query += " WHERE user_id = $1"
		args = append(args, *userID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Credential{}
	for rows.Next() {
		var (
			c         Credential
			label     sql.NullString
			revokedAt sql.NullTime
			expiresAt sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.UserID, &label, &c.Hash, &c.Alg, &c.Revoked,
			&revokedAt, &c.CreatedAt, &expiresAt); err != nil {
			return nil, err
		}
		if label.Valid {
			c.Label = &label.String
		}
		if revokedAt.Valid {
			c.RevokedAt = &revokedAt.Time
		}
		if expiresAt.Valid {
			c.ExpiresAt = &expiresAt.Time
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, id int64) error {
	const q = `UPDATE credentials SET revoked = true, revoked_at = $1 WHERE id = $2 AND revoked = false`
	res, err := s.db.ExecContext(ctx, q, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteForUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID)
	return err
}

// LabelActive reports whether userID has an unrevoked credential with label.
func LabelActive(ctx context.Context, store Store, userID int64, label string) (bool, error) {
	list, err := store.List(ctx, &userID)
	if err != nil {
		return false, err
	}
	for _, c := range list {
		if !c.Revoked && c.Label != nil && *c.Label == label {
			return true, nil
		}
	}
	return false, nil
}
