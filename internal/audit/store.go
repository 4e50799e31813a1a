package audit

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"
)

// Store persists audit entries. List returns the newest entries first.
type Store interface {
	Insert(ctx context.Context, e *Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, e *Entry) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO audit_log (occurred_at, event_type, user_id, credential_id, ip, user_agent, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	row := s.db.QueryRowContext(ctx, q,
		e.OccurredAt,
		string(e.EventType),
		e.UserID,
		e.CredentialID,
		e.IP,
		e.UserAgent,
		e.Detail,
	)
	return row.Scan(&e.ID)
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Entry, error) {
	const q = `
		SELECT id, occurred_at, event_type, user_id, credential_id, ip, user_agent, detail
		FROM audit_log ORDER BY occurred_at DESC, id DESC LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, q, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Entry{}
	for rows.Next() {
		var (
			e            Entry
			eventType    string
			userID       sql.NullInt64
			credentialID sql.NullInt64
			ip, ua, det  sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OccurredAt, &eventType, &userID, &credentialID, &ip, &ua, &det); err != nil {
			return nil, err
		}
		e.EventType = EventType(eventType)
		e.UserID = nullInt(userID)
		e.CredentialID = nullInt(credentialID)
		e.IP = nullString(ip)
		e.UserAgent = nullString(ua)
		e.Detail = nullString(det)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []Entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryStore) Insert(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
