package credentials

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]Credential
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[int64]Credential),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = s.now()
	c.Revoked = false
	c.RevokedAt = nil
	s.byID[c.ID] = *c
	return nil
}

func (s *MemoryStore) List(_ context.Context, userID *int64) ([]Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []Credential{}
	for _, c := range s.byID {
		if userID != nil && c.UserID != *userID {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) Revoke(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok || c.Revoked {
		return ErrNotFound
	}
	now := s.now()
	c.Revoked = true
	c.RevokedAt = &now
	s.byID[id] = c
	return nil
}

func (s *MemoryStore) DeleteForUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.byID {
		if c.UserID == userID {
			delete(s.byID, id)
		}
	}
	return nil
}
