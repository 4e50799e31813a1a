package users

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps users in process memory. Ids start at 1 and are never
// reused.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*User
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[int64]*User),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func clone(u *User) *User {
	c := *u
	c.Roles = append([]string{}, u.Roles...)
	if u.DisplayName != nil {
		name := *u.DisplayName
		c.DisplayName = &name
	}
	return &c
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []User{}
	for id := int64(1); id <= s.nextID && len(result) < limit; id++ {
		u, ok := s.byID[id]
		if !ok {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		result = append(result, *clone(u))
	}
	return result, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u := s.findEmailLocked(normalizeEmail(email)); u != nil {
		return clone(u), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) findEmailLocked(email string) *User {
	for _, u := range s.byID {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = normalizeEmail(u.Email)
	if s.findEmailLocked(u.Email) != nil {
		return ErrExists
	}
	u.Roles = normalizeRoles(u.Roles)
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.byID[u.ID] = clone(u)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, p Patch) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.apply(u)
	u.UpdatedAt = s.now()
	return clone(u), nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) SetPasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
