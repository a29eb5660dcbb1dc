// Package memory is an in-process implementation of the repository
// contracts used by the service, handler and router tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/user-management-api/internal/model"
	"github.com/iliyamo/user-management-api/internal/repository"
)

// Store holds users and reset tokens behind a single mutex, which makes
// every operation (Redeem included) atomic.
type Store struct {
	mu      sync.Mutex
	nextID  uint64
	users   map[uint64]model.User
	byEmail map[string]uint64
	tokens  map[string]model.PasswordResetToken
	userTok map[uint64]string
	nowFunc func() time.Time
}

var (
	_ repository.UserStore       = (*Store)(nil)
	_ repository.ResetTokenStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:   map[uint64]model.User{},
		byEmail: map[string]uint64{},
		tokens:  map[string]model.PasswordResetToken{},
		userTok: map[uint64]string{},
		nowFunc: time.Now,
	}
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (s *Store) Create(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = strings.TrimSpace(u.Email)
	key := emailKey(u.Email)
	if _, ok := s.byEmail[key]; ok {
		return model.User{}, repository.ErrEmailExists
	}
	s.nextID++
	now := s.nowFunc().UTC().Truncate(time.Second)
	u.ID = s.nextID
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	s.byEmail[key] = u.ID
	return u, nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateProfile(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Email = strings.TrimSpace(u.Email)
	oldKey, newKey := emailKey(cur.Email), emailKey(u.Email)
	if oldKey != newKey {
		if _, taken := s.byEmail[newKey]; taken {
			return repository.ErrEmailExists
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = u.ID
	}
	u.PasswordHash = cur.PasswordHash
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.nowFunc().UTC().Truncate(time.Second)
	s.users[u.ID] = u
	return nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id uint64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPasswordLocked(id, hash)
}

func (s *Store) setPasswordLocked(id uint64, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.nowFunc().UTC().Truncate(time.Second)
	s.users[id] = u
	return nil
}

// Delete removes the user and, like the foreign key cascade, its token.
func (s *Store) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, emailKey(u.Email))
	if h, ok := s.userTok[id]; ok {
		delete(s.tokens, h)
		delete(s.userTok, id)
	}
	return nil
}

func (s *Store) Replace(_ context.Context, t model.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[t.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	if old, ok := s.userTok[t.UserID]; ok {
		delete(s.tokens, old)
	}
	if prev, ok := s.tokens[t.TokenHash]; ok && prev.UserID != t.UserID {
		delete(s.userTok, prev.UserID)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.nowFunc().UTC().Truncate(time.Second)
	}
	s.tokens[t.TokenHash] = t
	s.userTok[t.UserID] = t.TokenHash
	return nil
}

func (s *Store) Redeem(_ context.Context, tokenHash string, now time.Time, newHash func() (string, error)) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenHash]
	if !ok {
		return 0, repository.ErrResetTokenNotFound
	}
	if t.IsExpired(now) {
		s.dropTokenLocked(t)
		return t.UserID, repository.ErrResetTokenExpired
	}
	if _, ok := s.users[t.UserID]; !ok {
		return t.UserID, repository.ErrUserNotFound
	}
	hash, err := newHash()
	if err != nil {
		return t.UserID, err
	}
	if err := s.setPasswordLocked(t.UserID, hash); err != nil {
		return t.UserID, err
	}
	s.dropTokenLocked(t)
	return t.UserID, nil
}

func (s *Store) dropTokenLocked(t model.PasswordResetToken) {
	delete(s.tokens, t.TokenHash)
	if s.userTok[t.UserID] == t.TokenHash {
		delete(s.userTok, t.UserID)
	}
}

// ResetToken returns the token currently held for userID. Test helper.
func (s *Store) ResetToken(userID uint64) (model.PasswordResetToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.userTok[userID]
	if !ok {
		return model.PasswordResetToken{}, false
	}
	return s.tokens[h], true
}

// TokenCount reports how many reset tokens are stored.
func (s *Store) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
