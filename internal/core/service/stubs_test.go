package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Credential store
// ---------------------------------------------------------------------------

type stubStore struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	writes int

	findErr  error
	saveErr  error
	clearErr error
}

func newStubStore() *stubStore {
	return &stubStore{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (s *stubStore) find(match func(*domain.User) bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.byID {
		if u.DeletedAt.IsZero() && match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// walletTaken reports whether another user already holds wallet. Callers
// hold s.mu.
func (s *stubStore) walletTaken(id, wallet string) bool {
	if wallet == "" {
		return false
	}
	for _, u := range s.byID {
		if u.ID != id && u.WalletAddress == wallet {
			return true
		}
	}
	return false
}

func (s *stubStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.ID == id })
}

func (s *stubStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Email == email })
}

func (s *stubStore) FindByResetSelector(_ context.Context, selector string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return selector != "" && u.ResetSelector == selector })
}

func (s *stubStore) FindByVerificationSelector(_ context.Context, selector string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return selector != "" && u.VerificationSelector == selector })
}

func (s *stubStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	if s.walletTaken(user.ID, user.WalletAddress) {
		return domain.ErrWalletInUse
	}
	s.writes++
	s.byID[user.ID] = cloneUser(user)
	return nil
}

func (s *stubStore) Save(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	stored, ok := s.byID[user.ID]
	if !ok || !stored.DeletedAt.IsZero() {
		return domain.ErrUserNotFound
	}
	if s.walletTaken(user.ID, user.WalletAddress) {
		return domain.ErrWalletInUse
	}
	// Like the Mongo store, Save leaves the session and deletion state alone.
	next := cloneUser(user)
	next.RefreshTokenHash = stored.RefreshTokenHash
	next.DeletedAt = stored.DeletedAt
	s.writes++
	s.byID[user.ID] = next
	return nil
}

func (s *stubStore) List(_ context.Context, f ports.UserFilter) ([]*domain.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, 0, s.findErr
	}

	var matched []*domain.User
	for _, u := range s.byID {
		switch {
		case !u.DeletedAt.IsZero():
		case f.Role != "" && u.Role != f.Role:
		case !f.CreatedFrom.IsZero() && u.CreatedAt.Before(f.CreatedFrom):
		case !f.CreatedTo.IsZero() && !u.CreatedAt.Before(f.CreatedTo):
		default:
			matched = append(matched, cloneUser(u))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (s *stubStore) SoftDelete(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	u, ok := s.byID[id]
	if !ok || !u.DeletedAt.IsZero() {
		return domain.ErrUserNotFound
	}
	s.writes++
	u.DeletedAt = at
	u.RefreshTokenHash = ""
	return nil
}

func (s *stubStore) SetRefreshTokenHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if hash == "" && s.clearErr != nil {
		return s.clearErr
	}
	u, ok := s.byID[id]
	if !ok || !u.DeletedAt.IsZero() {
		return domain.ErrUserNotFound
	}
	s.writes++
	u.RefreshTokenHash = hash
	return nil
}

func (s *stubStore) SwapRefreshTokenHash(_ context.Context, id, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return false, s.saveErr
	}
	u, ok := s.byID[id]
	if !ok || !u.DeletedAt.IsZero() || u.RefreshTokenHash != expected {
		return false, nil
	}
	s.writes++
	u.RefreshTokenHash = next
	return true, nil
}

func (s *stubStore) get(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.byID[id])
}

func (s *stubStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

var errStoreDown = errors.New("connection refused")

// ---------------------------------------------------------------------------
// Limiter, cooldown, notifier
// ---------------------------------------------------------------------------

type stubLimiter struct {
	failures map[string]int
	max      int
	allowErr error
}

func newStubLimiter(max int) *stubLimiter {
	return &stubLimiter{failures: make(map[string]int), max: max}
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.allowErr != nil {
		return false, l.allowErr
	}
	return l.failures[key] < l.max, nil
}

func (l *stubLimiter) RecordFailure(_ context.Context, key string) error {
	l.failures[key]++
	return nil
}

func (l *stubLimiter) Reset(_ context.Context, key string) error {
	delete(l.failures, key)
	return nil
}

type stubCooldown struct {
	held map[string]bool
	err  error
}

func newStubCooldown() *stubCooldown {
	return &stubCooldown{held: make(map[string]bool)}
}

func (c *stubCooldown) Acquire(_ context.Context, key string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if c.held[key] {
		return false, nil
	}
	c.held[key] = true
	return true, nil
}

type stubNotifier struct {
	sent []domain.Notification
	err  error
}

func (n *stubNotifier) Notify(_ context.Context, msg domain.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *stubNotifier) last() domain.Notification {
	if len(n.sent) == 0 {
		return domain.Notification{}
	}
	return n.sent[len(n.sent)-1]
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
