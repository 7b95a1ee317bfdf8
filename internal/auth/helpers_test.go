package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/NatesHonor/apisite/internal/models"
	"github.com/NatesHonor/apisite/internal/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// stubAccounts is an in-memory AccountStore for tests.
type stubAccounts struct {
	mu       sync.Mutex
	byEmail  map[string]*models.Account
	nextID   int64
	failWith error
}

func newStubAccounts() *stubAccounts {
	return &stubAccounts{byEmail: make(map[string]*models.Account), nextID: 1}
}

func (s *stubAccounts) Create(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.byEmail[account.Email]; ok {
		return store.ErrEmailTaken
	}
	account.ID = s.nextID
	s.nextID++
	copied := *account
	s.byEmail[account.Email] = &copied
	return nil
}

func (s *stubAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	account, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *stubAccounts) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.byEmail {
		if account.ID == id {
			copied := *account
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubAccounts) SetVerified(ctx context.Context, email string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byEmail[email]
	if !ok {
		return store.ErrNotFound
	}
	account.Verified = verified
	return nil
}

func (s *stubAccounts) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.byEmail)), nil
}

// fakeMailer records dispatched verification links.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []string // links, in dispatch order
	fail  bool
	to    []string
}

func (m *fakeMailer) SendVerification(ctx context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.to = append(m.to, to)
	m.sent = append(m.sent, link)
	return nil
}

func (m *fakeMailer) lastLink() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) lastTo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.to) == 0 {
		return ""
	}
	return m.to[len(m.to)-1]
}

func (m *fakeMailer) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// newTestRedis starts a miniredis instance and returns a client bound to it.
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}
