package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/repository"
)

// MemoryAccounts is an in-process AccountStore for local development and tests.
type MemoryAccounts struct {
	mu   sync.RWMutex
	byID map[string]models.Account
	now  func() time.Time
}

var _ AccountStore = (*MemoryAccounts)(nil)

// NewMemoryAccounts creates an empty MemoryAccounts.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{byID: make(map[string]models.Account), now: time.Now}
}

func (m *MemoryAccounts) Create(_ context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account.Email = strings.ToLower(account.Email)
	for _, a := range m.byID {
		if a.Email == account.Email {
			return repository.ErrEmailTaken
		}
	}
	account.CreatedAt = m.now()
	account.UpdatedAt = account.CreatedAt
	m.byID[account.ID] = *account
	return nil
}

func (m *MemoryAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	return m.find(func(a models.Account) bool { return a.ID == id })
}

func (m *MemoryAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	email = strings.ToLower(email)
	return m.find(func(a models.Account) bool { return a.Email == email })
}

func (m *MemoryAccounts) GetByGoogleSubject(_ context.Context, subject string) (*models.Account, error) {
	return m.find(func(a models.Account) bool { return subject != "" && a.GoogleSubject == subject })
}

func (m *MemoryAccounts) LinkGoogle(_ context.Context, id, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.GoogleSubject = subject
	a.UpdatedAt = m.now()
	m.byID[id] = a
	return nil
}

func (m *MemoryAccounts) find(match func(models.Account) bool) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.byID {
		if match(a) {
			return &a, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

// MemorySessions is an in-process SessionStore for local development and tests.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]models.SessionRecord
	now      func() time.Time
}

var _ SessionStore = (*MemorySessions)(nil)

// NewMemorySessions creates an empty MemorySessions.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]models.SessionRecord), now: time.Now}
}

func (m *MemorySessions) Create(_ context.Context, s *models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = m.now()
	m.sessions[s.TokenHash] = *s
	return nil
}

func (m *MemorySessions) Get(_ context.Context, tokenHash string) (*models.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenHash]
	if !ok || s.Expired(m.now()) {
		return nil, repository.ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemorySessions) Delete(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

func (m *MemorySessions) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var n int64
	for k, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}
