package auth_test

import (
	"context"
	"strings"
	"sync"

	"github.com/daap14/turnstile/internal/auth"
)

type memUsers struct {
	mu     sync.Mutex
	users  []auth.User
	getErr error
}

func (m *memUsers) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return auth.ErrDuplicateUser
		}
	}
	u.ID = int64(len(m.users) + 1)
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	u.IsActive, u.IsBanned = true, false
	m.users = append(m.users, *u)
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if strings.EqualFold(m.users[i].Email, email) {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *memUsers) FindByPrefix(_ context.Context, prefix string) ([]auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []auth.User{}
	for _, u := range m.users {
		if u.APIKeyPrefix != nil && *u.APIKeyPrefix == prefix {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) CountByRole(_ context.Context, role auth.Role) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// add stores u as-is, keeping its activity flags.
func (m *memUsers) add(u auth.User) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = int64(len(m.users) + 1)
	m.users = append(m.users, u)
	return u.ID
}
