// Package directory provides user lookups for fraud scoring.
package directory

import (
	"context"
	"sync"

	"github.com/dukerupert/sindri/internal/domain"
)

// Memory is a map-backed user directory.
type Memory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemory creates an empty directory.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]domain.User)}
}

// Put inserts or replaces a user.
func (m *Memory) Put(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// GetUser returns the user or domain.ErrUserNotFound.
func (m *Memory) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}
