// Package memory is an in-process ledger.Repository. Nothing survives a
// restart; it backs tests and DATA_BACKEND=memory.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
)

type Repository struct {
	mu    sync.Mutex
	users map[string]core.User
	saves int
}

// New returns a repository pre-filled with a copy of seed, which may be nil.
func New(seed map[string]core.User) *Repository {
	return &Repository{users: cloneUsers(seed)}
}

func (r *Repository) Load(_ context.Context) (map[string]core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUsers(r.users), nil
}

func (r *Repository) Save(_ context.Context, users map[string]core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = cloneUsers(users)
	r.saves++
	return nil
}

// Saves reports how many times Save was called.
func (r *Repository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func cloneUsers(in map[string]core.User) map[string]core.User {
	out := make(map[string]core.User, len(in))
	for id, u := range in {
		out[id] = u.Clone()
	}
	return out
}
