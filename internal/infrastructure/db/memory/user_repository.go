// Package memory is an in-process user store for local runs and tests.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/relaychat/relay-api/internal/core/domain"
)

// UserRepository keeps records in insertion order, keyed by username.
type UserRepository struct {
	mu     sync.RWMutex
	byName map[string]*domain.User
	order  []string
	seq    int
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byName: make(map[string]*domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[user.Username]; exists {
		return nil, domain.ErrUserExists
	}

	r.seq++
	stored := clone(user)
	stored.ID = strconv.Itoa(r.seq)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.byName[stored.Username] = stored
	r.order = append(r.order, stored.Username)
	return clone(stored), nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byName[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

// List mirrors the Mongo projection: no id, no password hash.
func (r *UserRepository) List(_ context.Context, limit int64) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := int64(len(r.order))
	if limit > 0 && limit < n {
		n = limit
	}

	users := make([]*domain.User, 0, n)
	for _, name := range r.order[:n] {
		u := clone(r.byName[name])
		u.ID = ""
		u.PasswordHash = nil
		users = append(users, u)
	}
	return users, nil
}

func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

func clone(u *domain.User) *domain.User {
	c := *u
	if u.PasswordHash != nil {
		c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	return &c
}
