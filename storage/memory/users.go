package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/identity"
)

// Users is an in-memory identity store for tests and single-node development.
type Users struct {
	mu    sync.Mutex
	users map[int64]identity.User
}

func NewUsers() *Users {
	return &Users{users: make(map[int64]identity.User)}
}

// RegisterIfAbsent upserts the user and reports first contact.
func (u *Users) RegisterIfAbsent(_ context.Context, userID int64, p core.Profile) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	existing, ok := u.users[userID]
	if ok {
		existing.Username = p.Username
		existing.FirstName = p.FirstName
		existing.LastName = p.LastName
		u.users[userID] = existing
		return false, nil
	}
	u.users[userID] = identity.User{
		ID:        userID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		JoinedAt:  time.Now(),
	}
	return true, nil
}

// GetByID returns the user, or nil when unknown.
func (u *Users) GetByID(_ context.Context, userID int64) (*identity.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if usr, ok := u.users[userID]; ok {
		out := usr
		return &out, nil
	}
	return nil, nil
}

// Count returns the number of registered users.
func (u *Users) Count(_ context.Context) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return int64(len(u.users)), nil
}
