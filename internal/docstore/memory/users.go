package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/mmynk/notekeeper/internal/models"
)

// ErrDuplicateEmail is returned when an email is registered twice.
var ErrDuplicateEmail = errors.New("email already registered")

// Users keeps accounts in memory. It satisfies auth.UserStorage.
type Users struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

// NewUsers creates an empty account table.
func NewUsers() *Users {
	return &Users{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

// CreateUser stores a copy of user.
func (u *Users) CreateUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.byEmail[user.Email]; exists {
		return ErrDuplicateEmail
	}
	cp := *user
	u.byID[user.ID] = &cp
	u.byEmail[user.Email] = user.ID
	return nil
}

// GetUserByEmail returns nil, nil when no account matches.
func (u *Users) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.mu.RLock()
	defer u.mu.RUnlock()

	id, ok := u.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u.byID[id]
	return &cp, nil
}

// GetUserByID returns nil, nil when no account matches.
func (u *Users) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.mu.RLock()
	defer u.mu.RUnlock()

	user, ok := u.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}
