package auth

import (
	"context"
	"strings"
	"sync"
)

// MemoryUserRepository is a UserRepository backed by process memory.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) CreateUser(ctx context.Context, user User) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if user.ID == "" || user.Email == "" {
		return ErrUserInvalidInput
	}
	email := strings.ToLower(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return ErrUserEmailInUse
	}
	if _, ok := r.byID[user.ID]; ok {
		return ErrUserEmailInUse
	}
	r.byID[user.ID] = user
	r.byEmail[email] = user.ID
	return nil
}

func (r *MemoryUserRepository) UpdateUser(ctx context.Context, user User) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	email := strings.ToLower(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if owner, taken := r.byEmail[email]; taken && owner != user.ID {
		return ErrUserEmailInUse
	}
	delete(r.byEmail, strings.ToLower(current.Email))
	r.byID[user.ID] = user
	r.byEmail[email] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if err := contextError(ctx); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) GetUserByID(ctx context.Context, id string) (User, error) {
	if err := contextError(ctx); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}
