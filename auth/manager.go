package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/adeilh/rakh-todos/cache"
)

// Manager bundles the gate and user workflows behind a single façade.
type Manager struct {
	gate  *Gate
	users *UserService
}

// ManagerConfig wires the dependencies required for Manager. When Registry is
// nil the sessions live in Cache, or in memory when Cache is nil too.
type ManagerConfig struct {
	Secret         []byte
	Registry       SessionRegistry
	Cache          cache.Store
	SessionOptions SessionStoreOptions
	UserRepository UserRepository
	PasswordHasher PasswordHasher
	IDFactory      func() string
	Now            func() time.Time
	Logger         *zerolog.Logger
}

// NewManager builds a Manager with the provided dependencies.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.UserRepository == nil {
		return nil, ErrUserInvalidInput
	}

	registry := cfg.Registry
	if registry == nil {
		if cfg.Cache != nil {
			registry = NewCacheSessionRegistry(cfg.Cache, cfg.SessionOptions)
		} else {
			registry = NewMemoryRegistry()
		}
	}

	hasher := cfg.PasswordHasher
	if hasher == nil {
		hasher = DefaultHasher()
	}

	gate, err := NewGate(GateConfig{
		Secret:   cfg.Secret,
		Registry: registry,
		Users:    cfg.UserRepository,
		Now:      cfg.Now,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	users, err := NewUserService(UserServiceConfig{
		Repository: cfg.UserRepository,
		Hasher:     hasher,
		Gate:       gate,
		IDFactory:  cfg.IDFactory,
		Now:        cfg.Now,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Manager{gate: gate, users: users}, nil
}

func (m *Manager) Gate() *Gate { return m.gate }

func (m *Manager) Users() *UserService { return m.users }

func (m *Manager) Register(ctx context.Context, email string, password []byte) (User, string, error) {
	return m.users.Register(ctx, email, password)
}

func (m *Manager) Login(ctx context.Context, email string, password []byte) (User, string, error) {
	return m.users.Login(ctx, email, password)
}

func (m *Manager) Logout(ctx context.Context, identity Identity) error {
	return m.users.Logout(ctx, identity)
}

func (m *Manager) Authenticate(ctx context.Context, token string) (Identity, error) {
	return m.gate.Authenticate(ctx, token)
}

func (m *Manager) ChangePassword(ctx context.Context, userID string, current, next []byte) (User, error) {
	return m.users.ChangePassword(ctx, userID, current, next)
}

func (m *Manager) UpdateUser(ctx context.Context, userID string, patch UserPatch) (User, error) {
	return m.users.UpdateUser(ctx, userID, patch)
}
