package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrUserNotFound     = errors.New("auth: user not found")
	ErrUserEmailInUse   = errors.New("auth: email already in use")
	ErrUserInvalidInput = errors.New("auth: invalid user input")
)

// User is the credential record. Email is the unique identifier and is
// stored trimmed and lower-cased.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash PasswordHash `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// UserRepository abstracts persistence so callers can map to any table schema.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
}

// UserPatch allows partial updates. A nil field is left untouched; the
// password is only rehashed when Password is set.
type UserPatch struct {
	Email    *string
	Password []byte
}

// UserService orchestrates hashing, persistence and session issuance.
type UserService struct {
	repo   UserRepository
	hasher PasswordHasher
	gate   *Gate
	now    func() time.Time
	newID  func() string
	log    zerolog.Logger
}

// UserServiceConfig wires dependencies for UserService.
type UserServiceConfig struct {
	Repository UserRepository
	Hasher     PasswordHasher
	Gate       *Gate
	IDFactory  func() string
	Now        func() time.Time
	Logger     *zerolog.Logger
}

func NewUserService(cfg UserServiceConfig) (*UserService, error) {
	if cfg.Repository == nil || cfg.Hasher == nil || cfg.Gate == nil {
		return nil, ErrUserInvalidInput
	}
	svc := &UserService{
		repo:   cfg.Repository,
		hasher: cfg.Hasher,
		gate:   cfg.Gate,
		now:    cfg.Now,
		newID:  cfg.IDFactory,
		log:    zerolog.Nop(),
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	if cfg.Logger != nil {
		svc.log = cfg.Logger.With().Str("component", "auth.users").Logger()
	}
	return svc, nil
}

// NormalizeEmail trims and lower-cases an identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a credential record and returns it with a fresh session
// token.
func (s *UserService) Register(ctx context.Context, email string, password []byte) (User, string, error) {
	email = NormalizeEmail(email)
	if !ValidateEmail(email) {
		return User{}, "", fmt.Errorf("%w: %q is not a valid email", ErrUserInvalidInput, email)
	}
	hash, err := s.hashPassword(ctx, password)
	if err != nil {
		return User{}, "", err
	}

	now := s.now().UTC()
	user := User{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, ErrUserEmailInUse) {
			s.log.Warn().Err(err).Msg("user insert failed")
		}
		return User{}, "", err
	}

	token, err := s.gate.IssueSession(ctx, user)
	if err != nil {
		return User{}, "", err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, token, nil
}

// Login verifies credentials and issues a new session. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email string, password []byte) (User, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}
	if err := s.hasher.Compare(ctx, password, user.PasswordHash); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return User{}, "", err
		}
		s.log.Debug().Str("user_id", user.ID).Msg("login rejected")
		return User{}, "", ErrInvalidCredentials
	}

	token, err := s.gate.IssueSession(ctx, user)
	if err != nil {
		return User{}, "", err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return user, token, nil
}

// Logout revokes the token carried by identity.
func (s *UserService) Logout(ctx context.Context, identity Identity) error {
	if err := s.gate.RevokeSession(ctx, identity.User.ID, identity.Token); err != nil {
		return err
	}
	s.log.Info().Str("user_id", identity.User.ID).Msg("user logged out")
	return nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (User, error) {
	if userID == "" {
		return User{}, ErrUserInvalidInput
	}
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateUser applies patch to the stored record.
func (s *UserService) UpdateUser(ctx context.Context, userID string, patch UserPatch) (User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if patch.Email != nil {
		email := NormalizeEmail(*patch.Email)
		if !ValidateEmail(email) {
			return User{}, fmt.Errorf("%w: %q is not a valid email", ErrUserInvalidInput, email)
		}
		user.Email = email
	}
	if patch.Password != nil {
		hash, err := s.hashPassword(ctx, patch.Password)
		if err != nil {
			return User{}, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
// Existing sessions stay valid.
func (s *UserService) ChangePassword(ctx context.Context, userID string, current, next []byte) (User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if err := s.hasher.Compare(ctx, current, user.PasswordHash); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return User{}, err
		}
		return User{}, ErrInvalidCredentials
	}
	return s.UpdateUser(ctx, userID, UserPatch{Password: next})
}

func (s *UserService) hashPassword(ctx context.Context, password []byte) (PasswordHash, error) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		if isPasswordPolicyError(err) {
			return PasswordHash{}, fmt.Errorf("%w: %w", ErrUserInvalidInput, err)
		}
		return PasswordHash{}, err
	}
	return hash, nil
}

func isPasswordPolicyError(err error) bool {
	for _, target := range []error{
		ErrPasswordTooShort,
		ErrPasswordTooLong,
		ErrPasswordNoUppercase,
		ErrPasswordNoLowercase,
		ErrPasswordNoDigit,
		ErrPasswordCommon,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
