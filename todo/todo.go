// Package todo implements task items owned by a single user.
package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("todo: not found")
	ErrInvalidInput = errors.New("todo: invalid input")
	ErrPersistence  = errors.New("todo: persistence failure")
)

// Todo is a task item. CompletedAt is a Unix timestamp in milliseconds and is
// only set while Completed is true.
type Todo struct {
	ID          string    `json:"_id"`
	CreatorID   string    `json:"_creator"`
	Text        string    `json:"text"`
	Completed   bool      `json:"completed"`
	CompletedAt *int64    `json:"completedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Patch carries the fields a client may change. Completed follows the
// reset rule: anything but an explicit true clears completion.
type Patch struct {
	Text      *string
	Completed *bool
}

// Repository persists todos. Every lookup is scoped to the creator so one
// user can never read or change another user's items.
type Repository interface {
	Create(ctx context.Context, t Todo) error
	ListByCreator(ctx context.Context, creatorID string) ([]Todo, error)
	Get(ctx context.Context, creatorID, id string) (Todo, error)
	Update(ctx context.Context, t Todo) error
	Delete(ctx context.Context, creatorID, id string) (Todo, error)
}

type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDFactory(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewService(repo Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("todo: repository is required")
	}
	s := &Service{repo: repo, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Service) Create(ctx context.Context, creatorID, text string) (Todo, error) {
	text, err := normalizeText(text)
	if err != nil {
		return Todo{}, err
	}
	t := Todo{
		ID:        s.newID(),
		CreatorID: creatorID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return Todo{}, err
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, creatorID string) ([]Todo, error) {
	todos, err := s.repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []Todo{}
	}
	return todos, nil
}

func (s *Service) Get(ctx context.Context, creatorID, id string) (Todo, error) {
	if !validID(id) {
		return Todo{}, ErrNotFound
	}
	return s.repo.Get(ctx, creatorID, id)
}

func (s *Service) Delete(ctx context.Context, creatorID, id string) (Todo, error) {
	if !validID(id) {
		return Todo{}, ErrNotFound
	}
	return s.repo.Delete(ctx, creatorID, id)
}

func (s *Service) Update(ctx context.Context, creatorID, id string, patch Patch) (Todo, error) {
	if !validID(id) {
		return Todo{}, ErrNotFound
	}
	t, err := s.repo.Get(ctx, creatorID, id)
	if err != nil {
		return Todo{}, err
	}

	if patch.Text != nil {
		text, err := normalizeText(*patch.Text)
		if err != nil {
			return Todo{}, err
		}
		t.Text = text
	}
	if patch.Completed != nil && *patch.Completed {
		at := s.now().UnixMilli()
		t.Completed = true
		t.CompletedAt = &at
	} else {
		t.Completed = false
		t.CompletedAt = nil
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return Todo{}, err
	}
	return t, nil
}

func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	return text, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
