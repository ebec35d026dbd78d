package api

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeilh/rakh-todos/auth"
	"github.com/adeilh/rakh-todos/httpx"
	"github.com/adeilh/rakh-todos/todo"
)

const password = "s3cret-pass"

// tickingClock advances one second per call so todo listings have a stable order.
func tickingClock() func() time.Time {
	var n atomic.Int64
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

type fixture struct {
	client *httpx.Client
}

func newFixture(t *testing.T, repo todo.Repository, health map[string]HealthCheck) *fixture {
	t.Helper()
	issuedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	manager, err := auth.NewManager(auth.ManagerConfig{
		Secret:         []byte("api-test-secret-0123456789"),
		UserRepository: auth.NewMemoryUserRepository(),
		Now:            func() time.Time { return issuedAt },
	})
	require.NoError(t, err)

	if repo == nil {
		repo = todo.NewMemoryRepository()
	}
	todos, err := todo.NewService(repo, todo.WithClock(tickingClock()))
	require.NoError(t, err)

	h, err := New(Config{Auth: manager, Todos: todos, Health: health})
	require.NoError(t, err)

	server := httpx.NewServer()
	server.RegisterRoutes(h.Register)
	return &fixture{client: httpx.StartTestServer(t, server).Client()}
}

func (f *fixture) register(t *testing.T, email string) (auth.User, string) {
	t.Helper()
	var out userResponse
	resp, err := f.client.Post(context.Background(), "/users", credentialsRequest{Email: email, Password: password}, &out)
	require.NoError(t, err)
	token := resp.Header().Get(auth.TokenHeader)
	require.NotEmpty(t, token)
	return out.User, token
}

func (f *fixture) createTodo(t *testing.T, token, text string) todo.Todo {
	t.Helper()
	var out todoResponse
	_, err := f.client.Post(context.Background(), "/todos", createTodoRequest{Text: text}, &out, httpx.WithAuthToken(token))
	require.NoError(t, err)
	return out.Todo
}

func TestRegisterAndMe(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	user, token := f.register(t, "  Alice@Example.com ")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, user.ID)

	var me userResponse
	_, err := f.client.Get(ctx, "/users/me", &me, httpx.WithAuthToken(token))
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.User.ID)

	resp, err := f.client.Post(ctx, "/users", credentialsRequest{Email: "alice@example.com", Password: password}, nil)
	require.Error(t, err)
	assert.Equal(t, httpx.StatusConflict, resp.StatusCode())
	assert.JSONEq(t, `{"status":"ERROR","error":"email already in use"}`, resp.String())

	resp, err = f.client.Post(ctx, "/users", map[string]string{"email": "not-an-email", "password": password}, nil)
	require.Error(t, err)
	assert.Equal(t, httpx.StatusBadRequest, resp.StatusCode())

	resp, err = f.client.Post(ctx, "/users", credentialsRequest{Email: "bob@example.com", Password: "abc"}, nil)
	require.Error(t, err)
	assert.Equal(t, httpx.StatusBadRequest, resp.StatusCode(), "password policy violations are client errors")
}

func TestUnauthenticatedRequestsGetBare401(t *testing.T) {
	f := newFixture(t, nil, nil)
	_, token := f.register(t, "carol@example.com")
	forged := token[:len(token)-1] + "0"
	if forged == token {
		forged = token[:len(token)-1] + "1"
	}

	tests := []struct {
		name string
		opts []httpx.RequestOption
	}{
		{name: "no token"},
		{name: "garbage", opts: []httpx.RequestOption{httpx.WithAuthToken("not.a.token")}},
		{name: "forged signature", opts: []httpx.RequestOption{httpx.WithAuthToken(forged)}},
		{name: "two segments", opts: []httpx.RequestOption{httpx.WithAuthToken("abc.def")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/users/me", "/todos"} {
				resp, err := f.client.Get(context.Background(), path, nil, tt.opts...)
				require.Error(t, err)
				assert.Equal(t, httpx.StatusUnauthorized, resp.StatusCode(), path)
				assert.Empty(t, resp.Body(), path)
			}
		})
	}
}

func TestLoginAndLogout(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	_, registered := f.register(t, "dave@example.com")

	resp, err := f.client.Post(ctx, "/users/login", credentialsRequest{Email: "dave@example.com", Password: "wrong-pass"}, nil)
	require.Error(t, err)
	assert.Equal(t, httpx.StatusUnauthorized, resp.StatusCode())
	assert.Empty(t, resp.Body())

	resp, err = f.client.Post(ctx, "/users/login", credentialsRequest{Email: "nobody@example.com", Password: password}, nil)
	require.Error(t, err)
	assert.Equal(t, httpx.StatusUnauthorized, resp.StatusCode())

	var out userResponse
	resp, err = f.client.Post(ctx, "/users/login", credentialsRequest{Email: "DAVE@example.com", Password: password}, &out)
	require.NoError(t, err)
	second := resp.Header().Get(auth.TokenHeader)
	require.NotEmpty(t, second)
	assert.NotEqual(t, registered, second)

	_, err = f.client.Delete(ctx, "/users/me/token", nil, httpx.WithAuthToken(second))
	require.NoError(t, err)

	resp, err = f.client.Get(ctx, "/users/me", nil, httpx.WithAuthToken(second))
	require.Error(t, err)
	assert.Equal(t, httpx.StatusUnauthorized, resp.StatusCode())

	_, err = f.client.Get(ctx, "/users/me", nil, httpx.WithAuthToken(registered))
	require.NoError(t, err, "other sessions survive a logout")
}

func TestChangePasswordAndEmail(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	_, token := f.register(t, "erin@example.com")

	resp, err := f.client.Patch(ctx, "/users/me/password", changePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "n3w-password"}, nil, httpx.WithAuthToken(token))
	require.Error(t, err)
	assert.Equal(t, httpx.StatusUnauthorized, resp.StatusCode())

	_, err = f.client.Patch(ctx, "/users/me/password", changePasswordRequest{CurrentPassword: password, NewPassword: "n3w-password"}, nil, httpx.WithAuthToken(token))
	require.NoError(t, err)

	_, err = f.client.Post(ctx, "/users/login", credentialsRequest{Email: "erin@example.com", Password: password}, nil)
	require.Error(t, err)
	_, err = f.client.Post(ctx, "/users/login", credentialsRequest{Email: "erin@example.com", Password: "n3w-password"}, nil)
	require.NoError(t, err)

	var out userResponse
	_, err = f.client.Patch(ctx, "/users/me", updateUserRequest{Email: "Erin.New@example.com"}, &out, httpx.WithAuthToken(token))
	require.NoError(t, err)
	assert.Equal(t, "erin.new@example.com", out.User.Email)
	_, err = f.client.Post(ctx, "/users/login", credentialsRequest{Email: "erin.new@example.com", Password: "n3w-password"}, nil)
	require.NoError(t, err, "changing the email keeps the password hash")
}

func TestTodoLifecycle(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	owner, token := f.register(t, "frank@example.com")
	withToken := httpx.WithAuthToken(token)

	first := f.createTodo(t, token, "  buy milk ")
	assert.Equal(t, "buy milk", first.Text)
	assert.Equal(t, owner.ID, first.CreatorID)
	assert.False(t, first.Completed)
	assert.Nil(t, first.CompletedAt)
	second := f.createTodo(t, token, "walk dog")

	var list todosResponse
	_, err := f.client.Get(ctx, "/todos", &list, withToken)
	require.NoError(t, err)
	assert.Equal(t, "OK", list.Status)
	require.Len(t, list.Todos, 2)
	assert.Equal(t, first.ID, list.Todos[0].ID)
	assert.Equal(t, second.ID, list.Todos[1].ID)

	var got todoResponse
	_, err = f.client.Get(ctx, "/todos/"+first.ID, &got, withToken)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.Todo.ID)

	var done todoResponse
	_, err = f.client.Patch(ctx, "/todos/"+first.ID, map[string]any{"completed": true}, &done, withToken)
	require.NoError(t, err)
	assert.True(t, done.Todo.Completed)
	require.NotNil(t, done.Todo.CompletedAt)
	assert.Equal(t, "buy milk", done.Todo.Text)

	var renamed todoResponse
	_, err = f.client.Patch(ctx, "/todos/"+first.ID, map[string]any{"text": "buy oat milk"}, &renamed, withToken)
	require.NoError(t, err)
	assert.Equal(t, "buy oat milk", renamed.Todo.Text)
	assert.False(t, renamed.Todo.Completed, "a patch without completed=true clears completion")
	assert.Nil(t, renamed.Todo.CompletedAt)

	var stringly todoResponse
	_, err = f.client.Patch(ctx, "/todos/"+first.ID, map[string]any{"completed": "true"}, &stringly, withToken)
	require.NoError(t, err)
	assert.False(t, stringly.Todo.Completed, "only a JSON boolean true completes an item")

	resp, err := f.client.Patch(ctx, "/todos/"+first.ID, map[string]any{"text": "   "}, nil, withToken)
	require.Error(t, err)
	assert.Equal(t, httpx.StatusBadRequest, resp.StatusCode())

	var removed todoResponse
	_, err = f.client.Delete(ctx, "/todos/"+second.ID, &removed, withToken)
	require.NoError(t, err)
	assert.Equal(t, "walk dog", removed.Todo.Text)

	resp, err = f.client.Get(ctx, "/todos/"+second.ID, nil, withToken)
	require.Error(t, err)
	assert.Equal(t, httpx.StatusNotFound, resp.StatusCode())
}

func TestTodosAreScopedToCreator(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	_, ownerToken := f.register(t, "gina@example.com")
	_, otherToken := f.register(t, "hank@example.com")
	item := f.createTodo(t, ownerToken, "private")
	other := httpx.WithAuthToken(otherToken)

	var list todosResponse
	_, err := f.client.Get(ctx, "/todos", &list, other)
	require.NoError(t, err)
	assert.NotNil(t, list.Todos)
	assert.Empty(t, list.Todos)

	paths := []struct {
		method string
		path   string
	}{
		{method: "GET", path: "/todos/" + item.ID},
		{method: "DELETE", path: "/todos/" + item.ID},
		{method: "PATCH", path: "/todos/" + item.ID},
		{method: "GET", path: "/todos/not-a-uuid"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			var (
				resp interface{ StatusCode() int }
				err  error
			)
			switch p.method {
			case "GET":
				resp, err = f.client.Get(ctx, p.path, nil, other)
			case "DELETE":
				resp, err = f.client.Delete(ctx, p.path, nil, other)
			case "PATCH":
				resp, err = f.client.Patch(ctx, p.path, map[string]any{"completed": true}, nil, other)
			}
			require.Error(t, err)
			assert.Equal(t, httpx.StatusNotFound, resp.StatusCode())
		})
	}

	var still todoResponse
	_, err = f.client.Get(ctx, "/todos/"+item.ID, &still, httpx.WithAuthToken(ownerToken))
	require.NoError(t, err)
	assert.False(t, still.Todo.Completed)
}

type brokenRepository struct{ todo.Repository }

func (brokenRepository) ListByCreator(context.Context, string) ([]todo.Todo, error) {
	return nil, fmt.Errorf("%w: connection refused", todo.ErrPersistence)
}

func TestStorageFailureIs503(t *testing.T) {
	f := newFixture(t, brokenRepository{todo.NewMemoryRepository()}, nil)
	_, token := f.register(t, "ivy@example.com")

	resp, err := f.client.Get(context.Background(), "/todos", nil, httpx.WithAuthToken(token))
	require.Error(t, err)
	assert.Equal(t, httpx.StatusServiceUnavailable, resp.StatusCode())
	assert.JSONEq(t, `{"status":"ERROR","error":"storage unavailable"}`, resp.String())
}

func TestHealthz(t *testing.T) {
	healthy := newFixture(t, nil, map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
	})
	var out statusResponse
	_, err := healthy.client.Get(context.Background(), httpx.HealthPath, &out)
	require.NoError(t, err)
	assert.Equal(t, "OK", out.Status)

	sick := newFixture(t, nil, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	resp, err := sick.client.Get(context.Background(), httpx.HealthPath, nil)
	require.Error(t, err)
	assert.Equal(t, httpx.StatusServiceUnavailable, resp.StatusCode())
	assert.Contains(t, resp.String(), "redis unavailable")
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
