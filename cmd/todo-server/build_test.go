package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeilh/rakh-todos/auth"
	"github.com/adeilh/rakh-todos/httpx"
	"github.com/adeilh/rakh-todos/internal/config"
)

func memoryConfig() config.Config {
	cfg := config.Config{
		Server:   config.ServerConfig{Address: ":0"},
		Auth:     config.AuthConfig{Secret: "build-test-secret-0123", PasswordAlgorithm: auth.AlgorithmHMACSHA256},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Registry: config.RegistryConfig{Backend: config.DriverMemory},
	}
	cfg.ApplyDefaults()
	return cfg
}

func serve(t *testing.T, cfg config.Config) *httpx.Client {
	t.Helper()
	svc, err := build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	server := httpx.NewServer()
	server.RegisterRoutes(svc.api.Register)
	return httpx.StartTestServer(t, server).Client()
}

func smoke(t *testing.T, client *httpx.Client) {
	t.Helper()
	ctx := context.Background()
	body := map[string]string{"email": "smoke@example.com", "password": "smoke-pass-1"}

	resp, err := client.Post(ctx, "/users", body, nil)
	require.NoError(t, err)
	token := resp.Header().Get(auth.TokenHeader)
	require.NotEmpty(t, token)

	_, err = client.Post(ctx, "/todos", map[string]string{"text": "ship it"}, nil, httpx.WithAuthToken(token))
	require.NoError(t, err)

	var list struct {
		Todos  []map[string]any `json:"todos"`
		Status string           `json:"status"`
	}
	_, err = client.Get(ctx, "/todos", &list, httpx.WithAuthToken(token))
	require.NoError(t, err)
	assert.Equal(t, "OK", list.Status)
	assert.Len(t, list.Todos, 1)

	_, err = client.Delete(ctx, "/users/me/token", nil, httpx.WithAuthToken(token))
	require.NoError(t, err)
	resp, err = client.Get(ctx, "/todos", nil, httpx.WithAuthToken(token))
	require.Error(t, err)
	assert.Equal(t, httpx.StatusUnauthorized, resp.StatusCode())
}

func TestBuildMemory(t *testing.T) {
	smoke(t, serve(t, memoryConfig()))
}

func TestBuildRedisRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.Registry.Backend = config.BackendRedis
	cfg.Redis = config.RedisConfig{Addr: mr.Addr(), Prefix: "smoke"}

	client := serve(t, cfg)
	smoke(t, client)

	var health map[string]string
	_, err := client.Get(context.Background(), httpx.HealthPath, &health)
	require.NoError(t, err)
	assert.Equal(t, "OK", health["status"])

	mr.Close()
	resp, err := client.Get(context.Background(), httpx.HealthPath, nil)
	require.Error(t, err)
	assert.Equal(t, httpx.StatusServiceUnavailable, resp.StatusCode())
}

func TestBuildArgon2(t *testing.T) {
	cfg := memoryConfig()
	cfg.Auth.PasswordAlgorithm = auth.AlgorithmArgon2id
	smoke(t, serve(t, cfg))
}

func TestBuildRejectsUnknownBackends(t *testing.T) {
	cfg := memoryConfig()
	cfg.Registry.Backend = "etcd"
	_, err := build(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)

	cfg = memoryConfig()
	cfg.Database.Driver = "mongo"
	_, err = build(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)

	cfg = memoryConfig()
	cfg.Auth.PasswordAlgorithm = "md5"
	_, err = build(context.Background(), cfg, zerolog.Nop())
	require.ErrorIs(t, err, auth.ErrPasswordInvalidAlgorithm)
}

func TestBuildPostgresNeedsDSN(t *testing.T) {
	cfg := memoryConfig()
	cfg.Database.Driver = config.DriverPostgres
	_, err := build(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}
