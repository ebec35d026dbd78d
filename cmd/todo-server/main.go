package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adeilh/rakh-todos/httpx"
	"github.com/adeilh/rakh-todos/internal/config"
	"github.com/adeilh/rakh-todos/internal/logging"
)

const serviceName = "todo-server"

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env-file", ".env", "path to a dotenv file")
	flag.Parse()

	if err := run(*configFile, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(configFile, envFile string) error {
	opts := []config.Option{config.WithEnvFile(envFile)}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	server := httpx.NewServer(
		httpx.WithAddress(cfg.Server.Address),
		httpx.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		httpx.WithGracePeriod(cfg.Server.ShutdownTimeout),
		httpx.WithLogger(logging.Component(logger, "http")),
	)
	server.RegisterRoutes(svc.api.Register)

	logger.Info().
		Str("database", cfg.Database.Driver).
		Str("registry", cfg.Registry.Backend).
		Msg("starting")
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("stopped")
	return nil
}
