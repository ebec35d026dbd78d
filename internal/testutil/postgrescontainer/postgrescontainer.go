// Package postgrescontainer runs a disposable PostgreSQL server in Docker for
// integration tests and hands out migrated connections to it.
package postgrescontainer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adeilh/rakh-todos/db/sql/postgres"
)

// EnableEnv must be set for integration tests to run.
const EnableEnv = "TODO_INTEGRATION"

const (
	image         = "postgres:16-alpine"
	containerName = "rakh-todos-postgres-test"
	hostPort      = "55432"
	user          = "todos"
	password      = "secret"
	dbName        = "todos_test"
)

var (
	once     sync.Once
	setupErr error
)

// Enabled reports whether integration tests were requested.
func Enabled() bool { return os.Getenv(EnableEnv) != "" }

// Addr returns host:port for connecting to the test Postgres instance.
func Addr() string { return "127.0.0.1:" + hostPort }

// DSN returns a lib/pq formatted connection string.
func DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, password, Addr(), dbName)
}

// Setup launches the container once per process.
func Setup() error {
	once.Do(func() {
		if _, err := exec.LookPath("docker"); err != nil {
			setupErr = fmt.Errorf("docker executable not found: %w", err)
			return
		}
		_ = stopContainer()
		setupErr = runDocker(
			"run", "-d", "--rm",
			"--name", containerName,
			"-e", "POSTGRES_USER="+user,
			"-e", "POSTGRES_PASSWORD="+password,
			"-e", "POSTGRES_DB="+dbName,
			"-p", hostPort+":5432",
			image,
		)
	})
	return setupErr
}

// Open waits for the server, applies the migrations and empties every table.
func Open(ctx context.Context) (*sql.DB, error) {
	if err := Setup(); err != nil {
		return nil, err
	}
	db, err := postgres.OpenWithRetry(ctx, zerolog.Nop(),
		postgres.WithDSN(DSN()),
		postgres.WithRetryInterval(250*time.Millisecond),
		postgres.WithRetryTimeout(30*time.Second),
	)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE users, sessions, todos`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("truncate: %w", err)
	}
	return db, nil
}

// Teardown stops the container launched by Setup.
func Teardown() error {
	if setupErr != nil {
		return setupErr
	}
	return stopContainer()
}

func stopContainer() error {
	output, err := exec.Command("docker", "stop", containerName).CombinedOutput()
	if err != nil {
		if strings.Contains(string(output), "No such container") {
			return nil
		}
		return fmt.Errorf("docker stop failed: %w: %s", err, output)
	}
	return nil
}

func runDocker(args ...string) error {
	output, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker %s failed: %w: %s", args[0], err, output)
	}
	return nil
}
