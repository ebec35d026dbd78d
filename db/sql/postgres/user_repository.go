package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/adeilh/rakh-todos/auth"
)

// UserRepository persists auth.User records inside PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository wraps an existing *sql.DB connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_algorithm, password_salt, password_hash, created_at, updated_at`

func (r *UserRepository) CreateUser(ctx context.Context, user auth.User) error {
	const query = `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash.Algorithm,
		user.PasswordHash.Salt,
		user.PasswordHash.Value,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return translateUserError(err)
}

func (r *UserRepository) UpdateUser(ctx context.Context, user auth.User) error {
	const query = `UPDATE users SET email = $2, password_algorithm = $3, password_salt = $4, password_hash = $5, updated_at = $6 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash.Algorithm,
		user.PasswordHash.Salt,
		user.PasswordHash.Value,
		user.UpdatedAt,
	)
	if err != nil {
		return translateUserError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (auth.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) scanUser(row *sql.Row) (auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash.Algorithm,
		&user.PasswordHash.Salt,
		&user.PasswordHash.Value,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, auth.ErrUserNotFound
		}
		return auth.User{}, translateUserError(err)
	}
	return user, nil
}

func translateUserError(err error) error {
	if err == nil {
		return nil
	}
	switch pqCode(err) {
	case codeUniqueViolation:
		return auth.ErrUserEmailInUse
	case codeInvalidTextRep:
		return auth.ErrUserNotFound
	}
	return persistenceError(err)
}
