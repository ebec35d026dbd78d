package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/adeilh/rakh-todos/auth"
)

// SessionRepository implements auth.SessionRegistry on the sessions table.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Add records entry. Re-adding an identical token is a no-op.
func (r *SessionRepository) Add(ctx context.Context, entry auth.SessionEntry) error {
	if entry.UserID == "" || entry.Token == "" || entry.Access == "" {
		return auth.ErrSessionInvalidDescriptor
	}
	const query = `INSERT INTO sessions (token, user_id, access, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (token) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, entry.Token, entry.UserID, entry.Access, entry.CreatedAt); err != nil {
		switch pqCode(err) {
		case codeForeignKeyViolation, codeInvalidTextRep:
			return auth.ErrUserNotFound
		}
		return persistenceError(err)
	}
	return nil
}

func (r *SessionRepository) Lookup(ctx context.Context, token string) (auth.SessionEntry, error) {
	const query = `SELECT user_id, access, created_at FROM sessions WHERE token = $1`
	entry := auth.SessionEntry{Token: token}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&entry.UserID, &entry.Access, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.SessionEntry{}, auth.ErrSessionNotFound
		}
		return auth.SessionEntry{}, persistenceError(err)
	}
	return entry, nil
}

// Remove deletes the session only when it belongs to userID.
func (r *SessionRepository) Remove(ctx context.Context, userID, token string) error {
	const query = `DELETE FROM sessions WHERE token = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, token, userID); err != nil {
		if pqCode(err) == codeInvalidTextRep {
			return nil
		}
		return persistenceError(err)
	}
	return nil
}
