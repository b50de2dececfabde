package repository

import (
	"context"
	"database/sql"

	"github.com/yeser/yeser/internal/database"
)

// SessionRepo persists auth sessions. Only one session is kept at a time.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// Current returns the stored session, or nil when signed out.
func (r *SessionRepo) Current(ctx context.Context) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, email, access_token, refresh_token, expires_at, created_at FROM auth_sessions ORDER BY created_at DESC LIMIT 1`)
	var s Session
	if err := row.Scan(&s.ID, &s.UserID, &s.Email, &s.AccessToken, &s.RefreshToken, &s.ExpiresAt, &s.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Save replaces any stored session with s. The delete and insert commit
// together so a failure never leaves the user session-less.
func (r *SessionRepo) Save(ctx context.Context, s Session) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM auth_sessions`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
		INSERT INTO auth_sessions(id, user_id, email, access_token, refresh_token, expires_at, created_at)
		VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
		`, s.ID, s.UserID, s.Email, s.AccessToken, s.RefreshToken, s.ExpiresAt)
		return err
	})
}

// Clear removes all stored sessions.
func (r *SessionRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions`)
	return err
}
