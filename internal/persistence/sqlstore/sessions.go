package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/sublease-marketplace/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository
type SessionRepository struct {
	db sqlx.ExtContext
}

// NewSessionRepository creates a session repository bound to a pool or transaction
func NewSessionRepository(db sqlx.ExtContext) *SessionRepository {
	return &SessionRepository{db: db}
}

type sessionRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Token       string         `db:"token"`
	Fingerprint string         `db:"fingerprint"`
	ExpiresAt   string         `db:"expires_at"`
	RevokedAt   sql.NullString `db:"revoked_at"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

func (row sessionRow) toModel() (persistence.Session, error) {
	session := persistence.Session{
		ID:          row.ID,
		UserID:      row.UserID,
		Token:       row.Token,
		Fingerprint: row.Fingerprint,
	}
	var err error
	if session.ExpiresAt, err = parseTime("expires_at", row.ExpiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime("created_at", row.CreatedAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime("updated_at", row.UpdatedAt); err != nil {
		return persistence.Session{}, err
	}
	if session.RevokedAt, err = parseTimePtr("revoked_at", row.RevokedAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

const sessionColumns = `id, user_id, token, fingerprint, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a new session token for a user
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.UserID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	query := r.db.Rebind(`
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.Fingerprint,
		formatTime(session.ExpiresAt),
		formatTimePtr(session.RevokedAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return r.GetSession(ctx, session.Token)
}

// GetSession retrieves a session by token
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if strings.TrimSpace(token) == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var row sessionRow
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE token = ?`)
	if err := sqlx.GetContext(ctx, r.db, &row, query, token); err != nil {
		return persistence.Session{}, mapError(err)
	}
	return row.toModel()
}

// UpdateSession replaces a session located by ID; the token may rotate
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	query := r.db.Rebind(`
		UPDATE sessions
		SET token = ?, fingerprint = ?, expires_at = ?, revoked_at = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := r.db.ExecContext(ctx, query,
		session.Token,
		session.Fingerprint,
		formatTime(session.ExpiresAt),
		formatTimePtr(session.RevokedAt),
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	if err := requireRow(result); err != nil {
		return persistence.Session{}, err
	}
	return r.GetSession(ctx, session.Token)
}

// RevokeSession marks a session revoked
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	at := formatTime(revokedAt)
	query := r.db.Rebind(`UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE token = ?`)
	result, err := r.db.ExecContext(ctx, query, at, at, token)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	if err := requireRow(result); err != nil {
		return persistence.Session{}, err
	}
	return r.GetSession(ctx, token)
}

// DeleteExpiredSessions removes sessions whose expiry is not after reference
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	query := r.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`)
	if _, err := r.db.ExecContext(ctx, query, formatTime(reference)); err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", mapError(err))
	}
	return nil
}

// requireRow turns a write that matched nothing into ErrNotFound.
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
