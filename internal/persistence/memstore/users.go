package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/example/sublease-marketplace/internal/persistence"
)

// CreateUser stores a new user.
func (r *repositories) CreateUser(ctx context.Context, user persistence.User) error {
	st, done := r.edit()
	defer done()

	if user.ID == "" || strings.TrimSpace(user.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := st.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}

	lower := strings.ToLower(user.Email)
	for _, existing := range st.users {
		if strings.ToLower(existing.Email) == lower {
			return persistence.ErrDuplicate
		}
	}

	st.users[user.ID] = cloneUser(user)
	return nil
}

// GetUser retrieves a user by ID.
func (r *repositories) GetUser(ctx context.Context, id string) (persistence.User, error) {
	st, done := r.view()
	defer done()

	user, ok := st.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return cloneUser(user), nil
}

// GetUserByEmail retrieves a user by email address.
func (r *repositories) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	st, done := r.view()
	defer done()

	lower := strings.ToLower(email)
	for _, user := range st.users {
		if strings.ToLower(user.Email) == lower {
			return cloneUser(user), nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns all users ordered by CreatedAt ascending.
func (r *repositories) ListUsers(ctx context.Context) ([]persistence.User, error) {
	st, done := r.view()
	defer done()

	users := make([]persistence.User, 0, len(st.users))
	for _, user := range st.users {
		users = append(users, cloneUser(user))
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

// --- SessionRepository ---

// CreateSession stores a new session keyed by token.
func (r *repositories) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	st, done := r.edit()
	defer done()

	if session.ID == "" || session.UserID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	if _, ok := st.users[session.UserID]; !ok {
		return persistence.Session{}, persistence.ErrForeignKeyViolation
	}
	if _, ok := st.sessions[session.Token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}

	st.sessions[session.Token] = cloneSession(session)
	return cloneSession(session), nil
}

// GetSession retrieves a session by token.
func (r *repositories) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	st, done := r.view()
	defer done()

	session, ok := st.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// UpdateSession replaces a session located by ID, re-keying it when the token rotated.
func (r *repositories) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	st, done := r.edit()
	defer done()

	for token, existing := range st.sessions {
		if existing.ID != session.ID {
			continue
		}
		if token != session.Token {
			if _, taken := st.sessions[session.Token]; taken {
				return persistence.Session{}, persistence.ErrDuplicate
			}
			delete(st.sessions, token)
		}
		st.sessions[session.Token] = cloneSession(session)
		return cloneSession(session), nil
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// RevokeSession marks a session revoked.
func (r *repositories) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	st, done := r.edit()
	defer done()

	session, ok := st.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	at := revokedAt.UTC()
	session.RevokedAt = &at
	session.UpdatedAt = at
	st.sessions[token] = session
	return cloneSession(session), nil
}

// DeleteExpiredSessions removes sessions whose expiry is not after reference.
func (r *repositories) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	st, done := r.edit()
	defer done()

	for token, session := range st.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(st.sessions, token)
		}
	}
	return nil
}

func cloneUser(user persistence.User) persistence.User {
	out := user
	out.School = cloneString(user.School)
	return out
}

func cloneSession(session persistence.Session) persistence.Session {
	out := session
	if session.RevokedAt != nil {
		at := *session.RevokedAt
		out.RevokedAt = &at
	}
	return out
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}
