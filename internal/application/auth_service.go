package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/sublease-marketplace/internal/logging"
	"github.com/example/sublease-marketplace/internal/persistence"
)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService coordinates login, logout, token refresh and session validation.
type AuthService struct {
	store          persistence.Store
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(store persistence.Store, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(store, verify, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(store persistence.Store, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		store:          store,
		verifyPassword: verify,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         logging.OrDefault(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var row persistence.User
	row, err = s.store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = fmt.Errorf("load credentials: %w", err)
		return
	}

	if err = s.verifyPassword(row.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	id := s.tokenGenerator()
	token := s.tokenGenerator()
	if token == "" {
		token = id
	}

	session := persistence.Session{
		ID:          id,
		UserID:      row.ID,
		Token:       token,
		Fingerprint: strings.TrimSpace(params.Fingerprint),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.sessionTTL),
	}

	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		if err := repos.Sessions().DeleteExpiredSessions(ctx, now); err != nil {
			return err
		}
		persisted, err := repos.Sessions().CreateSession(ctx, session)
		if err != nil {
			return err
		}
		session = persisted
		return nil
	})
	if err != nil {
		err = mapPersistenceError("create session", err)
		return
	}

	result = AuthenticateResult{User: userFromRow(row), Session: sessionFromRow(session)}
	return
}

// RefreshSession rotates an existing session token, extending its validity window.
func (s *AuthService) RefreshSession(ctx context.Context, params RefreshSessionParams) (result RefreshSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	token := strings.TrimSpace(params.Token)
	logger := s.loggerWith(ctx, "RefreshSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session refresh failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"session_id", result.Session.ID,
			"user_id", result.Session.UserID,
		).InfoContext(ctx, "session refreshed")
	}()

	if token == "" {
		err = ErrInvalidCredentials
		return
	}

	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		session, err := repos.Sessions().GetSession(ctx, token)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}

		now := s.now()
		if err := checkSessionActive(session, now); err != nil {
			return err
		}

		if newToken := s.tokenGenerator(); newToken != "" {
			session.Token = newToken
		}
		session.UpdatedAt = now
		session.ExpiresAt = now.Add(s.sessionTTL)
		if fp := strings.TrimSpace(params.Fingerprint); fp != "" {
			session.Fingerprint = fp
		}

		updated, err := repos.Sessions().UpdateSession(ctx, session)
		if err != nil {
			return err
		}
		result = RefreshSessionResult{Session: sessionFromRow(updated)}
		return nil
	})
	if err != nil && !isAuthError(err) {
		err = mapPersistenceError("refresh session", err)
	}
	return
}

// RevokeSession invalidates an existing session token and prunes expired sessions.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("store not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", true)

	now := s.now()
	err := s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		if _, err := repos.Sessions().RevokeSession(ctx, trimmed, now); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}
		return repos.Sessions().DeleteExpiredSessions(ctx, now)
	})
	if err != nil {
		if !isAuthError(err) {
			err = mapPersistenceError("revoke session", err)
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies that the provided token corresponds to an active session and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	var session persistence.Session
	session, err = s.store.Sessions().GetSession(ctx, trimmed)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = fmt.Errorf("load session: %w", err)
		return
	}

	if err = checkSessionActive(session, s.now()); err != nil {
		return
	}

	var user persistence.User
	user, err = s.store.Users().GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = fmt.Errorf("load session user: %w", err)
		return
	}

	principal = Principal{UserID: user.ID}
	return
}

func checkSessionActive(session persistence.Session, now time.Time) error {
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return ErrSessionRevoked
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		return ErrSessionExpired
	}
	return nil
}

func isAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrSessionRevoked)
}

func sessionFromRow(row persistence.Session) Session {
	return Session{
		ID:          row.ID,
		UserID:      row.UserID,
		Token:       row.Token,
		Fingerprint: row.Fingerprint,
		ExpiresAt:   row.ExpiresAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		RevokedAt:   row.RevokedAt,
	}
}
