package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/sublease-marketplace/internal/logging"
)

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, base, "service", serviceName, operation, attrs...)
}

// Error kinds reported by ErrorKind. They double as the HTTP error_code.
const (
	KindValidation         = "validation"
	KindNotFound           = "not_found"
	KindConflict           = "conflict"
	KindUnauthorized       = "unauthorized"
	KindInvalidCredentials = "invalid_credentials"
	KindSessionExpired     = "session_expired"
	KindSessionRevoked     = "session_revoked"
	KindUpstreamFailure    = "upstream_failure"
	KindUnexpected         = "unexpected"
)

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrInvalidTransition):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrSessionExpired):
		return KindSessionExpired
	case errors.Is(err, ErrSessionRevoked):
		return KindSessionRevoked
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindValidation
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return KindUpstreamFailure
	}

	return KindUnexpected
}
