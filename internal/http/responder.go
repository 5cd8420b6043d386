package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/sublease-marketplace/internal/application"
)

const (
	codeBadRequest      = "bad_request"
	codeUnauthenticated = "unauthenticated"
	codeInternal        = "internal"
)

var (
	errBadRequestBody      = errors.New("request body is not valid JSON")
	errMissingSessionToken = errors.New("a session token is required")
	errInvalidSession      = errors.New("session is invalid, please log in again")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

// handleServiceError translates application errors into the JSON error envelope.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, errors.New("unknown error"))
		return
	}

	kind := application.ErrorKind(err)
	status := statusForKind(kind)
	resp := errorResponse{ErrorCode: kind, Message: messageForKind(kind)}

	switch kind {
	case application.KindValidation:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			resp.Errors = vErr.FieldErrors
		}
	case application.KindUnexpected:
		resp.ErrorCode = codeInternal
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
	}

	r.writeJSON(ctx, w, status, resp)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusForKind(kind string) int {
	switch kind {
	case application.KindValidation:
		return http.StatusBadRequest
	case application.KindNotFound:
		return http.StatusNotFound
	case application.KindConflict:
		return http.StatusConflict
	case application.KindUnauthorized:
		return http.StatusForbidden
	case application.KindInvalidCredentials, application.KindSessionExpired, application.KindSessionRevoked:
		return http.StatusUnauthorized
	case application.KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageForKind(kind string) string {
	switch kind {
	case application.KindValidation:
		return "the request contains invalid fields"
	case application.KindNotFound:
		return "the requested resource was not found"
	case application.KindConflict:
		return "the request conflicts with the current state of the resource"
	case application.KindUnauthorized:
		return "you are not allowed to perform this action"
	case application.KindInvalidCredentials:
		return "invalid email or password"
	case application.KindSessionExpired:
		return "session expired, please log in again"
	case application.KindSessionRevoked:
		return "session was logged out, please log in again"
	case application.KindUpstreamFailure:
		return "an upstream service failed, please try again later"
	default:
		return "internal server error"
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
