package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/sublease-marketplace/internal/logging"
)

func TestServiceLogger(t *testing.T) {
	t.Parallel()

	var base, scoped bytes.Buffer
	baseLogger := slog.New(slog.NewJSONHandler(&base, nil))

	serviceLogger(context.Background(), baseLogger, "ListingService", "CreateListing", "listing_id", "l-1").Info("hello")
	for _, want := range []string{`"service":"ListingService"`, `"operation":"CreateListing"`, `"listing_id":"l-1"`} {
		if !strings.Contains(base.String(), want) {
			t.Fatalf("expected %s in %s", want, base.String())
		}
	}

	ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&scoped, nil)).With("request_id", "req-9"))
	serviceLogger(ctx, baseLogger, "SearchService", "Search").Info("from context")
	if !strings.Contains(scoped.String(), `"request_id":"req-9"`) {
		t.Fatalf("expected context logger to be preferred, got %s", scoped.String())
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: ErrUnauthorized, want: KindUnauthorized},
		{err: fmt.Errorf("wrap: %w", ErrNotFound), want: KindNotFound},
		{err: ErrAlreadyExists, want: KindConflict},
		{err: ErrInvalidTransition, want: KindConflict},
		{err: ErrInvalidCredentials, want: KindInvalidCredentials},
		{err: ErrSessionExpired, want: KindSessionExpired},
		{err: ErrSessionRevoked, want: KindSessionRevoked},
		{err: fieldError("f", "bad"), want: KindValidation},
		{err: &UpstreamError{Service: "mail", Err: errors.New("x")}, want: KindUpstreamFailure},
		{err: errors.New("other"), want: KindUnexpected},
	}
	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
