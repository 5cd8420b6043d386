package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/sublease-marketplace/internal/persistence"
	"github.com/example/sublease-marketplace/internal/persistence/memstore"
	"github.com/example/sublease-marketplace/internal/persistence/sqlstore"
)

// NewSQLStore opens a migrated SQLite store in a temporary file. The store is closed when the
// test finishes.
func NewSQLStore(tb testing.TB) *sqlstore.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "sublease.db")
	store, err := sqlstore.Open(context.Background(), "file:"+path, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return store
}

// NewMemStore returns an empty in-memory store.
func NewMemStore(tb testing.TB) *memstore.Store {
	tb.Helper()
	store := memstore.New()
	tb.Cleanup(func() { _ = store.Close() })
	return store
}

// StoreFactory builds a fresh store for one test.
type StoreFactory func(tb testing.TB) persistence.Store

// Backends lists every Store implementation so contract tests can run against each of them.
func Backends() map[string]StoreFactory {
	return map[string]StoreFactory{
		"sqlite": func(tb testing.TB) persistence.Store { return NewSQLStore(tb) },
		"memory": func(tb testing.TB) persistence.Store { return NewMemStore(tb) },
	}
}

// Seed writes the given rows in dependency order: users, listings, booking requests, sessions.
func Seed(tb testing.TB, store persistence.Store, rows ...any) {
	tb.Helper()

	ctx := context.Background()
	ordered := make([][]any, 4)
	for _, row := range rows {
		switch row.(type) {
		case persistence.User:
			ordered[0] = append(ordered[0], row)
		case persistence.Listing:
			ordered[1] = append(ordered[1], row)
		case persistence.BookingRequest:
			ordered[2] = append(ordered[2], row)
		case persistence.Session:
			ordered[3] = append(ordered[3], row)
		default:
			tb.Fatalf("cannot seed %T", row)
		}
	}

	for _, group := range ordered {
		for _, row := range group {
			var err error
			switch r := row.(type) {
			case persistence.User:
				err = store.Users().CreateUser(ctx, r)
			case persistence.Listing:
				err = store.Listings().CreateListing(ctx, r)
			case persistence.BookingRequest:
				err = store.BookingRequests().CreateBookingRequest(ctx, r)
			case persistence.Session:
				_, err = store.Sessions().CreateSession(ctx, r)
			}
			if err != nil {
				tb.Fatalf("seed %T: %v", row, err)
			}
		}
	}
}
