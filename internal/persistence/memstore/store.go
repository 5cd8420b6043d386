// Package memstore provides an in-memory persistence.Store for service and handler tests. It
// enforces the same uniqueness, foreign key and conditional update rules as the SQL store so the
// shared repository tests can run against both.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/sublease-marketplace/internal/persistence"
)

type state struct {
	users    map[string]persistence.User
	listings map[string]persistence.Listing
	requests map[string]persistence.BookingRequest
	sessions map[string]persistence.Session
}

func newState() *state {
	return &state{
		users:    make(map[string]persistence.User),
		listings: make(map[string]persistence.Listing),
		requests: make(map[string]persistence.BookingRequest),
		sessions: make(map[string]persistence.Session),
	}
}

func (st *state) clone() *state {
	out := newState()
	for id, user := range st.users {
		out.users[id] = cloneUser(user)
	}
	for id, listing := range st.listings {
		out.listings[id] = cloneListing(listing)
	}
	for id, request := range st.requests {
		out.requests[id] = cloneRequest(request)
	}
	for token, session := range st.sessions {
		out.sessions[token] = cloneSession(session)
	}
	return out
}

// Store is a mutex guarded in-memory implementation of persistence.Store.
type Store struct {
	mu sync.RWMutex
	st *state
}

var _ persistence.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// Close is a no-op for the in-memory implementation.
func (s *Store) Close() error {
	return nil
}

func (s *Store) repos() *repositories {
	return &repositories{
		view: func() (*state, func()) {
			s.mu.RLock()
			return s.st, s.mu.RUnlock
		},
		edit: func() (*state, func()) {
			s.mu.Lock()
			return s.st, s.mu.Unlock
		},
	}
}

// Users returns a repository operating outside any transaction.
func (s *Store) Users() persistence.UserRepository { return s.repos() }

// Listings returns a repository operating outside any transaction.
func (s *Store) Listings() persistence.ListingRepository { return s.repos() }

// BookingRequests returns a repository operating outside any transaction.
func (s *Store) BookingRequests() persistence.BookingRequestRepository { return s.repos() }

// Sessions returns a repository operating outside any transaction.
func (s *Store) Sessions() persistence.SessionRepository { return s.repos() }

// WithinTx serialises fn against a private copy of the data and publishes the copy only when fn
// succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(repos persistence.Repositories) error) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.st.clone()
	noop := func() {}
	tx := &repositories{
		view: func() (*state, func()) { return working, noop },
		edit: func() (*state, func()) { return working, noop },
	}

	// A panic in fn unwinds through the deferred unlock and the working copy is dropped.
	if err = fn(tx); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return fmt.Errorf("memstore: commit aborted: %w", err)
	}

	s.st = working
	return nil
}

type repositories struct {
	view func() (*state, func())
	edit func() (*state, func())
}

func (r *repositories) Users() persistence.UserRepository                     { return r }
func (r *repositories) Listings() persistence.ListingRepository               { return r }
func (r *repositories) BookingRequests() persistence.BookingRequestRepository { return r }
func (r *repositories) Sessions() persistence.SessionRepository               { return r }
