package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/sublease-marketplace/internal/geocode"
	"github.com/example/sublease-marketplace/internal/mail"
	"github.com/example/sublease-marketplace/internal/persistence"
	"github.com/example/sublease-marketplace/internal/persistence/memstore"
)

var testNow = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// sequence returns a generator yielding prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func plainHasher(password string) (string, error) {
	return "hashed:" + password, nil
}

func plainVerifier(hash, password string) error {
	if hash != "hashed:"+password {
		return ErrInvalidCredentials
	}
	return nil
}

func seedUser(t *testing.T, store persistence.Store, id, email string) persistence.User {
	t.Helper()
	user := persistence.User{
		ID:           id,
		Email:        email,
		Name:         "User " + id,
		PasswordHash: "hashed:password123",
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	if err := store.Users().CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return user
}

type listingOption func(*persistence.Listing)

func withCost(cost float64) listingOption {
	return func(l *persistence.Listing) { l.CostPerMonth = cost }
}

func withRooms(total, inUse int) listingOption {
	return func(l *persistence.Listing) {
		l.TotalRooms = total
		l.BedroomsInUse = inUse
		l.BedroomsAvailable = total - inUse
	}
}

func withDates(start, end string) listingOption {
	return func(l *persistence.Listing) {
		l.AvailableStartDate = start
		l.AvailableEndDate = end
	}
}

func withCreatedAt(at time.Time) listingOption {
	return func(l *persistence.Listing) {
		l.CreatedAt = at
		l.UpdatedAt = at
	}
}

func seedListing(t *testing.T, store persistence.Store, id, listerID string, opts ...listingOption) persistence.Listing {
	t.Helper()
	listing := persistence.Listing{
		ID:                 id,
		ListerID:           listerID,
		Title:              "Listing " + id,
		TotalRooms:         3,
		BedroomsInUse:      1,
		BedroomsAvailable:  2,
		Bathrooms:          1,
		CostPerMonth:       900,
		AvailableStartDate: "2025-06-01",
		AvailableEndDate:   "2025-08-31",
		Address:            "12 Elm St",
		City:               "Ithaca",
		State:              "NY",
		ZipCode:            "14850",
		CreatedAt:          testNow,
		UpdatedAt:          testNow,
	}
	for _, opt := range opts {
		opt(&listing)
	}
	if err := store.Listings().CreateListing(context.Background(), listing); err != nil {
		t.Fatalf("seed listing %s: %v", id, err)
	}
	return listing
}

func newTestStore(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type geocoderStub struct {
	mu     sync.Mutex
	coords geocode.Coordinates
	err    error
	calls  []string
}

func (g *geocoderStub) Geocode(ctx context.Context, address string) (geocode.Coordinates, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, address)
	if g.err != nil {
		return geocode.Coordinates{}, g.err
	}
	return g.coords, nil
}

type senderStub struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *senderStub) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// failingStore wraps a store and fails every transaction with err.
type failingStore struct {
	persistence.Store
	err error
}

func (f failingStore) WithinTx(ctx context.Context, fn func(repos persistence.Repositories) error) error {
	return f.err
}

var errStoreDown = errors.New("store down")

func validListingInput() ListingInput {
	return ListingInput{
		Title:              "Sunny room near campus",
		TotalRooms:         4,
		BedroomsInUse:      1,
		Bathrooms:          2,
		CostPerMonth:       850,
		AvailableStartDate: "2025-06-01",
		AvailableEndDate:   "2025-08-15",
		Address:            "100 College Ave",
		City:               "Ithaca",
		State:              "NY",
		ZipCode:            "14850",
		Amenities:          "laundry, parking",
		Images:             []string{"https://img.example.com/1.jpg"},
	}
}
