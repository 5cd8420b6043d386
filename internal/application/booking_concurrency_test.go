package application_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/example/sublease-marketplace/internal/application"
	"github.com/example/sublease-marketplace/internal/persistence"
	"github.com/example/sublease-marketplace/internal/testfixtures"
)

const racers = 20

type bookingWorld struct {
	svc     *application.BookingService
	owner   persistence.User
	renter  persistence.User
	listing persistence.Listing
}

func newBookingWorld(t *testing.T, store persistence.Store) bookingWorld {
	t.Helper()
	w := bookingWorld{
		owner:  testfixtures.NewUserFixture().Persistence(),
		renter: testfixtures.NewUserFixture().Persistence(),
	}
	w.listing = testfixtures.NewListingFixture(w.owner.ID).Persistence()
	testfixtures.Seed(t, store, w.owner, w.renter, w.listing)
	w.svc = testfixtures.NewServiceFactory().NewBookingService(store)
	return w
}

// race runs fn from racers goroutines at once and returns how many calls succeeded. Errors that
// do not match expected fail the test.
func race(t *testing.T, expected error, fn func(i int) error) int {
	t.Helper()

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		ok      atomic.Int32
		mu      sync.Mutex
		unknown []error
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := fn(i)
			switch {
			case err == nil:
				ok.Add(1)
			case !errors.Is(err, expected):
				mu.Lock()
				unknown = append(unknown, err)
				mu.Unlock()
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if len(unknown) > 0 {
		t.Fatalf("expected only %v from losing calls, got %v", expected, unknown)
	}
	return int(ok.Load())
}

func TestBookingServiceConcurrentCreate(t *testing.T) {
	t.Parallel()

	for name, open := range testfixtures.Backends() {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			w := newBookingWorld(t, open(t))

			created := race(t, application.ErrAlreadyExists, func(int) error {
				_, err := w.svc.CreateRequest(ctx, application.Principal{UserID: w.renter.ID}, w.listing.ID)
				return err
			})
			if created != 1 {
				t.Fatalf("expected exactly one request to be created, got %d", created)
			}

			outgoing, err := w.svc.OutgoingRequests(ctx, w.renter.ID)
			if err != nil {
				t.Fatalf("OutgoingRequests failed: %v", err)
			}
			if len(outgoing) != 1 {
				t.Fatalf("expected a single stored request, got %d", len(outgoing))
			}
		})
	}
}

func TestBookingServiceConcurrentDecisions(t *testing.T) {
	t.Parallel()

	for name, open := range testfixtures.Backends() {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			w := newBookingWorld(t, open(t))

			request, err := w.svc.CreateRequest(ctx, application.Principal{UserID: w.renter.ID}, w.listing.ID)
			if err != nil {
				t.Fatalf("CreateRequest failed: %v", err)
			}

			var (
				mu     sync.Mutex
				winner application.BookingStatus
			)
			decided := race(t, application.ErrInvalidTransition, func(i int) error {
				if i%2 == 0 {
					result, err := w.svc.Approve(ctx, request.ID, w.owner.ID)
					if err == nil {
						mu.Lock()
						winner = result.Request.Status
						mu.Unlock()
					}
					return err
				}
				rejected, err := w.svc.Reject(ctx, request.ID, w.owner.ID)
				if err == nil {
					mu.Lock()
					winner = rejected.Status
					mu.Unlock()
				}
				return err
			})
			if decided != 1 {
				t.Fatalf("expected exactly one decision to win, got %d", decided)
			}

			stored, err := w.svc.GetRequest(ctx, application.Principal{UserID: w.owner.ID}, request.ID)
			if err != nil {
				t.Fatalf("GetRequest failed: %v", err)
			}
			if stored.Status != winner {
				t.Fatalf("expected stored status %s to match the winning call, got %s", winner, stored.Status)
			}
		})
	}
}

func TestBookingServiceReportsDecidedState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := newBookingWorld(t, testfixtures.NewMemStore(t))

	request, err := w.svc.CreateRequest(ctx, application.Principal{UserID: w.renter.ID}, w.listing.ID)
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if _, err := w.svc.Approve(ctx, request.ID, w.owner.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	_, err = w.svc.Reject(ctx, request.ID, w.owner.ID)
	if !errors.Is(err, application.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if want := "request already approved"; err == nil || !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to mention %q, got %v", want, err)
	}
}
