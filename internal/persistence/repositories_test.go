package persistence_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/example/sublease-marketplace/internal/persistence"
	"github.com/example/sublease-marketplace/internal/testfixtures"
)

// forEachBackend runs fn against a fresh store from every implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, store persistence.Store)) {
	t.Helper()
	for name, open := range testfixtures.Backends() {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fn(t, open(t))
		})
	}
}

func listingIDs(listings []persistence.Listing) []string {
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	return ids
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestUserRepository(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		alice := testfixtures.NewUserFixture(
			testfixtures.WithUserID("user-a"),
			testfixtures.WithUserEmail("alice@cornell.edu"),
			testfixtures.WithUserName("Alice"),
			testfixtures.WithUserSchool("Cornell"),
		).Persistence()
		bob := testfixtures.NewUserFixture(testfixtures.WithUserID("user-b")).Persistence()
		testfixtures.Seed(t, store, alice, bob)

		fetched, err := store.Users().GetUser(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if fetched.Name != "Alice" || fetched.PasswordHash != alice.PasswordHash {
			t.Fatalf("unexpected user data: %#v", fetched)
		}
		if fetched.School == nil || *fetched.School != "Cornell" {
			t.Fatalf("expected school Cornell, got %v", fetched.School)
		}
		if !fetched.CreatedAt.Equal(alice.CreatedAt) {
			t.Fatalf("expected created_at %v, got %v", alice.CreatedAt, fetched.CreatedAt)
		}

		byEmail, err := store.Users().GetUserByEmail(ctx, "ALICE@cornell.edu")
		if err != nil || byEmail.ID != alice.ID {
			t.Fatalf("expected case-insensitive email lookup, got %v %v", byEmail.ID, err)
		}

		dup := testfixtures.NewUserFixture(testfixtures.WithUserEmail("alice@cornell.edu")).Persistence()
		if err := store.Users().CreateUser(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate for a reused email, got %v", err)
		}

		if _, err := store.Users().GetUser(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		users, err := store.Users().ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 2 || users[0].ID != alice.ID {
			t.Fatalf("expected users ordered by creation, got %+v", users)
		}
	})
}

func TestListingRepository(t *testing.T) {
	t.Parallel()

	t.Run("round trips every column", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			owner := testfixtures.NewUserFixture().Persistence()
			listing := testfixtures.NewListingFixture(owner.ID,
				testfixtures.WithListingRooms(4, 1),
				testfixtures.WithListingCoordinates(42.44, -76.5),
				testfixtures.WithListingImages("https://img.example/1.jpg", "https://img.example/2.jpg"),
			).Persistence()
			testfixtures.Seed(t, store, owner, listing)

			got, err := store.Listings().GetListing(ctx, listing.ID)
			if err != nil {
				t.Fatalf("GetListing failed: %v", err)
			}
			if got.Title != listing.Title || got.BedroomsAvailable != 3 || got.CostPerMonth != listing.CostPerMonth {
				t.Fatalf("unexpected listing: %#v", got)
			}
			if got.Latitude == nil || *got.Latitude != 42.44 || got.Longitude == nil || *got.Longitude != -76.5 {
				t.Fatalf("expected coordinates, got %v %v", got.Latitude, got.Longitude)
			}
			if !slices.Equal(got.Images, listing.Images) {
				t.Fatalf("expected images %v, got %v", listing.Images, got.Images)
			}
			if got.AvailableStartDate != "2025-06-01" || got.AvailableEndDate != "2025-08-31" {
				t.Fatalf("unexpected dates %s..%s", got.AvailableStartDate, got.AvailableEndDate)
			}
		})
	})

	t.Run("rejects rows that break the schema", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			owner := testfixtures.NewUserFixture().Persistence()
			testfixtures.Seed(t, store, owner)

			overbooked := testfixtures.NewListingFixture(owner.ID).Persistence()
			overbooked.BedroomsInUse = overbooked.TotalRooms + 1
			overbooked.BedroomsAvailable = -1
			if err := store.Listings().CreateListing(ctx, overbooked); !errors.Is(err, persistence.ErrConstraintViolation) {
				t.Fatalf("expected ErrConstraintViolation, got %v", err)
			}

			orphan := testfixtures.NewListingFixture("nobody").Persistence()
			if err := store.Listings().CreateListing(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
				t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
			}
		})
	})

	t.Run("update keeps owner and delete cascades to requests", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			owner := testfixtures.NewUserFixture().Persistence()
			renter := testfixtures.NewUserFixture().Persistence()
			listing := testfixtures.NewListingFixture(owner.ID).Persistence()
			request := testfixtures.NewBookingRequestFixture(listing.ID, renter.ID).Persistence()
			testfixtures.Seed(t, store, owner, renter, listing, request)

			listing.Title = "Renamed"
			listing.UpdatedAt = listing.UpdatedAt.Add(time.Hour)
			if err := store.Listings().UpdateListing(ctx, listing); err != nil {
				t.Fatalf("UpdateListing failed: %v", err)
			}
			got, _ := store.Listings().GetListing(ctx, listing.ID)
			if got.Title != "Renamed" || got.ListerID != owner.ID {
				t.Fatalf("unexpected updated listing %#v", got)
			}

			missing := testfixtures.NewListingFixture(owner.ID).Persistence()
			if err := store.Listings().UpdateListing(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound for unknown listing, got %v", err)
			}

			if err := store.Listings().DeleteListing(ctx, listing.ID); err != nil {
				t.Fatalf("DeleteListing failed: %v", err)
			}
			if _, err := store.BookingRequests().GetBookingRequest(ctx, request.ID); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected request to be removed with its listing, got %v", err)
			}
			if err := store.Listings().DeleteListing(ctx, listing.ID); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
		})
	})

	t.Run("filters", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			owner := testfixtures.NewUserFixture().Persistence()
			other := testfixtures.NewUserFixture().Persistence()
			base := testfixtures.ReferenceTime()

			cheap := testfixtures.NewListingFixture(owner.ID,
				testfixtures.WithListingID("cheap"),
				testfixtures.WithListingTitle("Cozy studio"),
				testfixtures.WithListingCost(500),
				testfixtures.WithListingRooms(1, 0),
				testfixtures.WithListingDates("2025-05-15", "2025-08-31"),
				testfixtures.WithListingCreatedAt(base),
			).Persistence()
			mid := testfixtures.NewListingFixture(owner.ID,
				testfixtures.WithListingID("mid"),
				testfixtures.WithListingTitle("Shared house"),
				testfixtures.WithListingCost(800),
				testfixtures.WithListingRooms(4, 1),
				testfixtures.WithListingBathrooms(2),
				testfixtures.WithListingDates("2025-06-15", "2025-07-31"),
				testfixtures.WithListingCoordinates(42.4, -76.5),
				testfixtures.WithListingCreatedAt(base.Add(time.Minute)),
			).Persistence()
			pricey := testfixtures.NewListingFixture(other.ID,
				testfixtures.WithListingID("pricey"),
				testfixtures.WithListingTitle("Penthouse"),
				testfixtures.WithListingLocation("1 Main St", "Syracuse"),
				testfixtures.WithListingCost(1500),
				testfixtures.WithListingRooms(3, 0),
				testfixtures.WithListingDates("2025-06-01", "2025-12-31"),
				testfixtures.WithListingCreatedAt(base.Add(2*time.Minute)),
			).Persistence()
			testfixtures.Seed(t, store, owner, other, cheap, mid, pricey)

			tests := []struct {
				name   string
				filter persistence.ListingFilter
				want   []string
			}{
				{name: "no predicates", want: []string{"cheap", "mid", "pricey"}},
				{name: "cost ceiling", filter: persistence.ListingFilter{MaxCost: floatPtr(800)}, want: []string{"cheap", "mid"}},
				{name: "cost and bedrooms", filter: persistence.ListingFilter{MaxCost: floatPtr(800), MinBedrooms: intPtr(2)}, want: []string{"mid"}},
				{name: "bathrooms", filter: persistence.ListingFilter{MinBathrooms: intPtr(2)}, want: []string{"mid"}},
				{name: "lister", filter: persistence.ListingFilter{ListerID: other.ID}, want: []string{"pricey"}},
				{name: "mappable", filter: persistence.ListingFilter{MappableOnly: true}, want: []string{"mid"}},
				{name: "query matches city", filter: persistence.ListingFilter{Query: "syra"}, want: []string{"pricey"}},
				{name: "query matches title", filter: persistence.ListingFilter{Query: "STUDIO"}, want: []string{"cheap"}},
				{
					name:   "contain",
					filter: persistence.ListingFilter{StayStart: "2025-06-01", StayEnd: "2025-08-01", DateMatch: persistence.DateMatchContain},
					want:   []string{"cheap", "pricey"},
				},
				{
					name:   "overlap",
					filter: persistence.ListingFilter{StayStart: "2025-07-15", StayEnd: "2025-09-15", DateMatch: persistence.DateMatchOverlap},
					want:   []string{"cheap", "mid", "pricey"},
				},
				{
					name:   "overlap excludes disjoint windows",
					filter: persistence.ListingFilter{StayStart: "2025-09-01", StayEnd: "2025-10-01", DateMatch: persistence.DateMatchOverlap},
					want:   []string{"pricey"},
				},
				{name: "limit", filter: persistence.ListingFilter{Limit: 2}, want: []string{"cheap", "mid"}},
				{name: "offset", filter: persistence.ListingFilter{Limit: 2, Offset: 2}, want: []string{"pricey"}},
				{name: "offset past end", filter: persistence.ListingFilter{Offset: 5}, want: []string{}},
			}

			for _, tc := range tests {
				got, err := store.Listings().ListListings(ctx, tc.filter)
				if err != nil {
					t.Fatalf("%s: ListListings failed: %v", tc.name, err)
				}
				if ids := listingIDs(got); !slices.Equal(ids, tc.want) {
					t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, ids)
				}
			}
		})
	})
}

func TestListingQueryFoldsUnicodeCase(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		owner := testfixtures.NewUserFixture().Persistence()
		munich := testfixtures.NewListingFixture(owner.ID,
			testfixtures.WithListingID("munich"),
			testfixtures.WithListingTitle("ZIMMER AM ENGLISCHEN GARTEN"),
			testfixtures.WithListingLocation("Schönfeldstraße 4", "MÜNCHEN"),
		).Persistence()
		testfixtures.Seed(t, store, owner, munich)

		for _, query := range []string{"münchen", "MÜNCHEN", "schönfeld", "SCHÖNFELDSTRASSE"} {
			got, err := store.Listings().ListListings(ctx, persistence.ListingFilter{Query: query})
			if err != nil {
				t.Fatalf("ListListings(%q) failed: %v", query, err)
			}
			want := []string{"munich"}
			if query == "SCHÖNFELDSTRASSE" {
				// ß does not fold to "ss".
				want = []string{}
			}
			if ids := listingIDs(got); !slices.Equal(ids, want) {
				t.Fatalf("query %q: expected %v, got %v", query, want, ids)
			}
		}
	})
}

func TestBookingRequestRepository(t *testing.T) {
	t.Parallel()

	type world struct {
		owner, renter persistence.User
		listing       persistence.Listing
	}
	seedWorld := func(t *testing.T, store persistence.Store) world {
		w := world{
			owner:  testfixtures.NewUserFixture(testfixtures.WithUserName("Owner")).Persistence(),
			renter: testfixtures.NewUserFixture(testfixtures.WithUserName("Renter")).Persistence(),
		}
		w.listing = testfixtures.NewListingFixture(w.owner.ID).Persistence()
		testfixtures.Seed(t, store, w.owner, w.renter, w.listing)
		return w
	}

	t.Run("one active request per pair", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			w := seedWorld(t, store)

			first := testfixtures.NewBookingRequestFixture(w.listing.ID, w.renter.ID).Persistence()
			if err := store.BookingRequests().CreateBookingRequest(ctx, first); err != nil {
				t.Fatalf("CreateBookingRequest failed: %v", err)
			}
			second := testfixtures.NewBookingRequestFixture(w.listing.ID, w.renter.ID).Persistence()
			if err := store.BookingRequests().CreateBookingRequest(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
				t.Fatalf("expected ErrDuplicate, got %v", err)
			}

			if _, err := store.BookingRequests().TransitionBookingRequest(ctx, first.ID, persistence.StatusPending, persistence.StatusRejected, testfixtures.ReferenceTime()); err != nil {
				t.Fatalf("TransitionBookingRequest failed: %v", err)
			}
			if err := store.BookingRequests().CreateBookingRequest(ctx, second); err != nil {
				t.Fatalf("expected a new request after rejection, got %v", err)
			}

			orphan := testfixtures.NewBookingRequestFixture("missing", w.renter.ID).Persistence()
			if err := store.BookingRequests().CreateBookingRequest(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
				t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
			}
		})
	})

	t.Run("transition is a compare and swap", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			w := seedWorld(t, store)
			request := testfixtures.NewBookingRequestFixture(w.listing.ID, w.renter.ID).Persistence()
			testfixtures.Seed(t, store, request)

			decided := testfixtures.ReferenceTime().Add(3 * time.Hour)
			updated, err := store.BookingRequests().TransitionBookingRequest(ctx, request.ID, persistence.StatusPending, persistence.StatusApproved, decided)
			if err != nil {
				t.Fatalf("TransitionBookingRequest failed: %v", err)
			}
			if updated.Status != persistence.StatusApproved || updated.DecidedAt == nil || !updated.DecidedAt.Equal(decided) {
				t.Fatalf("unexpected transition result %#v", updated)
			}

			_, err = store.BookingRequests().TransitionBookingRequest(ctx, request.ID, persistence.StatusPending, persistence.StatusRejected, decided)
			if !errors.Is(err, persistence.ErrStaleState) {
				t.Fatalf("expected ErrStaleState, got %v", err)
			}
			_, err = store.BookingRequests().TransitionBookingRequest(ctx, "missing", persistence.StatusPending, persistence.StatusApproved, decided)
			if !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			stored, _ := store.BookingRequests().GetBookingRequest(ctx, request.ID)
			if stored.Status != persistence.StatusApproved {
				t.Fatalf("expected stored status approved, got %s", stored.Status)
			}
		})
	})

	t.Run("incoming and outgoing joins", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			w := seedWorld(t, store)
			second := testfixtures.NewListingFixture(w.owner.ID).Persistence()
			base := testfixtures.ReferenceTime()
			older := testfixtures.NewBookingRequestFixture(w.listing.ID, w.renter.ID, testfixtures.WithRequestCreatedAt(base)).Persistence()
			newer := testfixtures.NewBookingRequestFixture(second.ID, w.renter.ID, testfixtures.WithRequestCreatedAt(base.Add(time.Hour))).Persistence()
			testfixtures.Seed(t, store, second, older, newer)

			incoming, err := store.BookingRequests().ListIncomingRequests(ctx, w.owner.ID, persistence.StatusPending)
			if err != nil {
				t.Fatalf("ListIncomingRequests failed: %v", err)
			}
			if len(incoming) != 2 || incoming[0].Request.ID != older.ID {
				t.Fatalf("expected two incoming requests oldest first, got %+v", incoming)
			}
			if incoming[0].RequesterName != "Renter" || incoming[0].ListingTitle != w.listing.Title {
				t.Fatalf("unexpected join columns %+v", incoming[0])
			}

			if none, _ := store.BookingRequests().ListIncomingRequests(ctx, w.renter.ID, persistence.StatusPending); len(none) != 0 {
				t.Fatalf("expected no incoming requests for the renter, got %d", len(none))
			}

			outgoing, err := store.BookingRequests().ListOutgoingRequests(ctx, w.renter.ID)
			if err != nil {
				t.Fatalf("ListOutgoingRequests failed: %v", err)
			}
			if len(outgoing) != 2 || outgoing[0].Request.ID != newer.ID {
				t.Fatalf("expected two outgoing requests newest first, got %+v", outgoing)
			}

			if err := store.BookingRequests().DeleteBookingRequest(ctx, older.ID); err != nil {
				t.Fatalf("DeleteBookingRequest failed: %v", err)
			}
			if err := store.BookingRequests().DeleteBookingRequest(ctx, older.ID); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
		})
	})
}

func TestSessionRepository(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		base := testfixtures.ReferenceTime()
		user := testfixtures.NewUserFixture().Persistence()
		active := testfixtures.NewSessionFixture(user.ID, testfixtures.WithSessionToken("active")).Persistence()
		expired := testfixtures.NewSessionFixture(user.ID,
			testfixtures.WithSessionToken("expired"),
			testfixtures.WithSessionExpiry(base.Add(-time.Minute)),
		).Persistence()
		testfixtures.Seed(t, store, user, active, expired)

		got, err := store.Sessions().GetSession(ctx, "active")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.UserID != user.ID || !got.ExpiresAt.Equal(active.ExpiresAt) {
			t.Fatalf("unexpected session %#v", got)
		}

		got.Token = "rotated"
		got.ExpiresAt = base.Add(48 * time.Hour)
		if _, err := store.Sessions().UpdateSession(ctx, got); err != nil {
			t.Fatalf("UpdateSession failed: %v", err)
		}
		if _, err := store.Sessions().GetSession(ctx, "active"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected old token to be gone, got %v", err)
		}

		revoked, err := store.Sessions().RevokeSession(ctx, "rotated", base)
		if err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(base) {
			t.Fatalf("expected revoked_at %v, got %v", base, revoked.RevokedAt)
		}
		if _, err := store.Sessions().RevokeSession(ctx, "missing", base); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		if err := store.Sessions().DeleteExpiredSessions(ctx, base); err != nil {
			t.Fatalf("DeleteExpiredSessions failed: %v", err)
		}
		if _, err := store.Sessions().GetSession(ctx, "expired"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected expired session to be pruned, got %v", err)
		}
		if _, err := store.Sessions().GetSession(ctx, "rotated"); err != nil {
			t.Fatalf("expected live session to survive pruning, got %v", err)
		}
	})
}

func TestStoreWithinTx(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		user := testfixtures.NewUserFixture().Persistence()
		boom := errors.New("boom")

		err := store.WithinTx(ctx, func(repos persistence.Repositories) error {
			if err := repos.Users().CreateUser(ctx, user); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected callback error, got %v", err)
		}
		if _, err := store.Users().GetUser(ctx, user.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected rollback, got %v", err)
		}

		err = store.WithinTx(ctx, func(repos persistence.Repositories) error {
			return repos.Users().CreateUser(ctx, user)
		})
		if err != nil {
			t.Fatalf("WithinTx failed: %v", err)
		}
		if _, err := store.Users().GetUser(ctx, user.ID); err != nil {
			t.Fatalf("expected committed user, got %v", err)
		}
	})
}
