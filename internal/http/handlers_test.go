package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/example/sublease-marketplace/internal/application"
	"github.com/example/sublease-marketplace/internal/geocode"
	"github.com/example/sublease-marketplace/internal/persistence/memstore"
)

var apiNow = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

type fixedGeocoder struct{}

func (fixedGeocoder) Geocode(context.Context, string) (geocode.Coordinates, error) {
	return geocode.Coordinates{Lat: 42.44, Lng: -76.5}, nil
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T, geocoder geocode.Geocoder) *testAPI {
	t.Helper()

	store := memstore.New()
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return apiNow }
	ids := counter("id")

	users := application.NewUserServiceWithLogger(store, application.SignupPolicy{
		Hasher: func(password string) (string, error) { return "hashed:" + password, nil },
	}, ids, clock, logger)
	auth := application.NewAuthServiceWithLogger(store, func(hash, password string) error {
		if hash != "hashed:"+password {
			return application.ErrInvalidCredentials
		}
		return nil
	}, counter("token"), clock, time.Hour, logger)
	listings := application.NewListingServiceWithLogger(store, geocoder, ids, clock, logger)
	search := application.NewSearchServiceWithLogger(store, logger)
	bookings := application.NewBookingServiceWithLogger(store, ids, clock, logger)

	return &testAPI{t: t, handler: NewRouter(RouterConfig{
		Auth:     NewAuthHandler(auth, false, logger),
		Users:    NewUserHandler(users, logger),
		Listings: NewListingHandler(listings, search, logger),
		Bookings: NewBookingHandler(bookings, logger),
		Sessions: auth,
		Logger:   logger,
	})}
}

func counter(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func (a *testAPI) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// register signs up and logs in, returning the session token and user id.
func (a *testAPI) register(email string) (string, string) {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/signup", map[string]string{
		"email":      email,
		"password":   "password123",
		"first_name": "Test",
		"last_name":  "User",
	}, "")
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("expected signup 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(http.MethodPost, "/login", map[string]string{"email": email, "password": "password123"}, "")
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("expected login 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[sessionResponse](a.t, rec)
	if resp.User == nil {
		a.t.Fatalf("expected user in login response")
	}
	return resp.Token, resp.User.ID
}

func (a *testAPI) createListing(token string, mutate func(map[string]any)) listingDTO {
	a.t.Helper()

	body := map[string]any{
		"title":                "Sunny room near campus",
		"total_rooms":          3,
		"bedrooms_in_use":      1,
		"bathrooms":            2,
		"cost_per_month":       850,
		"available_start_date": "2025-06-01",
		"available_end_date":   "2025-08-15",
		"address":              "100 College Ave",
		"city":                 "Ithaca",
		"state":                "NY",
		"zip_code":             "14850",
		"amenities":            "laundry",
		"images":               []string{"https://img.example.com/1.jpg"},
	}
	if mutate != nil {
		mutate(body)
	}

	rec := a.do(http.MethodPost, "/listings", body, token)
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("expected listing 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[listingResponse](a.t, rec).Listing
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	resp := decode[errorResponse](t, rec)
	if resp.ErrorCode != code {
		t.Fatalf("expected error_code %q, got %q", code, resp.ErrorCode)
	}
	return resp
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	t.Run("login issues session token via cookie and header", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		api.register("ana@cornell.edu")

		rec := api.do(http.MethodPost, "/login", map[string]string{"email": "ANA@cornell.edu ", "password": "password123"}, "")
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		resp := decode[sessionResponse](t, rec)
		if resp.Token == "" {
			t.Fatalf("expected token in body")
		}
		if got := rec.Header().Get("X-Session-Token"); got != resp.Token {
			t.Fatalf("expected header token %q, got %q", resp.Token, got)
		}
		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == sessionCookieName {
				cookie = c
			}
		}
		if cookie == nil || cookie.Value != resp.Token || !cookie.HttpOnly {
			t.Fatalf("expected http-only session cookie, got %+v", cookie)
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		api.register("ana@cornell.edu")

		rec := api.do(http.MethodPost, "/login", map[string]string{"email": "ana@cornell.edu", "password": "nope-nope"}, "")
		expectError(t, rec, http.StatusUnauthorized, application.KindInvalidCredentials)
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		token, _ := api.register("ana@cornell.edu")

		if rec := api.do(http.MethodPost, "/logout", nil, token); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
		rec := api.do(http.MethodGet, "/profile", nil, token)
		expectError(t, rec, http.StatusUnauthorized, application.KindSessionRevoked)
	})

	t.Run("refresh rotates the token", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		token, _ := api.register("ana@cornell.edu")

		rec := api.do(http.MethodPost, "/refresh", nil, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		rotated := decode[sessionResponse](t, rec).Token
		if rotated == "" || rotated == token {
			t.Fatalf("expected a new token, got %q", rotated)
		}
		if rec := api.do(http.MethodGet, "/profile", nil, rotated); rec.Code != http.StatusOK {
			t.Fatalf("expected rotated token to work, got %d", rec.Code)
		}
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)

		rec := api.do(http.MethodPost, "/login", "{", "")
		expectError(t, rec, http.StatusBadRequest, codeBadRequest)
	})
}

func TestUserHandlers(t *testing.T) {
	t.Parallel()

	t.Run("signup validates fields", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)

		rec := api.do(http.MethodPost, "/signup", map[string]string{"email": "not-an-email", "password": "short"}, "")
		resp := expectError(t, rec, http.StatusBadRequest, application.KindValidation)
		if resp.Errors["email"] == "" || resp.Errors["password"] == "" {
			t.Fatalf("expected email and password field errors, got %v", resp.Errors)
		}
	})

	t.Run("duplicate signup conflicts", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		api.register("ana@cornell.edu")

		rec := api.do(http.MethodPost, "/signup", map[string]string{"email": "ana@cornell.edu", "password": "password123"}, "")
		expectError(t, rec, http.StatusConflict, application.KindConflict)
	})

	t.Run("profile includes own listings", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		token, userID := api.register("ana@cornell.edu")
		listing := api.createListing(token, nil)

		rec := api.do(http.MethodGet, "/profile", nil, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decode[profileResponse](t, rec)
		if resp.User.ID != userID {
			t.Fatalf("expected user %s, got %s", userID, resp.User.ID)
		}
		if len(resp.Listings) != 1 || resp.Listings[0].ID != listing.ID {
			t.Fatalf("expected listing %s in profile, got %+v", listing.ID, resp.Listings)
		}
	})

	t.Run("public profile shows another user without a session", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		token, userID := api.register("ana@cornell.edu")
		listing := api.createListing(token, nil)

		rec := api.do(http.MethodGet, "/profile/"+userID, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decode[profileResponse](t, rec)
		if resp.User.ID != userID || resp.User.Email != "ana@cornell.edu" {
			t.Fatalf("unexpected user %+v", resp.User)
		}
		if len(resp.Listings) != 1 || resp.Listings[0].ID != listing.ID {
			t.Fatalf("expected listing %s in profile, got %+v", listing.ID, resp.Listings)
		}

		rec = api.do(http.MethodGet, "/profile/nobody", nil, "")
		expectError(t, rec, http.StatusNotFound, application.KindNotFound)
	})

	t.Run("protected routes require a session", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)

		for _, path := range []string{"/profile", "/users", "/booking_requests/incoming"} {
			rec := api.do(http.MethodGet, path, nil, "")
			expectError(t, rec, http.StatusUnauthorized, codeUnauthenticated)
		}
	})

	t.Run("user directory lists accounts", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		token, _ := api.register("ana@cornell.edu")
		api.register("ben@cornell.edu")

		rec := api.do(http.MethodGet, "/users", nil, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := len(decode[listUsersResponse](t, rec).Users); got != 2 {
			t.Fatalf("expected 2 users, got %d", got)
		}
	})
}

func TestListingHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create then get returns the same projection", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		token, userID := api.register("ana@cornell.edu")
		created := api.createListing(token, nil)

		rec := api.do(http.MethodGet, "/listings/"+created.ID, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		got := decode[listingResponse](t, rec).Listing
		if got.ListerID != userID || got.Title != "Sunny room near campus" || got.CostPerMonth != 850 {
			t.Fatalf("unexpected listing %+v", got)
		}
		if got.BedroomsAvailable != 2 {
			t.Fatalf("expected 2 bedrooms available, got %d", got.BedroomsAvailable)
		}
		if len(got.Images) != 1 {
			t.Fatalf("expected 1 image, got %v", got.Images)
		}
	})

	t.Run("invalid listing reports field errors", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		token, _ := api.register("ana@cornell.edu")

		rec := api.do(http.MethodPost, "/listings", map[string]any{"title": "", "total_rooms": 0}, token)
		resp := expectError(t, rec, http.StatusBadRequest, application.KindValidation)
		if resp.Errors["title"] == "" {
			t.Fatalf("expected title error, got %v", resp.Errors)
		}
	})

	t.Run("only the owner may update or delete", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		owner, _ := api.register("ana@cornell.edu")
		other, _ := api.register("ben@cornell.edu")
		listing := api.createListing(owner, nil)

		update := map[string]any{
			"title": "Stolen", "total_rooms": 3, "bathrooms": 1, "cost_per_month": 1,
			"available_start_date": "2025-06-01", "available_end_date": "2025-08-15",
			"address": "100 College Ave", "city": "Ithaca", "state": "NY", "zip_code": "14850",
		}
		rec := api.do(http.MethodPut, "/listings/"+listing.ID, update, other)
		expectError(t, rec, http.StatusForbidden, application.KindUnauthorized)

		rec = api.do(http.MethodDelete, "/listings/"+listing.ID, nil, other)
		expectError(t, rec, http.StatusForbidden, application.KindUnauthorized)

		update["title"] = "Renamed"
		rec = api.do(http.MethodPut, "/listings/"+listing.ID, update, owner)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected owner update 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := decode[listingResponse](t, rec).Listing.Title; got != "Renamed" {
			t.Fatalf("expected renamed listing, got %q", got)
		}

		if rec := api.do(http.MethodDelete, "/listings/"+listing.ID, nil, owner); rec.Code != http.StatusOK {
			t.Fatalf("expected owner delete 200, got %d", rec.Code)
		}
		rec = api.do(http.MethodGet, "/listings/"+listing.ID, nil, "")
		expectError(t, rec, http.StatusNotFound, application.KindNotFound)
	})

	t.Run("deleting a missing listing is not found", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		token, _ := api.register("ana@cornell.edu")

		rec := api.do(http.MethodDelete, "/listings/missing", nil, token)
		expectError(t, rec, http.StatusNotFound, application.KindNotFound)
	})

	t.Run("search filters by cost and bedrooms", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		token, _ := api.register("ana@cornell.edu")
		cheap := api.createListing(token, func(b map[string]any) { b["cost_per_month"] = 500; b["bedrooms_in_use"] = 2 })
		roomy := api.createListing(token, func(b map[string]any) { b["cost_per_month"] = 700; b["bedrooms_in_use"] = 0 })
		api.createListing(token, func(b map[string]any) { b["cost_per_month"] = 1500 })

		rec := api.do(http.MethodGet, "/search_results?cost_per_month=800", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decode[searchResponse](t, rec)
		if len(resp.Listings) != 2 {
			t.Fatalf("expected 2 listings under cost ceiling, got %d", len(resp.Listings))
		}
		for _, l := range resp.Listings {
			if l.CostPerMonth > 800 {
				t.Fatalf("expected cost <= 800, got %v", l.CostPerMonth)
			}
		}

		rec = api.do(http.MethodGet, "/search_results?cost_per_month=800&bedrooms_available=2", nil, "")
		resp = decode[searchResponse](t, rec)
		if len(resp.Listings) != 1 || resp.Listings[0].ID != roomy.ID {
			t.Fatalf("expected only %s, got %+v", roomy.ID, resp.Listings)
		}
		if resp.Listings[0].ID == cheap.ID {
			t.Fatalf("expected %s to be filtered out", cheap.ID)
		}
	})

	t.Run("search rejects malformed parameters", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)

		rec := api.do(http.MethodGet, "/search_results?max_cost=cheap&min_bedrooms=x", nil, "")
		resp := expectError(t, rec, http.StatusBadRequest, application.KindValidation)
		if resp.Errors["max_cost"] == "" || resp.Errors["min_bedrooms"] == "" {
			t.Fatalf("expected max_cost and min_bedrooms errors, got %v", resp.Errors)
		}

		rec = api.do(http.MethodGet, "/search_results?date_mode=sideways", nil, "")
		expectError(t, rec, http.StatusBadRequest, application.KindValidation)

		for _, raw := range []string{"NaN", "Inf", "-Inf"} {
			rec = api.do(http.MethodGet, "/search_results?cost_per_month="+raw, nil, "")
			resp = expectError(t, rec, http.StatusBadRequest, application.KindValidation)
			if resp.Errors["cost_per_month"] == "" {
				t.Fatalf("expected cost_per_month error for %s, got %v", raw, resp.Errors)
			}
		}
	})

	t.Run("map endpoint lists geocoded listings", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, fixedGeocoder{})
		token, _ := api.register("ana@cornell.edu")
		listing := api.createListing(token, nil)

		rec := api.do(http.MethodGet, "/api/listings", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		points := decode[[]mapPointDTO](t, rec)
		if len(points) != 1 || points[0].ID != listing.ID || points[0].Latitude != 42.44 {
			t.Fatalf("unexpected map points %+v", points)
		}
	})

	t.Run("map endpoint is empty without a geocoder", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t, nil)
		token, _ := api.register("ana@cornell.edu")
		api.createListing(token, nil)

		rec := api.do(http.MethodGet, "/api/listings", nil, "")
		if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
			t.Fatalf("expected empty array, got %s", body)
		}
	})
}

func TestBookingHandlers(t *testing.T) {
	t.Parallel()

	type parties struct {
		api       *testAPI
		owner     string
		renter    string
		renterID  string
		listingID string
	}
	setup := func(t *testing.T) parties {
		api := newTestAPI(t, nil)
		owner, _ := api.register("owner@cornell.edu")
		renter, renterID := api.register("renter@cornell.edu")
		listing := api.createListing(owner, nil)
		return parties{api: api, owner: owner, renter: renter, renterID: renterID, listingID: listing.ID}
	}
	request := func(t *testing.T, p parties) bookingDTO {
		t.Helper()
		rec := p.api.do(http.MethodPost, "/create_booking_request", map[string]string{"listing_id": p.listingID}, p.renter)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		return decode[bookingResponse](t, rec).Request
	}

	t.Run("create and reject duplicates", func(t *testing.T) {
		t.Parallel()
		p := setup(t)

		created := request(t, p)
		if created.Status != "pending" || created.SubletterID != p.renterID {
			t.Fatalf("unexpected request %+v", created)
		}

		rec := p.api.do(http.MethodPost, "/create_booking_request", map[string]string{"listing_id": p.listingID}, p.renter)
		expectError(t, rec, http.StatusConflict, application.KindConflict)
	})

	t.Run("requesting own listing is invalid", func(t *testing.T) {
		t.Parallel()
		p := setup(t)

		rec := p.api.do(http.MethodPost, "/create_booking_request", map[string]string{"listing_id": p.listingID}, p.owner)
		expectError(t, rec, http.StatusBadRequest, application.KindValidation)
	})

	t.Run("unknown listing is not found", func(t *testing.T) {
		t.Parallel()
		p := setup(t)

		rec := p.api.do(http.MethodPost, "/create_booking_request", map[string]string{"listing_id": "missing"}, p.renter)
		expectError(t, rec, http.StatusNotFound, application.KindNotFound)
	})

	t.Run("incoming lists the triple and approve returns both emails", func(t *testing.T) {
		t.Parallel()
		p := setup(t)
		created := request(t, p)

		rec := p.api.do(http.MethodGet, "/booking_requests/incoming", nil, p.owner)
		incoming := decode[[]incomingDTO](t, rec)
		if len(incoming) != 1 {
			t.Fatalf("expected 1 incoming request, got %d", len(incoming))
		}
		if incoming[0].Requester.Email != "renter@cornell.edu" || incoming[0].Listing.ID != p.listingID {
			t.Fatalf("unexpected incoming entry %+v", incoming[0])
		}

		rec = p.api.do(http.MethodPost, "/booking_requests/"+created.ID+"/approve", nil, p.renter)
		expectError(t, rec, http.StatusForbidden, application.KindUnauthorized)

		rec = p.api.do(http.MethodPost, "/booking_requests/"+created.ID+"/approve", nil, p.owner)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		approval := decode[approvalResponse](t, rec)
		if approval.Request.Status != "approved" {
			t.Fatalf("expected approved, got %s", approval.Request.Status)
		}
		if approval.OwnerEmail != "owner@cornell.edu" || approval.RequesterEmail != "renter@cornell.edu" {
			t.Fatalf("unexpected emails %+v", approval)
		}

		rec = p.api.do(http.MethodPost, "/booking_requests/"+created.ID+"/approve", nil, p.owner)
		expectError(t, rec, http.StatusConflict, application.KindConflict)

		rec = p.api.do(http.MethodGet, "/booking_requests/incoming", nil, p.owner)
		if got := len(decode[[]incomingDTO](t, rec)); got != 0 {
			t.Fatalf("expected no pending requests after approval, got %d", got)
		}
	})

	t.Run("reject moves the request out of pending", func(t *testing.T) {
		t.Parallel()
		p := setup(t)
		created := request(t, p)

		rec := p.api.do(http.MethodPost, "/booking_requests/"+created.ID+"/reject", nil, p.owner)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := decode[bookingResponse](t, rec).Request.Status; got != "rejected" {
			t.Fatalf("expected rejected, got %s", got)
		}

		rec = p.api.do(http.MethodGet, "/booking_requests/outgoing", nil, p.renter)
		outgoing := decode[[]outgoingDTO](t, rec)
		if len(outgoing) != 1 || outgoing[0].Request.Status != "rejected" {
			t.Fatalf("unexpected outgoing %+v", outgoing)
		}
	})

	t.Run("strangers cannot read and missing requests are not found", func(t *testing.T) {
		t.Parallel()
		p := setup(t)
		created := request(t, p)
		stranger, _ := p.api.register("eve@cornell.edu")

		rec := p.api.do(http.MethodGet, "/booking_request/"+created.ID, nil, stranger)
		expectError(t, rec, http.StatusForbidden, application.KindUnauthorized)

		rec = p.api.do(http.MethodGet, "/booking_request/"+created.ID, nil, p.owner)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected owner read 200, got %d", rec.Code)
		}

		rec = p.api.do(http.MethodDelete, "/delete_booking_request/missing", nil, p.renter)
		expectError(t, rec, http.StatusNotFound, application.KindNotFound)

		if rec := p.api.do(http.MethodDelete, "/delete_booking_request/"+created.ID, nil, p.renter); rec.Code != http.StatusOK {
			t.Fatalf("expected delete 200, got %d", rec.Code)
		}
	})
}

func TestRouter(t *testing.T) {
	t.Parallel()

	t.Run("health answers without dependencies", func(t *testing.T) {
		t.Parallel()
		handler := NewRouter(RouterConfig{})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("metrics handler is mounted", func(t *testing.T) {
		t.Parallel()
		metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		})
		handler := NewRouter(RouterConfig{MetricsHandler: metricsHandler})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "# metrics" {
			t.Fatalf("expected metrics body, got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("session routes are absent without a validator", func(t *testing.T) {
		t.Parallel()
		handler := NewRouter(RouterConfig{})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
