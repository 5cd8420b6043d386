package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/sublease-marketplace/internal/persistence"
)

var (
	userCounter    uint64
	listingCounter uint64
	requestCounter uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record.
type UserFixture struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	School       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@cornell.edu", id),
		Name:         fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserName overrides the generated display name.
func WithUserName(name string) UserOption {
	return func(f *UserFixture) {
		f.Name = name
	}
}

// WithUserSchool sets the optional school.
func WithUserSchool(school string) UserOption {
	return func(f *UserFixture) {
		f.School = &school
	}
}

// WithUserPasswordHash overrides the stored hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// Persistence converts the fixture into its storage row.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		Name:         f.Name,
		PasswordHash: f.PasswordHash,
		School:       f.School,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ---------------------------- Listing fixtures ----------------------------

// ListingFixture represents a deterministic listing row. BedroomsAvailable is derived when the
// fixture is converted.
type ListingFixture struct {
	ID                 string
	ListerID           string
	Title              string
	TotalRooms         int
	BedroomsInUse      int
	Bathrooms          int
	CostPerMonth       float64
	AvailableStartDate string
	AvailableEndDate   string
	Address            string
	City               string
	State              string
	ZipCode            string
	Amenities          string
	Latitude           *float64
	Longitude          *float64
	Images             []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ListingOption configures the generated listing fixture.
type ListingOption func(*ListingFixture)

// NewListingFixture returns a listing owned by listerID.
func NewListingFixture(listerID string, opts ...ListingOption) ListingFixture {
	idx := atomic.AddUint64(&listingCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ListingFixture{
		ID:                 fmt.Sprintf("listing-%03d", idx),
		ListerID:           listerID,
		Title:              fmt.Sprintf("Room %03d near campus", idx),
		TotalRooms:         3,
		BedroomsInUse:      1,
		Bathrooms:          1,
		CostPerMonth:       900,
		AvailableStartDate: "2025-06-01",
		AvailableEndDate:   "2025-08-31",
		Address:            fmt.Sprintf("%d Elm St", idx),
		City:               "Ithaca",
		State:              "NY",
		ZipCode:            "14850",
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithListingID overrides the generated listing ID.
func WithListingID(id string) ListingOption {
	return func(f *ListingFixture) {
		f.ID = id
	}
}

// WithListingTitle overrides the title.
func WithListingTitle(title string) ListingOption {
	return func(f *ListingFixture) {
		f.Title = title
	}
}

// WithListingCost sets the monthly cost.
func WithListingCost(cost float64) ListingOption {
	return func(f *ListingFixture) {
		f.CostPerMonth = cost
	}
}

// WithListingRooms sets total and occupied bedrooms.
func WithListingRooms(total, inUse int) ListingOption {
	return func(f *ListingFixture) {
		f.TotalRooms = total
		f.BedroomsInUse = inUse
	}
}

// WithListingBathrooms sets the bathroom count.
func WithListingBathrooms(n int) ListingOption {
	return func(f *ListingFixture) {
		f.Bathrooms = n
	}
}

// WithListingDates sets the availability window (YYYY-MM-DD).
func WithListingDates(start, end string) ListingOption {
	return func(f *ListingFixture) {
		f.AvailableStartDate = start
		f.AvailableEndDate = end
	}
}

// WithListingLocation sets the street address and city.
func WithListingLocation(address, city string) ListingOption {
	return func(f *ListingFixture) {
		f.Address = address
		f.City = city
	}
}

// WithListingCoordinates marks the listing as mappable.
func WithListingCoordinates(lat, lng float64) ListingOption {
	return func(f *ListingFixture) {
		f.Latitude = &lat
		f.Longitude = &lng
	}
}

// WithListingImages sets the image URLs.
func WithListingImages(images ...string) ListingOption {
	return func(f *ListingFixture) {
		f.Images = images
	}
}

// WithListingCreatedAt overrides both timestamps.
func WithListingCreatedAt(at time.Time) ListingOption {
	return func(f *ListingFixture) {
		f.CreatedAt = at
		f.UpdatedAt = at
	}
}

// Persistence converts the fixture into its storage row.
func (f ListingFixture) Persistence() persistence.Listing {
	var images []string
	if len(f.Images) > 0 {
		images = append([]string(nil), f.Images...)
	}
	return persistence.Listing{
		ID:                 f.ID,
		ListerID:           f.ListerID,
		Title:              f.Title,
		TotalRooms:         f.TotalRooms,
		BedroomsInUse:      f.BedroomsInUse,
		BedroomsAvailable:  f.TotalRooms - f.BedroomsInUse,
		Bathrooms:          f.Bathrooms,
		CostPerMonth:       f.CostPerMonth,
		AvailableStartDate: f.AvailableStartDate,
		AvailableEndDate:   f.AvailableEndDate,
		Address:            f.Address,
		City:               f.City,
		State:              f.State,
		ZipCode:            f.ZipCode,
		Amenities:          f.Amenities,
		Latitude:           f.Latitude,
		Longitude:          f.Longitude,
		Images:             images,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// ------------------------ Booking request fixtures ------------------------

// BookingRequestFixture represents a deterministic booking request row.
type BookingRequestFixture struct {
	ID          string
	ListingID   string
	SubletterID string
	Status      string
	CreatedAt   time.Time
	DecidedAt   *time.Time
	UpdatedAt   time.Time
}

// BookingRequestOption configures the generated booking request fixture.
type BookingRequestOption func(*BookingRequestFixture)

// NewBookingRequestFixture returns a pending request from subletterID on listingID.
func NewBookingRequestFixture(listingID, subletterID string, opts ...BookingRequestOption) BookingRequestFixture {
	idx := atomic.AddUint64(&requestCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := BookingRequestFixture{
		ID:          fmt.Sprintf("request-%03d", idx),
		ListingID:   listingID,
		SubletterID: subletterID,
		Status:      persistence.StatusPending,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRequestID overrides the generated request ID.
func WithRequestID(id string) BookingRequestOption {
	return func(f *BookingRequestFixture) {
		f.ID = id
	}
}

// WithRequestStatus sets the status. Decided statuses also get a decision time.
func WithRequestStatus(status string) BookingRequestOption {
	return func(f *BookingRequestFixture) {
		f.Status = status
		if status != persistence.StatusPending && f.DecidedAt == nil {
			decided := f.CreatedAt.Add(time.Hour)
			f.DecidedAt = &decided
		}
	}
}

// WithRequestCreatedAt overrides both timestamps.
func WithRequestCreatedAt(at time.Time) BookingRequestOption {
	return func(f *BookingRequestFixture) {
		f.CreatedAt = at
		f.UpdatedAt = at
	}
}

// Persistence converts the fixture into its storage row.
func (f BookingRequestFixture) Persistence() persistence.BookingRequest {
	return persistence.BookingRequest{
		ID:          f.ID,
		ListingID:   f.ListingID,
		SubletterID: f.SubletterID,
		Status:      f.Status,
		CreatedAt:   f.CreatedAt,
		DecidedAt:   f.DecidedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ---------------------------- Session fixtures ----------------------------

// SessionFixture represents a deterministic session row.
type SessionFixture struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a session for userID that expires a day after ReferenceTime.
func NewSessionFixture(userID string, opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:          fmt.Sprintf("session-%03d", idx),
		UserID:      userID,
		Token:       fmt.Sprintf("token-%03d", idx),
		Fingerprint: "test-agent",
		ExpiresAt:   referenceTime.Add(24 * time.Hour),
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionToken overrides the generated token.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiry overrides the expiry.
func WithSessionExpiry(at time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = at
	}
}

// WithSessionRevokedAt marks the session revoked.
func WithSessionRevokedAt(at time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.RevokedAt = &at
	}
}

// Persistence converts the fixture into its storage row.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:          f.ID,
		UserID:      f.UserID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   f.RevokedAt,
	}
}
