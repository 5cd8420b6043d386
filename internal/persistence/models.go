package persistence

import "time"

// DateLayout is the calendar date encoding used for availability columns.
const DateLayout = "2006-01-02"

// User represents a marketplace account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	School       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Listing represents a sublease offer posted by a lister.
type Listing struct {
	ID                 string
	ListerID           string
	Title              string
	TotalRooms         int
	BedroomsInUse      int
	BedroomsAvailable  int
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

// Booking request statuses as stored in the status column.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// BookingRequest records a subletter's interest in a listing.
type BookingRequest struct {
	ID          string
	ListingID   string
	SubletterID string
	Status      string
	CreatedAt   time.Time
	DecidedAt   *time.Time
	UpdatedAt   time.Time
}

// IncomingRequest joins a booking request with the listing it targets and the requesting user.
type IncomingRequest struct {
	Request        BookingRequest
	ListingTitle   string
	ListingCity    string
	ListingCost    float64
	RequesterName  string
	RequesterEmail string
}

// OutgoingRequest joins a booking request with the listing it targets.
type OutgoingRequest struct {
	Request      BookingRequest
	ListingTitle string
	ListingCity  string
	ListingCost  float64
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}
