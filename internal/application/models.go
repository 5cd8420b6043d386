package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
}

// User is the public projection of an account. The password hash never leaves the service layer.
type User struct {
	ID        string
	Email     string
	Name      string
	School    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
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

// SignupParams captures the fields of the signup form.
type SignupParams struct {
	Email     string `validate:"required,email,max=254"`
	Password  string `validate:"required,min=8,max=128"`
	FirstName string `validate:"max=100"`
	LastName  string `validate:"max=100"`
	School    string `validate:"max=200"`
}

// SignupResult reports whether the account was created or a verification link was mailed instead.
type SignupResult struct {
	User             *User
	VerificationSent bool
}

// Profile is a user together with the listings they posted.
type Profile struct {
	User     User
	Listings []Listing
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session Session
}

// ListingInput captures the caller provided listing fields. Dates use the YYYY-MM-DD layout.
type ListingInput struct {
	Title              string   `validate:"required,max=200"`
	TotalRooms         int      `validate:"min=1,max=50"`
	BedroomsInUse      int      `validate:"min=0"`
	Bathrooms          int      `validate:"min=0,max=50"`
	CostPerMonth       float64  `validate:"gte=0"`
	AvailableStartDate string   `validate:"required,datetime=2006-01-02"`
	AvailableEndDate   string   `validate:"required,datetime=2006-01-02"`
	Address            string   `validate:"required,max=300"`
	City               string   `validate:"required,max=100"`
	State              string   `validate:"required,max=100"`
	ZipCode            string   `validate:"required,max=10"`
	Amenities          string   `validate:"max=2000"`
	Images             []string `validate:"max=4"`
}

// Listing is the flattened public projection of a sublease offer.
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

// Mappable reports whether the listing carries coordinates.
func (l Listing) Mappable() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// BookingRequest records a subletter's interest in a listing.
type BookingRequest struct {
	ID          string
	ListingID   string
	SubletterID string
	Status      BookingStatus
	CreatedAt   time.Time
	DecidedAt   *time.Time
	UpdatedAt   time.Time
}

// ListingSummary is the slice of a listing shown next to a booking request.
type ListingSummary struct {
	ID           string
	Title        string
	City         string
	CostPerMonth float64
}

// RequesterSummary identifies the subletter behind an incoming request.
type RequesterSummary struct {
	ID    string
	Name  string
	Email string
}

// IncomingRequest is a pending request on one of the owner's listings.
type IncomingRequest struct {
	Request   BookingRequest
	Listing   ListingSummary
	Requester RequesterSummary
}

// OutgoingRequest is a request the subletter sent.
type OutgoingRequest struct {
	Request BookingRequest
	Listing ListingSummary
}

// ApprovalResult carries the contact details both parties need after an approval.
type ApprovalResult struct {
	Request        BookingRequest
	OwnerEmail     string
	RequesterEmail string
}

// DateMode selects how a requested stay is matched against listing availability.
type DateMode string

const (
	// DateModeContain requires the listing to be available for the whole stay.
	DateModeContain DateMode = "contain"
	// DateModeOverlap requires the availability window to intersect the stay.
	DateModeOverlap DateMode = "overlap"
)

// SearchParams captures the optional search predicates. Nil or empty fields are ignored.
type SearchParams struct {
	MaxCost      *float64
	MinBedrooms  *int
	MinBathrooms *int
	StartDate    string
	EndDate      string
	DateMode     DateMode
	Query        string
	Limit        int
	Offset       int
}

// SearchResult is one page of listings.
type SearchResult struct {
	Listings []Listing
	Limit    int
	Offset   int
}
