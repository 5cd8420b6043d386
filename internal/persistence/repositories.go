package persistence

import (
	"context"
	"time"
)

// UserRepository exposes account storage.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// DateMatch selects how a listing's availability window is compared with a requested stay.
type DateMatch string

const (
	// DateMatchContain requires the availability window to cover the whole requested stay.
	DateMatchContain DateMatch = "contain"
	// DateMatchOverlap requires the availability window to intersect the requested stay.
	DateMatchOverlap DateMatch = "overlap"
)

// ListingFilter narrows listing queries. Zero values disable the corresponding predicate.
type ListingFilter struct {
	ListerID     string
	MaxCost      *float64
	MinBedrooms  *int
	MinBathrooms *int
	// StayStart and StayEnd use DateLayout.
	StayStart    string
	StayEnd      string
	DateMatch    DateMatch
	Query        string
	MappableOnly bool
	Limit        int
	Offset       int
}

// ListingRepository exposes listing storage and search.
type ListingRepository interface {
	CreateListing(ctx context.Context, listing Listing) error
	UpdateListing(ctx context.Context, listing Listing) error
	GetListing(ctx context.Context, id string) (Listing, error)
	DeleteListing(ctx context.Context, id string) error
	ListListings(ctx context.Context, filter ListingFilter) ([]Listing, error)
}

// BookingRequestRepository exposes booking request storage.
type BookingRequestRepository interface {
	// CreateBookingRequest returns ErrDuplicate when the pair already has a pending or approved request.
	CreateBookingRequest(ctx context.Context, request BookingRequest) error
	GetBookingRequest(ctx context.Context, id string) (BookingRequest, error)
	// ListIncomingRequests returns requests with the given status on listings owned by ownerID,
	// ordered by creation time then id.
	ListIncomingRequests(ctx context.Context, ownerID, status string) ([]IncomingRequest, error)
	ListOutgoingRequests(ctx context.Context, subletterID string) ([]OutgoingRequest, error)
	// TransitionBookingRequest moves a request from one status to another in a single conditional
	// write. It returns ErrNotFound when the id does not resolve and ErrStaleState when the stored
	// status differs from from.
	TransitionBookingRequest(ctx context.Context, id, from, to string, at time.Time) (BookingRequest, error)
	DeleteBookingRequest(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Users() UserRepository
	Listings() ListingRepository
	BookingRequests() BookingRequestRepository
	Sessions() SessionRepository
}

// Store is the unit of work entry point. WithinTx runs fn against repositories bound to a single
// transaction, committing when fn returns nil and rolling back on error or panic.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
	Close() error
}
