package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/sublease-marketplace/internal/application"
	"github.com/example/sublease-marketplace/internal/geocode"
	"github.com/example/sublease-marketplace/internal/persistence"
)

// ServiceFactory builds application services wired to a shared clock and deterministic
// identifier sequences.
type ServiceFactory struct {
	Clock  *Clock
	IDs    *Sequence
	Tokens *Sequence
	Logger *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDs == nil {
		factory.IDs = NewSequence("id")
	}
	if factory.Tokens == nil {
		factory.Tokens = NewSequence("token")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDs overrides the entity id sequence.
func WithIDs(ids *Sequence) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDs = ids
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// PlainHasher prefixes the password instead of hashing it, keeping tests fast.
func PlainHasher(password string) (string, error) {
	return "plain:" + password, nil
}

// PlainVerifier accepts hashes produced by PlainHasher.
func PlainVerifier(hash, password string) error {
	if hash != "plain:"+password {
		return application.ErrInvalidCredentials
	}
	return nil
}

// NewUserService builds a user service. A nil policy hasher is replaced by PlainHasher.
func (f *ServiceFactory) NewUserService(store persistence.Store, policy application.SignupPolicy) *application.UserService {
	if policy.Hasher == nil {
		policy.Hasher = PlainHasher
	}
	return application.NewUserServiceWithLogger(store, policy, f.IDs.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewAuthService builds an auth service that verifies PlainHasher hashes. Session ids and tokens
// both come from f.Tokens.
func (f *ServiceFactory) NewAuthService(store persistence.Store, sessionTTL time.Duration) *application.AuthService {
	return application.NewAuthServiceWithLogger(store, PlainVerifier, f.Tokens.NextFunc(), f.Clock.NowFunc(), sessionTTL, f.Logger)
}

// NewListingService builds a listing service. geocoder may be nil.
func (f *ServiceFactory) NewListingService(store persistence.Store, geocoder geocode.Geocoder) *application.ListingService {
	return application.NewListingServiceWithLogger(store, geocoder, f.IDs.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewSearchService builds a search service.
func (f *ServiceFactory) NewSearchService(store persistence.Store) *application.SearchService {
	return application.NewSearchServiceWithLogger(store, f.Logger)
}

// NewBookingService builds a booking service.
func (f *ServiceFactory) NewBookingService(store persistence.Store) *application.BookingService {
	return application.NewBookingServiceWithLogger(store, f.IDs.NextFunc(), f.Clock.NowFunc(), f.Logger)
}
