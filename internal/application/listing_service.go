package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/sublease-marketplace/internal/geocode"
	"github.com/example/sublease-marketplace/internal/logging"
	"github.com/example/sublease-marketplace/internal/persistence"
)

// ListingService manages listing CRUD and geocoding enrichment.
type ListingService struct {
	store       persistence.Store
	geocoder    geocode.Geocoder
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewListingService wires dependencies for the listing service. A nil geocoder leaves listings
// without coordinates.
func NewListingService(store persistence.Store, geocoder geocode.Geocoder, idGenerator func() string, now func() time.Time) *ListingService {
	return NewListingServiceWithLogger(store, geocoder, idGenerator, now, nil)
}

// NewListingServiceWithLogger wires dependencies for the listing service with a specific logger.
func NewListingServiceWithLogger(store persistence.Store, geocoder geocode.Geocoder, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ListingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ListingService{
		store:       store,
		geocoder:    geocoder,
		idGenerator: idGenerator,
		now:         now,
		logger:      logging.OrDefault(logger),
	}
}

func (s *ListingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ListingService", operation, attrs...)
}

// CreateListing validates input, geocodes the address and stores the listing for the principal.
func (s *ListingService) CreateListing(ctx context.Context, principal Principal, input ListingInput) (listing Listing, err error) {
	if s == nil {
		err = fmt.Errorf("ListingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateListing", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create listing", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("listing_id", listing.ID, "mappable", listing.Mappable()).InfoContext(ctx, "listing created")
	}()

	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	input = normalizeListingInput(input)
	if vErr := validateListingInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var coords *geocode.Coordinates
	coords, err = s.resolve(ctx, input)
	if err != nil {
		return
	}

	now := s.now()
	row := listingRow(input, coords)
	row.ID = s.idGenerator()
	row.ListerID = principal.UserID
	row.CreatedAt = now
	row.UpdatedAt = now

	if err = s.store.Listings().CreateListing(ctx, row); err != nil {
		err = mapListingWriteError("create listing", err)
		return
	}

	listing = listingFromRow(row)
	return
}

// GetListing returns the public projection of a listing.
func (s *ListingService) GetListing(ctx context.Context, id string) (Listing, error) {
	if s == nil {
		return Listing{}, fmt.Errorf("ListingService is nil")
	}
	if s.store == nil {
		return Listing{}, fmt.Errorf("store not configured")
	}

	row, err := s.store.Listings().GetListing(ctx, strings.TrimSpace(id))
	if err != nil {
		err = mapPersistenceError("get listing", err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetListing", "listing_id", id).ErrorContext(ctx, "failed to load listing", "error", err, "error_kind", ErrorKind(err))
		}
		return Listing{}, err
	}
	return listingFromRow(row), nil
}

// UpdateListing replaces the caller's listing. The address is re-geocoded when it changed.
func (s *ListingService) UpdateListing(ctx context.Context, principal Principal, id string, input ListingInput) (listing Listing, err error) {
	if s == nil {
		err = fmt.Errorf("ListingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateListing", "principal_id", principal.UserID, "listing_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update listing", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "listing updated")
	}()

	var existing persistence.Listing
	existing, err = s.store.Listings().GetListing(ctx, strings.TrimSpace(id))
	if err != nil {
		err = mapPersistenceError("get listing", err)
		return
	}
	if existing.ListerID != principal.UserID {
		err = ErrUnauthorized
		return
	}

	input = normalizeListingInput(input)
	if vErr := validateListingInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var coords *geocode.Coordinates
	if sameAddress(existing, input) && existing.Latitude != nil && existing.Longitude != nil {
		coords = &geocode.Coordinates{Lat: *existing.Latitude, Lng: *existing.Longitude}
	} else if coords, err = s.resolve(ctx, input); err != nil {
		return
	}

	row := listingRow(input, coords)
	row.ID = existing.ID
	row.ListerID = existing.ListerID
	row.CreatedAt = existing.CreatedAt
	row.UpdatedAt = s.now()

	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		current, err := repos.Listings().GetListing(ctx, row.ID)
		if err != nil {
			return err
		}
		if current.ListerID != principal.UserID {
			return ErrUnauthorized
		}
		return repos.Listings().UpdateListing(ctx, row)
	})
	if err != nil {
		err = mapListingWriteError("update listing", err)
		return
	}

	listing = listingFromRow(row)
	return
}

// DeleteListing removes the caller's listing. Its booking requests are removed with it.
func (s *ListingService) DeleteListing(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("ListingService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("store not configured")
	}

	logger := s.loggerWith(ctx, "DeleteListing", "principal_id", principal.UserID, "listing_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete listing", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "listing deleted")
	}()

	id = strings.TrimSpace(id)
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		listing, err := repos.Listings().GetListing(ctx, id)
		if err != nil {
			return err
		}
		if listing.ListerID != principal.UserID {
			return ErrUnauthorized
		}
		return repos.Listings().DeleteListing(ctx, id)
	})
	return mapPersistenceError("delete listing", err)
}

// ListByOwner returns the listings posted by ownerID ordered by creation time.
func (s *ListingService) ListByOwner(ctx context.Context, ownerID string) ([]Listing, error) {
	return s.list(ctx, "ListByOwner", persistence.ListingFilter{ListerID: strings.TrimSpace(ownerID)})
}

// ListMappable returns every listing that carries coordinates.
func (s *ListingService) ListMappable(ctx context.Context) ([]Listing, error) {
	return s.list(ctx, "ListMappable", persistence.ListingFilter{MappableOnly: true})
}

func (s *ListingService) list(ctx context.Context, operation string, filter persistence.ListingFilter) ([]Listing, error) {
	if s == nil {
		return nil, fmt.Errorf("ListingService is nil")
	}
	if s.store == nil {
		return nil, fmt.Errorf("store not configured")
	}
	rows, err := s.store.Listings().ListListings(ctx, filter)
	if err != nil {
		err = mapPersistenceError("list listings", err)
		s.loggerWith(ctx, operation).ErrorContext(ctx, "failed to list listings", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return listingsFromRows(rows), nil
}

// resolve geocodes the listing address. Unresolvable addresses are a validation failure while
// provider outages surface as UpstreamError.
func (s *ListingService) resolve(ctx context.Context, input ListingInput) (*geocode.Coordinates, error) {
	if s.geocoder == nil {
		return nil, nil
	}
	coords, err := s.geocoder.Geocode(ctx, geocode.FormatAddress(input.Address, input.City, input.State, input.ZipCode))
	if err != nil {
		if errors.Is(err, geocode.ErrNoResults) {
			return nil, fieldError("address", "address could not be located")
		}
		return nil, &UpstreamError{Service: "geocode", Err: err}
	}
	return &coords, nil
}

func mapListingWriteError(operation string, err error) error {
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return fieldError("listing", "listing violates a data constraint")
	}
	return mapPersistenceError(operation, err)
}

func normalizeListingInput(input ListingInput) ListingInput {
	out := input
	out.Title = strings.TrimSpace(input.Title)
	out.AvailableStartDate = strings.TrimSpace(input.AvailableStartDate)
	out.AvailableEndDate = strings.TrimSpace(input.AvailableEndDate)
	out.Address = strings.TrimSpace(input.Address)
	out.City = strings.TrimSpace(input.City)
	out.State = strings.TrimSpace(input.State)
	out.ZipCode = strings.TrimSpace(input.ZipCode)
	out.Amenities = strings.TrimSpace(input.Amenities)

	out.Images = nil
	for _, image := range input.Images {
		if trimmed := strings.TrimSpace(image); trimmed != "" {
			out.Images = append(out.Images, trimmed)
		}
	}
	return out
}

func validateListingInput(input ListingInput) *ValidationError {
	vErr := validateStruct(input)

	if input.BedroomsInUse > input.TotalRooms {
		vErr.add("bedrooms_in_use", "bedrooms in use cannot exceed total rooms")
	}

	start, startErr := time.Parse(persistence.DateLayout, input.AvailableStartDate)
	end, endErr := time.Parse(persistence.DateLayout, input.AvailableEndDate)
	if startErr == nil && endErr == nil && end.Before(start) {
		vErr.add("available_end_date", "available end date must not be before the start date")
	}
	return vErr
}

func sameAddress(existing persistence.Listing, input ListingInput) bool {
	return strings.EqualFold(existing.Address, input.Address) &&
		strings.EqualFold(existing.City, input.City) &&
		strings.EqualFold(existing.State, input.State) &&
		existing.ZipCode == input.ZipCode
}

// listingRow builds the stored row; bedrooms_available is always derived.
func listingRow(input ListingInput, coords *geocode.Coordinates) persistence.Listing {
	row := persistence.Listing{
		Title:              input.Title,
		TotalRooms:         input.TotalRooms,
		BedroomsInUse:      input.BedroomsInUse,
		BedroomsAvailable:  input.TotalRooms - input.BedroomsInUse,
		Bathrooms:          input.Bathrooms,
		CostPerMonth:       input.CostPerMonth,
		AvailableStartDate: input.AvailableStartDate,
		AvailableEndDate:   input.AvailableEndDate,
		Address:            input.Address,
		City:               input.City,
		State:              input.State,
		ZipCode:            input.ZipCode,
		Amenities:          input.Amenities,
		Images:             append([]string(nil), input.Images...),
	}
	if coords != nil {
		lat, lng := coords.Lat, coords.Lng
		row.Latitude = &lat
		row.Longitude = &lng
	}
	return row
}

func listingFromRow(row persistence.Listing) Listing {
	return Listing{
		ID:                 row.ID,
		ListerID:           row.ListerID,
		Title:              row.Title,
		TotalRooms:         row.TotalRooms,
		BedroomsInUse:      row.BedroomsInUse,
		BedroomsAvailable:  row.BedroomsAvailable,
		Bathrooms:          row.Bathrooms,
		CostPerMonth:       row.CostPerMonth,
		AvailableStartDate: row.AvailableStartDate,
		AvailableEndDate:   row.AvailableEndDate,
		Address:            row.Address,
		City:               row.City,
		State:              row.State,
		ZipCode:            row.ZipCode,
		Amenities:          row.Amenities,
		Latitude:           row.Latitude,
		Longitude:          row.Longitude,
		Images:             append([]string(nil), row.Images...),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func listingsFromRows(rows []persistence.Listing) []Listing {
	out := make([]Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, listingFromRow(row))
	}
	return out
}
