package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/example/sublease-marketplace/internal/persistence"
)

// CreateListing stores a new listing.
func (r *repositories) CreateListing(ctx context.Context, listing persistence.Listing) error {
	st, done := r.edit()
	defer done()

	if err := checkListing(listing); err != nil {
		return err
	}
	if _, ok := st.listings[listing.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := st.users[listing.ListerID]; !ok {
		return persistence.ErrForeignKeyViolation
	}

	st.listings[listing.ID] = cloneListing(listing)
	return nil
}

// UpdateListing replaces an existing listing. The lister and creation time are immutable.
func (r *repositories) UpdateListing(ctx context.Context, listing persistence.Listing) error {
	st, done := r.edit()
	defer done()

	existing, ok := st.listings[listing.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := checkListing(listing); err != nil {
		return err
	}

	updated := cloneListing(listing)
	updated.ListerID = existing.ListerID
	updated.CreatedAt = existing.CreatedAt
	st.listings[listing.ID] = updated
	return nil
}

// GetListing retrieves a listing by ID.
func (r *repositories) GetListing(ctx context.Context, id string) (persistence.Listing, error) {
	st, done := r.view()
	defer done()

	listing, ok := st.listings[id]
	if !ok {
		return persistence.Listing{}, persistence.ErrNotFound
	}
	return cloneListing(listing), nil
}

// DeleteListing removes a listing and the booking requests that reference it.
func (r *repositories) DeleteListing(ctx context.Context, id string) error {
	st, done := r.edit()
	defer done()

	if _, ok := st.listings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(st.listings, id)

	for requestID, request := range st.requests {
		if request.ListingID == id {
			delete(st.requests, requestID)
		}
	}
	return nil
}

// ListListings returns the listings matching every active predicate of filter.
func (r *repositories) ListListings(ctx context.Context, filter persistence.ListingFilter) ([]persistence.Listing, error) {
	st, done := r.view()
	defer done()

	matched := make([]persistence.Listing, 0)
	for _, listing := range st.listings {
		if matchesListingFilter(listing, filter) {
			matched = append(matched, cloneListing(listing))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []persistence.Listing{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func matchesListingFilter(listing persistence.Listing, filter persistence.ListingFilter) bool {
	if filter.ListerID != "" && listing.ListerID != filter.ListerID {
		return false
	}
	if filter.MaxCost != nil && listing.CostPerMonth > *filter.MaxCost {
		return false
	}
	if filter.MinBedrooms != nil && listing.BedroomsAvailable < *filter.MinBedrooms {
		return false
	}
	if filter.MinBathrooms != nil && listing.Bathrooms < *filter.MinBathrooms {
		return false
	}
	if filter.MappableOnly && (listing.Latitude == nil || listing.Longitude == nil) {
		return false
	}

	// Dates use DateLayout so lexical order is calendar order.
	switch filter.DateMatch {
	case persistence.DateMatchOverlap:
		if filter.StayEnd != "" && listing.AvailableStartDate > filter.StayEnd {
			return false
		}
		if filter.StayStart != "" && listing.AvailableEndDate < filter.StayStart {
			return false
		}
	default:
		if filter.StayStart != "" && listing.AvailableStartDate > filter.StayStart {
			return false
		}
		if filter.StayEnd != "" && listing.AvailableEndDate < filter.StayEnd {
			return false
		}
	}

	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		if !strings.Contains(strings.ToLower(listing.Title), q) &&
			!strings.Contains(strings.ToLower(listing.City), q) &&
			!strings.Contains(strings.ToLower(listing.Address), q) {
			return false
		}
	}
	return true
}

func checkListing(listing persistence.Listing) error {
	switch {
	case listing.ID == "" || listing.ListerID == "":
		return persistence.ErrConstraintViolation
	case listing.BedroomsInUse < 0 || listing.BedroomsInUse > listing.TotalRooms:
		return persistence.ErrConstraintViolation
	case listing.BedroomsAvailable != listing.TotalRooms-listing.BedroomsInUse:
		return persistence.ErrConstraintViolation
	case listing.CostPerMonth < 0 || listing.Bathrooms < 0:
		return persistence.ErrConstraintViolation
	case listing.AvailableStartDate > listing.AvailableEndDate:
		return persistence.ErrConstraintViolation
	}
	return nil
}

func cloneListing(listing persistence.Listing) persistence.Listing {
	out := listing
	if listing.Latitude != nil {
		lat := *listing.Latitude
		out.Latitude = &lat
	}
	if listing.Longitude != nil {
		lng := *listing.Longitude
		out.Longitude = &lng
	}
	out.Images = append([]string(nil), listing.Images...)
	return out
}
