package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/example/sublease-marketplace/internal/persistence"
)

// CreateBookingRequest stores a new request, rejecting a second active request for the same pair.
func (r *repositories) CreateBookingRequest(ctx context.Context, request persistence.BookingRequest) error {
	st, done := r.edit()
	defer done()

	if request.ID == "" || !validStatus(request.Status) {
		return persistence.ErrConstraintViolation
	}
	if _, ok := st.requests[request.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := st.listings[request.ListingID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if _, ok := st.users[request.SubletterID]; !ok {
		return persistence.ErrForeignKeyViolation
	}

	if isActive(request.Status) {
		for _, existing := range st.requests {
			if existing.ListingID == request.ListingID &&
				existing.SubletterID == request.SubletterID &&
				isActive(existing.Status) {
				return persistence.ErrDuplicate
			}
		}
	}

	st.requests[request.ID] = cloneRequest(request)
	return nil
}

// GetBookingRequest retrieves a request by ID.
func (r *repositories) GetBookingRequest(ctx context.Context, id string) (persistence.BookingRequest, error) {
	st, done := r.view()
	defer done()

	request, ok := st.requests[id]
	if !ok {
		return persistence.BookingRequest{}, persistence.ErrNotFound
	}
	return cloneRequest(request), nil
}

// ListIncomingRequests joins requests with their listing and requester.
func (r *repositories) ListIncomingRequests(ctx context.Context, ownerID, status string) ([]persistence.IncomingRequest, error) {
	st, done := r.view()
	defer done()

	out := make([]persistence.IncomingRequest, 0)
	for _, request := range st.requests {
		if status != "" && request.Status != status {
			continue
		}
		listing, ok := st.listings[request.ListingID]
		if !ok || listing.ListerID != ownerID {
			continue
		}
		requester, ok := st.users[request.SubletterID]
		if !ok {
			continue
		}
		out = append(out, persistence.IncomingRequest{
			Request:        cloneRequest(request),
			ListingTitle:   listing.Title,
			ListingCity:    listing.City,
			ListingCost:    listing.CostPerMonth,
			RequesterName:  requester.Name,
			RequesterEmail: requester.Email,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return requestLess(out[i].Request, out[j].Request)
	})
	return out, nil
}

// ListOutgoingRequests returns the subletter's requests, newest first.
func (r *repositories) ListOutgoingRequests(ctx context.Context, subletterID string) ([]persistence.OutgoingRequest, error) {
	st, done := r.view()
	defer done()

	out := make([]persistence.OutgoingRequest, 0)
	for _, request := range st.requests {
		if request.SubletterID != subletterID {
			continue
		}
		listing, ok := st.listings[request.ListingID]
		if !ok {
			continue
		}
		out = append(out, persistence.OutgoingRequest{
			Request:      cloneRequest(request),
			ListingTitle: listing.Title,
			ListingCity:  listing.City,
			ListingCost:  listing.CostPerMonth,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return requestLess(out[j].Request, out[i].Request)
	})
	return out, nil
}

// TransitionBookingRequest performs a compare-and-swap on the request status.
func (r *repositories) TransitionBookingRequest(ctx context.Context, id, from, to string, at time.Time) (persistence.BookingRequest, error) {
	st, done := r.edit()
	defer done()

	if !validStatus(to) {
		return persistence.BookingRequest{}, persistence.ErrConstraintViolation
	}
	request, ok := st.requests[id]
	if !ok {
		return persistence.BookingRequest{}, persistence.ErrNotFound
	}
	if request.Status != from {
		return persistence.BookingRequest{}, persistence.ErrStaleState
	}

	decided := at.UTC()
	request.Status = to
	request.DecidedAt = &decided
	request.UpdatedAt = decided
	st.requests[id] = request
	return cloneRequest(request), nil
}

// DeleteBookingRequest removes a request by ID.
func (r *repositories) DeleteBookingRequest(ctx context.Context, id string) error {
	st, done := r.edit()
	defer done()

	if _, ok := st.requests[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(st.requests, id)
	return nil
}

func validStatus(status string) bool {
	switch status {
	case persistence.StatusPending, persistence.StatusApproved, persistence.StatusRejected:
		return true
	}
	return false
}

func isActive(status string) bool {
	return status == persistence.StatusPending || status == persistence.StatusApproved
}

func requestLess(a, b persistence.BookingRequest) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func cloneRequest(request persistence.BookingRequest) persistence.BookingRequest {
	out := request
	if request.DecidedAt != nil {
		at := *request.DecidedAt
		out.DecidedAt = &at
	}
	return out
}
