package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/sublease-marketplace/internal/logging"
	"github.com/example/sublease-marketplace/internal/persistence"
)

// BookingService coordinates the booking request lifecycle between subletters and listers.
type BookingService struct {
	store       persistence.Store
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService wires dependencies for the booking service.
func NewBookingService(store persistence.Store, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(store, idGenerator, now, nil)
}

// NewBookingServiceWithLogger wires dependencies for the booking service with a specific logger.
func NewBookingServiceWithLogger(store persistence.Store, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		store:       store,
		idGenerator: idGenerator,
		now:         now,
		logger:      logging.OrDefault(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

func (s *BookingService) ready() error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("store not configured")
	}
	return nil
}

// CreateRequest records the principal's interest in a listing as a pending request.
func (s *BookingService) CreateRequest(ctx context.Context, principal Principal, listingID string) (request BookingRequest, err error) {
	if err = s.ready(); err != nil {
		return
	}

	listingID = strings.TrimSpace(listingID)
	logger := s.loggerWith(ctx, "CreateRequest", "principal_id", principal.UserID, "listing_id", listingID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("request_id", request.ID).InfoContext(ctx, "booking request created")
	}()

	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	if listingID == "" {
		err = fieldError("listing_id", "listing id is required")
		return
	}

	now := s.now()
	row := persistence.BookingRequest{
		ID:          s.idGenerator(),
		ListingID:   listingID,
		SubletterID: principal.UserID,
		Status:      persistence.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		listing, err := repos.Listings().GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.ListerID == principal.UserID {
			return fieldError("listing_id", "you cannot request your own listing")
		}
		return repos.BookingRequests().CreateBookingRequest(ctx, row)
	})
	if err != nil {
		err = mapPersistenceError("create booking request", err)
		return
	}

	request = bookingFromRow(row)
	return
}

// GetRequest returns a request to its subletter or to the lister of the targeted listing.
func (s *BookingService) GetRequest(ctx context.Context, principal Principal, id string) (request BookingRequest, err error) {
	if err = s.ready(); err != nil {
		return
	}

	id = strings.TrimSpace(id)
	logger := s.loggerWith(ctx, "GetRequest", "principal_id", principal.UserID, "request_id", id)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to load booking request", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		row, listing, err := loadRequest(ctx, repos, id)
		if err != nil {
			return err
		}
		if principal.UserID == "" || (row.SubletterID != principal.UserID && listing.ListerID != principal.UserID) {
			return ErrUnauthorized
		}
		request = bookingFromRow(row)
		return nil
	})
	err = mapPersistenceError("get booking request", err)
	return
}

// IncomingRequests lists the pending requests on listings owned by ownerID, oldest first.
func (s *BookingService) IncomingRequests(ctx context.Context, ownerID string) ([]IncomingRequest, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var rows []persistence.IncomingRequest
	err := s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		var err error
		rows, err = repos.BookingRequests().ListIncomingRequests(ctx, ownerID, persistence.StatusPending)
		return err
	})
	if err != nil {
		err = mapPersistenceError("list incoming requests", err)
		s.loggerWith(ctx, "IncomingRequests", "owner_id", ownerID).ErrorContext(ctx, "failed to list incoming requests", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	out := make([]IncomingRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, IncomingRequest{
			Request: bookingFromRow(row.Request),
			Listing: ListingSummary{
				ID:           row.Request.ListingID,
				Title:        row.ListingTitle,
				City:         row.ListingCity,
				CostPerMonth: row.ListingCost,
			},
			Requester: RequesterSummary{
				ID:    row.Request.SubletterID,
				Name:  row.RequesterName,
				Email: row.RequesterEmail,
			},
		})
	}
	return out, nil
}

// OutgoingRequests lists every request the subletter sent, newest first.
func (s *BookingService) OutgoingRequests(ctx context.Context, subletterID string) ([]OutgoingRequest, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var rows []persistence.OutgoingRequest
	err := s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		var err error
		rows, err = repos.BookingRequests().ListOutgoingRequests(ctx, subletterID)
		return err
	})
	if err != nil {
		err = mapPersistenceError("list outgoing requests", err)
		s.loggerWith(ctx, "OutgoingRequests", "subletter_id", subletterID).ErrorContext(ctx, "failed to list outgoing requests", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	out := make([]OutgoingRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, OutgoingRequest{
			Request: bookingFromRow(row.Request),
			Listing: ListingSummary{
				ID:           row.Request.ListingID,
				Title:        row.ListingTitle,
				City:         row.ListingCity,
				CostPerMonth: row.ListingCost,
			},
		})
	}
	return out, nil
}

// Approve accepts a pending request on one of the owner's listings and returns both parties' emails.
func (s *BookingService) Approve(ctx context.Context, requestID, ownerID string) (result ApprovalResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Approve", "request_id", requestID, "owner_id", ownerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve booking request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking request approved")
	}()

	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		updated, listing, err := s.transition(ctx, repos, requestID, ownerID, BookingApproved)
		if err != nil {
			return err
		}
		owner, err := repos.Users().GetUser(ctx, listing.ListerID)
		if err != nil {
			return fmt.Errorf("load owner: %w", err)
		}
		requester, err := repos.Users().GetUser(ctx, updated.SubletterID)
		if err != nil {
			return fmt.Errorf("load requester: %w", err)
		}
		result = ApprovalResult{
			Request:        bookingFromRow(updated),
			OwnerEmail:     owner.Email,
			RequesterEmail: requester.Email,
		}
		return nil
	})
	err = mapPersistenceError("approve booking request", err)
	return
}

// Reject declines a pending request on one of the owner's listings.
func (s *BookingService) Reject(ctx context.Context, requestID, ownerID string) (request BookingRequest, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Reject", "request_id", requestID, "owner_id", ownerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reject booking request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking request rejected")
	}()

	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		updated, _, err := s.transition(ctx, repos, requestID, ownerID, BookingRejected)
		if err != nil {
			return err
		}
		request = bookingFromRow(updated)
		return nil
	})
	err = mapPersistenceError("reject booking request", err)
	return
}

// DeleteRequest removes a request. The subletter may withdraw it and the lister may discard it.
func (s *BookingService) DeleteRequest(ctx context.Context, principal Principal, requestID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	requestID = strings.TrimSpace(requestID)
	logger := s.loggerWith(ctx, "DeleteRequest", "principal_id", principal.UserID, "request_id", requestID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete booking request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking request deleted")
	}()

	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		row, listing, err := loadRequest(ctx, repos, requestID)
		if err != nil {
			return err
		}
		if principal.UserID == "" || (row.SubletterID != principal.UserID && listing.ListerID != principal.UserID) {
			return ErrUnauthorized
		}
		return repos.BookingRequests().DeleteBookingRequest(ctx, requestID)
	})
	err = mapPersistenceError("delete booking request", err)
	return
}

// transition checks ownership and moves a pending request to next with a conditional write.
func (s *BookingService) transition(ctx context.Context, repos persistence.Repositories, requestID, ownerID string, next BookingStatus) (persistence.BookingRequest, persistence.Listing, error) {
	requestID = strings.TrimSpace(requestID)
	row, listing, err := loadRequest(ctx, repos, requestID)
	if err != nil {
		return persistence.BookingRequest{}, persistence.Listing{}, err
	}
	if ownerID == "" || listing.ListerID != ownerID {
		return persistence.BookingRequest{}, persistence.Listing{}, ErrUnauthorized
	}

	current, err := ParseBookingStatus(row.Status)
	if err != nil {
		return persistence.BookingRequest{}, persistence.Listing{}, err
	}
	if current.Terminal() {
		return persistence.BookingRequest{}, persistence.Listing{}, fmt.Errorf("%w: request already %s", ErrInvalidTransition, current)
	}
	if !current.CanTransition(next) {
		return persistence.BookingRequest{}, persistence.Listing{}, ErrInvalidTransition
	}

	updated, err := repos.BookingRequests().TransitionBookingRequest(ctx, requestID, current.String(), next.String(), s.now())
	if err != nil {
		return persistence.BookingRequest{}, persistence.Listing{}, err
	}
	return updated, listing, nil
}

func loadRequest(ctx context.Context, repos persistence.Repositories, id string) (persistence.BookingRequest, persistence.Listing, error) {
	if id == "" {
		return persistence.BookingRequest{}, persistence.Listing{}, ErrNotFound
	}
	row, err := repos.BookingRequests().GetBookingRequest(ctx, id)
	if err != nil {
		return persistence.BookingRequest{}, persistence.Listing{}, err
	}
	listing, err := repos.Listings().GetListing(ctx, row.ListingID)
	if err != nil {
		return persistence.BookingRequest{}, persistence.Listing{}, err
	}
	return row, listing, nil
}

func bookingFromRow(row persistence.BookingRequest) BookingRequest {
	return BookingRequest{
		ID:          row.ID,
		ListingID:   row.ListingID,
		SubletterID: row.SubletterID,
		Status:      BookingStatus(row.Status),
		CreatedAt:   row.CreatedAt,
		DecidedAt:   row.DecidedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
