package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/sublease-marketplace/internal/persistence"
)

// BookingRequestRepository implements persistence.BookingRequestRepository
type BookingRequestRepository struct {
	db sqlx.ExtContext
}

// NewBookingRequestRepository creates a booking request repository bound to a pool or transaction
func NewBookingRequestRepository(db sqlx.ExtContext) *BookingRequestRepository {
	return &BookingRequestRepository{db: db}
}

type bookingRow struct {
	ID          string         `db:"id"`
	ListingID   string         `db:"listing_id"`
	SubletterID string         `db:"subletter_id"`
	Status      string         `db:"status"`
	CreatedAt   string         `db:"created_at"`
	DecidedAt   sql.NullString `db:"decided_at"`
	UpdatedAt   string         `db:"updated_at"`
}

func (row bookingRow) toModel() (persistence.BookingRequest, error) {
	request := persistence.BookingRequest{
		ID:          row.ID,
		ListingID:   row.ListingID,
		SubletterID: row.SubletterID,
		Status:      row.Status,
	}
	var err error
	if request.CreatedAt, err = parseTime("created_at", row.CreatedAt); err != nil {
		return persistence.BookingRequest{}, err
	}
	if request.UpdatedAt, err = parseTime("updated_at", row.UpdatedAt); err != nil {
		return persistence.BookingRequest{}, err
	}
	if request.DecidedAt, err = parseTimePtr("decided_at", row.DecidedAt); err != nil {
		return persistence.BookingRequest{}, err
	}
	return request, nil
}

type incomingRow struct {
	bookingRow
	ListingTitle   string  `db:"listing_title"`
	ListingCity    string  `db:"listing_city"`
	ListingCost    float64 `db:"listing_cost"`
	RequesterName  string  `db:"requester_name"`
	RequesterEmail string  `db:"requester_email"`
}

type outgoingRow struct {
	bookingRow
	ListingTitle string  `db:"listing_title"`
	ListingCity  string  `db:"listing_city"`
	ListingCost  float64 `db:"listing_cost"`
}

const bookingColumns = `id, listing_id, subletter_id, status, created_at, decided_at, updated_at`

const joinedBookingColumns = `br.id, br.listing_id, br.subletter_id, br.status, br.created_at, br.decided_at,
	br.updated_at, l.title AS listing_title, l.city AS listing_city, l.cost_per_month AS listing_cost`

// CreateBookingRequest inserts a new request. The partial unique index on active pairs
// reports a second pending or approved request as a duplicate.
func (r *BookingRequestRepository) CreateBookingRequest(ctx context.Context, request persistence.BookingRequest) error {
	if request.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := r.db.Rebind(`
		INSERT INTO booking_requests (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.ListingID,
		request.SubletterID,
		request.Status,
		formatTime(request.CreatedAt),
		formatTimePtr(request.DecidedAt),
		formatTime(request.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetBookingRequest retrieves a request by ID
func (r *BookingRequestRepository) GetBookingRequest(ctx context.Context, id string) (persistence.BookingRequest, error) {
	if id == "" {
		return persistence.BookingRequest{}, persistence.ErrNotFound
	}

	var row bookingRow
	query := r.db.Rebind(`SELECT ` + bookingColumns + ` FROM booking_requests WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &row, query, id); err != nil {
		return persistence.BookingRequest{}, mapError(err)
	}
	return row.toModel()
}

// ListIncomingRequests returns requests on listings owned by ownerID. An empty status matches all.
func (r *BookingRequestRepository) ListIncomingRequests(ctx context.Context, ownerID, status string) ([]persistence.IncomingRequest, error) {
	query := `
		SELECT ` + joinedBookingColumns + `, u.name AS requester_name, u.email AS requester_email
		FROM booking_requests br
		JOIN listings l ON l.id = br.listing_id
		JOIN users u ON u.id = br.subletter_id
		WHERE l.lister_id = ?`
	args := []any{ownerID}
	if status != "" {
		query += ` AND br.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY br.created_at ASC, br.id ASC`

	var rows []incomingRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list incoming requests: %w", mapError(err))
	}

	out := make([]persistence.IncomingRequest, 0, len(rows))
	for _, row := range rows {
		request, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, persistence.IncomingRequest{
			Request:        request,
			ListingTitle:   row.ListingTitle,
			ListingCity:    row.ListingCity,
			ListingCost:    row.ListingCost,
			RequesterName:  row.RequesterName,
			RequesterEmail: row.RequesterEmail,
		})
	}
	return out, nil
}

// ListOutgoingRequests returns the subletter's requests, newest first
func (r *BookingRequestRepository) ListOutgoingRequests(ctx context.Context, subletterID string) ([]persistence.OutgoingRequest, error) {
	query := r.db.Rebind(`
		SELECT ` + joinedBookingColumns + `
		FROM booking_requests br
		JOIN listings l ON l.id = br.listing_id
		WHERE br.subletter_id = ?
		ORDER BY br.created_at DESC, br.id DESC`)

	var rows []outgoingRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, subletterID); err != nil {
		return nil, fmt.Errorf("failed to list outgoing requests: %w", mapError(err))
	}

	out := make([]persistence.OutgoingRequest, 0, len(rows))
	for _, row := range rows {
		request, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, persistence.OutgoingRequest{
			Request:      request,
			ListingTitle: row.ListingTitle,
			ListingCity:  row.ListingCity,
			ListingCost:  row.ListingCost,
		})
	}
	return out, nil
}

// TransitionBookingRequest moves a request between statuses with a conditional update
func (r *BookingRequestRepository) TransitionBookingRequest(ctx context.Context, id, from, to string, at time.Time) (persistence.BookingRequest, error) {
	stamp := formatTime(at)
	query := r.db.Rebind(`
		UPDATE booking_requests
		SET status = ?, decided_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`)
	result, err := r.db.ExecContext(ctx, query, to, stamp, stamp, id, from)
	if err != nil {
		return persistence.BookingRequest{}, mapError(err)
	}

	if err := requireRow(result); err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			return persistence.BookingRequest{}, err
		}
		// Nothing matched: either the request is gone or another writer decided it first.
		if _, getErr := r.GetBookingRequest(ctx, id); getErr != nil {
			return persistence.BookingRequest{}, getErr
		}
		return persistence.BookingRequest{}, persistence.ErrStaleState
	}
	return r.GetBookingRequest(ctx, id)
}

// DeleteBookingRequest removes a request by ID
func (r *BookingRequestRepository) DeleteBookingRequest(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM booking_requests WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}
