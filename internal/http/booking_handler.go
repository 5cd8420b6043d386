package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/sublease-marketplace/internal/application"
	"github.com/example/sublease-marketplace/internal/logging"
)

type bookingService interface {
	CreateRequest(ctx context.Context, principal application.Principal, listingID string) (application.BookingRequest, error)
	GetRequest(ctx context.Context, principal application.Principal, id string) (application.BookingRequest, error)
	IncomingRequests(ctx context.Context, ownerID string) ([]application.IncomingRequest, error)
	OutgoingRequests(ctx context.Context, subletterID string) ([]application.OutgoingRequest, error)
	Approve(ctx context.Context, requestID, ownerID string) (application.ApprovalResult, error)
	Reject(ctx context.Context, requestID, ownerID string) (application.BookingRequest, error)
	DeleteRequest(ctx context.Context, principal application.Principal, requestID string) error
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := logging.OrDefault(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Scoped(ctx, h.logger, "handler", "BookingHandler", operation, attrs...)
}

// Create handles POST /create_booking_request.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", codeBadRequest).WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "listing_id", req.ListingID)
	request, err := h.service.CreateRequest(r.Context(), principal, req.ListingID)
	if err != nil {
		logger.WarnContext(r.Context(), "booking request creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("request_id", request.ID).InfoContext(r.Context(), "booking request created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Request: toBookingDTO(request)})
}

// Get handles GET /booking_request/{id}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())

	request, err := h.service.GetRequest(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.UserID, "request_id", id).WarnContext(r.Context(), "booking request lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Request: toBookingDTO(request)})
}

// Delete handles DELETE /delete_booking_request/{id}.
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "request_id", id)

	if err := h.service.DeleteRequest(r.Context(), principal, id); err != nil {
		logger.WarnContext(r.Context(), "booking request delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking request deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Message: "booking request deleted"})
}

// Incoming handles GET /booking_requests/incoming.
func (h *BookingHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	requests, err := h.service.IncomingRequests(r.Context(), principal.UserID)
	if err != nil {
		h.log(r.Context(), "Incoming", "principal_id", principal.UserID).ErrorContext(r.Context(), "incoming request query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]incomingDTO, 0, len(requests))
	for _, in := range requests {
		out = append(out, incomingDTO{
			Request:   toBookingDTO(in.Request),
			Listing:   toListingSummaryDTO(in.Listing),
			Requester: requesterDTO{ID: in.Requester.ID, Name: in.Requester.Name, Email: in.Requester.Email},
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

// Outgoing handles GET /booking_requests/outgoing.
func (h *BookingHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	requests, err := h.service.OutgoingRequests(r.Context(), principal.UserID)
	if err != nil {
		h.log(r.Context(), "Outgoing", "principal_id", principal.UserID).ErrorContext(r.Context(), "outgoing request query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]outgoingDTO, 0, len(requests))
	for _, o := range requests {
		out = append(out, outgoingDTO{Request: toBookingDTO(o.Request), Listing: toListingSummaryDTO(o.Listing)})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

// Approve handles POST /booking_requests/{id}/approve.
func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Approve", "principal_id", principal.UserID, "request_id", id)

	result, err := h.service.Approve(r.Context(), id, principal.UserID)
	if err != nil {
		logger.WarnContext(r.Context(), "booking approval failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking request approved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, approvalResponse{
		Request:        toBookingDTO(result.Request),
		OwnerEmail:     result.OwnerEmail,
		RequesterEmail: result.RequesterEmail,
	})
}

// Reject handles POST /booking_requests/{id}/reject.
func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Reject", "principal_id", principal.UserID, "request_id", id)

	request, err := h.service.Reject(r.Context(), id, principal.UserID)
	if err != nil {
		logger.WarnContext(r.Context(), "booking rejection failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking request rejected")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Request: toBookingDTO(request)})
}

type createBookingRequest struct {
	ListingID string `json:"listing_id"`
}

type bookingResponse struct {
	Request bookingDTO `json:"request"`
}

type approvalResponse struct {
	Request        bookingDTO `json:"request"`
	OwnerEmail     string     `json:"owner_email"`
	RequesterEmail string     `json:"requester_email"`
}

type bookingDTO struct {
	ID          string  `json:"id"`
	ListingID   string  `json:"listing_id"`
	SubletterID string  `json:"subletter_id"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	DecidedAt   *string `json:"decided_at,omitempty"`
}

type listingSummaryDTO struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	City         string  `json:"city"`
	CostPerMonth float64 `json:"cost_per_month"`
}

type requesterDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type incomingDTO struct {
	Request   bookingDTO        `json:"request"`
	Listing   listingSummaryDTO `json:"listing"`
	Requester requesterDTO      `json:"requester"`
}

type outgoingDTO struct {
	Request bookingDTO        `json:"request"`
	Listing listingSummaryDTO `json:"listing"`
}

func toBookingDTO(request application.BookingRequest) bookingDTO {
	dto := bookingDTO{
		ID:          request.ID,
		ListingID:   request.ListingID,
		SubletterID: request.SubletterID,
		Status:      request.Status.String(),
		CreatedAt:   request.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if request.DecidedAt != nil {
		decided := request.DecidedAt.UTC().Format(time.RFC3339Nano)
		dto.DecidedAt = &decided
	}
	return dto
}

func toListingSummaryDTO(summary application.ListingSummary) listingSummaryDTO {
	return listingSummaryDTO{
		ID:           summary.ID,
		Title:        summary.Title,
		City:         summary.City,
		CostPerMonth: summary.CostPerMonth,
	}
}
