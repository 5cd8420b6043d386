package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/sublease-marketplace/internal/application"
	"github.com/example/sublease-marketplace/internal/logging"
)

type listingService interface {
	CreateListing(ctx context.Context, principal application.Principal, input application.ListingInput) (application.Listing, error)
	GetListing(ctx context.Context, id string) (application.Listing, error)
	UpdateListing(ctx context.Context, principal application.Principal, id string, input application.ListingInput) (application.Listing, error)
	DeleteListing(ctx context.Context, principal application.Principal, id string) error
	ListMappable(ctx context.Context) ([]application.Listing, error)
}

type searchService interface {
	Search(ctx context.Context, params application.SearchParams) (application.SearchResult, error)
}

type ListingHandler struct {
	service   listingService
	search    searchService
	responder responder
	logger    *slog.Logger
}

func NewListingHandler(service listingService, search searchService, logger *slog.Logger) *ListingHandler {
	base := logging.OrDefault(logger)
	return &ListingHandler{service: service, search: search, responder: newResponder(base), logger: base}
}

func (h *ListingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Scoped(ctx, h.logger, "handler", "ListingHandler", operation, attrs...)
}

// Create handles POST /listings.
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", codeBadRequest).WarnContext(r.Context(), "failed to decode listing request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)
	listing, err := h.service.CreateListing(r.Context(), principal, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "listing creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("listing_id", listing.ID).InfoContext(r.Context(), "listing created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listingResponse{Listing: toListingDTO(listing)})
}

// Get handles GET /listings/{id}.
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	listing, err := h.service.GetListing(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get", "listing_id", id).WarnContext(r.Context(), "listing lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listingResponse{Listing: toListingDTO(listing)})
}

// Update handles PUT /listings/{id}.
func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())

	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "listing_id", id, "error_kind", codeBadRequest).WarnContext(r.Context(), "failed to decode listing update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "listing_id", id)
	listing, err := h.service.UpdateListing(r.Context(), principal, id, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "listing update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "listing updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listingResponse{Listing: toListingDTO(listing)})
}

// Delete handles DELETE /listings/{id}.
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "listing_id", id)

	if err := h.service.DeleteListing(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "listing delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "listing deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Message: "listing deleted"})
}

// Mappable handles GET /api/listings.
func (h *ListingHandler) Mappable(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	listings, err := h.service.ListMappable(r.Context())
	if err != nil {
		h.log(r.Context(), "Mappable").ErrorContext(r.Context(), "mappable listing query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]mapPointDTO, 0, len(listings))
	for _, l := range listings {
		if !l.Mappable() {
			continue
		}
		out = append(out, mapPointDTO{
			ID:           l.ID,
			Title:        l.Title,
			Address:      l.Address,
			City:         l.City,
			State:        l.State,
			ZipCode:      l.ZipCode,
			CostPerMonth: l.CostPerMonth,
			Latitude:     *l.Latitude,
			Longitude:    *l.Longitude,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

// Search handles GET /search_results.
func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.search == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Search")
	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		logger.WarnContext(r.Context(), "invalid search query", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.search.Search(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, searchResponse{
		Listings: toListingDTOs(result.Listings),
		Limit:    result.Limit,
		Offset:   result.Offset,
	})
}

// parseSearchParams reads the search query string. Each filter accepts the listing column name
// and a shorter alias, e.g. cost_per_month or max_cost.
func parseSearchParams(q url.Values) (application.SearchParams, error) {
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	invalid := func(field, msg string) {
		if _, exists := vErr.FieldErrors[field]; !exists {
			vErr.FieldErrors[field] = msg
		}
	}

	var params application.SearchParams
	if raw, field := firstParam(q, "cost_per_month", "max_cost"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			invalid(field, field+" must be a finite number")
		} else {
			params.MaxCost = &v
		}
	}
	for _, spec := range []struct {
		names []string
		dst   **int
	}{
		{names: []string{"bedrooms_available", "min_bedrooms"}, dst: &params.MinBedrooms},
		{names: []string{"bathrooms", "min_bathrooms"}, dst: &params.MinBathrooms},
	} {
		raw, field := firstParam(q, spec.names...)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			invalid(field, field+" must be an integer")
			continue
		}
		*spec.dst = &v
	}

	params.StartDate, _ = firstParam(q, "available_start_date", "start_date")
	params.EndDate, _ = firstParam(q, "available_end_date", "end_date")
	params.DateMode = application.DateMode(strings.ToLower(strings.TrimSpace(q.Get("date_mode"))))
	params.Query = strings.TrimSpace(q.Get("q"))

	for _, spec := range []struct {
		name string
		dst  *int
	}{
		{name: "limit", dst: &params.Limit},
		{name: "offset", dst: &params.Offset},
	} {
		raw := strings.TrimSpace(q.Get(spec.name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			invalid(spec.name, spec.name+" must be an integer")
			continue
		}
		*spec.dst = v
	}

	if vErr.HasErrors() {
		return application.SearchParams{}, vErr
	}
	return params, nil
}

func firstParam(q url.Values, names ...string) (string, string) {
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v, name
		}
	}
	return "", ""
}

type listingRequest struct {
	Title              string   `json:"title"`
	TotalRooms         int      `json:"total_rooms"`
	BedroomsInUse      int      `json:"bedrooms_in_use"`
	Bathrooms          int      `json:"bathrooms"`
	CostPerMonth       float64  `json:"cost_per_month"`
	AvailableStartDate string   `json:"available_start_date"`
	AvailableEndDate   string   `json:"available_end_date"`
	Address            string   `json:"address"`
	City               string   `json:"city"`
	State              string   `json:"state"`
	ZipCode            string   `json:"zip_code"`
	Amenities          string   `json:"amenities"`
	Images             []string `json:"images"`
}

func (r listingRequest) toInput() application.ListingInput {
	return application.ListingInput{
		Title:              r.Title,
		TotalRooms:         r.TotalRooms,
		BedroomsInUse:      r.BedroomsInUse,
		Bathrooms:          r.Bathrooms,
		CostPerMonth:       r.CostPerMonth,
		AvailableStartDate: r.AvailableStartDate,
		AvailableEndDate:   r.AvailableEndDate,
		Address:            r.Address,
		City:               r.City,
		State:              r.State,
		ZipCode:            r.ZipCode,
		Amenities:          r.Amenities,
		Images:             r.Images,
	}
}

type listingResponse struct {
	Listing listingDTO `json:"listing"`
}

type searchResponse struct {
	Listings []listingDTO `json:"listings"`
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type listingDTO struct {
	ID                 string   `json:"id"`
	ListerID           string   `json:"lister_id"`
	Title              string   `json:"title"`
	TotalRooms         int      `json:"total_rooms"`
	BedroomsInUse      int      `json:"bedrooms_in_use"`
	BedroomsAvailable  int      `json:"bedrooms_available"`
	Bathrooms          int      `json:"bathrooms"`
	CostPerMonth       float64  `json:"cost_per_month"`
	AvailableStartDate string   `json:"available_start_date"`
	AvailableEndDate   string   `json:"available_end_date"`
	Address            string   `json:"address"`
	City               string   `json:"city"`
	State              string   `json:"state"`
	ZipCode            string   `json:"zip_code"`
	Amenities          string   `json:"amenities"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	Images             []string `json:"images"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
}

type mapPointDTO struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ZipCode      string  `json:"zip_code"`
	CostPerMonth float64 `json:"cost_per_month"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

func toListingDTO(l application.Listing) listingDTO {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	return listingDTO{
		ID:                 l.ID,
		ListerID:           l.ListerID,
		Title:              l.Title,
		TotalRooms:         l.TotalRooms,
		BedroomsInUse:      l.BedroomsInUse,
		BedroomsAvailable:  l.BedroomsAvailable,
		Bathrooms:          l.Bathrooms,
		CostPerMonth:       l.CostPerMonth,
		AvailableStartDate: l.AvailableStartDate,
		AvailableEndDate:   l.AvailableEndDate,
		Address:            l.Address,
		City:               l.City,
		State:              l.State,
		ZipCode:            l.ZipCode,
		Amenities:          l.Amenities,
		Latitude:           l.Latitude,
		Longitude:          l.Longitude,
		Images:             images,
		CreatedAt:          l.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:          l.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toListingDTOs(listings []application.Listing) []listingDTO {
	out := make([]listingDTO, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingDTO(l))
	}
	return out
}
