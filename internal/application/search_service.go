package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/example/sublease-marketplace/internal/logging"
	"github.com/example/sublease-marketplace/internal/persistence"
)

const (
	// DefaultSearchLimit is the page size used when the caller does not ask for one.
	DefaultSearchLimit = 20
	// MaxSearchLimit caps the page size.
	MaxSearchLimit = 100
)

// SearchService evaluates conjunctive listing filters.
type SearchService struct {
	store  persistence.Store
	logger *slog.Logger
}

// NewSearchService constructs a SearchService.
func NewSearchService(store persistence.Store) *SearchService {
	return NewSearchServiceWithLogger(store, nil)
}

// NewSearchServiceWithLogger constructs a SearchService with a specific logger.
func NewSearchServiceWithLogger(store persistence.Store, logger *slog.Logger) *SearchService {
	return &SearchService{store: store, logger: logging.OrDefault(logger)}
}

func (s *SearchService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SearchService", operation, attrs...)
}

// Search returns one page of listings matching every supplied predicate, ordered by creation time.
func (s *SearchService) Search(ctx context.Context, params SearchParams) (result SearchResult, err error) {
	if s == nil {
		err = fmt.Errorf("SearchService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Search")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "search failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "search completed", "results", len(result.Listings), "limit", result.Limit, "offset", result.Offset)
	}()

	var filter persistence.ListingFilter
	filter, err = searchFilter(params)
	if err != nil {
		return
	}

	var rows []persistence.Listing
	rows, err = s.store.Listings().ListListings(ctx, filter)
	if err != nil {
		err = mapPersistenceError("search listings", err)
		return
	}

	result = SearchResult{Listings: listingsFromRows(rows), Limit: filter.Limit, Offset: filter.Offset}
	return
}

// searchFilter validates params and converts them into a repository filter.
func searchFilter(params SearchParams) (persistence.ListingFilter, error) {
	vErr := &ValidationError{}

	if params.MaxCost != nil {
		switch cost := *params.MaxCost; {
		case math.IsNaN(cost) || math.IsInf(cost, 0):
			vErr.add("max_cost", "max cost must be a finite number")
		case cost < 0:
			vErr.add("max_cost", "max cost must not be negative")
		}
	}
	if params.MinBedrooms != nil && *params.MinBedrooms < 0 {
		vErr.add("min_bedrooms", "min bedrooms must not be negative")
	}
	if params.MinBathrooms != nil && *params.MinBathrooms < 0 {
		vErr.add("min_bathrooms", "min bathrooms must not be negative")
	}

	start := strings.TrimSpace(params.StartDate)
	end := strings.TrimSpace(params.EndDate)
	startDate, startOK := parseSearchDate(vErr, "start_date", start)
	endDate, endOK := parseSearchDate(vErr, "end_date", end)
	if startOK && endOK && start != "" && end != "" && endDate.Before(startDate) {
		vErr.add("end_date", "end date must not be before the start date")
	}

	mode := params.DateMode
	switch mode {
	case "":
		mode = DateModeContain
	case DateModeContain, DateModeOverlap:
	default:
		vErr.add("date_mode", "date mode must be contain or overlap")
	}

	limit := params.Limit
	switch {
	case limit < 0:
		vErr.add("limit", "limit must not be negative")
	case limit == 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}
	if params.Offset < 0 {
		vErr.add("offset", "offset must not be negative")
	}

	if vErr.HasErrors() {
		return persistence.ListingFilter{}, vErr
	}

	return persistence.ListingFilter{
		MaxCost:      params.MaxCost,
		MinBedrooms:  params.MinBedrooms,
		MinBathrooms: params.MinBathrooms,
		StayStart:    start,
		StayEnd:      end,
		DateMatch:    persistence.DateMatch(mode),
		Query:        strings.TrimSpace(params.Query),
		Limit:        limit,
		Offset:       params.Offset,
	}, nil
}

func parseSearchDate(vErr *ValidationError, field, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse(persistence.DateLayout, value)
	if err != nil {
		vErr.add(field, strings.ReplaceAll(field, "_", " ")+" must be a date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}
