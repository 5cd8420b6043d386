package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/sublease-marketplace/internal/persistence"
)

// maxImages is the number of image columns on the listings table.
const maxImages = 4

// ListingRepository implements persistence.ListingRepository
type ListingRepository struct {
	db sqlx.ExtContext
}

// NewListingRepository creates a listing repository bound to a pool or transaction
func NewListingRepository(db sqlx.ExtContext) *ListingRepository {
	return &ListingRepository{db: db}
}

type listingRow struct {
	ID                 string          `db:"id"`
	ListerID           string          `db:"lister_id"`
	Title              string          `db:"title"`
	TotalRooms         int             `db:"total_rooms"`
	BedroomsInUse      int             `db:"bedrooms_in_use"`
	BedroomsAvailable  int             `db:"bedrooms_available"`
	Bathrooms          int             `db:"bathrooms"`
	CostPerMonth       float64         `db:"cost_per_month"`
	AvailableStartDate string          `db:"available_start_date"`
	AvailableEndDate   string          `db:"available_end_date"`
	Address            string          `db:"address"`
	City               string          `db:"city"`
	State              string          `db:"state"`
	ZipCode            string          `db:"zip_code"`
	Amenities          string          `db:"amenities"`
	Latitude           sql.NullFloat64 `db:"latitude"`
	Longitude          sql.NullFloat64 `db:"longitude"`
	Image1             sql.NullString  `db:"image1"`
	Image2             sql.NullString  `db:"image2"`
	Image3             sql.NullString  `db:"image3"`
	Image4             sql.NullString  `db:"image4"`
	CreatedAt          string          `db:"created_at"`
	UpdatedAt          string          `db:"updated_at"`
}

const listingColumns = `id, lister_id, title, total_rooms, bedrooms_in_use, bedrooms_available, bathrooms,
	cost_per_month, available_start_date, available_end_date, address, city, state, zip_code,
	amenities, latitude, longitude, image1, image2, image3, image4, created_at, updated_at`

func (row listingRow) toModel() (persistence.Listing, error) {
	createdAt, err := parseTime("created_at", row.CreatedAt)
	if err != nil {
		return persistence.Listing{}, err
	}
	updatedAt, err := parseTime("updated_at", row.UpdatedAt)
	if err != nil {
		return persistence.Listing{}, err
	}

	var images []string
	for _, image := range []sql.NullString{row.Image1, row.Image2, row.Image3, row.Image4} {
		if image.Valid && image.String != "" {
			images = append(images, image.String)
		}
	}

	return persistence.Listing{
		ID:                 row.ID,
		ListerID:           row.ListerID,
		Title:              row.Title,
		TotalRooms:         row.TotalRooms,
		BedroomsInUse:      row.BedroomsInUse,
		BedroomsAvailable:  row.BedroomsAvailable,
		Bathrooms:          row.Bathrooms,
		CostPerMonth:       row.CostPerMonth,
		AvailableStartDate: normalizeDate(row.AvailableStartDate),
		AvailableEndDate:   normalizeDate(row.AvailableEndDate),
		Address:            row.Address,
		City:               row.City,
		State:              row.State,
		ZipCode:            row.ZipCode,
		Amenities:          row.Amenities,
		Latitude:           floatPtr(row.Latitude),
		Longitude:          floatPtr(row.Longitude),
		Images:             images,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}, nil
}

// normalizeDate trims any time component a driver may append to a date column.
func normalizeDate(value string) string {
	if len(value) > len(persistence.DateLayout) {
		return value[:len(persistence.DateLayout)]
	}
	return value
}

func imageSlots(images []string) [maxImages]sql.NullString {
	var slots [maxImages]sql.NullString
	for i := 0; i < len(images) && i < maxImages; i++ {
		if images[i] != "" {
			slots[i] = sql.NullString{String: images[i], Valid: true}
		}
	}
	return slots
}

// CreateListing inserts a new listing
func (r *ListingRepository) CreateListing(ctx context.Context, listing persistence.Listing) error {
	if listing.ID == "" || listing.ListerID == "" {
		return persistence.ErrConstraintViolation
	}

	images := imageSlots(listing.Images)
	query := r.db.Rebind(`
		INSERT INTO listings (` + listingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		listing.ID,
		listing.ListerID,
		listing.Title,
		listing.TotalRooms,
		listing.BedroomsInUse,
		listing.BedroomsAvailable,
		listing.Bathrooms,
		listing.CostPerMonth,
		listing.AvailableStartDate,
		listing.AvailableEndDate,
		listing.Address,
		listing.City,
		listing.State,
		listing.ZipCode,
		listing.Amenities,
		nullFloat(listing.Latitude),
		nullFloat(listing.Longitude),
		images[0], images[1], images[2], images[3],
		formatTime(listing.CreatedAt),
		formatTime(listing.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateListing rewrites the mutable columns of a listing
func (r *ListingRepository) UpdateListing(ctx context.Context, listing persistence.Listing) error {
	if listing.ID == "" {
		return persistence.ErrNotFound
	}

	images := imageSlots(listing.Images)
	query := r.db.Rebind(`
		UPDATE listings
		SET title = ?, total_rooms = ?, bedrooms_in_use = ?, bedrooms_available = ?, bathrooms = ?,
			cost_per_month = ?, available_start_date = ?, available_end_date = ?, address = ?, city = ?,
			state = ?, zip_code = ?, amenities = ?, latitude = ?, longitude = ?,
			image1 = ?, image2 = ?, image3 = ?, image4 = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := r.db.ExecContext(ctx, query,
		listing.Title,
		listing.TotalRooms,
		listing.BedroomsInUse,
		listing.BedroomsAvailable,
		listing.Bathrooms,
		listing.CostPerMonth,
		listing.AvailableStartDate,
		listing.AvailableEndDate,
		listing.Address,
		listing.City,
		listing.State,
		listing.ZipCode,
		listing.Amenities,
		nullFloat(listing.Latitude),
		nullFloat(listing.Longitude),
		images[0], images[1], images[2], images[3],
		formatTime(listing.UpdatedAt),
		listing.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// GetListing retrieves a listing by ID
func (r *ListingRepository) GetListing(ctx context.Context, id string) (persistence.Listing, error) {
	if id == "" {
		return persistence.Listing{}, persistence.ErrNotFound
	}

	var row listingRow
	query := r.db.Rebind(`SELECT ` + listingColumns + ` FROM listings WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &row, query, id); err != nil {
		return persistence.Listing{}, mapError(err)
	}
	return row.toModel()
}

// DeleteListing removes a listing; its booking requests cascade
func (r *ListingRepository) DeleteListing(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM listings WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// ListListings returns the listings matching every active predicate of filter,
// ordered by creation time then id
func (r *ListingRepository) ListListings(ctx context.Context, filter persistence.ListingFilter) ([]persistence.Listing, error) {
	where, args := listingWhere(filter, r.db.DriverName())

	var sb strings.Builder
	sb.WriteString(`SELECT ` + listingColumns + ` FROM listings`)
	if len(where) > 0 {
		sb.WriteString(` WHERE `)
		sb.WriteString(strings.Join(where, ` AND `))
	}
	sb.WriteString(` ORDER BY created_at ASC, id ASC`)

	switch {
	case filter.Limit > 0:
		sb.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	case filter.Offset > 0 && r.db.DriverName() == driverPostgres:
		sb.WriteString(` LIMIT ALL`)
	case filter.Offset > 0:
		sb.WriteString(` LIMIT -1`)
	}
	if filter.Offset > 0 {
		sb.WriteString(` OFFSET ?`)
		args = append(args, filter.Offset)
	}

	var rows []listingRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(sb.String()), args...); err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", mapError(err))
	}

	listings := make([]persistence.Listing, 0, len(rows))
	for _, row := range rows {
		listing, err := row.toModel()
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func listingWhere(filter persistence.ListingFilter, driverName string) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.ListerID != "" {
		where = append(where, `lister_id = ?`)
		args = append(args, filter.ListerID)
	}
	if filter.MaxCost != nil {
		where = append(where, `cost_per_month <= ?`)
		args = append(args, *filter.MaxCost)
	}
	if filter.MinBedrooms != nil {
		where = append(where, `bedrooms_available >= ?`)
		args = append(args, *filter.MinBedrooms)
	}
	if filter.MinBathrooms != nil {
		where = append(where, `bathrooms >= ?`)
		args = append(args, *filter.MinBathrooms)
	}
	if filter.MappableOnly {
		where = append(where, `latitude IS NOT NULL AND longitude IS NOT NULL`)
	}

	switch filter.DateMatch {
	case persistence.DateMatchOverlap:
		if filter.StayEnd != "" {
			where = append(where, `available_start_date <= ?`)
			args = append(args, filter.StayEnd)
		}
		if filter.StayStart != "" {
			where = append(where, `available_end_date >= ?`)
			args = append(args, filter.StayStart)
		}
	default:
		if filter.StayStart != "" {
			where = append(where, `available_start_date <= ?`)
			args = append(args, filter.StayStart)
		}
		if filter.StayEnd != "" {
			where = append(where, `available_end_date >= ?`)
			args = append(args, filter.StayEnd)
		}
	}

	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where = append(where, textMatch(driverName, "title", "city", "address"))
		args = append(args, pattern, pattern, pattern)
	}
	return where, args
}

// textMatch ORs a case-insensitive LIKE over columns. SQLite's LOWER only folds ASCII, so the
// SQLite form goes through unicode_lower, which is registered in this package.
func textMatch(driverName string, columns ...string) string {
	clauses := make([]string, 0, len(columns))
	for _, col := range columns {
		if driverName == driverPostgres {
			clauses = append(clauses, col+` ILIKE ? ESCAPE '\'`)
		} else {
			clauses = append(clauses, `unicode_lower(`+col+`) LIKE ? ESCAPE '\'`)
		}
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
