package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listingColumns = `id, owner_id, name, age, city, verified, elite, price, ethnicity, nationality, lat, lng, photos, description, views, created_at, updated_at`

// Repository provides access to catalog listings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID fetches a listing by its primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Listing, error) {
	const query = `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE id = $1
	`

	listing, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, fmt.Errorf("profile: query by id: %w", err)
	}

	return listing, nil
}

// List fetches listings matching the filter ordered by creation time, newest
// first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Listing, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.City != "" {
		conds = append(conds, "city = "+arg(filter.City))
	}
	if filter.Verified != nil {
		conds = append(conds, "verified = "+arg(*filter.Verified))
	}
	if filter.Elite != nil {
		conds = append(conds, "elite = "+arg(*filter.Elite))
	}
	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		conds = append(conds, "(lower(name) LIKE "+p+" OR lower(city) LIKE "+p+")")
	}

	query := "SELECT " + listingColumns + " FROM listings"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT " + arg(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("profile: list: %w", err)
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("profile: scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile: iterate listings: %w", err)
	}

	return listings, nil
}

// Create inserts a new listing.
func (r *Repository) Create(ctx context.Context, params CreateParams) (Listing, error) {
	const insertSQL = `
		INSERT INTO listings (owner_id, name, age, city, price, ethnicity, nationality, lat, lng, photos, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + listingColumns

	listing, err := scanListing(r.pool.QueryRow(ctx, insertSQL,
		params.OwnerID, params.Name, params.Age, params.City, params.Price,
		params.Ethnicity, params.Nationality, params.Lat, params.Lng,
		params.Photos, params.Description))
	if err != nil {
		return Listing{}, fmt.Errorf("profile: create listing: %w", err)
	}

	return listing, nil
}

// Update applies non-nil patch fields and returns the updated row.
func (r *Repository) Update(ctx context.Context, id string, params UpdateParams) (Listing, error) {
	const updateSQL = `
		UPDATE listings
		SET name = COALESCE($2, name),
		    age = COALESCE($3, age),
		    city = COALESCE($4, city),
		    price = COALESCE($5, price),
		    description = COALESCE($6, description),
		    photos = COALESCE($7, photos),
		    lat = COALESCE($8, lat),
		    lng = COALESCE($9, lng),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + listingColumns

	listing, err := scanListing(r.pool.QueryRow(ctx, updateSQL,
		id, params.Name, params.Age, params.City, params.Price,
		params.Description, params.Photos, params.Lat, params.Lng))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, fmt.Errorf("profile: update listing: %w", err)
	}

	return listing, nil
}

// IncrementViews bumps the view counter by one.
func (r *Repository) IncrementViews(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE listings SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("profile: increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanListing(row pgx.Row) (Listing, error) {
	var listing Listing
	err := row.Scan(
		&listing.ID,
		&listing.OwnerID,
		&listing.Name,
		&listing.Age,
		&listing.City,
		&listing.Verified,
		&listing.Elite,
		&listing.Price,
		&listing.Ethnicity,
		&listing.Nationality,
		&listing.Lat,
		&listing.Lng,
		&listing.Photos,
		&listing.Description,
		&listing.Views,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		return Listing{}, err
	}
	return listing, nil
}
