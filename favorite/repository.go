package favorite

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrListingMissing signals the referenced listing does not exist.
var ErrListingMissing = errors.New("favorite: listing does not exist")

// Repository stores per-user favorite listing IDs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns the user's favorites, most recent first.
func (r *Repository) List(ctx context.Context, userID string) ([]Favorite, error) {
	const query = `
		SELECT user_id, listing_id, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("favorite: list: %w", err)
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.UserID, &f.ListingID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("favorite: scan: %w", err)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("favorite: iterate: %w", err)
	}

	return favorites, nil
}

// Add saves a listing for the user. Adding twice is a no-op.
func (r *Repository) Add(ctx context.Context, userID, listingID string) error {
	const insertSQL = `
		INSERT INTO favorites (user_id, listing_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, listing_id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, insertSQL, userID, listingID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrListingMissing
		}
		return fmt.Errorf("favorite: add: %w", err)
	}

	return nil
}

// Remove deletes a saved listing. Removing an absent favorite is a no-op.
func (r *Repository) Remove(ctx context.Context, userID, listingID string) error {
	const deleteSQL = `DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2`

	if _, err := r.pool.Exec(ctx, deleteSQL, userID, listingID); err != nil {
		return fmt.Errorf("favorite: remove: %w", err)
	}

	return nil
}
