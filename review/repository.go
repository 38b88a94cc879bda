package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reviewColumns = `id, listing_id, author_id, rating, text, helpful, not_helpful, created_at`

// Repository stores listing reviews.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForListing returns the listing's reviews (newest first) and an
// aggregate summary.
func (r *Repository) ListForListing(ctx context.Context, listingID string) ([]Review, Summary, error) {
	const query = `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE listing_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, listingID)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("review: list: %w", err)
	}
	defer rows.Close()

	var (
		reviews []Review
		total   int
	)
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, Summary{}, fmt.Errorf("review: scan: %w", err)
		}
		reviews = append(reviews, rev)
		total += rev.Rating
	}
	if err := rows.Err(); err != nil {
		return nil, Summary{}, fmt.Errorf("review: iterate: %w", err)
	}

	summary := Summary{Count: len(reviews)}
	if summary.Count > 0 {
		summary.Average = float64(total) / float64(summary.Count)
	}

	return reviews, summary, nil
}

// Create inserts a review. The schema enforces one review per author per
// listing.
func (r *Repository) Create(ctx context.Context, listingID, authorID string, rating int, text string) (Review, error) {
	const insertSQL = `
		INSERT INTO reviews (listing_id, author_id, rating, text)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + reviewColumns

	rev, err := scanReview(r.pool.QueryRow(ctx, insertSQL, listingID, authorID, rating, text))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Review{}, ErrAlreadyReviewed
		}
		return Review{}, fmt.Errorf("review: create: %w", err)
	}

	return rev, nil
}

// MarkHelpful bumps one of the feedback counters and returns the updated row.
func (r *Repository) MarkHelpful(ctx context.Context, reviewID string, helpful bool) (Review, error) {
	column := "not_helpful"
	if helpful {
		column = "helpful"
	}

	query := `
		UPDATE reviews
		SET ` + column + ` = ` + column + ` + 1
		WHERE id = $1
		RETURNING ` + reviewColumns

	rev, err := scanReview(r.pool.QueryRow(ctx, query, reviewID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Review{}, ErrNotFound
		}
		return Review{}, fmt.Errorf("review: mark helpful: %w", err)
	}

	return rev, nil
}

func scanReview(row pgx.Row) (Review, error) {
	var rev Review
	err := row.Scan(
		&rev.ID,
		&rev.ListingID,
		&rev.AuthorID,
		&rev.Rating,
		&rev.Text,
		&rev.Helpful,
		&rev.NotHelpful,
		&rev.CreatedAt,
	)
	if err != nil {
		return Review{}, err
	}
	return rev, nil
}
