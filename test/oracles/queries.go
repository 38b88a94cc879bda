package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the invariant checks run between stress rounds. Each query must
// return zero rows on a healthy database.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_unique_email",
			SQL: `SELECT lower(email), COUNT(*) FROM users
                  GROUP BY lower(email) HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_one_review_per_author",
			SQL: `SELECT listing_id, author_id, COUNT(*) FROM reviews
                  GROUP BY listing_id, author_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O3_rating_range",
			SQL:  `SELECT id, rating FROM reviews WHERE rating < 1 OR rating > 5`,
		},
		{
			Name: "O4_counters_non_negative",
			SQL: `SELECT id FROM listings WHERE views < 0
                  UNION ALL
                  SELECT id FROM reviews WHERE helpful < 0 OR not_helpful < 0`,
		},
		{
			Name: "O5_favorite_orphans",
			SQL: `SELECT f.user_id, f.listing_id FROM favorites f
                  LEFT JOIN listings l ON l.id = f.listing_id
                  LEFT JOIN users u ON u.id = f.user_id
                  WHERE l.id IS NULL OR u.id IS NULL`,
		},
		{
			Name: "O6_message_endpoints_exist",
			SQL: `SELECT m.id FROM messages m
                  LEFT JOIN users s ON s.id = m.sender_id
                  LEFT JOIN users r ON r.id = m.recipient_id
                  WHERE s.id IS NULL OR r.id IS NULL`,
		},
		{
			Name: "O7_adult_listings_only",
			SQL:  `SELECT id, age FROM listings WHERE age < 18`,
		},
		{
			Name: "O8_timestamps_ordered",
			SQL: `SELECT id FROM users WHERE updated_at < created_at
                  UNION ALL
                  SELECT id FROM listings WHERE updated_at < created_at`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
