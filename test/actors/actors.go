package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vitrina/favorite"
	"vitrina/message"
	"vitrina/profile"
	"vitrina/review"
)

// Registrar hammers the users table with inserts, half of them reusing an
// email that already exists to exercise the unique constraint under load.
func Registrar(ctx context.Context, pool *pgxpool.Pool, takenEmail string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		email := takenEmail
		if rand.Intn(2) == 0 {
			email = fmt.Sprintf("churn%d@example.com", rand.Int63())
		}
		_, err := pool.Exec(ctx, `INSERT INTO users (email, password_hash, role) VALUES ($1, 'x', 'client')`, email)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				// expected for the taken email
			} else {
				return fmt.Errorf("registrar insert: %w", err)
			}
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// FavoriteChurner adds and removes the same favorite in a tight loop. The
// composite primary key must keep the pair unique no matter the interleaving.
func FavoriteChurner(ctx context.Context, repo *favorite.Repository, userID, listingID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if err := repo.Add(ctx, userID, listingID); err != nil && !errors.Is(err, favorite.ErrListingMissing) {
			return fmt.Errorf("favorite add: %w", err)
		}
		if rand.Intn(3) == 0 {
			if err := repo.Remove(ctx, userID, listingID); err != nil {
				return fmt.Errorf("favorite remove: %w", err)
			}
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// Reviewer races to leave a review on the listing. Only one review per author
// may ever land, every later attempt must map to ErrAlreadyReviewed.
func Reviewer(ctx context.Context, repo *review.Repository, listingID, authorID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := repo.Create(ctx, listingID, authorID, 1+rand.Intn(5), "stress")
		if err != nil && !errors.Is(err, review.ErrAlreadyReviewed) {
			return fmt.Errorf("review create: %w", err)
		}
		if rand.Intn(4) == 0 {
			rows, _, err := repo.ListForListing(ctx, listingID)
			if err != nil {
				return fmt.Errorf("review list: %w", err)
			}
			for _, rv := range rows {
				if _, err := repo.MarkHelpful(ctx, rv.ID, rand.Intn(2) == 0); err != nil && !errors.Is(err, review.ErrNotFound) {
					return fmt.Errorf("review helpful: %w", err)
				}
			}
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// Messenger keeps a two-way chat going and opens the thread to flip unread
// flags while new messages are still arriving.
func Messenger(ctx context.Context, repo *message.Repository, a, b string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		sender, recipient := a, b
		if rand.Intn(2) == 0 {
			sender, recipient = b, a
		}
		if _, err := repo.Send(ctx, sender, recipient, fmt.Sprintf("ping %d", rand.Int63())); err != nil {
			return fmt.Errorf("message send: %w", err)
		}
		if rand.Intn(3) == 0 {
			if _, err := repo.Thread(ctx, recipient, sender); err != nil {
				return fmt.Errorf("message thread: %w", err)
			}
		}
		if rand.Intn(5) == 0 {
			if _, err := repo.Conversations(ctx, recipient); err != nil {
				return fmt.Errorf("message conversations: %w", err)
			}
		}
		time.Sleep(time.Duration(15+rand.Intn(35)) * time.Millisecond)
	}
}

// ViewBumper increments the listing view counter concurrently. The counter
// must never lose an increment or go negative.
func ViewBumper(ctx context.Context, repo *profile.Repository, listingID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if err := repo.IncrementViews(ctx, listingID); err != nil && !errors.Is(err, profile.ErrNotFound) {
			return fmt.Errorf("view bump: %w", err)
		}
		time.Sleep(time.Duration(5+rand.Intn(15)) * time.Millisecond)
	}
}

// Editor patches the listing while readers are active. Updates must stay
// atomic row-level, a reader never sees a half-applied patch.
func Editor(ctx context.Context, repo *profile.Repository, listingID string, stop <-chan struct{}) error {
	cities := []string{"Madrid", "Barcelona", "Valencia", "Sevilla"}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		city := cities[rand.Intn(len(cities))]
		price := 100 + float64(rand.Intn(200))
		if _, err := repo.Update(ctx, listingID, profile.UpdateParams{City: &city, Price: &price}); err != nil && !errors.Is(err, profile.ErrNotFound) {
			return fmt.Errorf("listing update: %w", err)
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
}
