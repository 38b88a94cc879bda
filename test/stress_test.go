package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"vitrina/favorite"
	"vitrina/message"
	"vitrina/profile"
	"vitrina/review"
	"vitrina/test/actors"
	"vitrina/test/chaos"
	"vitrina/test/infra"
	"vitrina/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func seedRNG(seed int64) { rand.Seed(seed) }

func TestCatalogConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	seedRNG(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	// migrations
	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	seedData := mustSeed(t, ctx, pool)

	favoriteRepo := favorite.NewRepository(pool)
	reviewRepo := review.NewRepository(pool)
	messageRepo := message.NewRepository(pool)
	profileRepo := profile.NewRepository(pool)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// registration churn against a taken email
	g.Go(func() error { return actors.Registrar(ctx2, pool, seedData.clientEmail, stop) })

	// clients battling over the same favorite pair and review slot
	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error {
			return actors.FavoriteChurner(ctx2, favoriteRepo, seedData.clientID, seedData.listingID, stop)
		})
		g.Go(func() error {
			return actors.Reviewer(ctx2, reviewRepo, seedData.listingID, seedData.clientID, stop)
		})
	}

	// two-way chat with concurrent read marking
	g.Go(func() error { return actors.Messenger(ctx2, messageRepo, seedData.clientID, seedData.providerID, stop) })
	// view counter under contention
	g.Go(func() error { return actors.ViewBumper(ctx2, profileRepo, seedData.listingID, stop) })
	// listing edits racing the readers
	g.Go(func() error { return actors.Editor(ctx2, profileRepo, seedData.listingID, stop) })
	// chaos: kill random backend
	go chaos.TerminateRandomBackend(ctx2, pool, stop)

	// schedule oracle checks until duration reached
	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	clientID    string
	clientEmail string
	providerID  string
	listingID   string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seedIDs {
	t.Helper()
	var s seedIDs
	s.clientEmail = fmt.Sprintf("client%d@example.com", rand.Int63())
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, password_hash, role, name) VALUES ($1, 'x', 'client', 'Stress Client') RETURNING id`, s.clientEmail).Scan(&s.clientID); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, password_hash, role, name) VALUES ($1, 'x', 'provider', 'Stress Provider') RETURNING id`,
		fmt.Sprintf("provider%d@example.com", rand.Int63())).Scan(&s.providerID); err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO listings (owner_id, name, age, city, price) VALUES ($1, 'Stress Listing', 25, 'Madrid', 150) RETURNING id`, s.providerID).Scan(&s.listingID); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"users", `SELECT id, email, role, created_at FROM users ORDER BY created_at DESC LIMIT 50`},
		{"favorites", `SELECT user_id, listing_id, created_at FROM favorites ORDER BY created_at DESC LIMIT 50`},
		{"reviews", `SELECT id, listing_id, author_id, rating, helpful, not_helpful FROM reviews ORDER BY created_at DESC LIMIT 50`},
		{"messages", `SELECT id, sender_id, recipient_id, read, created_at FROM messages ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
