package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"vitrina/auth"
	"vitrina/config"
	"vitrina/db"
	"vitrina/profile"
)

type demoListing struct {
	name        string
	age         int
	city        string
	price       float64
	ethnicity   string
	nationality string
	verified    bool
	elite       bool
	description string
}

var demoListings = []demoListing{
	{"Valeria", 24, "Madrid", 150, "latina", "Colombia", true, true, "Acompañante de lujo en el centro de Madrid."},
	{"Camila", 26, "Barcelona", 180, "latina", "Venezuela", true, false, "Disponible tardes y fines de semana."},
	{"Isabella", 23, "Valencia", 140, "europea", "España", false, false, "Primera vez en la ciudad."},
	{"Elena", 28, "Madrid", 200, "europea", "Rusia", true, true, "Trato exclusivo, solo con cita previa."},
	{"Sofia", 25, "Sevilla", 130, "latina", "Brasil", false, false, "Nueva en la zona sur."},
	{"Gabriela", 27, "Barcelona", 160, "latina", "Argentina", true, false, "Atención personalizada en zona alta."},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	authRepo := auth.NewRepository(pool)
	profileRepo := profile.NewRepository(pool)

	hash, err := bcrypt.GenerateFromPassword([]byte("demo123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	provider, err := authRepo.CreateUser(ctx, auth.CreateUserParams{
		Email:        "anunciante@vitrina.demo",
		PasswordHash: string(hash),
		Role:         auth.RoleProvider,
		Name:         "Agencia Demo",
		Phone:        "600000001",
		City:         "Madrid",
	})
	if err != nil {
		return fmt.Errorf("seed provider: %w", err)
	}

	if _, err := authRepo.CreateUser(ctx, auth.CreateUserParams{
		Email:        "cliente@vitrina.demo",
		PasswordHash: string(hash),
		Role:         auth.RoleClient,
		Name:         "Cliente Demo",
		Phone:        "600000002",
		City:         "Madrid",
	}); err != nil {
		return fmt.Errorf("seed client: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range demoListings {
		d := d
		g.Go(func() error {
			created, err := profileRepo.Create(gctx, profile.CreateParams{
				OwnerID:     provider.ID,
				Name:        d.name,
				Age:         d.age,
				City:        d.city,
				Price:       d.price,
				Ethnicity:   d.ethnicity,
				Nationality: d.nationality,
				Description: d.description,
				Photos:      []string{},
			})
			if err != nil {
				return fmt.Errorf("seed listing %s: %w", d.name, err)
			}
			if d.verified || d.elite {
				if _, err := pool.Exec(gctx,
					`UPDATE listings SET verified = $2, elite = $3 WHERE id = $1`,
					created.ID, d.verified, d.elite); err != nil {
					return fmt.Errorf("flag listing %s: %w", d.name, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("seeded %d listings for provider %s", len(demoListings), provider.ID)
	return nil
}
