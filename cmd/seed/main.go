package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-engine/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedServices(context.Background(), pool, providerIDs); err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedCustomers(context.Background(), pool, providerIDs, 40); err != nil {
		log.Fatalf("seed customers: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, providerIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	intervals := []int{15, 30, 30, 30, 60}

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		phone := gofakeit.Phone()

		_, err := pool.Exec(ctx, `
			INSERT INTO providers (id, name, phone, active, slot_interval_min, created_at, updated_at)
			VALUES ($1, $2, $3, true, $4, now(), now())
		`, id, gofakeit.Company(), phone, intervals[i%len(intervals)])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) error {
	log.Printf("seeding services for %d providers", len(providerIDs))

	names := []string{
		"Haircut",
		"Beard Trim",
		"Consultation",
		"Deep Cleaning",
		"Full Session",
		"Quick Checkup",
	}
	durations := []int{15, 30, 45, 60, 90}

	for _, providerID := range providerIDs {
		count := gofakeit.Number(2, 5)
		for i := 0; i < count; i++ {
			_, err := pool.Exec(ctx, `
				INSERT INTO services (id, provider_id, name, duration_min, price_cents, currency, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, 'USD', true, now(), now())
			`, uuid.New(), providerID,
				fmt.Sprintf("%s %d", names[i%len(names)], i+1),
				durations[gofakeit.Number(0, len(durations)-1)],
				int64(gofakeit.Number(1500, 25000)))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID, perProvider int) error {
	log.Printf("seeding %d customers per provider", perProvider)

	for _, providerID := range providerIDs {
		for i := 0; i < perProvider; i++ {
			_, err := pool.Exec(ctx, `
				INSERT INTO customers (id, provider_id, name, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
				ON CONFLICT (provider_id, phone) DO NOTHING
			`, uuid.New(), providerID, gofakeit.Name(), gofakeit.Phone())
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) error {
	log.Printf("seeding working hours for %d providers", len(providerIDs))

	for _, providerID := range providerIDs {
		// Monday through Saturday, Sunday off.
		for weekday := 1; weekday <= 6; weekday++ {
			_, err := pool.Exec(ctx, `
				INSERT INTO working_hours (id, provider_id, weekday, start_time, end_time, enabled)
				VALUES ($1, $2, $3, '09:00', '18:00', true)
			`, uuid.New(), providerID, weekday)
			if err != nil {
				return err
			}
		}

		// Most providers take a lunch break.
		if gofakeit.Number(0, 9) < 8 {
			_, err := pool.Exec(ctx, `
				INSERT INTO break_windows (id, provider_id, start_time, end_time, enabled)
				VALUES ($1, $2, '12:00', '13:00', true)
			`, uuid.New(), providerID)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
