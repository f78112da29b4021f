package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-engine/internal/db"
)

// simulate fires pairs of concurrent bookings at the same interval and then
// checks the store: every contested interval must have exactly one active
// appointment. It is the operational proof of the at-most-one-winner
// guarantee.

type simConfig struct {
	APIBaseURL  string
	PostgresDSN string
	ProviderID  uuid.UUID
	ServiceID   uuid.UUID
	Rounds      int
}

type createRequest struct {
	ServiceID  string `json:"service_id"`
	CustomerID string `json:"customer_id"`
	Start      string `json:"start"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := loadSimConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	customers, err := loadCustomers(context.Background(), pool, cfg.ProviderID, 2)
	if err != nil {
		log.Fatalf("load customers: %v", err)
	}

	duration, err := loadServiceDuration(context.Background(), pool, cfg.ProviderID, cfg.ServiceID)
	if err != nil {
		log.Fatalf("load service: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	var wins, losses, failures atomic.Int64

	// Start far in the future so seeded data cannot collide with the rounds.
	base := time.Now().UTC().AddDate(1, 0, 0).Truncate(24 * time.Hour).Add(9 * time.Hour)
	cursor := nextWorkingSlot(base, time.Duration(duration)*time.Minute)

	for round := 0; round < cfg.Rounds; round++ {
		start := cursor
		cursor = nextWorkingSlot(start.Add(time.Duration(duration)*time.Minute), time.Duration(duration)*time.Minute)

		var wg sync.WaitGroup
		for _, customerID := range customers {
			wg.Add(1)
			go func(customerID uuid.UUID) {
				defer wg.Done()
				status, err := book(client, cfg, customerID, start)
				switch {
				case err != nil:
					failures.Add(1)
				case status == http.StatusCreated:
					wins.Add(1)
				case status == http.StatusConflict:
					losses.Add(1)
				default:
					failures.Add(1)
				}
			}(customerID)
		}
		wg.Wait()

		count, err := activeCount(context.Background(), pool, cfg.ProviderID, start, start.Add(time.Duration(duration)*time.Minute))
		if err != nil {
			log.Fatalf("count appointments: %v", err)
		}
		if count != 1 {
			log.Fatalf("round %d: expected exactly 1 active appointment for %s, found %d", round, start, count)
		}
	}

	log.Printf("simulation complete: rounds=%d wins=%d losses=%d failures=%d",
		cfg.Rounds, wins.Load(), losses.Load(), failures.Load())

	if int(wins.Load()) != cfg.Rounds {
		log.Fatalf("expected %d winners, got %d", cfg.Rounds, wins.Load())
	}
	log.Println("at-most-one-winner holds for every round")
}

func loadSimConfig() (simConfig, error) {
	cfg := simConfig{
		APIBaseURL:  getenvDefault("API_BASE_URL", "http://127.0.0.1:8080"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		Rounds:      20,
	}
	if cfg.PostgresDSN == "" {
		return simConfig{}, fmt.Errorf("POSTGRES_DSN is required")
	}

	providerID, err := uuid.Parse(os.Getenv("SIM_PROVIDER_ID"))
	if err != nil {
		return simConfig{}, fmt.Errorf("SIM_PROVIDER_ID must be a valid UUID")
	}
	serviceID, err := uuid.Parse(os.Getenv("SIM_SERVICE_ID"))
	if err != nil {
		return simConfig{}, fmt.Errorf("SIM_SERVICE_ID must be a valid UUID")
	}
	cfg.ProviderID = providerID
	cfg.ServiceID = serviceID

	return cfg, nil
}

// nextWorkingSlot clamps a candidate start into the seeded 09:00-18:00
// Monday-Saturday schedule so every round books a legal interval.
func nextWorkingSlot(t time.Time, duration time.Duration) time.Time {
	for {
		dayStart := t.Truncate(24 * time.Hour)
		open := dayStart.Add(9 * time.Hour)
		closing := dayStart.Add(18 * time.Hour)

		if t.Before(open) {
			t = open
		}
		if t.Weekday() != time.Sunday && !t.Add(duration).After(closing) {
			return t
		}
		t = dayStart.AddDate(0, 0, 1).Add(9 * time.Hour)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func book(client *http.Client, cfg simConfig, customerID uuid.UUID, start time.Time) (int, error) {
	body, err := json.Marshal(createRequest{
		ServiceID:  cfg.ServiceID.String(),
		CustomerID: customerID.String(),
		Start:      start.Format(time.RFC3339),
	})
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/providers/%s/appointments", cfg.APIBaseURL, cfg.ProviderID)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func loadCustomers(ctx context.Context, pool *pgxpool.Pool, providerID uuid.UUID, count int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT id FROM customers WHERE provider_id = $1 LIMIT $2
	`, providerID, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) < count {
		return nil, fmt.Errorf("need at least %d customers for provider %s, found %d", count, providerID, len(ids))
	}
	return ids, nil
}

func loadServiceDuration(ctx context.Context, pool *pgxpool.Pool, providerID, serviceID uuid.UUID) (int, error) {
	var duration int
	err := pool.QueryRow(ctx, `
		SELECT duration_min FROM services WHERE id = $1 AND provider_id = $2 AND active
	`, serviceID, providerID).Scan(&duration)
	return duration, err
}

func activeCount(ctx context.Context, pool *pgxpool.Pool, providerID uuid.UUID, start, end time.Time) (int, error) {
	var count int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE provider_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3
		  AND end_time > $2
	`, providerID, start, end).Scan(&count)
	return count, err
}
