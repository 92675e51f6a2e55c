package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendor/agendor-server/internal/config"
	"github.com/agendor/agendor-server/internal/db"
)

// Contention simulator: many patients race for the slots of a single doctor
// on one day. With 20 slots per day, at most 20 bookings can ever succeed,
// no matter how many workers fire; everything else must come back as a
// conflict. Run it against a live api-server after cmd/seed.

type SimConfig struct {
	APIBaseURL  string
	Workers     int
	Attempts    int
	Day         string
	Password    string
	PostgresDSN string
}

type patientLogin struct {
	ID    uuid.UUID
	Email string
	Token string
}

type counters struct {
	created   int64
	conflicts int64
	rejected  int64
	errors    int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	doctorID, patients, err := loadFixtures(ctx, pgPool, cfg.Workers)
	if err != nil {
		log.Fatalf("load fixtures: %v", err)
	}
	log.Printf("target doctor=%s patients=%d day=%s", doctorID, len(patients), cfg.Day)

	client := &http.Client{Timeout: 10 * time.Second}
	for i := range patients {
		if err := login(client, cfg, &patients[i]); err != nil {
			log.Fatalf("login %s: %v", patients[i].Email, err)
		}
	}

	var c counters
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		p := patients[w%len(patients)]
		go func() {
			defer wg.Done()
			for i := 0; i < cfg.Attempts; i++ {
				slot := fmt.Sprintf("%sT%02d:%02d:00Z", cfg.Day, 8+rand.Intn(10), 30*rand.Intn(2))
				book(client, cfg, doctorID, p, slot, &c)
			}
		}()
	}
	wg.Wait()

	log.Printf("done: created=%d conflicts=%d rejected=%d errors=%d",
		atomic.LoadInt64(&c.created),
		atomic.LoadInt64(&c.conflicts),
		atomic.LoadInt64(&c.rejected),
		atomic.LoadInt64(&c.errors))

	if atomic.LoadInt64(&c.created) > 20 {
		log.Fatalf("INVARIANT BROKEN: more than 20 bookings succeeded for one doctor/day")
	}
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Workers:     getInt("SIM_WORKERS", 10),
		Attempts:    getInt("SIM_ATTEMPTS", 20),
		Day:         getEnv("SIM_DAY", nextMonday().Format("2006-01-02")),
		Password:    getEnv("SIM_PASSWORD", "agendor-demo"),
		PostgresDSN: baseCfg.PostgresDSN,
	}
	return cfg
}

func nextMonday() time.Time {
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func loadFixtures(ctx context.Context, pool *pgxpool.Pool, workers int) (uuid.UUID, []patientLogin, error) {
	var doctorID uuid.UUID
	if err := pool.QueryRow(ctx, `SELECT id FROM doctors ORDER BY created_at LIMIT 1`).Scan(&doctorID); err != nil {
		return uuid.Nil, nil, fmt.Errorf("pick doctor: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT id, email FROM patients ORDER BY created_at LIMIT $1`, workers)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("pick patients: %w", err)
	}
	defer rows.Close()

	var patients []patientLogin
	for rows.Next() {
		var p patientLogin
		if err := rows.Scan(&p.ID, &p.Email); err != nil {
			return uuid.Nil, nil, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return uuid.Nil, nil, err
	}
	if len(patients) == 0 {
		return uuid.Nil, nil, fmt.Errorf("no patients in database, run cmd/seed first")
	}
	return doctorID, patients, nil
}

func login(client *http.Client, cfg SimConfig, p *patientLogin) error {
	body, _ := json.Marshal(map[string]string{"email": p.Email, "password": cfg.Password})
	resp, err := client.Post(cfg.APIBaseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	p.Token = out.Token
	return nil
}

func book(client *http.Client, cfg SimConfig, doctorID uuid.UUID, p patientLogin, datetime string, c *counters) {
	body, _ := json.Marshal(map[string]string{
		"doctor_id":  doctorID.String(),
		"patient_id": p.ID.String(),
		"datetime":   datetime,
	})

	req, err := http.NewRequest(http.MethodPost, cfg.APIBaseURL+"/api/appointments", bytes.NewReader(body))
	if err != nil {
		atomic.AddInt64(&c.errors, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.Token)

	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(&c.errors, 1)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		atomic.AddInt64(&c.created, 1)
	case http.StatusConflict:
		atomic.AddInt64(&c.conflicts, 1)
	case http.StatusUnprocessableEntity:
		atomic.AddInt64(&c.rejected, 1)
	default:
		atomic.AddInt64(&c.errors, 1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
