package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/hackgods/vendor-booking/internal/config"
	"github.com/hackgods/vendor-booking/internal/db"
	"github.com/hackgods/vendor-booking/internal/interval"
	"github.com/hackgods/vendor-booking/internal/logger"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	RespondRatio  float64
	ReadRatio     float64
	CustomerLimit int
	ServiceLimit  int
	Days          int
	PostgresDSN   string
}

type service struct {
	ID       uuid.UUID
	VendorID uuid.UUID
}

type DataPool struct {
	Customers []uuid.UUID
	Services  []service
	mu        sync.RWMutex
	bookings  []uuid.UUID // created booking IDs
}

func (dp *DataPool) AddBooking(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, id)
}

func (dp *DataPool) RandomBooking(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.bookings) == 0 {
		return uuid.Nil, false
	}
	return dp.bookings[rng.Intn(len(dp.bookings))], true
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeConflict
	outcomeUnavailable
	outcomeBusy
	outcomeError
)

type OperationMetrics struct {
	Total       int64
	Success     int64
	Conflict    int64
	Unavailable int64
	Busy        int64
	Error       int64
	Latencies   []time.Duration
	mu          sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, o outcome) {
	atomic.AddInt64(&om.Total, 1)
	switch o {
	case outcomeSuccess:
		atomic.AddInt64(&om.Success, 1)
	case outcomeConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case outcomeUnavailable:
		atomic.AddInt64(&om.Unavailable, 1)
	case outcomeBusy:
		atomic.AddInt64(&om.Busy, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	pick := func(pct int) time.Duration {
		idx := len(latencies) * pct / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}

	return sum / time.Duration(len(latencies)), latencies[0], latencies[len(latencies)-1], pick(50), pick(95)
}

type Metrics struct {
	Booking      OperationMetrics
	Respond      OperationMetrics
	ReadByID     OperationMetrics
	ListCustomer OperationMetrics
	Alternatives OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	today   time.Time
	metrics Metrics
}

func main() {
	logger.Init(logger.Config{Level: "info", Environment: os.Getenv("APP_ENV"), Service: "simulate"})
	log.Info().Msg("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	log.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("respond", cfg.RespondRatio).
		Float64("read", cfg.ReadRatio).
		Msg("config")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}

	log.Info().Int("customers", len(dataPool.Customers)).Int("services", len(dataPool.Services)).Msg("loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		today:  interval.Day(time.Now().UTC()),
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load base config")
	}

	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.5),
		RespondRatio:  getFloat("SIM_RESPOND_RATIO", 0.2),
		ReadRatio:     getFloat("SIM_READ_RATIO", 0.3),
		CustomerLimit: getInt("SIM_CUSTOMER_LIMIT", 2000),
		ServiceLimit:  getInt("SIM_SERVICE_LIMIT", 40),
		Days:          getInt("SIM_DAYS", 3),
		PostgresDSN:   baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.RespondRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.RespondRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		return fmt.Errorf("SIM_DAYS must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM customers LIMIT $1`, cfg.CustomerLimit)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Customers = append(dataPool.Customers, id)
	}
	rows.Close()

	// A small service set keeps many workers on the same vendor-days.
	rows, err = pool.Query(ctx, `SELECT id, vendor_id FROM services ORDER BY id LIMIT $1`, cfg.ServiceLimit)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	for rows.Next() {
		var s service
		if err := rows.Scan(&s.ID, &s.VendorID); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Services = append(dataPool.Services, s)
	}
	rows.Close()

	if len(dataPool.Customers) == 0 {
		return nil, fmt.Errorf("no customers loaded")
	}
	if len(dataPool.Services) == 0 {
		return nil, fmt.Errorf("no services loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.RespondRatio:
				s.doRespond(ctx, rng)
			default:
				switch rng.Intn(3) {
				case 0:
					s.doReadByID(ctx, rng)
				case 1:
					s.doListByCustomer(ctx, rng)
				case 2:
					s.doAlternatives(ctx, rng)
				}
			}
		}
	}
}

// randomWindow picks a half-hour aligned start between 08:00 and 19:30 and a
// one to three hour duration.
func (s *Simulator) randomWindow(rng *rand.Rand) (time.Time, time.Time) {
	day := s.today.AddDate(0, 0, 1+rng.Intn(s.config.Days))
	start := interval.Clock(8*60 + rng.Intn(24)*30).On(day)
	return start, start.Add(time.Duration(1+rng.Intn(3)) * time.Hour)
}

func (s *Simulator) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.client.Do(req)
}

// classify maps a booking write response onto an outcome.
func classify(resp *http.Response, okStatus int) outcome {
	switch resp.StatusCode {
	case okStatus:
		return outcomeSuccess
	case http.StatusConflict:
		return outcomeBusy
	case http.StatusUnprocessableEntity:
		var body struct {
			Fields []struct {
				Message string `json:"message"`
			} `json:"fields"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && len(body.Fields) > 0 {
			if strings.Contains(body.Fields[0].Message, "not available") {
				return outcomeUnavailable
			}
			if strings.Contains(body.Fields[0].Message, "conflicts") {
				return outcomeConflict
			}
		}
	}
	return outcomeError
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	svc := s.pool.Services[rng.Intn(len(s.pool.Services))]
	customerID := s.pool.Customers[rng.Intn(len(s.pool.Customers))]
	start, end := s.randomWindow(rng)

	began := time.Now()
	resp, err := s.send(ctx, http.MethodPost, "/bookings", map[string]any{
		"customer_id":        customerID,
		"vendor_id":          svc.VendorID,
		"service_id":         svc.ID,
		"event_start":        start,
		"event_end":          end,
		"location":           "Simulated venue",
		"total_amount_cents": 100000,
	})
	latency := time.Since(began)

	if err != nil {
		s.metrics.Booking.Record(latency, outcomeError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil && created.ID != uuid.Nil {
			s.pool.AddBooking(created.ID)
		}
		s.metrics.Booking.Record(latency, outcomeSuccess)
		return
	}

	s.metrics.Booking.Record(latency, classify(resp, http.StatusCreated))
}

func (s *Simulator) doRespond(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}

	body := map[string]any{"type": "accepted"}
	switch rng.Intn(4) {
	case 0:
		body = map[string]any{"type": "declined", "reason": "simulated"}
	case 1:
		body = map[string]any{"type": "counter_offered", "amount_cents": 120000, "message": "simulated"}
	}

	began := time.Now()
	resp, err := s.send(ctx, http.MethodPost, "/bookings/"+id.String()+"/respond", body)
	latency := time.Since(began)
	if err != nil {
		s.metrics.Respond.Record(latency, outcomeError)
		return
	}
	defer resp.Body.Close()

	o := classify(resp, http.StatusOK)
	// invalid transitions are expected once a booking has been answered
	if o == outcomeBusy {
		o = outcomeConflict
	}
	s.metrics.Respond.Record(latency, o)
}

func (s *Simulator) read(ctx context.Context, om *OperationMetrics, path string) {
	began := time.Now()
	resp, err := s.send(ctx, http.MethodGet, path, nil)
	latency := time.Since(began)
	if err != nil {
		om.Record(latency, outcomeError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		om.Record(latency, outcomeSuccess)
		return
	}
	om.Record(latency, outcomeError)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}
	s.read(ctx, &s.metrics.ReadByID, "/bookings/"+id.String())
}

func (s *Simulator) doListByCustomer(ctx context.Context, rng *rand.Rand) {
	customerID := s.pool.Customers[rng.Intn(len(s.pool.Customers))]
	s.read(ctx, &s.metrics.ListCustomer, fmt.Sprintf("/customers/%s/bookings?limit=20&offset=0", customerID))
}

func (s *Simulator) doAlternatives(ctx context.Context, rng *rand.Rand) {
	svc := s.pool.Services[rng.Intn(len(s.pool.Services))]
	start, end := s.randomWindow(rng)

	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))
	s.read(ctx, &s.metrics.Alternatives, "/vendors/"+svc.VendorID.String()+"/alternatives?"+q.Encode())
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Respond", &s.metrics.Respond)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by Customer", &s.metrics.ListCustomer)
	printOperationReport("Alternatives", &s.metrics.Alternatives)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	success := atomic.LoadInt64(&om.Success)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	for _, row := range []struct {
		label string
		n     int64
	}{
		{"Conflicts", atomic.LoadInt64(&om.Conflict)},
		{"Unavailable", atomic.LoadInt64(&om.Unavailable)},
		{"Busy", atomic.LoadInt64(&om.Busy)},
		{"Errors", atomic.LoadInt64(&om.Error)},
	} {
		if row.n > 0 {
			fmt.Printf("  %s: %d (%.1f%%)\n", row.label, row.n, pct(row.n))
		}
	}

	avg, min, max, p50, p95 := om.Stats()
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
