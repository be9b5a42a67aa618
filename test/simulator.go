package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name          string `json:"name"`
	Contact       string `json:"contact"`
	SeniorCitizen bool   `json:"senior_citizen"`
	Pregnant      bool   `json:"pregnant"`
	PWD           bool   `json:"pwd"`
}

type CallNextRequest struct {
	Counter string `json:"counter"`
}

type ticketRow struct {
	Id          int64
	Status      string
	ServedAt    *time.Time
	CompletedAt *time.Time
}

func (ticketRow) TableName() string {
	return "tickets"
}

type Stats struct {
	registered   atomic.Int64
	called       atomic.Int64
	emptyCalls   atomic.Int64
	completed    atomic.Int64
	failed       atomic.Int64
	totalLatency atomic.Int64
	requests     atomic.Int64
	maxLatency   atomic.Int64
}

type Simulator struct {
	serverURL   string
	counters    []string
	arrivalRate int
	serviceTime time.Duration
	duration    time.Duration
	stats       Stats
	httpClient  *http.Client
}

func NewSimulator(serverURL string, counters []string, arrivalRate int, serviceTime, duration time.Duration) *Simulator {
	return &Simulator{
		serverURL:   serverURL,
		counters:    counters,
		arrivalRate: arrivalRate,
		serviceTime: serviceTime,
		duration:    duration,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// randomCustomer returns a walk-in; roughly one in five qualifies for a
// priority lane.
func randomCustomer(n int64) RegisterRequest {
	req := RegisterRequest{
		Name:    fmt.Sprintf("Customer %d", n),
		Contact: fmt.Sprintf("0917%07d", rand.Intn(9999999)),
	}
	switch rand.Intn(20) {
	case 0:
		req.SeniorCitizen = true
	case 1:
		req.Pregnant = true
	case 2, 3:
		req.PWD = true
	}
	return req
}

func (s *Simulator) post(ctx context.Context, path string, body any, staff string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if staff != "" {
		req.Header.Set("X-Auth-User-Id", staff)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	latency := time.Since(start).Milliseconds()
	s.stats.requests.Add(1)
	s.stats.totalLatency.Add(latency)
	for {
		currentMax := s.stats.maxLatency.Load()
		if latency <= currentMax || s.stats.maxLatency.CompareAndSwap(currentMax, latency) {
			break
		}
	}

	if err != nil {
		s.stats.failed.Add(1)
		return 0, nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		s.stats.failed.Add(1)
	}
	return resp.StatusCode, data, nil
}

func (s *Simulator) register(ctx context.Context) {
	n := s.stats.registered.Load() + 1
	code, _, err := s.post(ctx, "/v1/tickets", randomCustomer(n), "")
	if err == nil && code == http.StatusCreated {
		s.stats.registered.Add(1)
	}
}

// serve keeps one counter busy: call the next customer, serve, complete.
func (s *Simulator) serve(ctx context.Context, counter string) {
	staff := "sim-" + counter
	for ctx.Err() == nil {
		code, data, err := s.post(ctx, "/v1/queue/call-next", CallNextRequest{Counter: counter}, staff)
		if err != nil || code != http.StatusOK {
			time.Sleep(200 * time.Millisecond)
			continue
		}

		var resp struct {
			Data *struct {
				ID int64 `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(data, &resp); err != nil || resp.Data == nil {
			s.stats.emptyCalls.Add(1)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		s.stats.called.Add(1)

		select {
		case <-ctx.Done():
		case <-time.After(s.serviceTime/2 + time.Duration(rand.Int63n(int64(s.serviceTime)))):
		}

		// complete even after the deadline so no ticket is left serving
		code, _, err = s.post(context.Background(), fmt.Sprintf("/v1/tickets/%d/complete", resp.Data.ID), nil, staff)
		if err == nil && code == http.StatusOK {
			s.stats.completed.Add(1)
		}
	}
}

// Run registers customers at arrivalRate per second while every counter
// serves them.
func (s *Simulator) Run(ctx context.Context) {
	fmt.Printf("Starting queue simulator\n")
	fmt.Printf("Target Server:     %s\n", s.serverURL)
	fmt.Printf("Counters:          %v\n", s.counters)
	fmt.Printf("Arrival Rate:      %d customers/second\n", s.arrivalRate)
	fmt.Printf("Service Time:      ~%s\n", s.serviceTime)
	fmt.Printf("Duration:          %s\n\n", s.duration)

	testCtx, cancel := context.WithTimeout(ctx, s.duration)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.printStats(testCtx)
	}()

	for _, counter := range s.counters {
		wg.Add(1)
		go func(c string) {
			defer wg.Done()
			s.serve(testCtx, c)
		}(counter)
	}

	startTime := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(s.arrivalRate))
	defer ticker.Stop()

	var requestWg sync.WaitGroup
	for {
		select {
		case <-testCtx.Done():
			requestWg.Wait()
			wg.Wait()
			s.printFinalReport(time.Since(startTime))
			return
		case <-ticker.C:
			requestWg.Add(1)
			go func() {
				defer requestWg.Done()
				s.register(testCtx)
			}()
		}
	}
}

func (s *Simulator) printStats(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registered := s.stats.registered.Load()
			completed := s.stats.completed.Load()
			fmt.Printf("Registered: %6d | Called: %6d | Completed: %6d | Waiting: ~%5d | Empty calls: %5d | Failed: %5d\n",
				registered, s.stats.called.Load(), completed, registered-s.stats.called.Load(),
				s.stats.emptyCalls.Load(), s.stats.failed.Load())
		}
	}
}

func (s *Simulator) printFinalReport(duration time.Duration) {
	requests := s.stats.requests.Load()
	avgLatency := int64(0)
	if requests > 0 {
		avgLatency = s.stats.totalLatency.Load() / requests
	}

	fmt.Printf("\nFINAL QUEUE SIMULATION REPORT\n")
	fmt.Printf("Duration:            %s\n", duration.Round(time.Second))
	fmt.Printf("Registered:          %d\n", s.stats.registered.Load())
	fmt.Printf("Called:              %d\n", s.stats.called.Load())
	fmt.Printf("Completed:           %d\n", s.stats.completed.Load())
	fmt.Printf("Failed requests:     %d of %d\n", s.stats.failed.Load(), requests)
	fmt.Printf("Latency (ms):        avg=%d max=%d\n\n", avgLatency, s.stats.maxLatency.Load())
}

// verify checks the persisted tickets for lifecycle violations.
func verify(ctx context.Context, db *gorm.DB) error {
	rows, err := gorm.G[ticketRow](db).Order("id ASC").Find(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tickets: %w", err)
	}

	byStatus := map[string]int{}
	violations := 0
	for _, t := range rows {
		byStatus[t.Status]++
		switch {
		case t.Status == "waiting" && (t.ServedAt != nil || t.CompletedAt != nil),
			t.Status == "serving" && (t.ServedAt == nil || t.CompletedAt != nil),
			t.Status == "completed" && (t.ServedAt == nil || t.CompletedAt == nil || t.CompletedAt.Before(*t.ServedAt)):
			violations++
			fmt.Printf("ticket %d: inconsistent %s record\n", t.Id, t.Status)
		}
	}

	fmt.Printf("tickets: %d (waiting %d, serving %d, completed %d)\n",
		len(rows), byStatus["waiting"], byStatus["serving"], byStatus["completed"])
	if violations > 0 {
		return fmt.Errorf("%d inconsistent tickets", violations)
	}
	return nil
}

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 || (os.Args[1] != "run" && os.Args[1] != "verify") {
		fmt.Printf("Usage: %s [run|verify]\n", os.Args[0])
		fmt.Printf("  run    - simulate customers arriving and counters serving them\n")
		fmt.Printf("  verify - check persisted tickets for lifecycle violations\n")
		os.Exit(1)
	}

	const (
		serverURL    = "http://server:8080"
		arrivalRate  = 5
		serviceTime  = 3 * time.Second
		testDuration = 2 * time.Minute
	)

	switch os.Args[1] {
	case "run":
		NewSimulator(serverURL, []string{"Jil", "Eric", "JA"}, arrivalRate, serviceTime, testDuration).Run(ctx)

	case "verify":
		dsn := "host=postgres user=queue password=queue dbname=queue port=5432 sslmode=disable"
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			fmt.Printf("Failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		if err := verify(ctx, db); err != nil {
			fmt.Printf("Verification failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Verification passed\n")
	}
}
